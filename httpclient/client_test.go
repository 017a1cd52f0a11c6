package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/kcoidc/resilience"
)

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("expected Accept application/json, got %q", got)
		}
		if got := r.Header.Get("X-Custom"); got != "value" {
			t.Errorf("expected X-Custom=value, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"issuer":"https://id.example"}`))
	}))
	defer srv.Close()

	c, err := New(Config{HTTP: srv.Client(), Headers: map[string]string{"X-Custom": "value"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		Issuer string `json:"issuer"`
	}
	err = c.GetJSON(context.Background(), Request{URL: srv.URL, ContentTypes: []string{"application/json"}}, &doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Issuer != "https://id.example" {
		t.Errorf("unexpected issuer %q", doc.Issuer)
	}
}

func TestClient_BearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer header, got %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(Config{HTTP: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := c.Do(context.Background(), Request{URL: srv.URL, BearerToken: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success, got %d", resp.StatusCode)
	}
}

func TestClient_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		code   ErrorCode
	}{
		{http.StatusUnauthorized, ErrCodeAuth},
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusBadRequest, ErrCodeValidation},
		{http.StatusServiceUnavailable, ErrCodeServer},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c, _ := New(Config{HTTP: srv.Client()})
			resp, err := c.Do(context.Background(), Request{URL: srv.URL})
			var herr *Error
			if !errors.As(err, &herr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if herr.Code != tt.code || herr.StatusCode != tt.status {
				t.Errorf("got code %s status %d", herr.Code, herr.StatusCode)
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Error("expected the response alongside the error")
			}
			if !strings.Contains(err.Error(), "nope") {
				t.Errorf("expected body in message, got %q", err.Error())
			}
		})
	}
}

func TestClient_ContentTypeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c, _ := New(Config{HTTP: srv.Client()})
	var v map[string]any
	err := c.GetJSON(context.Background(), Request{URL: srv.URL, ContentTypes: []string{"application/json"}}, &v)
	var herr *Error
	if !errors.As(err, &herr) || herr.Code != ErrCodeResponse {
		t.Fatalf("expected response error, got %v", err)
	}
	if !strings.Contains(err.Error(), "text/html") {
		t.Errorf("expected media type in message, got %q", err.Error())
	}
}

func TestClient_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"a":"` + strings.Repeat("x", 64) + `"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{HTTP: srv.Client(), MaxBodySize: 16})
	var v map[string]any
	if err := c.GetJSON(context.Background(), Request{URL: srv.URL}, &v); err == nil {
		t.Error("expected oversized body to fail")
	}
}

func TestClient_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c, _ := New(Config{HTTP: srv.Client()})
	var v map[string]any
	err := c.GetJSON(context.Background(), Request{URL: srv.URL}, &v)
	var herr *Error
	if !errors.As(err, &herr) || herr.Code != ErrCodeResponse {
		t.Errorf("expected response error, got %v", err)
	}
}

func TestClient_ConnectionAndTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	url := srv.URL

	c, _ := New(Config{HTTP: &http.Client{Timeout: 50 * time.Millisecond}})
	if _, err := c.Do(context.Background(), Request{URL: url}); !IsTimeout(err) {
		t.Errorf("expected timeout, got %v", err)
	}

	srv.Close()
	_, err := c.Do(context.Background(), Request{URL: url})
	var herr *Error
	if !errors.As(err, &herr) || herr.Code != ErrCodeConnection {
		t.Errorf("expected connection error, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("expected connection errors to be retryable")
	}
}

func TestClient_CircuitIgnoresClientErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	cb := DefaultCircuitBreakerConfig("userinfo")
	cb.MaxFailures = 2
	c, _ := New(Config{HTTP: srv.Client(), CircuitBreaker: cb})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = c.Do(ctx, Request{URL: srv.URL})
	}
	if c.CircuitState() != resilience.StateClosed {
		t.Fatalf("expected closed circuit after 401s, got %s", c.CircuitState())
	}

	status.Store(http.StatusBadGateway)
	for i := 0; i < 2; i++ {
		_, _ = c.Do(ctx, Request{URL: srv.URL})
	}
	if c.CircuitState() != resilience.StateOpen {
		t.Fatalf("expected open circuit after 5xx, got %s", c.CircuitState())
	}
	if _, err := c.Do(ctx, Request{URL: srv.URL}); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	if _, err := New(Config{MaxBodySize: -1}); err == nil {
		t.Error("expected negative body size to be rejected")
	}
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Unwrap() != http.DefaultClient {
		t.Error("expected http.DefaultClient by default")
	}
	if c.CircuitState() != resilience.StateClosed {
		t.Error("expected closed state without breaker")
	}
}
