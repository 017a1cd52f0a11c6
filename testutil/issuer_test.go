package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func getJSON(t *testing.T, client *http.Client, url, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	defer resp.Body.Close()
	body := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestIssuer_Discovery(t *testing.T) {
	iss := NewIssuer(t)

	resp, doc := getJSON(t, iss.Client(), iss.URL()+DiscoveryPath, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	if doc["jwks_uri"] != iss.URL()+JWKSPath {
		t.Errorf("unexpected jwks_uri %v", doc["jwks_uri"])
	}
	if doc["userinfo_endpoint"] != iss.URL()+UserinfoPath {
		t.Errorf("unexpected userinfo_endpoint %v", doc["userinfo_endpoint"])
	}
	if iss.Requests(DiscoveryPath) != 1 {
		t.Errorf("expected 1 discovery request, got %d", iss.Requests(DiscoveryPath))
	}
}

func TestIssuer_JWKS(t *testing.T) {
	iss := NewIssuer(t)

	resp, doc := getJSON(t, iss.Client(), iss.URL()+JWKSPath, "")
	if ct := resp.Header.Get("Content-Type"); ct != "application/jwk-set+json" {
		t.Errorf("unexpected content type %q", ct)
	}
	keys, _ := doc["keys"].([]any)
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	key, _ := keys[0].(map[string]any)
	if key["kid"] != iss.KeyID() {
		t.Errorf("expected kid %q, got %v", iss.KeyID(), key["kid"])
	}
}

func TestIssuer_Userinfo(t *testing.T) {
	iss := NewIssuer(t, WithUserinfo(map[string]any{"name": "Test User"}))

	resp, body := getJSON(t, iss.Client(), iss.URL()+UserinfoPath, iss.AccessToken("user@example.com"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["sub"] != "user@example.com" || body["name"] != "Test User" {
		t.Errorf("unexpected userinfo %v", body)
	}

	resp, _ = getJSON(t, iss.Client(), iss.URL()+UserinfoPath, "not-a-token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", resp.StatusCode)
	}

	iss.FailUserinfo(1)
	resp, _ = getJSON(t, iss.Client(), iss.URL()+UserinfoPath, iss.AccessToken("user@example.com"))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected injected 500, got %d", resp.StatusCode)
	}
}

func TestIssuer_FailDiscovery(t *testing.T) {
	iss := NewIssuer(t)
	iss.FailDiscovery(2)

	for i := 0; i < 2; i++ {
		resp, _ := getJSON(t, iss.Client(), iss.URL()+DiscoveryPath, "")
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("attempt %d: expected 503, got %d", i, resp.StatusCode)
		}
	}
	resp, _ := getJSON(t, iss.Client(), iss.URL()+DiscoveryPath, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected recovery, got %d", resp.StatusCode)
	}
}

func TestIssuer_MintAndRotate(t *testing.T) {
	iss := NewIssuer(t)
	firstKID := iss.KeyID()

	token := iss.AccessToken("user@example.com", "openid", "profile")
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if parsed.Header["kid"] != firstKID {
		t.Errorf("expected kid %q, got %v", firstKID, parsed.Header["kid"])
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["scope"] != "openid profile" || claims["kc.isAccessToken"] != true {
		t.Errorf("unexpected claims %v", claims)
	}

	if err := iss.RotateKey(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if iss.KeyID() == firstKID {
		t.Error("expected a new kid after rotation")
	}
}

func TestIssuer_SnapshotRestoreReset(t *testing.T) {
	iss := NewIssuer(t)
	ctx := context.Background()
	firstKID := iss.KeyID()

	snap := Snapshot(t, iss)
	if err := iss.RotateKey(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	iss.SetContentType(JWKSPath, "text/plain")

	Restore(t, iss, snap)
	if iss.KeyID() != firstKID {
		t.Errorf("expected restored kid %q, got %q", firstKID, iss.KeyID())
	}
	resp, _ := getJSON(t, iss.Client(), iss.URL()+JWKSPath, "")
	if ct := resp.Header.Get("Content-Type"); ct != "application/jwk-set+json" {
		t.Errorf("expected restored content type, got %q", ct)
	}

	if err := iss.Restore(ctx, "bogus"); err == nil {
		t.Error("expected error for foreign snapshot")
	}

	_ = iss.RotateKey()
	Reset(t, iss)
	if iss.KeyID() != firstKID {
		t.Errorf("expected initial kid after reset, got %q", iss.KeyID())
	}
	if iss.Requests(JWKSPath) != 0 {
		t.Errorf("expected request counters cleared, got %d", iss.Requests(JWKSPath))
	}
}

func TestIssuer_TLS(t *testing.T) {
	iss := NewIssuer(t, WithTLS())
	resp, _ := getJSON(t, iss.Client(), iss.URL()+DiscoveryPath, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 over TLS, got %d", resp.StatusCode)
	}
	if resp.TLS == nil {
		t.Error("expected a TLS connection")
	}

	if _, err := http.Get(iss.URL() + DiscoveryPath); err == nil {
		t.Error("expected default client to reject the test certificate")
	}
}
