package engine

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/kcoidc/errors"
	"github.com/kbukum/kcoidc/testutil"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debug(msg string, _ ...map[string]interface{}) { l.add(msg) }
func (l *recordingLogger) Warn(msg string, _ ...map[string]interface{})  { l.add(msg) }
func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.add(fmt.Sprintf(format, args...))
}

func (l *recordingLogger) add(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func (l *recordingLogger) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

func otherKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestValidateToken_AccessToken(t *testing.T) {
	iss := testutil.NewIssuer(t)
	p := newTestProvider(t, iss, Config{})
	startReady(t, p)

	tok, err := p.ValidateToken(context.Background(), iss.AccessToken("alice", "profile", "kopano/gc"))
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if tok.Subject != "alice" {
		t.Errorf("expected subject alice, got %q", tok.Subject)
	}
	if tok.Type != TokenTypeAccess {
		t.Errorf("expected access token, got %v", tok.Type)
	}
	if tok.Standard.Issuer != iss.URL() {
		t.Errorf("unexpected iss %q", tok.Standard.Issuer)
	}
	if len(tok.Standard.Audience) != 1 || tok.Standard.Audience[0] != testutil.DefaultAudience {
		t.Errorf("unexpected aud %v", tok.Standard.Audience)
	}
	if tok.Standard.ExpiresAt == 0 || tok.Standard.ID == "" {
		t.Errorf("expected exp and jti, got %+v", tok.Standard)
	}
	for _, name := range []string{"sub", "exp", "iat", "nbf", "iss", "aud", "jti"} {
		if _, ok := tok.Extra[name]; ok {
			t.Errorf("standard claim %q left in extra claims", name)
		}
	}
	if _, ok := tok.Extra[IdentityClaim]; !ok {
		t.Error("expected identity claim in extra claims")
	}
	if got := Scopes(tok.Extra); len(got) != 2 || got[1] != "kopano/gc" {
		t.Errorf("unexpected scopes %v", got)
	}
}

func TestValidateToken_SubjectSelection(t *testing.T) {
	iss := testutil.NewIssuer(t)
	p := newTestProvider(t, iss, Config{})
	startReady(t, p)
	ctx := context.Background()

	plain, err := p.ValidateToken(ctx, iss.Mint(iss.Claims("bob")))
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if plain.Subject != "bob" || plain.Type != TokenTypeStandard {
		t.Errorf("expected bob standard token, got %q %v", plain.Subject, plain.Type)
	}

	claims := iss.Claims("pairwise-123")
	claims[IdentityClaim] = map[string]any{IdentifiedUserIDClaim: "alice"}
	claims[IsRefreshTokenClaim] = true
	refresh, err := p.ValidateToken(ctx, iss.Mint(claims))
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if refresh.Subject != "alice" {
		t.Errorf("expected identity subject alice, got %q", refresh.Subject)
	}
	if refresh.Standard.Subject != "pairwise-123" {
		t.Errorf("expected sub claim preserved, got %q", refresh.Standard.Subject)
	}
	if refresh.Type != TokenTypeRefresh {
		t.Errorf("expected refresh token, got %v", refresh.Type)
	}
}

func TestValidateToken_Errors(t *testing.T) {
	iss := testutil.NewIssuer(t)
	p := newTestProvider(t, iss, Config{})
	startReady(t, p)

	wrongIssuer := iss.Claims("alice")
	wrongIssuer["iss"] = "https://other.example"

	a := strings.Split(iss.AccessToken("alice"), ".")
	b := strings.Split(iss.AccessToken("mallory"), ".")
	spliced := a[0] + "." + a[1] + "." + b[2]

	tests := []struct {
		name  string
		token string
		want  apperrors.ErrorCode
	}{
		{"empty", "", apperrors.ErrCodeTokenMalformed},
		{"garbage", "not-a-token", apperrors.ErrCodeTokenMalformed},
		{"bad segments", "a.b.c", apperrors.ErrCodeTokenMalformed},
		{"spliced signature", spliced, apperrors.ErrCodeTokenInvalidSignature},
		{"hmac alg", iss.MintWithKey(jwt.SigningMethodHS256, iss.KeyID(), []byte("secret"), iss.Claims("alice")), apperrors.ErrCodeTokenUnexpectedSigningMethod},
		{"missing kid", iss.MintWithKey(jwt.SigningMethodRS256, "", otherKey(t), iss.Claims("alice")), apperrors.ErrCodeTokenUnknownKey},
		{"wrong key same kid", iss.MintWithKey(jwt.SigningMethodRS256, iss.KeyID(), otherKey(t), iss.Claims("alice")), apperrors.ErrCodeTokenInvalidSignature},
		{"wrong issuer", iss.Mint(wrongIssuer), apperrors.ErrCodeTokenValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := p.ValidateToken(context.Background(), tt.token)
			if tok != nil {
				t.Errorf("expected no token on failure, got %+v", tok)
			}
			if got := apperrors.CodeOf(err); got != tt.want {
				t.Errorf("expected %v, got %v (%v)", tt.want, got, err)
			}
		})
	}
}

func TestValidateToken_TimeClaims(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		leeway time.Duration
		want   apperrors.ErrorCode
	}{
		{"valid", 0, 0, apperrors.ErrCodeNone},
		{"expired", 2 * time.Hour, 0, apperrors.ErrCodeTokenExpiredOrNotValidYet},
		{"not yet valid", -5 * time.Minute, 0, apperrors.ErrCodeTokenExpiredOrNotValidYet},
		{"not yet valid within leeway", -5 * time.Minute, 10 * time.Minute, apperrors.ErrCodeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iss := testutil.NewIssuer(t)
			clock := testutil.NewFakeClock(time.Now().Add(tt.offset))
			p := newTestProvider(t, iss, Config{Now: clock.Now, Leeway: tt.leeway, RefreshInterval: -1})
			startReady(t, p)

			_, err := p.ValidateToken(context.Background(), iss.AccessToken("alice"))
			if got := apperrors.CodeOf(err); got != tt.want {
				t.Errorf("expected %v, got %v (%v)", tt.want, got, err)
			}
		})
	}
}

func TestValidateToken_NotInitialized(t *testing.T) {
	iss := testutil.NewIssuer(t)
	p := newTestProvider(t, iss, Config{})

	_, err := p.ValidateToken(context.Background(), iss.AccessToken("alice"))
	if apperrors.CodeOf(err) != apperrors.ErrCodeNotInitialized {
		t.Errorf("expected NotInitialized, got %v", err)
	}
}

func TestValidateToken_UnsupportedAlgorithm(t *testing.T) {
	iss := testutil.NewIssuer(t, testutil.WithSigningAlgs("ES256"))
	p := newTestProvider(t, iss, Config{})
	startReady(t, p)

	_, err := p.ValidateToken(context.Background(), iss.AccessToken("alice"))
	if apperrors.CodeOf(err) != apperrors.ErrCodeTokenUnexpectedSigningMethod {
		t.Errorf("expected UnexpectedSigningMethod, got %v", err)
	}
}

func TestValidateToken_UnknownKidRefreshes(t *testing.T) {
	iss := testutil.NewIssuer(t)
	var refreshes atomic.Int32
	p := newTestProvider(t, iss, Config{RefreshInterval: -1, OnRefresh: func() { refreshes.Add(1) }})
	startReady(t, p)

	if err := iss.RotateKey(); err != nil {
		t.Fatalf("RotateKey: %v", err)
	}
	tok, err := p.ValidateToken(context.Background(), iss.AccessToken("alice"))
	if err != nil {
		t.Fatalf("expected rotated key to be fetched on demand: %v", err)
	}
	if tok.Subject != "alice" {
		t.Errorf("unexpected subject %q", tok.Subject)
	}
	if got := refreshes.Load(); got != 2 {
		t.Errorf("expected OnRefresh twice, got %d", got)
	}
}

func TestValidateToken_UnknownKidRateLimited(t *testing.T) {
	iss := testutil.NewIssuer(t)
	clock := testutil.NewFakeClock(time.Now())
	p := newTestProvider(t, iss, Config{Now: clock.Now, RefreshInterval: -1})
	startReady(t, p)

	ctx := context.Background()
	forged := iss.MintWithKey(jwt.SigningMethodRS256, "unknown-kid", otherKey(t), iss.Claims("alice"))

	for i := 0; i < 3; i++ {
		_, err := p.ValidateToken(ctx, forged)
		if apperrors.CodeOf(err) != apperrors.ErrCodeTokenUnknownKey {
			t.Fatalf("attempt %d: expected UnknownKey, got %v", i, err)
		}
	}
	if got := iss.Requests(testutil.JWKSPath); got != 2 {
		t.Errorf("expected one extra key set fetch, got %d total", got)
	}

	clock.Advance(DefaultRefreshRateLimit)
	_, _ = p.ValidateToken(ctx, forged)
	if got := iss.Requests(testutil.JWKSPath); got != 3 {
		t.Errorf("expected refresh after rate limit interval, got %d total", got)
	}
}

func TestValidateTokenRequireScope(t *testing.T) {
	iss := testutil.NewIssuer(t)
	p := newTestProvider(t, iss, Config{})
	startReady(t, p)
	ctx := context.Background()
	token := iss.AccessToken("alice", "profile", "kopano/gc")

	tok, err := p.ValidateTokenRequireScope(ctx, token, "kopano/gc")
	if err != nil || tok == nil {
		t.Fatalf("expected granted scope to pass, got %v", err)
	}

	tok, err = p.ValidateTokenRequireScope(ctx, token, "email")
	if apperrors.CodeOf(err) != apperrors.ErrCodeMissingRequiredScope {
		t.Errorf("expected MissingRequiredScope, got %v", err)
	}
	if tok != nil {
		t.Error("expected no token on missing scope")
	}
}

func TestValidateToken_DebugTrace(t *testing.T) {
	iss := testutil.NewIssuer(t)
	log := &recordingLogger{}
	p := newTestProvider(t, iss, Config{Logger: log, Debug: true})
	startReady(t, p)

	if _, err := p.ValidateToken(context.Background(), iss.AccessToken("alice")); err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if !log.contains("subject=alice") {
		t.Errorf("expected debug trace, got %v", log.lines)
	}
	_, _ = p.ValidateToken(context.Background(), "")
	if !log.contains("token validation failed") {
		t.Errorf("expected failure trace, got %v", log.lines)
	}
}
