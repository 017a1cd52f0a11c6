package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/kcoidc/component"
)

// Paths served by Issuer.
const (
	DiscoveryPath = "/.well-known/openid-configuration"
	JWKSPath      = "/jwks"
	UserinfoPath  = "/userinfo"
)

// DefaultAudience is the aud claim of minted tokens.
const DefaultAudience = "kcoidc-test"

// Issuer is an in-process OpenID Connect provider.
type Issuer struct {
	server  *httptest.Server
	useTLS  bool
	initial issuerState

	mu       sync.Mutex
	state    issuerState
	requests map[string]int
}

var _ Fixture = (*Issuer)(nil)

type signingKey struct {
	kid string
	key *rsa.PrivateKey
}

type issuerState struct {
	signer               *signingKey
	published            []*signingKey
	algs                 []string
	failDiscovery        int
	failUserinfo         int
	discoveryContentType string
	jwksContentType      string
	userinfo             map[string]any
}

func (s issuerState) clone() issuerState {
	out := s
	out.published = append([]*signingKey(nil), s.published...)
	out.algs = append([]string(nil), s.algs...)
	out.userinfo = make(map[string]any, len(s.userinfo))
	for k, v := range s.userinfo {
		out.userinfo[k] = v
	}
	return out
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithTLS serves the issuer over HTTPS with a certificate no system root
// trusts, so clients must skip verification.
func WithTLS() IssuerOption {
	return func(i *Issuer) { i.useTLS = true }
}

// WithSigningAlgs sets id_token_signing_alg_values_supported.
func WithSigningAlgs(algs ...string) IssuerOption {
	return func(i *Issuer) { i.initial.algs = algs }
}

// WithUserinfo adds claims to every userinfo response.
func WithUserinfo(claims map[string]any) IssuerOption {
	return func(i *Issuer) {
		for k, v := range claims {
			i.initial.userinfo[k] = v
		}
	}
}

// NewIssuer creates and starts an Issuer that is stopped when the test ends.
func NewIssuer(t testing.TB, opts ...IssuerOption) *Issuer {
	t.Helper()

	key, err := newSigningKey()
	if err != nil {
		t.Fatalf("testutil: generate signing key: %v", err)
	}

	i := &Issuer{
		initial: issuerState{
			signer:               key,
			published:            []*signingKey{key},
			algs:                 []string{"RS256"},
			discoveryContentType: "application/json",
			jwksContentType:      "application/jwk-set+json",
			userinfo:             map[string]any{},
		},
		requests: make(map[string]int),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.state = i.initial.clone()
	i.server = httptest.NewUnstartedServer(i.handler())

	Start(t, i)
	return i
}

func newSigningKey() (*signingKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &signingKey{kid: uuid.NewString(), key: key}, nil
}

// Name implements component.Component.
func (i *Issuer) Name() string { return "issuer" }

// Start implements component.Component.
func (i *Issuer) Start(context.Context) error {
	if i.useTLS {
		i.server.StartTLS()
	} else {
		i.server.Start()
	}
	return nil
}

// Stop implements component.Component.
func (i *Issuer) Stop(context.Context) error {
	i.server.Close()
	return nil
}

// Health implements component.Component.
func (i *Issuer) Health(context.Context) component.Health {
	return component.Health{Name: i.Name(), Status: component.StatusHealthy}
}

// Reset restores the initial key and clears injected failures.
func (i *Issuer) Reset(context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = i.initial.clone()
	i.requests = make(map[string]int)
	return nil
}

// Snapshot captures keys, failures and content types.
func (i *Issuer) Snapshot(context.Context) (any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state.clone(), nil
}

// Restore returns to a state captured by Snapshot.
func (i *Issuer) Restore(_ context.Context, snapshot any) error {
	s, ok := snapshot.(issuerState)
	if !ok {
		return fmt.Errorf("testutil: unexpected snapshot type %T", snapshot)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = s.clone()
	return nil
}

// URL returns the issuer identifier.
func (i *Issuer) URL() string { return i.server.URL }

// Client returns an HTTP client that trusts the issuer certificate.
func (i *Issuer) Client() *http.Client { return i.server.Client() }

// KeyID returns the kid of the current signing key.
func (i *Issuer) KeyID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state.signer.kid
}

// RotateKey replaces the published key set with a single new key and signs
// subsequent tokens with it.
func (i *Issuer) RotateKey() error {
	key, err := newSigningKey()
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state.signer = key
	i.state.published = []*signingKey{key}
	return nil
}

// ReplaceKeyMaterial signs with a new RSA key published under the current
// kid.
func (i *Issuer) ReplaceKeyMaterial() error {
	fresh, err := newSigningKey()
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	fresh.kid = i.state.signer.kid
	i.state.signer = fresh
	i.state.published = []*signingKey{fresh}
	return nil
}

// FailDiscovery makes the next n discovery requests answer 503.
func (i *Issuer) FailDiscovery(n int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state.failDiscovery = n
}

// FailUserinfo makes the next n userinfo requests answer 500.
func (i *Issuer) FailUserinfo(n int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state.failUserinfo = n
}

// SetContentType overrides the Content-Type of the discovery or JWKS
// response.
func (i *Issuer) SetContentType(path, contentType string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch path {
	case DiscoveryPath:
		i.state.discoveryContentType = contentType
	case JWKSPath:
		i.state.jwksContentType = contentType
	}
}

// Requests returns how many requests path has served.
func (i *Issuer) Requests(path string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.requests[path]
}

// Claims returns a valid claim set for subject.
func (i *Issuer) Claims(subject string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": i.URL(),
		"sub": subject,
		"aud": DefaultAudience,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"nbf": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

// AccessToken mints an access token for subject carrying the Kopano
// identity claim and scopes.
func (i *Issuer) AccessToken(subject string, scopes ...string) string {
	claims := i.Claims(subject)
	claims["kc.isAccessToken"] = true
	claims["kc.identity"] = map[string]any{"kc.i.id": subject}
	if len(scopes) > 0 {
		claims["scope"] = strings.Join(scopes, " ")
	}
	return i.Mint(claims)
}

// Mint signs claims with the current key using RS256.
func (i *Issuer) Mint(claims jwt.MapClaims) string {
	i.mu.Lock()
	signer := i.state.signer
	i.mu.Unlock()
	return i.MintWithKey(jwt.SigningMethodRS256, signer.kid, signer.key, claims)
}

// MintWithKey signs claims with an arbitrary method, kid and key. An empty
// kid omits the header.
func (i *Issuer) MintWithKey(method jwt.SigningMethod, kid string, key any, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		panic(fmt.Sprintf("testutil: sign token: %v", err))
	}
	return signed
}

func (i *Issuer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(DiscoveryPath, i.serveDiscovery)
	mux.HandleFunc(JWKSPath, i.serveJWKS)
	mux.HandleFunc(UserinfoPath, i.serveUserinfo)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i.mu.Lock()
		i.requests[r.URL.Path]++
		i.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func (i *Issuer) serveDiscovery(w http.ResponseWriter, _ *http.Request) {
	i.mu.Lock()
	fail := i.state.failDiscovery > 0
	if fail {
		i.state.failDiscovery--
	}
	algs := append([]string(nil), i.state.algs...)
	contentType := i.state.discoveryContentType
	i.mu.Unlock()

	if fail {
		http.Error(w, "discovery unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, contentType, http.StatusOK, map[string]any{
		"issuer":                                i.URL(),
		"jwks_uri":                              i.URL() + JWKSPath,
		"userinfo_endpoint":                     i.URL() + UserinfoPath,
		"id_token_signing_alg_values_supported": algs,
	})
}

func (i *Issuer) serveJWKS(w http.ResponseWriter, _ *http.Request) {
	i.mu.Lock()
	published := append([]*signingKey(nil), i.state.published...)
	contentType := i.state.jwksContentType
	i.mu.Unlock()

	keys := make([]map[string]string, 0, len(published))
	for _, k := range published {
		keys = append(keys, map[string]string{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": k.kid,
			"n":   base64.RawURLEncoding.EncodeToString(k.key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.key.E)).Bytes()),
		})
	}
	writeJSON(w, contentType, http.StatusOK, map[string]any{"keys": keys})
}

func (i *Issuer) serveUserinfo(w http.ResponseWriter, r *http.Request) {
	i.mu.Lock()
	fail := i.state.failUserinfo > 0
	if fail {
		i.state.failUserinfo--
	}
	published := append([]*signingKey(nil), i.state.published...)
	extra := make(map[string]any, len(i.state.userinfo))
	for k, v := range i.state.userinfo {
		extra[k] = v
	}
	i.mu.Unlock()

	if fail {
		http.Error(w, "userinfo unavailable", http.StatusInternalServerError)
		return
	}

	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		writeJSON(w, "application/json", http.StatusUnauthorized, map[string]string{"error": "invalid_request"})
		return
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		for _, k := range published {
			if k.kid == kid {
				return &k.key.PublicKey, nil
			}
		}
		return nil, fmt.Errorf("unknown kid %q", kid)
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		writeJSON(w, "application/json", http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}

	body := map[string]any{"sub": claims["sub"]}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, "application/json", http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, contentType string, status int, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
