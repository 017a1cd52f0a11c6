package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"

	"github.com/kbukum/kcoidc/httpclient"
)

var (
	contentTypeJSONOnly      = []string{"application/json"}
	contentTypeJWKSetAndJSON = []string{"application/jwk-set+json", "application/json"}
)

// Discovery is the subset of the OpenID Provider metadata the engine uses.
type Discovery struct {
	Issuer           string   `json:"issuer"`
	JWKSURI          string   `json:"jwks_uri"`
	UserinfoEndpoint string   `json:"userinfo_endpoint"`
	SigningAlgs      []string `json:"id_token_signing_alg_values_supported"`
}

// keySet is an immutable snapshot of the issuer metadata and keys. It is
// swapped atomically on refresh.
type keySet struct {
	discovery *Discovery
	jwks      *keyfunc.JWKS
	kids      []string
	algs      map[string]struct{}
	// thumbprints hold one digest per published key, sorted.
	thumbprints []string
	fetchedAt   time.Time
}

// jwk lists the members that identify a key's material.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Crv string `json:"crv"`
	N   string `json:"n"`
	E   string `json:"e"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (k jwk) thumbprint() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{k.Kid, k.Kty, k.Alg, k.Crv, k.N, k.E, k.X, k.Y}, "\x00")))
	return hex.EncodeToString(sum[:])
}

// fingerprint identifies the key material and algorithms of the set. A
// rotation that keeps the kid still changes it.
func (ks *keySet) fingerprint() string {
	algs := make([]string, 0, len(ks.algs))
	for a := range ks.algs {
		algs = append(algs, a)
	}
	sort.Strings(algs)
	return strings.Join(ks.thumbprints, ",") + "|" + strings.Join(algs, ",")
}

func (ks *keySet) supportsAlg(alg string) bool {
	_, ok := ks.algs[alg]
	return ok
}

func discoveryURL(iss string) string {
	return strings.TrimSuffix(iss, "/") + "/.well-known/openid-configuration"
}

func fetchDiscovery(ctx context.Context, client *httpclient.Client, iss string) (*Discovery, error) {
	doc := &Discovery{}
	req := httpclient.Request{URL: discoveryURL(iss), ContentTypes: contentTypeJSONOnly}
	if err := client.GetJSON(ctx, req, doc); err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	if doc.JWKSURI == "" {
		return nil, errors.New("discovery: document missing jwks_uri")
	}
	return doc, nil
}

func fetchKeySet(ctx context.Context, client *httpclient.Client, iss string, now time.Time) (*keySet, error) {
	doc, err := fetchDiscovery(ctx, client, iss)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	req := httpclient.Request{URL: doc.JWKSURI, ContentTypes: contentTypeJWKSetAndJSON}
	if err := client.GetJSON(ctx, req, &raw); err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	jwks, err := keyfunc.NewJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}

	var listing struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	kids := make([]string, 0, len(listing.Keys))
	thumbprints := make([]string, 0, len(listing.Keys))
	for _, k := range listing.Keys {
		kids = append(kids, k.Kid)
		thumbprints = append(thumbprints, k.thumbprint())
	}
	slices.Sort(kids)
	slices.Sort(thumbprints)

	algs := make(map[string]struct{}, len(doc.SigningAlgs))
	for _, a := range doc.SigningAlgs {
		algs[a] = struct{}{}
	}

	return &keySet{
		discovery:   doc,
		jwks:        jwks,
		kids:        kids,
		algs:        algs,
		thumbprints: thumbprints,
		fetchedAt:   now,
	}, nil
}
