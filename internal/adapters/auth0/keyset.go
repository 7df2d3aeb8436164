// Package auth0 retrieves the identity provider's published signing keys
// from its well-known JWKS endpoint.
package auth0

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/atvirokodosprendimai/castingapi/internal/core/domain"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultCacheTTL     = 10 * time.Minute
)

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet caches the provider's RSA keys for a bounded TTL and refreshes on
// expiry or on an unknown kid, so rotated keys are picked up without a
// restart.
type KeySet struct {
	url    string
	client *http.Client
	ttl    time.Duration

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySet returns a KeySet reading from https://<tenantDomain>/.well-known/jwks.json.
// Zero or negative timeout/ttl fall back to defaults.
func NewKeySet(tenantDomain string, timeout, ttl time.Duration) *KeySet {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &KeySet{
		url:    "https://" + tenantDomain + "/.well-known/jwks.json",
		client: &http.Client{Timeout: timeout},
		ttl:    ttl,
		keys:   map[string]*rsa.PublicKey{},
	}
}

func (k *KeySet) SigningKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key, ok := k.keys[kid]; ok && time.Since(k.fetchedAt) < k.ttl {
		return key, nil
	}

	if err := k.refreshLocked(ctx); err != nil {
		return nil, err
	}
	if key, ok := k.keys[kid]; ok {
		return key, nil
	}
	return nil, domain.ErrSigningKeyNotFound
}

func (k *KeySet) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return fmt.Errorf("create jwks request: %w", err)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, key := range doc.Keys {
		if key.Kty != "RSA" || key.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(key)
		if err != nil {
			return fmt.Errorf("parse jwks key %s: %w", key.Kid, err)
		}
		keys[key.Kid] = pub
	}

	k.keys = keys
	k.fetchedAt = time.Now()
	return nil
}

func parseRSAKey(key jwksKey) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("exponent must be positive")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
