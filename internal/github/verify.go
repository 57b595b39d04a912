package github

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// GitHub signs every extension request with an ECDSA P-256 key; the
// signature and key identifier arrive in request headers and the public
// key set is published under /meta.
const (
	defaultKeysURL = "https://api.github.com/meta/public_keys/copilot_api"

	// Header names carrying the signature material.
	HeaderSignature     = "Github-Public-Key-Signature"
	HeaderKeyIdentifier = "Github-Public-Key-Identifier"
)

// Verification errors.
var (
	ErrInvalidSignature = errors.New("request signature is invalid")
	ErrUnknownKey       = errors.New("signing key not in published key set")
)

// Verifier checks request body signatures against GitHub's published
// key set, caching keys between requests.
type Verifier struct {
	keysURL  string
	http     *http.Client
	cacheFor time.Duration

	mu        sync.RWMutex
	keys      map[string]*ecdsa.PublicKey
	fetchedAt time.Time
}

// NewVerifier creates a verifier. An empty keysURL selects the hosted
// Copilot key set.
func NewVerifier(keysURL string) *Verifier {
	if keysURL == "" {
		keysURL = defaultKeysURL
	}
	return &Verifier{
		keysURL:  keysURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		cacheFor: time.Hour,
		keys:     make(map[string]*ecdsa.PublicKey),
	}
}

// Verify checks that sigB64 is a valid signature over body by the key
// named keyID. Returns ErrInvalidSignature or ErrUnknownKey on failure.
func (v *Verifier) Verify(ctx context.Context, body []byte, sigB64, keyID string) error {
	if sigB64 == "" || keyID == "" {
		return ErrInvalidSignature
	}

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("%w: bad signature encoding", ErrInvalidSignature)
	}

	key, err := v.key(ctx, keyID)
	if err != nil {
		return err
	}

	digest := sha256.Sum256(body)
	if !ecdsa.VerifyASN1(key, digest[:], sig) {
		return ErrInvalidSignature
	}
	return nil
}

// key returns the public key for an identifier, refreshing the cached
// key set when it is stale or the identifier is new (key rotation).
func (v *Verifier) key(ctx context.Context, keyID string) (*ecdsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[keyID]
	fresh := time.Since(v.fetchedAt) < v.cacheFor
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := v.refresh(ctx); err != nil {
		// A stale cached key is still better than refusing outright
		// when the key service is briefly unreachable.
		if ok {
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[keyID]; ok {
		return key, nil
	}
	return nil, ErrUnknownKey
}

func (v *Verifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keysURL, nil)
	if err != nil {
		return err
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch public keys: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch public keys: status %d", resp.StatusCode)
	}

	var keySet struct {
		PublicKeys []struct {
			KeyIdentifier string `json:"key_identifier"`
			Key           string `json:"key"`
			IsCurrent     bool   `json:"is_current"`
		} `json:"public_keys"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&keySet); err != nil {
		return fmt.Errorf("decode public keys: %w", err)
	}

	keys := make(map[string]*ecdsa.PublicKey, len(keySet.PublicKeys))
	for _, pk := range keySet.PublicKeys {
		parsed, err := parseECDSAPublicKey(pk.Key)
		if err != nil {
			return fmt.Errorf("parse key %s: %w", pk.KeyIdentifier, err)
		}
		keys[pk.KeyIdentifier] = parsed
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()
	return nil
}

func parseECDSAPublicKey(pemText string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New("no PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	key, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", pub)
	}
	return key, nil
}
