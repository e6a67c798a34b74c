// Package trust derives the per-cell trust flag that gates rendering of
// previously computed outputs. Trust is a safety gate: any verification
// problem fails closed to "untrusted".
package trust

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Notary signs and verifies content on behalf of the local
// installation. Both operations are opaque to the model.
type Notary interface {
	Sign(content []byte) string
	Verify(content []byte, tag string) bool
}

const hmacScheme = "hmac-sha256"

// HMACNotary implements Notary with HMAC-SHA256 over a local secret.
type HMACNotary struct {
	secret []byte
}

// NewHMACNotary creates a notary over the given secret.
func NewHMACNotary(secret []byte) *HMACNotary {
	return &HMACNotary{secret: secret}
}

// Sign returns a tag of the form "hmac-sha256:<hex>".
func (n *HMACNotary) Sign(content []byte) string {
	mac := hmac.New(sha256.New, n.secret)
	mac.Write(content)
	return hmacScheme + ":" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a tag against content. Malformed tags and unknown
// schemes verify as false, never as an error.
func (n *HMACNotary) Verify(content []byte, tag string) bool {
	scheme, encoded, ok := strings.Cut(tag, ":")
	if !ok || scheme != hmacScheme {
		return false
	}
	want, err := hex.DecodeString(encoded)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, n.secret)
	mac.Write(content)
	return hmac.Equal(mac.Sum(nil), want)
}

// LoadOrCreateSecret reads the signing secret from path, generating a
// fresh 32-byte secret (mode 0600) on first use.
func LoadOrCreateSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) > 0 {
		return data, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("trust: read secret: %w", err)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("trust: generate secret: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("trust: mkdir for secret: %w", err)
	}
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, fmt.Errorf("trust: write secret: %w", err)
	}
	return secret, nil
}
