// Package signing produces the request signatures the service expects on the
// socket handshake.
package signing

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// HMACSigner signs data as base64(version || HMAC-SHA1(key, data)).
type HMACSigner struct {
	key     []byte
	version byte
}

// NewHMACSigner creates a signer from a hex-encoded key and version byte.
func NewHMACSigner(hexKey string, version byte) (*HMACSigner, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("signing key is empty")
	}
	return &HMACSigner{key: key, version: version}, nil
}

// ParseVersion parses a one-byte hex version such as "42".
func ParseVersion(s string) (byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 1 {
		return 0, fmt.Errorf("signature version must be one hex byte, got %q", s)
	}
	return b[0], nil
}

// Sign returns the signature of data.
func (s *HMACSigner) Sign(data []byte) string {
	mac := hmac.New(sha1.New, s.key)
	mac.Write(data)
	out := append([]byte{s.version}, mac.Sum(nil)...)
	return base64.StdEncoding.EncodeToString(out)
}
