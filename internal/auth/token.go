package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// TokenHasher derives the lookup key stored for a session token: an HMAC
// keyed by the server secret.
type TokenHasher struct {
	key []byte
}

func NewTokenHasher(secret string) TokenHasher {
	sum := sha256.Sum256([]byte(secret))
	return TokenHasher{key: sum[:]}
}

func (h TokenHasher) Hash(raw string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewToken returns a random URL-safe token and its keyed hash.
func (h TokenHasher) NewToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, h.Hash(raw), nil
}
