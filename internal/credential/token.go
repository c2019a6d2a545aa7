package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// NewRefreshToken generates an opaque, high-entropy refresh-token body.
func NewRefreshToken(numBytes int) (string, error) {
	return randomBase64URL(numBytes)
}

// NewAuthorizationCode generates an opaque authorization code, truncated to
// fit the 128-char column the code is stored in.
func NewAuthorizationCode() (string, error) {
	raw, err := randomBase64URL(32)
	if err != nil {
		return "", err
	}
	if len(raw) > 128 {
		raw = raw[:128]
	}
	return raw, nil
}

func randomBase64URL(numBytes int) (string, error) {
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex-encoded SHA-256 digest of an opaque token
// string — used for refresh-token lookup, not offline-attack resistance:
// the input is already high-entropy random.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyPKCE reports whether verifier hashes (SHA-256, base64url, no
// padding) to challenge, per RFC 7636 S256. Comparison is constant-time.
func VerifyPKCE(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
