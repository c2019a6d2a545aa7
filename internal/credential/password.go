// Package credential implements the password, client-secret, token, and
// PKCE primitives the engine signs and verifies credentials with.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashPassword hashes a plaintext password with Argon2id.
func HashPassword(password string) (string, error) {
	return argon2idHash(password)
}

// VerifyPassword reports whether password matches the stored Argon2id hash.
func VerifyPassword(password, encodedHash string) (bool, error) {
	return argon2idVerify(password, encodedHash)
}

// HashClientSecret hashes an application's client secret with Argon2id.
//
// Distinct name from HashPassword even though the algorithm is identical —
// call sites should read by intent, not by implementation.
func HashClientSecret(secret string) (string, error) {
	return argon2idHash(secret)
}

// VerifyClientSecret reports whether secret matches the stored hash.
func VerifyClientSecret(secret, encodedHash string) (bool, error) {
	return argon2idVerify(secret, encodedHash)
}

func argon2idHash(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	encoded := fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

func argon2idVerify(plaintext, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("malformed argon2id hash")
	}

	var memory uint32
	var time_ uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time_, &threads); err != nil {
		return false, fmt.Errorf("parse argon2id params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	got := argon2.IDKey([]byte(plaintext), salt, time_, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
