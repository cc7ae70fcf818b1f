// Package auth hashes and verifies the ingest API key.
//
// The server never stores the key itself: configuration carries an
// Argon2id-encoded hash (salt$hash, base64), and requests present the raw
// key as a bearer token.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (RFC 9106 second recommended option; the ingest path
// verifies on every request, so the 64 MB profile would be too heavy).
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 / 3
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashKey hashes an API key with Argon2id and a fresh random salt.
func HashKey(key string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(key), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("%s$%s",
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	), nil
}

// VerifyKey checks a presented key against an encoded hash in constant time.
func VerifyKey(key, encoded string) (bool, error) {
	saltPart, hashPart, ok := strings.Cut(encoded, "$")
	if !ok {
		return false, fmt.Errorf("auth: invalid hash format")
	}

	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return false, fmt.Errorf("auth: decode salt: %w", err)
	}
	expected, err := base64.StdEncoding.DecodeString(hashPart)
	if err != nil {
		return false, fmt.Errorf("auth: decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(key), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(expected, computed) == 1, nil
}

// DummyVerify burns the same Argon2id cost as a real verification. Called on
// requests with no credential so response timing does not reveal whether
// ingest is configured.
func DummyVerify() {
	argon2.IDKey([]byte("dummy"), make([]byte, saltLen), argonTime, argonMemory, argonThreads, argonKeyLen)
}
