package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateOTP returns a 6-digit numeric code from crypto/rand
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// GenerateRetrievalToken returns a base64url bearer token built from 32 bytes
// of cryptographically secure randomness, plus the SHA-256 hex digest that is
// the only form ever persisted.
func GenerateRetrievalToken() (token, tokenHash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	return token, HashSHA256(token), nil
}

// HashSHA256 returns the lowercase hex SHA-256 digest of the input
func HashSHA256(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// HashSHA256Ptr hashes a value and returns a pointer, nil-safe for empty input
func HashSHA256Ptr(value string) *string {
	if value == "" {
		return nil
	}
	h := HashSHA256(value)
	return &h
}

// ConstantTimeEqual compares two strings without leaking a timing oracle
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
