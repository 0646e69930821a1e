package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	saltBytes        = 32
	keyBytes         = 32
)

// HashPassword derives a PBKDF2-SHA256 hash of the password under a fresh
// random salt. Both return values are base64-encoded.
func HashPassword(password string) (hash string, salt string, err error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt = base64.StdEncoding.EncodeToString(raw)
	return hashWithSalt(password, salt), salt, nil
}

// VerifyPassword checks a candidate password against the stored hash+salt
// pair in constant time.
func VerifyPassword(password, storedHash, salt string) bool {
	computed := hashWithSalt(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

func hashWithSalt(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, keyBytes, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}
