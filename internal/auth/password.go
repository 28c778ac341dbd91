package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// A stored hash is 1 byte of version, 20 bytes of salt, then 32 bytes of
// scrypt output, base64 encoded without padding.
const (
	hashVersion1 = 1
	saltSize     = 20
	keySize      = 32
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	hashLen      = 1 + saltSize + keySize
)

// ErrEmptyPassword is returned when hashing an empty password
var ErrEmptyPassword = errors.New("password is empty")

// HashPassword salts and hashes a password for storage
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to create salt: %w", err)
	}

	dk, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	out := make([]byte, 0, hashLen)
	out = append(out, hashVersion1)
	out = append(out, salt...)
	out = append(out, dk...)
	return base64.RawStdEncoding.EncodeToString(out), nil
}

// VerifyPassword reports whether password matches a hash produced by
// HashPassword. Malformed hashes never match.
func VerifyPassword(password, encoded string) bool {
	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != hashLen || raw[0] != hashVersion1 {
		return false
	}

	salt := raw[1 : 1+saltSize]
	dk, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(dk, raw[1+saltSize:]) == 1
}
