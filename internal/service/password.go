package service

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password schemes accepted by NewPasswordHasher.
const (
	PasswordSchemePlain  = "plain"
	PasswordSchemeBcrypt = "bcrypt"
)

// PasswordHasher turns a password into its stored form and checks candidates
// against it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(stored, candidate string) bool
}

// NewPasswordHasher returns the hasher for scheme. Empty means plain.
func NewPasswordHasher(scheme string) (PasswordHasher, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", PasswordSchemePlain:
		return plainHasher{}, nil
	case PasswordSchemeBcrypt:
		return bcryptHasher{cost: bcrypt.DefaultCost}, nil
	}
	return nil, fmt.Errorf("unknown password scheme %q", scheme)
}

// plainHasher stores passwords verbatim, matching documents written by the
// browser client.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return password, nil
}

// Compare never matches an account without a password (external sign-ins).
func (plainHasher) Compare(stored, candidate string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// bcryptHasher hashes new passwords. Stored values that are not bcrypt hashes
// are legacy plaintext and are compared as such until the next password change.
type bcryptHasher struct {
	cost int
}

func (h bcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h bcryptHasher) Compare(stored, candidate string) bool {
	if !isBcryptHash(stored) {
		return plainHasher{}.Compare(stored, candidate)
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
}

func isBcryptHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
