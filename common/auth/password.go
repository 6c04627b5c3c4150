package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// PasswordChecker verifies the shared password. A bcrypt hash takes
// priority over the plain value when both are configured.
type PasswordChecker struct {
	plain []byte
	hash  []byte
}

// NewPasswordChecker builds a checker from the configured secrets
func NewPasswordChecker(plain, hash string) *PasswordChecker {
	return &PasswordChecker{plain: []byte(plain), hash: []byte(hash)}
}

// Configured reports whether any shared secret is set
func (p *PasswordChecker) Configured() bool {
	return len(p.plain) > 0 || len(p.hash) > 0
}

// Check compares candidate against the shared secret
func (p *PasswordChecker) Check(candidate string) bool {
	if candidate == "" {
		return false
	}
	if len(p.hash) > 0 {
		return bcrypt.CompareHashAndPassword(p.hash, []byte(candidate)) == nil
	}
	if len(p.plain) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(p.plain, []byte(candidate)) == 1
}
