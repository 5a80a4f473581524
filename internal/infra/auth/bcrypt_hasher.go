// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"tenantauth/config"
	domainerrors "tenantauth/internal/domain/errors"
	"tenantauth/internal/domain/service"
	"tenantauth/internal/errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptMaxInputBytes is the longest input bcrypt accepts.
const bcryptMaxInputBytes = 72

var defaultForbiddenWords = []string{"password", "admin", "qwerty", "letmein", "welcome", "123456"}

// PasswordPolicy is the set of rules ValidatePasswordStrength enforces.
type PasswordPolicy struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumbers   bool
	RequireSpecial   bool
	ForbiddenWords   []string
}

// DefaultPasswordPolicy requires 8 to 128 characters mixing all character classes.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        8,
		MaxLength:        128,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSpecial:   true,
		ForbiddenWords:   defaultForbiddenWords,
	}
}

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost   int
	policy PasswordPolicy
}

func setIfPresent(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

// NewBcryptHasher builds the hasher from the auth and password strength configuration.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	policy := DefaultPasswordPolicy()
	cost := bcrypt.DefaultCost
	if cfg != nil && cfg.Auth != nil && cfg.Auth.BcryptCost > 0 {
		cost = cfg.Auth.BcryptCost
	}
	if cfg != nil && cfg.PasswordStrength != nil {
		ps := cfg.PasswordStrength
		// Unset switches keep the default policy.
		setIfPresent(&policy.RequireUppercase, ps.RequireUppercase)
		setIfPresent(&policy.RequireLowercase, ps.RequireLowercase)
		setIfPresent(&policy.RequireNumbers, ps.RequireNumbers)
		setIfPresent(&policy.RequireSpecial, ps.RequireSpecial)
		if ps.MinLength > 0 {
			policy.MinLength = ps.MinLength
		}
		if ps.MaxLength > 0 {
			policy.MaxLength = ps.MaxLength
		}
	}

	return NewBcryptHasherWithPolicy(cost, policy)
}

// NewBcryptHasherWithCost returns a hasher using the default policy and a custom cost.
func NewBcryptHasherWithCost(cost int) service.PasswordHasher {
	return NewBcryptHasherWithPolicy(cost, DefaultPasswordPolicy())
}

// NewBcryptHasherWithPolicy returns a hasher with explicit cost and policy.
func NewBcryptHasherWithPolicy(cost int, policy PasswordPolicy) service.PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &bcryptHasher{cost: cost, policy: policy}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
func (h *bcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password))

	return err == nil
}

// ValidatePasswordStrength checks the password against the policy and returns the first violation.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	p := h.policy
	length := utf8.RuneCountInString(password)

	switch {
	case length < p.MinLength:
		return domainerrors.ErrPasswordStrength.WithDetails(fmt.Sprintf("password must be at least %d characters long", p.MinLength))
	case p.MaxLength > 0 && length > p.MaxLength:
		return domainerrors.ErrPasswordStrength.WithDetails(fmt.Sprintf("password must be at most %d characters long", p.MaxLength))
	case p.RequireLowercase && !h.hasLowercase(password):
		return domainerrors.ErrPasswordStrength.WithDetails("password must contain at least one lowercase letter")
	case p.RequireUppercase && !h.hasUppercase(password):
		return domainerrors.ErrPasswordStrength.WithDetails("password must contain at least one uppercase letter")
	case p.RequireNumbers && !h.hasNumbers(password):
		return domainerrors.ErrPasswordStrength.WithDetails("password must contain at least one number")
	case p.RequireSpecial && !h.hasSpecialChars(password):
		return domainerrors.ErrPasswordStrength.WithDetails("password must contain at least one special character")
	case h.containsForbiddenWords(password, p.ForbiddenWords):
		return domainerrors.ErrPasswordForbiddenWords.WithDetails("password contains forbidden words")
	}

	return nil
}

func (h *bcryptHasher) hasUppercase(s string) bool {
	return strings.IndexFunc(s, unicode.IsUpper) >= 0
}

func (h *bcryptHasher) hasLowercase(s string) bool {
	return strings.IndexFunc(s, unicode.IsLower) >= 0
}

func (h *bcryptHasher) hasNumbers(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func (h *bcryptHasher) hasSpecialChars(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}) >= 0
}

func (h *bcryptHasher) containsForbiddenWords(s string, words []string) bool {
	lower := strings.ToLower(s)
	for _, word := range words {
		if strings.Contains(lower, word) {
			return true
		}
	}

	return false
}

// bcryptInput pre-hashes passwords longer than bcrypt accepts so long passphrases stay usable.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInputBytes {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))

	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
