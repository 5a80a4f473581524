// Package service declares the ports the use cases depend on. Implementations live under infra.
package service

// PasswordHasher owns password storage and the password policy applied at registration.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Check reports whether password matches hash. A malformed hash never matches.
	Check(password, hash string) bool

	// ValidatePasswordStrength returns a weak_password AppError describing the first unmet rule.
	ValidatePasswordStrength(password string) error
}
