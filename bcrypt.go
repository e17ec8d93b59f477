package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when no cost is configured
const DefaultBcryptCost = 12

// PasswordHasher hashes and verifies passwords with bcrypt
type PasswordHasher struct {
	cost   int
	logger Logger
}

// NewPasswordHasher returns a hasher clamped to the bcrypt cost range.
// A zero cost uses the build default.
func NewPasswordHasher(cost int, logger Logger) *PasswordHasher {
	if cost == 0 {
		cost = passwordHashCost()
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{
		cost:   cost,
		logger: normalizeLogger(logger),
	}
}

// Cost returns the bcrypt cost factor
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// HashPassword will generate a password hash
func (h *PasswordHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *PasswordHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// Matches reports whether password hashes to hash. Errors other than a
// mismatch, e.g. a corrupt stored hash, are logged and count as no match.
func (h *PasswordHasher) Matches(password, hash string) bool {
	err := ComparePasswordAndHash(password, hash)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrMismatchedHashAndPassword) {
		h.logger.Warn("password comparison failed", "error", err)
	}
	return false
}

// HashPassword will generate a password hash with the default cost
func HashPassword(password string) (string, error) {
	return NewPasswordHasher(0, nil).HashPassword(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
