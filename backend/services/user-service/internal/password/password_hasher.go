package password

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// ErrTooShort rejects passwords under the configured minimum length.
var ErrTooShort = errors.New("password: too short")

// Hasher defines password hashing contract.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost      int
	minLength int
}

// NewBcryptHasher returns a bcrypt-backed password hasher. Out-of-range costs fall back to
// bcrypt.DefaultCost.
func NewBcryptHasher(cost, minLength int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost, minLength: minLength}
}

// Hash converts plain password into hash.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if n := utf8.RuneCountInString(password); n == 0 || n < h.minLength {
		return "", fmt.Errorf("%w: need at least %d characters", ErrTooShort, h.minLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare checks if provided password matches stored hash.
func (h *BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
