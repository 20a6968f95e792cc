package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// ErrPasswordTooShort is returned by CheckPasswordPolicy.
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// PasswordHasher hashes and verifies credentials at a fixed bcrypt cost.
// dummy is compared against when the account does not exist so unknown and
// known emails take the same time to reject.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher clamps cost into bcrypt's accepted range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("helpdesk-placeholder"), cost)
	return &PasswordHasher{cost: cost, dummy: dummy}
}

// CheckPasswordPolicy validates a new password.
func CheckPasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Hash returns the bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare verifies plain against hashed. An empty hash burns the same work
// as a real comparison and then reports a mismatch.
func (h *PasswordHasher) Compare(hashed, plain string) error {
	if hashed == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
		return ErrPasswordMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
