package archive

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/evmaki/pothos/internal/apperr"
)

// Authenticator checks upload passwords against one shared bcrypt hash.
type Authenticator struct {
	hash []byte
}

func NewAuthenticator(hash string) *Authenticator {
	return &Authenticator{hash: []byte(hash)}
}

// Check returns apperr.ErrUnauthorized unless password matches the hash.
// An authenticator without a hash rejects everything.
func (a *Authenticator) Check(password string) error {
	if len(a.hash) == 0 || password == "" {
		return apperr.ErrUnauthorized
	}
	err := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return apperr.ErrUnauthorized
	default:
		return fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
}

// HashPassword returns the bcrypt hash to put in the archive config.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
