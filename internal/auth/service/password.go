package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/store"
	"github.com/kommerce/tradegate/pkg/cryptox"
)

const minPasswordLength = 8

var (
	ErrWrongPassword = errors.New("current password is incorrect")

	// ErrWeakPassword wraps every complexity policy failure. The message
	// spells out the full policy so the UI can show it verbatim.
	ErrWeakPassword = errors.New("password must be at least 8 characters and contain an uppercase letter, a lowercase letter, a digit, and a symbol")
)

// ValidatePasswordComplexity enforces the platform password policy: minimum
// length 8 with at least one uppercase letter, one lowercase letter, one
// digit, and one symbol.
func ValidatePasswordComplexity(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	if !upper || !lower || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}

type PasswordService struct {
	Store       store.Store
	Credentials *CredentialService
}

// Change rotates an account's password. The current password must verify and
// the new one must pass the complexity policy. Callers are expected to
// invalidate the live session token afterwards.
func (s *PasswordService) Change(ctx context.Context, username string, role domain.Role, currentPw, newPw string) error {
	res, err := s.Credentials.Verify(ctx, username, role, currentPw)
	if err != nil {
		return err
	}
	if !res.Authenticated() {
		return ErrWrongPassword
	}

	if err := ValidatePasswordComplexity(newPw); err != nil {
		return err
	}
	if strings.TrimSpace(newPw) == currentPw {
		return fmt.Errorf("%w (new password must differ from the current one)", ErrWeakPassword)
	}

	hash, err := cryptox.HashPassword(newPw)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.Store.Accounts().UpdatePasswordHash(ctx, username, role, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
