package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/store"
	"github.com/kommerce/tradegate/pkg/cryptox"
)

// CredentialStatus is the outcome of a first-factor check. The HTTP layer
// collapses every non-authenticated status into one generic message so a
// caller cannot probe which usernames exist.
type CredentialStatus int

const (
	CredentialAuthenticated CredentialStatus = iota
	CredentialAccountNotFound
	CredentialAccountInactive
	CredentialBadPassword
)

// CredentialResult carries the outcome plus, on success only, the account.
type CredentialResult struct {
	Status  CredentialStatus
	Account domain.Account
}

// Authenticated reports whether the first factor passed.
func (r CredentialResult) Authenticated() bool {
	return r.Status == CredentialAuthenticated
}

type CredentialService struct {
	Store store.Store
}

// Verify checks a username/role/password triple. A missing account, a
// deactivated account, and a wrong password are all ordinary outcomes, not
// errors; the error return is reserved for infrastructure faults (store
// unreachable, corrupt hash).
//
// The inactive check runs before the password check: a deactivated account
// stays locked out even with valid credentials, and we don't burn an argon2
// verification on it.
func (s *CredentialService) Verify(ctx context.Context, username string, role domain.Role, password string) (CredentialResult, error) {
	acct, err := s.Store.Accounts().GetByUsernameRole(ctx, username, role)
	if errors.Is(err, store.ErrNotFound) {
		return CredentialResult{Status: CredentialAccountNotFound}, nil
	}
	if err != nil {
		return CredentialResult{}, fmt.Errorf("failed to load account: %w", err)
	}

	if acct.Status != domain.StatusActive {
		return CredentialResult{Status: CredentialAccountInactive}, nil
	}

	if err := cryptox.VerifyPassword(password, acct.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return CredentialResult{Status: CredentialBadPassword}, nil
		}
		return CredentialResult{}, fmt.Errorf("failed to verify password: %w", err)
	}

	return CredentialResult{Status: CredentialAuthenticated, Account: acct}, nil
}
