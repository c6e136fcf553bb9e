package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/store/drivers/sqlite"
	"github.com/kommerce/tradegate/pkg/cryptox"
	"github.com/kommerce/tradegate/pkg/idx"

	"github.com/stretchr/testify/require"
)

// newTestStore spins up a throwaway sqlite store with migrations applied.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

// createAccount inserts an active account with the given plaintext password.
func createAccount(t *testing.T, s *sqlite.Store, username string, role domain.Role, password string) domain.Account {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	a := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Role:         role,
		PasswordHash: hash,
		Region:       "Asia Pacific",
		Status:       domain.StatusActive,
	}
	require.NoError(t, s.Accounts().Create(context.Background(), a))
	return a
}
