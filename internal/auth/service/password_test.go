package service_test

import (
	"context"
	"testing"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/service"

	"github.com/stretchr/testify/require"
)

func TestValidatePasswordComplexity(t *testing.T) {
	good := []string{"Sup3r$ecret", "Aa1!aaaa", "N0t-So-Weak"}
	for _, pw := range good {
		require.NoError(t, service.ValidatePasswordComplexity(pw), pw)
	}

	bad := []string{
		"",
		"Aa1!a",          // too short
		"alllower1!",     // no uppercase
		"ALLUPPER1!",     // no lowercase
		"NoDigits!!",     // no digit
		"NoSymbols11Aa",  // no symbol
	}
	for _, pw := range bad {
		require.ErrorIs(t, service.ValidatePasswordComplexity(pw), service.ErrWeakPassword, pw)
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Old$ecret1")

	creds := &service.CredentialService{Store: s}
	pwd := &service.PasswordService{Store: s, Credentials: creds}
	ctx := context.Background()

	require.NoError(t, pwd.Change(ctx, "acme", domain.RoleExporter, "Old$ecret1", "New$ecret2"))

	// Old password no longer works, new one does.
	res, err := creds.Verify(ctx, "acme", domain.RoleExporter, "Old$ecret1")
	require.NoError(t, err)
	require.Equal(t, service.CredentialBadPassword, res.Status)

	res, err = creds.Verify(ctx, "acme", domain.RoleExporter, "New$ecret2")
	require.NoError(t, err)
	require.True(t, res.Authenticated())
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Old$ecret1")

	pwd := &service.PasswordService{Store: s, Credentials: &service.CredentialService{Store: s}}

	err := pwd.Change(context.Background(), "acme", domain.RoleExporter, "not-it", "New$ecret2")
	require.ErrorIs(t, err, service.ErrWrongPassword)
}

func TestChangePasswordRejectsWeakReplacement(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Old$ecret1")

	pwd := &service.PasswordService{Store: s, Credentials: &service.CredentialService{Store: s}}

	err := pwd.Change(context.Background(), "acme", domain.RoleExporter, "Old$ecret1", "weak")
	require.ErrorIs(t, err, service.ErrWeakPassword)
}

func TestChangePasswordRejectsSamePassword(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Old$ecret1")

	pwd := &service.PasswordService{Store: s, Credentials: &service.CredentialService{Store: s}}

	err := pwd.Change(context.Background(), "acme", domain.RoleExporter, "Old$ecret1", "Old$ecret1")
	require.ErrorIs(t, err, service.ErrWeakPassword)
}
