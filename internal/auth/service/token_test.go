package service_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/revocation"
	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/pkg/jwtx"

	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T, ttl time.Duration) *service.TokenService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return &service.TokenService{
		Signer:   jwtx.NewSignerFromKey(key),
		Verifier: jwtx.NewVerifierFromKey(&key.PublicKey),
		Revoked:  revocation.NewStore(time.Minute),
		Network:  "ktf-trade-net",
		TokenTTL: ttl,
	}
}

func testAccount() domain.Account {
	return domain.Account{
		ID:       "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Username: "acme",
		Role:     domain.RoleExporter,
		Status:   domain.StatusActive,
	}
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTokenService(t, time.Hour)

	token, err := svc.Issue(testAccount())
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", claims.Subject)
	require.Equal(t, "acme", claims.Username)
	require.Equal(t, "Exporter", claims.Role)
	require.Equal(t, "ktf-trade-net", claims.Network)
	require.NotEmpty(t, claims.ID)
}

func TestIssueMintsDistinctSessions(t *testing.T) {
	svc := newTokenService(t, time.Hour)

	t1, err := svc.Issue(testAccount())
	require.NoError(t, err)
	t2, err := svc.Issue(testAccount())
	require.NoError(t, err)

	c1, err := svc.Verify(t1)
	require.NoError(t, err)
	c2, err := svc.Verify(t2)
	require.NoError(t, err)
	require.NotEqual(t, c1.ID, c2.ID)
}

func TestVerifyRejectsRevokedToken(t *testing.T) {
	svc := newTokenService(t, time.Hour)

	token, err := svc.Issue(testAccount())
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(token))

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, service.ErrTokenRevoked)
}

func TestRevokeRejectsGarbage(t *testing.T) {
	svc := newTokenService(t, time.Hour)

	err := svc.Revoke("not-a-token")
	require.Error(t, err)
}

func TestRefreshReplacesSession(t *testing.T) {
	svc := newTokenService(t, time.Hour)

	old, err := svc.Issue(testAccount())
	require.NoError(t, err)

	fresh, err := svc.Refresh(old)
	require.NoError(t, err)
	require.NotEqual(t, old, fresh)

	// The old token dies with the refresh.
	_, err = svc.Verify(old)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	// The new one carries the same identity under a new jti.
	claims, err := svc.Verify(fresh)
	require.NoError(t, err)
	require.Equal(t, "acme", claims.Username)
	require.Equal(t, "Exporter", claims.Role)
}

func TestRefreshRevokesOldTokenForRemainingLifetimeOnly(t *testing.T) {
	base := time.Now()
	current := base
	clock := func() time.Time { return current }

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	svc := &service.TokenService{
		Signer:   jwtx.NewSignerFromKey(key),
		Verifier: jwtx.NewVerifierFromKey(&key.PublicKey),
		Revoked:  revocation.NewStoreWithClock(time.Minute, clock),
		Network:  "ktf-trade-net",
		TokenTTL: time.Hour,
		Now:      clock,
	}

	old, err := svc.Issue(testAccount())
	require.NoError(t, err)
	oldClaims, err := svc.Verify(old)
	require.NoError(t, err)

	// Ten minutes of the old token's hour remain at refresh time.
	current = base.Add(50 * time.Minute)
	_, err = svc.Refresh(old)
	require.NoError(t, err)
	require.True(t, svc.Revoked.IsRevoked(oldClaims.ID))

	// The blacklist entry dies with the old token's natural expiry, not a
	// full TokenTTL after the refresh.
	current = base.Add(time.Hour + time.Second)
	require.False(t, svc.Revoked.IsRevoked(oldClaims.ID))
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	svc := newTokenService(t, time.Hour)

	token, err := svc.Issue(testAccount())
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(token))

	_, err = svc.Refresh(token)
	require.ErrorIs(t, err, service.ErrTokenRevoked)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTokenService(t, -time.Minute)

	token, err := svc.Issue(testAccount())
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}
