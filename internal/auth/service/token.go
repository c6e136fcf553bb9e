package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/revocation"
	"github.com/kommerce/tradegate/pkg/jwtx"
)

// ErrTokenRevoked means the token's signature and expiry are fine but its
// jti sits on the blacklist.
var ErrTokenRevoked = errors.New("token has been revoked")

// TokenService issues, verifies, refreshes and revokes RS256 session tokens.
// Verification is purely local (public key + in-memory blacklist); no store
// round-trip happens per request.
type TokenService struct {
	Signer   *jwtx.Signer
	Verifier *jwtx.Verifier
	Revoked  *revocation.Store
	Network  string        // network identifier stamped into every token
	TokenTTL time.Duration // session token lifetime

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *TokenService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue mints a fresh session token for an authenticated account. Every call
// produces a new jti, so concurrent sessions for the same account revoke
// independently.
func (s *TokenService) Issue(acct domain.Account) (string, error) {
	claims := jwtx.NewSessionClaims(acct.ID, acct.Username, string(acct.Role), s.Network, s.TokenTTL, s.clock())

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Verify checks signature, expiry, and the revocation blacklist, in that
// order. Returns the claims only when all three pass.
func (s *TokenService) Verify(token string) (jwtx.SessionClaims, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return jwtx.SessionClaims{}, err
	}

	if s.Revoked.IsRevoked(claims.ID) {
		return jwtx.SessionClaims{}, ErrTokenRevoked
	}

	return claims, nil
}

// Refresh exchanges a valid token for a fresh one carrying the same
// identity. The old token is blacklisted for its remaining lifetime, so a
// refresh always strictly replaces the session rather than forking it.
func (s *TokenService) Refresh(token string) (string, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", err
	}

	s.Revoked.Revoke(claims.ID, claims.RemainingLifetime(s.clock()))

	next := jwtx.NewSessionClaims(claims.Subject, claims.Username, claims.Role, s.Network, s.TokenTTL, s.clock())
	signed, err := s.Signer.Sign(next)
	if err != nil {
		return "", fmt.Errorf("failed to sign refreshed token: %w", err)
	}
	return signed, nil
}

// Revoke blacklists a token for its remaining lifetime. The token must still
// verify; an expired or forged token has nothing to revoke and the error
// tells the caller the session was not live.
func (s *TokenService) Revoke(token string) error {
	claims, err := s.Verify(token)
	if err != nil {
		return err
	}

	s.Revoked.Revoke(claims.ID, claims.RemainingLifetime(s.clock()))
	return nil
}
