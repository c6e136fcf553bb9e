package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are the claims carried by a tenant session token. Downstream
// backend services decode these with the shared public key, so the JSON field
// names are part of the platform contract and must not change.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Username of the authenticated account.
	Username string `json:"username,omitempty"`

	// Role the account authenticated as ("Exporter", "Importer", ...).
	Role string `json:"acctRole,omitempty"`

	// Network identifies the business network this session belongs to.
	Network string `json:"network,omitempty"`
}

// NewSessionClaims builds claims for a freshly authenticated session. Every
// call mints a new jti so the token can be revoked independently of any
// earlier token for the same account.
func NewSessionClaims(accountID, username, role, network string, ttl time.Duration, now time.Time) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Username: username,
		Role:     role,
		Network:  network,
	}
}

// RemainingLifetime returns how long the token is still valid at the given
// instant. Zero or negative means the token already expired.
func (c *SessionClaims) RemainingLifetime(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
