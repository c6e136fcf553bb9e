package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
)

// Verifier validates a session token and gives you back the claims if it's
// legit. Only the public key is required, so any service on the platform can
// hold one.
type Verifier struct {
	pub *rsa.PublicKey
}

// NewVerifier loads an RSA public key from PEM bytes (PKIX or PKCS1).
func NewVerifier(pemKey []byte) (*Verifier, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA public key")
	}

	switch block.Type {
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKIX: %w", err)
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("jwtx: not RSA public key")
		}
		return &Verifier{pub: rsaPub}, nil
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		return &Verifier{pub: pub}, nil
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}
}

// NewVerifierFromKey wraps an in-memory public key.
func NewVerifierFromKey(pub *rsa.PublicKey) *Verifier {
	return &Verifier{pub: pub}
}

// Verify validates the JWT string and returns its parsed SessionClaims.
// The signature is checked against the known public key and the token must
// not be expired. Revocation is the caller's concern.
func (v *Verifier) Verify(tokenStr string) (SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		return v.pub, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return SessionClaims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return SessionClaims{}, ErrInvalidSig
		default:
			return SessionClaims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return SessionClaims{}, ErrMalformed
	}

	// Belt and braces: the parser already enforced exp, but a nil ExpiresAt
	// slipping through would make revocation TTLs meaningless.
	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return SessionClaims{}, ErrExpired
	}

	return *claims, nil
}
