package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs session claims with the service's RSA private key. Downstream
// services verify with the matching public key and never see the private half.
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner loads an RSA private key from PEM bytes. Handles both PKCS1 and
// PKCS8 because otherwise we will be chasing a bug for longer than we would
// be willing to admit.
func NewSigner(pemKey []byte) (*Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA key")
	}

	var key *rsa.PrivateKey

	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		key = k
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
		}
		rk, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: not RSA private key")
		}
		key = rk
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}

	return &Signer{key: key}, nil
}

// NewSignerFromKey wraps an in-memory private key, used for ephemeral dev keys.
func NewSignerFromKey(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// Sign turns the claims into a compact RS256-signed JWT string.
func (s *Signer) Sign(claims SessionClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return t.SignedString(s.key)
}

// PublicKey returns the verification half of the signing keypair.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}
