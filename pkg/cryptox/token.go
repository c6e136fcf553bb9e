package cryptox

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
)

// Secret size constants (in bytes before encoding).
const (
	// SecretSize128 provides 128 bits of entropy.
	SecretSize128 = 16
	// SecretSize160 provides 160 bits of entropy, the RFC 4226 recommended
	// minimum for HOTP/TOTP shared secrets.
	SecretSize160 = 20
	// SecretSize256 provides 256 bits of entropy.
	SecretSize256 = 32
)

// GenerateToken creates a cryptographically secure random token of the
// specified byte length, returned base64url-encoded without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateBase32Secret creates a random secret of the specified byte length,
// base32-encoded without padding. Authenticator apps expect shared TOTP
// secrets in this alphabet.
func GenerateBase32Secret(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("secret size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}
