package app

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"os"

	"github.com/kommerce/tradegate/pkg/jwtx"
)

const ephemeralKeyBits = 2048

// InitSessionKeys loads the RS256 keypair the gateway signs session tokens
// with. With key files configured both halves are loaded from PEM; otherwise
// an ephemeral keypair is generated, which invalidates all sessions on
// restart. Fine for dev, configure files for anything shared.
func InitSessionKeys(cfg Config, logger *slog.Logger) (*jwtx.Signer, *jwtx.Verifier, error) {
	if cfg.PrivateKeyFile != "" {
		privPEM, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read private key file: %w", err)
		}

		signer, err := jwtx.NewSigner(privPEM)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		// Prefer the configured public key file; fall back to deriving it.
		var verifier *jwtx.Verifier
		if cfg.PublicKeyFile != "" {
			pubPEM, err := os.ReadFile(cfg.PublicKeyFile)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read public key file: %w", err)
			}
			verifier, err = jwtx.NewVerifier(pubPEM)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to parse public key: %w", err)
			}
		} else {
			verifier = jwtx.NewVerifierFromKey(signer.PublicKey())
		}

		logger.Info("loaded RS256 session keys", "private_key_file", cfg.PrivateKeyFile)
		return signer, verifier, nil
	}

	key, err := rsa.GenerateKey(rand.Reader, ephemeralKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral keypair: %w", err)
	}

	logger.Warn("no key files configured, generated ephemeral RS256 keypair; sessions will not survive a restart")
	return jwtx.NewSignerFromKey(key), jwtx.NewVerifierFromKey(&key.PublicKey), nil
}
