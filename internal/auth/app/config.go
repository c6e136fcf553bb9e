package app

import (
	"os"
	"strconv"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
)

type Config struct {
	Issuer  string // Issuer name shown in authenticator apps (default: Kommerce)
	Network string // Network identifier stamped into every session token

	TokenTTL   time.Duration // Session token lifetime (default: 15m)
	PreAuthTTL time.Duration // Pre-auth cookie lifetime between login steps (default: 3m)

	PrivateKeyFile string // Optional: path to RS256 private key PEM; ephemeral keypair when unset
	PublicKeyFile  string // Optional: path to matching public key PEM

	DatabaseFile string // Path to SQLite database file (default: ./auth.db)
	PepperFile   string // Path to file containing pepper for password hashing (default: ./pepper)

	// AuthServerURL is the gateway's own externally visible base URL.
	AuthServerURL string
	// BackendURLs maps each tenant role to its application's base URL. All
	// seven roles must be configured.
	BackendURLs map[domain.Role]string

	Env                     string        // Environment (dev, staging, prod) (default: dev)
	LogLevel                string        // Log level (debug, info, warn, error) (default: info)
	LogFormat               string        // Log format (json, text) (default: json)
	Port                    int           // HTTP server port (default: 8050)
	ShutdownGracePeriod     time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval    time.Duration // Account request cleanup interval (default: 1h)
	AccountRequestTTL       time.Duration // Unverified request retention (default: 24h)
	RevocationSweepInterval time.Duration // Blacklist sweep interval (default: 1m)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:  getEnvOrDefault("AUTH_ISSUER", "Kommerce"),
		Network: getEnvOrDefault("AUTH_NETWORK", "ktf-trade-net"),

		TokenTTL:   getEnvDurationOrDefault("AUTH_TOKEN_TTL", 15*time.Minute),
		PreAuthTTL: getEnvDurationOrDefault("AUTH_PREAUTH_TTL", 3*time.Minute),

		PrivateKeyFile: os.Getenv("AUTH_JWT_PRIVATE_KEY_FILE"),
		PublicKeyFile:  os.Getenv("AUTH_JWT_PUBLIC_KEY_FILE"),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		AuthServerURL: getEnvOrDefault("AUTH_SERVER_URL", "http://localhost:8050"),
		BackendURLs: map[domain.Role]string{
			domain.RoleExporter:   getEnvOrDefault("EXPORTER_SERVER_URL", "http://localhost:8051"),
			domain.RoleImporter:   getEnvOrDefault("IMPORTER_SERVER_URL", "http://localhost:8052"),
			domain.RoleFinancier:  getEnvOrDefault("FINANCIER_SERVER_URL", "http://localhost:8053"),
			domain.RoleLogistics:  getEnvOrDefault("LOGISTICS_SERVER_URL", "http://localhost:8054"),
			domain.RoleInspector1: getEnvOrDefault("INSPECTOR1_SERVER_URL", "http://localhost:8055"),
			domain.RoleInspector2: getEnvOrDefault("INSPECTOR2_SERVER_URL", "http://localhost:8056"),
			domain.RolePlatform:   getEnvOrDefault("PLATFORM_SERVER_URL", "http://localhost:8057"),
		},

		Env:                     getEnvOrDefault("ENV", "dev"),
		LogLevel:                getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:               getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                    getEnvIntOrDefault("PORT", 8050),
		ShutdownGracePeriod:     getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval:    getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		AccountRequestTTL:       getEnvDurationOrDefault("ACCOUNT_REQUEST_TTL", 24*time.Hour),
		RevocationSweepInterval: getEnvDurationOrDefault("REVOCATION_SWEEP_INTERVAL", time.Minute),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
