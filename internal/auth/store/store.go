package store

import (
	"context"
	"errors"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Accounts() Accounts
	TOTPSecrets() TOTPSecrets
	AccountRequests() AccountRequests
	Regions() Regions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error the transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetByUsernameRole looks an account up by its (username, role) pair,
	// which is unique across the platform.
	GetByUsernameRole(ctx context.Context, username string, role domain.Role) (domain.Account, error)

	// GetByID returns an account by id.
	GetByID(ctx context.Context, id string) (domain.Account, error)

	// Create inserts a new account (id is provided by app via ULID).
	Create(ctx context.Context, a domain.Account) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, username string, role domain.Role, newHash string) error
}

type TOTPSecrets interface {
	// Get returns the second-factor record for an account.
	Get(ctx context.Context, username string, role domain.Role) (domain.TOTPSecret, error)

	// Create inserts a new secret record with verified=false. The secret is
	// immutable afterwards; there is deliberately no update method for it.
	Create(ctx context.Context, s domain.TOTPSecret) error

	// MarkVerified flips verified to true. One-way; never cleared here.
	MarkVerified(ctx context.Context, username string, role domain.Role) error
}

type AccountRequests interface {
	// Create stores a pending signup request.
	Create(ctx context.Context, r domain.AccountRequest) error

	// GetByIDAndCode fetches a request by id and its email verification code.
	GetByIDAndCode(ctx context.Context, id, code string) (domain.AccountRequest, error)

	// MarkEmailVerified flips email_verified for a request.
	MarkEmailVerified(ctx context.Context, id string) error

	// DeleteStaleUnverified removes unverified requests created before the
	// cutoff (housekeeping).
	DeleteStaleUnverified(ctx context.Context, before time.Time) error
}

type Regions interface {
	// List returns the region reference data for the signup form.
	List(ctx context.Context) ([]string, error)
}
