package sqlite

import (
	"context"
	"strings"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/store"
)

type accountsRepo struct {
	q querier
}

const accountColumns = `id, username, role, password_hash, region, status, created_at, updated_at`

func (r *accountsRepo) GetByUsernameRole(ctx context.Context, username string, role domain.Role) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ? AND role = ?`,
		username, string(role),
	)
	return scanAccount(row)
}

func (r *accountsRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`,
		id,
	)
	return scanAccount(row)
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (id, username, role, password_hash, region, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, string(a.Role), a.PasswordHash, mapStringNull(a.Region), string(a.Status),
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, username string, role domain.Role, newHash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE username = ? AND role = ?`,
		newHash, username, string(role),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a      domain.Account
		role   string
		region = mapStringNull("")
		status string
	)
	err := row.Scan(&a.ID, &a.Username, &role, &a.PasswordHash, &region, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.Role = domain.Role(role)
	a.Region = mapNullString(region)
	a.Status = domain.AccountStatus(status)
	return a, nil
}

// mapConstraint turns a sqlite unique constraint violation into the store's
// sentinel. The driver exposes no typed error for this, so match the message.
func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}
