package sqlite

import (
	"context"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/store"
)

type accountRequestsRepo struct {
	q querier
}

func (r *accountRequestsRepo) Create(ctx context.Context, req domain.AccountRequest) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO account_requests (id, username, password_hash, role, region, verify_code, email_verified)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		req.ID, req.Username, req.PasswordHash, string(req.Role), mapStringNull(req.Region), req.VerifyCode,
	)
	return mapConstraint(err)
}

func (r *accountRequestsRepo) GetByIDAndCode(ctx context.Context, id, code string) (domain.AccountRequest, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, region, verify_code, email_verified, created_at
		 FROM account_requests WHERE id = ? AND verify_code = ?`,
		id, code,
	)

	var (
		req     domain.AccountRequest
		roleRaw string
		region  = mapStringNull("")
	)
	err := row.Scan(&req.ID, &req.Username, &req.PasswordHash, &roleRaw, &region, &req.VerifyCode, &req.EmailVerified, &req.CreatedAt)
	if err != nil {
		return domain.AccountRequest{}, mapNotFound(err)
	}

	req.Role = domain.Role(roleRaw)
	req.Region = mapNullString(region)
	return req, nil
}

func (r *accountRequestsRepo) MarkEmailVerified(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE account_requests SET email_verified = 1 WHERE id = ?`,
		id,
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

func (r *accountRequestsRepo) DeleteStaleUnverified(ctx context.Context, before time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM account_requests WHERE email_verified = 0 AND created_at < ?`,
		before.UTC(),
	)
	return err
}
