package sqlite

import (
	"context"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/store"
)

type totpSecretsRepo struct {
	q querier
}

func (r *totpSecretsRepo) Get(ctx context.Context, username string, role domain.Role) (domain.TOTPSecret, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT username, role, secret, period, verified, created_at, updated_at
		 FROM totp_secrets WHERE username = ? AND role = ?`,
		username, string(role),
	)

	var (
		s       domain.TOTPSecret
		roleRaw string
	)
	err := row.Scan(&s.Username, &roleRaw, &s.Secret, &s.Period, &s.Verified, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.TOTPSecret{}, mapNotFound(err)
	}

	s.Role = domain.Role(roleRaw)
	return s, nil
}

func (r *totpSecretsRepo) Create(ctx context.Context, s domain.TOTPSecret) error {
	period := s.Period
	if period == 0 {
		period = domain.DefaultTOTPPeriod
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO totp_secrets (username, role, secret, period, verified)
		 VALUES (?, ?, ?, ?, 0)`,
		s.Username, string(s.Role), s.Secret, period,
	)
	return mapConstraint(err)
}

func (r *totpSecretsRepo) MarkVerified(ctx context.Context, username string, role domain.Role) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE totp_secrets SET verified = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE username = ? AND role = ?`,
		username, string(role),
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
