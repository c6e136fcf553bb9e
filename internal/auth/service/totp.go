package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/store"
	"github.com/kommerce/tradegate/pkg/cryptox"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidTOTPCode = errors.New("invalid TOTP code")
	ErrTOTPNotEnrolled = errors.New("TOTP not enrolled for this account")
)

type TOTPService struct {
	Store  store.Store
	Issuer string // Issuer name shown in authenticator apps (e.g. "Kommerce")

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *TOTPService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// BeginEnrollment returns the enrollment material for an account's second
// factor. Three cases:
//
//   - no record yet: a fresh secret is generated, stored unverified, and the
//     otpauth URL is returned;
//   - unverified record: the SAME secret is returned again, so a user who
//     closed the page before scanning can retry without invalidating the
//     authenticator entry they may already have added;
//   - verified record: an empty Enrollment is returned. The QR code must
//     never be shown again once the factor is proven.
func (s *TOTPService) BeginEnrollment(ctx context.Context, username string, role domain.Role) (domain.Enrollment, error) {
	rec, err := s.Store.TOTPSecrets().Get(ctx, username, role)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Enrollment{}, fmt.Errorf("failed to load TOTP record: %w", err)
	}

	if err == nil {
		if rec.Verified {
			return domain.Enrollment{}, nil
		}
		return s.enrollment(username, role, rec.Secret, rec.Period), nil
	}

	secret, err := cryptox.GenerateBase32Secret(cryptox.SecretSize160)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	if err := s.Store.TOTPSecrets().Create(ctx, domain.TOTPSecret{
		Username: username,
		Role:     role,
		Secret:   secret,
		Period:   domain.DefaultTOTPPeriod,
	}); err != nil {
		// Lost a race with a concurrent enrollment; re-read the winner.
		if errors.Is(err, store.ErrAlreadyExists) {
			rec, err := s.Store.TOTPSecrets().Get(ctx, username, role)
			if err != nil {
				return domain.Enrollment{}, fmt.Errorf("failed to load TOTP record: %w", err)
			}
			if rec.Verified {
				return domain.Enrollment{}, nil
			}
			return s.enrollment(username, role, rec.Secret, rec.Period), nil
		}
		return domain.Enrollment{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	return s.enrollment(username, role, secret, domain.DefaultTOTPPeriod), nil
}

// VerifyCode validates a 6-digit code against the account's stored secret.
// The first valid code flips the record to verified; the flip is one-way and
// the secret is never regenerated after it.
func (s *TOTPService) VerifyCode(ctx context.Context, username string, role domain.Role, code string) error {
	rec, err := s.Store.TOTPSecrets().Get(ctx, username, role)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTOTPNotEnrolled
	}
	if err != nil {
		return fmt.Errorf("failed to load TOTP record: %w", err)
	}

	valid, err := totp.ValidateCustom(code, rec.Secret, s.clock(), totp.ValidateOpts{
		Period:    rec.Period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("failed to validate TOTP code: %w", err)
	}
	if !valid {
		return ErrInvalidTOTPCode
	}

	if !rec.Verified {
		if err := s.Store.TOTPSecrets().MarkVerified(ctx, username, role); err != nil {
			return fmt.Errorf("failed to mark TOTP verified: %w", err)
		}
	}

	return nil
}

// enrollment builds the otpauth URL the authenticator apps consume. The
// label is "<username>-<role>" so the same person can keep separate entries
// per role.
func (s *TOTPService) enrollment(username string, role domain.Role, secret string, period uint) domain.Enrollment {
	label := fmt.Sprintf("%s-%s", username, role)
	otpURL := fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&period=%d&issuer=%s",
		url.PathEscape(s.Issuer), url.PathEscape(label), secret, period, url.QueryEscape(s.Issuer))

	return domain.Enrollment{
		OtpURL: otpURL,
		Secret: secret,
		Period: period,
	}
}
