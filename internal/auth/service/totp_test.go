package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/service"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func totpCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, time.Now(), totp.ValidateOpts{
		Period:    domain.DefaultTOTPPeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func TestBeginEnrollmentGeneratesSecret(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Sup3r$ecret")

	svc := &service.TOTPService{Store: s, Issuer: "Kommerce"}

	enr, err := svc.BeginEnrollment(context.Background(), "acme", domain.RoleExporter)
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)
	require.Equal(t, uint(domain.DefaultTOTPPeriod), enr.Period)
	require.Contains(t, enr.OtpURL, "otpauth://totp/Kommerce:acme-Exporter?")
	require.Contains(t, enr.OtpURL, "secret="+enr.Secret)
	require.Contains(t, enr.OtpURL, "issuer=Kommerce")
}

func TestBeginEnrollmentIsIdempotentBeforeVerification(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Sup3r$ecret")

	svc := &service.TOTPService{Store: s, Issuer: "Kommerce"}
	ctx := context.Background()

	first, err := svc.BeginEnrollment(ctx, "acme", domain.RoleExporter)
	require.NoError(t, err)

	second, err := svc.BeginEnrollment(ctx, "acme", domain.RoleExporter)
	require.NoError(t, err)
	require.Equal(t, first.Secret, second.Secret)
	require.Equal(t, first.OtpURL, second.OtpURL)
}

func TestBeginEnrollmentAfterVerificationReturnsNothing(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Sup3r$ecret")

	svc := &service.TOTPService{Store: s, Issuer: "Kommerce"}
	ctx := context.Background()

	enr, err := svc.BeginEnrollment(ctx, "acme", domain.RoleExporter)
	require.NoError(t, err)

	require.NoError(t, svc.VerifyCode(ctx, "acme", domain.RoleExporter, totpCode(t, enr.Secret)))

	// Once verified the QR material is gone for good.
	after, err := svc.BeginEnrollment(ctx, "acme", domain.RoleExporter)
	require.NoError(t, err)
	require.Empty(t, after.OtpURL)
	require.Empty(t, after.Secret)
}

func TestVerifyCodeRejectsBadCode(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Sup3r$ecret")

	svc := &service.TOTPService{Store: s, Issuer: "Kommerce"}
	ctx := context.Background()

	_, err := svc.BeginEnrollment(ctx, "acme", domain.RoleExporter)
	require.NoError(t, err)

	err = svc.VerifyCode(ctx, "acme", domain.RoleExporter, "000000")
	require.ErrorIs(t, err, service.ErrInvalidTOTPCode)
}

func TestVerifyCodeDriftWindow(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Sup3r$ecret")

	// Aligned to a period boundary so the window edges are exact.
	base := time.Unix(1700000100, 0)
	current := base
	svc := &service.TOTPService{Store: s, Issuer: "Kommerce", Now: func() time.Time { return current }}
	ctx := context.Background()

	enr, err := svc.BeginEnrollment(ctx, "acme", domain.RoleExporter)
	require.NoError(t, err)

	code, err := totp.GenerateCodeCustom(enr.Secret, base, totp.ValidateOpts{
		Period:    domain.DefaultTOTPPeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)

	// Within the period the code was generated for.
	current = base.Add(5 * time.Second)
	require.NoError(t, svc.VerifyCode(ctx, "acme", domain.RoleExporter, code))

	// One period later it still falls inside the drift window.
	current = base.Add(31 * time.Second)
	require.NoError(t, svc.VerifyCode(ctx, "acme", domain.RoleExporter, code))

	// Two periods later the window has moved on and the code is stale.
	current = base.Add(60 * time.Second)
	err = svc.VerifyCode(ctx, "acme", domain.RoleExporter, code)
	require.ErrorIs(t, err, service.ErrInvalidTOTPCode)
}

func TestVerifyCodeWithoutEnrollment(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Sup3r$ecret")

	svc := &service.TOTPService{Store: s, Issuer: "Kommerce"}

	err := svc.VerifyCode(context.Background(), "acme", domain.RoleExporter, "123456")
	require.ErrorIs(t, err, service.ErrTOTPNotEnrolled)
}

func TestVerifyCodeKeepsSecretAfterVerification(t *testing.T) {
	s := newTestStore(t)
	createAccount(t, s, "acme", domain.RoleExporter, "Sup3r$ecret")

	svc := &service.TOTPService{Store: s, Issuer: "Kommerce"}
	ctx := context.Background()

	enr, err := svc.BeginEnrollment(ctx, "acme", domain.RoleExporter)
	require.NoError(t, err)

	require.NoError(t, svc.VerifyCode(ctx, "acme", domain.RoleExporter, totpCode(t, enr.Secret)))

	// Subsequent logins keep validating against the same secret.
	require.NoError(t, svc.VerifyCode(ctx, "acme", domain.RoleExporter, totpCode(t, enr.Secret)))

	rec, err := s.TOTPSecrets().Get(ctx, "acme", domain.RoleExporter)
	require.NoError(t, err)
	require.True(t, rec.Verified)
	require.Equal(t, enr.Secret, rec.Secret)
}
