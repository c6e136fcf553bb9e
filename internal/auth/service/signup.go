package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/ledger"
	"github.com/kommerce/tradegate/internal/auth/mailer"
	"github.com/kommerce/tradegate/internal/auth/store"
	"github.com/kommerce/tradegate/pkg/cryptox"
	"github.com/kommerce/tradegate/pkg/idx"

	"github.com/go-playground/validator/v10"
)

// verifyCodeBytes is the entropy of the mailed verification code. The code
// travels in a link, never gets typed, so it can afford to be opaque.
const verifyCodeBytes = 16

var (
	ErrAccountExists   = errors.New("an account with this username and role already exists")
	ErrInvalidSignup   = errors.New("invalid signup request")
	ErrBadVerifyCode   = errors.New("verification code does not match")
	ErrAlreadyVerified = errors.New("this request was already verified")
	ErrUnsupportedRole = errors.New("unsupported role for signup")
)

// SignupRequest is the inbound form for a new organisation account.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"acctRole" validate:"required"`
	Region   string `json:"region" validate:"omitempty,max=64"`
	Email    string `json:"email" validate:"required,email"`
}

// SignupResult identifies the pending request the caller must verify.
type SignupResult struct {
	RequestID string `json:"requestId"`
}

// SignupService runs the two-step onboarding flow: a signup stores a pending
// account request and mails a verification code; verifying the code turns
// the request into a live account and records it on the ledger. Platform
// accounts skip the mail step and register directly.
type SignupService struct {
	Store    store.Store
	Mailer   mailer.Mailer
	Recorder ledger.Recorder
	Network  string

	Validate *validator.Validate
}

// Signup validates the form, checks the (username, role) pair is free, and
// stores the pending request. The verification code goes out by mail and is
// never returned to the HTTP caller.
func (s *SignupService) Signup(ctx context.Context, req SignupRequest) (SignupResult, error) {
	if err := s.Validate.Struct(req); err != nil {
		return SignupResult{}, fmt.Errorf("%w: %s", ErrInvalidSignup, err)
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return SignupResult{}, ErrUnsupportedRole
	}

	if err := ValidatePasswordComplexity(req.Password); err != nil {
		return SignupResult{}, err
	}

	_, err = s.Store.Accounts().GetByUsernameRole(ctx, req.Username, role)
	if err == nil {
		return SignupResult{}, ErrAccountExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return SignupResult{}, fmt.Errorf("failed to check existing account: %w", err)
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return SignupResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	// Platform operators are onboarded by the consortium itself; their
	// accounts go live immediately, without the mail round-trip.
	if role == domain.RolePlatform {
		acct := domain.Account{
			ID:           idx.New().String(),
			Username:     req.Username,
			Role:         role,
			PasswordHash: hash,
			Status:       domain.StatusActive,
		}
		if err := s.Store.Accounts().Create(ctx, acct); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return SignupResult{}, ErrAccountExists
			}
			return SignupResult{}, fmt.Errorf("failed to create platform account: %w", err)
		}
		if err := s.Recorder.RecordAccountCreated(ctx, acct.ID, acct.Username, string(acct.Role), s.Network); err != nil {
			return SignupResult{}, fmt.Errorf("platform account created but ledger record failed: %w", err)
		}
		return SignupResult{}, nil
	}

	code, err := cryptox.GenerateToken(verifyCodeBytes)
	if err != nil {
		return SignupResult{}, fmt.Errorf("failed to generate verification code: %w", err)
	}

	pending := domain.AccountRequest{
		ID:           idx.New().String(),
		Username:     req.Username,
		PasswordHash: hash,
		Role:         role,
		Region:       req.Region,
		VerifyCode:   code,
	}
	if err := s.Store.AccountRequests().Create(ctx, pending); err != nil {
		return SignupResult{}, fmt.Errorf("failed to store account request: %w", err)
	}

	if err := s.Mailer.SendVerificationCode(ctx, req.Email, req.Username, pending.ID, code); err != nil {
		return SignupResult{}, fmt.Errorf("failed to send verification code: %w", err)
	}

	return SignupResult{RequestID: pending.ID}, nil
}

// VerifyEmail confirms the mailed code and promotes the pending request to a
// live account. Creation and the verified flag flip happen in one
// transaction; the ledger record goes out after the commit.
func (s *SignupService) VerifyEmail(ctx context.Context, requestID, code string) (domain.Account, error) {
	req, err := s.Store.AccountRequests().GetByIDAndCode(ctx, requestID, code)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrBadVerifyCode
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to load account request: %w", err)
	}

	if req.EmailVerified {
		return domain.Account{}, ErrAlreadyVerified
	}

	acct := domain.Account{
		ID:           idx.New().String(),
		Username:     req.Username,
		Role:         req.Role,
		PasswordHash: req.PasswordHash,
		Region:       req.Region,
		Status:       domain.StatusActive,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AccountRequests().MarkEmailVerified(ctx, requestID); err != nil {
			return fmt.Errorf("failed to mark request verified: %w", err)
		}
		if err := tx.Accounts().Create(ctx, acct); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrAccountExists
			}
			return fmt.Errorf("failed to create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	if err := s.Recorder.RecordAccountCreated(ctx, acct.ID, acct.Username, string(acct.Role), s.Network); err != nil {
		// The account exists either way; the ledger record can be replayed.
		return acct, fmt.Errorf("account created but ledger record failed: %w", err)
	}

	return acct, nil
}

// Regions returns the region reference list for the signup form.
func (s *SignupService) Regions(ctx context.Context) ([]string, error) {
	return s.Store.Regions().List(ctx)
}
