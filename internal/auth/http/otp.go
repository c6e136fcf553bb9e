package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/internal/auth/tenant"
	"github.com/kommerce/tradegate/pkg/httpx"
	"github.com/kommerce/tradegate/pkg/slogx"
)

const invalidOTPMsg = "Invalid one-time code"

// QRImageHandler serves GET /qr-image for the 2FA page. It returns the
// otpauth URL the frontend renders as a QR code, or a null URL once the
// factor has been verified and must not be re-displayed.
type QRImageHandler struct {
	TOTP *service.TOTPService
}

func (h *QRImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := readPreAuthCookie(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	enr, err := h.TOTP.BeginEnrollment(r.Context(), user.Username, user.Role)
	if err != nil {
		slogx.FromContext(r.Context()).Error("TOTP enrollment failed", "err", err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	var otpURL *string
	if enr.OtpURL != "" {
		otpURL = &enr.OtpURL
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]*string{"otpUrl": otpURL})
}

type otpRequest struct {
	OtpCode string `json:"otpCode"`
}

type otpResponse struct {
	TwoFA bool   `json:"twofa"`
	Token string `json:"token,omitempty"`
	URL   string `json:"url,omitempty"`
	Msg   string `json:"msg,omitempty"`
}

// OTPHandler serves POST /login-otp, the second factor. A valid code mints
// the session token, retires the pre-auth cookie, and hands the frontend the
// tenant URL to move the session to.
type OTPHandler struct {
	TOTP    *service.TOTPService
	Tokens  *service.TokenService
	Tenants *tenant.Table
}

func (h *OTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := readPreAuthCookie(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusOK, otpResponse{TwoFA: false, Msg: invalidOTPMsg})
		return
	}

	if err := h.TOTP.VerifyCode(ctx, user.Username, user.Role, req.OtpCode); err != nil {
		if !errors.Is(err, service.ErrInvalidTOTPCode) && !errors.Is(err, service.ErrTOTPNotEnrolled) {
			log.Error("TOTP verification failed", "err", err)
		}
		httpx.WriteJSON(w, http.StatusOK, otpResponse{TwoFA: false, Msg: invalidOTPMsg})
		return
	}

	token, err := h.Tokens.Issue(domain.Account{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		log.Error("failed to issue session token", "err", err)
		httpx.WriteJSON(w, http.StatusOK, otpResponse{TwoFA: false, Msg: invalidOTPMsg})
		return
	}

	redirect, err := h.Tenants.RedirectFor(user.Role)
	if err != nil {
		log.Error("no backend for role", "role", user.Role)
		httpx.WriteJSON(w, http.StatusOK, otpResponse{TwoFA: false, Msg: invalidOTPMsg})
		return
	}

	clearPreAuthCookie(w)
	httpx.WriteJSON(w, http.StatusOK, otpResponse{TwoFA: true, Token: token, URL: redirect})
}
