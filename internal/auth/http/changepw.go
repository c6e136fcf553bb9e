package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/internal/auth/tenant"
	"github.com/kommerce/tradegate/pkg/httpx"
	"github.com/kommerce/tradegate/pkg/slogx"
)

const (
	changePwFailedMsg    = "Your account password has not been successfully updated"
	changePwWeakMsg      = "Your new password does not meet the requirements (At least 8 characters with a mix of upper, lower cases, number and symbols)"
	changePwWrongCurMsg  = "Incorrect current password, please enter your passwords again"
	changePwSameMsg      = "Please ensure your new password is different from your current password"
	changePwNoMatchMsg   = "Please ensure your new passwords match"
	changePwSucceededMsg = "Your account password has been successfully updated, please login again"
)

type changePwRequest struct {
	CurPw     string `json:"curpw"`
	NewPw     string `json:"newpw"`
	ConfirmPw string `json:"confirmpw"`
}

type changePwResponse struct {
	Success     bool   `json:"success"`
	Msg         string `json:"msg"`
	RedirectURL string `json:"redirectURL,omitempty"`
}

// ChangePasswordHandler serves POST /changepw. The account is identified by
// the session token, never by request fields. A successful change kills the
// session: the token is blacklisted, the cookie cleared, and the caller is
// sent back to the login page.
type ChangePasswordHandler struct {
	Passwords *service.PasswordService
	Tokens    *service.TokenService
	Tenants   *tenant.Table

	// AuthBaseURL is this gateway's own externally visible base URL, used to
	// build the post-change login redirect.
	AuthBaseURL string
}

func (h *ChangePasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	cookieName, token, err := sessionCookie(r, h.Tenants)
	if err != nil || token == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, errResponse{Err: "Invalid session"})
		return
	}

	claims, err := h.Tokens.Verify(token)
	if err != nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, errResponse{Err: "Invalid session"})
		return
	}

	var req changePwRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusOK, changePwResponse{Success: false, Msg: changePwFailedMsg})
		return
	}

	if req.NewPw != req.ConfirmPw {
		httpx.WriteJSON(w, http.StatusOK, changePwResponse{Success: false, Msg: changePwNoMatchMsg})
		return
	}
	if req.CurPw == req.NewPw {
		httpx.WriteJSON(w, http.StatusOK, changePwResponse{Success: false, Msg: changePwSameMsg})
		return
	}

	err = h.Passwords.Change(ctx, claims.Username, domain.Role(claims.Role), req.CurPw, req.NewPw)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrWrongPassword):
		httpx.WriteJSON(w, http.StatusOK, changePwResponse{Success: false, Msg: changePwWrongCurMsg})
		return
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteJSON(w, http.StatusOK, changePwResponse{Success: false, Msg: changePwWeakMsg})
		return
	default:
		log.Error("password change failed", "err", err)
		httpx.WriteJSON(w, http.StatusOK, changePwResponse{Success: false, Msg: changePwFailedMsg})
		return
	}

	// The old credential is gone; the session minted with it goes too.
	h.Tokens.Revoked.Revoke(claims.ID, claims.RemainingLifetime(time.Now()))
	clearSessionCookie(w, cookieName)

	httpx.WriteJSON(w, http.StatusOK, changePwResponse{
		Success:     true,
		Msg:         changePwSucceededMsg,
		RedirectURL: h.AuthBaseURL + "/login",
	})
}
