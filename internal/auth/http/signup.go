package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/pkg/httpx"
	"github.com/kommerce/tradegate/pkg/slogx"
)

const (
	signupOKMsg     = "Successful Registration"
	signupFailedMsg = "Unsuccessful Registration"
	signupWeakPwMsg = "Your password does not meet the requirements (At least 8 characters with a mix of upper, lower cases, number and symbols)"
)

type signupResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

// SignupHandler serves POST /signup.
type SignupHandler struct {
	Signups *service.SignupService
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusOK, signupResponse{Success: false, Msg: signupFailedMsg})
		return
	}

	_, err := h.Signups.Signup(ctx, req)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, signupResponse{Success: true, Msg: signupOKMsg})
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteJSON(w, http.StatusOK, signupResponse{Success: false, Msg: signupWeakPwMsg})
	case errors.Is(err, service.ErrInvalidSignup),
		errors.Is(err, service.ErrUnsupportedRole),
		errors.Is(err, service.ErrAccountExists):
		httpx.WriteJSON(w, http.StatusOK, signupResponse{Success: false, Msg: signupFailedMsg})
	default:
		log.Error("signup failed", "err", err)
		httpx.WriteJSON(w, http.StatusOK, signupResponse{Success: false, Msg: signupFailedMsg})
	}
}

// VerifyEmailHandler serves GET /verify-email, the link target from the
// verification mail. Success and failure both land back on the home page;
// only the query string differs.
type VerifyEmailHandler struct {
	Signups *service.SignupService
}

func (h *VerifyEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	code := r.URL.Query().Get("vcode")

	if _, err := h.Signups.VerifyEmail(r.Context(), id, code); err != nil {
		if !errors.Is(err, service.ErrBadVerifyCode) && !errors.Is(err, service.ErrAlreadyVerified) {
			slogx.FromContext(r.Context()).Error("email verification failed", "err", err)
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	http.Redirect(w, r, "/?msg=Email Verified", http.StatusFound)
}

// RegionsHandler serves GET /regions for the signup form dropdown.
type RegionsHandler struct {
	Signups *service.SignupService
}

func (h *RegionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	regions, err := h.Signups.Regions(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list regions", "err", err)
		http.Error(w, "Error", http.StatusBadRequest)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, regions)
}
