package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/obs"
	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/pkg/httpx"
	"github.com/kommerce/tradegate/pkg/slogx"
)

// loginFailedMsg is the single message for every first-factor failure.
// Unknown username, deactivated account, and wrong password are deliberately
// indistinguishable to the caller.
const loginFailedMsg = "Incorrect username or password"

type loginRequest struct {
	Username string `json:"username"`
	Role     string `json:"acctRole"`
	Password string `json:"password"`
}

type loginResponse struct {
	Login bool   `json:"login"`
	Msg   string `json:"msg,omitempty"`
}

// LoginHandler serves POST /login, the first factor of the login flow. On
// success it plants the short-lived pre-auth cookie and the frontend moves
// on to /login-otp; no session token exists yet.
type LoginHandler struct {
	Credentials *service.CredentialService
	PreAuthTTL  time.Duration
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusOK, loginResponse{Login: false, Msg: loginFailedMsg})
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, loginResponse{Login: false, Msg: loginFailedMsg})
		return
	}

	res, err := h.Credentials.Verify(ctx, req.Username, role, req.Password)
	if err != nil {
		log.Error("credential check failed", "err", err)
		obs.ObserveLogin("error")
		httpx.WriteJSON(w, http.StatusInternalServerError, loginResponse{Login: false, Msg: loginFailedMsg})
		return
	}

	if !res.Authenticated() {
		obs.ObserveLogin(loginOutcomeLabel(res.Status))
		httpx.WriteJSON(w, http.StatusOK, loginResponse{Login: false, Msg: loginFailedMsg})
		return
	}
	obs.ObserveLogin("ok")

	err = setPreAuthCookie(w, domain.PreAuthUser{
		ID:       res.Account.ID,
		Username: res.Account.Username,
		Role:     res.Account.Role,
	}, h.PreAuthTTL)
	if err != nil {
		log.Error("failed to set pre-auth cookie", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, loginResponse{Login: false, Msg: loginFailedMsg})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{Login: true})
}

func loginOutcomeLabel(s service.CredentialStatus) string {
	switch s {
	case service.CredentialAccountNotFound:
		return "not_found"
	case service.CredentialAccountInactive:
		return "inactive"
	case service.CredentialBadPassword:
		return "bad_password"
	}
	return "ok"
}
