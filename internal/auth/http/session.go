package http

import (
	"net/http"

	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/internal/auth/tenant"
	"github.com/kommerce/tradegate/pkg/httpx"
	"github.com/kommerce/tradegate/pkg/slogx"
)

type errResponse struct {
	Err string `json:"err"`
}

type refreshResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

// RefreshHandler serves POST /refresh. The old token is blacklisted for its
// remaining lifetime and a fresh one is returned; the tenant frontends call
// this shortly before expiry to keep the session rolling.
type RefreshHandler struct {
	Tokens  *service.TokenService
	Tenants *tenant.Table
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, token, err := sessionCookie(r, h.Tenants)
	if err != nil || token == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, errResponse{Err: "Invalid session"})
		return
	}

	fresh, err := h.Tokens.Refresh(token)
	if err != nil {
		slogx.FromContext(r.Context()).Warn("refresh rejected", "err", err)
		httpx.WriteJSON(w, http.StatusUnauthorized, errResponse{Err: "Invalid session"})
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, refreshResponse{Success: true, Token: fresh})
}

// LogoutHandler serves POST /logout. Revoking is what actually ends the
// session; clearing the cookie is a courtesy to the browser.
type LogoutHandler struct {
	Tokens  *service.TokenService
	Tenants *tenant.Table
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cookieName, token, err := sessionCookie(r, h.Tenants)
	if err != nil || token == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, errResponse{Err: "Invalid session"})
		return
	}

	if err := h.Tokens.Revoke(token); err != nil {
		slogx.FromContext(r.Context()).Warn("logout with dead token", "err", err)
		httpx.WriteJSON(w, http.StatusUnauthorized, errResponse{Err: "Invalid session"})
		return
	}

	clearSessionCookie(w, cookieName)
	w.WriteHeader(http.StatusOK)
}
