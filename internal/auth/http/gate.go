package http

import (
	"errors"
	"net/http"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/internal/auth/tenant"
	"github.com/kommerce/tradegate/pkg/httpx"
	"github.com/kommerce/tradegate/pkg/slogx"
)

// nonsecuredPaths may be served without any session. A request carrying a
// valid session is still bounced off them to its tenant backend; an
// authenticated user has no business on the login pages.
var nonsecuredPaths = map[string]struct{}{
	"/":             {},
	"/signup":       {},
	"/login":        {},
	"/login-otp":    {},
	"/verify-email": {},
	"/regions":      {},
}

// securedPaths are served by the gateway itself and require a live session.
var securedPaths = map[string]struct{}{
	"/changepw": {},
	"/refresh":  {},
	"/logout":   {},
}

// Gate is the per-request session check applied in front of every route.
//
// The decision table:
//
//   - no token (or a token that fails signature/expiry checks): fall through
//     anonymously. /login-otp additionally requires the pre-auth cookie from
//     the password step, otherwise back to /login.
//   - token valid but revoked: allowed through to nonsecured pages only,
//     anything else bounces to /login.
//   - token valid: secured endpoints are served; every other path redirects
//     to the session's tenant backend.
type Gate struct {
	Tenants *tenant.Table
	Tokens  *service.TokenService
}

func (g *Gate) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			log := slogx.FromContext(r.Context())

			// Operational endpoints are outside the session model.
			switch path {
			case "/livez", "/readyz", "/metrics":
				next.ServeHTTP(w, r)
				return
			}

			_, token, err := sessionCookie(r, g.Tenants)
			if err != nil || token == "" {
				g.anonymous(w, r, next)
				return
			}

			claims, err := g.Tokens.Verify(token)
			if errors.Is(err, service.ErrTokenRevoked) {
				if _, ok := nonsecuredPaths[path]; ok {
					next.ServeHTTP(w, r)
					return
				}
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			if err != nil {
				// Forged, malformed, or expired: same as carrying nothing.
				g.anonymous(w, r, next)
				return
			}

			if _, ok := securedPaths[path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			redirect, err := g.Tenants.RedirectFor(domain.Role(claims.Role))
			if err != nil {
				log.Warn("session token carries unroutable role", "role", claims.Role)
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			http.Redirect(w, r, redirect, http.StatusFound)
		})
	}
}

func (g *Gate) anonymous(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if r.URL.Path == "/login-otp" {
		if _, err := readPreAuthCookie(r); err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
	}
	next.ServeHTTP(w, r)
}
