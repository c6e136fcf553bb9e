package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kommerce/tradegate/internal/auth/obs"
	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/internal/auth/store"
	"github.com/kommerce/tradegate/internal/auth/tenant"
	"github.com/kommerce/tradegate/pkg/httpx"
	"github.com/kommerce/tradegate/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger       *slog.Logger
	buildVersion string
	startTime    time.Time
	store        store.Store

	Tenants     *tenant.Table
	Credentials *service.CredentialService
	TOTP        *service.TOTPService
	Tokens      *service.TokenService
	Passwords   *service.PasswordService
	Signups     *service.SignupService

	// AuthBaseURL is the gateway's own externally visible base URL.
	AuthBaseURL string
	// PreAuthTTL bounds the window between the password and TOTP steps.
	PreAuthTTL time.Duration
}

func NewRouter(
	tenants *tenant.Table,
	tokens *service.TokenService,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		logger:       logger,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		Tenants:      tenants,
		Tokens:       tokens,
	}

	gate := &Gate{Tenants: tenants, Tokens: tokens}

	// Request logging runs outermost, then metrics, then the session gate.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		obs.Instrument,
		gate.Middleware(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerPages()
	r.registerLogin()
	r.registerSession()
	r.registerSignup()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerPages() {
	r.Mux.Handle("GET /{$}",
		httpx.Chain(PageHandler("index.html"),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /login",
		httpx.Chain(PageHandler("login.html"),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /login-otp",
		httpx.Chain(PageHandler("login-otp.html"),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /signup",
		httpx.Chain(PageHandler("signup.html"),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerLogin() {
	// POST /login - strict rate limit (password guessing)
	loginHandler := &LoginHandler{Credentials: r.Credentials, PreAuthTTL: r.PreAuthTTL}
	r.Mux.Handle("POST /login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /qr-image - lenient; it only ever shows the caller their own enrollment
	qrHandler := &QRImageHandler{TOTP: r.TOTP}
	r.Mux.Handle("GET /qr-image",
		httpx.Chain(qrHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /login-otp - strict rate limit (6-digit code guessing)
	otpHandler := &OTPHandler{TOTP: r.TOTP, Tokens: r.Tokens, Tenants: r.Tenants}
	r.Mux.Handle("POST /login-otp",
		httpx.Chain(otpHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSession() {
	refreshHandler := &RefreshHandler{Tokens: r.Tokens, Tenants: r.Tenants}
	r.Mux.Handle("POST /refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	logoutHandler := &LogoutHandler{Tokens: r.Tokens, Tenants: r.Tenants}
	r.Mux.Handle("POST /logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	changePwHandler := &ChangePasswordHandler{
		Passwords:   r.Passwords,
		Tokens:      r.Tokens,
		Tenants:     r.Tenants,
		AuthBaseURL: r.AuthBaseURL,
	}
	r.Mux.Handle("POST /changepw",
		httpx.Chain(changePwHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSignup() {
	signupHandler := &SignupHandler{Signups: r.Signups}
	r.Mux.Handle("POST /signup",
		httpx.Chain(signupHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	verifyHandler := &VerifyEmailHandler{Signups: r.Signups}
	r.Mux.Handle("GET /verify-email",
		httpx.Chain(verifyHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	regionsHandler := &RegionsHandler{Signups: r.Signups}
	r.Mux.Handle("GET /regions",
		httpx.Chain(regionsHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, func() bool {
			return r.Tokens != nil && r.Tokens.Signer != nil
		}),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Refresh the blacklist gauge on every scrape.
	metrics := obs.Handler()
	r.Mux.Handle("GET /metrics", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		obs.SetRevokedTokens(r.Tokens.Revoked.Len())
		metrics.ServeHTTP(w, req)
	}))
}
