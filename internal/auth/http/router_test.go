package http_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
	authhttp "github.com/kommerce/tradegate/internal/auth/http"
	"github.com/kommerce/tradegate/internal/auth/ledger"
	"github.com/kommerce/tradegate/internal/auth/revocation"
	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/internal/auth/store/drivers/sqlite"
	"github.com/kommerce/tradegate/internal/auth/tenant"
	"github.com/kommerce/tradegate/pkg/cryptox"
	"github.com/kommerce/tradegate/pkg/idx"
	"github.com/kommerce/tradegate/pkg/jwtx"
	"github.com/kommerce/tradegate/pkg/slogx"

	"github.com/go-playground/validator/v10"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

const exporterBackend = "http://localhost:8051"

type testEnv struct {
	router *authhttp.Router
	store  *sqlite.Store
	tokens *service.TokenService
	totp   *service.TOTPService
	mail   *captureMailer
}

type captureMailer struct {
	reqID, code string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, _, _, requestID, code string) error {
	m.reqID, m.code = requestID, code
	return nil
}

func backendURLs() map[domain.Role]string {
	return map[domain.Role]string{
		domain.RoleExporter:   exporterBackend,
		domain.RoleImporter:   "http://localhost:8052",
		domain.RoleFinancier:  "http://localhost:8053",
		domain.RoleLogistics:  "http://localhost:8054",
		domain.RoleInspector1: "http://localhost:8055",
		domain.RoleInspector2: "http://localhost:8056",
		domain.RolePlatform:   "http://localhost:8057",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	table, err := tenant.NewTable(backendURLs())
	require.NoError(t, err)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tokens := &service.TokenService{
		Signer:   jwtx.NewSignerFromKey(key),
		Verifier: jwtx.NewVerifierFromKey(&key.PublicKey),
		Revoked:  revocation.NewStore(time.Minute),
		Network:  "ktf-trade-net",
		TokenTTL: 15 * time.Minute,
	}

	logger := slogx.New(slogx.Config{Service: "auth", Env: "test", Level: "error", Format: "text"})

	mail := &captureMailer{}
	totpSvc := &service.TOTPService{Store: st, Issuer: "Kommerce"}
	creds := &service.CredentialService{Store: st}

	r := authhttp.NewRouter(table, tokens, "test", st, logger)
	r.Credentials = creds
	r.TOTP = totpSvc
	r.Passwords = &service.PasswordService{Store: st, Credentials: creds}
	r.Signups = &service.SignupService{
		Store:    st,
		Mailer:   mail,
		Recorder: &ledger.LogRecorder{Logger: logger},
		Network:  "ktf-trade-net",
		Validate: validator.New(),
	}
	r.AuthBaseURL = "http://localhost:8050"
	r.PreAuthTTL = 3 * time.Minute
	r.ApplyRoutes()

	return &testEnv{router: r, store: st, tokens: tokens, totp: totpSvc, mail: mail}
}

func (e *testEnv) createAccount(t *testing.T, username string, role domain.Role, password string) domain.Account {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	a := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Role:         role,
		PasswordHash: hash,
		Status:       domain.StatusActive,
	}
	require.NoError(t, e.store.Accounts().Create(context.Background(), a))
	return a
}

func postJSON(t *testing.T, path string, body any, cookies ...*http.Cookie) *http.Request {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type loginBody struct {
	Login bool   `json:"login"`
	Msg   string `json:"msg"`
}

type otpBody struct {
	TwoFA bool   `json:"twofa"`
	Token string `json:"token"`
	URL   string `json:"url"`
	Msg   string `json:"msg"`
}

// login runs the password step and returns the pre-auth cookie.
func (e *testEnv) login(t *testing.T, username, role, password string) *http.Cookie {
	t.Helper()

	rec := e.do(postJSON(t, "/login", map[string]string{
		"username": username,
		"acctRole": role,
		"password": password,
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[loginBody](t, rec)
	require.True(t, body.Login)

	c := cookieByName(rec, "user")
	require.NotNil(t, c)
	return c
}

// fullLogin runs password + TOTP enrollment + code verification and returns
// a live session token.
func (e *testEnv) fullLogin(t *testing.T, username, role, password string) string {
	t.Helper()

	pre := e.login(t, username, role, password)

	// Pull the QR to trigger enrollment.
	req := httptest.NewRequest(http.MethodGet, "/qr-image", nil)
	req.AddCookie(pre)
	rec := e.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	parsedRole, err := domain.ParseRole(role)
	require.NoError(t, err)

	sec, err := e.store.TOTPSecrets().Get(context.Background(), username, parsedRole)
	require.NoError(t, err)

	code, err := totp.GenerateCodeCustom(sec.Secret, time.Now(), totp.ValidateOpts{
		Period:    sec.Period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)

	rec = e.do(postJSON(t, "/login-otp", map[string]string{"otpCode": code}, pre))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[otpBody](t, rec)
	require.True(t, body.TwoFA)
	require.NotEmpty(t, body.Token)
	require.Equal(t, exporterBackend+"/main/home", body.URL)
	return body.Token
}

func TestLoginHappyPath(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")

	c := e.login(t, "acme", "Exporter", "Sup3r$ecret")
	require.True(t, c.HttpOnly)
	require.Greater(t, c.MaxAge, 0)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")

	inactive := domain.Account{
		ID:           idx.New().String(),
		Username:     "frozen",
		Role:         domain.RoleExporter,
		PasswordHash: "x",
		Status:       domain.StatusInactive,
	}
	require.NoError(t, e.store.Accounts().Create(context.Background(), inactive))

	cases := []map[string]string{
		{"username": "ghost", "acctRole": "Exporter", "password": "whatever"},
		{"username": "acme", "acctRole": "Exporter", "password": "wrong"},
		{"username": "acme", "acctRole": "Importer", "password": "Sup3r$ecret"},
		{"username": "frozen", "acctRole": "Exporter", "password": "whatever"},
	}
	for _, c := range cases {
		rec := e.do(postJSON(t, "/login", c))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[loginBody](t, rec)
		require.False(t, body.Login)
		require.Equal(t, "Incorrect username or password", body.Msg)
		require.Nil(t, cookieByName(rec, "user"))
	}
}

func TestFullLoginFlowIssuesToken(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")

	token := e.fullLogin(t, "acme", "Exporter", "Sup3r$ecret")

	claims, err := e.tokens.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "acme", claims.Username)
	require.Equal(t, "Exporter", claims.Role)
	require.Equal(t, "ktf-trade-net", claims.Network)
}

func TestQRImageNullAfterVerification(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")

	e.fullLogin(t, "acme", "Exporter", "Sup3r$ecret")

	// Second login: password step again, then the QR must be gone.
	pre := e.login(t, "acme", "Exporter", "Sup3r$ecret")
	req := httptest.NewRequest(http.MethodGet, "/qr-image", nil)
	req.AddCookie(pre)
	rec := e.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]*string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Nil(t, body["otpUrl"])
}

func TestQRImageWithoutPreAuthRedirects(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/qr-image", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestOTPRejectsBadCode(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")

	pre := e.login(t, "acme", "Exporter", "Sup3r$ecret")

	req := httptest.NewRequest(http.MethodGet, "/qr-image", nil)
	req.AddCookie(pre)
	e.do(req)

	rec := e.do(postJSON(t, "/login-otp", map[string]string{"otpCode": "000000"}, pre))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[otpBody](t, rec)
	require.False(t, body.TwoFA)
	require.Equal(t, "Invalid one-time code", body.Msg)
}

func sessionRequest(t *testing.T, method, path, token string, body any) *http.Request {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = postJSON(t, path, body)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Referer", exporterBackend+"/main/home")
	req.AddCookie(&http.Cookie{Name: "exporters_authtoken", Value: token})
	return req
}

func TestRefreshRotatesToken(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")
	token := e.fullLogin(t, "acme", "Exporter", "Sup3r$ecret")

	rec := e.do(sessionRequest(t, http.MethodPost, "/refresh", token, map[string]string{}))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.NotEqual(t, token, body.Token)

	// The old token is now blacklisted.
	_, err := e.tokens.Verify(token)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	_, err = e.tokens.Verify(body.Token)
	require.NoError(t, err)
}

func TestLogoutRevokesAndClearsCookie(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")
	token := e.fullLogin(t, "acme", "Exporter", "Sup3r$ecret")

	rec := e.do(sessionRequest(t, http.MethodPost, "/logout", token, map[string]string{}))
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := cookieByName(rec, "exporters_authtoken")
	require.NotNil(t, cleared)
	require.Less(t, cleared.MaxAge, 0)

	_, err := e.tokens.Verify(token)
	require.ErrorIs(t, err, service.ErrTokenRevoked)
}

func TestLogoutWithGarbageTokenIs401(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(sessionRequest(t, http.MethodPost, "/logout", "garbage", map[string]string{}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordKillsSession(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Old$ecret1")
	token := e.fullLogin(t, "acme", "Exporter", "Old$ecret1")

	rec := e.do(sessionRequest(t, http.MethodPost, "/changepw", token, map[string]string{
		"curpw":     "Old$ecret1",
		"newpw":     "New$ecret2",
		"confirmpw": "New$ecret2",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success     bool   `json:"success"`
		Msg         string `json:"msg"`
		RedirectURL string `json:"redirectURL"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, "http://localhost:8050/login", body.RedirectURL)

	_, err := e.tokens.Verify(token)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	// The new password works for the next login.
	e.login(t, "acme", "Exporter", "New$ecret2")
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Old$ecret1")
	token := e.fullLogin(t, "acme", "Exporter", "Old$ecret1")

	rec := e.do(sessionRequest(t, http.MethodPost, "/changepw", token, map[string]string{
		"curpw":     "not-it",
		"newpw":     "New$ecret2",
		"confirmpw": "New$ecret2",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)

	// Session survives a failed attempt.
	_, err := e.tokens.Verify(token)
	require.NoError(t, err)
}

func TestGateBouncesAuthenticatedUserToBackend(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")
	token := e.fullLogin(t, "acme", "Exporter", "Sup3r$ecret")

	req := sessionRequest(t, http.MethodGet, "/login", token, nil)
	rec := e.do(req)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, exporterBackend+"/main/home", rec.Header().Get("Location"))
}

func TestGateRevokedTokenOnSecuredPathRedirectsToLogin(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")
	token := e.fullLogin(t, "acme", "Exporter", "Sup3r$ecret")
	require.NoError(t, e.tokens.Revoke(token))

	rec := e.do(sessionRequest(t, http.MethodPost, "/refresh", token, map[string]string{}))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGateRevokedTokenMayStillBrowsePublicPages(t *testing.T) {
	e := newTestEnv(t)
	e.createAccount(t, "acme", domain.RoleExporter, "Sup3r$ecret")
	token := e.fullLogin(t, "acme", "Exporter", "Sup3r$ecret")
	require.NoError(t, e.tokens.Revoke(token))

	req := sessionRequest(t, http.MethodGet, "/login", token, nil)
	rec := e.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGateAnonymousPassesThrough(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Login")
}

func TestGateLoginOTPNeedsPreAuth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/login-otp", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSignupAndVerifyEmail(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(postJSON(t, "/signup", map[string]string{
		"username": "new_importer",
		"password": "Sup3r$ecret",
		"acctRole": "Importer",
		"region":   "Europe",
		"email":    "ops@example.com",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, "Successful Registration", body.Msg)
	require.NotEmpty(t, e.mail.code)

	// The id and code travel together in the mail link.
	verifyReq := httptest.NewRequest(http.MethodGet, "/verify-email?id="+e.mail.reqID+"&vcode="+e.mail.code, nil)
	vrec := e.do(verifyReq)
	require.Equal(t, http.StatusFound, vrec.Code)
	require.Equal(t, "/?msg=Email Verified", vrec.Header().Get("Location"))

	// The account is live now.
	_, err := e.store.Accounts().GetByUsernameRole(context.Background(), "new_importer", domain.RoleImporter)
	require.NoError(t, err)
}

func TestSignupWeakPassword(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(postJSON(t, "/signup", map[string]string{
		"username": "new_importer",
		"password": "weak",
		"acctRole": "Importer",
		"email":    "ops@example.com",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Contains(t, body.Msg, "does not meet the requirements")
}

func TestRegionsEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/regions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var regions []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regions))
	require.Contains(t, regions, "Europe")
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
