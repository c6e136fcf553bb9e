package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kommerce/tradegate/internal/auth/domain"
	"github.com/kommerce/tradegate/internal/auth/tenant"
)

// preAuthCookieName is the short-lived cookie that bridges the password step
// and the TOTP step of login. It is deliberately unsigned: it grants nothing
// by itself, it only tells /login-otp which account is mid-login, and the
// TOTP code is still required before a session exists.
const preAuthCookieName = "user"

var errNoPreAuth = errors.New("no pre-auth cookie")

type preAuthPayload struct {
	domain.PreAuthUser
	Exp int64 `json:"exp"`
}

func setPreAuthCookie(w http.ResponseWriter, user domain.PreAuthUser, ttl time.Duration) error {
	payload, err := json.Marshal(preAuthPayload{
		PreAuthUser: user,
		Exp:         time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     preAuthCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func readPreAuthCookie(r *http.Request) (domain.PreAuthUser, error) {
	c, err := r.Cookie(preAuthCookieName)
	if err != nil {
		return domain.PreAuthUser{}, errNoPreAuth
	}

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return domain.PreAuthUser{}, errNoPreAuth
	}

	var payload preAuthPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.PreAuthUser{}, errNoPreAuth
	}

	if payload.Exp != 0 && time.Now().Unix() > payload.Exp {
		return domain.PreAuthUser{}, errNoPreAuth
	}
	if payload.Username == "" || payload.Role == "" {
		return domain.PreAuthUser{}, errNoPreAuth
	}

	return payload.PreAuthUser, nil
}

func clearPreAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     preAuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func clearSessionCookie(w http.ResponseWriter, cookieName string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// sessionCookie resolves which tenant cookie a request carries its session
// token in, from the request's Referer origin, and returns the cookie name
// and token. An unknown or missing origin means there is no session to read.
func sessionCookie(r *http.Request, t *tenant.Table) (name, token string, err error) {
	referer := r.Header.Get("Referer")
	if referer == "" {
		return "", "", tenant.ErrUnknownOrigin
	}

	origin, err := tenant.OriginOf(referer)
	if err != nil {
		return "", "", tenant.ErrUnknownOrigin
	}

	name, err = t.Resolve(origin)
	if err != nil {
		return "", "", err
	}

	c, err := r.Cookie(name)
	if err != nil {
		return name, "", http.ErrNoCookie
	}
	return name, c.Value, nil
}
