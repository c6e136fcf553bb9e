// Package tenant maps authenticated roles to their backend origins and
// session cookie namespaces. The table is built once at startup from
// configuration and is read-only afterwards.
package tenant

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kommerce/tradegate/internal/auth/domain"
)

var (
	// ErrUnknownOrigin means the request came from an origin that is not in
	// the routing table. Callers treat this as "do not attempt to read a
	// session cookie for this request", never as a hard failure.
	ErrUnknownOrigin = errors.New("tenant: unknown origin")

	// ErrUnknownRole means a role with no backend mapping, which can only
	// happen through a configuration bug.
	ErrUnknownRole = errors.New("tenant: unknown role")
)

// cookiePrefixes is the fixed cookie namespace per role. These names are
// shared with the backend applications and must stay in sync with them.
var cookiePrefixes = map[domain.Role]string{
	domain.RoleExporter:   "exporters",
	domain.RoleImporter:   "importers",
	domain.RoleFinancier:  "financiers",
	domain.RoleLogistics:  "logistics",
	domain.RoleInspector1: "inspector1",
	domain.RoleInspector2: "inspector2",
	domain.RolePlatform:   "platform",
}

// Backend is one tenant application this gateway fronts.
type Backend struct {
	BaseURL    string // scheme://host[:port], no trailing slash
	CookieName string // e.g. "importers_authtoken"
}

// Table is the static role/origin routing table.
type Table struct {
	backends map[domain.Role]Backend
	byOrigin map[string]domain.Role
}

// NewTable builds the table from per-role backend base URLs. Every role in
// the closed set must be mapped; a partial table is a configuration error.
func NewTable(urls map[domain.Role]string) (*Table, error) {
	t := &Table{
		backends: make(map[domain.Role]Backend, len(cookiePrefixes)),
		byOrigin: make(map[string]domain.Role, len(cookiePrefixes)),
	}

	for _, role := range domain.Roles() {
		raw, ok := urls[role]
		if !ok || raw == "" {
			return nil, fmt.Errorf("tenant: no backend URL configured for role %s", role)
		}

		origin, err := normalizeOrigin(raw)
		if err != nil {
			return nil, fmt.Errorf("tenant: bad backend URL for role %s: %w", role, err)
		}

		t.backends[role] = Backend{
			BaseURL:    origin,
			CookieName: cookiePrefixes[role] + "_authtoken",
		}
		t.byOrigin[origin] = role
	}

	return t, nil
}

// Resolve returns the session cookie name for a request origin.
func (t *Table) Resolve(origin string) (string, error) {
	role, ok := t.byOrigin[origin]
	if !ok {
		return "", ErrUnknownOrigin
	}
	return t.backends[role].CookieName, nil
}

// CookieName returns the session cookie name for a role.
func (t *Table) CookieName(role domain.Role) (string, error) {
	b, ok := t.backends[role]
	if !ok {
		return "", ErrUnknownRole
	}
	return b.CookieName, nil
}

// RedirectFor returns the landing URL of the tenant application for a role.
func (t *Table) RedirectFor(role domain.Role) (string, error) {
	b, ok := t.backends[role]
	if !ok {
		return "", ErrUnknownRole
	}
	return b.BaseURL + "/main/home", nil
}

// OriginOf extracts the scheme://host origin from a Referer-style URL.
func OriginOf(referer string) (string, error) {
	return normalizeOrigin(referer)
}

func normalizeOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host in %q", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}
