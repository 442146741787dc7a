// Package authz resolves the caller of a governance request. It supports
// trusted-proxy headers and JWT bearer tokens and hands the result to
// handlers as an explicit Caller value.
package authz

import (
	"net/http"
	"strings"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// Caller is the resolved identity of whoever is making a request.
type Caller struct {
	Email string
	Roles roles.Set
	// BusinessUnitID is derived from the identity provider's display name and
	// may be empty.
	BusinessUnitID string
	// Unrecognized lists role names that did not normalize. Logging only.
	Unrecognized []string
}

// Has reports whether the caller holds any of tags.
func (c Caller) Has(tags ...roles.Tag) bool {
	return roles.HasAny(c.Roles, tags...)
}

// Anonymous reports whether no identity was presented.
func (c Caller) Anonymous() bool {
	return c.Email == ""
}

// RoleStrings returns the caller's roles sorted by name.
func (c Caller) RoleStrings() []string {
	return roles.Strings(c.Roles)
}

// CallerExtractor resolves a Caller from an HTTP request. Extractors never
// fail the request; an unusable identity yields an anonymous Caller that
// holds no roles.
type CallerExtractor func(r *http.Request) Caller

// AuthMode selects how callers are identified.
type AuthMode string

const (
	// AuthModeHeader trusts identity headers set by an authenticating proxy.
	AuthModeHeader AuthMode = "header"
	// AuthModeJWT reads identity from an Authorization bearer token.
	AuthModeJWT AuthMode = "jwt"
)

// ParseAuthMode returns the mode named by s, defaulting to header mode.
func ParseAuthMode(s string) AuthMode {
	switch AuthMode(strings.ToLower(strings.TrimSpace(s))) {
	case AuthModeJWT:
		return AuthModeJWT
	default:
		return AuthModeHeader
	}
}

// splitList splits a comma separated header value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
