package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// Identity headers set by the authenticating proxy in header mode.
const (
	HeaderUserEmail    = "X-User-Email"
	HeaderUserRoles    = "X-User-Roles"
	HeaderBusinessUnit = "X-User-Business-Unit"
)

// callerCtxKey is an unexported type used as the context key for Caller.
type callerCtxKey struct{}

// WithCaller returns a new context with the given Caller attached.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, c)
}

// CallerFromContext retrieves the Caller from the context.
// Returns an anonymous Caller and false if none is set.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerCtxKey{}).(Caller)
	if !ok {
		return Caller{Roles: roles.NewSet()}, false
	}
	return c, true
}

// HeaderCallerExtractor reads X-User-Email, X-User-Roles (comma separated)
// and X-User-Business-Unit.
func HeaderCallerExtractor(resolver *roles.Resolver) CallerExtractor {
	return func(r *http.Request) Caller {
		res := resolver.Resolve(splitList(r.Header.Get(HeaderUserRoles)))
		return Caller{
			Email:          strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserEmail))),
			Roles:          res.Roles,
			BusinessUnitID: resolver.DeriveBusinessUnitID(r.Header.Get(HeaderBusinessUnit)),
			Unrecognized:   res.Unrecognized,
		}
	}
}

// IdentityMiddleware resolves the caller once per request and stores it in
// the request context.
func IdentityMiddleware(extract CallerExtractor, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := extract(r)
			if c.Roles == nil {
				c.Roles = roles.NewSet()
			}
			if len(c.Unrecognized) > 0 {
				logger.Debug("ignoring unrecognized roles", "caller", c.Email, "roles", c.Unrecognized)
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
		})
	}
}
