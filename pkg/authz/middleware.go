package authz

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// RequireCaller rejects anonymous requests with 401.
func RequireCaller() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, _ := CallerFromContext(r.Context())
			if c.Anonymous() {
				writeDenied(w, http.StatusUnauthorized, "unauthenticated", "caller identity is required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyRole returns middleware that admits callers holding at least one
// of tags and responds 403 otherwise.
func RequireAnyRole(tags ...roles.Tag) func(http.Handler) http.Handler {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, _ := CallerFromContext(r.Context())
			if !c.Has(tags...) {
				writeDenied(w, http.StatusForbidden, "forbidden",
					fmt.Sprintf("one of roles [%s] is required", strings.Join(names, ", ")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeDenied(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": msg,
	})
}
