package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

func serveWithCaller(h http.Handler, c *Caller) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if c != nil {
		req = req.WithContext(WithCaller(req.Context(), *c))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireAnyRole_Allowed(t *testing.T) {
	h := RequireAnyRole(roles.ProductAdmin, roles.PlatformGovernance)(okHandler)
	rr := serveWithCaller(h, &Caller{Email: "a@example.com", Roles: roles.NewSet(roles.PlatformGovernance)})
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRequireAnyRole_Denied(t *testing.T) {
	h := RequireAnyRole(roles.ProductAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called when denied")
	}))
	rr := serveWithCaller(h, &Caller{Email: "p@example.com", Roles: roles.NewSet(roles.Publisher)})
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["error"] != "forbidden" {
		t.Errorf("error = %q, want %q", body["error"], "forbidden")
	}
}

func TestRequireAnyRole_NoCaller(t *testing.T) {
	h := RequireAnyRole(roles.Publisher)(okHandler)
	if rr := serveWithCaller(h, nil); rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestRequireCaller(t *testing.T) {
	h := RequireCaller()(okHandler)
	if rr := serveWithCaller(h, nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if rr := serveWithCaller(h, &Caller{Email: "x@example.com", Roles: roles.NewSet()}); rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}
