package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

func TestCallerContextRoundTrip(t *testing.T) {
	in := Caller{Email: "alice@example.com", Roles: roles.NewSet(roles.Publisher), BusinessUnitID: "eng"}
	got, ok := CallerFromContext(WithCaller(context.Background(), in))
	if !ok {
		t.Fatal("expected caller in context, got none")
	}
	if got.Email != in.Email || got.BusinessUnitID != in.BusinessUnitID {
		t.Errorf("caller = %+v, want %+v", got, in)
	}
	if !got.Has(roles.Publisher) {
		t.Error("expected publisher role")
	}
}

func TestCallerFromContextMissing(t *testing.T) {
	c, ok := CallerFromContext(context.Background())
	if ok {
		t.Error("expected no caller in empty context")
	}
	if !c.Anonymous() || c.Roles == nil || c.Roles.Cardinality() != 0 {
		t.Errorf("expected anonymous caller with empty role set, got %+v", c)
	}
}

func TestIdentityMiddleware_Headers(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		roles     string
		bu        string
		wantEmail string
		wantRoles []string
		wantBU    string
	}{
		{
			name:      "all headers present",
			email:     " Alice@Example.com ",
			roles:     "publisher, Product Admin",
			bu:        "Engineering",
			wantEmail: "alice@example.com",
			wantRoles: []string{"product_admin", "publisher"},
			wantBU:    "eng",
		},
		{
			name:      "unknown roles grant nothing",
			email:     "bob@example.com",
			roles:     "superuser,,",
			wantEmail: "bob@example.com",
			wantRoles: []string{},
		},
		{
			name:      "no headers",
			wantRoles: []string{},
		},
		{
			name:      "governance without business unit",
			email:     "gov@example.com",
			roles:     "platform_governance",
			bu:        "Unknown Org",
			wantEmail: "gov@example.com",
			wantRoles: []string{"platform_governance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Caller
			handler := IdentityMiddleware(HeaderCallerExtractor(roles.NewResolver(nil)), nil)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					got, _ = CallerFromContext(r.Context())
				}),
			)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.email != "" {
				req.Header.Set(HeaderUserEmail, tt.email)
			}
			if tt.roles != "" {
				req.Header.Set(HeaderUserRoles, tt.roles)
			}
			if tt.bu != "" {
				req.Header.Set(HeaderBusinessUnit, tt.bu)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got.Email != tt.wantEmail {
				t.Errorf("Email = %q, want %q", got.Email, tt.wantEmail)
			}
			if got.BusinessUnitID != tt.wantBU {
				t.Errorf("BusinessUnitID = %q, want %q", got.BusinessUnitID, tt.wantBU)
			}
			gotRoles := got.RoleStrings()
			if len(gotRoles) != len(tt.wantRoles) {
				t.Fatalf("roles = %v, want %v", gotRoles, tt.wantRoles)
			}
			for i := range gotRoles {
				if gotRoles[i] != tt.wantRoles[i] {
					t.Errorf("roles[%d] = %q, want %q", i, gotRoles[i], tt.wantRoles[i])
				}
			}
		})
	}
}

func TestParseAuthMode(t *testing.T) {
	if ParseAuthMode("JWT") != AuthModeJWT {
		t.Error("expected jwt mode")
	}
	if ParseAuthMode("") != AuthModeHeader || ParseAuthMode("other") != AuthModeHeader {
		t.Error("expected header mode by default")
	}
}

func TestNewCallerExtractor_UnknownMode(t *testing.T) {
	if _, err := NewCallerExtractor(Config{Mode: "kerberos"}, roles.NewResolver(nil), nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}
