package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/config"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/server"
)

// newGovernanceServer starts a real governance server on in-memory sqlite.
func newGovernanceServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	db, err := governance.OpenDatabase("sqlite", "", &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	s, err := server.New(cfg, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// run executes governancectl with args as the given caller and returns stdout.
func run(t *testing.T, srvURL, user, roleList string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	base := []string{"--server", srvURL, "--business-unit", "Engineering"}
	if user != "" {
		base = append(base, "--user", user, "--roles", roleList)
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_UseCaseApprovalFlow(t *testing.T) {
	srv := newGovernanceServer(t)

	out, err := run(t, srv.URL, "alice@example.com", "publisher", "use-cases", "create", "--title", "Invoice triage", "--tags", "finance,ops", "-o", "json")
	require.NoError(t, err)
	var uc governance.UseCase
	require.NoError(t, json.Unmarshal([]byte(out), &uc))
	assert.Equal(t, governance.State("draft"), uc.State)
	require.NotNil(t, uc.BusinessUnitID)
	assert.Equal(t, "eng", *uc.BusinessUnitID)

	out, err = run(t, srv.URL, "alice@example.com", "publisher", "use-cases", "transition", uc.ID, "submit")
	require.NoError(t, err)
	assert.Contains(t, out, "draft -> pending_product_admin (submit)")

	out, err = run(t, srv.URL, "bob@example.com", "product_admin", "pending", "--role", "product_admin")
	require.NoError(t, err)
	assert.Contains(t, out, uc.ID)

	_, err = run(t, srv.URL, "bob@example.com", "product_admin", "uc", "transition", uc.ID, "approve", "--comments", "fits the roadmap")
	require.NoError(t, err)

	out, err = run(t, srv.URL, "bob@example.com", "product_admin", "use-cases", "approvals", uc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "product_admin")
	assert.Contains(t, out, "fits the roadmap")
	assert.Contains(t, out, "Total: 1")

	out, err = run(t, srv.URL, "alice@example.com", "publisher", "use-cases", "list", "--state", "pending_platform_admin", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "id: "+uc.ID)

	out, err = run(t, srv.URL, "carol@example.com", "platform_admin", "use-cases", "permissions", uc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "approve")

	out, err = run(t, srv.URL, "gov@example.com", "platform_governance", "events", "--entity", uc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "submit")
	assert.Contains(t, out, "approve")
}

func TestCLI_RefusalCarriesErrorCode(t *testing.T) {
	srv := newGovernanceServer(t)

	out, err := run(t, srv.URL, "alice@example.com", "publisher", "use-cases", "create", "--title", "Quarterly forecasts", "-o", "json")
	require.NoError(t, err)
	var uc governance.UseCase
	require.NoError(t, json.Unmarshal([]byte(out), &uc))

	_, err = run(t, srv.URL, "alice@example.com", "publisher", "use-cases", "transition", uc.ID, "approve")
	require.Error(t, err)
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr), "unexpected error type %T", err)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "ILLEGAL_EDGE", apiErr.Code)

	_, err = run(t, srv.URL, "", "", "use-cases", "transition", uc.ID, "submit")
	require.Error(t, err)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, err = run(t, srv.URL, "alice@example.com", "publisher", "use-cases", "get", "missing")
	require.Error(t, err)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestCLI_MCPServerLifecycle(t *testing.T) {
	srv := newGovernanceServer(t)

	out, err := run(t, srv.URL, "alice@example.com", "publisher",
		"mcp-servers", "create", "--name", "ledger-tools", "--endpoint", "https://mcp.example.com/ledger", "-o", "json")
	require.NoError(t, err)
	var s governance.MCPServer
	require.NoError(t, json.Unmarshal([]byte(out), &s))

	out, err = run(t, srv.URL, "alice@example.com", "publisher", "mcp", "update", s.ID, "--tags", "Ledger", "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.NotEmpty(t, s.Tags)

	out, err = run(t, srv.URL, "alice@example.com", "publisher", "mcp-servers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger-tools")
	assert.Contains(t, out, "draft")

	_, err = run(t, srv.URL, "alice@example.com", "publisher", "mcp-servers", "delete", s.ID)
	require.Error(t, err, "only admins delete")

	out, err = run(t, srv.URL, "gov@example.com", "platform_governance", "mcp-servers", "delete", s.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted MCP server "+s.ID)
}

func TestCLI_MetadataCommands(t *testing.T) {
	srv := newGovernanceServer(t)

	out, err := run(t, srv.URL, "bob@example.com", "Product Admin", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "product_admin")
	assert.Contains(t, out, "eng")

	out, err = run(t, srv.URL, "", "", "roles")
	require.NoError(t, err)
	assert.Contains(t, out, "platform_governance")

	out, err = run(t, srv.URL, "", "", "business-units")
	require.NoError(t, err)
	assert.Contains(t, out, "Engineering")

	out, err = run(t, srv.URL, "", "", "lifecycle")
	require.NoError(t, err)
	assert.Contains(t, out, "use_case")
	assert.Contains(t, out, "mcp_server")

	out, err = run(t, srv.URL, "", "", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "alive")
	assert.Contains(t, out, "ready")
}

func TestCLI_FlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"create without title", []string{"use-cases", "create"}, "--title is required"},
		{"update without fields", []string{"use-cases", "update", "uc-1"}, "at least one of"},
		{"bad expected time", []string{"use-cases", "transition", "uc-1", "submit", "--expected-updated-at", "yesterday"}, "--expected-updated-at"},
		{"server create without endpoint", []string{"mcp-servers", "create", "--name", "x"}, "--endpoint are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "http://127.0.0.1:0", "alice@example.com", "publisher", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClientSendsIdentityHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := &governanceClient{
		baseURL:      srv.URL,
		user:         "alice@example.com",
		roles:        "publisher,product_admin",
		businessUnit: "Engineering",
		token:        "abc",
		http:         srv.Client(),
	}
	var result map[string]any
	require.NoError(t, client.getJSON(context.Background(), "/anything", &result))

	assert.Equal(t, "alice@example.com", got.Get(authz.HeaderUserEmail))
	assert.Equal(t, "publisher,product_admin", got.Get(authz.HeaderUserRoles))
	assert.Equal(t, "Engineering", got.Get(authz.HeaderBusinessUnit))
	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
}

func TestClientErrorHandling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/plain") {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
			return
		}
		w.WriteHeader(http.StatusPreconditionFailed)
		json.NewEncoder(w).Encode(map[string]string{"code": "STALE_ENTITY", "message": "entity changed"})
	}))
	defer srv.Close()

	client := &governanceClient{baseURL: srv.URL, http: srv.Client()}

	err := client.getJSON(context.Background(), "/plain", nil)
	require.Error(t, err)
	assert.Equal(t, "server returned 500: internal error", err.Error())

	err = client.postJSON(context.Background(), "/coded", map[string]string{}, nil)
	require.Error(t, err)
	assert.Equal(t, "server returned 412 STALE_ENTITY: entity changed", err.Error())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
