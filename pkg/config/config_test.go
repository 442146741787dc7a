package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	d := DefaultConfig()
	assert.Equal(t, d.Listen, cfg.Listen)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "governance.db", cfg.DatabaseDSN)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, authz.AuthModeHeader, cfg.Auth.Mode)
	assert.Equal(t, d.Audit, cfg.Audit)
	assert.Equal(t, []roles.Tag{roles.PlatformGovernance, roles.PlatformAdmin}, cfg.AuditReaders)
	assert.True(t, cfg.MigrationLock.Enabled)
	assert.Equal(t, "governance-migration", cfg.MigrationLock.LockName)
	assert.Equal(t, d.Cache, cfg.Cache)
	assert.Empty(t, cfg.File)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := Load(newFlags(t,
		"--listen=:9090",
		"--db-type=Postgres",
		"--db-dsn=host=db",
		"--auth-mode=jwt",
		"--jwt-roles-claim=realm_access.roles",
		"--cors-origins=https://a.example.com,https://b.example.com",
		"--audit-readers=platform_governance",
		"--log-level=debug",
		"--migration-lock=false",
		"--cache-ttl=5s",
		"--cache-max-size=10",
	))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "host=db", cfg.DatabaseDSN)
	assert.Equal(t, authz.AuthModeJWT, cfg.Auth.Mode)
	assert.Equal(t, "realm_access.roles", cfg.Auth.JWT.RolesClaim)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, []roles.Tag{roles.PlatformGovernance}, cfg.AuditReaders)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.False(t, cfg.MigrationLock.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Cache.MaxSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "governance.yaml", `
listen: ":7070"
db-type: mysql
db-dsn: "user:pw@tcp(db)/gov"
audit-retention-days: 7
audit-readers:
  - platform_admin
`)
	t.Setenv("GOVERNANCE_DB_DSN", "user:pw@tcp(other)/gov")
	t.Setenv("GOVERNANCE_AUDIT_LOG_DENIED", "false")

	cfg, err := Load(newFlags(t, "--config="+path))
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, "mysql", cfg.DatabaseType)
	assert.Equal(t, "user:pw@tcp(other)/gov", cfg.DatabaseDSN)
	assert.Equal(t, 7, cfg.Audit.RetentionDays)
	assert.False(t, cfg.Audit.LogDenied)
	assert.Equal(t, []roles.Tag{roles.PlatformAdmin}, cfg.AuditReaders)
}

func TestLoad_CommaSeparatedEnvList(t *testing.T) {
	t.Setenv("GOVERNANCE_AUDIT_READERS", "platform_admin, platform_governance")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, []roles.Tag{roles.PlatformAdmin, roles.PlatformGovernance}, cfg.AuditReaders)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"--config=/nonexistent/governance.yaml"}, "read config file"},
		{"bad log level", []string{"--log-level=loud"}, "log-level"},
		{"unknown reader", []string{"--audit-readers=wizard"}, "unknown role"},
		{"negative retention", []string{"--audit-retention-days=-1"}, "must not be negative"},
		{"zero cache ttl", []string{"--cache-ttl=0s"}, "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlags(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
