// Package config loads the governance server configuration from flags,
// GOVERNANCE_* environment variables and an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/audit"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/cache"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/ha"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// EnvPrefix prefixes every environment variable, e.g. GOVERNANCE_DB_DSN.
const EnvPrefix = "GOVERNANCE"

// Config is the resolved server configuration.
type Config struct {
	Listen          string
	DatabaseType    string
	DatabaseDSN     string
	DirectoryPath   string
	CORSOrigins     []string
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	Auth          authz.Config
	Audit         audit.AuditConfig
	AuditReaders  []roles.Tag
	MigrationLock ha.Config
	Cache         cache.Config

	// File is the config file that was read, if any.
	File string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8080",
		DatabaseType:    "sqlite",
		DatabaseDSN:     "governance.db",
		CORSOrigins:     []string{"*"},
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 30 * time.Second,
		Auth:            authz.Config{Mode: authz.AuthModeHeader},
		Audit:           *audit.DefaultAuditConfig(),
		AuditReaders:    []roles.Tag{roles.PlatformGovernance, roles.PlatformAdmin},
		MigrationLock:   *ha.DefaultConfig(),
		Cache:           *cache.DefaultConfig(),
	}
}

// RegisterFlags adds every server flag to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("config", "", "path to a YAML config file")
	fs.String("listen", d.Listen, "address to listen on")
	fs.String("db-type", d.DatabaseType, "database type (sqlite, postgres or mysql)")
	fs.String("db-dsn", d.DatabaseDSN, "database connection string")
	fs.String("directory", "", "path to the business-unit and role-alias directory YAML")
	fs.StringSlice("cors-origins", d.CORSOrigins, "allowed CORS origins")
	fs.String("log-level", d.LogLevel.String(), "log level (debug, info, warn, error)")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "graceful shutdown timeout")

	fs.String("auth-mode", string(d.Auth.Mode), "caller identification (header or jwt)")
	fs.String("jwt-email-claim", "email", "JWT claim holding the caller email")
	fs.String("jwt-roles-claim", "roles", "JWT claim holding the caller roles")
	fs.String("jwt-business-unit-claim", "business_unit", "JWT claim holding the business unit")
	fs.String("jwt-public-key", "", "PEM RSA public key used to verify tokens")
	fs.String("jwt-issuer", "", "expected token issuer")
	fs.String("jwt-audience", "", "expected token audience")

	fs.Bool("audit-enabled", d.Audit.Enabled, "record governance mutations in the request trail")
	fs.Bool("audit-log-denied", d.Audit.LogDenied, "record denied and refused attempts")
	fs.Int("audit-retention-days", d.Audit.RetentionDays, "days to keep request events; 0 keeps them forever")
	fs.StringSlice("audit-readers", roleNames(d.AuditReaders), "roles allowed to read the audit API")

	fs.Bool("migration-lock", d.MigrationLock.Enabled, "serialize schema migration across replicas")
	fs.String("migration-lock-name", d.MigrationLock.LockName, "migration lock name")
	fs.Duration("migration-lock-stale-age", d.MigrationLock.StaleAge, "age after which a held migration lock is reclaimed")

	fs.Bool("cache-enabled", d.Cache.Enabled, "cache lifecycle, role and business-unit responses")
	fs.Duration("cache-ttl", d.Cache.TTL, "metadata cache entry lifetime")
	fs.Int("cache-max-size", d.Cache.MaxSize, "maximum cached metadata responses")
}

// Load resolves the configuration. Precedence is flags, then environment,
// then the config file, then defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	if path := strings.TrimSpace(v.GetString("config")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
		cfg.File = path
	}

	cfg.Listen = v.GetString("listen")
	cfg.DatabaseType = strings.ToLower(v.GetString("db-type"))
	cfg.DatabaseDSN = v.GetString("db-dsn")
	cfg.DirectoryPath = v.GetString("directory")
	cfg.CORSOrigins = listValue(v, "cors-origins")
	cfg.ShutdownTimeout = v.GetDuration("shutdown-timeout")
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("parse log-level: %w", err)
	}

	cfg.Auth = authz.Config{
		Mode: authz.ParseAuthMode(v.GetString("auth-mode")),
		JWT: authz.JWTConfig{
			EmailClaim:        v.GetString("jwt-email-claim"),
			RolesClaim:        v.GetString("jwt-roles-claim"),
			BusinessUnitClaim: v.GetString("jwt-business-unit-claim"),
			PublicKeyPath:     v.GetString("jwt-public-key"),
			Issuer:            v.GetString("jwt-issuer"),
			Audience:          v.GetString("jwt-audience"),
		},
	}

	cfg.Audit = audit.AuditConfig{
		Enabled:       v.GetBool("audit-enabled"),
		LogDenied:     v.GetBool("audit-log-denied"),
		RetentionDays: v.GetInt("audit-retention-days"),
	}
	if cfg.Audit.RetentionDays < 0 {
		return nil, fmt.Errorf("audit-retention-days must not be negative, got %d", cfg.Audit.RetentionDays)
	}
	readers, err := parseRoles(listValue(v, "audit-readers"))
	if err != nil {
		return nil, err
	}
	cfg.AuditReaders = readers

	cfg.MigrationLock.Enabled = v.GetBool("migration-lock")
	cfg.MigrationLock.LockName = v.GetString("migration-lock-name")
	cfg.MigrationLock.StaleAge = v.GetDuration("migration-lock-stale-age")

	cfg.Cache = cache.Config{
		Enabled: v.GetBool("cache-enabled"),
		TTL:     v.GetDuration("cache-ttl"),
		MaxSize: v.GetInt("cache-max-size"),
	}
	if cfg.Cache.Enabled && (cfg.Cache.TTL <= 0 || cfg.Cache.MaxSize <= 0) {
		return nil, fmt.Errorf("cache-ttl and cache-max-size must be positive when caching is enabled")
	}

	return cfg, nil
}

// listValue reads a list that may arrive as a flag slice, a YAML sequence or
// a comma separated environment variable.
func listValue(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseRoles(names []string) ([]roles.Tag, error) {
	out := make([]roles.Tag, 0, len(names))
	for _, name := range names {
		t := roles.Tag(strings.ToLower(name))
		if !t.Valid() {
			return nil, fmt.Errorf("audit-readers: unknown role %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}

func roleNames(tags []roles.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
