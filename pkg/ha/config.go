// Package ha provides primitives for running the governance server with
// multiple replicas sharing one database.
package ha

import (
	"os"
	"time"
)

// Config holds the migration lock settings.
type Config struct {
	// Enabled controls whether schema migration runs under a cross-replica
	// lock. When false migrations run unguarded.
	Enabled bool `mapstructure:"enabled"`

	// LockName identifies the lock. Replicas of the same deployment must
	// share it.
	LockName string `mapstructure:"lock-name"`

	// MaxRetries bounds the number of acquisition attempts of the
	// table-based lock.
	MaxRetries int `mapstructure:"max-retries"`

	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration `mapstructure:"retry-interval"`

	// StaleAge is the age after which a held table lock is assumed to
	// belong to a crashed replica and is removed.
	StaleAge time.Duration `mapstructure:"stale-age"`

	// Identity is recorded as the holder of the table lock.
	Identity string `mapstructure:"identity"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		LockName:      "governance-migration",
		MaxRetries:    30,
		RetryInterval: time.Second,
		StaleAge:      5 * time.Minute,
		Identity:      defaultIdentity(),
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.LockName == "" {
		out.LockName = d.LockName
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = d.MaxRetries
	}
	if out.RetryInterval <= 0 {
		out.RetryInterval = d.RetryInterval
	}
	if out.StaleAge <= 0 {
		out.StaleAge = d.StaleAge
	}
	if out.Identity == "" {
		out.Identity = d.Identity
	}
	return &out
}

func defaultIdentity() string {
	if v := os.Getenv("POD_NAME"); v != "" {
		return v
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "unknown"
	}
	return hostname
}
