package ha

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "governance-migration", cfg.LockName)
	assert.Equal(t, 30, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryInterval)
	assert.Equal(t, 5*time.Minute, cfg.StaleAge)
	assert.NotEmpty(t, cfg.Identity)
}

func TestDefaultConfig_IdentityFromPodName(t *testing.T) {
	t.Setenv("POD_NAME", "governance-server-abc-123")

	assert.Equal(t, "governance-server-abc-123", DefaultConfig().Identity)
}

func TestConfig_WithDefaults(t *testing.T) {
	var nilCfg *Config
	assert.Equal(t, DefaultConfig().LockName, nilCfg.withDefaults().LockName)

	partial := &Config{Enabled: true, LockName: "custom", RetryInterval: -1}
	got := partial.withDefaults()
	assert.Equal(t, "custom", got.LockName)
	assert.Equal(t, 30, got.MaxRetries)
	assert.Equal(t, time.Second, got.RetryInterval)
	assert.Equal(t, 5*time.Minute, got.StaleAge)
	assert.Equal(t, -1*time.Nanosecond, partial.RetryInterval, "withDefaults must not mutate its receiver")
}
