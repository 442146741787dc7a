package cache

import "time"

// Config holds configuration for the metadata response cache.
type Config struct {
	// Enabled controls whether caching is active. When false, responses
	// pass through uncached.
	Enabled bool `mapstructure:"enabled"`

	// TTL bounds how long a cached response is served.
	TTL time.Duration `mapstructure:"ttl"`

	// MaxSize is the maximum number of cached responses.
	MaxSize int `mapstructure:"max-size"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		TTL:     60 * time.Second,
		MaxSize: 256,
	}
}
