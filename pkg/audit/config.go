package audit

// AuditConfig controls audit behavior.
type AuditConfig struct {
	RetentionDays int  `mapstructure:"retention-days"` // Default 90; 0 keeps events forever
	LogDenied     bool `mapstructure:"log-denied"`     // Whether to record 401/403 attempts
	Enabled       bool `mapstructure:"enabled"`        // Whether audit middleware is active
}

// DefaultAuditConfig returns the default configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		RetentionDays: 90,
		LogDenied:     true,
		Enabled:       true,
	}
}
