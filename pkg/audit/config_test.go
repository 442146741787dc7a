package audit

import (
	"testing"
)

func TestDefaultAuditConfig(t *testing.T) {
	cfg := DefaultAuditConfig()

	if cfg.RetentionDays != 90 {
		t.Errorf("expected RetentionDays 90, got %d", cfg.RetentionDays)
	}
	if !cfg.LogDenied {
		t.Error("expected LogDenied to be true")
	}
	if !cfg.Enabled {
		t.Error("expected Enabled to be true")
	}
}
