package authz

import (
	"fmt"
	"log/slog"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// Config selects and configures caller identification.
type Config struct {
	Mode AuthMode
	JWT  JWTConfig
}

// NewCallerExtractor builds the extractor for cfg.Mode.
func NewCallerExtractor(cfg Config, resolver *roles.Resolver, logger *slog.Logger) (CallerExtractor, error) {
	switch cfg.Mode {
	case AuthModeJWT:
		if cfg.JWT.Logger == nil {
			cfg.JWT.Logger = logger
		}
		extract, err := NewJWTCallerExtractor(cfg.JWT, resolver)
		if err != nil {
			return nil, fmt.Errorf("configure jwt auth: %w", err)
		}
		return extract, nil
	case AuthModeHeader, "":
		return HeaderCallerExtractor(resolver), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}
