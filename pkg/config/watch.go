package config

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// LoadDirectory reads the business-unit directory at path. An empty path
// yields the built-in directory.
func LoadDirectory(path string) (*roles.Directory, error) {
	if path == "" {
		return roles.DefaultDirectory(), nil
	}
	return roles.LoadDirectory(path)
}

// WatchDirectory passes the directory at path to apply whenever the file
// changes. A file that fails to parse is skipped so the previous directory
// stays in place. An empty path disables watching.
func WatchDirectory(path string, apply func(*roles.Directory), logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read directory %q: %w", path, err)
	}
	v.OnConfigChange(directoryReloader(apply, logger))
	v.WatchConfig()
	logger.Info("watching role directory", "path", path)
	return nil
}

func directoryReloader(apply func(*roles.Directory), logger *slog.Logger) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		dir, err := roles.LoadDirectory(e.Name)
		if err != nil {
			logger.Warn("role directory reload failed, keeping previous", "path", e.Name, "error", err)
			return
		}
		apply(dir)
		logger.Info("role directory reloaded", "path", e.Name, "businessUnits", len(dir.BusinessUnits))
	}
}
