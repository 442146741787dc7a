// Package main provides the governance server entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/pflag"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/config"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/server"
)

func main() {
	fs := pflag.NewFlagSet("governance-server", pflag.ExitOnError)
	config.RegisterFlags(fs)
	fs.AddGoFlagSet(flag.CommandLine)
	_ = fs.Parse(os.Args[1:])

	// glog only reports fatal startup errors.
	_ = flag.Set("logtostderr", "true")

	cfg, err := config.Load(fs)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	logger.Info("starting governance server",
		"listen", cfg.Listen,
		"dbType", cfg.DatabaseType,
		"authMode", cfg.Auth.Mode,
		"configFile", cfg.File,
		"directory", cfg.DirectoryPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := governance.OpenDatabase(cfg.DatabaseType, cfg.DatabaseDSN)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	srv, err := server.New(cfg, db, logger)
	if err != nil {
		glog.Fatalf("Failed to create server: %v", err)
	}
	if err := srv.Init(ctx); err != nil {
		glog.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := config.WatchDirectory(cfg.DirectoryPath, srv.ApplyDirectory, logger); err != nil {
		glog.Fatalf("Failed to watch role directory: %v", err)
	}
	srv.Start(ctx)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv.Handler(),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()
	logger.Info("governance server ready", "listen", cfg.Listen)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("governance server stopped")
}
