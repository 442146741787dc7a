// Package server assembles the governance HTTP server: database migration,
// identity and audit middleware, the governance and audit APIs, health
// probes and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/audit"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/cache"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/config"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/ha"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// API mount points.
const (
	GovernanceBasePath = "/api/governance/v1"
	AuditBasePath      = "/api/audit/v1"
)

// Server owns the long-lived components of one governance replica.
type Server struct {
	cfg      *config.Config
	db       *gorm.DB
	logger   *slog.Logger
	registry *prometheus.Registry
	resolver *roles.Resolver
	engine   *governance.Engine
	requests *audit.RequestEventStore
	extract  authz.CallerExtractor
	metadata *cache.Manager

	startedAt time.Time
	migrated  atomic.Bool
}

// New wires a Server over db. It does not touch the schema; call Init.
func New(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := config.LoadDirectory(cfg.DirectoryPath)
	if err != nil {
		return nil, fmt.Errorf("load role directory: %w", err)
	}
	resolver := roles.NewResolver(dir)

	extract, err := authz.NewCallerExtractor(cfg.Auth, resolver, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		registry: registry,
		resolver: resolver,
		engine: governance.NewEngine(db,
			governance.WithLogger(logger),
			governance.WithResolver(resolver),
			governance.WithMetrics(governance.NewMetrics(registry)),
		),
		requests:  audit.NewRequestEventStore(db),
		extract:   extract,
		metadata:  cache.NewManager(&cfg.Cache),
		startedAt: time.Now(),
	}, nil
}

// Resolver returns the role resolver.
func (s *Server) Resolver() *roles.Resolver { return s.resolver }

// ApplyDirectory swaps in a reloaded role directory and drops cached
// metadata responses built from the old one.
func (s *Server) ApplyDirectory(dir *roles.Directory) {
	s.resolver.Update(dir)
	s.metadata.InvalidateAll()
}

// Init migrates the governance and audit tables under the migration lock.
func (s *Server) Init(ctx context.Context) error {
	locker, err := ha.NewMigrationLocker(s.db, &s.cfg.MigrationLock)
	if err != nil {
		return err
	}
	err = locker.WithLock(ctx, func() error {
		if err := s.engine.Repository().AutoMigrate(ctx); err != nil {
			return err
		}
		return s.requests.AutoMigrate(ctx)
	})
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	s.migrated.Store(true)
	s.logger.Info("schema migrated", "dialect", s.db.Dialector.Name())
	return nil
}

// Start launches background loops. They stop when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	if s.cfg.Audit.Enabled && s.cfg.Audit.RetentionDays > 0 {
		go audit.NewRetentionWorker(s.requests, s.cfg.Audit.RetentionDays, s.logger).Run(ctx)
	}
}

// Handler builds the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID", authz.HeaderUserEmail, authz.HeaderUserRoles, authz.HeaderBusinessUnit},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(authz.IdentityMiddleware(s.extract, s.logger))
	if s.cfg.Audit.Enabled {
		r.Use(audit.AuditMiddleware(s.requests, &s.cfg.Audit, s.logger))
	}

	r.Mount(GovernanceBasePath, governance.NewRouter(s.engine, s.resolver,
		governance.WithMetadataMiddleware(s.metadata.Middleware())))
	r.Mount(AuditBasePath, audit.Router(s.requests, s.engine.Events(), s.cfg.AuditReaders...))

	r.Get("/healthz", s.healthHandler)
	r.Get("/livez", s.healthHandler)
	r.Get("/readyz", s.readyHandler)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// readyHandler reports ready once the schema is migrated and the database answers.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ready := true
	dbStatus := map[string]string{"status": "up"}
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		dbStatus["status"] = "down"
		dbStatus["error"] = err.Error()
		ready = false
	}

	schema := "migrated"
	if !s.migrated.Load() {
		schema = "pending"
		ready = false
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"database": dbStatus,
		"schema":   schema,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
