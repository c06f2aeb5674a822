/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/courseboard/internal/api"
	"github.com/friendsincode/courseboard/internal/audit"
	"github.com/friendsincode/courseboard/internal/cache"
	"github.com/friendsincode/courseboard/internal/config"
	"github.com/friendsincode/courseboard/internal/db"
	"github.com/friendsincode/courseboard/internal/eventbus"
	"github.com/friendsincode/courseboard/internal/events"
	"github.com/friendsincode/courseboard/internal/ingest"
	"github.com/friendsincode/courseboard/internal/leadership"
	"github.com/friendsincode/courseboard/internal/logbuffer"
	"github.com/friendsincode/courseboard/internal/schedule"
	"github.com/friendsincode/courseboard/internal/sheets"
	"github.com/friendsincode/courseboard/internal/telemetry"
	"github.com/friendsincode/courseboard/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	logBuffer     *logbuffer.Buffer
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db          *gorm.DB
	cache       *cache.Cache
	bus         *events.Bus
	bridge      *eventbus.Bridge
	scheduleSvc *schedule.Service
	ingestSvc   *ingest.Service
	auditSvc    *audit.Service
	gridSource  ingest.GridSource
	refresher   *ingest.Refresher
	election    *leadership.Election
	api         *api.API
	versions    *version.Checker

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("courseboard-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		logBuffer: logBuf,
		router:    router,
		bus:       events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	if err := db.RegisterCallbacks(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		cacheCfg.WeekScheduleTTL = s.cfg.CacheTTL
		scheduleCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = scheduleCache
			s.DeferClose(func() error { return s.cache.Close() })
		}
	}

	s.scheduleSvc = schedule.NewService(database, s.bus, s.cache, s.logger)
	s.ingestSvc = ingest.NewService(database, s.bus, s.logger)
	s.auditSvc = audit.NewService(database, s.bus, s.logger)

	if s.cfg.SheetsToken != "" {
		client, err := sheets.NewClient(s.cfg.SheetsBaseURL, sheets.StaticToken(s.cfg.SheetsToken))
		if err != nil {
			return fmt.Errorf("create sheets client: %w", err)
		}
		s.gridSource = client
	}

	if err := syncCampusRegistry(database, s.cfg.CampusFile, s.logger); err != nil {
		return err
	}

	if err := s.ingestSvc.RecoverStaleJobs(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("stale import job recovery failed")
	}

	if s.cfg.NATSEnabled {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		bridge, err := eventbus.NewBridge(natsCfg, s.bus, []events.EventType{
			events.EventScheduleImported,
			events.EventEventCreated,
			events.EventEventUpdated,
			events.EventEventDeleted,
		}, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", s.cfg.NATSURL).Msg("NATS bridge unavailable, running with local bus only")
		} else {
			s.bridge = bridge
			s.DeferClose(func() error { return s.bridge.Close() })
		}
	}

	if s.cfg.ImportInterval > 0 && s.gridSource != nil {
		var isLeader func() bool
		if s.cfg.LeaderElectionEnabled {
			electionCfg := leadership.DefaultConfig()
			electionCfg.RedisAddr = s.cfg.RedisAddr
			electionCfg.RedisPassword = s.cfg.RedisPassword
			electionCfg.RedisDB = s.cfg.RedisDB
			if s.cfg.InstanceID != "" {
				electionCfg.InstanceID = s.cfg.InstanceID
			}

			election, err := leadership.NewElection(electionCfg, s.logger)
			if err != nil {
				return fmt.Errorf("create leader election: %w", err)
			}
			s.election = election
			s.DeferClose(func() error { return s.election.Stop() })
			isLeader = election.IsLeader
		}
		s.refresher = ingest.NewRefresher(database, s.ingestSvc, s.gridSource, s.cfg.ImportInterval, isLeader, s.logger)
	}

	s.versions = version.NewChecker(s.logger)

	s.api = api.New(database, []byte(s.cfg.JWTSigningKey), s.scheduleSvc, s.ingestSvc, s.auditSvc, s.gridSource, s.bus, s.logBuffer, s.logger)

	return nil
}

// syncCampusRegistry upserts campus rows from the YAML registry file.
// Campuses created through the API and absent from the file are left alone.
func syncCampusRegistry(database *gorm.DB, path string, logger zerolog.Logger) error {
	entries, err := config.LoadCampuses(path)
	if err != nil {
		return fmt.Errorf("load campus registry: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	for _, entry := range entries {
		campus := entry.Campus()
		err := database.
			Where("id = ?", campus.ID).
			Assign(map[string]any{
				"name":           campus.Name,
				"spreadsheet_id": campus.SpreadsheetID,
				"position":       campus.Position,
			}).
			FirstOrCreate(&campus).Error
		if err != nil {
			return fmt.Errorf("sync campus %s: %w", campus.ID, err)
		}
	}
	logger.Info().Int("campuses", len(entries)).Str("file", path).Msg("campus registry synced")
	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.metricsServer.Shutdown(ctx)
		cancel()
	}
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	// Database metrics updater
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	s.versions.Start(ctx)

	if s.election != nil {
		if err := s.election.Start(ctx); err != nil {
			s.logger.Error().Err(err).Msg("leader election failed to start")
		}
	}

	if s.refresher != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("import refresher exited")
			}
		}()
	}

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}

	// Separate metrics listener so /metrics is never exposed on the API port.
	if s.cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		s.metricsServer = &http.Server{
			Addr:              s.cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 15 * time.Second,
		}
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error().Err(err).Str("bind", s.cfg.MetricsBind).Msg("metrics listener exited")
			}
		}()
	}
}

// runCacheInvalidationListener drops cached weeks when schedule data changes,
// including changes relayed from other instances over NATS.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	imported := s.bus.Subscribe(events.EventScheduleImported)
	created := s.bus.Subscribe(events.EventEventCreated)
	updated := s.bus.Subscribe(events.EventEventUpdated)
	deleted := s.bus.Subscribe(events.EventEventDeleted)

	defer func() {
		s.bus.Unsubscribe(events.EventScheduleImported, imported)
		s.bus.Unsubscribe(events.EventEventCreated, created)
		s.bus.Unsubscribe(events.EventEventUpdated, updated)
		s.bus.Unsubscribe(events.EventEventDeleted, deleted)
	}()

	invalidate := func(payload events.Payload) {
		campusID, ok := payload["campus_id"].(string)
		if !ok || campusID == "" {
			return
		}
		if err := s.cache.InvalidateWeekSchedule(ctx, campusID); err != nil {
			s.logger.Debug().Err(err).Str("campus_id", campusID).Msg("cache invalidation failed")
		}
	}

	s.logger.Info().Msg("cache invalidation listener started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return
		case payload := <-imported:
			invalidate(payload)
		case payload := <-created:
			invalidate(payload)
		case payload := <-updated:
			invalidate(payload)
		case payload := <-deleted:
			invalidate(payload)
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		info := s.versions.Info()
		fmt.Fprintf(w, `{"status":"ok","version":%q,"update_available":%t}`,
			version.Version, info.UpdateAvailable)
	})

	s.api.Routes(s.router)
}
