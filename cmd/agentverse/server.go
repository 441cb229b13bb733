package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agentverse/agentverse/api/handlers"
	"github.com/agentverse/agentverse/config"
	"github.com/agentverse/agentverse/internal/cache"
	"github.com/agentverse/agentverse/internal/database"
	"github.com/agentverse/agentverse/internal/metrics"
	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/orchestrate"
	"github.com/agentverse/agentverse/providers"
	"github.com/agentverse/agentverse/providers/gemini"
	"github.com/agentverse/agentverse/providers/mock"
	"github.com/agentverse/agentverse/providers/openai"
	"github.com/agentverse/agentverse/report"
	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/vault"
)

// Server owns the HTTP listener, the metrics listener, and every
// collaborator they depend on.
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector

	pool  *database.PoolManager
	cache *cache.Manager

	httpServer    *http.Server
	metricsServer *http.Server

	statsCancel context.CancelFunc
}

// NewServer wires the full application from configuration. The returned
// server is ready to Start.
func NewServer(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*Server, error) {
	collector := metrics.NewCollector("agentverse", nil, logger)

	pool, err := database.NewPoolManager(db, logger)
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}

	if err := store.InitDatabase(db); err != nil {
		return nil, fmt.Errorf("migrate conversation schema: %w", err)
	}
	if err := vault.InitDatabase(db); err != nil {
		return nil, fmt.Errorf("migrate vault schema: %w", err)
	}

	cipher, err := vault.NewCipher(cfg.Vault.AppSecret)
	if err != nil {
		return nil, fmt.Errorf("vault cipher: %w", err)
	}
	credentials := vault.NewGormStore(db, cipher, logger)
	sessions := store.NewGormStore(db, logger)

	var cacheManager *cache.Manager
	if cfg.Redis.Enabled {
		cacheManager, err = cache.NewManager(cache.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DefaultTTL:   cfg.Report.CacheTTL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
	}

	registry := buildRegistry(cfg.Providers, logger)

	orchCfg := orchestrate.DefaultConfig()
	if cfg.Orchestrator.MaxRounds > 0 {
		orchCfg.MaxRounds = cfg.Orchestrator.MaxRounds
	}
	orchestrator := orchestrate.New(orchestrate.Deps{
		Sessions: sessions,
		Turns:    sessions,
		Vault:    credentials,
		Gateway:  registry,
		Metrics:  collector,
	}, orchCfg, logger)

	reportDeps := report.Deps{
		Sessions: sessions,
		Turns:    sessions,
		Vault:    credentials,
		Gateway:  registry,
		Metrics:  collector,
	}
	if cacheManager != nil {
		reportDeps.Cache = cacheManager
	}
	reporter := report.NewService(reportDeps, report.Config{
		SummaryProvider: cfg.Report.SummaryProvider,
		SummaryModel:    cfg.Report.SummaryModel,
		CacheTTL:        cfg.Report.CacheTTL,
	}, logger)

	sessionHandler := handlers.NewSessionHandler(sessions, orchestrator, reporter, cfg.Orchestrator.RunTimeout, logger)
	agentHandler := handlers.NewAgentHandler(sessions, registry, logger)
	vaultHandler := handlers.NewVaultHandler(credentials, logger)

	healthHandler := handlers.NewHealthHandler(logger)
	healthHandler.RegisterCheck(handlers.NewPingCheck("database", pool.Ping))
	if cacheManager != nil {
		healthHandler.RegisterCheck(handlers.NewPingCheck("cache", cacheManager.Ping))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", healthHandler.HandleReady)
	mux.HandleFunc("GET /version", healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("POST /api/agents", agentHandler.HandleCreate)
	mux.HandleFunc("GET /api/agents", agentHandler.HandleList)
	mux.HandleFunc("GET /api/agents/{id}", agentHandler.HandleGet)

	mux.HandleFunc("POST /api/sessions", sessionHandler.HandleCreate)
	mux.HandleFunc("GET /api/sessions", sessionHandler.HandleList)
	mux.HandleFunc("GET /api/sessions/{id}", sessionHandler.HandleGet)
	mux.HandleFunc("POST /api/sessions/{id}/run", sessionHandler.HandleRun)
	mux.HandleFunc("POST /api/sessions/{id}/stop", sessionHandler.HandleStop)
	mux.HandleFunc("POST /api/sessions/{id}/summary", sessionHandler.HandleSummary)
	mux.HandleFunc("GET /api/sessions/{id}/report", sessionHandler.HandleReport)
	mux.HandleFunc("GET /api/sessions/{id}/transcript", sessionHandler.HandleTranscript)

	mux.HandleFunc("POST /api/vault/credentials", vaultHandler.HandlePut)
	mux.HandleFunc("GET /api/vault/credentials", vaultHandler.HandleList)
	mux.HandleFunc("DELETE /api/vault/credentials/{provider}", vaultHandler.HandleDelete)

	handler := Chain(mux,
		Recovery(logger),
		RequestID(),
		RequestLogger(logger),
		Metrics(collector),
	)

	s := &Server{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "server")),
		collector: collector,
		pool:      pool,
		cache:     cacheManager,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.Handler())
	s.metricsServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	return s, nil
}

// buildRegistry registers the configured LLM backends. API keys are not
// part of provider construction; they arrive per request from the vault.
func buildRegistry(cfg config.ProvidersConfig, logger *zap.Logger) *llm.Registry {
	registry := llm.NewRegistry()
	registry.Register(openai.New(providers.OpenAIConfig{
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout,
	}, logger))
	registry.Register(gemini.New(providers.GeminiConfig{
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	}, logger))
	if cfg.MockEnabled {
		registry.Register(mock.New())
	}
	return registry
}

// Start brings up both listeners and blocks until one of them fails or
// the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	statsCtx, cancel := context.WithCancel(context.Background())
	s.statsCancel = cancel
	go s.pool.StatsLoop(statsCtx, 30*time.Second, s.collector.SetDBStats)

	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", s.metricsServer.Addr))
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown drains in-flight requests and releases resources. Listeners
// go down first so no new work arrives while stores close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if s.statsCancel != nil {
		s.statsCancel()
	}

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := s.metricsServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("metrics server: %w", err))
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if err := s.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
