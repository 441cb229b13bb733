package report

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/vault"
)

// Generator is the generation contract used for AI summaries.
// *llm.Registry satisfies it.
type Generator interface {
	Generate(ctx context.Context, providerID string, req *llm.GenerateRequest) (*llm.GenerateResponse, error)
}

// Cache stores rendered reports. internal/cache.Manager satisfies it; a
// nil cache disables caching. Any Get error is treated as a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheObserver receives cache lookup outcomes.
type CacheObserver interface {
	ObserveCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveCache(bool) {}

// Config tunes report generation.
type Config struct {
	// SummaryProvider overrides which backend summarizes; empty means
	// the session's first agent's provider.
	SummaryProvider string `yaml:"summary_provider" json:"summary_provider"`
	// SummaryModel overrides the model used for summaries; empty means
	// the first agent's model.
	SummaryModel string `yaml:"summary_model" json:"summary_model"`
	// CacheTTL bounds how long rendered reports are served from cache.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	// MaxSummaryInput truncates the transcript fed to the summarizer.
	MaxSummaryInput int `yaml:"max_summary_input" json:"max_summary_input"`
}

// Deps are the collaborators one report service drives.
type Deps struct {
	Sessions store.SessionStore
	Turns    store.TurnStore
	Vault    vault.Resolver
	Gateway  Generator
	Cache    Cache         // optional
	Metrics  CacheObserver // optional
}

// Service renders reports, transcripts, and summaries for sessions.
type Service struct {
	sessions store.SessionStore
	turns    store.TurnStore
	vault    vault.Resolver
	gateway  Generator
	cache    Cache
	metrics  CacheObserver
	cfg      Config
	logger   *zap.Logger
	group    singleflight.Group
}

// NewService creates a report service.
func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.MaxSummaryInput <= 0 {
		cfg.MaxSummaryInput = 3000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopObserver{}
	}

	return &Service{
		sessions: deps.Sessions,
		turns:    deps.Turns,
		vault:    deps.Vault,
		gateway:  deps.Gateway,
		cache:    deps.Cache,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "report")),
	}
}

// Invalidate drops cached artifacts for a session. Called after a run
// appends new turns.
func (s *Service) Invalidate(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	keys := []string{
		markdownCacheKey(sessionID),
		summaryCacheKey(sessionID),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("report cache invalidation failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *Service) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	val, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.ObserveCache(false)
		return "", false
	}
	s.metrics.ObserveCache(true)
	return val, true
}

func (s *Service) store(ctx context.Context, key, value string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func markdownCacheKey(sessionID string) string { return "report:md:" + sessionID }
func summaryCacheKey(sessionID string) string  { return "report:summary:" + sessionID }
