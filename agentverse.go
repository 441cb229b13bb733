// Package agentverse provides a top-level convenience entry point for
// running multi-agent conversations in process, without the HTTP service.
//
// Usage:
//
//	import "github.com/agentverse/agentverse"
//
//	eng, err := agentverse.New(agentverse.WithSecret("app-secret"))
//	eng, err := agentverse.New(agentverse.WithProvider(myProvider), agentverse.WithMaxRounds(5))
//
// The engine is backed by in-memory stores; use the cmd/agentverse
// service for persistence and the full API surface.
package agentverse

import (
	"go.uber.org/zap"

	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/orchestrate"
	"github.com/agentverse/agentverse/providers/mock"
	"github.com/agentverse/agentverse/report"
	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/vault"
)

// Engine bundles the orchestrator, report service, and their in-memory
// backing stores for embedded use.
type Engine struct {
	Store        *store.MemoryStore
	Vault        *vault.MemoryStore
	Providers    *llm.Registry
	Orchestrator *orchestrate.Orchestrator
	Reports      *report.Service
}

type options struct {
	secret    string
	logger    *zap.Logger
	providers []llm.Provider
	maxRounds int
}

// Option configures the engine created by [New].
type Option func(*options)

// WithSecret sets the secret that seals vault credentials. Required
// unless every provider ignores API keys.
func WithSecret(secret string) Option {
	return func(o *options) { o.secret = secret }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProvider registers a pre-built LLM provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.providers = append(o.providers, p) }
}

// WithMaxRounds overrides the per-run round cap.
func WithMaxRounds(n int) Option {
	return func(o *options) { o.maxRounds = n }
}

// New creates an in-process engine. With no providers configured it
// registers the deterministic mock backend so conversations run without
// upstream credentials.
func New(opts ...Option) (*Engine, error) {
	o := options{secret: "agentverse-embedded"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	cipher, err := vault.NewCipher(o.secret)
	if err != nil {
		return nil, err
	}
	credentials := vault.NewMemoryStore(cipher)
	sessions := store.NewMemoryStore()

	registry := llm.NewRegistry()
	if len(o.providers) == 0 {
		registry.Register(mock.New())
	}
	for _, p := range o.providers {
		registry.Register(p)
	}

	cfg := orchestrate.DefaultConfig()
	if o.maxRounds > 0 {
		cfg.MaxRounds = o.maxRounds
	}
	deps := orchestrate.Deps{
		Sessions: sessions,
		Turns:    sessions,
		Vault:    credentials,
		Gateway:  registry,
	}

	return &Engine{
		Store:        sessions,
		Vault:        credentials,
		Providers:    registry,
		Orchestrator: orchestrate.New(deps, cfg, o.logger),
		Reports: report.NewService(report.Deps{
			Sessions: sessions,
			Turns:    sessions,
			Vault:    credentials,
			Gateway:  registry,
		}, report.Config{}, o.logger),
	}, nil
}
