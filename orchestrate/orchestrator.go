package orchestrate

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/types"
	"github.com/agentverse/agentverse/vault"
)

// Gateway is the single generation contract the orchestrator calls.
// *llm.Registry satisfies it.
type Gateway interface {
	Generate(ctx context.Context, providerID string, req *llm.GenerateRequest) (*llm.GenerateResponse, error)
}

// Recorder receives orchestration metrics. The zero dependency is a noop.
type Recorder interface {
	ObserveRun(state types.RunState, d time.Duration)
	ObserveTurn(provider string)
	ObserveProviderCall(provider string, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(types.RunState, time.Duration)         {}
func (nopRecorder) ObserveTurn(string)                               {}
func (nopRecorder) ObserveProviderCall(string, time.Duration, error) {}

// Config tunes the scheduling policy.
type Config struct {
	// MaxRounds is the hard safety valve against runaway exchanges:
	// after this many completed rounds without a conclusion the run
	// stops. A round completes when every participant produced exactly
	// one response in that pass.
	MaxRounds int `yaml:"max_rounds" json:"max_rounds"`

	// Marker is the conclusion token agents are instructed to emit.
	Marker string `yaml:"marker" json:"marker"`
}

// DefaultConfig returns the default policy: three rounds, the standard
// conclusion marker.
func DefaultConfig() Config {
	return Config{
		MaxRounds: 3,
		Marker:    ConclusionMarker,
	}
}

// Deps are the collaborators one orchestrator instance drives.
type Deps struct {
	Sessions store.SessionStore
	Turns    store.TurnStore
	Vault    vault.Resolver
	Gateway  Gateway
	Metrics  Recorder // optional
}

// Result is the final session and ordered-turns view of a finished run.
type Result struct {
	State   types.RunState `json:"state"`
	Session *store.Session `json:"session"`
	Turns   []store.Turn   `json:"turns"`
}

// Orchestrator schedules agents through rounds until the conversation
// concludes, the turn budget runs out, the round cap trips, a
// collaborator fails, or the caller cancels.
type Orchestrator struct {
	sessions store.SessionStore
	turns    store.TurnStore
	vault    vault.Resolver
	gateway  Gateway
	metrics  Recorder
	cfg      Config
	logger   *zap.Logger
	tracer   trace.Tracer
	locks    *runLocks
}

// New creates an orchestrator.
func New(deps Deps, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 3
	}
	if cfg.Marker == "" {
		cfg.Marker = ConclusionMarker
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}

	return &Orchestrator{
		sessions: deps.Sessions,
		turns:    deps.Turns,
		vault:    deps.Vault,
		gateway:  deps.Gateway,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "orchestrator")),
		tracer:   otel.Tracer("agentverse/orchestrate"),
		locks:    newRunLocks(),
	}
}

// Run executes one conversation run for the session, seeded by the
// user's prompt. Terminal states CONCLUDED, LIMIT_REACHED, and
// ROUND_CAP_REACHED mark the session COMPLETED and return a Result.
// Failures and cancellation leave the session ACTIVE: turns already
// appended stay persisted, and a retried run simply appends further.
func (o *Orchestrator) Run(ctx context.Context, sessionID, userID, seedPrompt string) (*Result, error) {
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "orchestrate.Run",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if strings.TrimSpace(seedPrompt) == "" {
		return nil, types.NewError(types.ErrInvalidPrompt, "seed prompt must not be empty")
	}

	if !o.locks.tryAcquire(sessionID) {
		return nil, types.NewError(types.ErrRunInProgress,
			"another run is already in flight for session "+sessionID)
	}
	defer o.locks.release(sessionID)

	sess, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != types.SessionActive {
		return nil, types.NewError(types.ErrSessionNotActive,
			"session is "+string(sess.Status)+", not ACTIVE")
	}
	if len(sess.Agents) == 0 {
		return nil, types.NewError(types.ErrNoAgents, "session has no participating agents")
	}

	count, err := o.turns.Count(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if count >= sess.MaxTurns {
		if err := o.sessions.SetStatus(ctx, sessionID, types.SessionCompleted); err != nil {
			return nil, err
		}
		return nil, types.NewError(types.ErrTurnLimitReached, "session turn budget already exhausted")
	}

	names := make(map[string]string, len(sess.Agents))
	for _, a := range sess.Agents {
		names[a.ID] = a.Name
	}

	logger := o.logger.With(
		zap.String("session_id", sessionID),
		zap.Int("agents", len(sess.Agents)),
		zap.Int("max_turns", sess.MaxTurns),
	)
	logger.Info("conversation run started", zap.Int("existing_turns", count))

	state, runErr := o.loop(ctx, sess, userID, seedPrompt, names, logger)

	span.SetAttributes(attribute.String("run.state", string(state)))
	o.metrics.ObserveRun(state, time.Since(start))

	if runErr != nil {
		logger.Warn("conversation run aborted",
			zap.String("state", string(state)),
			zap.Error(runErr),
		)
		return nil, runErr
	}

	if err := o.sessions.SetStatus(ctx, sessionID, types.SessionCompleted); err != nil {
		return nil, err
	}

	final, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	turns, err := o.turns.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	logger.Info("conversation run finished",
		zap.String("state", string(state)),
		zap.Int("total_turns", len(turns)),
	)

	return &Result{State: state, Session: final, Turns: turns}, nil
}

// loop runs rounds until a terminal state. It returns a nil error for the
// states that complete the session, and the abort error otherwise.
func (o *Orchestrator) loop(
	ctx context.Context,
	sess *store.Session,
	userID, seedPrompt string,
	names map[string]string,
	logger *zap.Logger,
) (types.RunState, error) {
	// Round completion is counted explicitly per run: a round completes
	// only when every participant has spoken once in that pass. Ratio
	// arithmetic over the total turn count drifts on mid-round aborts
	// and on sessions resumed with a partial round on record.
	for round := 1; ; round++ {
		for _, agent := range sess.Agents {
			if err := ctx.Err(); err != nil {
				return types.RunCancelled, cancelledErr(err)
			}

			count, err := o.turns.Count(ctx, sess.ID)
			if err != nil {
				return types.RunFailed, err
			}
			if count >= sess.MaxTurns {
				return types.RunLimitReached, nil
			}

			concluded, err := o.takeTurn(ctx, sess, agent, userID, seedPrompt, count, names, logger)
			if err != nil {
				if types.IsCode(err, types.ErrCancelled) {
					return types.RunCancelled, err
				}
				return types.RunFailed, err
			}
			if concluded {
				return types.RunConcluded, nil
			}
		}

		if round >= o.cfg.MaxRounds {
			logger.Info("round cap reached", zap.Int("rounds", round))
			return types.RunRoundCapReached, nil
		}
	}
}

// takeTurn resolves the agent's credential, builds the prompt, calls the
// provider, and appends the turn. It reports whether the agent concluded
// the conversation.
func (o *Orchestrator) takeTurn(
	ctx context.Context,
	sess *store.Session,
	agent store.Agent,
	userID, seedPrompt string,
	turnsSoFar int,
	names map[string]string,
	logger *zap.Logger,
) (bool, error) {
	key, err := o.vault.Resolve(ctx, userID, agent.Provider)
	if err != nil {
		if types.IsCode(err, types.ErrCredentialNotFound) {
			return false, types.NewError(types.ErrCredentialNotFound,
				"no API key found for "+agent.Provider+"; add one in the vault").
				WithProvider(agent.Provider).WithAgent(agent.ID)
		}
		return false, err
	}

	history, err := o.turns.History(ctx, sess.ID)
	if err != nil {
		return false, err
	}

	prompt := BuildPrompt(history, names, seedPrompt)
	system := Framing(agent.SystemMessage, agent, sess.Agents, o.cfg.Marker)

	callStart := time.Now()
	resp, err := o.gateway.Generate(ctx, agent.Provider, &llm.GenerateRequest{
		System: system,
		Prompt: prompt,
		APIKey: key,
		Model:  agent.Model,
	})
	o.metrics.ObserveProviderCall(agent.Provider, time.Since(callStart), err)
	if err != nil {
		var te *types.Error
		if errors.As(err, &te) {
			// Preserve the provider failure kind, attach the agent.
			return false, types.NewError(te.Code, "agent "+agent.Name+" failed: "+te.Message).
				WithProvider(agent.Provider).
				WithAgent(agent.ID).
				WithRetryable(te.Retryable).
				WithCause(err)
		}
		return false, types.NewError(types.ErrProviderUnavailable,
			"agent "+agent.Name+" failed").
			WithProvider(agent.Provider).WithAgent(agent.ID).WithCause(err)
	}

	// A result that arrives after cancellation is discarded, never
	// appended; the session stays resumable with no half turn.
	if err := ctx.Err(); err != nil {
		return false, cancelledErr(err)
	}

	turnPrompt := ""
	if turnsSoFar == 0 {
		turnPrompt = seedPrompt
	}

	turn := &store.Turn{
		SessionID:  sess.ID,
		AgentID:    agent.ID,
		Prompt:     turnPrompt,
		Response:   resp.Content,
		TokenCount: responseTokens(resp, agent.Model),
	}
	if err := o.turns.Append(ctx, turn); err != nil {
		return false, err
	}
	o.metrics.ObserveTurn(agent.Provider)

	logger.Debug("turn appended",
		zap.String("agent", agent.Name),
		zap.Int("ordinal", turn.Ordinal),
		zap.Int("token_count", turn.TokenCount),
	)

	if strings.Contains(resp.Content, o.cfg.Marker) {
		stripped := StripMarker(resp.Content, o.cfg.Marker)
		if err := o.turns.SetResponse(ctx, turn.ID, stripped); err != nil {
			return false, err
		}
		logger.Info("conversation concluded by agent", zap.String("agent", agent.Name))
		return true, nil
	}

	return false, nil
}

func responseTokens(resp *llm.GenerateResponse, model string) int {
	if resp.CompletionTokens > 0 {
		return resp.CompletionTokens
	}
	return llm.CountTokens(model, resp.Content)
}

func cancelledErr(cause error) *types.Error {
	return types.NewError(types.ErrCancelled, "run cancelled at turn boundary").WithCause(cause)
}
