package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/providers/mock"
	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/types"
	"github.com/agentverse/agentverse/vault"
)

type fixture struct {
	store *store.MemoryStore
	vault *vault.MemoryStore
	mock  *mock.Provider
	orch  *Orchestrator
}

func newFixture(t *testing.T, m *mock.Provider) *fixture {
	t.Helper()

	cipher, err := vault.NewCipher("unit-test-secret")
	require.NoError(t, err)
	vs := vault.NewMemoryStore(cipher)
	_, err = vs.Put(context.Background(), "user-1", "mock", "test key", "sk-unit-test")
	require.NoError(t, err)

	reg := llm.NewRegistry()
	reg.Register(m)

	ms := store.NewMemoryStore()
	orch := New(Deps{
		Sessions: ms,
		Turns:    ms,
		Vault:    vs,
		Gateway:  reg,
	}, DefaultConfig(), zap.NewNop())

	return &fixture{store: ms, vault: vs, mock: m, orch: orch}
}

func (f *fixture) newSession(t *testing.T, maxTurns int, agentNames ...string) *store.Session {
	t.Helper()
	ctx := context.Background()

	agents := make([]store.Agent, 0, len(agentNames))
	for _, name := range agentNames {
		a := &store.Agent{
			UserID:        "user-1",
			Name:          name,
			Provider:      "mock",
			Model:         "mock-model",
			SystemMessage: "You are " + name + ".",
		}
		require.NoError(t, f.store.CreateAgent(ctx, a))
		agents = append(agents, *a)
	}

	sess := &store.Session{
		UserID:   "user-1",
		Topic:    "unit testing",
		MaxTurns: maxTurns,
		Agents:   agents,
	}
	require.NoError(t, f.store.CreateSession(ctx, sess))
	return sess
}

func TestRunRoundCapWithSingleAgent(t *testing.T) {
	f := newFixture(t, mock.New().WithResponse("still pondering"))
	sess := f.newSession(t, 10, "Solo")

	res, err := f.orch.Run(context.Background(), sess.ID, "user-1", "think about it")
	require.NoError(t, err)

	assert.Equal(t, types.RunRoundCapReached, res.State)
	assert.Len(t, res.Turns, 3)
	assert.Equal(t, types.SessionCompleted, res.Session.Status)
}

func TestRunConcludesOnMarker(t *testing.T) {
	f := newFixture(t, mock.New().WithScript(
		"I think we should use Go.",
		"Agreed, Go it is. "+ConclusionMarker,
	))
	sess := f.newSession(t, 10, "Alice", "Bob")

	res, err := f.orch.Run(context.Background(), sess.ID, "user-1", "pick a language")
	require.NoError(t, err)

	assert.Equal(t, types.RunConcluded, res.State)
	require.Len(t, res.Turns, 2)
	assert.Equal(t, "Agreed, Go it is.", res.Turns[1].Response)
	assert.NotContains(t, res.Turns[1].Response, ConclusionMarker)
	assert.Equal(t, types.SessionCompleted, res.Session.Status)
}

func TestRunStopsAtTurnLimit(t *testing.T) {
	f := newFixture(t, mock.New().WithResponse("more to say"))
	sess := f.newSession(t, 3, "Alice", "Bob")

	res, err := f.orch.Run(context.Background(), sess.ID, "user-1", "go on")
	require.NoError(t, err)

	assert.Equal(t, types.RunLimitReached, res.State)
	assert.Len(t, res.Turns, 3)
	assert.Equal(t, 3, res.Turns[2].Ordinal)
	assert.Equal(t, types.SessionCompleted, res.Session.Status)
}

func TestRunProviderFailureLeavesSessionActive(t *testing.T) {
	boom := types.NewError(types.ErrProviderUnavailable, "upstream down").WithRetryable(true)
	f := newFixture(t, mock.New().WithFailAfter(2, boom))
	sess := f.newSession(t, 10, "Alice", "Bob")

	ctx := context.Background()
	res, err := f.orch.Run(ctx, sess.ID, "user-1", "discuss")
	require.Error(t, err)
	assert.Nil(t, res)

	assert.Equal(t, types.ErrProviderUnavailable, types.GetErrorCode(err))
	var te *types.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "mock", te.Provider)
	assert.NotEmpty(t, te.AgentID)
	assert.True(t, te.Retryable)

	// The two turns before the failure stay persisted and the session
	// remains ACTIVE so a later run can resume.
	turns, err := f.store.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 2)

	after, err := f.store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionActive, after.Status)
}

func TestRunCancelledAtTurnBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	m := mock.New().WithGenerateFunc(func(_ context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
		calls++
		if calls == 2 {
			// Cancel mid-call: the result must be discarded, not appended.
			cancel()
		}
		return &llm.GenerateResponse{Content: fmt.Sprintf("response %d", calls), Model: req.Model, Provider: "mock"}, nil
	})
	f := newFixture(t, m)
	sess := f.newSession(t, 10, "Alice", "Bob")

	res, err := f.orch.Run(ctx, sess.ID, "user-1", "go")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, types.ErrCancelled, types.GetErrorCode(err))

	turns, err := f.store.History(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 1, "cancelled turn must not be persisted")

	after, err := f.store.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionActive, after.Status)
}

func TestRunRejectsEmptySeedPrompt(t *testing.T) {
	f := newFixture(t, mock.New())
	sess := f.newSession(t, 10, "Alice")

	_, err := f.orch.Run(context.Background(), sess.ID, "user-1", "   ")
	assert.Equal(t, types.ErrInvalidPrompt, types.GetErrorCode(err))
}

func TestRunRejectsNonActiveSession(t *testing.T) {
	f := newFixture(t, mock.New())
	sess := f.newSession(t, 10, "Alice")
	require.NoError(t, f.store.SetStatus(context.Background(), sess.ID, types.SessionCompleted))

	_, err := f.orch.Run(context.Background(), sess.ID, "user-1", "hello")
	assert.Equal(t, types.ErrSessionNotActive, types.GetErrorCode(err))
}

func TestRunRejectsSessionWithoutAgents(t *testing.T) {
	f := newFixture(t, mock.New())
	sess := f.newSession(t, 10)

	_, err := f.orch.Run(context.Background(), sess.ID, "user-1", "hello")
	assert.Equal(t, types.ErrNoAgents, types.GetErrorCode(err))
}

func TestRunMissingCredential(t *testing.T) {
	f := newFixture(t, mock.New())
	require.NoError(t, f.vault.Delete(context.Background(), "user-1", "mock"))
	sess := f.newSession(t, 10, "Alice")

	_, err := f.orch.Run(context.Background(), sess.ID, "user-1", "hello")
	assert.Equal(t, types.ErrCredentialNotFound, types.GetErrorCode(err))

	var te *types.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "mock", te.Provider)
}

func TestRunExhaustedBudgetCompletesSession(t *testing.T) {
	f := newFixture(t, mock.New())
	sess := f.newSession(t, 1, "Alice")
	ctx := context.Background()

	_, err := f.orch.Run(ctx, sess.ID, "user-1", "one and done")
	require.NoError(t, err)

	// MaxTurns already consumed: a fresh run on the now COMPLETED
	// session is rejected at the status gate.
	_, err = f.orch.Run(ctx, sess.ID, "user-1", "again")
	assert.Equal(t, types.ErrSessionNotActive, types.GetErrorCode(err))
}

func TestRunSeedPromptRecordedOnFirstTurnOnly(t *testing.T) {
	f := newFixture(t, mock.New().WithResponse("noted"))
	sess := f.newSession(t, 10, "Alice", "Bob")

	res, err := f.orch.Run(context.Background(), sess.ID, "user-1", "the seed")
	require.NoError(t, err)

	require.NotEmpty(t, res.Turns)
	assert.Equal(t, "the seed", res.Turns[0].Prompt)
	for _, turn := range res.Turns[1:] {
		assert.Empty(t, turn.Prompt)
	}
}

func TestRunPromptsThreadTranscript(t *testing.T) {
	m := mock.New().WithScript("first reply", "second reply "+ConclusionMarker)
	f := newFixture(t, m)
	sess := f.newSession(t, 10, "Alice", "Bob")

	_, err := f.orch.Run(context.Background(), sess.ID, "user-1", "kick off")
	require.NoError(t, err)

	calls := m.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "User: kick off", calls[0].Request.Prompt)
	assert.Equal(t, "Alice: first reply", calls[1].Request.Prompt)

	// Each agent's system message carries its persona and the names of
	// the other participants, never its own.
	assert.Contains(t, calls[0].Request.System, "You are Alice.")
	assert.Contains(t, calls[0].Request.System, "Bob")
	assert.Contains(t, calls[1].Request.System, "You are Bob.")
	assert.Contains(t, calls[1].Request.System, "Alice")
	assert.NotContains(t, calls[1].Request.System, "Bob, ")
}

func TestRunConcurrentRunsRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	m := mock.New().WithGenerateFunc(func(_ context.Context, _ *llm.GenerateRequest) (*llm.GenerateResponse, error) {
		once.Do(func() { close(started) })
		<-release
		return &llm.GenerateResponse{Content: "slow " + ConclusionMarker, Provider: "mock"}, nil
	})
	f := newFixture(t, m)
	sess := f.newSession(t, 10, "Alice")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.orch.Run(context.Background(), sess.ID, "user-1", "hold the line")
		assert.NoError(t, err)
	}()

	<-started
	_, err := f.orch.Run(context.Background(), sess.ID, "user-1", "me too")
	assert.Equal(t, types.ErrRunInProgress, types.GetErrorCode(err))

	close(release)
	wg.Wait()
}

func TestRunResumesAfterFailure(t *testing.T) {
	boom := types.NewError(types.ErrProviderUnavailable, "flaky").WithRetryable(true)
	f := newFixture(t, mock.New().WithFailAfter(1, boom))
	sess := f.newSession(t, 10, "Alice")
	ctx := context.Background()

	_, err := f.orch.Run(ctx, sess.ID, "user-1", "start")
	require.Error(t, err)

	f.mock.Reset()
	f.mock.WithScript("back online " + ConclusionMarker)

	res, err := f.orch.Run(ctx, sess.ID, "user-1", "start")
	require.NoError(t, err)
	assert.Equal(t, types.RunConcluded, res.State)

	// The resumed run appended after the surviving first turn with no
	// ordinal gap, and only the very first turn carries the seed.
	require.Len(t, res.Turns, 2)
	assert.Equal(t, 1, res.Turns[0].Ordinal)
	assert.Equal(t, 2, res.Turns[1].Ordinal)
	assert.Empty(t, res.Turns[1].Prompt)
}

func TestRunUnknownProviderFails(t *testing.T) {
	f := newFixture(t, mock.New())
	ctx := context.Background()

	_, err := f.vault.Put(ctx, "user-1", "nonesuch", "key", "sk-x")
	require.NoError(t, err)

	a := &store.Agent{UserID: "user-1", Name: "Ghost", Provider: "nonesuch", Model: "m"}
	require.NoError(t, f.store.CreateAgent(ctx, a))
	sess := &store.Session{UserID: "user-1", MaxTurns: 10, Agents: []store.Agent{*a}}
	require.NoError(t, f.store.CreateSession(ctx, sess))

	_, err = f.orch.Run(ctx, sess.ID, "user-1", "hello")
	assert.Equal(t, types.ErrUnknownProvider, types.GetErrorCode(err))

	after, err := f.store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionActive, after.Status)
}

func TestRunStripsEmbeddedMarker(t *testing.T) {
	f := newFixture(t, mock.New().WithResponse("Let us stop here. "+ConclusionMarker+"  Farewell."))
	sess := f.newSession(t, 10, "Alice")

	res, err := f.orch.Run(context.Background(), sess.ID, "user-1", "wrap up")
	require.NoError(t, err)

	require.Len(t, res.Turns, 1)
	assert.Equal(t, "Let us stop here.   Farewell.", res.Turns[0].Response)
	assert.False(t, strings.Contains(res.Turns[0].Response, ConclusionMarker))
}
