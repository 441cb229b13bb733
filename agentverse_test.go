package agentverse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/types"
)

func TestEmbeddedConversation(t *testing.T) {
	ctx := context.Background()

	eng, err := New()
	require.NoError(t, err)

	_, err = eng.Vault.Put(ctx, "local", "mock", "dev key", "unused")
	require.NoError(t, err)

	alice := &store.Agent{UserID: "local", Name: "Alice", Provider: "mock"}
	require.NoError(t, eng.Store.CreateAgent(ctx, alice))

	sess := &store.Session{UserID: "local", Topic: "Warmup", MaxTurns: 4, Agents: []store.Agent{*alice}}
	require.NoError(t, eng.Store.CreateSession(ctx, sess))

	result, err := eng.Orchestrator.Run(ctx, sess.ID, "local", "Say hello")
	require.NoError(t, err)
	assert.Equal(t, types.RunRoundCapReached, result.State)
	assert.Len(t, result.Turns, 3)

	transcript, err := eng.Reports.Transcript(ctx, sess.ID)
	require.NoError(t, err)
	assert.Contains(t, transcript, "Alice")
}

func TestMaxRoundsOption(t *testing.T) {
	ctx := context.Background()

	eng, err := New(WithMaxRounds(1), WithSecret("test-secret"))
	require.NoError(t, err)

	_, err = eng.Vault.Put(ctx, "local", "mock", "dev key", "unused")
	require.NoError(t, err)

	alice := &store.Agent{UserID: "local", Name: "Alice", Provider: "mock"}
	require.NoError(t, eng.Store.CreateAgent(ctx, alice))
	sess := &store.Session{UserID: "local", MaxTurns: 10, Agents: []store.Agent{*alice}}
	require.NoError(t, eng.Store.CreateSession(ctx, sess))

	result, err := eng.Orchestrator.Run(ctx, sess.ID, "local", "Go")
	require.NoError(t, err)
	assert.Equal(t, types.RunRoundCapReached, result.State)
	assert.Len(t, result.Turns, 1)
}
