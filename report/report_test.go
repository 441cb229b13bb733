package report

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/providers/mock"
	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/types"
	"github.com/agentverse/agentverse/vault"
)

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return "", context.Canceled // any error counts as a miss
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

type fixture struct {
	store *store.MemoryStore
	vault *vault.MemoryStore
	mock  *mock.Provider
	cache *fakeCache
	svc   *Service
}

func newFixture(t *testing.T, m *mock.Provider) *fixture {
	t.Helper()

	cipher, err := vault.NewCipher("report-test-secret")
	require.NoError(t, err)
	vs := vault.NewMemoryStore(cipher)
	_, err = vs.Put(context.Background(), "user-1", "mock", "test key", "sk-report")
	require.NoError(t, err)

	reg := llm.NewRegistry()
	reg.Register(m)

	ms := store.NewMemoryStore()
	cache := newFakeCache()
	svc := NewService(Deps{
		Sessions: ms,
		Turns:    ms,
		Vault:    vs,
		Gateway:  reg,
		Cache:    cache,
	}, Config{}, zap.NewNop())

	return &fixture{store: ms, vault: vs, mock: m, cache: cache, svc: svc}
}

func (f *fixture) seedSession(t *testing.T, responses ...string) *store.Session {
	t.Helper()
	ctx := context.Background()

	alice := &store.Agent{UserID: "user-1", Name: "Alice", Provider: "mock", Model: "m1"}
	bob := &store.Agent{UserID: "user-1", Name: "Bob", Provider: "mock", Model: "m2"}
	require.NoError(t, f.store.CreateAgent(ctx, alice))
	require.NoError(t, f.store.CreateAgent(ctx, bob))

	sess := &store.Session{
		UserID:   "user-1",
		Topic:    "databases",
		MaxTurns: 10,
		Agents:   []store.Agent{*alice, *bob},
	}
	require.NoError(t, f.store.CreateSession(ctx, sess))

	agents := []*store.Agent{alice, bob}
	for i, resp := range responses {
		turn := &store.Turn{
			SessionID: sess.ID,
			AgentID:   agents[i%2].ID,
			Response:  resp,
		}
		require.NoError(t, f.store.Append(ctx, turn))
	}
	return sess
}

func TestMarkdownEmptySession(t *testing.T) {
	f := newFixture(t, mock.New())
	sess := f.seedSession(t)

	doc, err := f.svc.Markdown(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "No conversation to analyze.", doc)
}

func TestMarkdownReport(t *testing.T) {
	f := newFixture(t, mock.New())
	sess := f.seedSession(t, "four", "sixsix", "eightxxx")

	doc, err := f.svc.Markdown(context.Background(), sess.ID)
	require.NoError(t, err)

	assert.Contains(t, doc, "# Session Analysis Report")
	assert.Contains(t, doc, "**Topic:** databases")
	assert.Contains(t, doc, "**Total Turns:** 3 / 10")
	assert.Contains(t, doc, "### Alice")
	assert.Contains(t, doc, "### Bob")
	// Alice spoke turns 1 and 3: (4+8)/2 = 6 characters on average.
	aliceSection := doc[strings.Index(doc, "### Alice"):strings.Index(doc, "### Bob")]
	assert.Contains(t, aliceSection, "- Turns: 2")
	assert.Contains(t, aliceSection, "Average Response Length: 6 characters")
	assert.Contains(t, doc, "## Timeline")
}

func TestMarkdownServedFromCache(t *testing.T) {
	f := newFixture(t, mock.New())
	sess := f.seedSession(t, "hello")
	ctx := context.Background()

	first, err := f.svc.Markdown(ctx, sess.ID)
	require.NoError(t, err)

	// A new turn without invalidation still serves the cached document.
	require.NoError(t, f.store.Append(ctx, &store.Turn{SessionID: sess.ID, AgentID: sess.Agents[0].ID, Response: "later"}))
	second, err := f.svc.Markdown(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	f.svc.Invalidate(ctx, sess.ID)
	third, err := f.svc.Markdown(ctx, sess.ID)
	require.NoError(t, err)
	assert.Contains(t, third, "**Total Turns:** 2 / 10")
}

func TestTranscript(t *testing.T) {
	f := newFixture(t, mock.New())
	sess := f.seedSession(t, "first words", "second words")

	text, err := f.svc.Transcript(context.Background(), sess.ID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "AgentVerse Session Transcript\n"))
	assert.Contains(t, text, "Topic: databases")
	assert.Contains(t, text, "Participants: Alice, Bob")
	assert.Contains(t, text, "Turn 1 - Alice")
	assert.Contains(t, text, "first words")
	assert.Contains(t, text, "Turn 2 - Bob")
	assert.Contains(t, text, "second words")
}

func TestSummarizeEmptySession(t *testing.T) {
	f := newFixture(t, mock.New())
	sess := f.seedSession(t)

	_, err := f.svc.Summarize(context.Background(), sess.ID, "user-1")
	assert.Equal(t, types.ErrNoConversation, types.GetErrorCode(err))
}

func TestSummarizeGenerated(t *testing.T) {
	m := mock.New().WithResponse("They compared databases and favored Postgres.")
	f := newFixture(t, m)
	sess := f.seedSession(t, "I like Postgres.", "SQLite is simpler.")

	sum, err := f.svc.Summarize(context.Background(), sess.ID, "user-1")
	require.NoError(t, err)

	assert.True(t, sum.Generated)
	assert.Equal(t, "mock", sum.Provider)
	assert.Equal(t, "They compared databases and favored Postgres.", sum.Text)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, summarySystemMessage, calls[0].Request.System)
	assert.Contains(t, calls[0].Request.Prompt, "Alice: I like Postgres.")
	assert.Contains(t, calls[0].Request.Prompt, "Bob: SQLite is simpler.")
	// The first agent's model is used when no override is configured.
	assert.Equal(t, "m1", calls[0].Request.Model)
}

func TestSummarizeCached(t *testing.T) {
	m := mock.New().WithResponse("summary text")
	f := newFixture(t, m)
	sess := f.seedSession(t, "hello")
	ctx := context.Background()

	_, err := f.svc.Summarize(ctx, sess.ID, "user-1")
	require.NoError(t, err)

	sum, err := f.svc.Summarize(ctx, sess.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, sum.Generated)
	assert.Equal(t, 1, m.CallCount(), "second request must come from cache")
}

func TestSummarizeNoCredentialFallback(t *testing.T) {
	f := newFixture(t, mock.New())
	require.NoError(t, f.vault.Delete(context.Background(), "user-1", "mock"))
	sess := f.seedSession(t, "a", "b", "c")

	sum, err := f.svc.Summarize(context.Background(), sess.ID, "user-1")
	require.NoError(t, err)

	assert.False(t, sum.Generated)
	assert.Contains(t, sum.Text, "Topic: databases")
	assert.Contains(t, sum.Text, "Total Turns: 3")
	assert.Contains(t, sum.Text, "add an API key for mock in the Vault")
	assert.Zero(t, f.mock.CallCount())
}

func TestSummarizeProviderFailureFallback(t *testing.T) {
	boom := types.NewError(types.ErrProviderUnavailable, "down").WithRetryable(true)
	f := newFixture(t, mock.New().WithError(boom))
	sess := f.seedSession(t, "a", "b")

	sum, err := f.svc.Summarize(context.Background(), sess.ID, "user-1")
	require.NoError(t, err)

	assert.False(t, sum.Generated)
	assert.Contains(t, sum.Text, "Key participants: Alice, Bob")
}

func TestSummarizeTruncatesLongTranscript(t *testing.T) {
	m := mock.New().WithResponse("short")
	f := newFixture(t, m)
	sess := f.seedSession(t, strings.Repeat("x", 5000))

	_, err := f.svc.Summarize(context.Background(), sess.ID, "user-1")
	require.NoError(t, err)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.LessOrEqual(t, len(calls[0].Request.Prompt), 3000+len("Please provide a concise summary of the following conversation:\n\n"))
}

func TestSummarizeDeduplicatesConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	m := mock.New().WithGenerateFunc(func(_ context.Context, _ *llm.GenerateRequest) (*llm.GenerateResponse, error) {
		<-release
		return &llm.GenerateResponse{Content: "shared summary", Provider: "mock"}, nil
	})
	f := newFixture(t, m)
	sess := f.seedSession(t, "hello")

	var wg sync.WaitGroup
	results := make([]*Summary, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sum, err := f.svc.Summarize(context.Background(), sess.ID, "user-1")
			assert.NoError(t, err)
			results[i] = sum
		}(i)
	}

	// Give the goroutines time to pile onto the singleflight key.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, m.CallCount())
	for _, sum := range results {
		require.NotNil(t, sum)
		assert.Equal(t, "shared summary", sum.Text)
	}
}
