package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentverse/agentverse/types"
)

type staticProvider struct {
	name    string
	content string
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Generate(_ context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	return &GenerateResponse{Content: p.content, Model: req.Model, Provider: p.name}, nil
}

func TestRegistry_GetAndGenerate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&staticProvider{name: "openai", content: "hello"})
	r.Register(&staticProvider{name: "gemini", content: "hi"})

	p, err := r.Get("OpenAI")
	require.NoError(t, err, "ids should match case-insensitively")
	assert.Equal(t, "openai", p.Name())

	resp, err := r.Generate(context.Background(), "gemini", &GenerateRequest{Model: "gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)

	assert.Equal(t, []string{"gemini", "openai"}, r.IDs())
}

func TestRegistry_UnknownProviderIsHardError(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&staticProvider{name: "mock"})

	_, err := r.Get("groq")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownProvider, types.GetErrorCode(err))

	_, err = r.Generate(context.Background(), "groq", &GenerateRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownProvider, types.GetErrorCode(err))
}

func TestCountTokens(t *testing.T) {
	t.Parallel()

	assert.Zero(t, CountTokens("gpt-4o", ""))
	assert.Positive(t, CountTokens("gpt-4o", "hello world"))
	// Unknown models fall back without error.
	assert.Positive(t, CountTokens("no-such-model", "hello world"))
}
