package llm

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/agentverse/agentverse/types"
)

// GenerateRequest is the single call contract every provider implements.
// APIKey is carried per request so the same provider instance can serve
// different users' credentials; it must never appear in logs or errors.
type GenerateRequest struct {
	System string `json:"system"`
	Prompt string `json:"prompt"`
	APIKey string `json:"-"`
	Model  string `json:"model"`
}

// GenerateResponse is the uniform response shape.
type GenerateResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// Provider is the gateway contract over one LLM backend.
// Implementations do not retry internally; retry policy belongs to the
// caller. A returned error is always a *types.Error with one of the
// provider failure codes (AUTH_REJECTED, PROVIDER_UNAVAILABLE,
// INVALID_RESPONSE).
type Provider interface {
	// Name returns the provider id this backend registers under.
	Name() string
	// Generate produces a single completion for the given request.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// Registry maps provider ids to Provider implementations.
// Unknown ids are a hard error; there is no implicit fallback. The mock
// backend participates under its own id like any other provider.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name. Re-registering an id
// replaces the previous instance.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[normalizeID(p.Name())] = p
}

// Get resolves a provider id. Ids are matched case-insensitively.
func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[normalizeID(id)]
	if !ok {
		return nil, types.NewError(types.ErrUnknownProvider, "no provider registered for id "+id).
			WithProvider(id).
			WithHTTPStatus(http.StatusBadRequest)
	}
	return p, nil
}

// Generate resolves the provider for id and forwards the request.
func (r *Registry) Generate(ctx context.Context, id string, req *GenerateRequest) (*GenerateResponse, error) {
	p, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return p.Generate(ctx, req)
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
