// Package mock provides a deterministic llm.Provider for tests and for
// sessions that run without a real backend. It makes no external calls;
// the default response is a fixed transformation of the incoming prompt.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentverse/agentverse/llm"
)

// Call records one Generate invocation.
type Call struct {
	Request  *llm.GenerateRequest
	Response *llm.GenerateResponse
	Err      error
}

// Provider is a configurable mock backend. Zero value responds with an
// echo of the prompt; builder methods inject fixed responses, scripted
// per-call responses, or errors.
type Provider struct {
	mu sync.RWMutex

	response  string
	script    []string
	scriptIdx int
	err       error
	failAfter int

	generateFunc func(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error)

	calls     []Call
	callCount int
}

// New creates a mock provider with the default echo behavior.
func New() *Provider {
	return &Provider{}
}

// WithResponse makes every call return the fixed response.
func (p *Provider) WithResponse(response string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.response = response
	return p
}

// WithScript returns the given responses in order, repeating the last one
// once the script is exhausted.
func (p *Provider) WithScript(responses ...string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = responses
	p.scriptIdx = 0
	return p
}

// WithError makes every call fail with err.
func (p *Provider) WithError(err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// WithFailAfter makes calls fail after the first n succeed, using the
// error set via WithError.
func (p *Provider) WithFailAfter(n int, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAfter = n
	p.err = err
	return p
}

// WithGenerateFunc installs a custom handler.
func (p *Provider) WithGenerateFunc(fn func(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error)) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generateFunc = fn
	return p
}

func (p *Provider) Name() string { return "mock" }

// Generate returns the configured response. The default transformation
// echoes the prompt so tests can assert on exact content.
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.callCount++

	if p.generateFunc != nil {
		fn := p.generateFunc
		p.mu.Unlock()
		resp, err := fn(ctx, req)
		p.mu.Lock()
		p.calls = append(p.calls, Call{Request: req, Response: resp, Err: err})
		return resp, err
	}

	if p.err != nil && (p.failAfter == 0 || p.callCount > p.failAfter) {
		p.calls = append(p.calls, Call{Request: req, Err: p.err})
		return nil, p.err
	}

	content := p.response
	if len(p.script) > 0 {
		content = p.script[p.scriptIdx]
		if p.scriptIdx < len(p.script)-1 {
			p.scriptIdx++
		}
	}
	if content == "" {
		content = fmt.Sprintf("Mock response to: %s (Model: %s)", req.Prompt, req.Model)
	}

	resp := &llm.GenerateResponse{
		Content:  content,
		Model:    req.Model,
		Provider: p.Name(),
	}
	p.calls = append(p.calls, Call{Request: req, Response: resp})
	return resp, nil
}

// Calls returns a copy of the recorded invocations.
func (p *Provider) Calls() []Call {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Call{}, p.calls...)
}

// CallCount returns the number of Generate invocations.
func (p *Provider) CallCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.callCount
}

// Reset clears recorded calls and configured behavior.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
	p.callCount = 0
	p.response = ""
	p.script = nil
	p.scriptIdx = 0
	p.err = nil
	p.failAfter = 0
	p.generateFunc = nil
}
