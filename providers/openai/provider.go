// Package openai implements the llm.Provider contract against the OpenAI
// chat completions API and any endpoint that speaks the same wire format.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/providers"
	"github.com/agentverse/agentverse/types"
)

const defaultModel = "gpt-4o-mini"

// Provider talks to an OpenAI-compatible chat completions endpoint.
// The http.Client is instance-scoped; no global SDK configuration.
type Provider struct {
	cfg    providers.OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an OpenAI provider.
func New(cfg providers.OpenAIConfig, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "openai_provider")),
	}
}

func (p *Provider) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate issues one chat completion. The request's system text and
// prompt map onto the system and user roles respectively.
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	model := providers.ChooseModel(req.Model, p.cfg.Model, defaultModel)

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1/chat/completions", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "build request").
			WithCause(err).WithProvider(p.Name())
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "openai request failed").
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, mapStatusError(resp.StatusCode, readErrMsg(resp.Body), p.Name())
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrInvalidResponse, "malformed completion payload").
			WithCause(err).WithProvider(p.Name())
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, types.NewError(types.ErrInvalidResponse, "completion returned no content").
			WithProvider(p.Name())
	}

	p.logger.Debug("completion finished",
		zap.String("model", model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("completion_tokens", out.Usage.CompletionTokens),
	)

	return &llm.GenerateResponse{
		Content:          out.Choices[0].Message.Content,
		Model:            model,
		Provider:         p.Name(),
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
	}, nil
}

func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp errorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(data)
}

func mapStatusError(status int, msg string, provider string) *types.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewError(types.ErrAuthRejected, msg).
			WithHTTPStatus(status).WithProvider(provider)
	case http.StatusTooManyRequests:
		return types.NewError(types.ErrProviderUnavailable, msg).
			WithHTTPStatus(status).WithRetryable(true).WithProvider(provider)
	default:
		return types.NewError(types.ErrProviderUnavailable, msg).
			WithHTTPStatus(status).WithRetryable(status >= 500).WithProvider(provider)
	}
}
