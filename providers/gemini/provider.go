// Package gemini implements the llm.Provider contract against the Google
// Gemini generateContent API.
package gemini

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

const defaultModel = "gemini-2.5-flash"

// Provider talks to the Gemini REST API. Authentication uses the
// x-goog-api-key header; the system text rides in systemInstruction
// rather than a message role.
type Provider struct {
	cfg    providers.GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini provider.
func New(cfg providers.GeminiConfig, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "gemini_provider")),
	}
}

func (p *Provider) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *Provider) buildHeaders(req *http.Request, apiKey string) {
	req.Header.Set("x-goog-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// Generate issues one generateContent call.
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	model := providers.ChooseModel(req.Model, p.cfg.Model, defaultModel)

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(p.cfg.BaseURL, "/"), model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "build request").
			WithCause(err).WithProvider(p.Name())
	}
	p.buildHeaders(httpReq, req.APIKey)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "gemini request failed").
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, mapGeminiError(resp.StatusCode, readGeminiErrMsg(resp.Body), p.Name())
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrInvalidResponse, "malformed generateContent payload").
			WithCause(err).WithProvider(p.Name())
	}

	text := candidateText(out)
	if strings.TrimSpace(text) == "" {
		return nil, types.NewError(types.ErrInvalidResponse, "generateContent returned no candidates").
			WithProvider(p.Name())
	}

	result := &llm.GenerateResponse{
		Content:  text,
		Model:    model,
		Provider: p.Name(),
	}
	if out.UsageMetadata != nil {
		result.PromptTokens = out.UsageMetadata.PromptTokenCount
		result.CompletionTokens = out.UsageMetadata.CandidatesTokenCount
	}

	p.logger.Debug("generation finished",
		zap.String("model", model),
		zap.Duration("latency", time.Since(start)),
	)

	return result, nil
}

func candidateText(resp geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func readGeminiErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp geminiErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (status: %s)", errResp.Error.Message, errResp.Error.Status)
	}
	return string(data)
}

func mapGeminiError(status int, msg string, provider string) *types.Error {
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
