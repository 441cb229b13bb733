package providers

import "time"

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// GeminiConfig configures the Google Gemini backend.
type GeminiConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ChooseModel selects the model to use: the request model when set,
// otherwise the configured model, otherwise the backend's default.
func ChooseModel(requestModel, configModel, defaultModel string) string {
	if requestModel != "" {
		return requestModel
	}
	if configModel != "" {
		return configModel
	}
	return defaultModel
}
