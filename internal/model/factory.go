package model

import (
	"fmt"

	"github.com/MBifolco/gotg-sub000/internal/config"
	"github.com/MBifolco/gotg-sub000/internal/logging"
)

// NewClientFromConfig builds the concrete Client named by cfg.Provider.
// "ollama" reuses the OpenAI adapter since Ollama exposes an
// OpenAI-compatible chat completions endpoint.
func NewClientFromConfig(cfg config.ModelDefaults, apiKey string, logger *logging.Logger) (Client, error) {
	switch cfg.Provider {
	case "anthropic", "":
		return NewAnthropicClient(AnthropicConfig{
			APIKey: apiKey,
			Model:  cfg.Model,
		}, logger), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey: apiKey,
			Model:  cfg.Model,
		}, logger), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  "ollama",
			BaseURL: baseURL,
			Model:   cfg.Model,
		}, logger), nil
	default:
		return nil, fmt.Errorf("model: unknown provider %q", cfg.Provider)
	}
}
