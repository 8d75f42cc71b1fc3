package pipeline

import (
	"fmt"

	"subburn/internal/config"
	"subburn/internal/services"
	"subburn/internal/services/llm"
	"subburn/internal/services/openaichat"
	"subburn/internal/translate"
)

// NewCompleter builds the chat-completion client for the configured provider.
func NewCompleter(cfg config.LLMConfig) (translate.Completer, error) {
	switch cfg.Provider {
	case config.ProviderDeepSeek, "":
		return llm.NewClient(llm.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}), nil
	case config.ProviderOpenAI:
		return openaichat.NewClient(openaichat.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new client",
			fmt.Sprintf("unknown llm provider %q", cfg.Provider), nil)
	}
}
