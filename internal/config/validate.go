package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. The API key is checked
// separately by RequireAPIKey so non-translating commands work without one.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

// RequireAPIKey fails when no API key is available for the configured provider.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key is required. Set %s (environment or .env) or edit %s (create with 'subburn config init')", APIKeyEnv(c.LLM.Provider), defaultPath)
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderDeepSeek, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderDeepSeek, ProviderOpenAI, c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return ensurePositiveMap(map[string]int{
		"llm.max_tokens":      c.LLM.MaxTokens,
		"llm.timeout_seconds": c.LLM.TimeoutSeconds,
	})
}

func (c *Config) validateTranslation() error {
	if c.Translation.SourceLanguage == c.Translation.TargetLanguage {
		return errors.New("translation.source_language and translation.target_language must differ")
	}
	if err := ensurePositiveMap(map[string]int{
		"translation.batch_size":  c.Translation.BatchSize,
		"translation.max_retries": c.Translation.MaxRetries,
	}); err != nil {
		return err
	}
	if c.Translation.RetryBaseDelayMS <= 0 {
		return errors.New("translation.retry_base_delay_ms must be positive")
	}
	if c.Translation.RetryMaxDelayMS < c.Translation.RetryBaseDelayMS {
		return errors.New("translation.retry_max_delay_ms must be >= translation.retry_base_delay_ms")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return errors.New("cache.path must be set when cache.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
