package config

const (
	defaultConfigPath        = "~/.config/subburn/config.toml"
	projectConfigName        = "subburn.toml"
	defaultProvider          = ProviderDeepSeek
	defaultDeepSeekModel     = "deepseek-chat"
	defaultOpenAIModel       = "gpt-4o-mini"
	defaultTemperature       = 0.3
	defaultMaxTokens         = 2048
	defaultLLMTimeoutSeconds = 60
	defaultSourceLanguage    = "ru"
	defaultTargetLanguage    = "kk"
	defaultBatchSize         = 10
	defaultMaxRetries        = 3
	defaultRetryBaseDelayMS  = 1000
	defaultRetryMaxDelayMS   = 30000
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Supported chat-completion providers.
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:       defaultProvider,
			Temperature:    defaultTemperature,
			MaxTokens:      defaultMaxTokens,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Translation: Translation{
			SourceLanguage:   defaultSourceLanguage,
			TargetLanguage:   defaultTargetLanguage,
			BatchSize:        defaultBatchSize,
			MaxRetries:       defaultMaxRetries,
			RetryBaseDelayMS: defaultRetryBaseDelayMS,
			RetryMaxDelayMS:  defaultRetryMaxDelayMS,
		},
		Burn: Burn{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			VerifyOutput:  true,
		},
		Cache: Cache{
			Enabled: true,
			Path:    defaultCachePath(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
