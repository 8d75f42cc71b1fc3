// Package openaichat adapts the official OpenAI Go SDK to the single-prompt
// completion contract used by the translator. Any OpenAI-compatible endpoint
// can be targeted by setting BaseURL.
package openaichat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"subburn/internal/services/llm"
)

const (
	defaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.3
	defaultMaxTokens   = 2048
	defaultHTTPTimeout = 60 * time.Second
)

// Config captures connection and sampling settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// Client issues chat completions through the OpenAI SDK.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	apiKey      string
}

// Option customizes the client.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient overrides the HTTP client used by the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// NewClient constructs a Client. SDK-level retries are disabled so the
// caller's backoff loop is the only retry policy in effect.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	o := options{httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(&o)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}

	c := &Client{
		client:      openai.NewClient(reqOpts...),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		apiKey:      apiKey,
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.temperature < 0 {
		c.temperature = defaultTemperature
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	return c
}

// Model reports the model name requests are issued against.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete sends prompt as a single user message and returns the first
// choice's text. Non-2xx responses are reported as *llm.HTTPStatusError so
// retry classification is shared with the HTTP client.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("openai complete: prompt required")
	}
	if c.apiKey == "" {
		return "", errors.New("openai complete: api key required")
	}
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return "", convertError(err)
	}
	for _, choice := range resp.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai complete: empty choices")
	}
	return "", fmt.Errorf("openai complete: empty content (finish_reason=%q)", resp.Choices[0].FinishReason)
}

func convertError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai complete: %w", err)
	}
	statusErr := &llm.HTTPStatusError{
		StatusCode: apiErr.StatusCode,
		Body:       strings.TrimSpace(apiErr.Message),
	}
	if apiErr.Response != nil {
		if seconds := strings.TrimSpace(apiErr.Response.Header.Get("Retry-After")); seconds != "" {
			if d, parseErr := time.ParseDuration(seconds + "s"); parseErr == nil && d > 0 {
				statusErr.RetryAfter = d
			}
		}
	}
	return fmt.Errorf("openai complete: %w", statusErr)
}
