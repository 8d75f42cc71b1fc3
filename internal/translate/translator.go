package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"subburn/internal/logging"
	"subburn/internal/services/llm"
	"subburn/internal/tmcache"
)

const (
	// DefaultBatchSize is the number of lines sent per request.
	DefaultBatchSize = 10
	// DefaultMaxRetries is the number of attempts per batch.
	DefaultMaxRetries     = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// ErrLineCountMismatch reports a reply whose line count differs from the request.
var ErrLineCountMismatch = errors.New("translated line count mismatch")

// Completer sends one prompt to a chat-completion model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Memory stores translations across runs.
type Memory interface {
	Lookup(ctx context.Context, key tmcache.Key) (string, bool, error)
	Put(ctx context.Context, key tmcache.Key, translation string) error
}

// Options configures a Translator.
type Options struct {
	SourceLanguage string
	TargetLanguage string
	BatchSize      int
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Outcome is the result of one batch. When Fallback is set, lines that were
// not served from memory carry their source text and Cause holds the last
// failure.
type Outcome struct {
	Lines     []string
	Fallback  bool
	Cause     error
	Attempts  int
	CacheHits int
}

// Translated reports whether every line came from the model or memory.
func (o Outcome) Translated() bool {
	return !o.Fallback
}

// Translator translates batches of subtitle lines.
type Translator struct {
	client  Completer
	memory  Memory
	model   string
	opts    Options
	logger  *slog.Logger
	sleeper func(time.Duration)
}

// Option customizes a Translator.
type Option func(*Translator)

// WithMemory attaches a translation memory consulted before each request.
func WithMemory(memory Memory) Option {
	return func(t *Translator) {
		t.memory = memory
	}
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(t *Translator) {
		t.sleeper = sleeper
	}
}

// New constructs a Translator around client. Zero option values fall back to
// package defaults.
func New(client Completer, opts Options, logger *slog.Logger, extra ...Option) *Translator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	} else if opts.RetryBaseDelay == 0 {
		opts.RetryBaseDelay = defaultRetryBaseDelay
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = defaultRetryMaxDelay
	}
	t := &Translator{
		client: client,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "translator"),
	}
	if named, ok := client.(interface{ Model() string }); ok {
		t.model = named.Model()
	}
	for _, opt := range extra {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Options returns the effective settings after defaults were applied.
func (t *Translator) Options() Options {
	return t.opts
}

// TranslateBatch translates texts with up to maxRetries attempts. It never
// returns an error: exhausted retries yield a fallback Outcome. maxRetries <= 0
// is treated as 1.
func (t *Translator) TranslateBatch(ctx context.Context, texts []string, maxRetries int) Outcome {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	lines := append([]string(nil), texts...)
	if len(texts) == 0 {
		return Outcome{Lines: lines}
	}
	logger := logging.WithContext(ctx, t.logger)

	pending, hits := t.recall(ctx, logger, lines)
	if len(pending) == 0 {
		return Outcome{Lines: lines, CacheHits: hits}
	}

	requested := make([]string, len(pending))
	for i, idx := range pending {
		requested[i] = texts[idx]
	}
	prompt := BuildPrompt(t.opts.SourceLanguage, t.opts.TargetLanguage, requested)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts++
		translated, err := t.attempt(ctx, prompt, len(requested))
		if err == nil {
			for i, idx := range pending {
				lines[idx] = translated[i]
			}
			t.remember(ctx, logger, requested, translated)
			return Outcome{Lines: lines, Attempts: attempts, CacheHits: hits}
		}
		lastErr = err

		final := attempt == maxRetries-1
		delay := time.Duration(0)
		if !final {
			delay = t.retryDelay(attempt, err)
		}
		logging.WarnWithContext(logger, "translation attempt failed", "translation_attempt_failed",
			logging.Int("attempt", attempt+1),
			logging.Int("max_attempts", maxRetries),
			logging.Int("lines", len(requested)),
			logging.Duration("backoff", delay),
			logging.Bool("transient", llm.IsTransient(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the API key, account balance, and network access"),
			logging.String(logging.FieldImpact, retryImpact(final)),
		)
		if final {
			break
		}
		if err := t.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	logging.WarnWithContext(logger, "translation fell back to source text", "translation_fallback",
		logging.Int("attempts", attempts),
		logging.Int("lines", len(requested)),
		logging.Error(lastErr),
		logging.String(logging.FieldErrorHint, "re-run later; cached lines will not be requested again"),
		logging.String(logging.FieldImpact, "these lines keep their source-language text"),
	)
	return Outcome{Lines: lines, Fallback: true, Cause: lastErr, Attempts: attempts, CacheHits: hits}
}

func (t *Translator) attempt(ctx context.Context, prompt string, want int) ([]string, error) {
	content, err := t.client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	translated := ParseResponse(content)
	if len(translated) != want {
		return nil, fmt.Errorf("%w: got %d lines, want %d", ErrLineCountMismatch, len(translated), want)
	}
	return translated, nil
}

func retryImpact(final bool) string {
	if final {
		return "retries exhausted"
	}
	return "batch will be retried"
}

// recall fills lines from memory and returns the indexes still to translate.
func (t *Translator) recall(ctx context.Context, logger *slog.Logger, lines []string) ([]int, int) {
	pending := make([]int, 0, len(lines))
	if t.memory == nil {
		for i := range lines {
			pending = append(pending, i)
		}
		return pending, 0
	}
	hits := 0
	for i, text := range lines {
		cached, ok, err := t.memory.Lookup(ctx, t.key(text))
		if err != nil {
			logging.WarnWithContext(logger, "translation memory lookup failed", "cache_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "line will be sent to the model"),
			)
			pending = append(pending, i)
			continue
		}
		if !ok {
			pending = append(pending, i)
			continue
		}
		lines[i] = cached
		hits++
	}
	if hits > 0 {
		logger.Debug("translation memory hits", logging.Int("cache_hits", hits), logging.Int("lines", len(lines)))
	}
	return pending, hits
}

func (t *Translator) remember(ctx context.Context, logger *slog.Logger, texts, translated []string) {
	if t.memory == nil {
		return
	}
	for i, text := range texts {
		if strings.TrimSpace(translated[i]) == "" {
			continue
		}
		if err := t.memory.Put(ctx, t.key(text), translated[i]); err != nil {
			logging.WarnWithContext(logger, "translation memory write failed", "cache_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "translation will be requested again next run"),
			)
			return
		}
	}
}

func (t *Translator) key(text string) tmcache.Key {
	return tmcache.Key{
		Source: t.opts.SourceLanguage,
		Target: t.opts.TargetLanguage,
		Model:  t.model,
		Text:   text,
	}
}

// retryDelay returns base*2^attempt capped at RetryMaxDelay, or the server's
// Retry-After when that is longer.
func (t *Translator) retryDelay(attempt int, err error) time.Duration {
	delay := t.backoffDelay(attempt)
	if after, ok := llm.RetryAfter(err); ok && after > delay {
		delay = after
	}
	return t.capDelay(delay)
}

func (t *Translator) backoffDelay(attempt int) time.Duration {
	base := t.opts.RetryBaseDelay
	maxDelay := t.opts.RetryMaxDelay
	if base <= 0 {
		return 0
	}
	// attempt 0 -> base, attempt 1 -> base*2, attempt 2 -> base*4, ...
	delay := base
	for i := 0; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	return t.capDelay(delay)
}

func (t *Translator) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if t.opts.RetryMaxDelay > 0 && delay > t.opts.RetryMaxDelay {
		return t.opts.RetryMaxDelay
	}
	return delay
}

func (t *Translator) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if t.sleeper != nil {
		t.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
