package translate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"subburn/internal/services/llm"
	"subburn/internal/tmcache"
)

// stubCompleter answers prompts with a canned function and records calls.
type stubCompleter struct {
	calls   int
	prompts []string
	reply   func(call int, prompt string) (string, error)
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	return s.reply(s.calls, prompt)
}

func (s *stubCompleter) Model() string { return "stub-model" }

// dictionary translates each numbered prompt line through words, echoing
// unknown lines unchanged.
func dictionary(words map[string]string) func(int, string) (string, error) {
	return func(_ int, prompt string) (string, error) {
		_, body, _ := strings.Cut(prompt, "\n\n")
		var out []string
		for i, line := range strings.Split(body, "\n") {
			text := numberPrefix.ReplaceAllString(line, "")
			if translated, ok := words[text]; ok {
				text = translated
			}
			out = append(out, fmt.Sprintf("%d. %s", i+1, text))
		}
		return strings.Join(out, "\n"), nil
	}
}

func newTestTranslator(client Completer, opts Options, sleeps *[]time.Duration, extra ...Option) *Translator {
	if opts.SourceLanguage == "" {
		opts.SourceLanguage = "ru"
	}
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = "kk"
	}
	extra = append(extra, WithSleeper(func(d time.Duration) {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}))
	return New(client, opts, nil, extra...)
}

func TestTranslateBatchSingleAttemptPreservesOrder(t *testing.T) {
	client := &stubCompleter{reply: dictionary(map[string]string{"Привет": "Сәлем", "Да": "Иә", "Нет": "Жоқ"})}
	tr := newTestTranslator(client, Options{}, nil)

	outcome := tr.TranslateBatch(context.Background(), []string{"Привет", "Да", "Нет"}, 3)

	if client.calls != 1 {
		t.Fatalf("expected exactly one request, got %d", client.calls)
	}
	if outcome.Fallback || !outcome.Translated() || outcome.Attempts != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if want := []string{"Сәлем", "Иә", "Жоқ"}; !reflect.DeepEqual(outcome.Lines, want) {
		t.Fatalf("lines = %q, want %q", outcome.Lines, want)
	}
}

func TestTranslateBatchPermanentFailureFallsBack(t *testing.T) {
	failure := errors.New("connection refused")
	client := &stubCompleter{reply: func(int, string) (string, error) { return "", failure }}
	var sleeps []time.Duration
	tr := newTestTranslator(client, Options{}, &sleeps)
	input := []string{"Привет", "Да"}

	outcome := tr.TranslateBatch(context.Background(), input, 3)

	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
	if !outcome.Fallback || outcome.Attempts != 3 {
		t.Fatalf("expected fallback after 3 attempts, got %+v", outcome)
	}
	if !errors.Is(outcome.Cause, failure) {
		t.Fatalf("expected cause %v, got %v", failure, outcome.Cause)
	}
	if !reflect.DeepEqual(outcome.Lines, input) {
		t.Fatalf("expected original lines, got %q", outcome.Lines)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !reflect.DeepEqual(sleeps, want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
}

func TestTranslateBatchRecoversAfterFailure(t *testing.T) {
	words := dictionary(map[string]string{"Привет": "Сәлем"})
	client := &stubCompleter{reply: func(call int, prompt string) (string, error) {
		if call == 1 {
			return "", &llm.HTTPStatusError{StatusCode: 503}
		}
		return words(call, prompt)
	}}
	tr := newTestTranslator(client, Options{}, nil)

	outcome := tr.TranslateBatch(context.Background(), []string{"Привет"}, 3)

	if outcome.Fallback || outcome.Attempts != 2 || outcome.Lines[0] != "Сәлем" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestTranslateBatchLineCountMismatchIsRetried(t *testing.T) {
	client := &stubCompleter{reply: func(int, string) (string, error) { return "1. only one", nil }}
	tr := newTestTranslator(client, Options{}, nil)

	outcome := tr.TranslateBatch(context.Background(), []string{"a", "b"}, 2)

	if client.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", client.calls)
	}
	if !outcome.Fallback || !errors.Is(outcome.Cause, ErrLineCountMismatch) {
		t.Fatalf("expected line count mismatch fallback, got %+v", outcome)
	}
}

func TestTranslateBatchNonPositiveRetriesMeansOneAttempt(t *testing.T) {
	client := &stubCompleter{reply: func(int, string) (string, error) { return "", errors.New("boom") }}
	var sleeps []time.Duration
	tr := newTestTranslator(client, Options{}, &sleeps)

	outcome := tr.TranslateBatch(context.Background(), []string{"a"}, 0)

	if client.calls != 1 || outcome.Attempts != 1 || !outcome.Fallback {
		t.Fatalf("expected a single attempt, got calls=%d outcome=%+v", client.calls, outcome)
	}
	if len(sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", sleeps)
	}
}

func TestTranslateBatchBackoffIsCapped(t *testing.T) {
	client := &stubCompleter{reply: func(int, string) (string, error) { return "", errors.New("boom") }}
	var sleeps []time.Duration
	tr := newTestTranslator(client, Options{RetryBaseDelay: time.Second, RetryMaxDelay: 5 * time.Second}, &sleeps)

	tr.TranslateBatch(context.Background(), []string{"a"}, 6)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	if !reflect.DeepEqual(sleeps, want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
}

func TestTranslateBatchHonorsRetryAfter(t *testing.T) {
	client := &stubCompleter{reply: func(int, string) (string, error) {
		return "", fmt.Errorf("complete: %w", &llm.HTTPStatusError{StatusCode: 429, RetryAfter: 7 * time.Second})
	}}
	var sleeps []time.Duration
	tr := newTestTranslator(client, Options{}, &sleeps)

	tr.TranslateBatch(context.Background(), []string{"a"}, 2)

	if want := []time.Duration{7 * time.Second}; !reflect.DeepEqual(sleeps, want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
}

func TestTranslateBatchStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &stubCompleter{reply: func(int, string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	tr := newTestTranslator(client, Options{}, nil)

	outcome := tr.TranslateBatch(ctx, []string{"a"}, 5)

	if client.calls != 1 {
		t.Fatalf("expected cancellation to stop retries, got %d calls", client.calls)
	}
	if !outcome.Fallback || !errors.Is(outcome.Cause, context.Canceled) {
		t.Fatalf("expected cancelled fallback, got %+v", outcome)
	}
}

func TestTranslateBatchEmpty(t *testing.T) {
	client := &stubCompleter{reply: func(int, string) (string, error) { return "", errors.New("unexpected") }}
	tr := newTestTranslator(client, Options{}, nil)

	outcome := tr.TranslateBatch(context.Background(), nil, 3)
	if client.calls != 0 || outcome.Fallback || len(outcome.Lines) != 0 {
		t.Fatalf("unexpected outcome for empty batch: calls=%d %+v", client.calls, outcome)
	}
}

// memoryStub is an in-process Memory.
type memoryStub struct {
	entries map[tmcache.Key]string
	puts    int
}

func (m *memoryStub) Lookup(_ context.Context, key tmcache.Key) (string, bool, error) {
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryStub) Put(_ context.Context, key tmcache.Key, translation string) error {
	m.puts++
	m.entries[key] = translation
	return nil
}

func TestTranslateBatchUsesMemory(t *testing.T) {
	memory := &memoryStub{entries: map[tmcache.Key]string{
		{Source: "ru", Target: "kk", Model: "stub-model", Text: "Привет"}: "Сәлем",
	}}
	client := &stubCompleter{reply: dictionary(map[string]string{"Да": "Иә"})}
	tr := newTestTranslator(client, Options{}, nil, WithMemory(memory))

	outcome := tr.TranslateBatch(context.Background(), []string{"Привет", "Да"}, 3)

	if outcome.CacheHits != 1 || outcome.Fallback {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if want := []string{"Сәлем", "Иә"}; !reflect.DeepEqual(outcome.Lines, want) {
		t.Fatalf("lines = %q, want %q", outcome.Lines, want)
	}
	if len(client.prompts) != 1 || strings.Contains(client.prompts[0], "Привет") || !strings.Contains(client.prompts[0], "1. Да") {
		t.Fatalf("expected only the miss to be requested, got %q", client.prompts)
	}

	client.calls = 0
	again := tr.TranslateBatch(context.Background(), []string{"Привет", "Да"}, 3)
	if client.calls != 0 || again.CacheHits != 2 {
		t.Fatalf("expected full cache hit without requests, calls=%d outcome=%+v", client.calls, again)
	}
}

func TestTranslateBatchDoesNotMemorizeFallback(t *testing.T) {
	memory := &memoryStub{entries: map[tmcache.Key]string{}}
	client := &stubCompleter{reply: func(int, string) (string, error) { return "", errors.New("boom") }}
	tr := newTestTranslator(client, Options{}, nil, WithMemory(memory))

	tr.TranslateBatch(context.Background(), []string{"Привет"}, 2)

	if memory.puts != 0 {
		t.Fatalf("fallback lines must not be stored, got %d puts", memory.puts)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	tr := New(&stubCompleter{}, Options{}, nil)
	opts := tr.Options()
	if opts.BatchSize != DefaultBatchSize || opts.MaxRetries != DefaultMaxRetries {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if opts.RetryBaseDelay != time.Second || opts.RetryMaxDelay != 30*time.Second {
		t.Fatalf("unexpected backoff defaults: %+v", opts)
	}
}
