package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"subburn/internal/config"
	"subburn/internal/services"
	"subburn/internal/testsupport"
)

var russianToKazakh = map[string]string{"Привет": "Сәлем"}

type fixture struct {
	cfg      *config.Config
	server   *testsupport.LLMServer
	video    string
	subtitle string
}

func newFixture(t *testing.T, reply func(string) string, opts ...testsupport.ConfigOption) fixture {
	t.Helper()
	server := testsupport.NewLLMServer(t, reply)
	opts = append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries(), testsupport.WithLLMBaseURL(server.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	dir := t.TempDir()
	return fixture{
		cfg:      cfg,
		server:   server,
		video:    testsupport.WriteFile(t, filepath.Join(dir, "y.mp4"), "video"),
		subtitle: testsupport.WriteFile(t, filepath.Join(dir, "x.vtt"), testsupport.SampleVTT),
	}
}

func (f fixture) runner(t *testing.T) *Runner {
	t.Helper()
	runner, err := NewRunner(f.cfg, nil, WithSleeper(func(time.Duration) {}))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func TestRunTranslatesAndBurns(t *testing.T) {
	f := newFixture(t, testsupport.Dictionary(russianToKazakh))

	result, err := f.runner(t).Run(context.Background(), Request{VideoPath: f.video, SubtitlePath: f.subtitle})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	dir := filepath.Dir(f.subtitle)
	if result.SubtitlePath != filepath.Join(dir, "x_translated.vtt") {
		t.Fatalf("unexpected subtitle output %q", result.SubtitlePath)
	}
	if result.VideoPath != filepath.Join(dir, "y_with_subtitles.mp4") {
		t.Fatalf("unexpected video output %q", result.VideoPath)
	}
	want := "WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.000\nСәлем\n"
	if got := testsupport.ReadFile(t, result.SubtitlePath); got != want {
		t.Fatalf("translated subtitle = %q, want %q", got, want)
	}
	if got := testsupport.ReadFile(t, result.VideoPath); got != "burned" {
		t.Fatalf("unexpected burned output %q", got)
	}
	if !result.Burned || result.RunID == "" || result.Encoding != "utf-8" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Report.Batches != 1 || result.Report.Degraded() {
		t.Fatalf("unexpected report: %+v", result.Report)
	}
	lock := flock.New(result.SubtitlePath + ".lock")
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("lock should be released after the run: ok=%v err=%v", ok, err)
	}
	_ = lock.Unlock()
}

func TestRunSkipBurn(t *testing.T) {
	f := newFixture(t, testsupport.Dictionary(russianToKazakh))
	custom := filepath.Join(t.TempDir(), "custom.vtt")

	result, err := f.runner(t).Run(context.Background(), Request{SubtitlePath: f.subtitle, OutputSubtitle: custom, SkipBurn: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SubtitlePath != custom || result.Burned || result.VideoPath != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(testsupport.ReadFile(t, custom), "Сәлем") {
		t.Fatal("expected translated text in custom output")
	}
}

func TestRunBurnFailureKeepsSubtitle(t *testing.T) {
	f := newFixture(t, testsupport.Dictionary(russianToKazakh), testsupport.WithFailingFFmpeg())

	result, err := f.runner(t).Run(context.Background(), Request{VideoPath: f.video, SubtitlePath: f.subtitle})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if services.ExitCode(err) == 0 {
		t.Fatal("burn failure must map to a non-zero exit code")
	}
	if result.SubtitlePath == "" || !strings.Contains(testsupport.ReadFile(t, result.SubtitlePath), "Сәлем") {
		t.Fatalf("translated subtitle should be kept, got %+v", result)
	}
	if result.Burned {
		t.Fatal("result must not report a burn")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(f.video), "y_with_subtitles.mp4")); !os.IsNotExist(err) {
		t.Fatal("no video output expected after a failed burn")
	}
}

func TestRunFallsBackWhenModelUnavailable(t *testing.T) {
	f := newFixture(t, func(string) string { return "" })

	result, err := f.runner(t).Run(context.Background(), Request{SubtitlePath: f.subtitle, SkipBurn: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := testsupport.ReadFile(t, result.SubtitlePath); got != testsupport.SampleVTT {
		t.Fatalf("expected source text to be kept, got %q", got)
	}
	if !result.Report.Degraded() || result.Report.Attempts != f.cfg.Translation.MaxRetries {
		t.Fatalf("unexpected report: %+v", result.Report)
	}
	if f.server.Requests() != f.cfg.Translation.MaxRetries {
		t.Fatalf("expected %d requests, got %d", f.cfg.Translation.MaxRetries, f.server.Requests())
	}
}

func TestRunServesRepeatsFromCache(t *testing.T) {
	f := newFixture(t, testsupport.Dictionary(russianToKazakh))
	runner := f.runner(t)
	req := Request{SubtitlePath: f.subtitle, SkipBurn: true, Overwrite: true}

	if _, err := runner.Run(context.Background(), req); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := f.server.Requests()

	result, err := runner.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if f.server.Requests() != first {
		t.Fatalf("expected cached run to skip the model, got %d new requests", f.server.Requests()-first)
	}
	if result.Report.CacheHits != 1 {
		t.Fatalf("expected one cache hit, got %+v", result.Report)
	}

	req.NoCache = true
	if _, err := runner.Run(context.Background(), req); err != nil {
		t.Fatalf("no-cache run: %v", err)
	}
	if f.server.Requests() != first+1 {
		t.Fatal("expected --no-cache to query the model")
	}
}

func TestRunRejectsLockedOutput(t *testing.T) {
	f := newFixture(t, testsupport.Dictionary(russianToKazakh))
	lock := flock.New(filepath.Join(filepath.Dir(f.subtitle), "x_translated.vtt.lock"))
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("pre-lock: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	_, err := f.runner(t).Run(context.Background(), Request{SubtitlePath: f.subtitle, SkipBurn: true})
	if !errors.Is(err, services.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if f.server.Requests() != 0 {
		t.Fatal("locked run must not call the model")
	}
}

func TestRunValidatesBeforeTranslating(t *testing.T) {
	f := newFixture(t, testsupport.Dictionary(russianToKazakh))
	runner := f.runner(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"missing subtitle path", Request{VideoPath: f.video}},
		{"missing video path", Request{SubtitlePath: f.subtitle}},
		{"video not found", Request{VideoPath: f.video + ".missing", SubtitlePath: f.subtitle}},
		{"same languages", Request{SubtitlePath: f.subtitle, SkipBurn: true, SourceLanguage: "kk", TargetLanguage: "kk"}},
		{"unknown language", Request{SubtitlePath: f.subtitle, SkipBurn: true, TargetLanguage: "not a language"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runner.Run(context.Background(), tt.req); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if f.server.Requests() != 0 {
		t.Fatal("invalid requests must not call the model")
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	f := newFixture(t, testsupport.Dictionary(russianToKazakh))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.runner(t).Run(ctx, Request{SubtitlePath: f.subtitle, SkipBurn: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.SubtitlePath != "" {
		t.Fatal("cancelled run must not write output")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(f.subtitle), "x_translated.vtt")); !os.IsNotExist(err) {
		t.Fatal("translated file must not exist")
	}
}

func TestBurnOnly(t *testing.T) {
	f := newFixture(t, testsupport.Dictionary(nil))

	result, err := f.runner(t).Burn(context.Background(), Request{VideoPath: f.video, SubtitlePath: f.subtitle})
	if err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if !result.Burned || !strings.HasSuffix(result.VideoPath, "y_with_subtitles.mp4") {
		t.Fatalf("unexpected result: %+v", result)
	}
	if f.server.Requests() != 0 {
		t.Fatal("burn-only must not call the model")
	}
}

func TestNewCompleterProviders(t *testing.T) {
	for _, provider := range []string{config.ProviderDeepSeek, config.ProviderOpenAI} {
		client, err := NewCompleter(config.LLMConfig{Provider: provider, APIKey: "k", Model: "m"})
		if err != nil || client == nil {
			t.Fatalf("NewCompleter(%s): %v", provider, err)
		}
	}
	if _, err := NewCompleter(config.LLMConfig{Provider: "bogus"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
