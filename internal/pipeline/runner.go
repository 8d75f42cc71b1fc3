package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"subburn/internal/burn"
	"subburn/internal/config"
	"subburn/internal/deps"
	"subburn/internal/language"
	"subburn/internal/logging"
	"subburn/internal/services"
	"subburn/internal/subtitles"
	"subburn/internal/tmcache"
	"subburn/internal/translate"
)

// Request describes one job. Zero-valued overrides fall back to the config.
type Request struct {
	VideoPath    string
	SubtitlePath string

	// OutputSubtitle defaults to subtitles.TranslatedPath(SubtitlePath).
	OutputSubtitle string
	// OutputVideo defaults to burn.OutputPath(VideoPath).
	OutputVideo string

	SourceLanguage string
	TargetLanguage string
	BatchSize      int
	MaxRetries     int

	SkipBurn  bool
	Overwrite bool
	NoCache   bool
}

// Result reports what a run produced. On a burn failure SubtitlePath is still
// set because the translated file is kept.
type Result struct {
	RunID        string
	SubtitlePath string
	VideoPath    string
	Encoding     string
	Report       translate.Report
	Burned       bool
	Verified     bool
	Elapsed      time.Duration
}

// Runner executes jobs against one configuration.
type Runner struct {
	cfg      *config.Config
	base     *slog.Logger
	logger   *slog.Logger
	client   translate.Completer
	burner   *burn.Burner
	sleeper  func(time.Duration)
	newRunID func() string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithCompleter overrides the chat-completion client.
func WithCompleter(client translate.Completer) Option {
	return func(r *Runner) {
		r.client = client
	}
}

// WithBurner overrides the video burner.
func WithBurner(b *burn.Burner) Option {
	return func(r *Runner) {
		r.burner = b
	}
}

// WithSleeper overrides backoff sleeps in the translator.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(r *Runner) {
		r.sleeper = sleeper
	}
}

// NewRunner constructs a Runner. The LLM client is built from cfg unless one
// is supplied.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	r := &Runner{
		cfg:      cfg,
		base:     logger,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.client == nil {
		client, err := NewCompleter(cfg.GetLLM())
		if err != nil {
			return nil, err
		}
		r.client = client
	}
	if r.burner == nil {
		r.burner = burn.NewBurner(burn.Options{
			FFmpegBinary:  cfg.FFmpegBinary(),
			FFprobeBinary: cfg.FFprobeBinary(),
			VerifyOutput:  cfg.Burn.VerifyOutput,
		}, logger)
	}
	return r, nil
}

// Run translates req.SubtitlePath and, unless SkipBurn is set, burns the
// result into req.VideoPath.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	if strings.TrimSpace(req.SubtitlePath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "run", "subtitle path is required", nil)
	}
	if !req.SkipBurn && strings.TrimSpace(req.VideoPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "run", "video path is required unless burning is skipped", nil)
	}
	opts, err := r.translateOptions(req)
	if err != nil {
		return Result{}, err
	}

	result := Result{RunID: r.newRunID()}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, r.logger)

	outSubtitle := req.OutputSubtitle
	if strings.TrimSpace(outSubtitle) == "" {
		outSubtitle = subtitles.TranslatedPath(req.SubtitlePath)
	}
	outVideo := req.OutputVideo
	if !req.SkipBurn && strings.TrimSpace(outVideo) == "" {
		outVideo = burn.OutputPath(req.VideoPath)
	}
	overwrite := req.Overwrite || r.cfg.Burn.Overwrite

	// Fail before spending API calls on a run that cannot finish.
	if !req.SkipBurn {
		if err := r.checkBurnInputs(req.VideoPath, outVideo, overwrite); err != nil {
			return result, err
		}
	}

	unlock, err := acquireLock(outSubtitle)
	if err != nil {
		return result, err
	}
	defer unlock()

	readCtx := services.WithStage(ctx, "read")
	doc, encoding, err := subtitles.ReadLines(req.SubtitlePath)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(readCtx, r.logger), "subtitle read failed", "subtitle_read_failed",
			logging.Error(err),
			logging.String("input", req.SubtitlePath),
			logging.String(logging.FieldErrorHint, "convert the file to UTF-8 or Windows-1251"),
		)
		return result, err
	}
	result.Encoding = encoding

	translateCtx := services.WithStage(ctx, "translate")
	translator, closeMemory := r.newTranslator(translateCtx, opts, req.NoCache)
	defer closeMemory()
	logging.WithContext(translateCtx, r.logger).Info("translating subtitles",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("input", req.SubtitlePath),
		logging.String("encoding", encoding),
		logging.String("source_language", opts.SourceLanguage),
		logging.String("target_language", opts.TargetLanguage),
		logging.Int("lines", len(doc)),
	)
	translated, report := translator.TranslateDocument(translateCtx, doc)
	result.Report = report
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("translation interrupted: %w", err)
	}

	writeCtx := services.WithStage(ctx, "write")
	if err := subtitles.WriteLines(outSubtitle, translated); err != nil {
		return result, err
	}
	result.SubtitlePath = outSubtitle
	logging.WithContext(writeCtx, r.logger).Info("translated subtitles saved",
		logging.String(logging.FieldEventType, "subtitle_written"),
		logging.String("output", outSubtitle),
		logging.Int("batches", report.Batches),
		logging.Int("fallback_lines", report.FallbackLines),
		logging.Int("cache_hits", report.CacheHits),
	)
	if report.Degraded() {
		logging.WarnWithContext(logging.WithContext(writeCtx, r.logger), "some lines kept their source text", "translation_degraded",
			logging.Int("fallback_lines", report.FallbackLines),
			logging.Int("fallback_batches", report.FallbackBatches),
			logging.String(logging.FieldErrorHint, "re-run later; translated lines are served from the cache"),
			logging.String(logging.FieldImpact, "output contains untranslated lines"),
		)
	}

	if req.SkipBurn {
		result.Elapsed = time.Since(started)
		return result, nil
	}

	burned, err := r.burn(ctx, req.VideoPath, outSubtitle, outVideo, overwrite)
	result.Elapsed = time.Since(started)
	if err != nil {
		return result, err
	}
	result.VideoPath = burned.OutputPath
	result.Burned = true
	result.Verified = burned.Verified
	logger.Info("subtitles burned into video",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", burned.OutputPath),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// Burn only burns an existing subtitle file into a video.
func (r *Runner) Burn(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	if strings.TrimSpace(req.VideoPath) == "" || strings.TrimSpace(req.SubtitlePath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "burn", "video and subtitle paths are required", nil)
	}
	result := Result{RunID: r.newRunID(), SubtitlePath: req.SubtitlePath}
	ctx = services.WithRunID(ctx, result.RunID)

	outVideo := req.OutputVideo
	if strings.TrimSpace(outVideo) == "" {
		outVideo = burn.OutputPath(req.VideoPath)
	}
	overwrite := req.Overwrite || r.cfg.Burn.Overwrite
	if err := r.checkBurnInputs(req.VideoPath, outVideo, overwrite); err != nil {
		return result, err
	}
	unlock, err := acquireLock(outVideo)
	if err != nil {
		return result, err
	}
	defer unlock()

	burned, err := r.burn(ctx, req.VideoPath, req.SubtitlePath, outVideo, overwrite)
	result.Elapsed = time.Since(started)
	if err != nil {
		return result, err
	}
	result.VideoPath = burned.OutputPath
	result.Burned = true
	result.Verified = burned.Verified
	logging.WithContext(ctx, r.logger).Info("subtitles burned into video",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", burned.OutputPath),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (r *Runner) burn(ctx context.Context, video, subtitle, output string, overwrite bool) (burn.Result, error) {
	burnCtx := services.WithStage(ctx, "burn")
	logging.WithContext(burnCtx, r.logger).Info("adding subtitles to video",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("video", video),
		logging.String("subtitle", subtitle),
	)
	return r.burner.Burn(burnCtx, burn.Request{
		VideoPath:    video,
		SubtitlePath: subtitle,
		OutputPath:   output,
		Overwrite:    overwrite,
	})
}

func (r *Runner) checkBurnInputs(video, output string, overwrite bool) error {
	if _, err := os.Stat(video); err != nil {
		return services.Wrap(services.ErrValidation, "pipeline", "check inputs", "video not found: "+video, err)
	}
	if !overwrite {
		if _, err := os.Stat(output); err == nil {
			return services.Wrap(services.ErrValidation, "pipeline", "check inputs",
				"output video exists (use --overwrite to replace): "+output, nil)
		}
	}
	return deps.Require(
		deps.FFmpeg(r.cfg.FFmpegBinary()),
		deps.FFprobe(r.cfg.FFprobeBinary(), false),
	)
}

func (r *Runner) translateOptions(req Request) (translate.Options, error) {
	source := firstNonEmpty(req.SourceLanguage, r.cfg.Translation.SourceLanguage)
	target := firstNonEmpty(req.TargetLanguage, r.cfg.Translation.TargetLanguage)
	normSource, err := language.Normalize(source)
	if err != nil {
		return translate.Options{}, services.Wrap(services.ErrValidation, "pipeline", "source language", source, err)
	}
	normTarget, err := language.Normalize(target)
	if err != nil {
		return translate.Options{}, services.Wrap(services.ErrValidation, "pipeline", "target language", target, err)
	}
	source, target = normSource, normTarget
	if source == target {
		return translate.Options{}, services.Wrap(services.ErrValidation, "pipeline", "languages",
			"source and target language are both "+source, nil)
	}
	opts := translate.Options{
		SourceLanguage: source,
		TargetLanguage: target,
		BatchSize:      r.cfg.Translation.BatchSize,
		MaxRetries:     r.cfg.Translation.MaxRetries,
		RetryBaseDelay: r.cfg.RetryBaseDelay(),
		RetryMaxDelay:  r.cfg.RetryMaxDelay(),
	}
	if req.BatchSize > 0 {
		opts.BatchSize = req.BatchSize
	}
	if req.MaxRetries > 0 {
		opts.MaxRetries = req.MaxRetries
	}
	return opts, nil
}

// newTranslator wires the translation memory when enabled. A cache that
// cannot be opened is logged and skipped.
func (r *Runner) newTranslator(ctx context.Context, opts translate.Options, noCache bool) (*translate.Translator, func()) {
	var extra []translate.Option
	if r.sleeper != nil {
		extra = append(extra, translate.WithSleeper(r.sleeper))
	}
	closeFn := func() {}
	if r.cfg.Cache.Enabled && !noCache {
		store, err := tmcache.Open(ctx, r.cfg.Cache.Path)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "translation memory unavailable", "cache_open_failed",
				logging.Error(err),
				logging.String("path", r.cfg.Cache.Path),
				logging.String(logging.FieldErrorHint, "check cache.path permissions or run 'subburn cache clear'"),
				logging.String(logging.FieldImpact, "every line is sent to the model"),
			)
		} else {
			extra = append(extra, translate.WithMemory(store))
			closeFn = func() {
				if err := store.Close(); err != nil {
					r.logger.Debug("close translation memory", logging.Error(err))
				}
			}
		}
	}
	return translate.New(r.client, opts, r.base, extra...), closeFn
}

// acquireLock takes an advisory lock next to path. A held lock is ErrLocked.
func acquireLock(path string) (func(), error) {
	lockPath := path + ".lock"
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrLocked, "pipeline", "lock",
			"another subburn run is writing "+path, nil)
	}
	// The lock file stays on disk so every run locks the same inode.
	return func() {
		_ = lock.Unlock()
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
