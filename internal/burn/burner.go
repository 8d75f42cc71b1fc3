package burn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"subburn/internal/fileutil"
	"subburn/internal/logging"
	"subburn/internal/media/ffprobe"
	"subburn/internal/services"
)

// SubtitledSuffix is inserted before the extension of burned videos.
const SubtitledSuffix = "_with_subtitles"

const (
	defaultFFmpeg = "ffmpeg"
	outputTailLen = 15
)

// Request describes one burn.
type Request struct {
	VideoPath    string
	SubtitlePath string
	// OutputPath defaults to OutputPath(VideoPath).
	OutputPath string
	Overwrite  bool
}

// Result reports a completed burn.
type Result struct {
	OutputPath string
	Elapsed    time.Duration
	Verified   bool
}

// Options configures a Burner.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	VerifyOutput  bool
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

type prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Burner invokes ffmpeg to hard-code subtitles into a video.
type Burner struct {
	opts   Options
	logger *slog.Logger
	run    commandRunner
	probe  prober
}

// NewBurner constructs a Burner.
func NewBurner(opts Options, logger *slog.Logger) *Burner {
	if strings.TrimSpace(opts.FFmpegBinary) == "" {
		opts.FFmpegBinary = defaultFFmpeg
	}
	if strings.TrimSpace(opts.FFprobeBinary) == "" {
		opts.FFprobeBinary = ffprobe.DefaultBinary
	}
	return &Burner{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "burner"),
		run:    defaultCommandRunner,
		probe:  ffprobe.Inspect,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (b *Burner) WithCommandRunner(r commandRunner) {
	if b != nil && r != nil {
		b.run = r
	}
}

// WithProber replaces the ffprobe invocation used for output verification.
func (b *Burner) WithProber(p prober) {
	if b != nil && p != nil {
		b.probe = p
	}
}

// OutputPath derives the default burned video path: "y.mp4" becomes
// "y_with_subtitles.mp4".
func OutputPath(videoPath string) string {
	return fileutil.InsertSuffix(videoPath, SubtitledSuffix)
}

// Burn runs ffmpeg once. Failures are not retried.
func (b *Burner) Burn(ctx context.Context, req Request) (Result, error) {
	if b == nil {
		return Result{}, errors.New("burner not initialized")
	}
	if strings.TrimSpace(req.VideoPath) == "" || strings.TrimSpace(req.SubtitlePath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "burner", "burn", "video and subtitle paths are required", nil)
	}
	if !fileutil.Exists(req.VideoPath) {
		return Result{}, services.Wrap(services.ErrValidation, "burner", "burn", "video not found: "+req.VideoPath, nil)
	}
	if !fileutil.Exists(req.SubtitlePath) {
		return Result{}, services.Wrap(services.ErrValidation, "burner", "burn", "subtitle not found: "+req.SubtitlePath, nil)
	}
	output := req.OutputPath
	if strings.TrimSpace(output) == "" {
		output = OutputPath(req.VideoPath)
	}
	if !req.Overwrite && fileutil.Exists(output) {
		return Result{}, services.Wrap(services.ErrValidation, "burner", "burn",
			"output exists (use --overwrite to replace): "+output, nil)
	}

	logger := logging.WithContext(ctx, b.logger)
	tmpPath := fileutil.TempSibling(output, "burn")
	_ = os.Remove(tmpPath)

	args := buildArgs(req.VideoPath, req.SubtitlePath, tmpPath, req.Overwrite)
	logger.Debug("executing ffmpeg",
		logging.String("binary", b.opts.FFmpegBinary),
		logging.String("args", strings.Join(args, " ")),
	)

	started := time.Now()
	out, err := b.run(ctx, b.opts.FFmpegBinary, args...)
	if err != nil {
		_ = os.Remove(tmpPath)
		tail := outputTail(out, outputTailLen)
		logging.ErrorWithContext(logger, "subtitle burn failed", "burn_failed",
			logging.Error(err),
			logging.String("video", req.VideoPath),
			logging.String("subtitle", req.SubtitlePath),
			logging.String("ffmpeg_output", tail),
			logging.String(logging.FieldErrorHint, "inspect the ffmpeg output; the translated subtitle file was kept"),
		)
		message := "ffmpeg failed"
		if tail != "" {
			message += ": " + tail
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "burner", "burn", message, err)
	}
	if !fileutil.Exists(tmpPath) {
		return Result{}, services.Wrap(services.ErrExternalTool, "burner", "burn", "ffmpeg did not produce an output file", nil)
	}

	verified := false
	if b.opts.VerifyOutput {
		verified, err = b.verify(ctx, logger, req.VideoPath, tmpPath)
		if err != nil {
			_ = os.Remove(tmpPath)
			return Result{}, err
		}
	}

	if err := os.Rename(tmpPath, output); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, fmt.Errorf("move burned video into place: %w", err)
	}

	return Result{OutputPath: output, Elapsed: time.Since(started), Verified: verified}, nil
}

// verify compares stream counts of the source and the burned file. A missing
// ffprobe binary skips verification.
func (b *Burner) verify(ctx context.Context, logger *slog.Logger, source, burned string) (bool, error) {
	before, err := b.probe(ctx, b.opts.FFprobeBinary, source)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			logging.WarnWithContext(logger, "output verification skipped", "burn_verify_skipped",
				logging.String("binary", b.opts.FFprobeBinary),
				logging.String(logging.FieldErrorHint, "install ffprobe or set burn.verify_output = false"),
				logging.String(logging.FieldImpact, "burned video was not inspected"),
			)
			return false, nil
		}
		return false, err
	}
	after, err := b.probe(ctx, b.opts.FFprobeBinary, burned)
	if err != nil {
		return false, err
	}
	if after.VideoStreamCount() < 1 {
		return false, services.Wrap(services.ErrExternalTool, "burner", "verify", "burned output has no video stream", nil)
	}
	if after.AudioStreamCount() != before.AudioStreamCount() {
		return false, services.Wrap(services.ErrExternalTool, "burner", "verify",
			fmt.Sprintf("audio stream count changed: %d -> %d", before.AudioStreamCount(), after.AudioStreamCount()), nil)
	}
	logger.Debug("burned output verified",
		logging.Int("video_streams", after.VideoStreamCount()),
		logging.Int("audio_streams", after.AudioStreamCount()),
		logging.Any("duration_seconds", after.DurationSeconds()),
	)
	return true, nil
}

func buildArgs(video, subtitle, output string, overwrite bool) []string {
	args := []string{"-hide_banner", "-nostdin"}
	if overwrite {
		args = append(args, "-y")
	} else {
		args = append(args, "-n")
	}
	return append(args,
		"-i", video,
		"-vf", "subtitles="+EscapeFilterPath(subtitle),
		"-c:a", "copy",
		output,
	)
}

// EscapeFilterPath escapes path for use as the subtitles filter's filename.
// ffmpeg unescapes the value twice: once when splitting the filter graph and
// again when splitting the filter's options on ':'.
func EscapeFilterPath(path string) string {
	option := escapeChars(path, `\':`)
	return escapeChars(option, `\'[],;`)
}

func escapeChars(s, special string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// outputTail returns the last n non-empty lines of ffmpeg's output.
func outputTail(out []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append(kept, line)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}
