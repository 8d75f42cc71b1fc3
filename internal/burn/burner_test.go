package burn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"subburn/internal/fileutil"
	"subburn/internal/media/ffprobe"
	"subburn/internal/services"
)

type recordedCall struct {
	name string
	args []string
}

// fakeFFmpeg writes payload to the final argument, mimicking ffmpeg producing
// its output file.
func fakeFFmpeg(calls *[]recordedCall, payload string) commandRunner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: append([]string(nil), args...)})
		if err := os.WriteFile(args[len(args)-1], []byte(payload), 0o644); err != nil {
			return nil, err
		}
		return []byte("frame=  100 fps=50\n"), nil
	}
}

func writeInputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	video := filepath.Join(dir, "movie.mp4")
	subtitle := filepath.Join(dir, "movie_translated.vtt")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	if err := os.WriteFile(subtitle, []byte("WEBVTT\n"), 0o644); err != nil {
		t.Fatalf("write subtitle: %v", err)
	}
	return video, subtitle
}

func TestBurnRunsFFmpegAndRenamesOutput(t *testing.T) {
	video, subtitle := writeInputs(t)
	var calls []recordedCall
	burner := NewBurner(Options{FFmpegBinary: "/opt/ffmpeg"}, nil)
	burner.WithCommandRunner(fakeFFmpeg(&calls, "burned"))

	result, err := burner.Burn(context.Background(), Request{VideoPath: video, SubtitlePath: subtitle})
	if err != nil {
		t.Fatalf("Burn: %v", err)
	}

	want := filepath.Join(filepath.Dir(video), "movie_with_subtitles.mp4")
	if result.OutputPath != want {
		t.Fatalf("output = %q, want %q", result.OutputPath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "burned" {
		t.Fatalf("expected burned output, got %q err=%v", data, err)
	}
	if len(calls) != 1 || calls[0].name != "/opt/ffmpeg" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	args := strings.Join(calls[0].args, " ")
	for _, fragment := range []string{
		"-i " + video,
		"-vf subtitles=" + EscapeFilterPath(subtitle),
		"-c:a copy",
		"-n",
	} {
		if !strings.Contains(args, fragment) {
			t.Fatalf("expected %q in args %q", fragment, args)
		}
	}
	tmp := calls[0].args[len(calls[0].args)-1]
	if tmp != fileutil.TempSibling(want, "burn") || filepath.Ext(tmp) != ".mp4" {
		t.Fatalf("expected temp sibling with .mp4 extension, got %q", tmp)
	}
	if fileutil.Exists(tmp) {
		t.Fatalf("temp file %s should have been renamed", tmp)
	}
	if result.Verified {
		t.Fatal("verification was not requested")
	}
}

func TestBurnFailureRemovesTempAndReturnsExternalToolError(t *testing.T) {
	video, subtitle := writeInputs(t)
	var tmp string
	burner := NewBurner(Options{}, nil)
	burner.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		tmp = args[len(args)-1]
		_ = os.WriteFile(tmp, []byte("partial"), 0o644)
		return []byte("Input #0\nUnable to open subtitle file\n"), errors.New("exit status 1")
	})

	_, err := burner.Burn(context.Background(), Request{VideoPath: video, SubtitlePath: subtitle})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unable to open subtitle file") {
		t.Fatalf("expected ffmpeg output in error, got %v", err)
	}
	if fileutil.Exists(tmp) {
		t.Fatal("temp file should be removed on failure")
	}
	if fileutil.Exists(OutputPath(video)) {
		t.Fatal("output must not exist after a failed burn")
	}
}

func TestBurnValidatesInputs(t *testing.T) {
	video, subtitle := writeInputs(t)
	burner := NewBurner(Options{}, nil)
	burner.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("ffmpeg must not run for invalid requests")
		return nil, nil
	})

	tests := []struct {
		name string
		req  Request
	}{
		{"missing video", Request{VideoPath: video + ".missing", SubtitlePath: subtitle}},
		{"missing subtitle", Request{VideoPath: video, SubtitlePath: subtitle + ".missing"}},
		{"empty paths", Request{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := burner.Burn(context.Background(), tt.req); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestBurnRefusesExistingOutputWithoutOverwrite(t *testing.T) {
	video, subtitle := writeInputs(t)
	output := OutputPath(video)
	if err := os.WriteFile(output, []byte("old"), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}
	var calls []recordedCall
	burner := NewBurner(Options{}, nil)
	burner.WithCommandRunner(fakeFFmpeg(&calls, "new"))

	if _, err := burner.Burn(context.Background(), Request{VideoPath: video, SubtitlePath: subtitle}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatal("ffmpeg must not run when the output exists")
	}

	if _, err := burner.Burn(context.Background(), Request{VideoPath: video, SubtitlePath: subtitle, Overwrite: true}); err != nil {
		t.Fatalf("Burn with overwrite: %v", err)
	}
	if data, _ := os.ReadFile(output); string(data) != "new" {
		t.Fatalf("expected replaced output, got %q", data)
	}
	if calls[0].args[2] != "-y" {
		t.Fatalf("expected -y with overwrite, got %v", calls[0].args)
	}
}

func streams(kinds ...string) ffprobe.Result {
	var result ffprobe.Result
	for i, kind := range kinds {
		result.Streams = append(result.Streams, ffprobe.Stream{Index: i, CodecType: kind})
	}
	return result
}

func TestBurnVerification(t *testing.T) {
	tests := []struct {
		name         string
		source       ffprobe.Result
		burned       ffprobe.Result
		probeErr     error
		wantErr      bool
		wantVerified bool
	}{
		{name: "matching streams", source: streams("video", "audio"), burned: streams("video", "audio"), wantVerified: true},
		{name: "lost audio", source: streams("video", "audio", "audio"), burned: streams("video", "audio"), wantErr: true},
		{name: "no video", source: streams("video", "audio"), burned: streams("audio"), wantErr: true},
		{name: "ffprobe missing", probeErr: fmt.Errorf("inspect: %w", exec.ErrNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video, subtitle := writeInputs(t)
			var calls []recordedCall
			burner := NewBurner(Options{VerifyOutput: true}, nil)
			burner.WithCommandRunner(fakeFFmpeg(&calls, "burned"))
			burner.WithProber(func(_ context.Context, _ string, path string) (ffprobe.Result, error) {
				if tt.probeErr != nil {
					return ffprobe.Result{}, tt.probeErr
				}
				if path == video {
					return tt.source, nil
				}
				return tt.burned, nil
			})

			result, err := burner.Burn(context.Background(), Request{VideoPath: video, SubtitlePath: subtitle})
			if tt.wantErr {
				if !errors.Is(err, services.ErrExternalTool) {
					t.Fatalf("expected ErrExternalTool, got %v", err)
				}
				if fileutil.Exists(OutputPath(video)) || fileutil.Exists(fileutil.TempSibling(OutputPath(video), "burn")) {
					t.Fatal("rejected output must be removed")
				}
				return
			}
			if err != nil {
				t.Fatalf("Burn: %v", err)
			}
			if result.Verified != tt.wantVerified {
				t.Fatalf("verified = %v, want %v", result.Verified, tt.wantVerified)
			}
		})
	}
}

func TestEscapeFilterPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/media/movie.vtt", "/media/movie.vtt"},
		{`C:\subs\a.vtt`, `C\\:\\\\subs\\\\a.vtt`},
		{"/tmp/it's [v1], part;2.vtt", `/tmp/it\\\'s \[v1\]\, part\;2.vtt`},
		{"/videos/12:30 meeting.vtt", `/videos/12\\:30 meeting.vtt`},
	}
	for _, tt := range tests {
		if got := EscapeFilterPath(tt.in); got != tt.want {
			t.Errorf("EscapeFilterPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// readToken follows ffmpeg's av_get_token: backslash escapes one character,
// single quotes protect a run, and unescaped trailing whitespace is dropped.
func readToken(s, terminators string) (token, rest string) {
	s = strings.TrimLeft(s, " \n\t\r")
	var out []byte
	end := 0
	i := 0
	for i < len(s) && !strings.ContainsRune(terminators, rune(s[i])) {
		c := s[i]
		i++
		switch {
		case c == '\\' && i < len(s):
			out = append(out, s[i])
			i++
			end = len(out)
		case c == '\'':
			for i < len(s) && s[i] != '\'' {
				out = append(out, s[i])
				i++
			}
			if i < len(s) {
				i++
			}
			end = len(out)
		default:
			out = append(out, c)
		}
	}
	for len(out) > end && strings.ContainsRune(" \n\t\r", rune(out[len(out)-1])) {
		out = out[:len(out)-1]
	}
	return string(out), s[i:]
}

func TestEscapeFilterPathSurvivesFilterParsing(t *testing.T) {
	paths := []string{
		"/videos/Bob's talk_translated.vtt",
		"/videos/12:30 meeting_translated.vtt",
		`C:\subs\a,b_translated.vtt`,
		"/tmp/it's [v1]; part 2.vtt",
		"/plain/movie_translated.vtt",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			graphArg, rest := readToken(EscapeFilterPath(path), "[],;")
			if rest != "" {
				t.Fatalf("filter graph stopped early, leftover %q", rest)
			}
			filename, rest := readToken(graphArg, ":")
			if rest != "" {
				t.Fatalf("filter options split early, leftover %q", rest)
			}
			if filename != path {
				t.Fatalf("filter sees %q, want %q", filename, path)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := map[string]string{
		"y.mp4":            "y_with_subtitles.mp4",
		"/videos/clip.mkv": "/videos/clip_with_subtitles.mkv",
		"noext":            "noext_with_subtitles",
	}
	for in, want := range tests {
		if got := OutputPath(in); got != want {
			t.Errorf("OutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutputTail(t *testing.T) {
	out := []byte("a\n\nb\nc\n")
	if got := outputTail(out, 2); got != "b\nc" {
		t.Fatalf("outputTail = %q", got)
	}
	if got := outputTail(nil, 3); got != "" {
		t.Fatalf("expected empty tail, got %q", got)
	}
}
