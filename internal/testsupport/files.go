package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleVTT is a one-cue Russian subtitle file.
const SampleVTT = "WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.000\nПривет\n"

// WriteFile writes content to path, creating parent directories, and returns path.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadFile returns the contents of path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
