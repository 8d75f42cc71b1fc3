package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.vtt")

	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(dst, []byte("WEBVTT\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "WEBVTT\n" {
		t.Fatalf("content mismatch: got %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode mismatch: got %o, want %o", info.Mode().Perm(), 0o640)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be renamed away, got %d entries", len(entries))
	}
}

func TestWriteAtomicMissingDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "missing", "out.vtt")
	if err := WriteAtomic(dst, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestInsertSuffix(t *testing.T) {
	tests := []struct {
		path, suffix, want string
	}{
		{"x.vtt", "_translated", "x_translated.vtt"},
		{"/media/y.mp4", "_with_subtitles", "/media/y_with_subtitles.mp4"},
		{"movie.final.mkv", "_with_subtitles", "movie.final_with_subtitles.mkv"},
		{"noext", "_translated", "noext_translated"},
		{"dir.d/noext", "_translated", "dir.d/noext_translated"},
		{".vtt", "_translated", ".vtt_translated"},
	}
	for _, tt := range tests {
		if got := InsertSuffix(tt.path, tt.suffix); got != tt.want {
			t.Errorf("InsertSuffix(%q, %q) = %q, want %q", tt.path, tt.suffix, got, tt.want)
		}
	}
}

func TestTempSibling(t *testing.T) {
	got := TempSibling("/media/y_with_subtitles.mp4", "burn")
	want := "/media/.y_with_subtitles.burn.tmp.mp4"
	if got != want {
		t.Fatalf("TempSibling = %q, want %q", got, want)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(file) {
		t.Fatal("expected file to exist")
	}
	if Exists(dir) {
		t.Fatal("directory should not count as a file")
	}
	if Exists(filepath.Join(dir, "missing")) {
		t.Fatal("missing file reported as existing")
	}
}
