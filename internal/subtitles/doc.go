// Package subtitles reads, classifies, and writes line-oriented subtitle files
// (WebVTT and SRT).
//
// Documents are kept as ordered lines rather than a cue tree: the reader
// resolves the file's character encoding and splits it into lines, the
// classifier decides which lines carry dialogue, and the writer emits UTF-8.
// Callers replace dialogue lines in place by position.
package subtitles
