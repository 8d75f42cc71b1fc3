// Package ffprobe wraps ffprobe's JSON output.
//
// Inspect runs the binary against a media file; Parse decodes a payload that
// was captured elsewhere. Result exposes stream counts and duration so callers
// can compare a burned video against its source.
package ffprobe
