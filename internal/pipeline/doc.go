// Package pipeline runs a subtitle job end to end: read the source subtitle,
// translate its dialogue lines, write the translated file and burn it into
// the video.
//
// Runner owns the per-run concerns around those stages: run IDs stamped into
// the context, an advisory lock on the outputs, translation-memory lifetime,
// and fail-fast checks for the external binaries before any API calls.
package pipeline
