// Package burn renders subtitles into a video stream with ffmpeg's
// subtitles filter, copying audio unchanged.
//
// Output is produced in a hidden temporary sibling and renamed into place
// once ffmpeg exits cleanly (and, when enabled, ffprobe confirms the result
// still carries its video and audio streams).
package burn
