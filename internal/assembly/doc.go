// Package assembly turns a directory of numbered stills and narration clips
// into one video with ffmpeg.
//
// Files are paired by sorted name, truncated to the shorter list. Each pair
// becomes a segment that holds the still for exactly the clip's probed
// duration; segments are joined with the concat demuxer and re-encoded at a
// fixed frame rate.
package assembly
