package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteStub writes an executable shell script named name into a temp bin
// directory and returns its path.
func WriteStub(t testing.TB, name, script string) string {
	t.Helper()
	binDir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// FFprobeStub reports stills (png/jpg/jpeg/webp) as 1791x1024 video frames
// and any other file as audio whose duration is the file's content.
const FFprobeStub = `#!/bin/sh
for last; do :; done
case "$last" in
  *.png|*.jpg|*.jpeg|*.webp)
    echo '{"streams":[{"codec_type":"video","width":1791,"height":1024}],"format":{}}' ;;
  *)
    d=$(cat "$last")
    echo "{\"streams\":[{\"codec_type\":\"audio\"}],\"format\":{\"duration\":\"$d\"}}" ;;
esac
`

// FFmpegStub appends each invocation's arguments to $FFMPEG_LOG, copies the
// concat list into the log, writes a placeholder to the last argument, and
// fails when an argument equals $FFMPEG_FAIL_ON.
const FFmpegStub = `#!/bin/sh
echo "ARGS $*" >> "$FFMPEG_LOG"
prev=""
for arg; do
  if [ -n "$FFMPEG_FAIL_ON" ] && [ "$arg" = "$FFMPEG_FAIL_ON" ]; then
    echo "stub failure" >&2
    exit 1
  fi
  if [ "$prev" = "-i" ]; then
    case "$arg" in *.txt) cat "$arg" >> "$FFMPEG_LOG" ;; esac
  fi
  prev="$arg"
  last="$arg"
done
printf 'video' > "$last"
`

// StubMedia writes the ffprobe and ffmpeg stubs, points FFMPEG_LOG at a file
// in a temp dir, and returns the ffmpeg path, ffprobe path, and log path.
func StubMedia(t testing.TB) (string, string, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "ffmpeg.log")
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("create ffmpeg log: %v", err)
	}
	t.Setenv("FFMPEG_LOG", logPath)
	t.Setenv("FFMPEG_FAIL_ON", "")
	return WriteStub(t, "ffmpeg", FFmpegStub), WriteStub(t, "ffprobe", FFprobeStub), logPath
}
