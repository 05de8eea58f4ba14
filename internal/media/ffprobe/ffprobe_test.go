package ffprobe_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrimage/content-mill/internal/media/ffprobe"
	"github.com/chrimage/content-mill/internal/testsupport"
)

func TestResultHelpers(t *testing.T) {
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "audio", Duration: "2.5"}, {CodecType: "video", Width: 1024, Height: 1024}},
	}
	if got := result.DurationSeconds(); got != 2.5 {
		t.Fatalf("expected stream duration fallback, got %v", got)
	}
	w, h, ok := result.Dimensions()
	if !ok || w != 1024 || h != 1024 {
		t.Fatalf("unexpected dimensions %dx%d (%v)", w, h, ok)
	}

	result.Format.Duration = "bogus"
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN for unparsable duration")
	}
	if _, _, ok := (ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "audio"}}}).Dimensions(); ok {
		t.Fatal("audio-only result should report no dimensions")
	}
}

func TestInspectWithStub(t *testing.T) {
	binary := testsupport.WriteStub(t, "ffprobe", testsupport.FFprobeStub)
	dir := t.TempDir()
	clip := filepath.Join(dir, "000.mp3")
	if err := os.WriteFile(clip, []byte("3.25"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	result, err := ffprobe.Inspect(context.Background(), binary, clip)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if got := result.DurationSeconds(); got != 3.25 {
		t.Fatalf("unexpected duration %v", got)
	}

	still, err := ffprobe.Inspect(context.Background(), binary, filepath.Join(dir, "000.png"))
	if err != nil {
		t.Fatalf("Inspect still: %v", err)
	}
	if w, h, ok := still.Dimensions(); !ok || w != 1791 || h != 1024 {
		t.Fatalf("unexpected still dimensions %dx%d", w, h)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := ffprobe.Inspect(context.Background(), "", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
