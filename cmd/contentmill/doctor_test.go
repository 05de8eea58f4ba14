package main

import (
	"strings"
	"testing"
)

func TestDoctorPassesAgainstFakeProvider(t *testing.T) {
	env := setupCLITestEnv(t, `{"ok":true}`)

	out, _, err := runCLI(t, env.configPath, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	for _, name := range []string{"Output directory", "FFmpeg", "Chat API", "Speech/Image API"} {
		requireContains(t, out, name)
	}
	requireContains(t, out, "All checks passed")
}

func TestDoctorReportsMissingFFmpeg(t *testing.T) {
	env := setupCLITestEnv(t, `{"ok":true}`)
	env.cfg.Video.FFmpegBinary = "/nonexistent/ffmpeg"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, env.configPath, "doctor", "--offline")
	if err == nil || !strings.Contains(err.Error(), "checks failed") {
		t.Fatalf("expected failed checks, got %v", err)
	}
	requireContains(t, out, "FAIL")
	if strings.Contains(out, "Chat API") {
		t.Fatalf("offline doctor should skip API checks:\n%s", out)
	}
}
