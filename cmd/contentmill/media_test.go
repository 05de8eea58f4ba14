package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/chrimage/content-mill/internal/dialogue"
	"github.com/chrimage/content-mill/internal/render"
	"github.com/chrimage/content-mill/internal/testsupport"
	"github.com/chrimage/content-mill/internal/workspace"
)

// seedRunDir writes a debate-style directory holding a transcript of n turns.
func seedRunDir(t *testing.T, root string, n int) string {
	t.Helper()
	return seedTranscriptDir(t, root, "debate", n, "Moderator", "Avery", "Moderator", "Blake")
}

// seedTranscriptDir writes a run directory of kind holding n turns that cycle
// through speakers.
func seedTranscriptDir(t *testing.T, root, kind string, n int, speakers ...string) string {
	t.Helper()
	dir := filepath.Join(root, kind, "seeded-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir run dir: %v", err)
	}
	transcript := dialogue.NewTranscript[dialogue.Turn]()
	for i := 0; i < n; i++ {
		transcript.Append(dialogue.Turn{Speaker: speakers[i%len(speakers)], Content: "line", ImageDescription: "a still"})
	}
	if err := transcript.Save(filepath.Join(dir, transcriptFile)); err != nil {
		t.Fatalf("save transcript: %v", err)
	}
	return dir
}

func TestAssembleUsesLeadingPairs(t *testing.T) {
	env := setupCLITestEnv(t, `{}`)
	dir := seedRunDir(t, env.cfg.Paths.OutputDir, 3)
	for i := 0; i < 3; i++ {
		testsupport.WriteFile(t, filepath.Join(dir, render.IndexName(i, 3, ".mp3")), "2")
	}
	for i := 0; i < 2; i++ {
		testsupport.WriteFile(t, filepath.Join(dir, render.IndexName(i, 3, ".png")), "png")
	}

	output := filepath.Join(t.TempDir(), "out.mp4")
	out, _, err := runCLI(t, env.configPath, "assemble", dir, "-o", output)
	if err != nil {
		t.Fatalf("assemble: %v\n%s", err, out)
	}
	requireContains(t, out, "Status:   completed")
	requireContains(t, out, "2 segments, 4.0s")
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected video at %s: %v", output, err)
	}

	out, _, err = runCLI(t, env.configPath, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "debate")
}

func TestAssembleEmptyDirectoryFails(t *testing.T) {
	env := setupCLITestEnv(t, `{}`)
	dir := seedRunDir(t, env.cfg.Paths.OutputDir, 1)

	_, _, err := runCLI(t, env.configPath, "assemble", dir)
	if err == nil || !strings.Contains(err.Error(), "nothing to assemble") {
		t.Fatalf("expected nothing to assemble, got %v", err)
	}
}

func TestRenderResumeKeepsExistingFiles(t *testing.T) {
	env := setupCLITestEnv(t, `{}`)
	dir := seedRunDir(t, env.cfg.Paths.OutputDir, 4)
	kept := filepath.Join(dir, "000.mp3")
	testsupport.WriteFile(t, kept, "9")

	out, _, err := runCLI(t, env.configPath, "render", dir, "--resume", "--yes")
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}
	requireContains(t, out, "Status:   completed")
	requireContains(t, out, "4 segments")

	data, err := os.ReadFile(kept)
	if err != nil || string(data) != "9" {
		t.Fatalf("expected existing clip to be kept, got %q (%v)", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, debateVideoFile)); err != nil {
		t.Fatalf("expected debate video: %v", err)
	}
}

func TestRenderRejectsLockedDirectory(t *testing.T) {
	env := setupCLITestEnv(t, `{}`)
	dir := seedRunDir(t, env.cfg.Paths.OutputDir, 2)

	held, err := workspace.Open(dir)
	if err != nil {
		t.Fatalf("lock dir: %v", err)
	}
	defer held.Close()

	_, _, err = runCLI(t, env.configPath, "render", dir, "--yes")
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("expected locked error, got %v", err)
	}
}

func TestRenderKeepsSavedVoices(t *testing.T) {
	env := setupCLITestEnv(t, `{}`)
	// Blake speaks before Avery although Avery holds the earlier seat.
	dir := seedTranscriptDir(t, env.cfg.Paths.OutputDir, "roundtable", 3, "Moderator", "Blake", "Avery")
	if err := render.SaveVoices(dir, render.RoundtableVoices([]string{"Moderator", "Avery", "Blake"})); err != nil {
		t.Fatalf("save voices: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "render", dir, "--yes")
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}
	want := []string{"shimmer", "onyx", "nova"}
	if got := env.speechVoices(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected seat-order voices %v, got %v", want, got)
	}
}

func TestTranscriptVoicesFollowSeatOrder(t *testing.T) {
	lines := []render.Line{{Speaker: "Moderator"}, {Speaker: "Avery"}, {Speaker: "Moderator"}, {Speaker: "Blake"}}

	debate := transcriptVoices("debate", lines)
	if got := debate.Voice(0, lines[3]); got != "fable" {
		t.Fatalf("expected opponent voice fable, got %s", got)
	}
	table := transcriptVoices("roundtable", lines)
	if got := table.Voice(0, lines[0]); got != "shimmer" {
		t.Fatalf("expected moderator voice shimmer, got %s", got)
	}
	if transcriptVoices("haiku", []render.Line{{Text: "x"}}) != nil {
		t.Fatal("expected no speaker policy for narrator-only lines")
	}
}

func TestLocateContent(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := locateContent(dir); err == nil {
		t.Fatal("expected error for directory without content")
	}
	testsupport.WriteFile(t, filepath.Join(dir, scriptFile), `{"title":"x","script":[]}`)
	gotDir, gotPath, err := locateContent(dir)
	if err != nil || gotDir != dir || gotPath != filepath.Join(dir, scriptFile) {
		t.Fatalf("unexpected locate result %q %q %v", gotDir, gotPath, err)
	}
	gotDir, _, err = locateContent(gotPath)
	if err != nil || gotDir != dir {
		t.Fatalf("expected file argument to resolve to its directory, got %q %v", gotDir, err)
	}
}
