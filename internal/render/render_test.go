package render

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chrimage/content-mill/internal/services"
	"github.com/chrimage/content-mill/internal/services/synth"
)

type fakeNarrator struct {
	voices []synth.Voice
	failAt int
}

func (f *fakeNarrator) Speech(_ context.Context, text string, voice synth.Voice, dest string) error {
	if f.failAt >= 0 && len(f.voices) == f.failAt {
		return errors.New("tts unavailable")
	}
	f.voices = append(f.voices, voice)
	return os.WriteFile(dest, []byte("mp3:"+text), 0o644)
}

// fakePainter fails the first failures[prompt] calls for a prompt.
type fakePainter struct {
	failures map[string]int
	prompts  []string
}

func (f *fakePainter) Image(_ context.Context, prompt, dest string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.failures[prompt] > 0 {
		f.failures[prompt]--
		return "", errors.New("content_policy_violation")
	}
	return prompt, os.WriteFile(dest, []byte("png:"+prompt), 0o644)
}

type suffixRephraser struct{ calls int }

func (s *suffixRephraser) Rephrase(_ context.Context, prompt string, _ error) (string, error) {
	s.calls++
	return prompt + " (gentle)", nil
}

func testLines() []Line {
	return []Line{
		{Speaker: "Moderator", Text: "Welcome", ImageDescription: "a stage"},
		{Speaker: "Avery", Text: "I agree", ImageDescription: "a thumbs up"},
		{Speaker: "Quinn", Text: "I disagree", ImageDescription: "a storm"},
	}
}

func TestRenderWritesNumberedPairs(t *testing.T) {
	dir := t.TempDir()
	narrator := &fakeNarrator{failAt: -1}
	r := &Renderer{
		Narrator:    narrator,
		Painter:     &fakePainter{},
		Voices:      DebateVoices("Moderator", "Avery", "Quinn"),
		MaxAttempts: 3,
	}
	report, err := r.Render(context.Background(), dir, testLines())
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if report.Clips != 3 || report.Images != 3 || len(report.Skipped) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, name := range []string{"000.mp3", "000.png", "001.mp3", "001.png", "002.mp3", "002.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	want := []synth.Voice{synth.VoiceAlloy, synth.VoiceEcho, synth.VoiceFable}
	if !reflect.DeepEqual(narrator.voices, want) {
		t.Fatalf("voices %v, want %v", narrator.voices, want)
	}
}

func TestRenderSpeechFailureIsFatal(t *testing.T) {
	r := &Renderer{Narrator: &fakeNarrator{failAt: 1}, Painter: &fakePainter{}}
	report, err := r.Render(context.Background(), t.TempDir(), testLines())
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if report.Clips != 1 {
		t.Fatalf("expected render to stop after first clip, got %+v", report)
	}
}

func TestImageLoopRephrasesUntilSuccess(t *testing.T) {
	painter := &fakePainter{failures: map[string]int{"a storm": 1}}
	rephraser := &suffixRephraser{}
	r := &Renderer{Narrator: &fakeNarrator{failAt: -1}, Painter: painter, Rephraser: rephraser, MaxAttempts: 3}

	report, err := r.Render(context.Background(), t.TempDir(), testLines())
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if report.Images != 3 || rephraser.calls != 1 {
		t.Fatalf("unexpected report %+v rephrases=%d", report, rephraser.calls)
	}
	last := painter.prompts[len(painter.prompts)-1]
	if last != "a storm (gentle)" {
		t.Fatalf("expected rephrased prompt, got %q", last)
	}
}

func TestImageLoopGivesUpAtCeiling(t *testing.T) {
	painter := &fakePainter{failures: map[string]int{
		"x": 10, "x (gentle)": 10, "x (gentle) (gentle)": 10, "x (gentle) (gentle) (gentle)": 10,
	}}
	rephraser := &suffixRephraser{}
	loop := imageLoop{painter: painter, rephraser: rephraser, maxAttempts: 3, logger: nopLogger()}

	result, err := loop.run(context.Background(), 0, "x", filepath.Join(t.TempDir(), "000.png"))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if !result.Skipped || result.Attempts != 3 || rephraser.calls != 2 {
		t.Fatalf("expected skip after 3 attempts and 2 rephrases, got %+v rephrases=%d", result, rephraser.calls)
	}
	if len(painter.prompts) != 3 {
		t.Fatalf("expected 3 generator calls, got %d", len(painter.prompts))
	}
}

func TestImageLoopRetriesUnrefusedFailureUnchanged(t *testing.T) {
	painter := &fakePainter{failures: map[string]int{"x": 2}}
	rephraser := &suffixRephraser{}
	loop := imageLoop{
		painter:     painter,
		rephraser:   rephraser,
		refused:     func(error) bool { return false },
		maxAttempts: 3,
		logger:      nopLogger(),
	}

	result, err := loop.run(context.Background(), 0, "x", filepath.Join(t.TempDir(), "000.png"))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if result.Skipped || result.Attempts != 3 || rephraser.calls != 0 {
		t.Fatalf("expected success on third unchanged attempt, got %+v rephrases=%d", result, rephraser.calls)
	}
	if !reflect.DeepEqual(painter.prompts, []string{"x", "x", "x"}) {
		t.Fatalf("expected the original prompt every time, got %v", painter.prompts)
	}
}

func TestImageLoopRephrasesContentPolicyRefusal(t *testing.T) {
	refusal := &openai.APIError{Code: "content_policy_violation", Message: "rejected by our safety system"}
	painter := &refusingPainter{err: refusal, remaining: 1}
	rephraser := &suffixRephraser{}
	r := &Renderer{
		Narrator:    &fakeNarrator{failAt: -1},
		Painter:     painter,
		Rephraser:   rephraser,
		Refused:     synth.IsContentPolicy,
		MaxAttempts: 3,
	}

	report, err := r.Render(context.Background(), t.TempDir(), testLines()[:1])
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if report.Images != 1 || rephraser.calls != 1 {
		t.Fatalf("unexpected report %+v rephrases=%d", report, rephraser.calls)
	}
	if got := painter.prompts[len(painter.prompts)-1]; got != "a stage (gentle)" {
		t.Fatalf("expected rephrased prompt after refusal, got %q", got)
	}
}

// refusingPainter fails its first remaining calls with err.
type refusingPainter struct {
	err       error
	remaining int
	prompts   []string
}

func (p *refusingPainter) Image(_ context.Context, prompt, dest string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.remaining > 0 {
		p.remaining--
		return "", fmt.Errorf("image: %w", p.err)
	}
	return prompt, os.WriteFile(dest, []byte("png:"+prompt), 0o644)
}

func TestImageLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	painter := &fakePainter{failures: map[string]int{"x": 1}}
	loop := imageLoop{painter: painter, maxAttempts: 3, logger: nopLogger()}
	if _, err := loop.run(ctx, 0, "x", filepath.Join(t.TempDir(), "000.png")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRenderFillsGaps(t *testing.T) {
	dir := t.TempDir()
	lines := testLines()
	painter := &fakePainter{failures: map[string]int{"a stage": 5, "a storm": 5}}
	r := &Renderer{Narrator: &fakeNarrator{failAt: -1}, Painter: painter, MaxAttempts: 2, FillGaps: true}

	report, err := r.Render(context.Background(), dir, lines)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !reflect.DeepEqual(report.Skipped, []int{0, 2}) || !reflect.DeepEqual(report.Filled, []int{0, 2}) {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, name := range []string{"000.png", "002.png"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != "png:a thumbs up" {
			t.Fatalf("%s filled with %q", name, data)
		}
	}
}

func TestRenderResumeKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "000.mp3"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "000.png"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	narrator := &fakeNarrator{failAt: -1}
	r := &Renderer{Narrator: narrator, Painter: &fakePainter{}, Resume: true}
	report, err := r.Render(context.Background(), dir, testLines())
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if report.Reused != 2 || len(narrator.voices) != 2 {
		t.Fatalf("expected first pair reused, got %+v (%d new clips)", report, len(narrator.voices))
	}
}

func TestRoundtableVoicesPopFromEnd(t *testing.T) {
	m := RoundtableVoices([]string{"Moderator", "Jordan", "Riley", "Casey", "Sam", "Alex", "Robin"})
	cases := map[string]synth.Voice{
		"Moderator": synth.VoiceShimmer,
		"Jordan":    synth.VoiceNova,
		"Riley":     synth.VoiceOnyx,
		"Alex":      synth.VoiceAlloy,
		"Robin":     synth.VoiceShimmer,
		"Stranger":  synth.VoiceAlloy,
	}
	for name, want := range cases {
		if got := m.Voice(0, Line{Speaker: name}); got != want {
			t.Fatalf("%s: got %s, want %s", name, got, want)
		}
	}
}

func TestRandomVoicesAreValid(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	if v := synth.Voice(RandomVoicePerRun(rng)); !v.Valid() {
		t.Fatalf("invalid voice %q", v)
	}
	policy := RandomVoicePerLine{Rand: rng}
	for i := 0; i < 20; i++ {
		if v := policy.Voice(i, Line{}); !v.Valid() {
			t.Fatalf("invalid voice %q", v)
		}
	}
}

func TestIndexNameWidensForLargeRuns(t *testing.T) {
	if got := IndexName(7, 12, ".png"); got != "007.png" {
		t.Fatalf("got %q", got)
	}
	if got := IndexName(7, 1500, ".mp3"); got != "0007.mp3" {
		t.Fatalf("got %q", got)
	}
}

func TestImagePromptFallback(t *testing.T) {
	line := Line{Speaker: "Avery", Text: "Hello"}
	if got := line.ImagePrompt(); got != "Image of Avery saying: Hello" {
		t.Fatalf("got %q", got)
	}
}
