package dialogue_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/chrimage/content-mill/internal/dialogue"
	"github.com/chrimage/content-mill/internal/services"
)

type call struct {
	speaker dialogue.Participant
	prompt  dialogue.Prompt
}

type scriptedResponder struct {
	calls []call
	reply func(n int, speaker dialogue.Participant, prompt dialogue.Prompt) string
}

func (s *scriptedResponder) Respond(_ context.Context, speaker dialogue.Participant, prompt dialogue.Prompt) (string, error) {
	n := len(s.calls)
	s.calls = append(s.calls, call{speaker: speaker, prompt: prompt})
	return s.reply(n, speaker, prompt), nil
}

func turnJSON(speaker, content, next string) string {
	payload := map[string]string{
		"speaker":           speaker,
		"content":           content,
		"image_description": "a lighthouse at dusk",
	}
	if next != "" {
		payload["next_speaker"] = next
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func testCast() dialogue.Cast {
	return dialogue.Cast{
		Moderator: dialogue.Participant{Name: "Moderator", Position: dialogue.PositionModerator, Model: "gpt-4o", Temperature: 1},
		Proponent: dialogue.Participant{Name: "Avery", Position: dialogue.PositionProponent, Model: "gpt-4o", Temperature: 0.7},
		Opponent:  dialogue.Participant{Name: "Quinn", Position: dialogue.PositionOpponent, Model: "gpt-4o-mini", Temperature: 1.1},
	}
}

func testRoster(t *testing.T) *dialogue.Roster {
	t.Helper()
	roster, err := dialogue.NewRoster(
		dialogue.Participant{Name: dialogue.ModeratorName, Model: "gpt-4o", Temperature: 1},
		[]dialogue.Participant{
			{Name: "Jordan", Role: "Economist", Model: "gpt-4o-mini", Temperature: 0.7},
			{Name: "Riley", Role: "Historian", Model: "gpt-4o", Temperature: 1.0},
			{Name: "Casey", Role: "Engineer", Model: "gpt-4o", Temperature: 1.3},
		},
	)
	if err != nil {
		t.Fatalf("NewRoster returned error: %v", err)
	}
	return roster
}

func TestDebateRunsEveryStepInOrder(t *testing.T) {
	responder := &scriptedResponder{reply: func(n int, speaker dialogue.Participant, _ dialogue.Prompt) string {
		return turnJSON(speaker.Name, fmt.Sprintf("line %d", n), "")
	}}
	debate := &dialogue.Debate{Topic: "remote work", Cast: testCast(), Responder: responder}

	transcript, err := debate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	format := dialogue.DefaultFormat()
	if transcript.Len() != format.StepCount() || transcript.Len() != 13 {
		t.Fatalf("expected 13 turns, got %d", transcript.Len())
	}

	var want []string
	for i := 0; i < 3; i++ {
		want = append(want, "Moderator", "Avery", "Moderator", "Quinn")
	}
	want = append(want, "Moderator")
	for i, turn := range transcript.Turns() {
		if turn.Speaker != want[i] {
			t.Fatalf("turn %d: speaker %q, want %q", i, turn.Speaker, want[i])
		}
		if turn.Content != fmt.Sprintf("line %d", i) {
			t.Fatalf("turn %d: content %q out of order", i, turn.Content)
		}
	}

	for _, i := range []int{0, 4, 8, 12} {
		instruction := responder.calls[i].prompt.Instruction
		if instruction == "" || strings.Contains(instruction, "{{") {
			t.Fatalf("step %d: expected rendered instruction, got %q", i, instruction)
		}
	}
	if !strings.Contains(responder.calls[0].prompt.Instruction, "Avery and Quinn") {
		t.Fatalf("expected names in opening instruction: %q", responder.calls[0].prompt.Instruction)
	}
	if responder.calls[1].prompt.Instruction != "" {
		t.Fatalf("expected no instruction for proponent step, got %q", responder.calls[1].prompt.Instruction)
	}
	var history []dialogue.Turn
	if err := json.Unmarshal([]byte(responder.calls[5].prompt.History), &history); err != nil {
		t.Fatalf("history is not JSON: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("expected 5 prior turns in history, got %d", len(history))
	}
	if responder.calls[3].speaker.Model != "gpt-4o-mini" {
		t.Fatalf("expected opponent model, got %q", responder.calls[3].speaker.Model)
	}
}

func TestDebateMalformedReplyIsFatal(t *testing.T) {
	responder := &scriptedResponder{reply: func(n int, speaker dialogue.Participant, _ dialogue.Prompt) string {
		if n == 2 {
			return `{"speaker":"Moderator","content":"missing image"}`
		}
		return turnJSON(speaker.Name, "ok", "")
	}}
	debate := &dialogue.Debate{Topic: "remote work", Cast: testCast(), Responder: responder}

	transcript, err := debate.Run(context.Background())
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
	if transcript.Len() != 2 {
		t.Fatalf("expected 2 recorded turns before failure, got %d", transcript.Len())
	}
	if len(responder.calls) != 3 {
		t.Fatalf("expected no retry after malformed reply, got %d calls", len(responder.calls))
	}
}

func TestDebateRejectsInvalidJSON(t *testing.T) {
	responder := &scriptedResponder{reply: func(int, dialogue.Participant, dialogue.Prompt) string {
		return "Sure! Here is my statement."
	}}
	debate := &dialogue.Debate{Topic: "remote work", Cast: testCast(), Responder: responder}
	if _, err := debate.Run(context.Background()); !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestDebateCustomFormatFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "format.yaml")
	yaml := `rounds:
  - name: Lightning
    steps:
      - position: moderator
        instruction: "Open the debate on {{.Topic}} between {{.Proponent}} and {{.Opponent}}."
      - position: proponent
      - position: opponent
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write format: %v", err)
	}
	format, err := dialogue.LoadFormat(path)
	if err != nil {
		t.Fatalf("LoadFormat returned error: %v", err)
	}
	responder := &scriptedResponder{reply: func(_ int, speaker dialogue.Participant, _ dialogue.Prompt) string {
		return turnJSON(speaker.Name, "ok", "")
	}}
	debate := &dialogue.Debate{Topic: "tabs", Cast: testCast(), Format: format, Responder: responder}
	transcript, err := debate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if transcript.Len() != 3 {
		t.Fatalf("expected 3 turns, got %d", transcript.Len())
	}
	if got := responder.calls[0].prompt.Instruction; got != "Open the debate on tabs between Avery and Quinn." {
		t.Fatalf("unexpected instruction %q", got)
	}
}

func TestLoadFormatRejectsUnknownPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "format.yaml")
	yaml := "rounds:\n  - name: Bad\n    steps:\n      - position: audience\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write format: %v", err)
	}
	if _, err := dialogue.LoadFormat(path); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRoundtableScenarioParticipantEnd(t *testing.T) {
	replies := map[string]string{
		"Moderator": `{"speaker":"Moderator","content":"Welcome","next_speaker":"Jordan","image_description":"a round table"}`,
		"Jordan":    `{"speaker":"Jordan","content":"Thanks","next_speaker":"End","image_description":"a waving hand"}`,
	}
	responder := &scriptedResponder{reply: func(_ int, speaker dialogue.Participant, _ dialogue.Prompt) string {
		return replies[speaker.Name]
	}}
	rt := &dialogue.Roundtable{
		Topic:               "city parks",
		Roster:              testRoster(t),
		Responder:           responder,
		AllowParticipantEnd: true,
	}

	result, err := rt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Transcript.Len() != 2 || !result.Concluded {
		t.Fatalf("expected 2 concluded turns, got %d concluded=%v", result.Transcript.Len(), result.Concluded)
	}
	turns := result.Transcript.Turns()
	if turns[0].Speaker != "Moderator" || turns[1].Speaker != "Jordan" || turns[1].NextSpeaker != "End" {
		t.Fatalf("unexpected transcript %+v", turns)
	}
	if !strings.Contains(responder.calls[0].prompt.Instruction, "Introduce the roundtable discussion") {
		t.Fatalf("expected opening instruction, got %q", responder.calls[0].prompt.Instruction)
	}
}

func TestRoundtableRejectsTrailingBrace(t *testing.T) {
	responder := &scriptedResponder{reply: func(int, dialogue.Participant, dialogue.Prompt) string {
		return `{"speaker":"Moderator","content":"hi","image_description":"x","next_speaker":"End"}}`
	}}
	rt := &dialogue.Roundtable{Topic: "city parks", Roster: testRoster(t), Responder: responder}

	result, err := rt.Run(context.Background())
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
	if result.Transcript != nil && result.Transcript.Len() != 0 {
		t.Fatalf("expected no recorded turns, got %d", result.Transcript.Len())
	}
}

func TestRoundtableParticipantEndReturnsFloorToModerator(t *testing.T) {
	responder := &scriptedResponder{reply: func(n int, speaker dialogue.Participant, _ dialogue.Prompt) string {
		switch n {
		case 0:
			return turnJSON(speaker.Name, "Welcome", "Jordan")
		case 1:
			return turnJSON(speaker.Name, "Thanks", "End")
		default:
			return turnJSON(speaker.Name, "Goodbye", "end")
		}
	}}
	rt := &dialogue.Roundtable{Topic: "city parks", Roster: testRoster(t), Responder: responder}

	result, err := rt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Transcript.Len() != 3 || !result.Concluded {
		t.Fatalf("expected moderator to close on turn 3, got %d concluded=%v", result.Transcript.Len(), result.Concluded)
	}
	if responder.calls[2].speaker.Name != "Moderator" {
		t.Fatalf("expected floor to return to moderator, got %s", responder.calls[2].speaker.Name)
	}
	if !strings.Contains(responder.calls[2].prompt.Instruction, "Jordan suggested wrapping up") {
		t.Fatalf("expected handback instruction, got %q", responder.calls[2].prompt.Instruction)
	}
}

func TestRoundtableUnknownNomineeFallsBackToParticipant(t *testing.T) {
	roster := testRoster(t)
	responder := &scriptedResponder{reply: func(n int, speaker dialogue.Participant, _ dialogue.Prompt) string {
		switch n {
		case 0:
			return turnJSON(speaker.Name, "Welcome", "Dr. Nobody")
		case 1:
			return turnJSON(speaker.Name, "Happy to be here", "Moderator")
		default:
			return turnJSON(speaker.Name, "That is all", "End")
		}
	}}
	rt := &dialogue.Roundtable{
		Topic:     "city parks",
		Roster:    roster,
		Responder: responder,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	}

	result, err := rt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Fallbacks != 1 {
		t.Fatalf("expected 1 fallback, got %d", result.Fallbacks)
	}
	second := result.Transcript.Turns()[1].Speaker
	if _, ok := roster.Lookup(second); !ok || second == dialogue.ModeratorName {
		t.Fatalf("expected fallback to a roster participant, got %q", second)
	}
	if result.Transcript.Len() != 3 || !result.Concluded {
		t.Fatalf("expected 3 concluded turns, got %d", result.Transcript.Len())
	}
}

func TestRoundtableResolvesLooseNames(t *testing.T) {
	roster := testRoster(t)
	for _, name := range []string{"Riley", "  riley ", "RILEY"} {
		res := roster.Resolve(name, nil)
		if res.Fallback || res.Participant.Name != "Riley" {
			t.Fatalf("Resolve(%q) = %+v", name, res)
		}
	}
	if res := roster.Resolve("moderator", nil); res.Fallback || res.Participant.Name != dialogue.ModeratorName {
		t.Fatalf("expected moderator alias, got %+v", res)
	}
}

func TestRoundtableDoesNotHaltWithoutEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	names := []string{"Jordan", "Riley", "Casey", "Moderator"}
	responder := &scriptedResponder{reply: func(n int, speaker dialogue.Participant, _ dialogue.Prompt) string {
		return turnJSON(speaker.Name, "more", names[n%len(names)])
	}}
	const observed = 250
	rt := &dialogue.Roundtable{
		Topic:     "city parks",
		Roster:    testRoster(t),
		Responder: responder,
		OnTurn: func(index int, _ dialogue.DirectedTurn) {
			if index == observed-1 {
				cancel()
			}
		},
	}

	result, err := rt.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected loop to run until canceled, got %v", err)
	}
	if result.Transcript.Len() != observed || result.Concluded {
		t.Fatalf("expected %d unconcluded turns, got %d", observed, result.Transcript.Len())
	}
}

func TestRoundtableTurnLimitGivesModeratorLastWord(t *testing.T) {
	responder := &scriptedResponder{reply: func(n int, speaker dialogue.Participant, _ dialogue.Prompt) string {
		return turnJSON(speaker.Name, "more", "Jordan")
	}}
	rt := &dialogue.Roundtable{Topic: "city parks", Roster: testRoster(t), Responder: responder, MaxTurns: 5}

	result, err := rt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Transcript.Len() != 5 || result.Concluded {
		t.Fatalf("expected 5 unconcluded turns, got %d concluded=%v", result.Transcript.Len(), result.Concluded)
	}
	last := responder.calls[4]
	if last.speaker.Name != "Moderator" || !strings.Contains(last.prompt.Instruction, "close it") {
		t.Fatalf("expected moderator closing turn, got %s %q", last.speaker.Name, last.prompt.Instruction)
	}
}

func TestRoundtableStampsSpeaker(t *testing.T) {
	responder := &scriptedResponder{reply: func(n int, _ dialogue.Participant, _ dialogue.Prompt) string {
		if n == 0 {
			return turnJSON("Host", "Welcome", "Casey")
		}
		return turnJSON("Someone Else", "Hi", "End")
	}}
	rt := &dialogue.Roundtable{Topic: "city parks", Roster: testRoster(t), Responder: responder, AllowParticipantEnd: true}
	result, err := rt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	turns := result.Transcript.Turns()
	if turns[0].Speaker != "Moderator" || turns[1].Speaker != "Casey" {
		t.Fatalf("expected producing participants as speakers, got %q and %q", turns[0].Speaker, turns[1].Speaker)
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	transcript := dialogue.NewTranscript[dialogue.DirectedTurn]()
	transcript.Append(dialogue.DirectedTurn{
		Turn:        dialogue.Turn{Speaker: "Moderator", Content: "Bienvenue à la table ronde <live>", ImageDescription: "café & croissants"},
		NextSpeaker: "Jordan",
	})
	transcript.Append(dialogue.DirectedTurn{
		Turn:        dialogue.Turn{Speaker: "Jordan", Content: "ありがとう", ImageDescription: "桜の木"},
		NextSpeaker: "End",
	})

	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := transcript.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "ありがとう") || !strings.Contains(string(raw), "<live>") {
		t.Fatalf("expected unescaped text in file:\n%s", raw)
	}
	if !strings.Contains(string(raw), `"next_speaker": "Jordan"`) {
		t.Fatalf("expected flat next_speaker field:\n%s", raw)
	}

	loaded, err := dialogue.LoadTranscript[dialogue.DirectedTurn](path)
	if err != nil {
		t.Fatalf("LoadTranscript returned error: %v", err)
	}
	if !reflect.DeepEqual(loaded.Turns(), transcript.Turns()) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded.Turns(), transcript.Turns())
	}
}

func TestNewRosterRejectsDuplicates(t *testing.T) {
	_, err := dialogue.NewRoster(dialogue.Participant{}, []dialogue.Participant{
		{Name: "Jordan", Temperature: 1},
		{Name: "jordan", Temperature: 1},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = dialogue.NewRoster(dialogue.Participant{}, []dialogue.Participant{{Name: "End", Temperature: 1}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected reserved-name error, got %v", err)
	}
}
