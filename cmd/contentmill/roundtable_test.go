package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/chrimage/content-mill/internal/render"
	"github.com/chrimage/content-mill/internal/services/llm"
)

const roundtableReply = `{"names":["Jordan","Riley","Casey"],"roles":["Economist","Historian","Engineer"],
"speaker":"Moderator","content":"Welcome to the table.","image_description":"a round table","next_speaker":"End"}`

const roundtableNominateReply = `{"names":["Jordan","Riley","Casey"],"roles":["Economist","Historian","Engineer"],
"speaker":"someone","content":"Over to Jordan.","image_description":"a round table","next_speaker":"Jordan"}`

func TestRoundtableEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t, roundtableReply)

	out, _, err := runCLI(t, env.configPath, "roundtable", "--topic", "city parks", "--yes")
	if err != nil {
		t.Fatalf("roundtable: %v\n%s", err, out)
	}
	requireContains(t, out, "[1] Moderator: Welcome to the table.")
	requireContains(t, out, "Lines:    1")
	requireContains(t, out, "Status:   completed")
	// names, roles, then one moderator turn that ends the discussion
	if got := env.chatCalls.Load(); got != 3 {
		t.Fatalf("expected 3 chat completions, got %d", got)
	}

	dir := runDir(t, env.cfg, "roundtable")
	for _, name := range []string{transcriptFile, render.VoicesFileName, "000.mp3", "000.png", roundtableVideoFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	if got := env.speechVoices(); !reflect.DeepEqual(got, []string{"shimmer"}) {
		t.Fatalf("expected moderator narrated with shimmer, got %v", got)
	}

	voices, ok, err := render.LoadVoices(dir)
	if err != nil || !ok {
		t.Fatalf("load voices: ok=%v err=%v", ok, err)
	}
	// --yes seats two participants in suggestion order
	if got := voices.Voice(0, render.Line{Speaker: "Jordan"}); got != "nova" {
		t.Fatalf("expected Jordan seated second with nova, got %s", got)
	}
	if got := voices.Voice(0, render.Line{Speaker: "Riley"}); got != "onyx" {
		t.Fatalf("expected Riley seated third with onyx, got %s", got)
	}
	if got := voices.Voice(0, render.Line{Speaker: "Casey"}); got != "alloy" {
		t.Fatalf("expected unseated Casey to get the fallback voice, got %s", got)
	}
}

func TestRoundtableMaxTurnsFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t, roundtableNominateReply)
	env.cfg.Roundtable.MaxTurns = 3
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, env.configPath, "roundtable", "--topic", "city parks", "--yes", "--max-turns", "2")
	if err != nil {
		t.Fatalf("roundtable: %v\n%s", err, out)
	}
	requireContains(t, out, "[1] Moderator: Over to Jordan.")
	requireContains(t, out, "[2] Moderator: Over to Jordan.")
	requireContains(t, out, "Lines:    2")
	if strings.Contains(out, "[3]") {
		t.Fatalf("expected the flag limit of 2 turns:\n%s", out)
	}
}

func TestRoundtableMaxTurnsFromConfig(t *testing.T) {
	env := setupCLITestEnv(t, roundtableNominateReply)
	env.cfg.Roundtable.MaxTurns = 3
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, env.configPath, "roundtable", "--topic", "city parks", "--yes")
	if err != nil {
		t.Fatalf("roundtable: %v\n%s", err, out)
	}
	requireContains(t, out, "[2] Jordan: Over to Jordan.")
	requireContains(t, out, "[3] Moderator: Over to Jordan.")
	requireContains(t, out, "Lines:    3")
	if got := env.chatCalls.Load(); got != 5 {
		t.Fatalf("expected 2 suggestions and 3 turns, got %d chat completions", got)
	}
}

func TestPickParticipantsUsesEachRoleOnce(t *testing.T) {
	env := setupCLITestEnv(t, roundtableReply)
	cl := &clients{llm: llm.NewClient(llm.Config{APIKey: "test", BaseURL: env.cfg.LLM.BaseURL, Model: env.cfg.LLM.Model})}

	members, err := pickParticipants(context.Background(), &prompter{auto: true}, cl, env.cfg, "city parks", 3)
	if err != nil {
		t.Fatalf("pickParticipants: %v", err)
	}
	var names, roles []string
	for _, m := range members {
		names = append(names, m.Name)
		roles = append(roles, m.Role)
	}
	if !reflect.DeepEqual(names, []string{"Jordan", "Riley", "Casey"}) {
		t.Fatalf("unexpected names %v", names)
	}
	if !reflect.DeepEqual(roles, []string{"Economist", "Historian", "Engineer"}) {
		t.Fatalf("expected each role used once, got %v", roles)
	}
	if members[0].Model != env.cfg.Roundtable.Models[0] {
		t.Fatalf("expected first configured model, got %s", members[0].Model)
	}
}

func TestPickParticipantsNeedsEnoughRoles(t *testing.T) {
	env := setupCLITestEnv(t, `{"names":["Jordan","Riley","Casey"],"roles":["Economist","Historian"]}`)
	cl := &clients{llm: llm.NewClient(llm.Config{APIKey: "test", BaseURL: env.cfg.LLM.BaseURL, Model: env.cfg.LLM.Model})}

	_, err := pickParticipants(context.Background(), &prompter{auto: true}, cl, env.cfg, "city parks", 3)
	if err == nil || !strings.Contains(err.Error(), "suggested 2 roles, need 3") {
		t.Fatalf("expected role shortage error, got %v", err)
	}
}
