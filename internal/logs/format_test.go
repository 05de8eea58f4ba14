package logs_test

import (
	"testing"

	"github.com/chrimage/content-mill/internal/logs"
)

func TestFormatRendersRunRecord(t *testing.T) {
	line := `{"ts":"2026-03-01T10:00:00Z","level":"warn","msg":"image skipped","run_id":"abc","kind":"debate","stage":"render","turn_index":4,"error_hint":"rephrase the description"}`
	entry, ok := logs.Parse(line)
	if !ok {
		t.Fatal("expected JSON line to parse")
	}
	if entry.Level != "warn" || entry.Stage != "render" || entry.Message != "image skipped" {
		t.Fatalf("unexpected entry %#v", entry)
	}
	if _, ok := entry.Fields["run_id"]; ok {
		t.Fatal("run_id should be implicit")
	}

	got := logs.Format(line)
	want := entry.Time.Local().Format("15:04:05") + ` WARN  [render] image skipped error_hint="rephrase the description" turn_index=4`
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatPassesPlainText(t *testing.T) {
	if got := logs.Format("not json"); got != "not json" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestEntryAtLeast(t *testing.T) {
	entry := logs.Entry{Level: "info"}
	if !entry.AtLeast("debug") || !entry.AtLeast("info") || entry.AtLeast("warn") {
		t.Fatal("unexpected level comparison")
	}
	if !entry.AtLeast("verbose") {
		t.Fatal("unknown minimum should pass everything")
	}
}
