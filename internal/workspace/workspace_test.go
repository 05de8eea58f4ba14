package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrimage/content-mill/internal/logging"
)

func TestCreateLaysOutKindSlugAndID(t *testing.T) {
	root := t.TempDir()
	ws, err := Create(root, "roundtable", "Is Café Culture Overrated?")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })

	rel, err := filepath.Rel(root, ws.Dir)
	if err != nil {
		t.Fatalf("rel: %v", err)
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 2 || parts[0] != "roundtable" {
		t.Fatalf("unexpected layout %q", rel)
	}
	want := "is-cafe-culture-overrated-" + ws.RunID
	if parts[1] != want {
		t.Fatalf("expected dir %q, got %q", want, parts[1])
	}
	if _, err := os.Stat(ws.Path(LockFileName)); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
}

func TestOpenRejectsLockedDirectory(t *testing.T) {
	ws, err := Create(t.TempDir(), "debate", "tea")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })

	if _, err := Open(ws.Dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := Open(ws.Dir)
	if err != nil {
		t.Fatalf("Open after close returned error: %v", err)
	}
	defer reopened.Close()
	if reopened.RunID != ws.RunID {
		t.Fatalf("expected run id %q recovered from dir, got %q", ws.RunID, reopened.RunID)
	}
}

func TestOpenMissingDirectory(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoggerWritesRunLog(t *testing.T) {
	ws, err := Create(t.TempDir(), "haiku", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !strings.Contains(filepath.Base(ws.Dir), "untitled-") {
		t.Fatalf("expected untitled slug, got %s", ws.Dir)
	}
	logger, err := ws.Logger(logging.NewNop())
	if err != nil {
		t.Fatalf("Logger returned error: %v", err)
	}
	logger.Debug("segment written", logging.Int(logging.FieldTurnIndex, 4))
	if err := ws.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws.Dir, LogFileName))
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	for _, want := range []string{"segment written", `"turn_index":4`, `"run_id":"` + ws.RunID + `"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("run log missing %s: %q", want, data)
		}
	}
	if _, err := os.Stat(filepath.Join(ws.Dir, LockFileName)); err != nil {
		t.Fatalf("expected lock file kept after Close: %v", err)
	}
}
