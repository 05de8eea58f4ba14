package workspace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/chrimage/content-mill/internal/logging"
	"github.com/chrimage/content-mill/internal/services"
	"github.com/chrimage/content-mill/internal/textutil"
)

const (
	// LockFileName is held exclusively while a run writes into its directory.
	LockFileName = ".content-mill.lock"
	// LogFileName receives a debug-level JSON copy of the run's logs.
	LogFileName = "run.log"
)

// ErrLocked reports a directory already in use by another invocation.
var ErrLocked = errors.New("run directory is locked by another process")

// Workspace is one run's output directory.
type Workspace struct {
	RunID string
	Dir   string

	lock    *flock.Flock
	logFile io.Closer
}

// Create makes <root>/<kind>/<slug>-<uuid> and locks it.
func Create(root, kind, title string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	kind = strings.TrimSpace(kind)
	if root == "" || kind == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "create", "output root and kind required", nil)
	}
	runID := uuid.NewString()
	dir := filepath.Join(root, textutil.Slugify(kind), textutil.Slugify(title)+"-"+runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	ws, err := lock(dir)
	if err != nil {
		return nil, err
	}
	ws.RunID = runID
	return ws, nil
}

// Open locks an existing run directory, for resuming or re-assembling.
func Open(dir string) (*Workspace, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "workspace", "open", dir, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "workspace", "open", dir+" is not a directory", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	ws, err := lock(abs)
	if err != nil {
		return nil, err
	}
	ws.RunID = runIDFromDir(abs)
	return ws, nil
}

func lock(dir string) (*Workspace, error) {
	fl := flock.New(filepath.Join(dir, LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return &Workspace{Dir: dir, lock: fl}, nil
}

// runIDFromDir recovers the uuid suffix of a directory made by Create.
func runIDFromDir(dir string) string {
	base := filepath.Base(dir)
	if len(base) < 36 {
		return ""
	}
	candidate := base[len(base)-36:]
	if _, err := uuid.Parse(candidate); err != nil {
		return ""
	}
	return candidate
}

// Path joins name onto the run directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Logger mirrors base into the run's log file. base may be nil when only the
// run log should be written.
func (w *Workspace) Logger(base *slog.Logger) (*slog.Logger, error) {
	if w.logFile != nil {
		return nil, errors.New("run log already open")
	}
	handler, closer, err := logging.NewFileHandler(w.Path(LogFileName))
	if err != nil {
		return nil, err
	}
	w.logFile = closer
	var console slog.Handler
	if base != nil {
		console = base.Handler()
	}
	return slog.New(newRunLogHandler(console, handler, w.RunID)), nil
}

// Close closes the run log and releases the lock. The lock file stays in
// place: removing it would let a waiting process lock the unlinked inode
// while another creates and locks a fresh file at the same path.
func (w *Workspace) Close() error {
	if w == nil {
		return nil
	}
	var errs []error
	if w.logFile != nil {
		errs = append(errs, w.logFile.Close())
		w.logFile = nil
	}
	if w.lock != nil {
		errs = append(errs, w.lock.Unlock())
		w.lock = nil
	}
	return errors.Join(errs...)
}
