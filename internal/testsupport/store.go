package testsupport

import (
	"context"
	"testing"

	"github.com/chrimage/content-mill/internal/config"
	"github.com/chrimage/content-mill/internal/history"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun creates a pending run for tests using the provided store.
func NewRun(t testing.TB, store *history.Store, kind, topic string) *history.Run {
	t.Helper()

	run, err := store.Create(context.Background(), "", kind, topic, "")
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return run
}
