package pipeline

import (
	"context"
	"log/slog"

	"github.com/chrimage/content-mill/internal/history"
)

// Handler is the contract each run stage implements.
type Handler interface {
	Prepare(context.Context, *history.Run) error
	Execute(context.Context, *history.Run) error
}

// LoggerAware handlers receive the stage-scoped logger before Prepare.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Recorder persists run transitions. *history.Store satisfies it.
type Recorder interface {
	Update(context.Context, *history.Run) error
}

// Stage binds a handler to the status a run holds while it executes.
type Stage struct {
	Name       string
	Processing history.Status
	Handler    Handler
}

// Health summarizes the readiness of a stage dependency.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
