package render

import (
	"log/slog"

	"github.com/chrimage/content-mill/internal/logging"
)

func nopLogger() *slog.Logger {
	return logging.NewNop()
}
