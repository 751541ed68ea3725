package tui

import (
	"context"
	"log/slog"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

// ExecuteFunc runs one enumeration, reporting progress to sink.
type ExecuteFunc func(ctx context.Context, sink ports.ProgressSink) (domain.Report, error)

type Deps struct {
	Domain  string
	Execute ExecuteFunc

	Logger *slog.Logger
	Debug  bool
}
