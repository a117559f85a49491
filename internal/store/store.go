// Package store persists batch run history locally.
package store

import (
	"context"

	"github.com/sells-group/copilot-qa/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus
	Limit  int
}

// RunStore records batch runs. Persistence is best-effort bookkeeping: the
// batch output file is the product, the run history is operator convenience.
type RunStore interface {
	CreateRun(ctx context.Context, inputPath, outputPath, format string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, total, succeeded, failed int, durationMS int64) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
