package history

import (
	"context"
	"time"

	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/linkgraph"
)

// Store defines the run-history operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type Store interface {
	SaveRun(ctx context.Context, r *audit.Report, v audit.Verdict, at time.Time) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	LatestRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Findings(ctx context.Context, runID string) ([]linkgraph.StructuralError, error)
	Diff(ctx context.Context, fromID, toID string) (*Diff, error)
	SearchFindings(ctx context.Context, query string, limit int) ([]FindingHit, error)
	Prune(ctx context.Context, keep int) (int, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
