package ports

import (
	"context"
	"time"

	"gouplift/domain/core"
	"gouplift/domain/run"
)

// RunSummary is the listing view of a stored run
type RunSummary struct {
	RunID        core.RunID `json:"run_id" db:"id"`
	Fingerprint  string     `json:"fingerprint" db:"fingerprint"`
	DataSource   string     `json:"data_source" db:"data_source"`
	RecordCount  int        `json:"record_count" db:"record_count"`
	Outcome      string     `json:"outcome" db:"outcome"`
	FailureCount int        `json:"failure_count" db:"failure_count"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// RunRepository persists run reports
type RunRepository interface {
	// Migrate creates the schema if it does not exist
	Migrate(ctx context.Context) error

	// Save stores a report; saving the same run ID twice is an error
	Save(ctx context.Context, report *run.Report) error

	// Get loads a report, NotFound if the run does not exist
	Get(ctx context.Context, id core.RunID) (*run.Report, error)

	// List returns the newest runs first
	List(ctx context.Context, limit int) ([]RunSummary, error)
}
