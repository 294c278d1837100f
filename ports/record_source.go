package ports

import (
	"context"

	"gouplift/domain/experiment"
)

// RecordSource loads the experiment population
type RecordSource interface {
	// ReadRecords returns every record, in source order, with IDs assigned
	ReadRecords(ctx context.Context) ([]experiment.Record, error)
}
