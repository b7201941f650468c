package store

import (
	"context"
	"time"

	"sjsage522/pricecatalog/internal/catalog"
)

// Tx is the set of catalog operations that commit as one atomic unit. Find
// methods return (nil, nil) when no row matches.
type Tx interface {
	FindProduct(name, brand string) (*catalog.Product, error)
	CreateProduct(p *catalog.Product) error
	UpdateProduct(p *catalog.Product) error
	FindListing(productID, sourceID string) (*catalog.Listing, error)
	CreateListing(l *catalog.Listing) error
	UpdateListing(l *catalog.Listing) error
	AppendRunLog(r *catalog.RunLog) error
}

// Store is the persistent catalog contract consumed by the upsert engine,
// the scheduler's job state, and the audit export surface.
type Store interface {
	// Update runs fn inside one transaction. Either every mutation fn makes
	// is visible afterwards, or none are.
	Update(ctx context.Context, fn func(Tx) error) error

	// RunLogs returns audit rows in reverse-chronological order. A limit of
	// zero or less returns all rows.
	RunLogs(ctx context.Context, limit int) ([]catalog.RunLog, error)

	// JobState returns a job's last scheduled tick; ok is false when the job
	// has never ticked.
	JobState(ctx context.Context, jobID string) (last time.Time, ok bool, err error)

	// SetJobState persists a job's last scheduled tick.
	SetJobState(ctx context.Context, jobID string, last time.Time) error

	Close() error
}

// JobState records a scheduler job's last scheduled tick, the anchor misfire
// handling computes the next on-schedule tick from.
type JobState struct {
	JobID    string `badgerhold:"key"`
	LastTick time.Time
}
