package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sjsage522/pricecatalog/internal/adapter"
	"sjsage522/pricecatalog/internal/catalog"
	"sjsage522/pricecatalog/internal/orchestrator"
	"sjsage522/pricecatalog/internal/upsert"
	"sjsage522/pricecatalog/logger"
)

// Provenance labels stamped onto listings and audit rows.
const (
	ProvenanceStructured = "structured"
	ProvenanceAggregator = "aggregator"
)

// ScopeAll marks an audit row covering every source of a provenance.
const ScopeAll = "all"

// Scraper runs the fan-out scrape over a source set.
type Scraper interface {
	Run(ctx context.Context, sources []adapter.SourceAdapter) orchestrator.Result
}

// Applier commits a record batch and writes audit rows.
type Applier interface {
	Apply(ctx context.Context, records []catalog.Record, provenance string) (upsert.Stats, error)
	Log(ctx context.Context, scope, provenance string, found, upserted int, errText string, startedAt, finishedAt time.Time, success bool) error
}

// Summary reports one full ingestion run.
type Summary struct {
	Found    int
	Created  int
	Upserted int
	Failures []orchestrator.Failure
}

// Runner ties one provenance's source set to the scrape pipeline and the
// upsert engine, and records the run's audit row.
type Runner struct {
	registry *adapter.Registry
	scraper  Scraper
	applier  Applier
	logger   *logger.Logger
	now      func() time.Time
}

// NewRunner creates an ingestion runner over the registered sources.
func NewRunner(registry *adapter.Registry, scraper Scraper, applier Applier) *Runner {
	return &Runner{
		registry: registry,
		scraper:  scraper,
		applier:  applier,
		logger:   logger.ForIngest(),
		now:      time.Now,
	}
}

// Run scrapes every source of the given provenance, applies the surviving
// records, and appends a success audit row. A store failure is returned
// without an audit row; the caller owns failure logging so a broken store
// is not asked to record its own breakage twice.
func (r *Runner) Run(ctx context.Context, provenance string) (Summary, error) {
	sources, err := r.sourcesFor(provenance)
	if err != nil {
		return Summary{}, err
	}

	startedAt := r.now()
	r.logger.Info().
		Str("provenance", provenance).
		Int("sources", len(sources)).
		Msg("Ingestion run started")

	result := r.scraper.Run(ctx, sources)

	stats, err := r.applier.Apply(ctx, result.Records, provenance)
	if err != nil {
		return Summary{}, err
	}
	finishedAt := r.now()

	summary := Summary{
		Found:    len(result.Records),
		Created:  stats.Created,
		Upserted: stats.Upserted,
		Failures: result.Failures,
	}

	if err := r.applier.Log(ctx, ScopeAll, provenance, summary.Found, summary.Upserted,
		failureText(result.Failures), startedAt, finishedAt, true); err != nil {
		return Summary{}, err
	}

	r.logger.Info().
		Str("provenance", provenance).
		Int("found", summary.Found).
		Int("created", summary.Created).
		Int("upserted", summary.Upserted).
		Int("failed_sources", len(summary.Failures)).
		Msg("Ingestion run finished")

	return summary, nil
}

func (r *Runner) sourcesFor(provenance string) ([]adapter.SourceAdapter, error) {
	switch provenance {
	case ProvenanceStructured:
		return r.registry.ByMode(adapter.ModeStructured), nil
	case ProvenanceAggregator:
		return r.registry.ByMode(adapter.ModeFreeform), nil
	default:
		return nil, fmt.Errorf("unknown provenance %q", provenance)
	}
}

// failureText flattens per-source failures into the audit row's error column.
func failureText(failures []orchestrator.Failure) string {
	if len(failures) == 0 {
		return ""
	}
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, f.SourceID+": "+f.Reason)
	}
	return strings.Join(parts, "; ")
}
