package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sjsage522/pricecatalog/internal/adapter"
	"sjsage522/pricecatalog/internal/catalog"
	"sjsage522/pricecatalog/internal/extract"
	"sjsage522/pricecatalog/internal/normalize"
	"sjsage522/pricecatalog/logger"
	apperr "sjsage522/pricecatalog/pkg/errors"
)

// Failure records one source's failed unit of work.
type Failure struct {
	SourceID string
	Reason   string
}

// Result aggregates an orchestrated run. Record order across sources is
// unspecified, but each source's internal extraction order is preserved.
// An all-failure result is still a valid result, not an error.
type Result struct {
	Records  []catalog.Record
	Failures []Failure
}

// Orchestrator fans one fetch+extract+normalize unit of work out per source.
type Orchestrator struct {
	extractor  *extract.Engine
	normalizer *normalize.Normalizer
	timeout    time.Duration
}

// New creates an orchestrator. timeout bounds each source's wall clock.
func New(extractor *extract.Engine, normalizer *normalize.Normalizer, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		extractor:  extractor,
		normalizer: normalizer,
		timeout:    timeout,
	}
}

// Run executes every source concurrently. One source's failure is captured
// in the failure list without aborting or delaying its siblings.
func (o *Orchestrator) Run(ctx context.Context, sources []adapter.SourceAdapter) Result {
	type sourceResult struct {
		records []catalog.Record
		failure *Failure
	}

	results := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src adapter.SourceAdapter) {
			defer wg.Done()
			records, failure := o.runSource(ctx, src)
			results <- sourceResult{records: records, failure: failure}
		}(src)
	}
	wg.Wait()
	close(results)

	var out Result
	for r := range results {
		if r.failure != nil {
			out.Failures = append(out.Failures, *r.failure)
			continue
		}
		out.Records = append(out.Records, r.records...)
	}
	return out
}

// runSource is one source's full unit of work. Panics and errors alike are
// converted into a per-source failure.
func (o *Orchestrator) runSource(ctx context.Context, src adapter.SourceAdapter) (records []catalog.Record, failure *Failure) {
	log := logger.ForSource(src.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Source unit of work panicked")
			records = nil
			failure = &Failure{SourceID: src.ID, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	srcCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	raws, err := o.extractor.Extract(srcCtx, src)
	if err != nil {
		log.Warn().Err(err).Msg("Extraction failed")
		return nil, &Failure{SourceID: src.ID, Reason: apperr.Reason(err)}
	}

	records = make([]catalog.Record, 0, len(raws))
	for _, raw := range raws {
		rec, rejection := o.normalizer.Normalize(raw)
		if rejection != nil {
			log.Debug().Str("reason", rejection.Reason).Msg("Record rejected")
			continue
		}
		records = append(records, *rec)
	}

	log.Info().
		Int("found", len(raws)).
		Int("normalized", len(records)).
		Msg("Source scrape finished")

	return records, nil
}
