package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"sjsage522/pricecatalog/internal/adapter"
	"sjsage522/pricecatalog/internal/catalog"
	"sjsage522/pricecatalog/internal/orchestrator"
	"sjsage522/pricecatalog/internal/upsert"

	"github.com/stretchr/testify/assert"
)

// MockScraper implements the Scraper interface for testing
type MockScraper struct {
	result      orchestrator.Result
	lastSources []adapter.SourceAdapter
}

var _ Scraper = (*MockScraper)(nil)

func (m *MockScraper) Run(ctx context.Context, sources []adapter.SourceAdapter) orchestrator.Result {
	m.lastSources = sources
	return m.result
}

// MockApplier implements the Applier interface for testing
type MockApplier struct {
	stats    upsert.Stats
	applyErr error
	logErr   error

	appliedRecords []catalog.Record
	appliedProv    string
	loggedRows     []loggedRow
}

type loggedRow struct {
	scope      string
	provenance string
	found      int
	upserted   int
	errText    string
	success    bool
}

var _ Applier = (*MockApplier)(nil)

func (m *MockApplier) Apply(ctx context.Context, records []catalog.Record, provenance string) (upsert.Stats, error) {
	if m.applyErr != nil {
		return upsert.Stats{}, m.applyErr
	}
	m.appliedRecords = records
	m.appliedProv = provenance
	return m.stats, nil
}

func (m *MockApplier) Log(ctx context.Context, scope, provenance string, found, upserted int, errText string, startedAt, finishedAt time.Time, success bool) error {
	if m.logErr != nil {
		return m.logErr
	}
	m.loggedRows = append(m.loggedRows, loggedRow{
		scope:      scope,
		provenance: provenance,
		found:      found,
		upserted:   upserted,
		errText:    errText,
		success:    success,
	})
	return nil
}

func testRegistry(t *testing.T) *adapter.Registry {
	t.Helper()
	reg, err := adapter.NewRegistry(
		adapter.SourceAdapter{
			ID:           "retailer-a",
			DisplayName:  "Retailer A",
			TargetURL:    "https://a.example/search",
			BaseURL:      "https://a.example",
			Mode:         adapter.ModeStructured,
			BaseSelector: ".item",
			Fields: map[string]adapter.FieldSelector{
				adapter.FieldName:  {Selector: ".name"},
				adapter.FieldPrice: {Selector: ".price"},
			},
		},
		adapter.SourceAdapter{
			ID:          "shopping-pregnancy",
			DisplayName: "Google Shopping: Pregnancy",
			TargetURL:   "https://www.google.com/search?tbm=shop&q=pregnancy",
			BaseURL:     "https://www.google.com",
			Mode:        adapter.ModeFreeform,
			Instruction: "pregnancy test products",
		},
	)
	assert.NoError(t, err)
	return reg
}

func TestRunStructured(t *testing.T) {
	scraper := &MockScraper{
		result: orchestrator.Result{
			Records: []catalog.Record{
				{Name: "Clearblue Digital", Brand: "Clearblue", SourceID: "retailer-a", Price: 12.99},
				{Name: "Pregmate Strips", Brand: "Pregmate", SourceID: "retailer-a", Price: 8.49},
			},
			Failures: []orchestrator.Failure{
				{SourceID: "retailer-b", Reason: "render-timeout"},
			},
		},
	}
	applier := &MockApplier{stats: upsert.Stats{Created: 1, Upserted: 2}}
	runner := NewRunner(testRegistry(t), scraper, applier)

	summary, err := runner.Run(context.Background(), ProvenanceStructured)
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Found)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 2, summary.Upserted)
	assert.Len(t, summary.Failures, 1)

	// Only structured sources were scraped
	assert.Len(t, scraper.lastSources, 1)
	assert.Equal(t, "retailer-a", scraper.lastSources[0].ID)

	assert.Equal(t, ProvenanceStructured, applier.appliedProv)
	assert.Len(t, applier.appliedRecords, 2)

	// The success audit row carries the per-source failures
	assert.Len(t, applier.loggedRows, 1)
	row := applier.loggedRows[0]
	assert.Equal(t, ScopeAll, row.scope)
	assert.Equal(t, ProvenanceStructured, row.provenance)
	assert.Equal(t, 2, row.found)
	assert.Equal(t, 2, row.upserted)
	assert.True(t, row.success)
	assert.Equal(t, "retailer-b: render-timeout", row.errText)
}

func TestRunAggregatorSelectsFreeformSources(t *testing.T) {
	scraper := &MockScraper{}
	applier := &MockApplier{}
	runner := NewRunner(testRegistry(t), scraper, applier)

	_, err := runner.Run(context.Background(), ProvenanceAggregator)
	assert.NoError(t, err)
	assert.Len(t, scraper.lastSources, 1)
	assert.Equal(t, "shopping-pregnancy", scraper.lastSources[0].ID)
}

func TestRunUnknownProvenance(t *testing.T) {
	runner := NewRunner(testRegistry(t), &MockScraper{}, &MockApplier{})
	_, err := runner.Run(context.Background(), "nightly")
	assert.Error(t, err)
}

func TestRunApplyFailureSkipsAuditRow(t *testing.T) {
	applier := &MockApplier{applyErr: errors.New("store unavailable")}
	runner := NewRunner(testRegistry(t), &MockScraper{}, applier)

	_, err := runner.Run(context.Background(), ProvenanceStructured)
	assert.Error(t, err)
	// The caller owns failure logging; a broken store writes no row here
	assert.Empty(t, applier.loggedRows)
}

func TestFailureText(t *testing.T) {
	assert.Equal(t, "", failureText(nil))
	assert.Equal(t, "a: fetch-error", failureText([]orchestrator.Failure{
		{SourceID: "a", Reason: "fetch-error"},
	}))
	assert.Equal(t, "a: fetch-error; b: render-timeout", failureText([]orchestrator.Failure{
		{SourceID: "a", Reason: "fetch-error"},
		{SourceID: "b", Reason: "render-timeout"},
	}))
}
