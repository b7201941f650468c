package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"sjsage522/pricecatalog/internal/catalog"

	"github.com/google/uuid"
)

// MemoryStore is an in-process catalog backend for tests and throwaway dev
// runs. Update stages mutations on copies and swaps them in on success, so a
// failing batch leaves nothing behind.
type MemoryStore struct {
	mu        sync.Mutex
	products  map[string]catalog.Product
	listings  map[string]catalog.Listing
	runLogs   []catalog.RunLog
	jobStates map[string]time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty in-memory catalog store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		products:  make(map[string]catalog.Product),
		listings:  make(map[string]catalog.Listing),
		jobStates: make(map[string]time.Time),
	}
}

// Update runs fn against a staged copy of the catalog and commits it only
// when fn succeeds.
func (m *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		products: maps.Clone(m.products),
		listings: maps.Clone(m.listings),
		runLogs:  slices.Clone(m.runLogs),
	}
	if err := fn(tx); err != nil {
		return err
	}

	m.products = tx.products
	m.listings = tx.listings
	m.runLogs = tx.runLogs
	return nil
}

// RunLogs returns audit rows newest-first.
func (m *MemoryStore) RunLogs(ctx context.Context, limit int) ([]catalog.RunLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs := slices.Clone(m.runLogs)
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].StartedAt.After(logs[j].StartedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// JobState returns the job's last scheduled tick.
func (m *MemoryStore) JobState(ctx context.Context, jobID string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.jobStates[jobID]
	return last, ok, nil
}

// SetJobState records the job's last scheduled tick.
func (m *MemoryStore) SetJobState(ctx context.Context, jobID string, last time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobStates[jobID] = last
	return nil
}

// Products returns every product, for test assertions.
func (m *MemoryStore) Products() []catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out
}

// Listings returns every listing, for test assertions.
func (m *MemoryStore) Listings() []catalog.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		out = append(out, l)
	}
	return out
}

// Close is a no-op for the in-memory backend.
func (m *MemoryStore) Close() error {
	return nil
}

type memTx struct {
	products map[string]catalog.Product
	listings map[string]catalog.Listing
	runLogs  []catalog.RunLog
}

func (t *memTx) FindProduct(name, brand string) (*catalog.Product, error) {
	for _, p := range t.products {
		if p.Name == name && p.Brand == brand {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateProduct(p *catalog.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	t.products[p.ID] = *p
	return nil
}

func (t *memTx) UpdateProduct(p *catalog.Product) error {
	t.products[p.ID] = *p
	return nil
}

func (t *memTx) FindListing(productID, sourceID string) (*catalog.Listing, error) {
	for _, l := range t.listings {
		if l.ProductID == productID && l.SourceID == sourceID {
			found := l
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateListing(l *catalog.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	t.listings[l.ID] = *l
	return nil
}

func (t *memTx) UpdateListing(l *catalog.Listing) error {
	t.listings[l.ID] = *l
	return nil
}

func (t *memTx) AppendRunLog(r *catalog.RunLog) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	t.runLogs = append(t.runLogs, *r)
	return nil
}
