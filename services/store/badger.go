package store

import (
	"context"
	"errors"
	"os"
	"time"

	"sjsage522/pricecatalog/internal/catalog"
	"sjsage522/pricecatalog/logger"
	apperr "sjsage522/pricecatalog/pkg/errors"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerStore is the production catalog store. One badger transaction per
// Update call gives the batch its all-or-nothing commit; a serialization
// conflict surfaces as a store error and aborts the whole batch.
type BadgerStore struct {
	store  *badgerhold.Store
	logger *logger.Logger
}

var _ Store = (*BadgerStore)(nil)

// OpenBadger opens (creating if needed) the catalog database at path.
func OpenBadger(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, apperr.NewStore("failed to create store directory", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, apperr.NewStore("failed to open catalog store", err)
	}

	log := logger.ForStore()
	log.Info().Str("path", path).Msg("Catalog store opened")

	return &BadgerStore{store: store, logger: log}, nil
}

// Update runs fn in a single badger read-write transaction.
func (b *BadgerStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.store.Badger().Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{store: b.store, txn: txn})
	})
	if err != nil {
		var srcErr *apperr.SourceError
		if errors.As(err, &srcErr) {
			return err
		}
		return apperr.NewStore("catalog transaction failed", err)
	}
	return nil
}

// RunLogs returns audit rows newest-first.
func (b *BadgerStore) RunLogs(ctx context.Context, limit int) ([]catalog.RunLog, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	var logs []catalog.RunLog
	if err := b.store.Find(&logs, query); err != nil {
		return nil, apperr.NewStore("failed to list run logs", err)
	}
	return logs, nil
}

// JobState returns the job's persisted last scheduled tick.
func (b *BadgerStore) JobState(ctx context.Context, jobID string) (time.Time, bool, error) {
	var state JobState
	err := b.store.Get(jobID, &state)
	if err == badgerhold.ErrNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, apperr.NewStore("failed to read job state", err)
	}
	return state.LastTick, true, nil
}

// SetJobState persists the job's last scheduled tick.
func (b *BadgerStore) SetJobState(ctx context.Context, jobID string, last time.Time) error {
	if err := b.store.Upsert(jobID, &JobState{JobID: jobID, LastTick: last}); err != nil {
		return apperr.NewStore("failed to persist job state", err)
	}
	return nil
}

// Products returns every catalog product; used by inspection tooling.
func (b *BadgerStore) Products(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := b.store.Find(&products, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, apperr.NewStore("failed to list products", err)
	}
	return products, nil
}

// Close closes the underlying database.
func (b *BadgerStore) Close() error {
	return b.store.Close()
}

// badgerTx adapts badgerhold's transactional operations to the Tx contract.
type badgerTx struct {
	store *badgerhold.Store
	txn   *badger.Txn
}

func (t *badgerTx) FindProduct(name, brand string) (*catalog.Product, error) {
	var products []catalog.Product
	query := badgerhold.Where("Name").Eq(name).And("Brand").Eq(brand)
	if err := t.store.TxFind(t.txn, &products, query); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	return &products[0], nil
}

func (t *badgerTx) CreateProduct(p *catalog.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return t.store.TxInsert(t.txn, p.ID, p)
}

func (t *badgerTx) UpdateProduct(p *catalog.Product) error {
	return t.store.TxUpdate(t.txn, p.ID, p)
}

func (t *badgerTx) FindListing(productID, sourceID string) (*catalog.Listing, error) {
	var listings []catalog.Listing
	query := badgerhold.Where("ProductID").Eq(productID).And("SourceID").Eq(sourceID)
	if err := t.store.TxFind(t.txn, &listings, query); err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, nil
	}
	return &listings[0], nil
}

func (t *badgerTx) CreateListing(l *catalog.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return t.store.TxInsert(t.txn, l.ID, l)
}

func (t *badgerTx) UpdateListing(l *catalog.Listing) error {
	return t.store.TxUpdate(t.txn, l.ID, l)
}

func (t *badgerTx) AppendRunLog(r *catalog.RunLog) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return t.store.TxInsert(t.txn, r.ID, r)
}
