package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"sjsage522/pricecatalog/internal/catalog"

	"github.com/stretchr/testify/assert"
)

func TestMemoryUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	err := mem.Update(ctx, func(tx Tx) error {
		if err := tx.CreateProduct(&catalog.Product{Name: "Doomed", Brand: "Brand"}); err != nil {
			return err
		}
		return errors.New("batch failed")
	})
	assert.Error(t, err)

	// The failed batch left nothing behind
	assert.Empty(t, mem.Products())
}

func TestMemoryFindSemantics(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	err := mem.Update(ctx, func(tx Tx) error {
		missing, err := tx.FindProduct("Nope", "Nope")
		assert.NoError(t, err)
		assert.Nil(t, missing)

		p := &catalog.Product{Name: "Clearblue Digital", Brand: "Clearblue"}
		if err := tx.CreateProduct(p); err != nil {
			return err
		}
		assert.NotEmpty(t, p.ID)

		found, err := tx.FindProduct("Clearblue Digital", "Clearblue")
		assert.NoError(t, err)
		assert.NotNil(t, found)
		assert.Equal(t, p.ID, found.ID)

		// Same name under a different brand is a different product
		otherBrand, err := tx.FindProduct("Clearblue Digital", "Other")
		assert.NoError(t, err)
		assert.Nil(t, otherBrand)

		return tx.CreateListing(&catalog.Listing{ProductID: p.ID, SourceID: "cvs", Price: 12.99})
	})
	assert.NoError(t, err)

	assert.Len(t, mem.Products(), 1)
	assert.Len(t, mem.Listings(), 1)
}

func TestMemoryRunLogsNewestFirst(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		startedAt := base.Add(time.Duration(i) * time.Hour)
		err := mem.Update(ctx, func(tx Tx) error {
			return tx.AppendRunLog(&catalog.RunLog{Provenance: "structured", StartedAt: startedAt})
		})
		assert.NoError(t, err)
	}

	logs, err := mem.RunLogs(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, logs, 3)
	assert.True(t, logs[0].StartedAt.After(logs[1].StartedAt))
	assert.True(t, logs[1].StartedAt.After(logs[2].StartedAt))

	limited, err := mem.RunLogs(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, base.Add(2*time.Hour), limited[0].StartedAt)
}

func TestMemoryJobState(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	_, ok, err := mem.JobState(ctx, "structured-refresh")
	assert.NoError(t, err)
	assert.False(t, ok)

	tick := time.Date(2026, 8, 1, 2, 0, 0, 0, time.UTC)
	assert.NoError(t, mem.SetJobState(ctx, "structured-refresh", tick))

	last, ok, err := mem.JobState(ctx, "structured-refresh")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, tick, last)
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping badger store test in short mode")
	}

	ctx := context.Background()
	bs, err := OpenBadger(t.TempDir())
	assert.NoError(t, err)
	defer bs.Close()

	err = bs.Update(ctx, func(tx Tx) error {
		p := &catalog.Product{Name: "Clearblue Digital", Brand: "Clearblue", Category: "Pregnancy"}
		if err := tx.CreateProduct(p); err != nil {
			return err
		}
		return tx.CreateListing(&catalog.Listing{ProductID: p.ID, SourceID: "cvs", Price: 12.99})
	})
	assert.NoError(t, err)

	err = bs.Update(ctx, func(tx Tx) error {
		p, err := tx.FindProduct("Clearblue Digital", "Clearblue")
		if err != nil {
			return err
		}
		assert.NotNil(t, p)

		l, err := tx.FindListing(p.ID, "cvs")
		if err != nil {
			return err
		}
		assert.NotNil(t, l)
		assert.InDelta(t, 12.99, l.Price, 0.0001)

		missing, err := tx.FindListing(p.ID, "walgreens")
		if err != nil {
			return err
		}
		assert.Nil(t, missing)
		return nil
	})
	assert.NoError(t, err)

	products, err := bs.Products(ctx)
	assert.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestBadgerStoreRollback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping badger store test in short mode")
	}

	ctx := context.Background()
	bs, err := OpenBadger(t.TempDir())
	assert.NoError(t, err)
	defer bs.Close()

	err = bs.Update(ctx, func(tx Tx) error {
		if err := tx.CreateProduct(&catalog.Product{Name: "Doomed", Brand: "Brand"}); err != nil {
			return err
		}
		return errors.New("batch failed")
	})
	assert.Error(t, err)

	products, err := bs.Products(ctx)
	assert.NoError(t, err)
	assert.Empty(t, products)
}

func TestBadgerJobState(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping badger store test in short mode")
	}

	ctx := context.Background()
	bs, err := OpenBadger(t.TempDir())
	assert.NoError(t, err)
	defer bs.Close()

	_, ok, err := bs.JobState(ctx, "aggregator-refresh")
	assert.NoError(t, err)
	assert.False(t, ok)

	tick := time.Date(2026, 8, 1, 2, 0, 0, 0, time.UTC)
	assert.NoError(t, bs.SetJobState(ctx, "aggregator-refresh", tick))

	last, ok, err := bs.JobState(ctx, "aggregator-refresh")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, tick.Equal(last))
}
