package upsert

import (
	"context"
	"time"

	"sjsage522/pricecatalog/internal/catalog"
	"sjsage522/pricecatalog/logger"
	"sjsage522/pricecatalog/services/store"
)

// Stats reports one apply call's catalog mutations. Created counts new
// products; Upserted counts listings written, whether created or updated.
type Stats struct {
	Created  int
	Upserted int
}

// Engine resolves record identity against the catalog and applies
// create-or-merge semantics. It is the sole writer of product and listing
// identity transitions.
type Engine struct {
	store  store.Store
	logger *logger.Logger
}

// NewEngine creates an upsert engine over the given catalog store.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s, logger: logger.ForIngest()}
}

// Apply reconciles the record batch inside one transaction: either every
// mutation commits or none do. Re-applying an identical batch creates
// nothing and leaves the catalog unchanged apart from observation times.
func (e *Engine) Apply(ctx context.Context, records []catalog.Record, provenance string) (Stats, error) {
	var stats Stats
	err := e.store.Update(ctx, func(tx store.Tx) error {
		for _, rec := range records {
			if err := applyRecord(tx, rec, provenance, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	e.logger.Debug().
		Str("provenance", provenance).
		Int("records", len(records)).
		Int("created", stats.Created).
		Int("upserted", stats.Upserted).
		Msg("Record batch applied")

	return stats, nil
}

func applyRecord(tx store.Tx, rec catalog.Record, provenance string, stats *Stats) error {
	product, err := tx.FindProduct(rec.Name, rec.Brand)
	if err != nil {
		return err
	}
	if product == nil {
		product = &catalog.Product{
			Name:        rec.Name,
			Brand:       rec.Brand,
			Category:    rec.Category,
			Description: rec.Description,
			ImageURL:    rec.ImageURL,
			Tags:        rec.Tags,
			CreatedAt:   rec.ObservedAt,
		}
		if err := tx.CreateProduct(product); err != nil {
			return err
		}
		stats.Created++
	} else {
		// Optional fields are backfilled only while empty; populated values
		// are never overwritten by later sightings.
		changed := false
		if rec.Description != "" && product.Description == "" {
			product.Description = rec.Description
			changed = true
		}
		if rec.ImageURL != "" && product.ImageURL == "" {
			product.ImageURL = rec.ImageURL
			changed = true
		}
		if changed {
			if err := tx.UpdateProduct(product); err != nil {
				return err
			}
		}
	}

	listing, err := tx.FindListing(product.ID, rec.SourceID)
	if err != nil {
		return err
	}
	created := listing == nil
	if created {
		listing = &catalog.Listing{
			ProductID: product.ID,
			SourceID:  rec.SourceID,
		}
	}

	// Listings reflect latest known state, not history: every re-sighting
	// overwrites unconditionally.
	listing.SourceName = rec.SourceName
	listing.SourceLogo = rec.SourceLogo
	listing.Price = rec.Price
	listing.OriginalPrice = rec.OriginalPrice
	listing.Currency = rec.Currency
	listing.URL = rec.URL
	listing.ImageURL = rec.ImageURL
	listing.InStock = rec.InStock
	listing.Provenance = provenance
	listing.ObservedAt = rec.ObservedAt

	if created {
		if err := tx.CreateListing(listing); err != nil {
			return err
		}
	} else {
		if err := tx.UpdateListing(listing); err != nil {
			return err
		}
	}
	stats.Upserted++
	return nil
}

// Log appends one audit row for an orchestrated run.
func (e *Engine) Log(ctx context.Context, scope, provenance string, found, upserted int, errText string, startedAt, finishedAt time.Time, success bool) error {
	return e.store.Update(ctx, func(tx store.Tx) error {
		return tx.AppendRunLog(&catalog.RunLog{
			SourceScope:     scope,
			Provenance:      provenance,
			RecordsFound:    found,
			RecordsUpserted: upserted,
			ErrorText:       errText,
			StartedAt:       startedAt,
			FinishedAt:      finishedAt,
			Success:         success,
		})
	})
}
