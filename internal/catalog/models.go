package catalog

import (
	"math"
	"time"
)

// Record is one normalized product/price observation from a single source,
// ready for catalog reconciliation. Records are ephemeral; only the upsert
// engine turns them into persistent Products and Listings.
type Record struct {
	Name          string
	Brand         string
	Category      string
	Description   string
	ImageURL      string
	Tags          []string
	Price         float64
	OriginalPrice float64 // pre-discount price; 0 means not observed
	Currency      string
	URL           string
	SourceID      string
	SourceName    string
	SourceLogo    string
	InStock       bool
	ObservedAt    time.Time
}

// Product is a unique catalog entry identified by the exact (Name, Brand)
// pair. Description and ImageURL are backfilled only while empty.
type Product struct {
	ID          string `badgerhold:"key"`
	Name        string `badgerhold:"index"`
	Brand       string
	Category    string
	Description string
	ImageURL    string
	Tags        []string
	CreatedAt   time.Time
}

// Listing is the latest known price/availability of a Product at one source.
// At most one listing exists per (ProductID, SourceID); every re-sighting
// overwrites it in place.
type Listing struct {
	ID            string `badgerhold:"key"`
	ProductID     string `badgerhold:"index"`
	SourceID      string
	SourceName    string
	SourceLogo    string
	Price         float64
	OriginalPrice float64 // 0 means none
	Currency      string
	URL           string
	ImageURL      string
	InStock       bool
	Provenance    string
	ObservedAt    time.Time
}

// DiscountPct derives the rounded discount percentage. It is never persisted.
// The second return value is false when no discount applies.
func (l *Listing) DiscountPct() (int, bool) {
	if l.OriginalPrice > l.Price && l.OriginalPrice > 0 {
		return int(math.Round((1 - l.Price/l.OriginalPrice) * 100)), true
	}
	return 0, false
}

// RunLog is the append-only audit record of one orchestrated ingestion run.
type RunLog struct {
	ID              string `badgerhold:"key"`
	SourceScope     string
	Provenance      string
	RecordsFound    int
	RecordsUpserted int
	ErrorText       string
	StartedAt       time.Time
	FinishedAt      time.Time
	Success         bool
}
