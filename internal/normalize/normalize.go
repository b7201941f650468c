package normalize

import (
	"strings"
	"time"

	"sjsage522/pricecatalog/internal/adapter"
	"sjsage522/pricecatalog/internal/catalog"
	"sjsage522/pricecatalog/internal/extract"
)

// Rejection reasons. Rejected records are dropped silently; they surface only
// through found-vs-upserted deltas in the audit trail.
const (
	ReasonMissingName = "missing name"
	ReasonNoPrice     = "no price"
)

// Rejection explains why a raw record produced no canonical record.
type Rejection struct {
	Reason string
}

// sourceInfo is the per-source context brand inference and listing metadata
// need from the adapter registry.
type sourceInfo struct {
	displayName string
	logoURL     string
	directBrand bool
}

// Normalizer converts raw extracted field maps into canonical records. It is
// purely computational: every input yields either a record or a rejection.
type Normalizer struct {
	sources map[string]sourceInfo
	brands  []string
	rules   []CategoryRule
	now     func() time.Time
}

// New builds a normalizer over the registry's configured sources, the known
// brand list, and the category rule chain.
func New(reg *adapter.Registry) *Normalizer {
	sources := make(map[string]sourceInfo)
	for _, a := range reg.All() {
		sources[a.ID] = sourceInfo{
			displayName: a.DisplayName,
			logoURL:     a.LogoURL,
			directBrand: a.DirectBrand,
		}
	}
	return &Normalizer{
		sources: sources,
		brands:  KnownBrands,
		rules:   CategoryRules,
		now:     time.Now,
	}
}

// Normalize converts one raw record. A record without a trimmed name, or
// whose price has no parsable digit run, is rejected.
func (n *Normalizer) Normalize(raw extract.RawRecord) (*catalog.Record, *Rejection) {
	name := strings.TrimSpace(raw.Fields[adapter.FieldName])
	if name == "" {
		return nil, &Rejection{Reason: ReasonMissingName}
	}

	price, ok := ParsePrice(raw.Fields[adapter.FieldPrice])
	if !ok {
		return nil, &Rejection{Reason: ReasonNoPrice}
	}

	description := strings.TrimSpace(raw.Fields[adapter.FieldDescription])
	src := n.sources[raw.SourceID]
	sourceName := src.displayName
	if sourceName == "" {
		sourceName = raw.SourceID
	}

	rec := &catalog.Record{
		Name:        name,
		Brand:       n.inferBrand(name, raw.SourceID),
		Category:    InferCategory(name, description),
		Description: description,
		ImageURL:    raw.Fields[adapter.FieldImageURL],
		Price:       price,
		Currency:    "USD",
		URL:         raw.Fields[adapter.FieldURL],
		SourceID:    raw.SourceID,
		SourceName:  sourceName,
		SourceLogo:  src.logoURL,
		InStock:     inStock(raw.Fields),
		ObservedAt:  n.now(),
	}

	// A pre-discount price only counts when it is actually higher.
	if original, ok := ParsePrice(raw.Fields[adapter.FieldOriginalPrice]); ok && original > price {
		rec.OriginalPrice = original
	}

	return rec, nil
}

// inStock reads the availability signal. An absent signal means the source
// does not expose stock state, not that the item is gone.
func inStock(fields map[string]string) bool {
	v, ok := fields[adapter.FieldInStock]
	if !ok {
		return true
	}
	return v == "true"
}
