package adapter

import (
	apperr "sjsage522/pricecatalog/pkg/errors"
)

// Mode selects how a source's records are extracted.
type Mode string

const (
	// ModeStructured extracts fields with CSS selectors over rendered markup.
	ModeStructured Mode = "structured"
	// ModeFreeform delegates to the generic instruction-driven extraction
	// backend, for sources without a workable selector schema.
	ModeFreeform Mode = "freeform"
)

// Field names shared between extraction and normalization.
const (
	FieldName          = "name"
	FieldPrice         = "price"
	FieldOriginalPrice = "original_price"
	FieldURL           = "url"
	FieldImageURL      = "image_url"
	FieldDescription   = "description"
	FieldInStock       = "in_stock"
)

// FieldSelector describes how one field is read from a matched base element.
type FieldSelector struct {
	Selector string
	Attr     string // read this attribute instead of text when set
	Exists   bool   // presence check: yields "true"/"false"
}

// SourceAdapter is the immutable configuration of one external source.
// Selectors are best-effort and expected to degrade as target markup changes;
// a degraded selector yields empty fields, filtered at normalization.
type SourceAdapter struct {
	ID          string
	DisplayName string
	LogoURL     string

	// TargetURL is the search/category page navigated to. BaseURL is the
	// origin used to resolve relative URLs found in records; a search page
	// and its product links can have different origins, so the navigation
	// URL is never used as the join base.
	TargetURL string
	BaseURL   string

	Mode Mode

	// Structured mode
	WaitFor      string // selector that must render before extraction
	BaseSelector string
	Fields       map[string]FieldSelector

	// Freeform mode: the subject of the fixed extraction instruction
	// template, e.g. "women's health at-home pregnancy test products".
	Instruction string

	// DirectBrand marks sources that sell their own brand; their display
	// name wins brand inference.
	DirectBrand bool
}

// Validate rejects adapters that cannot produce identifiable records.
func (a SourceAdapter) Validate() error {
	if a.ID == "" {
		return apperr.NewConfiguration("adapter is missing an id", nil)
	}
	if a.TargetURL == "" || a.BaseURL == "" {
		return apperr.New(apperr.ErrorTypeConfiguration, a.ID, "adapter requires a target and base URL", nil)
	}
	switch a.Mode {
	case ModeStructured:
		if a.BaseSelector == "" {
			return apperr.New(apperr.ErrorTypeConfiguration, a.ID, "structured adapter requires a base selector", nil)
		}
		// Records without a name or price are unusable, so a structured
		// schema must at least declare where to find them.
		if _, ok := a.Fields[FieldName]; !ok {
			return apperr.New(apperr.ErrorTypeConfiguration, a.ID, "structured adapter requires a name selector", nil)
		}
		if _, ok := a.Fields[FieldPrice]; !ok {
			return apperr.New(apperr.ErrorTypeConfiguration, a.ID, "structured adapter requires a price selector", nil)
		}
	case ModeFreeform:
		if a.Instruction == "" {
			return apperr.New(apperr.ErrorTypeConfiguration, a.ID, "freeform adapter requires an instruction", nil)
		}
	default:
		return apperr.New(apperr.ErrorTypeConfiguration, a.ID, "unknown extraction mode", nil)
	}
	return nil
}
