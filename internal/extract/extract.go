package extract

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"sjsage522/pricecatalog/internal/adapter"
	"sjsage522/pricecatalog/logger"
	apperr "sjsage522/pricecatalog/pkg/errors"
	"sjsage522/pricecatalog/services/fetcher"

	"github.com/PuerkitoBio/goquery"
)

// RawRecord is one scraped item's unprocessed field values plus the owning
// source. Produced by extraction, consumed by normalization, then discarded.
type RawRecord struct {
	SourceID string
	Fields   map[string]string
}

// Engine turns a source adapter plus its target page into an ordered sequence
// of raw records. Extractions for different sources are independent and
// side-effect-free with respect to each other.
type Engine struct {
	fetcher fetcher.Fetcher
}

// NewEngine creates an extraction engine on top of the given page fetcher.
func NewEngine(f fetcher.Fetcher) *Engine {
	return &Engine{fetcher: f}
}

// Extract dispatches on the adapter's extraction mode.
func (e *Engine) Extract(ctx context.Context, src adapter.SourceAdapter) ([]RawRecord, error) {
	switch src.Mode {
	case adapter.ModeStructured:
		return e.extractStructured(ctx, src)
	case adapter.ModeFreeform:
		return e.extractFreeform(ctx, src)
	default:
		return nil, apperr.New(apperr.ErrorTypeConfiguration, src.ID, "unknown extraction mode", nil)
	}
}

// extractStructured applies the adapter's field selectors against every
// matched base element of the rendered page. A missing optional field yields
// an empty string; missing name/price records are filtered at normalization.
func (e *Engine) extractStructured(ctx context.Context, src adapter.SourceAdapter) ([]RawRecord, error) {
	html, err := e.fetcher.Fetch(ctx, src.TargetURL, src.WaitFor)
	if err != nil {
		return nil, fetchError(src.ID, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperr.NewParsing(src.ID, "failed to parse rendered markup", err)
	}

	var records []RawRecord
	doc.Find(src.BaseSelector).Each(func(_ int, s *goquery.Selection) {
		fields := make(map[string]string, len(src.Fields))
		for name, fs := range src.Fields {
			fields[name] = extractField(s, fs)
		}
		resolveURLFields(fields, src.BaseURL)
		records = append(records, RawRecord{SourceID: src.ID, Fields: fields})
	})

	logger.ForSource(src.ID).Debug().
		Int("records", len(records)).
		Msg("Structured extraction finished")

	return records, nil
}

// extractField reads one field from a matched base element.
func extractField(s *goquery.Selection, fs adapter.FieldSelector) string {
	sel := s.Find(fs.Selector)
	if fs.Exists {
		if sel.Length() > 0 {
			return "true"
		}
		return "false"
	}
	if sel.Length() == 0 {
		return ""
	}
	if fs.Attr != "" {
		v, _ := sel.First().Attr(fs.Attr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(sel.First().Text())
}

// resolveURLFields joins relative url/image values against the adapter's
// base URL. The navigation URL is deliberately not used as the join base.
func resolveURLFields(fields map[string]string, base string) {
	for _, key := range []string{adapter.FieldURL, adapter.FieldImageURL} {
		if v, ok := fields[key]; ok && v != "" {
			fields[key] = resolveURL(base, v)
		}
	}
}

func resolveURL(base, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// fetchError classifies a fetcher failure. A deadline means the wait
// condition never rendered in time; that is a per-source failure, not a fault
// to propagate.
func fetchError(sourceID string, err error) error {
	var srcErr *apperr.SourceError
	if errors.As(err, &srcErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.NewRenderTimeout(sourceID, "wait condition did not render in time", err)
	}
	return apperr.NewFetch(sourceID, "page fetch failed", err)
}
