package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"sjsage522/pricecatalog/internal/adapter"
	"sjsage522/pricecatalog/logger"
	apperr "sjsage522/pricecatalog/pkg/errors"
)

// instructionTemplate is the fixed freeform extraction instruction; only the
// subject line varies per adapter.
const instructionTemplate = "Extract all %s from this page. For each product return: " +
	"name, price (numeric USD), original_price (if discounted), url, image_url, description. " +
	"Return a JSON array of objects with exactly those keys."

// extractFreeform delegates to the generic extraction backend and parses its
// JSON response into raw records. A malformed response fails the source.
func (e *Engine) extractFreeform(ctx context.Context, src adapter.SourceAdapter) ([]RawRecord, error) {
	instruction := fmt.Sprintf(instructionTemplate, src.Instruction)

	raw, err := e.fetcher.RunFreeform(ctx, src.TargetURL, instruction)
	if err != nil {
		return nil, fetchError(src.ID, err)
	}

	items, err := decodeFreeform(raw)
	if err != nil {
		return nil, apperr.NewMalformed(src.ID, "freeform response is not a JSON record array", err)
	}

	records := make([]RawRecord, 0, len(items))
	for _, item := range items {
		fields := make(map[string]string, len(item))
		for key, value := range item {
			fields[key] = stringifyField(value)
		}
		resolveURLFields(fields, src.BaseURL)
		records = append(records, RawRecord{SourceID: src.ID, Fields: fields})
	}

	logger.ForSource(src.ID).Debug().
		Int("records", len(records)).
		Msg("Freeform extraction finished")

	return records, nil
}

// decodeFreeform parses the backend's response, tolerating markdown fences
// some backends wrap JSON in despite instructions.
func decodeFreeform(raw string) ([]map[string]any, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func stringifyField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
