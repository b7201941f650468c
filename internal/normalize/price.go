package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// priceRun matches the first run of digits with an optional decimal part,
// after thousands separators are stripped.
var priceRun = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// ParsePrice extracts a price from raw text like "$24.99" or "$1,234.56".
// The second return value is false when no digit run is present.
func ParsePrice(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, ",", "")
	m := priceRun.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
