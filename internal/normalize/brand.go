package normalize

import "strings"

// KnownBrands is scanned against product names case-insensitively; the first
// entry that matches wins, so order is significant and must be preserved.
var KnownBrands = []string{
	"Clearblue",
	"First Response",
	"Pregmate",
	"Easy@Home",
	"Proov",
	"Inito",
	"Mira",
	"Wisp",
	"Everlywell",
	"LetsGetChecked",
	"Nurx",
	"at&t",
	"Stix",
	"MomMed",
}

// inferBrand resolves a record's brand in priority order: a direct-brand
// source names its own brand, then the known-brand list is scanned against
// the product name, then the source id is the fallback.
func (n *Normalizer) inferBrand(name, sourceID string) string {
	if src, ok := n.sources[sourceID]; ok && src.directBrand {
		return src.displayName
	}
	lower := strings.ToLower(name)
	for _, brand := range n.brands {
		if strings.Contains(lower, strings.ToLower(brand)) {
			return brand
		}
	}
	return sourceID
}
