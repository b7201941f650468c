package adapter

import (
	"net/url"

	"sjsage522/pricecatalog/config"
)

// Builtin returns the full configured source set: the structured retailer
// adapters plus, when enabled, the freeform aggregator shopping adapters.
func Builtin(cfg *config.Config) []SourceAdapter {
	adapters := StructuredSources(cfg)
	if cfg.AggregatorEnabled {
		adapters = append(adapters, AggregatorSources()...)
	}
	return adapters
}

// StructuredSources returns the selector-driven retailer adapters.
// Selectors track each retailer's current markup and need adjusting when a
// retailer redesigns its pages.
func StructuredSources(cfg *config.Config) []SourceAdapter {
	return []SourceAdapter{
		{
			ID:           "cvs",
			DisplayName:  "CVS",
			LogoURL:      "https://www.cvs.com/favicon.ico",
			TargetURL:    cfg.CVSURL,
			BaseURL:      "https://www.cvs.com",
			Mode:         ModeStructured,
			WaitFor:      ".product-card",
			BaseSelector: ".product-card",
			Fields: map[string]FieldSelector{
				FieldName:          {Selector: ".product-title"},
				FieldPrice:         {Selector: ".price .value"},
				FieldOriginalPrice: {Selector: ".price .strike"},
				FieldURL:           {Selector: "a.product-link", Attr: "href"},
				FieldImageURL:      {Selector: "img.product-image", Attr: "src"},
				FieldInStock:       {Selector: ".add-to-cart", Exists: true},
			},
		},
		{
			ID:           "walgreens",
			DisplayName:  "Walgreens",
			LogoURL:      "https://www.walgreens.com/favicon.ico",
			TargetURL:    cfg.WalgreensURL,
			BaseURL:      "https://www.walgreens.com",
			Mode:         ModeStructured,
			WaitFor:      ".product-tile",
			BaseSelector: ".product-tile",
			Fields: map[string]FieldSelector{
				FieldName:     {Selector: ".product-name"},
				FieldPrice:    {Selector: ".product-price"},
				FieldURL:      {Selector: "a.product-tile-link", Attr: "href"},
				FieldImageURL: {Selector: "img.product-image", Attr: "src"},
				FieldInStock:  {Selector: ".add-to-cart-btn", Exists: true},
			},
		},
		{
			ID:           "amazon",
			DisplayName:  "Amazon",
			LogoURL:      "https://www.amazon.com/favicon.ico",
			TargetURL:    cfg.AmazonURL,
			BaseURL:      "https://www.amazon.com",
			Mode:         ModeStructured,
			WaitFor:      `[data-component-type="s-search-result"]`,
			BaseSelector: `[data-component-type="s-search-result"]`,
			Fields: map[string]FieldSelector{
				FieldName:     {Selector: "h2 span"},
				FieldPrice:    {Selector: ".a-price .a-offscreen"},
				FieldURL:      {Selector: "h2 a", Attr: "href"},
				FieldImageURL: {Selector: ".s-image", Attr: "src"},
				FieldInStock:  {Selector: `[data-cy="add-to-cart-button-announce"]`, Exists: true},
			},
		},
		{
			ID:           "target",
			DisplayName:  "Target",
			LogoURL:      "https://www.target.com/favicon.ico",
			TargetURL:    cfg.TargetURL,
			BaseURL:      "https://www.target.com",
			Mode:         ModeStructured,
			WaitFor:      `[data-test="product-details"]`,
			BaseSelector: `[data-test="product-details"]`,
			Fields: map[string]FieldSelector{
				FieldName:     {Selector: `[data-test="product-title"]`},
				FieldPrice:    {Selector: `[data-test="current-price"] span`},
				FieldURL:      {Selector: "a", Attr: "href"},
				FieldImageURL: {Selector: "img", Attr: "src"},
				FieldInStock:  {Selector: `[data-test="shippingBlock"]`, Exists: true},
			},
		},
		{
			ID:           "everlywell",
			DisplayName:  "Everlywell",
			LogoURL:      "https://www.everlywell.com/favicon.ico",
			TargetURL:    cfg.EverlywellURL,
			BaseURL:      "https://www.everlywell.com",
			Mode:         ModeStructured,
			WaitFor:      ".product-item",
			BaseSelector: ".product-item",
			DirectBrand:  true,
			Fields: map[string]FieldSelector{
				FieldName:     {Selector: ".product-item__title"},
				FieldPrice:    {Selector: ".price"},
				FieldURL:      {Selector: "a.product-item__link", Attr: "href"},
				FieldImageURL: {Selector: "img.product-item__image", Attr: "src"},
			},
		},
		{
			ID:           "letsgetchecked",
			DisplayName:  "LetsGetChecked",
			LogoURL:      "https://www.letsgetchecked.com/favicon.ico",
			TargetURL:    cfg.LetsGetCheckedURL,
			BaseURL:      "https://www.letsgetchecked.com",
			Mode:         ModeStructured,
			WaitFor:      ".test-card",
			BaseSelector: ".test-card",
			DirectBrand:  true,
			Fields: map[string]FieldSelector{
				FieldName:     {Selector: ".test-card__title"},
				FieldPrice:    {Selector: ".test-card__price"},
				FieldURL:      {Selector: "a.test-card__link", Attr: "href"},
				FieldImageURL: {Selector: "img", Attr: "src"},
			},
		},
	}
}

// shoppingQueries maps aggregator adapter ids to the shopping search each one
// fires. One freeform adapter exists per test category.
var shoppingQueries = []struct {
	id    string
	label string
	query string
}{
	{"shopping-pregnancy", "Pregnancy", "women at home pregnancy test kit"},
	{"shopping-ovulation-fertility", "Ovulation & Fertility", "at home ovulation fertility test kit"},
	{"shopping-sti-std", "STI / STD", "at home STI STD test women"},
	{"shopping-menopause-fsh", "Menopause & FSH", "at home menopause FSH test"},
	{"shopping-thyroid", "Thyroid", "at home thyroid test women"},
	{"shopping-hormone-panel", "Hormone Panel", "at home hormone panel test women"},
	{"shopping-uti", "UTI", "at home UTI test strips women"},
	{"shopping-vaginal-health", "Vaginal Health", "at home vaginal pH yeast BV test women"},
	{"shopping-pcos", "PCOS", "at home PCOS hormone test kit women"},
	{"shopping-general-wellness", "General Wellness", "at home women health test kit"},
}

// AggregatorSources returns the freeform shopping-search adapters consumed by
// the instruction-driven extraction backend.
func AggregatorSources() []SourceAdapter {
	adapters := make([]SourceAdapter, 0, len(shoppingQueries))
	for _, q := range shoppingQueries {
		adapters = append(adapters, SourceAdapter{
			ID:          q.id,
			DisplayName: "Google Shopping: " + q.label,
			TargetURL:   "https://www.google.com/search?tbm=shop&q=" + url.QueryEscape(q.query),
			BaseURL:     "https://www.google.com",
			Mode:        ModeFreeform,
			Instruction: "women's health at-home test products (" + q.label + ")",
		})
	}
	return adapters
}
