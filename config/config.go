package config

import (
	"os"
	"strconv"
	"time"

	apperr "sjsage522/pricecatalog/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Scheduling
	RefreshInterval        time.Duration
	StructuredStartupDelay time.Duration
	AggregatorStartupDelay time.Duration
	MisfireGrace           time.Duration

	// Per-source extraction budget
	SourceTimeout time.Duration

	// Catalog store
	StoreBackend string // "badger" | "memory"
	StorePath    string

	// Freeform extraction backend
	AggregatorEnabled bool
	AnthropicAPIKey   string
	ClaudeModel       string

	// Headless browser
	ChromeHeadless  bool
	ChromeNoSandbox bool
	UserAgent       string

	// URLs for the structured retailer sources
	CVSURL            string
	WalgreensURL      string
	AmazonURL         string
	TargetURL         string
	EverlywellURL     string
	LetsGetCheckedURL string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	intervalHours, _ := strconv.Atoi(getEnv("REFRESH_INTERVAL_HOURS", "24"))
	structuredDelay, _ := strconv.Atoi(getEnv("STRUCTURED_STARTUP_DELAY_SECONDS", "300"))
	aggregatorDelay, _ := strconv.Atoi(getEnv("AGGREGATOR_STARTUP_DELAY_SECONDS", "600"))
	misfireGrace, _ := strconv.Atoi(getEnv("MISFIRE_GRACE_SECONDS", "3600"))
	sourceTimeout, _ := strconv.Atoi(getEnv("SOURCE_TIMEOUT_SECONDS", "90"))

	return Config{
		RefreshInterval:        time.Duration(intervalHours) * time.Hour,
		StructuredStartupDelay: time.Duration(structuredDelay) * time.Second,
		AggregatorStartupDelay: time.Duration(aggregatorDelay) * time.Second,
		MisfireGrace:           time.Duration(misfireGrace) * time.Second,
		SourceTimeout:          time.Duration(sourceTimeout) * time.Second,
		StoreBackend:           getEnv("STORE_BACKEND", "badger"),
		StorePath:              getEnv("STORE_PATH", "./data/catalog"),
		AggregatorEnabled:      getEnv("SCRAPE_AGGREGATOR_ENABLED", "true") == "true",
		AnthropicAPIKey:        getEnv("ANTHROPIC_API_KEY", ""),
		ClaudeModel:            getEnv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		ChromeHeadless:         getEnv("CHROME_HEADLESS", "true") == "true",
		ChromeNoSandbox:        getEnv("CHROME_NO_SANDBOX", "false") == "true",
		UserAgent:              getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"),
		CVSURL:                 getEnv("CVS_URL", "https://www.cvs.com/search?searchTerm=women+health+test"),
		WalgreensURL:           getEnv("WALGREENS_URL", "https://www.walgreens.com/search/results.jsp?Ntt=women+health+test"),
		AmazonURL:              getEnv("AMAZON_URL", "https://www.amazon.com/s?k=women+at+home+health+test"),
		TargetURL:              getEnv("TARGET_URL", "https://www.target.com/s?searchTerm=womens+health+test"),
		EverlywellURL:          getEnv("EVERLYWELL_URL", "https://www.everlywell.com/collections/womens-health"),
		LetsGetCheckedURL:      getEnv("LETSGETCHECKED_URL", "https://www.letsgetchecked.com/us/en/women/"),
		Environment:            getEnv("PRICECATALOG_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration before any job is scheduled, so a broken
// source setup fails at startup instead of on every tick.
func (c *Config) Validate() error {
	if c.RefreshInterval <= 0 {
		return apperr.NewConfiguration("REFRESH_INTERVAL_HOURS must be positive", nil)
	}
	if c.SourceTimeout <= 0 {
		return apperr.NewConfiguration("SOURCE_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.MisfireGrace < 0 {
		return apperr.NewConfiguration("MISFIRE_GRACE_SECONDS must not be negative", nil)
	}
	switch c.StoreBackend {
	case "badger":
		if c.StorePath == "" {
			return apperr.NewConfiguration("STORE_PATH is required for the badger backend", nil)
		}
	case "memory":
	default:
		return apperr.NewConfiguration("STORE_BACKEND must be badger or memory", nil)
	}
	if c.AggregatorEnabled && c.AnthropicAPIKey == "" {
		return apperr.NewConfiguration("aggregator scraping requires ANTHROPIC_API_KEY (or set SCRAPE_AGGREGATOR_ENABLED=false)", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
