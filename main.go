package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/pricecatalog/config"
	"sjsage522/pricecatalog/internal/adapter"
	"sjsage522/pricecatalog/internal/extract"
	"sjsage522/pricecatalog/internal/ingest"
	"sjsage522/pricecatalog/internal/normalize"
	"sjsage522/pricecatalog/internal/orchestrator"
	"sjsage522/pricecatalog/internal/upsert"
	"sjsage522/pricecatalog/logger"
	"sjsage522/pricecatalog/services/fetcher"
	"sjsage522/pricecatalog/services/scheduler"
	"sjsage522/pricecatalog/services/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	catalogStore, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Could not open catalog store: %v", err)
	}
	defer catalogStore.Close()

	var llm *fetcher.ClaudeExtractor
	if cfg.AggregatorEnabled {
		llm, err = fetcher.NewClaudeExtractor(cfg.AnthropicAPIKey, cfg.ClaudeModel)
		if err != nil {
			logger.Fatal("Could not create freeform extractor: %v", err)
		}
	}

	chrome := fetcher.NewChromeFetcher(fetcher.Options{
		Headless:  cfg.ChromeHeadless,
		NoSandbox: cfg.ChromeNoSandbox,
		UserAgent: cfg.UserAgent,
	}, llm)
	defer chrome.Close()

	registry, err := adapter.NewRegistry(adapter.Builtin(&cfg)...)
	if err != nil {
		logger.Fatal("Could not build source registry: %v", err)
	}

	engine := upsert.NewEngine(catalogStore)
	runner := ingest.NewRunner(
		registry,
		orchestrator.New(extract.NewEngine(chrome), normalize.New(registry), cfg.SourceTimeout),
		engine,
	)

	switch command() {
	case "scrape":
		runOnce(runner, engine, ingest.ProvenanceStructured)
	case "scrape-aggregator":
		if !cfg.AggregatorEnabled {
			logger.Fatal("Aggregator scraping is disabled (SCRAPE_AGGREGATOR_ENABLED=false)")
		}
		runOnce(runner, engine, ingest.ProvenanceAggregator)
	case "":
		serve(cfg, catalogStore, engine, runner)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [scrape|scrape-aggregator]\n", os.Args[0])
		os.Exit(2)
	}
}

func command() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return ""
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemory(), nil
	default:
		return store.OpenBadger(cfg.StorePath)
	}
}

// runOnce executes a single manual scrape. Failed manual runs get their own
// audit row here because the runner only records successful ones.
func runOnce(runner *ingest.Runner, engine *upsert.Engine, provenance string) {
	ctx := context.Background()
	startedAt := time.Now()

	summary, err := runner.Run(ctx, provenance)
	if err != nil {
		logErr := engine.Log(ctx, ingest.ScopeAll, provenance, 0, 0, err.Error(), startedAt, time.Now(), false)
		if logErr != nil {
			logger.Error("Could not record failed run: %v", logErr)
		}
		logger.Fatal("Scrape failed: %v", err)
	}

	logger.Info("Scrape finished: %d found, %d created, %d upserted, %d sources failed",
		summary.Found, summary.Created, summary.Upserted, len(summary.Failures))
}

func serve(cfg config.Config, catalogStore store.Store, engine *upsert.Engine, runner *ingest.Runner) {
	sched := scheduler.New(catalogStore, engine)

	jobs := []scheduler.Job{
		{
			ID:           "structured-refresh",
			DisplayName:  "Structured retailer refresh",
			Provenance:   ingest.ProvenanceStructured,
			Interval:     cfg.RefreshInterval,
			StartupDelay: cfg.StructuredStartupDelay,
			MisfireGrace: cfg.MisfireGrace,
			Work: func(ctx context.Context) error {
				_, err := runner.Run(ctx, ingest.ProvenanceStructured)
				return err
			},
		},
	}
	if cfg.AggregatorEnabled {
		jobs = append(jobs, scheduler.Job{
			ID:           "aggregator-refresh",
			DisplayName:  "Shopping aggregator refresh",
			Provenance:   ingest.ProvenanceAggregator,
			Interval:     2 * cfg.RefreshInterval,
			StartupDelay: cfg.AggregatorStartupDelay,
			MisfireGrace: cfg.MisfireGrace,
			Work: func(ctx context.Context) error {
				_, err := runner.Run(ctx, ingest.ProvenanceAggregator)
				return err
			},
		})
	}

	for _, job := range jobs {
		if err := sched.Schedule(job); err != nil {
			logger.Fatal("Could not schedule %s: %v", job.ID, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	logger.Info("Price catalog worker started (%s environment)", cfg.Environment)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("Received %s, shutting down", sig)
	cancel()
	sched.Shutdown()
}
