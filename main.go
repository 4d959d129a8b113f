package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"airbnb-similarity/api"
	"airbnb-similarity/config"
	"airbnb-similarity/embedding"
	"airbnb-similarity/models"
	"airbnb-similarity/services"
	"airbnb-similarity/storage"
	"airbnb-similarity/utils"
)

const usage = `usage: airbnb-similarity [-config file.yaml] <command>

commands:
  load    clean the raw listings CSV and upsert it into the store
  run     embed, cluster and store similar-listing sets for every listing
  serve   start the query API
`

func main() {
	flags := flag.NewFlagSet("airbnb-similarity", flag.ExitOnError)
	configPath := flags.String("config", "", "optional YAML config file (overrides CONFIG_FILE)")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd := flags.Arg(0); cmd {
	case "load":
		err = runLoad(ctx, cfg, logger)
	case "run":
		err = runPipeline(ctx, cfg, logger)
	case "serve":
		err = runServe(ctx, cfg, logger)
	default:
		flags.Usage()
		stop()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		logger.Info("Connecting to PostgreSQL at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
		return storage.NewPostgresStore(ctx, cfg.DSN(), logger)
	default:
		logger.Info("Opening SQLite database %s", cfg.SQLitePath)
		return storage.NewSQLiteStore(ctx, cfg.SQLitePath)
	}
}

func runLoad(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Loading listings from %s ===", cfg.InputCSVPath)

	ds, err := storage.NewCSVReader(cfg.InputCSVPath).Read()
	if err != nil {
		return err
	}
	logger.Info("Read %d raw rows (%d columns)", len(ds.Rows), len(ds.Columns))

	res, err := services.NewCleaner(logger).Clean(ds)
	if err != nil {
		return err
	}
	if len(res.Listings) == 0 {
		return fmt.Errorf("all %d rows were dropped during cleaning", len(ds.Rows))
	}
	logger.Info("Cleaned dataset: %d listings", len(res.Listings))

	if cfg.CleanedCSVPath != "" {
		if err := writeCSV(cfg.CleanedCSVPath, models.RequiredColumns, res.Listings); err != nil {
			return err
		}
		logger.Info("Cleaned listings saved to %s", cfg.CleanedCSVPath)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.UpsertAll(ctx, res.Listings); err != nil {
		return err
	}
	logger.Info("Stored %d listings (%s)", len(res.Listings), cfg.StoreDriver)
	return nil
}

func runPipeline(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	p := cfg.Pipeline
	logger.Info("=== Similar listings run: mode %s ===", p.Mode)
	logger.Info("Config: threshold %.2f | min_samples %d | min_cluster_size %d | reduction %v | weights %v",
		p.SimilarityThreshold, p.MinSamples, p.MinClusterSize, p.UseReduction, p.FusionWeights.Slice())

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := embedding.Open(ctx, cfg.Embedding, logger)
	if err != nil {
		return err
	}
	gen := embedding.NewGenerator(embedder, embedding.GeneratorOptions{
		BatchSize:   cfg.Embedding.BatchSize,
		Concurrency: cfg.Embedding.Concurrency,
		RateLimitMs: cfg.Embedding.RateLimitMs,
	}, logger)

	pipeline, err := services.NewPipeline(store, gen, p, logger)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.OutputCSVPath != "" {
		if err := writeCSV(cfg.OutputCSVPath, models.ClusteredColumns, res.Listings); err != nil {
			return err
		}
		logger.Info("Clustered listings saved to %s", cfg.OutputCSVPath)
	}

	services.NewInsightService(logger).Print(res.Report)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return api.NewServer(cfg.APIAddr, services.NewQueryService(store), logger).ListenAndServe(ctx)
}

func writeCSV(path string, columns []string, listings []*models.Listing) error {
	w, err := storage.NewCSVWriter(path, columns)
	if err != nil {
		return err
	}
	if err := w.Write(listings); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
