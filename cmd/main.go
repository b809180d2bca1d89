package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AIRpwnz/b2purge/config"
	"github.com/AIRpwnz/b2purge/logger"
	"github.com/AIRpwnz/b2purge/model"
	"github.com/AIRpwnz/b2purge/purge"
	"github.com/AIRpwnz/b2purge/storage"
)

func main() {
	// Define CLI flags
	var (
		// General flags
		dryRun   = flag.Bool("dry-run", false, "Report what would be deleted without deleting anything (env: DRY_RUN)")
		logLevel = flag.String("log-level", "", "Log level: silent, error, info, debug, verbose (env: LOG_LEVEL)")

		// Storage flags
		bucket    = flag.String("bucket", "", "B2 bucket name (env: B2_BUCKET)")
		endpoint  = flag.String("endpoint", "", "S3-compatible endpoint URL (env: B2_ENDPOINT)")
		region    = flag.String("region", "", "Endpoint region (env: B2_REGION)")
		maxRPS    = flag.Int("max-rps", 0, "Max requests per second to storage (0 = no limit) (env: STORAGE_MAX_RPS)")
		timeout   = flag.Int("timeout", 0, "Storage request timeout in seconds (env: STORAGE_TIMEOUT_SECONDS)")

		// Purge flags
		prefix    = flag.String("prefix", "", "Folder path inside the bucket (env: PURGE_PREFIX)")
		days      = flag.Int("days", 0, "Delete versions older than this many days (env: PURGE_RETENTION_DAYS)")
		workers   = flag.Int("workers", 0, "Number of concurrent delete workers (env: PURGE_WORKER_COUNT)")
		batchSize = flag.Int("batch-size", 0, "Candidates per batch (env: PURGE_BATCH_SIZE)")

		// General flags
		showHelp = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// Load base configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config from environment: %v\n", err)
		os.Exit(1)
	}

	// Override with CLI flags if provided
	if flag.Lookup("dry-run").Value.String() == "true" {
		cfg.DryRun = *dryRun
	}
	if *logLevel != "" {
		cfg.Logger.Level = config.LogLevel(*logLevel)
	}
	if *bucket != "" {
		cfg.Storage.B2.Bucket = *bucket
	}
	if *endpoint != "" {
		cfg.Storage.B2.Endpoint = *endpoint
	}
	if *region != "" {
		cfg.Storage.B2.Region = *region
	}
	if *maxRPS > 0 {
		cfg.Storage.Common.MaxRPS = *maxRPS
	}
	if *timeout > 0 {
		cfg.Storage.Common.TimeoutSeconds = *timeout
	}
	if *prefix != "" {
		cfg.Purge.Prefix = *prefix
	}
	if *days > 0 {
		cfg.Purge.RetentionDays = *days
	}
	if *workers > 0 {
		cfg.Purge.WorkerCount = *workers
	}
	if *batchSize > 0 {
		cfg.Purge.BatchSize = *batchSize
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(&cfg.Logger)
	log.Info("Starting B2 retention purge")
	log.Debug("Configuration loaded and validated")

	// Initialize storage
	log.Debug("Initializing storage...")
	storageProvider, err := storage.CreateStorage(&cfg.Storage)
	if err != nil {
		log.Error("Failed to create storage: %v", err)
		os.Exit(1)
	}
	log.Info("Storage initialized: type=%s, bucket=%s", cfg.Storage.StorageType, cfg.Storage.B2.Bucket)

	if cfg.DryRun {
		log.Info("Running in DRY-RUN mode - no versions will be deleted")
	}
	runner := purge.NewRunner(storageProvider, &cfg.Purge, log, cfg.DryRun)

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Run purge in a goroutine
	type result struct {
		stats *model.RunStats
		err   error
	}
	resChan := make(chan result, 1)
	go func() {
		stats, err := runner.Run(ctx)
		resChan <- result{stats: stats, err: err}
	}()

	// Wait for completion or interruption
	var res result
	select {
	case res = <-resChan:
	case sig := <-sigChan:
		log.Info("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
		res = <-resChan
	}

	if res.err != nil {
		log.Error("Purge failed: %v", res.err)
		os.Exit(1)
	}
	if res.stats != nil && res.stats.Failed() {
		// Completed, but some versions could not be deleted.
		os.Exit(2)
	}
}

func printHelp() {
	fmt.Println("B2 Retention Purge Tool")
	fmt.Println()
	fmt.Println("Usage: b2purge [options]")
	fmt.Println()
	fmt.Println("Deletes object versions older than the retention period from a folder")
	fmt.Println("in a Backblaze B2 bucket (via the S3-compatible API).")
	fmt.Println()
	fmt.Println("Configuration can be provided via environment variables or command-line flags.")
	fmt.Println("Command-line flags take precedence over environment variables.")
	fmt.Println("Credentials are read from the environment only.")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Example:")
	fmt.Println("  b2purge --bucket=my-backups --prefix=daily --days=30 --dry-run")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  B2_APPLICATION_KEY_ID    - B2 application key id (required)")
	fmt.Println("  B2_APPLICATION_KEY       - B2 application key (required)")
	fmt.Println("  B2_BUCKET                - B2 bucket name")
	fmt.Println("  B2_ENDPOINT              - S3-compatible endpoint URL")
	fmt.Println("  B2_REGION                - Endpoint region")
	fmt.Println("  PURGE_PREFIX             - Folder path inside the bucket")
	fmt.Println("  PURGE_RETENTION_DAYS     - Delete versions older than this many days")
	fmt.Println("  PURGE_WORKER_COUNT       - Number of concurrent delete workers")
	fmt.Println("  PURGE_BATCH_SIZE         - Candidates per batch")
	fmt.Println("  STORAGE_MAX_RPS          - Max requests per second to storage (0 = no limit)")
	fmt.Println("  STORAGE_TIMEOUT_SECONDS  - Storage request timeout in seconds")
	fmt.Println("  DRY_RUN                  - Run in dry-run mode (true/false)")
	fmt.Println("  LOG_LEVEL                - Log level (silent, error, info, debug, verbose)")
	fmt.Println()
	fmt.Println("Exit codes: 0 = success, 1 = fatal error, 2 = completed with failed deletions")
}
