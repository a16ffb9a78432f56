package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-extractor/internal/batch"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/anthropic"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdf"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/store"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of PDF invoices to process (required)")
		out      = flag.String("out", "output", "output directory for JSON files and the database")
		dbDSN    = flag.String("db", "", "relational sink DSN (postgres:// URL or SQLite path; default <out>/invoices.db)")
		xlsxPath = flag.String("xlsx", "", "also write an XLSX workbook to this path")
		workers  = flag.Int("workers", 0, "batch extraction workers (default from BATCH_WORKERS)")
		provider = flag.String("provider", "", "LLM provider: openai or anthropic (default from LLM_PROVIDER)")
		jsonOnly = flag.Bool("json-only", false, "skip the relational sink, write JSON files only")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	if *provider != "" {
		cfg.LLM.Provider = *provider
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if *dbDSN != "" {
		cfg.Store.DSN = *dbDSN
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Error("failed to create output directory", "dir", *out, "error", err)
		os.Exit(1)
	}

	// Relational sink (skipped with -json-only).
	var st *store.Store
	if !*jsonOnly {
		if cfg.Store.DSN == "" {
			cfg.Store.DSN = filepath.Join(*out, "invoices.db")
		}
		var err error
		st, err = store.Open(ctx, cfg.Store, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Warn("store close error", "error", err)
			}
		}()
		if err := st.Init(ctx); err != nil {
			logger.Error("failed to initialize store schema", "error", err)
			os.Exit(1)
		}
	}

	// LLM backend adapter.
	var extractor llm.Extractor
	switch cfg.LLM.Provider {
	case "anthropic":
		extractor = anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	default:
		extractor = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			Endpoint:    cfg.LLM.Endpoint,
			Deployment:  cfg.LLM.Deployment,
			APIVersion:  cfg.LLM.APIVersion,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	}
	logger.Info("LLM client initialized", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	engine := batch.NewEngine(extractor, logger,
		batch.WithWorkers(cfg.Batch.Workers),
		batch.WithMaxRetries(cfg.Batch.MaxRetries),
		batch.WithBackoff(cfg.Batch.Backoff),
	)
	processor := pipeline.NewProcessor(pdf.NewExtractor(logger), engine, st, logger)

	report, err := processor.ProcessDirectory(ctx, *dir, *out)
	if err != nil {
		logger.Error("processing failed", "error", err)
		os.Exit(1)
	}

	if *xlsxPath != "" {
		wb, err := export.NewService(logger).Workbook(report.RowSets)
		if err != nil {
			logger.Error("failed to build workbook", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, wb, 0o644); err != nil {
			logger.Error("failed to write workbook", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents processed: %d\n", len(report.Documents))
	fmt.Printf("- Succeeded: %d\n", report.Succeeded)
	fmt.Printf("- Failed: %d\n", report.Failed)
	for _, d := range report.Documents {
		if d.Outcome != pipeline.OutcomeOK {
			fmt.Printf("  %s: %s (%v)\n", filepath.Base(d.Source), d.Outcome, d.Err)
		}
	}
	fmt.Printf("- Output: %s\n", *out)

	if report.Failed > 0 {
		os.Exit(1)
	}
}
