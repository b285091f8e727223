// Package main runs one ingestion pass and prints the summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"insider-pipeline/internal/app"
	"insider-pipeline/internal/config"
	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/logger"
	"insider-pipeline/internal/orchestrator"
)

func main() {
	source := flag.String("source", "all", "Job to run: bse_insider, nse_insider, bse_bulk_deals, bse_corporate_actions, reindex_vectors or all")
	configPath := flag.String("config", "config.yaml", "Path to YAML config (missing file means env only)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of storage.driver")
	scrip := flag.String("scrip", "", "Restrict insider scrapes to one scrip code or symbol")
	flag.Parse()

	job, err := orchestrator.ParseJob(*source)
	if err != nil {
		log.Fatalf("invalid -source: %v", err)
	}

	_, statErr := os.Stat(*configPath)
	cfg, err := config.Load(*configPath, statErr != nil)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.Build(ctx, cfg, zlog, app.Options{UseMemory: *useMemory})
	if err != nil {
		zlog.Fatal("build pipeline", zap.Error(err))
	}
	defer func() { _ = pipeline.Close() }()

	summary, runErr := pipeline.Orchestrator.RunWithFilter(ctx, job, domain.RowFilter{ScripCode: *scrip})
	if summary != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			zlog.Error("encode summary", zap.Error(err))
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		zlog.Error("ingestion failed", zap.String("job", string(job)), zap.Error(runErr))
		_ = pipeline.Close()
		os.Exit(1)
	}
}
