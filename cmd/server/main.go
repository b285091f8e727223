// Package main runs the long-lived service: scheduled scrapes, the HTTP API
// and the live websocket feed.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"insider-pipeline/internal/app"
	"insider-pipeline/internal/config"
	"insider-pipeline/internal/cronrunner"
	"insider-pipeline/internal/httpapi"
	"insider-pipeline/internal/logger"
	"insider-pipeline/internal/notify"
	"insider-pipeline/internal/orchestrator"
)

func main() {
	loadEnvFile(".env")

	configPath := flag.String("config", "config.yaml", "Path to YAML config (missing file means env only)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of storage.driver")
	flag.Parse()

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

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var channels []notify.Channel
	var feed *httpapi.Feed
	if cfg.Notify.Feed.Enabled {
		feed = httpapi.NewFeed(nil, zlog)
		channels = append(channels, feed)
	}

	pipeline, err := app.Build(ctx, cfg, zlog, app.Options{UseMemory: *useMemory, Channels: channels})
	if err != nil {
		zlog.Fatal("build pipeline", zap.Error(err))
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			zlog.Warn("close pipeline", zap.Error(err))
		}
	}()

	scheduler := cronrunner.New(zlog, ctx)
	if cfg.Cron.Enabled {
		schedule(scheduler, pipeline.Orchestrator, cfg.Cron, zlog)
		scheduler.Start()
		zlog.Info("cron started", zap.Int("entries", scheduler.Entries()))
	}

	deps := httpapi.Deps{
		Unified:          pipeline.Stores.Unified,
		BulkDeals:        pipeline.Stores.BulkDeals,
		CorporateActions: pipeline.Stores.CorporateActions,
		Subscribers:      pipeline.Stores.Subscribers,
		Jobs:             pipeline.Orchestrator,
		Feed:             feed,
		CronSecret:       cfg.Cron.Secret,
		MetricsPath:      cfg.Server.MetricsPath,
		Ready:            pipeline.Ready,
		Logger:           zlog,
	}
	if pipeline.Searcher != nil {
		deps.Searcher = pipeline.Searcher
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("http server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zlog.Info("shutdown signal received")
	case err := <-errCh:
		zlog.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scheduler.Stop()
	if feed != nil {
		feed.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown", zap.Error(err))
	}
	zlog.Info("shutdown complete")
}

// schedule registers one cron entry per job. Empty specs stay disabled.
func schedule(r *cronrunner.Runner, orch *orchestrator.Orchestrator, cfg config.CronConfig, zlog *zap.Logger) {
	specs := map[orchestrator.Job]string{
		orchestrator.JobBSEInsider:          cfg.BSEInsider,
		orchestrator.JobNSEInsider:          cfg.NSEInsider,
		orchestrator.JobBSEBulkDeals:        cfg.BSEBulkDeals,
		orchestrator.JobBSECorporateActions: cfg.BSECorporateActions,
		orchestrator.JobReindexVectors:      cfg.ReindexVectors,
	}
	for _, job := range orchestrator.AllJobs() {
		_, err := r.Add(string(job), specs[job], func(ctx context.Context) {
			summary, err := orch.Run(ctx, job)
			if err != nil {
				zlog.Warn("scheduled run failed", zap.String("job", string(job)), zap.Error(err))
				return
			}
			zlog.Info("scheduled run done",
				zap.String("job", string(job)),
				zap.Int("inserted", summary.Inserted),
				zap.Int("skipped", summary.Skipped),
			)
		})
		if err != nil {
			zlog.Fatal("invalid cron spec", zap.String("job", string(job)), zap.Error(err))
		}
	}
}

// loadEnvFile loads variables from path if present. Existing variables win.
func loadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load %s: %v", path, err)
	}
}
