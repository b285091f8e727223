// Package app wires configuration into the running pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"insider-pipeline/internal/config"
	"insider-pipeline/internal/dedup"
	"insider-pipeline/internal/embedding"
	"insider-pipeline/internal/ingestion"
	"insider-pipeline/internal/notify"
	"insider-pipeline/internal/orchestrator"
	"insider-pipeline/internal/query"
	"insider-pipeline/internal/scrape"
	"insider-pipeline/internal/storage"
	chstore "insider-pipeline/internal/storage/clickhouse"
	"insider-pipeline/internal/storage/memory"
	"insider-pipeline/internal/storage/migrations"
	pgstore "insider-pipeline/internal/storage/postgres"
)

// Stores groups every store the pipeline reads or writes.
type Stores struct {
	Legacy           storage.LegacyInsiderStore
	Unified          storage.UnifiedInsiderStore
	BulkDeals        storage.BulkDealStore
	CorporateActions storage.CorporateActionStore
	Subscribers      storage.SubscriberStore
	Vectors          storage.VectorStore
}

// App is a fully wired pipeline.
type App struct {
	Stores       Stores
	Runner       *ingestion.Runner
	Orchestrator *orchestrator.Orchestrator
	Dispatcher   *notify.Dispatcher
	Searcher     *query.Searcher // nil when embedding is disabled

	pool    *pgstore.Pool
	ch      *chstore.Conn
	closers []func() error
	logger  *zap.Logger
}

// Options tweak Build for a particular binary.
type Options struct {
	// UseMemory forces in-memory stores regardless of storage.driver.
	UseMemory bool
	// Channels are extra notification channels, such as the websocket feed.
	Channels []notify.Channel
}

// Build connects storage and assembles the pipeline. Call Close when done.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger}

	if err := a.openStores(ctx, cfg, opts.UseMemory); err != nil {
		a.Close()
		return nil, err
	}

	mode, err := dedup.ParseIdentityMode(cfg.Dedup.UnifiedIdentity)
	if err != nil {
		a.Close()
		return nil, err
	}
	gate := dedup.NewGate(a.Stores.Legacy, a.Stores.Unified, mode)

	client := scrape.NewClient(
		scrape.WithTimeout(cfg.Scrape.Timeout),
		scrape.WithMaxRetries(cfg.Scrape.MaxRetries),
		scrape.WithRateLimit(cfg.Scrape.RatePerSecond, cfg.Scrape.Burst),
		scrape.WithUserAgent(cfg.Scrape.UserAgent),
		scrape.WithLogger(logger),
	)

	a.Dispatcher = notify.NewDispatcher(a.Stores.Unified, logger)
	a.addChannels(cfg.Notify)
	for _, ch := range opts.Channels {
		a.Dispatcher.Add(ch)
	}

	runnerOpts := ingestion.RunnerOptions{
		Sources: []ingestion.InsiderSource{
			scrape.NewBSEInsiderSource(client, cfg.Scrape.BSEInsiderURL),
			scrape.NewNSEInsiderSource(client, cfg.Scrape.NSEInsiderURL),
		},
		BulkDealSource:        scrape.NewBulkDealSource(client, cfg.Scrape.BSEBulkDealsURL),
		CorporateActionSource: scrape.NewCorporateActionSource(client, cfg.Scrape.BSECorporateActionsURL),
		Gate:                  gate,
		UnifiedStore:          a.Stores.Unified,
		BulkDealStore:         a.Stores.BulkDeals,
		CorporateActionStore:  a.Stores.CorporateActions,
		Notifier:              a.Dispatcher,
		Logger:                logger,
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		a.Close()
		return nil, err
	}
	if embedder != nil {
		vs := newVectorSearch(embedder, a.Stores.Vectors, cfg.Query, nil, logger)
		runnerOpts.Indexer = vs.batcher
		a.Searcher = vs.searcher
	}

	a.Runner = ingestion.NewRunner(runnerOpts)
	a.Orchestrator = orchestrator.New(orchestrator.Options{
		Runner:     a.Runner,
		RunTimeout: cfg.Cron.RunTimeout,
		Logger:     logger,
	})

	logger.Info("pipeline wired",
		zap.String("storage", storageName(a)),
		zap.String("identity", string(mode)),
		zap.Strings("channels", a.Dispatcher.Channels()),
		zap.Bool("embedding", embedder != nil),
	)
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg config.Config, useMemory bool) error {
	a.Stores.Vectors = memory.NewVectorStore()

	if useMemory || cfg.Storage.Driver == "memory" {
		a.Stores.Legacy = memory.NewLegacyInsiderStore()
		a.Stores.Unified = memory.NewUnifiedInsiderStore()
		a.Stores.BulkDeals = memory.NewBulkDealStore()
		a.Stores.CorporateActions = memory.NewCorporateActionStore()
		a.Stores.Subscribers = memory.NewSubscriberStore()
		return nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return err
	}
	a.pool = pool
	if cfg.Storage.RunMigrations {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
	}
	a.Stores.Legacy = pgstore.NewLegacyInsiderStore(pool)
	a.Stores.Unified = pgstore.NewUnifiedInsiderStore(pool)
	a.Stores.BulkDeals = pgstore.NewBulkDealStore(pool)
	a.Stores.CorporateActions = pgstore.NewCorporateActionStore(pool)
	a.Stores.Subscribers = pgstore.NewSubscriberStore(pool)

	if cfg.Storage.ClickHouseDSN == "" {
		return nil
	}
	var conn *chstore.Conn
	if cfg.Storage.RunMigrations {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
	}
	if err != nil {
		return fmt.Errorf("clickhouse: %w", err)
	}
	a.ch = conn
	a.Stores.Vectors = chstore.NewVectorStore(conn)
	return nil
}

func (a *App) addChannels(cfg config.NotifyConfig) {
	if cfg.Email.Enabled {
		a.Dispatcher.Add(notify.NewEmailChannel(cfg.Email.Domain, cfg.Email.APIKey, cfg.Email.Sender, a.Stores.Subscribers, a.logger))
	}
	if cfg.Webhook.URL != "" {
		a.Dispatcher.Add(notify.WebhookChannel{URL: cfg.Webhook.URL})
	}
	if cfg.Redis.Addr != "" {
		rc := notify.NewRedisChannel(cfg.Redis.Addr, cfg.Redis.Channel)
		a.Dispatcher.Add(rc)
		a.closers = append(a.closers, rc.Close)
	}
}

type vectorSearch struct {
	batcher  *embedding.Batcher
	resolver *query.Resolver
	searcher *query.Searcher
}

// newVectorSearch shares one stats cache between the resolver and the
// batcher, which clears it after every upsert.
func newVectorSearch(embedder embedding.Embedder, vectors storage.VectorStore, cfg config.QueryConfig, clock func() time.Time, logger *zap.Logger) *vectorSearch {
	stats := query.NewCachedStats(vectors, cfg.StatsTTL)
	batcher := embedding.NewBatcher(embedder, vectors, logger)
	batcher.OnIndexed(func(string, int) { stats.Invalidate() })

	resolver := query.NewResolver(stats, query.ResolverOptions{
		LookbackDays: cfg.LookbackDays,
		Clock:        clock,
		Logger:       logger,
	})
	return &vectorSearch{
		batcher:  batcher,
		resolver: resolver,
		searcher: query.NewSearcher(embedder, resolver, vectors, cfg.TopK),
	}
}

func newEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	if !cfg.Enabled || cfg.Provider == "none" {
		return nil, nil
	}
	switch cfg.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding.provider %q", cfg.Provider)
	}
}

// Ready pings the external databases, if any.
func (a *App) Ready(ctx context.Context) error {
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.ch != nil {
		if err := a.ch.Ping(ctx); err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
	}
	return nil
}

// Close releases connections. It is safe on a partially built App.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	if a.ch != nil {
		errs = append(errs, a.ch.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}

func storageName(a *App) string {
	switch {
	case a.pool != nil && a.ch != nil:
		return "postgres+clickhouse"
	case a.pool != nil:
		return "postgres"
	default:
		return "memory"
	}
}
