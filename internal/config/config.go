// Package config loads service configuration from YAML and INSIDER_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Query     QueryConfig     `mapstructure:"query"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Cron      CronConfig      `mapstructure:"cron"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"` // memory | postgres
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
	RunMigrations bool   `mapstructure:"run_migrations"`
}

type ScrapeConfig struct {
	BSEInsiderURL          string        `mapstructure:"bse_insider_url"`
	NSEInsiderURL          string        `mapstructure:"nse_insider_url"`
	BSEBulkDealsURL        string        `mapstructure:"bse_bulk_deals_url"`
	BSECorporateActionsURL string        `mapstructure:"bse_corporate_actions_url"`
	UserAgent              string        `mapstructure:"user_agent"`
	Timeout                time.Duration `mapstructure:"timeout"`
	MaxRetries             int           `mapstructure:"max_retries"`
	RatePerSecond          float64       `mapstructure:"rate_per_second"`
	Burst                  int           `mapstructure:"burst"`
}

type DedupConfig struct {
	UnifiedIdentity string `mapstructure:"unified_identity"` // full | scrip_quantity
}

type EmbeddingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Provider   string `mapstructure:"provider"` // openai | none
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int64  `mapstructure:"dimensions"`
}

type QueryConfig struct {
	LookbackDays int           `mapstructure:"lookback_days"`
	TopK         int           `mapstructure:"top_k"`
	StatsTTL     time.Duration `mapstructure:"stats_ttl"`
}

type NotifyConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Feed    FeedConfig    `mapstructure:"feed"`
}

type EmailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Domain  string `mapstructure:"domain"`
	APIKey  string `mapstructure:"api_key"`
	Sender  string `mapstructure:"sender"`
}

type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel"`
}

type FeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type CronConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	BSEInsider          string        `mapstructure:"bse_insider"`
	NSEInsider          string        `mapstructure:"nse_insider"`
	BSEBulkDeals        string        `mapstructure:"bse_bulk_deals"`
	BSECorporateActions string        `mapstructure:"bse_corporate_actions"`
	ReindexVectors      string        `mapstructure:"reindex_vectors"`
	Secret              string        `mapstructure:"secret"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INSIDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.metrics_path", "/metrics")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.run_migrations", true)
	v.SetDefault("scrape.bse_insider_url", "https://www.bseindia.com/corporates/Insider_Trading_new.aspx?expandable=2")
	v.SetDefault("scrape.nse_insider_url", "https://www.nseindia.com/companies-listing/corporate-filings-insider-trading")
	v.SetDefault("scrape.bse_bulk_deals_url", "https://www.bseindia.com/markets/equity/EQReports/bulk_deals.aspx")
	v.SetDefault("scrape.bse_corporate_actions_url", "https://www.bseindia.com/corporates/corporates_act.html")
	v.SetDefault("scrape.user_agent", "")
	v.SetDefault("scrape.timeout", "30s")
	v.SetDefault("scrape.max_retries", 3)
	v.SetDefault("scrape.rate_per_second", 1.0)
	v.SetDefault("scrape.burst", 2)
	v.SetDefault("dedup.unified_identity", "full")
	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("query.lookback_days", 7)
	v.SetDefault("query.top_k", 10)
	v.SetDefault("query.stats_ttl", "30s")
	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.domain", "")
	v.SetDefault("notify.email.api_key", "")
	v.SetDefault("notify.email.sender", "")
	v.SetDefault("notify.webhook.url", "")
	v.SetDefault("notify.redis.addr", "")
	v.SetDefault("notify.redis.channel", "insider:new")
	v.SetDefault("notify.feed.enabled", true)
	v.SetDefault("cron.enabled", false)
	v.SetDefault("cron.bse_insider", "0 */30 9-18 * * MON-FRI")
	v.SetDefault("cron.nse_insider", "0 5,35 9-18 * * MON-FRI")
	v.SetDefault("cron.bse_bulk_deals", "0 0 19 * * MON-FRI")
	v.SetDefault("cron.bse_corporate_actions", "0 0 7 * * *")
	v.SetDefault("cron.reindex_vectors", "")
	v.SetDefault("cron.secret", "")
	v.SetDefault("cron.run_timeout", "5m")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for driver postgres")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Dedup.UnifiedIdentity {
	case "full", "scrip_quantity":
	default:
		return fmt.Errorf("unknown dedup.unified_identity %q", c.Dedup.UnifiedIdentity)
	}

	if c.Embedding.Enabled && c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required when embedding is enabled")
	}
	return nil
}
