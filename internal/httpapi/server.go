// Package httpapi exposes stored filings, triggers and search over HTTP.
package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/observability"
	"insider-pipeline/internal/orchestrator"
	"insider-pipeline/internal/query"
	"insider-pipeline/internal/storage"
)

// JobRunner triggers ingestion jobs. *orchestrator.Orchestrator implements it.
type JobRunner interface {
	RunWithFilter(ctx context.Context, job orchestrator.Job, filter domain.RowFilter) (*orchestrator.Summary, error)
}

// Searcher answers similarity queries. *query.Searcher implements it.
type Searcher interface {
	Search(ctx context.Context, question, date string) (*query.SearchResult, error)
}

// Deps are the collaborators of the API. Nil optional fields disable their routes.
type Deps struct {
	Unified          storage.UnifiedInsiderStore
	BulkDeals        storage.BulkDealStore
	CorporateActions storage.CorporateActionStore
	Subscribers      storage.SubscriberStore // optional
	Jobs             JobRunner               // optional
	Searcher         Searcher                // optional
	Feed             *Feed                   // optional

	CronSecret  string
	MetricsPath string                          // default: /metrics
	Ready       func(ctx context.Context) error // optional readiness check
	Clock       func() time.Time                // default: time.Now
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger.Named("http")))

	h := &handler{deps: deps, logger: deps.Logger.Named("http")}
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
	r.GET(deps.MetricsPath, gin.WrapH(observability.Handler()))

	api := r.Group("/api")
	api.GET("/insider/recent", h.recentInsider)
	api.GET("/insider", h.listInsider)
	api.GET("/insider/scrip/:code", h.insiderByScrip)
	api.GET("/insider/:id", h.insiderByID)
	api.GET("/bulk-deals", h.listBulkDeals)
	api.GET("/corporate-actions/upcoming", h.upcomingCorporateActions)
	api.POST("/cron/:job", h.requireCronSecret, h.triggerJob)
	api.POST("/ai/query", h.aiQuery)
	api.POST("/subscribers", h.upsertSubscriber)

	if deps.Feed != nil {
		r.GET("/ws/feed", deps.Feed.Handle)
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
