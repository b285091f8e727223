// Package query answers similarity searches over the date-partitioned vector index.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/normalize"
	"insider-pipeline/internal/observability"
	"insider-pipeline/internal/unify"
)

// DefaultLookbackDays is how far back ResolveNamespace walks from today.
const DefaultLookbackDays = 7

// StatsSource reports per-namespace record counts.
type StatsSource interface {
	DescribeStats(ctx context.Context) (*domain.IndexStats, error)
}

// Resolver picks the namespace a query should run against.
type Resolver struct {
	stats    StatsSource
	lookback int
	clock    func() time.Time
	logger   *zap.Logger
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	LookbackDays int              // default: DefaultLookbackDays
	Clock        func() time.Time // default: time.Now
	Logger       *zap.Logger
}

// NewResolver creates a namespace resolver.
func NewResolver(stats StatsSource, opts ResolverOptions) *Resolver {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = DefaultLookbackDays
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Resolver{
		stats:    stats,
		lookback: opts.LookbackDays,
		clock:    opts.Clock,
		logger:   opts.Logger.Named("query"),
	}
}

// ResolveNamespace returns the explicit date's namespace when it holds
// records, otherwise the most recent non-empty namespace from today back
// through the lookback window, in market time. Stats are read once per call.
// ok is false when nothing in range has data.
func (r *Resolver) ResolveNamespace(ctx context.Context, explicitDate string) (string, bool, error) {
	stats, err := r.stats.DescribeStats(ctx)
	if err != nil {
		observability.RecordNamespaceResolution("error")
		return "", false, fmt.Errorf("describe index stats: %w", err)
	}

	if date := strings.TrimSpace(explicitDate); date != "" {
		ns := unify.Namespace(date)
		if hasRecords(stats, ns) {
			observability.RecordNamespaceResolution("explicit")
			return ns, true, nil
		}
		r.logger.Warn("requested namespace is empty, falling back to recent dates", zap.String("namespace", ns))
	}

	today := r.clock().In(normalize.MarketLocation)
	for daysBack := 0; daysBack <= r.lookback; daysBack++ {
		ns := unify.Namespace(normalize.MarketDay(today.AddDate(0, 0, -daysBack)))
		if hasRecords(stats, ns) {
			observability.RecordNamespaceResolution("fallback")
			r.logger.Debug("resolved namespace", zap.String("namespace", ns), zap.Int("days_back", daysBack))
			return ns, true, nil
		}
	}

	observability.RecordNamespaceResolution("none")
	r.logger.Warn("no namespace with data in lookback window",
		zap.Int("lookback_days", r.lookback),
		zap.Int("namespaces", len(stats.Namespaces)),
	)
	return "", false, nil
}

func hasRecords(stats *domain.IndexStats, ns string) bool {
	if stats == nil {
		return false
	}
	s, ok := stats.Namespaces[ns]
	return ok && s.RecordCount > 0
}
