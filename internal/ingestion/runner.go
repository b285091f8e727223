// Package ingestion runs one scrape-to-storage pass per source:
// fetch, unify, dedup on both tracks, persist, then fan out.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"insider-pipeline/internal/dedup"
	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/normalize"
	"insider-pipeline/internal/observability"
	"insider-pipeline/internal/storage"
	"insider-pipeline/internal/unify"
	"insider-pipeline/internal/validation"
)

// Runner executes ingestion runs. Rows within a run are processed
// sequentially; runs for different sources may execute concurrently.
type Runner struct {
	sources    map[domain.Exchange]InsiderSource
	bulkSource BulkDealSource
	corpSource CorporateActionSource

	gate      *dedup.Gate
	unified   storage.UnifiedInsiderStore
	validator *validation.RecordValidator
	bulkStore storage.BulkDealStore
	corpStore storage.CorporateActionStore

	notifier Notifier
	indexer  Indexer

	onTransition TransitionFunc
	clock        func() time.Time
	logger       *zap.Logger

	mu     sync.Mutex
	states map[string]State
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Sources               []InsiderSource
	BulkDealSource        BulkDealSource
	CorporateActionSource CorporateActionSource

	Gate                 *dedup.Gate
	UnifiedStore         storage.UnifiedInsiderStore // read by RunReindex
	BulkDealStore        storage.BulkDealStore
	CorporateActionStore storage.CorporateActionStore

	Notifier Notifier // optional
	Indexer  Indexer  // optional

	OnTransition TransitionFunc   // optional
	Clock        func() time.Time // default: time.Now
	Logger       *zap.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sources := make(map[domain.Exchange]InsiderSource, len(opts.Sources))
	for _, s := range opts.Sources {
		sources[s.Exchange()] = s
	}

	return &Runner{
		sources:      sources,
		bulkSource:   opts.BulkDealSource,
		corpSource:   opts.CorporateActionSource,
		gate:         opts.Gate,
		unified:      opts.UnifiedStore,
		validator:    validation.NewRecordValidator(),
		bulkStore:    opts.BulkDealStore,
		corpStore:    opts.CorporateActionStore,
		notifier:     opts.Notifier,
		indexer:      opts.Indexer,
		onTransition: opts.OnTransition,
		clock:        clock,
		logger:       logger.Named("ingestion"),
		states:       make(map[string]State),
	}
}

// RunResult reports the outcome of one insider ingestion run.
// Inserted and Skipped count the legacy track, one per scraped row.
type RunResult struct {
	Exchange     domain.Exchange `json:"exchange"`
	Scraped      int             `json:"scraped"`
	Inserted     int             `json:"inserted"`
	Skipped      int             `json:"skipped"`
	NewUnified   int             `json:"newUnified"`
	UnknownDate  int             `json:"unknownDate"`
	Errors       []string        `json:"errors,omitempty"`
	FanOutErrors []string        `json:"fanOutErrors,omitempty"`
	State        State           `json:"state"`
	Duration     time.Duration   `json:"duration"`
}

// SourceName returns the metrics and state label of an exchange's insider run.
func SourceName(exchange domain.Exchange) string {
	return strings.ToLower(string(exchange)) + "_insider"
}

// State returns the current or last state of source. Unknown sources are idle.
func (r *Runner) State(source string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.states[source]; ok {
		return s
	}
	return StateIdle
}

func (r *Runner) transition(source string, s State) {
	r.mu.Lock()
	r.states[source] = s
	r.mu.Unlock()

	observability.RecordStateTransition(source, string(s))
	if r.onTransition != nil {
		r.onTransition(source, s)
	}
}

// candidate is a unified row waiting for persistence.
type candidate struct {
	row           int
	rec           *domain.InsiderRecord
	legacyExists  bool
	unifiedExists bool
}

// RunIngestion fetches rows for exchange and admits them on both tracks.
// A fetch failure fails the run with no writes. Per-row failures are counted
// as skipped. Fan-out failures are reported in FanOutErrors and never undo
// inserts.
func (r *Runner) RunIngestion(ctx context.Context, exchange domain.Exchange, filter domain.RowFilter) (*RunResult, error) {
	start := r.clock()
	source := SourceName(exchange)
	result := &RunResult{Exchange: exchange}

	fail := func(err error) (*RunResult, error) {
		result.State = StateFailed
		result.Duration = r.clock().Sub(start)
		r.transition(source, StateFailed)
		r.logger.Error("ingestion run failed",
			zap.String("exchange", string(exchange)),
			zap.Error(err),
		)
		return result, err
	}

	src, ok := r.sources[exchange]
	if !ok {
		return fail(fmt.Errorf("no source configured for exchange %q", exchange))
	}

	// 1. Fetch
	r.transition(source, StateFetching)
	rows, err := src.FetchRows(ctx, filter)
	if err != nil {
		return fail(fmt.Errorf("fetch %s rows: %w", exchange, err))
	}
	result.Scraped = len(rows)
	observability.RecordRowsScraped(source, len(rows))

	// 2. Normalize
	r.transition(source, StateNormalizing)
	createdAt := r.clock().UnixMilli()
	candidates := make([]*candidate, 0, len(rows))
	for i, row := range rows {
		rec := unify.Unify(row)
		rec.CreatedAt = createdAt
		if err := r.validator.ValidateInsider(rec); err != nil {
			r.rowError(result, source, i, rec, "invalid", err)
			continue
		}
		candidates = append(candidates, &candidate{row: i, rec: rec})
	}

	// 3. Dedup: both tracks are checked before either is written.
	r.transition(source, StateDeduping)
	checked := candidates[:0]
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if c.legacyExists, err = r.gate.Exists(ctx, c.rec, dedup.TrackLegacy); err != nil {
			r.rowError(result, source, c.row, c.rec, "dedup", err)
			continue
		}
		if c.unifiedExists, err = r.gate.Exists(ctx, c.rec, dedup.TrackUnified); err != nil {
			r.rowError(result, source, c.row, c.rec, "dedup", err)
			continue
		}
		checked = append(checked, c)
	}

	// 4. Persist. The conditional insert catches within-run duplicates.
	r.transition(source, StatePersisting)
	var newlyUnified []*domain.InsiderRecord
	for _, c := range checked {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		if c.legacyExists {
			result.Skipped++
			observability.RecordSkipped(source, "duplicate")
		} else {
			_, inserted, err := r.gate.Insert(ctx, c.rec, dedup.TrackLegacy)
			switch {
			case err != nil:
				r.rowError(result, source, c.row, c.rec, "persist", err)
			case inserted:
				result.Inserted++
				observability.RecordInserted(source, dedup.TrackLegacy.String())
			default:
				result.Skipped++
				observability.RecordSkipped(source, "duplicate")
			}
		}

		if c.unifiedExists {
			continue
		}
		id, inserted, err := r.gate.Insert(ctx, c.rec, dedup.TrackUnified)
		if err != nil {
			// Already counted on the legacy track; only log.
			r.logger.Warn("unified insert failed",
				zap.String("exchange", string(exchange)),
				zap.String("scrip_code", c.rec.ScripCode),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: unified insert: %v", c.row, err))
			continue
		}
		if !inserted {
			continue
		}
		observability.RecordInserted(source, dedup.TrackUnified.String())
		stored := c.rec.Clone()
		stored.ID = id
		newlyUnified = append(newlyUnified, stored)
		if unify.DateKey(stored) == normalize.UnknownDate {
			result.UnknownDate++
			observability.RecordUnknownDate(source)
			r.logger.Warn("record has no resolvable date and will not be indexed",
				zap.String("exchange", string(exchange)),
				zap.String("scrip_code", stored.ScripCode),
				zap.String("id", id),
			)
		}
	}
	result.NewUnified = len(newlyUnified)

	// 5. Fan out
	if len(newlyUnified) > 0 {
		r.transition(source, StateFanningOut)
		r.fanOut(ctx, result, newlyUnified)
	}

	result.State = StateDone
	result.Duration = r.clock().Sub(start)
	r.transition(source, StateDone)
	r.logger.Info("ingestion run completed",
		zap.String("exchange", string(exchange)),
		zap.Int("scraped", result.Scraped),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
		zap.Int("new_unified", result.NewUnified),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// fanOut notifies once per record, then indexes the whole batch in one call.
func (r *Runner) fanOut(ctx context.Context, result *RunResult, recs []*domain.InsiderRecord) {
	if r.notifier != nil {
		for _, rec := range recs {
			if err := r.notifier.Notify(ctx, rec.ID); err != nil {
				observability.RecordFanOutError("notify")
				r.logger.Warn("notification failed", zap.String("id", rec.ID), zap.Error(err))
				result.FanOutErrors = append(result.FanOutErrors, fmt.Sprintf("notify %s: %v", rec.ID, err))
			}
		}
	}

	if r.indexer == nil {
		return
	}
	idx, err := r.indexer.EmbedAndIndex(ctx, recs)
	if err != nil {
		observability.RecordFanOutError("embed")
		r.logger.Error("embedding fan-out failed", zap.Int("records", len(recs)), zap.Error(err))
		result.FanOutErrors = append(result.FanOutErrors, fmt.Sprintf("embed: %v", err))
		return
	}
	r.logger.Info("indexed new records",
		zap.Int("processed", idx.Processed),
		zap.Int("skipped", idx.Skipped),
		zap.Int("upserts", idx.Upserts),
	)
}

func (r *Runner) rowError(result *RunResult, source string, row int, rec *domain.InsiderRecord, reason string, err error) {
	result.Skipped++
	result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row, err))
	observability.RecordSkipped(source, reason)

	fields := []zap.Field{
		zap.String("exchange", string(rec.Exchange)),
		zap.Int("row", row),
		zap.String("reason", reason),
		zap.Error(err),
	}
	if rec.ScripCode != "" {
		fields = append(fields, zap.String("scrip_code", rec.ScripCode))
	}
	r.logger.Warn("row skipped", fields...)
}

// ErrNoSource is returned by supplementary runs whose source is not configured.
var ErrNoSource = errors.New("source not configured")
