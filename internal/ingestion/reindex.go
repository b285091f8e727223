package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"insider-pipeline/internal/observability"
)

// SourceReindex labels full vector re-index runs.
const SourceReindex = "reindex_vectors"

// ReindexResult reports one full re-index of the unified track.
type ReindexResult struct {
	Records      int            `json:"records"`
	Indexed      int            `json:"indexed"`
	Skipped      int            `json:"skipped"`
	Upserts      int            `json:"upserts"`
	PerNamespace map[string]int `json:"perNamespace,omitempty"`
	State        State          `json:"state"`
	Duration     time.Duration  `json:"duration"`
}

// RunReindex embeds every stored unified record again. Vector ids are
// stable, so records already indexed are overwritten and records whose
// earlier embedding failed are added.
func (r *Runner) RunReindex(ctx context.Context) (*ReindexResult, error) {
	if r.indexer == nil || r.unified == nil {
		return nil, fmt.Errorf("reindex: %w", ErrNoSource)
	}
	start := r.clock()
	result := &ReindexResult{}

	fail := func(err error) (*ReindexResult, error) {
		result.State = StateFailed
		result.Duration = r.clock().Sub(start)
		r.transition(SourceReindex, StateFailed)
		r.logger.Error("reindex failed", zap.Error(err))
		return result, err
	}

	r.transition(SourceReindex, StateFetching)
	recs, err := r.unified.GetAll(ctx, 0)
	if err != nil {
		return fail(fmt.Errorf("load unified records: %w", err))
	}
	result.Records = len(recs)
	observability.RecordRowsScraped(SourceReindex, len(recs))

	r.transition(SourceReindex, StateFanningOut)
	idx, err := r.indexer.EmbedAndIndex(ctx, recs)
	if idx != nil {
		result.Indexed = idx.Processed
		result.Skipped = idx.Skipped
		result.Upserts = idx.Upserts
		result.PerNamespace = idx.PerNamespace
	}
	if err != nil {
		return fail(fmt.Errorf("index: %w", err))
	}

	result.State = StateDone
	result.Duration = r.clock().Sub(start)
	r.transition(SourceReindex, StateDone)
	r.logger.Info("reindex completed",
		zap.Int("records", result.Records),
		zap.Int("indexed", result.Indexed),
		zap.Int("skipped", result.Skipped),
		zap.Int("upserts", result.Upserts),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
