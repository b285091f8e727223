package ingestion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"insider-pipeline/internal/idhash"
	"insider-pipeline/internal/observability"
	"insider-pipeline/internal/storage"
)

// Supplementary run sources.
const (
	SourceBulkDeals        = "bse_bulk_deals"
	SourceCorporateActions = "bse_corporate_actions"
)

// MarketRunResult reports a bulk deal or corporate action run.
type MarketRunResult struct {
	Source   string   `json:"source"`
	Scraped  int      `json:"scraped"`
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// RunBulkDeals fetches bulk deals and stores the new ones.
// Deals are identified by (scrip, client, date, quantity).
func (r *Runner) RunBulkDeals(ctx context.Context) (*MarketRunResult, error) {
	if r.bulkSource == nil || r.bulkStore == nil {
		return nil, fmt.Errorf("bulk deals: %w", ErrNoSource)
	}
	result := &MarketRunResult{Source: SourceBulkDeals}

	r.transition(SourceBulkDeals, StateFetching)
	deals, err := r.bulkSource.FetchBulkDeals(ctx)
	if err != nil {
		r.transition(SourceBulkDeals, StateFailed)
		return result, fmt.Errorf("fetch bulk deals: %w", err)
	}
	result.Scraped = len(deals)
	observability.RecordRowsScraped(SourceBulkDeals, len(deals))

	r.transition(SourceBulkDeals, StatePersisting)
	createdAt := r.clock().UnixMilli()
	for i, d := range deals {
		if err := ctx.Err(); err != nil {
			r.transition(SourceBulkDeals, StateFailed)
			return result, err
		}
		d.CreatedAt = createdAt
		key := idhash.ComputeBulkDealKey(d.ScripCode, d.ClientName, d.DateText, d.Quantity)
		r.admitMarket(ctx, result, i, d.ScripCode,
			func(ctx context.Context) (bool, error) { return r.bulkStore.Exists(ctx, key) },
			func(ctx context.Context) error { _, err := r.bulkStore.Insert(ctx, key, d); return err },
		)
	}

	r.transition(SourceBulkDeals, StateDone)
	r.logMarket(result)
	return result, nil
}

// RunCorporateActions fetches corporate actions and stores the new ones.
// Actions are identified by (scrip, purpose, ex-date text).
func (r *Runner) RunCorporateActions(ctx context.Context) (*MarketRunResult, error) {
	if r.corpSource == nil || r.corpStore == nil {
		return nil, fmt.Errorf("corporate actions: %w", ErrNoSource)
	}
	result := &MarketRunResult{Source: SourceCorporateActions}

	r.transition(SourceCorporateActions, StateFetching)
	actions, err := r.corpSource.FetchCorporateActions(ctx)
	if err != nil {
		r.transition(SourceCorporateActions, StateFailed)
		return result, fmt.Errorf("fetch corporate actions: %w", err)
	}
	result.Scraped = len(actions)
	observability.RecordRowsScraped(SourceCorporateActions, len(actions))

	r.transition(SourceCorporateActions, StatePersisting)
	createdAt := r.clock().UnixMilli()
	for i, a := range actions {
		if err := ctx.Err(); err != nil {
			r.transition(SourceCorporateActions, StateFailed)
			return result, err
		}
		a.CreatedAt = createdAt
		key := idhash.ComputeCorporateActionKey(a.ScripCode, a.Purpose, a.ExDateText)
		r.admitMarket(ctx, result, i, a.ScripCode,
			func(ctx context.Context) (bool, error) { return r.corpStore.Exists(ctx, key) },
			func(ctx context.Context) error { _, err := r.corpStore.Insert(ctx, key, a); return err },
		)
	}

	r.transition(SourceCorporateActions, StateDone)
	r.logMarket(result)
	return result, nil
}

func (r *Runner) admitMarket(
	ctx context.Context,
	result *MarketRunResult,
	row int,
	scripCode string,
	exists func(context.Context) (bool, error),
	insert func(context.Context) error,
) {
	found, err := exists(ctx)
	if err == nil && !found {
		err = insert(ctx)
		if err == nil {
			result.Inserted++
			observability.RecordInserted(result.Source, "market")
			return
		}
		if errors.Is(err, storage.ErrDuplicateKey) {
			found, err = true, nil
		}
	}
	if err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row, err))
		observability.RecordSkipped(result.Source, "persist")
		r.logger.Warn("row skipped",
			zap.String("source", result.Source),
			zap.String("scrip_code", scripCode),
			zap.Error(err),
		)
		return
	}
	if found {
		result.Skipped++
		observability.RecordSkipped(result.Source, "duplicate")
	}
}

func (r *Runner) logMarket(result *MarketRunResult) {
	r.logger.Info("market run completed",
		zap.String("source", result.Source),
		zap.Int("scraped", result.Scraped),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
}
