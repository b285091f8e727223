// Package embedding indexes unified insider records into date-partitioned
// vector namespaces.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/idhash"
	"insider-pipeline/internal/normalize"
	"insider-pipeline/internal/observability"
	"insider-pipeline/internal/storage"
	"insider-pipeline/internal/unify"
)

// BatchSize is the maximum number of vectors per upsert call.
const BatchSize = 100

// UpsertError is a failed flush to the vector store. It aborts the remaining
// partitions; earlier flushes stay committed.
type UpsertError struct {
	Namespace string
	Count     int
	Err       error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert %d vectors to namespace %s: %v", e.Count, e.Namespace, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}

// IndexResult reports one EmbedAndIndex call.
type IndexResult struct {
	Processed    int            `json:"processed"`
	Skipped      int            `json:"skipped"`
	PerNamespace map[string]int `json:"perNamespace"`
	Upserts      int            `json:"upserts"`
}

// Batcher embeds records and flushes them to the vector store in batches.
type Batcher struct {
	embedder Embedder
	store    storage.VectorStore
	logger   *zap.Logger

	onIndexed func(namespace string, count int)
}

// NewBatcher creates a Batcher. A nil logger disables logging.
func NewBatcher(embedder Embedder, store storage.VectorStore, logger *zap.Logger) *Batcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{
		embedder: embedder,
		store:    store,
		logger:   logger.Named("embedding"),
	}
}

// OnIndexed registers fn to run after every successful upsert.
// Readers that cache index stats use it to drop stale entries.
func (b *Batcher) OnIndexed(fn func(namespace string, count int)) {
	b.onIndexed = fn
}

type partition struct {
	dateKey string
	recs    []*domain.InsiderRecord
}

// EmbedAndIndex partitions recs by date key and indexes each partition into
// its namespace. Records with an unknown date, an embedding error or an
// empty embedding are skipped. An upsert failure is returned as *UpsertError.
func (b *Batcher) EmbedAndIndex(ctx context.Context, recs []*domain.InsiderRecord) (*IndexResult, error) {
	result := &IndexResult{PerNamespace: make(map[string]int)}

	for _, p := range partitionByDate(recs) {
		if p.dateKey == normalize.UnknownDate {
			b.logger.Info("skipping records with unknown date", zap.Int("count", len(p.recs)))
			result.Skipped += len(p.recs)
			continue
		}
		if err := b.indexPartition(ctx, p, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (b *Batcher) indexPartition(ctx context.Context, p partition, result *IndexResult) error {
	namespace := unify.Namespace(p.dateKey)
	buf := make([]domain.Vector, 0, BatchSize)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := b.store.Upsert(ctx, namespace, buf); err != nil {
			return &UpsertError{Namespace: namespace, Count: len(buf), Err: err}
		}
		observability.RecordEmbeddingUpsert(len(buf))
		result.Upserts++
		result.Processed += len(buf)
		result.PerNamespace[namespace] += len(buf)
		if b.onIndexed != nil {
			b.onIndexed(namespace, len(buf))
		}
		buf = buf[:0]
		return nil
	}

	for _, rec := range p.recs {
		summary := Summary(rec)
		values, err := b.embedder.Embed(ctx, summary)
		if err != nil {
			b.logger.Warn("embedding failed",
				zap.String("namespace", namespace),
				zap.String("scrip_code", rec.ScripCode),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}
		if len(values) == 0 {
			b.logger.Warn("empty embedding, skipping record",
				zap.String("namespace", namespace),
				zap.String("scrip_code", rec.ScripCode),
			)
			result.Skipped++
			continue
		}

		buf = append(buf, domain.Vector{
			ID:       vectorID(rec),
			Values:   values,
			Metadata: Metadata(rec, p.dateKey, summary),
		})
		if len(buf) >= BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// partitionByDate groups records by date key in first-seen order.
func partitionByDate(recs []*domain.InsiderRecord) []partition {
	index := make(map[string]int)
	var parts []partition
	for _, rec := range recs {
		key := unify.DateKey(rec)
		i, ok := index[key]
		if !ok {
			i = len(parts)
			index[key] = i
			parts = append(parts, partition{dateKey: key})
		}
		parts[i].recs = append(parts[i].recs, rec)
	}
	return parts
}

// vectorID derives a stable id from the record's full identity, so
// re-indexing a record overwrites its vector.
func vectorID(rec *domain.InsiderRecord) string {
	return idhash.VectorID(idhash.ComputeUnifiedKey(rec.Exchange, rec.ScripCode, rec.TransactionDate, rec.Quantity()))
}
