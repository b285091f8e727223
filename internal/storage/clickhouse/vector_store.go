package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

// VectorStore implements storage.VectorStore on a ReplacingMergeTree table.
// Reads use FINAL so a re-upserted id counts once.
type VectorStore struct {
	conn *Conn
	now  func() time.Time
}

// NewVectorStore creates a new VectorStore.
func NewVectorStore(conn *Conn) *VectorStore {
	return &VectorStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.VectorStore = (*VectorStore)(nil)

// Upsert writes vectors into namespace in one batch.
func (s *VectorStore) Upsert(ctx context.Context, namespace string, vectors []domain.Vector) error {
	if namespace == "" {
		return storage.ErrInvalidInput
	}
	if len(vectors) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO insider_vectors (namespace, id, embedding, metadata, updated_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	updatedAt := s.now()
	for _, v := range vectors {
		meta, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata %s: %w", v.ID, err)
		}
		if err := batch.Append(namespace, v.ID, v.Values, string(meta), updatedAt); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// DescribeStats returns per-namespace record counts.
func (s *VectorStore) DescribeStats(ctx context.Context) (*domain.IndexStats, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT namespace, count() AS record_count
		FROM insider_vectors FINAL
		GROUP BY namespace
	`)
	if err != nil {
		return nil, fmt.Errorf("query namespace stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.IndexStats{Namespaces: make(map[string]domain.NamespaceStats)}
	for rows.Next() {
		var (
			namespace string
			count     uint64
		)
		if err := rows.Scan(&namespace, &count); err != nil {
			return nil, fmt.Errorf("scan namespace stats: %w", err)
		}
		stats.Namespaces[namespace] = domain.NamespaceStats{RecordCount: int64(count)}
		stats.TotalRecordCount += int64(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate namespace stats: %w", err)
	}
	return stats, nil
}

// Query returns up to topK vectors in namespace ordered by cosine similarity DESC.
func (s *VectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, metadata, toFloat64(1 - cosineDistance(embedding, ?)) AS score
		FROM insider_vectors FINAL
		WHERE namespace = ?
		ORDER BY score DESC, id ASC
		LIMIT %d
	`, topK)

	rows, err := s.conn.Query(ctx, query, vector, namespace)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var matches []domain.VectorMatch
	for rows.Next() {
		var (
			m    domain.VectorMatch
			meta string
		)
		if err := rows.Scan(&m.ID, &meta, &m.Score); err != nil {
			return nil, fmt.Errorf("scan vector match: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata %s: %w", m.ID, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector matches: %w", err)
	}
	return matches, nil
}
