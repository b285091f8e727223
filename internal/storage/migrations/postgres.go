package migrations

import (
	"context"
	"fmt"

	"insider-pipeline/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded postgres script in lexical order.
// Scripts are idempotent, so this runs on every start.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		// pgx runs multi-statement scripts over the simple protocol.
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
