// Package db holds small pgx helpers shared by the Postgres store:
// COPY-based bulk loads and temp-table upserts.
package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table over the PostgreSQL COPY
// protocol. A zero-length batch is a no-op.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	return copyInto(ctx, pool, pgx.Identifier{table}, columns, rows)
}

// CopyFromSchema is CopyFrom for a schema-qualified table.
func CopyFromSchema(ctx context.Context, pool Pool, schema, table string, columns []string, rows [][]any) (int64, error) {
	return copyInto(ctx, pool, pgx.Identifier{schema, table}, columns, rows)
}

func copyInto(ctx context.Context, pool Pool, ident pgx.Identifier, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", strings.Join(ident, "."))
	}
	return n, nil
}
