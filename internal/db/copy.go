package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// copier is satisfied by Pool and pgx.Tx.
type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Insert appends rows to spec's table with the COPY protocol. Rows must hold
// one value per spec column, in column order. A primary key collision fails
// the whole batch; use Upsert when rows may already exist.
func Insert(ctx context.Context, pool Pool, spec TableSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := spec.checkRows(rows); err != nil {
		return 0, err
	}
	n, err := copyRows(ctx, pool, Identifier(spec.Name), spec.ColumnNames(), rows)
	if err != nil {
		return 0, eris.Wrapf(err, "db: insert into %s", spec.Name)
	}
	return n, nil
}

func copyRows(ctx context.Context, c copier, table pgx.Identifier, columns []string, rows [][]any) (int64, error) {
	n, err := c.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY into %s", table.Sanitize())
	}
	return n, nil
}

// Identifier splits a possibly schema-qualified table name.
func Identifier(table string) pgx.Identifier {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}
	}
	return pgx.Identifier{table}
}
