package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert writes rows into spec's table, replacing the non-key columns of rows
// whose primary key already exists. Rows are staged with COPY in a temp table
// dropped on commit and merged with INSERT ... ON CONFLICT.
func Upsert(ctx context.Context, pool Pool, spec TableSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(spec.PrimaryKey) == 0 {
		return 0, eris.Errorf("db: upsert into %s: table has no primary key", spec.Name)
	}
	if err := spec.checkRows(rows); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s: begin", spec.Name)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stage := spec.stagingTable()
	create := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		stage.Sanitize(), Identifier(spec.Name).Sanitize())
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s: stage", spec.Name)
	}
	if _, err := copyRows(ctx, tx, stage, spec.ColumnNames(), rows); err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s", spec.Name)
	}

	tag, err := tx.Exec(ctx, spec.mergeSQL(stage))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s: merge", spec.Name)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s: commit", spec.Name)
	}
	return tag.RowsAffected(), nil
}

// mergeSQL moves staged rows into the table. Tables made only of key
// columns have nothing to update, so conflicting rows are skipped.
func (s TableSpec) mergeSQL(stage pgx.Identifier) string {
	cols := quoteAndJoin(s.ColumnNames())
	action := "DO NOTHING"
	if upd := s.valueColumns(); len(upd) > 0 {
		sets := make([]string, len(upd))
		for i, c := range upd {
			q := pgx.Identifier{c}.Sanitize()
			sets[i] = q + " = EXCLUDED." + q
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		Identifier(s.Name).Sanitize(), cols, cols, stage.Sanitize(), quoteAndJoin(s.PrimaryKey), action)
}

// stagingTable names the temp table an upsert stages rows in.
func (s TableSpec) stagingTable() pgx.Identifier {
	return pgx.Identifier{"_stage_" + strings.ReplaceAll(s.Name, ".", "_")}
}

// Exists reports whether the table holds a row whose column equals value.
func Exists(ctx context.Context, pool Pool, spec TableSpec, column string, value any) (bool, error) {
	q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)",
		Identifier(spec.Name).Sanitize(), pgx.Identifier{column}.Sanitize())
	var ok bool
	if err := pool.QueryRow(ctx, q, value).Scan(&ok); err != nil {
		return false, eris.Wrapf(err, "db: look up %s in %s", column, spec.Name)
	}
	return ok, nil
}
