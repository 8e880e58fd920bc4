package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Column is one column of a result table.
type Column struct {
	Name string
	Type string // PostgreSQL type, e.g. "text", "double precision"
}

// TableSpec describes a result table. When WKBColumn is set, a stored
// geometry column named GeomColumn is generated from it with SRID.
type TableSpec struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	WKBColumn  string
	GeomColumn string
	SRID       int
}

// CreateSQL renders CREATE TABLE IF NOT EXISTS for the spec.
func (s TableSpec) CreateSQL() string {
	defs := make([]string, 0, len(s.Columns)+2)
	for _, c := range s.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", pgx.Identifier{c.Name}.Sanitize(), c.Type))
	}
	if s.WKBColumn != "" && s.GeomColumn != "" {
		defs = append(defs, fmt.Sprintf(
			"%s geometry GENERATED ALWAYS AS (ST_SetSRID(ST_GeomFromWKB(%s), %d)) STORED",
			pgx.Identifier{s.GeomColumn}.Sanitize(), pgx.Identifier{s.WKBColumn}.Sanitize(), s.SRID,
		))
	}
	if len(s.PrimaryKey) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteAndJoin(s.PrimaryKey)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", Identifier(s.Name).Sanitize(), strings.Join(defs, ", "))
}

// ColumnNames returns the insertable column names, in order.
func (s TableSpec) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// valueColumns returns the columns outside the primary key.
func (s TableSpec) valueColumns() []string {
	key := make(map[string]bool, len(s.PrimaryKey))
	for _, k := range s.PrimaryKey {
		key[k] = true
	}
	var out []string
	for _, c := range s.Columns {
		if !key[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

func (s TableSpec) checkRows(rows [][]any) error {
	if s.Name == "" || len(s.Columns) == 0 {
		return eris.New("db: table spec needs a name and columns")
	}
	for i, r := range rows {
		if len(r) != len(s.Columns) {
			return eris.Errorf("db: %s: row %d has %d values for %d columns", s.Name, i, len(r), len(s.Columns))
		}
	}
	return nil
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// EnsureTable creates the table unless it already exists.
func EnsureTable(ctx context.Context, pool Pool, spec TableSpec) error {
	if spec.Name == "" || len(spec.Columns) == 0 {
		return eris.New("db: table spec needs a name and columns")
	}
	if _, err := pool.Exec(ctx, spec.CreateSQL()); err != nil {
		return eris.Wrapf(err, "db: create table %s", spec.Name)
	}
	return nil
}
