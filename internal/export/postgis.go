package export

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/db"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

// LocalTableSpec describes the table local results are upserted into.
func LocalTableSpec(table string, srid int) db.TableSpec {
	return db.TableSpec{
		Name: table,
		Columns: []db.Column{
			{Name: "run_id", Type: "text NOT NULL"},
			{Name: "idx", Type: "integer NOT NULL"},
			{Name: "entity_id", Type: "text"},
			{Name: "statistic", Type: "text"},
			{Name: "value", Type: "double precision"},
			{Name: "lag", Type: "double precision"},
			{Name: "observed", Type: "double precision"},
			{Name: "expected", Type: "double precision"},
			{Name: "variance", Type: "double precision"},
			{Name: "z_score", Type: "double precision"},
			{Name: "p_value", Type: "double precision"},
			{Name: "quadrant", Type: "text"},
			{Name: "quadrant_mean", Type: "text"},
			{Name: "quadrant_median", Type: "text"},
			{Name: "cluster", Type: "text"},
			{Name: "isolate", Type: "boolean"},
			{Name: "undefined", Type: "boolean"},
			{Name: "geom_wkb", Type: "bytea"},
		},
		PrimaryKey: []string{"run_id", "idx"},
		WKBColumn:  "geom_wkb",
		GeomColumn: "geom",
		SRID:       srid,
	}
}

// WriteLocalPostGIS creates table if needed and writes one row per local
// record keyed by run id and entity index. A run id the table has not seen
// is appended with COPY; rewriting a stored run replaces its rows.
func WriteLocalPostGIS(ctx context.Context, pool db.Pool, table string, r *analysis.Report) (int64, error) {
	if pool == nil {
		return 0, eris.Wrap(spatial.ErrInvalidParameter, "export: no database connection")
	}
	if err := requireSource(r); err != nil {
		return 0, err
	}
	if r.Local == nil {
		return 0, eris.Wrap(spatial.ErrInvalidParameter, "export: report has no local result")
	}

	spec := LocalTableSpec(table, r.Source.SRID)
	if err := db.EnsureTable(ctx, pool, spec); err != nil {
		return 0, err
	}

	rows := make([][]any, 0, len(r.Local.Records))
	for i, rec := range r.Local.Records {
		raw, err := wkb.Marshal(r.Source.Entities[i].Geometry, wkb.NDR)
		if err != nil {
			return 0, spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput, "encode WKB: %v", err)
		}
		rows = append(rows, []any{
			r.RunID, rec.Index, rec.ID, r.Local.Statistic,
			rec.Value, rec.Lag, rec.Observed, rec.Expected, rec.Variance, rec.ZScore, rec.PValue,
			rec.Quadrant, rec.QuadrantMean, rec.QuadrantMedian, rec.Cluster, rec.Isolate, rec.Undefined, raw,
		})
	}

	stored, err := db.Exists(ctx, pool, spec, "run_id", r.RunID)
	if err != nil {
		return 0, err
	}
	write := db.Insert
	if stored {
		write = db.Upsert
	}
	n, err := write(ctx, pool, spec, rows)
	if err != nil {
		return 0, err
	}
	zap.L().Info("export: local results written",
		zap.String("table", table),
		zap.String("run_id", r.RunID),
		zap.Int64("rows", n),
		zap.Bool("replaced", stored),
	)
	return n, nil
}
