package layer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/db"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

// PostGISSource names the table and columns to load.
type PostGISSource struct {
	Table       string // optionally schema-qualified
	IDColumn    string
	ValueColumn string
	GeomColumn  string // defaults to "geom"
}

// LoadPostGIS reads a PostGIS table. The layer is geographic when the SRID's
// proj4 definition is longlat.
func LoadPostGIS(ctx context.Context, pool db.Pool, src PostGISSource) (*spatial.Layer, error) {
	if pool == nil {
		return nil, eris.Wrap(spatial.ErrInvalidParameter, "layer: no database connection")
	}
	if src.Table == "" || src.ValueColumn == "" {
		return nil, eris.Wrap(spatial.ErrInvalidParameter, "layer: PostGIS source needs a table and a value column")
	}
	geomCol := src.GeomColumn
	if geomCol == "" {
		geomCol = "geom"
	}
	table := db.Identifier(src.Table).Sanitize()
	g := pgx.Identifier{geomCol}.Sanitize()

	var (
		srid       int
		geographic bool
	)
	sridSQL := fmt.Sprintf(
		`SELECT ST_SRID(t.%[1]s), COALESCE(r.proj4text LIKE '%%longlat%%', false)
		FROM %[2]s t LEFT JOIN spatial_ref_sys r ON r.srid = ST_SRID(t.%[1]s) LIMIT 1`, g, table)
	if err := pool.QueryRow(ctx, sridSQL).Scan(&srid, &geographic); err != nil {
		return nil, eris.Wrapf(err, "layer: spatial reference of %s", src.Table)
	}

	idExpr := "''"
	order := "ctid"
	if src.IDColumn != "" {
		id := pgx.Identifier{src.IDColumn}.Sanitize()
		idExpr = fmt.Sprintf("COALESCE(%s::text, '')", id)
		order = id
	}
	v := pgx.Identifier{src.ValueColumn}.Sanitize()
	query := fmt.Sprintf("SELECT ST_AsBinary(%s), %s, COALESCE(%s::double precision, 0), %s IS NULL FROM %s ORDER BY %s",
		g, idExpr, v, v, table, order)
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: query %s", src.Table)
	}
	defer rows.Close()

	b := newBuilder(src.Table, src.IDColumn, src.ValueColumn)
	b.layer.SRID = srid
	b.layer.Geographic = geographic
	for rows.Next() {
		var (
			raw     []byte
			id      string
			value   float64
			missing bool
		)
		if err := rows.Scan(&raw, &id, &value, &missing); err != nil {
			return nil, eris.Wrapf(err, "layer: scan %s", src.Table)
		}
		geometry, err := wkb.Unmarshal(raw)
		if err != nil {
			return nil, spatial.NewEntityError(spatial.StageLayer, b.layer.Len(), spatial.ErrInvalidInput, "decode WKB: %v", err)
		}
		var attr any = value
		if missing {
			attr = nil
		}
		if err := b.add(id, geometry, attr); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "layer: read %s", src.Table)
	}

	zap.L().Debug("layer: postgis table loaded",
		zap.String("table", src.Table),
		zap.Int("entities", b.layer.Len()),
		zap.Int("srid", srid),
		zap.Bool("geographic", geographic),
	)
	return b.layer, nil
}
