package layer

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// GeoPackage constants from the OGC specification.
const (
	gpkgApplicationID = 0x47504B47 // "GPKG"
	gpkgUserVersion   = 10300
	gpkgMagic         = "GP"
)

// ReadGeoPackage loads a feature table from a GeoPackage. An empty table
// selects the first feature table listed in gpkg_contents.
func ReadGeoPackage(ctx context.Context, path, table, idField, valueField string) (*spatial.Layer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "layer: geopackage %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "layer: open geopackage")
	}
	defer db.Close() //nolint:errcheck

	if table == "" {
		err := db.QueryRowContext(ctx,
			`SELECT table_name FROM gpkg_contents WHERE data_type = 'features' ORDER BY table_name LIMIT 1`,
		).Scan(&table)
		if err != nil {
			return nil, eris.Wrapf(err, "layer: no feature table in %s", path)
		}
	}

	var (
		geomCol string
		srsID   int
	)
	if err := db.QueryRowContext(ctx,
		`SELECT column_name, srs_id FROM gpkg_geometry_columns WHERE table_name = ?`, table,
	).Scan(&geomCol, &srsID); err != nil {
		return nil, eris.Wrapf(err, "layer: geometry column of %s", table)
	}

	var definition string
	err = db.QueryRowContext(ctx, `SELECT definition FROM gpkg_spatial_ref_sys WHERE srs_id = ?`, srsID).Scan(&definition)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(err, "layer: spatial reference %d", srsID)
	}

	idExpr := "NULL"
	if idField != "" {
		idExpr = quoteIdent(idField)
	}
	query := fmt.Sprintf("SELECT %s, %s, %s FROM %s ORDER BY rowid",
		quoteIdent(geomCol), idExpr, quoteIdent(valueField), quoteIdent(table))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: query %s", table)
	}
	defer rows.Close() //nolint:errcheck

	b := newBuilder(table, idField, valueField)
	b.layer.SRID = srsID
	b.layer.Geographic = srsID == 4326 || isGeographicWKT(definition)
	for rows.Next() {
		var (
			blob     []byte
			id, vraw any
		)
		if err := rows.Scan(&blob, &id, &vraw); err != nil {
			return nil, eris.Wrapf(err, "layer: scan %s", table)
		}
		g, err := decodeGPKGBlob(blob)
		if err != nil {
			return nil, spatial.NewEntityError(spatial.StageLayer, b.layer.Len(), spatial.ErrInvalidInput, "%v", err)
		}
		if err := b.add(formatID(id), g, vraw); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "layer: read %s", table)
	}

	zap.L().Debug("layer: geopackage loaded",
		zap.String("path", path),
		zap.String("table", table),
		zap.Int("entities", b.layer.Len()),
		zap.Int("srid", srsID),
	)
	return b.layer, nil
}

// WriteGeoPackage writes t as the only feature table of a new GeoPackage at
// path, replacing any existing file.
func WriteGeoPackage(ctx context.Context, path string, t *FeatureTable) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if len(t.Features) == 0 {
		return eris.Wrap(spatial.ErrInsufficientData, "layer: no features to write")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "layer: replace %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "layer: create geopackage")
	}
	defer db.Close() //nolint:errcheck

	name := t.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	srsID := t.SRID
	if srsID <= 0 {
		srsID = -1
		if t.Geographic {
			srsID = 4326
		}
	}
	geomType := gpkgGeometryType(t.Features[0].Geometry)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "layer: begin geopackage")
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		fmt.Sprintf("PRAGMA application_id = %d", gpkgApplicationID),
		fmt.Sprintf("PRAGMA user_version = %d", gpkgUserVersion),
		gpkgSchema,
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return eris.Wrap(err, "layer: geopackage schema")
		}
	}
	if srsID != -1 && srsID != 0 && srsID != 4326 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition) VALUES (?, ?, 'EPSG', ?, 'undefined')`,
			fmt.Sprintf("EPSG:%d", srsID), srsID, srsID,
		); err != nil {
			return eris.Wrap(err, "layer: geopackage srs")
		}
	}

	defs := []string{"fid INTEGER PRIMARY KEY AUTOINCREMENT", "geom " + geomType}
	cols := []string{"geom"}
	for _, c := range t.Columns {
		defs = append(defs, quoteIdent(c.Name)+" "+sqliteType(c.Kind))
		cols = append(cols, quoteIdent(c.Name))
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))); err != nil {
		return eris.Wrapf(err, "layer: create table %s", name)
	}

	minX, minY, maxX, maxY := tableBounds(t)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id) VALUES (?, 'features', ?, ?, ?, ?, ?, ?)`,
		name, name, minX, minY, maxX, maxY, srsID,
	); err != nil {
		return eris.Wrap(err, "layer: geopackage contents")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m) VALUES (?, 'geom', ?, ?, 0, 0)`,
		name, geomType, srsID,
	); err != nil {
		return eris.Wrap(err, "layer: geopackage geometry column")
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(name), strings.Join(cols, ", "), marks))
	if err != nil {
		return eris.Wrap(err, "layer: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, f := range t.Features {
		blob, err := encodeGPKGBlob(f.Geometry, srsID)
		if err != nil {
			return spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput, "%v", err)
		}
		args := append([]any{blob}, f.Values...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "layer: insert feature %d", i)
		}
	}
	return eris.Wrap(tx.Commit(), "layer: commit geopackage")
}

const gpkgSchema = `
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name TEXT NOT NULL,
	srs_id INTEGER PRIMARY KEY,
	organization TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition TEXT NOT NULL,
	description TEXT
);
CREATE TABLE gpkg_contents (
	table_name TEXT NOT NULL PRIMARY KEY,
	data_type TEXT NOT NULL,
	identifier TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
	srs_id INTEGER REFERENCES gpkg_spatial_ref_sys(srs_id)
);
CREATE TABLE gpkg_geometry_columns (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL REFERENCES gpkg_spatial_ref_sys(srs_id),
	z TINYINT NOT NULL,
	m TINYINT NOT NULL,
	PRIMARY KEY (table_name, column_name)
);
INSERT INTO gpkg_spatial_ref_sys VALUES
	('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined', NULL),
	('Undefined geographic SRS', 0, 'NONE', 0, 'undefined', NULL),
	('WGS 84 geodetic', 4326, 'EPSG', 4326, '` + wgs84PRJ + `', NULL);
`

// encodeGPKGBlob wraps WKB in a GeoPackage binary header without envelope.
func encodeGPKGBlob(g geom.T, srsID int) ([]byte, error) {
	body, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "layer: encode WKB")
	}
	out := make([]byte, 8, 8+len(body))
	copy(out, gpkgMagic)
	out[2] = 0    // version 1
	out[3] = 0x01 // little endian, no envelope
	binary.LittleEndian.PutUint32(out[4:], uint32(int32(srsID)))
	return append(out, body...), nil
}

// decodeGPKGBlob strips the GeoPackage header and decodes the WKB body.
func decodeGPKGBlob(blob []byte) (geom.T, error) {
	if len(blob) < 8 || string(blob[:2]) != gpkgMagic {
		return nil, eris.New("layer: not a GeoPackage geometry blob")
	}
	flags := blob[3]
	if flags&0x10 != 0 {
		return nil, eris.New("layer: empty geometry")
	}
	var envelope int
	switch (flags >> 1) & 0x07 {
	case 0:
	case 1:
		envelope = 32
	case 2, 3:
		envelope = 48
	case 4:
		envelope = 64
	default:
		return nil, eris.Errorf("layer: invalid envelope flag in %08b", flags)
	}
	start := 8 + envelope
	if len(blob) < start {
		return nil, eris.New("layer: truncated GeoPackage blob")
	}
	g, err := wkb.Unmarshal(blob[start:])
	if err != nil {
		return nil, eris.Wrap(err, "layer: decode WKB")
	}
	return g, nil
}

func gpkgGeometryType(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return "POINT"
	case *geom.LineString:
		return "LINESTRING"
	case *geom.MultiLineString:
		return "MULTILINESTRING"
	case *geom.Polygon:
		return "POLYGON"
	case *geom.MultiPolygon:
		return "MULTIPOLYGON"
	}
	return "GEOMETRY"
}

func sqliteType(k Kind) string {
	switch k {
	case KindReal:
		return "REAL"
	case KindInteger:
		return "INTEGER"
	}
	return "TEXT"
}

func tableBounds(t *FeatureTable) (float64, float64, float64, float64) {
	b := geom.NewBounds(geom.XY)
	for _, f := range t.Features {
		b.Extend(f.Geometry)
	}
	return b.Min(0), b.Min(1), b.Max(0), b.Max(1)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
