package layer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// maxDBFName is the longest attribute name a dBASE header can hold.
const maxDBFName = 10

// wgs84PRJ is written next to geographic shapefiles.
const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// ReadShapefile loads a point or polygon shapefile. idField may be empty, in
// which case entities are identified by position. A .prj sidecar holding a
// GEOGCS definition marks the layer geographic.
func ReadShapefile(path, idField, valueField string) (*spatial.Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	valueIdx, ok := fieldIdx[strings.ToLower(valueField)]
	if !ok {
		return nil, eris.Wrapf(spatial.ErrInvalidParameter, "layer: shapefile %s has no field %q", path, valueField)
	}
	idIdx := -1
	if idField != "" {
		if idIdx, ok = fieldIdx[strings.ToLower(idField)]; !ok {
			return nil, eris.Wrapf(spatial.ErrInvalidParameter, "layer: shapefile %s has no field %q", path, idField)
		}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	b := newBuilder(name, idField, valueField)
	for reader.Next() {
		row, shape := reader.Shape()
		g, err := fromShape(shape)
		if err != nil {
			return nil, spatial.NewEntityError(spatial.StageLayer, row, spatial.ErrInvalidInput, "%v", err)
		}
		id := ""
		if idIdx >= 0 {
			id = formatID(reader.Attribute(idIdx))
		}
		if err := b.add(id, g, reader.Attribute(valueIdx)); err != nil {
			return nil, err
		}
	}

	b.layer.Geographic = prjIsGeographic(path)
	zap.L().Debug("layer: shapefile loaded",
		zap.String("path", path),
		zap.Int("entities", b.layer.Len()),
		zap.Bool("geographic", b.layer.Geographic),
	)
	return b.layer, nil
}

func prjIsGeographic(shpPath string) bool {
	raw, err := os.ReadFile(strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj")
	if err != nil {
		return false
	}
	return isGeographicWKT(string(raw))
}

func isGeographicWKT(wkt string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(wkt)), "GEOGCS")
}

// WriteShapefile writes t as a shapefile at path. Column names longer than
// ten characters are truncated and must stay unique.
func WriteShapefile(path string, t *FeatureTable) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if len(t.Features) == 0 {
		return eris.Wrap(spatial.ErrInsufficientData, "layer: no features to write")
	}
	shapeType, err := shapeTypeOf(t.Features[0].Geometry)
	if err != nil {
		return err
	}

	fields := make([]shp.Field, len(t.Columns))
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		name := c.Name
		if len(name) > maxDBFName {
			name = name[:maxDBFName]
		}
		if seen[strings.ToLower(name)] {
			return eris.Wrapf(spatial.ErrInvalidParameter, "layer: column %q collides after truncation to %q", c.Name, name)
		}
		seen[strings.ToLower(name)] = true
		switch c.Kind {
		case KindReal:
			fields[i] = shp.FloatField(name, 24, 8)
		case KindInteger:
			fields[i] = shp.NumberField(name, 10)
		default:
			fields[i] = shp.StringField(name, 254)
		}
	}

	w, err := shp.Create(path, shapeType)
	if err != nil {
		return eris.Wrapf(err, "layer: create shapefile %s", path)
	}
	werr := writeShapes(w, t, fields)
	w.Close()
	// go-shp names the attribute sidecar "<base>dbf".
	base := shpBase(path)
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil && werr == nil {
		werr = eris.Wrapf(err, "layer: rename attribute file of %s", path)
	}
	if werr != nil {
		return werr
	}

	if t.Geographic {
		prj := shpBase(path) + ".prj"
		if err := os.WriteFile(prj, []byte(wgs84PRJ), 0o644); err != nil {
			return eris.Wrap(err, "layer: write .prj")
		}
	}
	return nil
}

func writeShapes(w *shp.Writer, t *FeatureTable, fields []shp.Field) error {
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "layer: shapefile fields")
	}
	for i, f := range t.Features {
		shape, err := toShape(f.Geometry)
		if err != nil {
			return spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput, "%v", err)
		}
		row := int(w.Write(shape))
		for k, v := range f.Values {
			if err := w.WriteAttribute(row, k, dbfValue(v)); err != nil {
				return eris.Wrapf(err, "layer: write attribute %s of feature %d", t.Columns[k].Name, i)
			}
		}
	}
	return nil
}

// shpBase mirrors shp.Create: a trailing .shp in any case is dropped.
func shpBase(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		return path[:len(path)-len(".shp")]
	}
	return path
}

func shapeTypeOf(g geom.T) (shp.ShapeType, error) {
	switch g.(type) {
	case *geom.Point:
		return shp.POINT, nil
	case *geom.LineString, *geom.MultiLineString:
		return shp.POLYLINE, nil
	case *geom.Polygon, *geom.MultiPolygon:
		return shp.POLYGON, nil
	}
	return 0, eris.Wrapf(spatial.ErrInvalidInput, "layer: no shapefile type for %T", g)
}

func dbfValue(v any) any {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case nil:
		return ""
	}
	return v
}
