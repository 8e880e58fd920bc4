package layer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spatial-cli/internal/db"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

// PostGISScheme prefixes Source.Path values that name a PostGIS table.
const PostGISScheme = "postgis:"

// Source locates an input layer.
type Source struct {
	// Path is a .shp, .gpkg, .geojson or .json file, or "postgis:<table>".
	Path       string
	Table      string // GeoPackage table; empty selects the first one
	IDField    string
	ValueField string
	GeomField  string // PostGIS geometry column
	// Projected marks GeoJSON coordinates as projected rather than lon/lat.
	Projected bool
	// WebMercator reprojects geographic input to EPSG:3857.
	WebMercator bool
}

// Open loads src. pool is only used for PostGIS sources and may be nil
// otherwise.
func Open(ctx context.Context, src Source, pool db.Pool) (*spatial.Layer, error) {
	if src.ValueField == "" {
		return nil, eris.Wrap(spatial.ErrInvalidParameter, "layer: value field is required")
	}

	var (
		l   *spatial.Layer
		err error
	)
	switch {
	case strings.HasPrefix(src.Path, PostGISScheme):
		l, err = LoadPostGIS(ctx, pool, PostGISSource{
			Table:       strings.TrimPrefix(src.Path, PostGISScheme),
			IDColumn:    src.IDField,
			ValueColumn: src.ValueField,
			GeomColumn:  src.GeomField,
		})
	default:
		switch strings.ToLower(filepath.Ext(src.Path)) {
		case ".shp":
			l, err = ReadShapefile(src.Path, src.IDField, src.ValueField)
		case ".gpkg":
			l, err = ReadGeoPackage(ctx, src.Path, src.Table, src.IDField, src.ValueField)
		case ".geojson", ".json":
			l, err = readGeoJSONFile(src)
		default:
			return nil, eris.Wrapf(spatial.ErrInvalidParameter, "layer: unsupported input %q", src.Path)
		}
	}
	if err != nil {
		return nil, err
	}
	if src.WebMercator {
		return ToWebMercator(l)
	}
	return l, nil
}

func readGeoJSONFile(src Source) (*spatial.Layer, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open %s", src.Path)
	}
	defer f.Close() //nolint:errcheck

	name := strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	l, err := ReadGeoJSON(f, name, src.IDField, src.ValueField)
	if err != nil {
		return nil, err
	}
	if src.Projected {
		l.Geographic = false
		l.SRID = 0
	}
	return l, nil
}
