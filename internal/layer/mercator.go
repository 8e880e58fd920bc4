package layer

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// Web Mercator (EPSG:3857) constants.
const (
	WebMercatorSRID = 3857
	earthRadius     = 6378137.0
	maxMercatorLat  = 85.05112878
)

// ToWebMercator returns a projected copy of a geographic layer, the
// conversion applied before distance-based neighbor construction. Projected
// layers are returned unchanged.
func ToWebMercator(l *spatial.Layer) (*spatial.Layer, error) {
	if l == nil || !l.Geographic {
		return l, nil
	}
	out := *l
	out.Geographic = false
	out.SRID = WebMercatorSRID
	out.Entities = make([]spatial.Entity, len(l.Entities))
	for i, e := range l.Entities {
		g, err := projectGeometry(e.Geometry)
		if err != nil {
			return nil, spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput, "%v", err)
		}
		c, err := centroid(g)
		if err != nil {
			return nil, spatial.NewEntityError(spatial.StageLayer, i, spatial.ErrInvalidInput, "%v", err)
		}
		e.Geometry = g
		e.Centroid = c
		out.Entities[i] = e
	}
	return &out, nil
}

func mercator(lon, lat float64) (float64, float64) {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	x := earthRadius * lon * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

func projectGeometry(g geom.T) (geom.T, error) {
	var c geom.T
	switch t := g.(type) {
	case *geom.Point:
		c = t.Clone()
	case *geom.LineString:
		c = t.Clone()
	case *geom.MultiLineString:
		c = t.Clone()
	case *geom.Polygon:
		c = t.Clone()
	case *geom.MultiPolygon:
		c = t.Clone()
	default:
		return nil, eris.Errorf("layer: cannot project %T", g)
	}
	flat, stride := c.FlatCoords(), c.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		flat[i], flat[i+1] = mercator(flat[i], flat[i+1])
	}
	return c, nil
}
