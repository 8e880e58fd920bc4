// Package layer reads input layers into the spatial model and writes
// feature tables back out. Shapefile, GeoPackage, GeoJSON and PostGIS are
// supported.
package layer

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// fromShape converts a go-shp shape to a go-geom geometry. Polygon rings are
// grouped by orientation: clockwise rings start a new polygon, counter-
// clockwise rings are holes of the polygon before them.
func fromShape(shape shp.Shape) (geom.T, error) {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PolyLine:
		return polyLineToMultiLineString(s.Parts, s.Points)
	case *shp.Polygon:
		return polygonToMultiPolygon(s.Parts, s.Points)
	case nil:
		return nil, eris.New("layer: null shape")
	}
	return nil, eris.Errorf("layer: unsupported shape type %T", shape)
}

func parts(partIdx []int32, points []shp.Point) [][]float64 {
	out := make([][]float64, 0, len(partIdx))
	for i, start := range partIdx {
		end := int32(len(points))
		if i+1 < len(partIdx) {
			end = partIdx[i+1]
		}
		flat := make([]float64, 0, 2*(end-start))
		for _, p := range points[start:end] {
			flat = append(flat, p.X, p.Y)
		}
		out = append(out, flat)
	}
	return out
}

func polyLineToMultiLineString(partIdx []int32, points []shp.Point) (geom.T, error) {
	mls := geom.NewMultiLineString(geom.XY)
	for _, flat := range parts(partIdx, points) {
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			return nil, eris.Wrap(err, "layer: polyline part")
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil, eris.New("layer: empty polyline")
	}
	return mls, nil
}

// polygonToMultiPolygon groups shapefile rings into polygons. Shapefiles
// store shells clockwise and holes counter-clockwise; the result follows
// go-geom's convention of counter-clockwise shells and clockwise holes.
func polygonToMultiPolygon(partIdx []int32, points []shp.Point) (geom.T, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon
	flush := func() error {
		if current == nil {
			return nil
		}
		return mp.Push(current)
	}

	for i, flat := range parts(partIdx, points) {
		if len(flat) < 8 {
			zap.L().Debug("layer: skipping degenerate ring", zap.Int("part", i))
			continue
		}
		ccw := xy.IsRingCounterClockwise(geom.XY, flat)
		if current != nil && ccw {
			ring := geom.NewLinearRingFlat(geom.XY, reverseXY(flat))
			if err := current.Push(ring); err != nil {
				return nil, eris.Wrap(err, "layer: polygon hole")
			}
			continue
		}
		if err := flush(); err != nil {
			return nil, eris.Wrap(err, "layer: polygon part")
		}
		if !ccw {
			flat = reverseXY(flat)
		}
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			return nil, eris.Wrap(err, "layer: polygon shell")
		}
	}
	if err := flush(); err != nil {
		return nil, eris.Wrap(err, "layer: polygon part")
	}
	if mp.NumPolygons() == 0 {
		return nil, eris.New("layer: polygon without rings")
	}
	return mp, nil
}

// toShape converts a geometry to a go-shp shape. Polygon shells are written
// clockwise and holes counter-clockwise.
func toShape(g geom.T) (shp.Shape, error) {
	switch t := g.(type) {
	case *geom.Point:
		return &shp.Point{X: t.X(), Y: t.Y()}, nil
	case *geom.LineString:
		return shp.NewPolyLine([][]shp.Point{shpPoints(t.FlatCoords(), t.Stride(), false)}), nil
	case *geom.MultiLineString:
		var lines [][]shp.Point
		for i := 0; i < t.NumLineStrings(); i++ {
			ls := t.LineString(i)
			lines = append(lines, shpPoints(ls.FlatCoords(), ls.Stride(), false))
		}
		return shp.NewPolyLine(lines), nil
	case *geom.Polygon:
		return newShpPolygon(polygonRings(t)), nil
	case *geom.MultiPolygon:
		var rings [][]shp.Point
		for i := 0; i < t.NumPolygons(); i++ {
			rings = append(rings, polygonRings(t.Polygon(i))...)
		}
		return newShpPolygon(rings), nil
	}
	return nil, eris.Errorf("layer: cannot write %T to a shapefile", g)
}

func polygonRings(p *geom.Polygon) [][]shp.Point {
	rings := make([][]shp.Point, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		r := p.LinearRing(i)
		ccw := xy.IsRingCounterClockwise(geom.XY, xyOnly(r.FlatCoords(), r.Stride()))
		// Shells clockwise (i == 0), holes counter-clockwise.
		rings = append(rings, shpPoints(r.FlatCoords(), r.Stride(), (i == 0) == ccw))
	}
	return rings
}

func newShpPolygon(rings [][]shp.Point) *shp.Polygon {
	p := shp.Polygon(*shp.NewPolyLine(rings))
	return &p
}

func shpPoints(flat []float64, stride int, reverse bool) []shp.Point {
	n := len(flat) / stride
	out := make([]shp.Point, n)
	for i := 0; i < n; i++ {
		k := i
		if reverse {
			k = n - 1 - i
		}
		out[k] = shp.Point{X: flat[i*stride], Y: flat[i*stride+1]}
	}
	return out
}

// reverseXY reverses the vertex order of an XY ring in place.
func reverseXY(flat []float64) []float64 {
	for i, j := 0, len(flat)-2; i < j; i, j = i+2, j-2 {
		flat[i], flat[j] = flat[j], flat[i]
		flat[i+1], flat[j+1] = flat[j+1], flat[i+1]
	}
	return flat
}

func xyOnly(flat []float64, stride int) []float64 {
	if stride == 2 {
		return flat
	}
	out := make([]float64, 0, len(flat)/stride*2)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, flat[i], flat[i+1])
	}
	return out
}

// centroid returns the area centroid of polygonal geometries, the mean of
// line or point geometries otherwise.
func centroid(g geom.T) (spatial.Coord, error) {
	if p, ok := g.(*geom.Point); ok {
		return spatial.Coord{X: p.X(), Y: p.Y()}, nil
	}
	c, err := xy.Centroid(g)
	if err != nil {
		return spatial.Coord{}, eris.Wrap(err, "layer: centroid")
	}
	return spatial.Coord{X: c.X(), Y: c.Y()}, nil
}
