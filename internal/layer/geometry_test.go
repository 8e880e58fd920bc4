package layer

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

func TestFromShape_PolygonWithHole(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: []shp.Point{
			// Shell, clockwise.
			{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 0},
			// Hole, counter-clockwise.
			{X: 1, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 3}, {X: 1, Y: 3}, {X: 1, Y: 1},
		},
	}
	g, err := fromShape(poly)
	require.NoError(t, err)

	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	require.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
	assert.InDelta(t, 12.0, mp.Area(), 1e-12)
	assert.True(t, xy.IsRingCounterClockwise(geom.XY, mp.Polygon(0).LinearRing(0).FlatCoords()))
	assert.False(t, xy.IsRingCounterClockwise(geom.XY, mp.Polygon(0).LinearRing(1).FlatCoords()))
}

func TestFromShape_TwoShells(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
			{X: 5, Y: 0}, {X: 5, Y: 1}, {X: 6, Y: 1}, {X: 6, Y: 0}, {X: 5, Y: 0},
		},
	}
	g, err := fromShape(poly)
	require.NoError(t, err)
	assert.Equal(t, 2, g.(*geom.MultiPolygon).NumPolygons())
}

func TestFromShape_Unsupported(t *testing.T) {
	_, err := fromShape(&shp.MultiPoint{})
	assert.Error(t, err)
	_, err = fromShape(nil)
	assert.Error(t, err)
}

func TestToShape_OrientsRings(t *testing.T) {
	// square() is counter-clockwise; shapefile shells must be clockwise.
	shape, err := toShape(square(0, 0))
	require.NoError(t, err)
	p, ok := shape.(*shp.Polygon)
	require.True(t, ok)
	require.Len(t, p.Points, 5)

	flat := make([]float64, 0, 10)
	for _, pt := range p.Points {
		flat = append(flat, pt.X, pt.Y)
	}
	assert.False(t, xy.IsRingCounterClockwise(geom.XY, flat))

	back, err := fromShape(p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, back.(*geom.MultiPolygon).Area(), 1e-12)
}

func TestToShape_Lines(t *testing.T) {
	ls := geom.NewLineStringFlat(geom.XY, []float64{0, 0, 3, 4})
	shape, err := toShape(ls)
	require.NoError(t, err)
	pl, ok := shape.(*shp.PolyLine)
	require.True(t, ok)
	assert.Equal(t, int32(1), pl.NumParts)
	assert.Equal(t, shp.Point{X: 3, Y: 4}, pl.Points[1])
}

func TestCentroid(t *testing.T) {
	c, err := centroid(square(2, 3))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, c.X, 1e-12)
	assert.InDelta(t, 3.5, c.Y, 1e-12)

	c, err = centroid(geom.NewPointFlat(geom.XY, []float64{7, 8}))
	require.NoError(t, err)
	assert.Equal(t, 7.0, c.X)
}
