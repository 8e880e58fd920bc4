package neighbor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

func TestBuild_QueenRowOfFive(t *testing.T) {
	g, err := Build(context.Background(), squareGrid(1, 5), Options{Policy: PolicyContiguity, Mode: ModeQueen})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 2, 2, 1}, g.Cardinalities())
	assert.Equal(t, []int{1}, g.Neighbors[0])
	assert.Equal(t, []int{3}, g.Neighbors[4])
	assert.Equal(t, []int{1, 3}, g.Neighbors[2])
	assert.Equal(t, "queen contiguity", g.Description)
	assert.True(t, g.IsSymmetric())
}

func TestBuild_QueenVersusRook(t *testing.T) {
	tests := []struct {
		name   string
		mode   Mode
		center []int
		corner []int
	}{
		{name: "queen", mode: ModeQueen, center: []int{0, 1, 2, 3, 5, 6, 7, 8}, corner: []int{1, 3, 4}},
		{name: "rook", mode: ModeRook, center: []int{1, 3, 5, 7}, corner: []int{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Build(context.Background(), squareGrid(3, 3), Options{Policy: PolicyContiguity, Mode: tt.mode})
			require.NoError(t, err)
			assert.Equal(t, tt.center, g.Neighbors[4])
			assert.Equal(t, tt.corner, g.Neighbors[0])
		})
	}
}

func TestBuild_ContiguityVertexOnEdge(t *testing.T) {
	// A small square shares part of a wide rectangle's top edge without
	// sharing any vertex; a third square floats free.
	l := &spatial.Layer{Entities: []spatial.Entity{
		{Index: 0, Geometry: rect(0, 0, 4, 1)},
		{Index: 1, Geometry: rect(1, 1, 2, 2)},
		{Index: 2, Geometry: rect(3, 2, 4, 3)},
	}}
	g, err := Build(context.Background(), l, Options{Policy: PolicyContiguity, Mode: ModeRook})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, g.Neighbors[0])
	assert.Empty(t, g.Neighbors[2])
	assert.Equal(t, []int{2}, g.Isolates())
}

func TestBuild_ContiguityVertexTouch(t *testing.T) {
	// The diamond's bottom vertex rests on the middle of the square's top edge.
	ring := geom.NewLinearRingFlat(geom.XY, []float64{1, 2, 2, 3, 1, 4, 0, 3, 1, 2})
	diamond := geom.NewPolygon(geom.XY)
	require.NoError(t, diamond.Push(ring))

	l := &spatial.Layer{Entities: []spatial.Entity{
		{Index: 0, Geometry: rect(0, 0, 2, 2)},
		{Index: 1, Geometry: diamond},
	}}

	g, err := Build(context.Background(), l, Options{Policy: PolicyContiguity, Mode: ModeQueen})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, g.Neighbors[0])

	_, err = Build(context.Background(), l, Options{Policy: PolicyContiguity, Mode: ModeRook})
	assert.True(t, errors.Is(err, spatial.ErrDegenerateGraph))
}

func TestBuild_ContiguityMultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(rect(10, 10, 11, 11)))
	require.NoError(t, mp.Push(rect(1, 0, 2, 1)))

	l := &spatial.Layer{Entities: []spatial.Entity{
		{Index: 0, Geometry: rect(0, 0, 1, 1)},
		{Index: 1, Geometry: mp},
	}}
	g, err := Build(context.Background(), l, Options{Policy: PolicyContiguity, Mode: ModeRook})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, g.Neighbors[0])
}

func TestBuild_ContiguityRejectsPoints(t *testing.T) {
	_, err := Build(context.Background(), pointLayer(0, 0, 1, 1), Options{Policy: PolicyContiguity, Mode: ModeQueen})
	require.Error(t, err)
	assert.True(t, errors.Is(err, spatial.ErrInvalidInput))

	var ee *spatial.EntityError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, spatial.StageNeighbor, ee.Stage)
	assert.Equal(t, 0, ee.Index)
}

func TestBuild_DistanceBand(t *testing.T) {
	l := pointLayer(0, 0, 1, 0, 2, 0, 3, 0)

	g, err := Build(context.Background(), l, Options{Policy: PolicyDistance, DMax: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1}, {0, 2}, {1, 3}, {2}}, g.Neighbors)

	g, err = Build(context.Background(), l, Options{Policy: PolicyDistance, DMin: 1.5, DMax: 2})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2}, {3}, {0}, {1}}, g.Neighbors)
	assert.Equal(t, "distance band [1.5, 2]", g.Description)
}

func TestBuild_DistanceBandIsolate(t *testing.T) {
	l := pointLayer(0, 0, 1, 0, 50, 50)
	g, err := Build(context.Background(), l, Options{Policy: PolicyDistance, DMax: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, g.Isolates())
}

func TestBuild_KNearestExactlyK(t *testing.T) {
	var xy []float64
	for i := 0; i < 20; i++ {
		xy = append(xy, float64((i*7)%11), float64((i*5)%13))
	}
	l := pointLayer(xy...)

	for k := 1; k < l.Len(); k += 4 {
		g, err := Build(context.Background(), l, Options{Policy: PolicyKNN, K: k})
		require.NoError(t, err)
		for i, nb := range g.Neighbors {
			assert.Len(t, nb, k, "entity %d", i)
			assert.NotContains(t, nb, i)
		}
	}
}

func TestBuild_KNearestTiesAndAsymmetry(t *testing.T) {
	l := pointLayer(0, 0, 1, 0, -1, 0, 5, 0)
	g, err := Build(context.Background(), l, Options{Policy: PolicyKNN, K: 1})
	require.NoError(t, err)

	// Entities 1 and 2 are both at distance 1 from entity 0; the lower index wins.
	assert.Equal(t, []int{1}, g.Neighbors[0])
	assert.Equal(t, []int{1}, g.Neighbors[3])
	assert.False(t, g.IsSymmetric())
	assert.False(t, g.Has(1, 3))
}

func TestBuild_Errors(t *testing.T) {
	geo := pointLayer(0, 0, 1, 1, 2, 2)
	geo.Geographic = true

	tests := []struct {
		name  string
		layer *spatial.Layer
		opts  Options
		kind  error
	}{
		{name: "single entity", layer: pointLayer(0, 0), opts: Options{Policy: PolicyKNN, K: 1}, kind: spatial.ErrInsufficientData},
		{name: "nil layer", layer: nil, opts: Options{Policy: PolicyKNN, K: 1}, kind: spatial.ErrInsufficientData},
		{name: "dmax equals dmin", layer: pointLayer(0, 0, 1, 1), opts: Options{Policy: PolicyDistance, DMin: 1, DMax: 1}, kind: spatial.ErrInvalidParameter},
		{name: "negative dmin", layer: pointLayer(0, 0, 1, 1), opts: Options{Policy: PolicyDistance, DMin: -1, DMax: 1}, kind: spatial.ErrInvalidParameter},
		{name: "k zero", layer: pointLayer(0, 0, 1, 1), opts: Options{Policy: PolicyKNN, K: 0}, kind: spatial.ErrInvalidParameter},
		{name: "k equals n", layer: pointLayer(0, 0, 1, 1), opts: Options{Policy: PolicyKNN, K: 2}, kind: spatial.ErrInvalidParameter},
		{name: "unknown policy", layer: pointLayer(0, 0, 1, 1), opts: Options{Policy: "delaunay"}, kind: spatial.ErrInvalidParameter},
		{name: "geographic knn", layer: geo, opts: Options{Policy: PolicyKNN, K: 1}, kind: spatial.ErrInvalidInput},
		{name: "geographic band", layer: geo, opts: Options{Policy: PolicyDistance, DMax: 5}, kind: spatial.ErrInvalidInput},
		{name: "no links", layer: pointLayer(0, 0, 10, 10), opts: Options{Policy: PolicyDistance, DMax: 1}, kind: spatial.ErrDegenerateGraph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.layer, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, pointLayer(0, 0, 1, 1, 2, 2), Options{Policy: PolicyKNN, K: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParsePolicyAndMode(t *testing.T) {
	p, err := ParsePolicy("knearneigh")
	require.NoError(t, err)
	assert.Equal(t, PolicyKNN, p)

	p, err = ParsePolicy("Distance")
	require.NoError(t, err)
	assert.Equal(t, PolicyDistance, p)

	_, err = ParsePolicy("voronoi")
	assert.True(t, errors.Is(err, spatial.ErrInvalidParameter))

	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeQueen, m)

	_, err = ParseMode("bishop")
	assert.True(t, errors.Is(err, spatial.ErrInvalidParameter))
}
