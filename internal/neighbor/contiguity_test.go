package neighbor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

func seg(ax, ay, bx, by float64) edge {
	return edge{a: geom.Coord{ax, ay}, b: geom.Coord{bx, by}}
}

func TestSharedLength(t *testing.T) {
	tests := []struct {
		name string
		s, t edge
		tol  float64
		want float64
	}{
		{name: "partial overlap", s: seg(0, 0, 4, 0), t: seg(3, 0, 6, 0), tol: 1e-9, want: 1},
		{name: "contained, reversed", s: seg(0, 1, 4, 1), t: seg(2, 1, 1, 1), tol: 1e-9, want: 1},
		{name: "end to end", s: seg(0, 0, 1, 0), t: seg(1, 0, 2, 0), tol: 1e-9, want: 0},
		{name: "crossing", s: seg(0, 0, 2, 2), t: seg(0, 2, 2, 0), tol: 1e-9, want: 0},
		{name: "parallel apart", s: seg(0, 0, 4, 0), t: seg(0, 1, 4, 1), tol: 1e-9, want: 0},
		{name: "nearly collinear within snap", s: seg(0, 0, 4, 0), t: seg(1, 0.001, 3, 0.001), tol: 0.01, want: 2},
		{name: "nearly collinear beyond snap", s: seg(0, 0, 4, 0), t: seg(1, 0.1, 3, 0.1), tol: 0.01, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, sharedLength(tt.s, tt.t, tt.tol), 1e-9)
		})
	}
}

func TestPolygonOutline_PadsBounds(t *testing.T) {
	o, err := polygonOutline(rect(0, 0, 2, 1), 0.5)
	require.NoError(t, err)
	assert.Len(t, o.edges, 4)
	assert.Equal(t, -0.5, o.bounds.Min(0))
	assert.Equal(t, 1.5, o.bounds.Max(1))

	_, err = polygonOutline(geom.NewPolygon(geom.XY), 0)
	assert.Error(t, err)
}

func TestBuild_ContiguitySnapTolerance(t *testing.T) {
	// The second square floats 0.001 above the first; only a snap tolerance
	// larger than the gap joins them.
	l := &spatial.Layer{Entities: []spatial.Entity{
		{Index: 0, Geometry: rect(0, 0, 1, 1)},
		{Index: 1, Geometry: rect(0, 1.001, 1, 2)},
		{Index: 2, Geometry: rect(1, 0, 2, 1)},
	}}

	g, err := Build(context.Background(), l, Options{Policy: PolicyContiguity, Mode: ModeRook})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, g.Neighbors[0])
	assert.Empty(t, g.Neighbors[1])

	g, err = Build(context.Background(), l, Options{Policy: PolicyContiguity, Mode: ModeRook, SnapTolerance: 0.01})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, g.Neighbors[0])
	assert.Equal(t, []int{0}, g.Neighbors[1])

	g, err = Build(context.Background(), l, Options{Policy: PolicyContiguity, Mode: ModeQueen, SnapTolerance: 0.01})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, g.Neighbors[1])
}
