package spatial

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestCoordDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Coord{X: 0, Y: 0}.Distance(Coord{X: 3, Y: 4}), 1e-12)
}

func TestNewPointLayer(t *testing.T) {
	l, err := NewPointLayer([]Coord{{X: 1, Y: 2}, {X: 3, Y: 4}}, []float64{10, 20})
	require.NoError(t, err)

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []float64{10, 20}, l.Values())
	assert.Equal(t, []Coord{{X: 1, Y: 2}, {X: 3, Y: 4}}, l.Coords())
	assert.Equal(t, []string{"0", "1"}, l.IDs())
	assert.Len(t, l.Geometries(), 2)
	assert.NoError(t, l.Validate())

	_, err = NewPointLayer([]Coord{{X: 1, Y: 2}}, nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestLayerValidate(t *testing.T) {
	tests := []struct {
		name  string
		layer *Layer
		kind  error
	}{
		{name: "nil", layer: nil, kind: ErrInsufficientData},
		{name: "single", layer: &Layer{Entities: []Entity{{Index: 0}}}, kind: ErrInsufficientData},
		{name: "out of order", layer: &Layer{Entities: []Entity{{Index: 0}, {Index: 5}}}, kind: ErrInvalidInput},
		{name: "nan", layer: &Layer{Entities: []Entity{{Index: 0}, {Index: 1, Value: math.NaN()}}}, kind: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layer.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind))
		})
	}
}

func TestEntityError(t *testing.T) {
	err := NewEntityError(StageStats, 3, ErrInvalidInput, "negative value %g", -1.5)
	assert.Contains(t, err.Error(), "stats: entity 3")
	assert.Contains(t, err.Error(), "negative value -1.5")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrInvalidParameter))
}

func TestIDsFallback(t *testing.T) {
	l := &Layer{Entities: []Entity{{Index: 0, ID: "a"}, {Index: 1}}}
	assert.Equal(t, []string{"a", "1"}, l.IDs())
}

func TestNewGridLayer(t *testing.T) {
	l, err := NewGridLayer(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.Equal(t, 6, l.Len())
	require.NoError(t, l.Validate())

	e := l.Entities[4]
	assert.Equal(t, "4", e.ID)
	assert.Equal(t, Coord{X: 1.5, Y: 1.5}, e.Centroid)
	assert.Equal(t, 5.0, e.Value)
	poly, ok := e.Geometry.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1, 2, 1, 2, 2, 1, 2, 1, 1}, poly.FlatCoords())

	_, err = NewGridLayer(2, 2, []float64{1})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = NewGridLayer(0, 2, nil)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}
