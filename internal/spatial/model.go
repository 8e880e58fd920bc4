// Package spatial holds the data model shared by the neighbor, weights and
// statistics stages.
package spatial

import (
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Coord is a planar coordinate, normally an entity centroid in a projected CRS.
type Coord struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the Euclidean distance between two coordinates.
func (c Coord) Distance(o Coord) float64 {
	return math.Hypot(c.X-o.X, c.Y-o.Y)
}

// Entity is one spatial unit of a layer.
type Entity struct {
	Index    int
	ID       string
	Geometry geom.T
	Centroid Coord
	Value    float64
}

// Layer is the adapter's snapshot of an input layer for one analysis run.
type Layer struct {
	Name       string
	IDField    string
	ValueField string
	SRID       int
	// Geographic is true when coordinates are angular (longitude/latitude).
	Geographic bool
	Entities   []Entity
}

// Len returns the number of entities.
func (l *Layer) Len() int {
	return len(l.Entities)
}

// Values returns the attribute vector ordered by entity index.
func (l *Layer) Values() []float64 {
	out := make([]float64, len(l.Entities))
	for i, e := range l.Entities {
		out[i] = e.Value
	}
	return out
}

// Coords returns the centroid of every entity.
func (l *Layer) Coords() []Coord {
	out := make([]Coord, len(l.Entities))
	for i, e := range l.Entities {
		out[i] = e.Centroid
	}
	return out
}

// Geometries returns the geometry of every entity.
func (l *Layer) Geometries() []geom.T {
	out := make([]geom.T, len(l.Entities))
	for i, e := range l.Entities {
		out[i] = e.Geometry
	}
	return out
}

// IDs returns external identifiers, falling back to the index.
func (l *Layer) IDs() []string {
	out := make([]string, len(l.Entities))
	for i, e := range l.Entities {
		if e.ID == "" {
			out[i] = strconv.Itoa(i)
			continue
		}
		out[i] = e.ID
	}
	return out
}

// Validate checks that entity indices are dense and values are finite.
func (l *Layer) Validate() error {
	if l == nil {
		return eris.Wrap(ErrInsufficientData, "layer: nil layer")
	}
	if len(l.Entities) < 2 {
		return eris.Wrapf(ErrInsufficientData, "layer: %d entities, need at least 2", len(l.Entities))
	}
	for i, e := range l.Entities {
		if e.Index != i {
			return NewEntityError(StageLayer, i, ErrInvalidInput, "index %d out of order", e.Index)
		}
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			return NewEntityError(StageLayer, i, ErrInvalidInput, "non-finite value %v", e.Value)
		}
	}
	return nil
}

// NewPointLayer builds a layer of point entities from coordinates and values.
// It is mostly useful for tests and for callers that already hold centroids.
func NewPointLayer(coords []Coord, values []float64) (*Layer, error) {
	if len(coords) != len(values) {
		return nil, eris.Wrapf(ErrInvalidInput, "layer: %d coordinates but %d values", len(coords), len(values))
	}
	l := &Layer{Entities: make([]Entity, len(coords))}
	for i, c := range coords {
		l.Entities[i] = Entity{
			Index:    i,
			ID:       strconv.Itoa(i),
			Geometry: geom.NewPointFlat(geom.XY, []float64{c.X, c.Y}),
			Centroid: c,
			Value:    values[i],
		}
	}
	return l, nil
}
