package spatial

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// NewGridLayer builds a rows x cols lattice of unit squares, indexed
// row-major from the origin, carrying values in the same order.
func NewGridLayer(rows, cols int, values []float64) (*Layer, error) {
	if rows < 1 || cols < 1 {
		return nil, eris.Wrapf(ErrInvalidParameter, "layer: grid %dx%d", rows, cols)
	}
	if len(values) != rows*cols {
		return nil, eris.Wrapf(ErrInvalidInput, "layer: %d values for a %dx%d grid", len(values), rows, cols)
	}
	l := &Layer{Name: "grid", Entities: make([]Entity, 0, rows*cols)}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x, y := float64(c), float64(r)
			i := len(l.Entities)
			l.Entities = append(l.Entities, Entity{
				Index:    i,
				ID:       strconv.Itoa(i),
				Geometry: square(x, y),
				Centroid: Coord{X: x + 0.5, Y: y + 0.5},
				Value:    values[i],
			})
		}
	}
	return l, nil
}

func square(x, y float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{x, y, x + 1, y, x + 1, y + 1, x, y + 1, x, y}, []int{10})
}
