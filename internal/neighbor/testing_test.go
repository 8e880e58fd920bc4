package neighbor

import (
	"strconv"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// squareGrid returns rows*cols unit squares indexed row-major.
func squareGrid(rows, cols int) *spatial.Layer {
	l := &spatial.Layer{}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x, y := float64(c), float64(r)
			idx := len(l.Entities)
			l.Entities = append(l.Entities, spatial.Entity{
				Index:    idx,
				ID:       strconv.Itoa(idx),
				Geometry: rect(x, y, x+1, y+1),
				Centroid: spatial.Coord{X: x + 0.5, Y: y + 0.5},
				Value:    float64(idx),
			})
		}
	}
	return l
}

func rect(minX, minY, maxX, maxY float64) *geom.Polygon {
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY,
	})
	p := geom.NewPolygon(geom.XY)
	if err := p.Push(ring); err != nil {
		panic(err)
	}
	return p
}

func pointLayer(xy ...float64) *spatial.Layer {
	coords := make([]spatial.Coord, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		coords = append(coords, spatial.Coord{X: xy[i], Y: xy[i+1]})
	}
	l, err := spatial.NewPointLayer(coords, make([]float64, len(coords)))
	if err != nil {
		panic(err)
	}
	return l
}
