package layer

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

func square(x, y float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{x, y, x + 1, y, x + 1, y + 1, x, y + 1, x, y}, []int{10})
}

// gridTable returns a rows x cols table of unit squares with an id and a
// value column.
func gridTable(rows, cols int) *FeatureTable {
	t := &FeatureTable{
		Name:    "grid",
		Columns: []Column{{Name: "zone_id", Kind: KindText}, {Name: "income", Kind: KindReal}, {Name: "n", Kind: KindInteger}},
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			t.Features = append(t.Features, Feature{
				Geometry: square(float64(c), float64(r)),
				Values:   []any{"z" + strconv.Itoa(i), float64(i) * 1.5, i},
			})
		}
	}
	return t
}

func requireGrid(t *testing.T, l *spatial.Layer, n int) {
	t.Helper()
	require.Equal(t, n, l.Len())
	require.NoError(t, l.Validate())
	for i, e := range l.Entities {
		require.Equal(t, "z"+strconv.Itoa(i), e.ID)
		require.InDelta(t, float64(i)*1.5, e.Value, 1e-9)
	}
}
