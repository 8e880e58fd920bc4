package layer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

const twoSquares = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"a","properties":{"name":"north","pop":10},
 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
{"type":"Feature","id":"b","properties":{"name":"south","pop":"12.5"},
 "geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}}
]}`

func TestReadGeoJSON(t *testing.T) {
	l, err := ReadGeoJSON(strings.NewReader(twoSquares), "zones", "", "pop")
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())
	assert.True(t, l.Geographic)
	assert.Equal(t, []string{"a", "b"}, l.IDs())
	assert.Equal(t, []float64{10, 12.5}, l.Values())
	assert.InDelta(t, 1.5, l.Entities[1].Centroid.X, 1e-12)

	l, err = ReadGeoJSON(strings.NewReader(twoSquares), "zones", "name", "pop")
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "south"}, l.IDs())
}

func TestDecodeFeatureCollection_Projected(t *testing.T) {
	l, err := DecodeFeatureCollection([]byte(twoSquares), "zones", "", "pop", true)
	require.NoError(t, err)
	assert.False(t, l.Geographic)
}

func TestReadGeoJSON_MissingValue(t *testing.T) {
	_, err := ReadGeoJSON(strings.NewReader(twoSquares), "zones", "", "income")
	var ee *spatial.EntityError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 0, ee.Index)
	assert.True(t, errors.Is(err, spatial.ErrInvalidInput))
}

func TestReadGeoJSON_Malformed(t *testing.T) {
	_, err := ReadGeoJSON(strings.NewReader(`{"type":`), "x", "", "v")
	assert.Error(t, err)
}

func TestWriteGeoJSON_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, gridTable(2, 2)))
	assert.Contains(t, buf.String(), `"FeatureCollection"`)

	l, err := ReadGeoJSON(&buf, "grid", "zone_id", "income")
	require.NoError(t, err)
	requireGrid(t, l, 4)
}
