package layer

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func TestGPKGBlob_RoundTrip(t *testing.T) {
	blob, err := encodeGPKGBlob(square(0, 0), 3857)
	require.NoError(t, err)
	assert.Equal(t, "GP", string(blob[:2]))
	assert.Equal(t, uint32(3857), binary.LittleEndian.Uint32(blob[4:8]))

	g, err := decodeGPKGBlob(blob)
	require.NoError(t, err)
	p, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, square(0, 0).FlatCoords(), p.FlatCoords())
}

func TestGPKGBlob_SkipsEnvelope(t *testing.T) {
	body, err := wkb.Marshal(geom.NewPointFlat(geom.XY, []float64{3, 4}), wkb.NDR)
	require.NoError(t, err)

	// Envelope code 1 is minx, maxx, miny, maxy: 32 bytes.
	blob := []byte{'G', 'P', 0, 0x01 | 1<<1, 0, 0, 0, 0}
	blob = append(blob, make([]byte, 32)...)
	blob = append(blob, body...)

	g, err := decodeGPKGBlob(blob)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, g.FlatCoords())
}

func TestGPKGBlob_Invalid(t *testing.T) {
	_, err := decodeGPKGBlob([]byte("nope"))
	assert.Error(t, err)
	_, err = decodeGPKGBlob([]byte{'G', 'P', 0, 0x11, 0, 0, 0, 0})
	assert.Error(t, err, "empty geometry flag")
	_, err = decodeGPKGBlob([]byte{'G', 'P', 0, 0x03, 0, 0, 0, 0, 1})
	assert.Error(t, err, "truncated envelope")
}

func TestGeoPackage_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gpkg")
	tbl := gridTable(2, 3)
	tbl.SRID = 3857
	require.NoError(t, WriteGeoPackage(context.Background(), path, tbl))

	l, err := ReadGeoPackage(context.Background(), path, "", "zone_id", "income")
	require.NoError(t, err)
	requireGrid(t, l, 6)
	assert.Equal(t, "grid", l.Name)
	assert.Equal(t, 3857, l.SRID)
	assert.False(t, l.Geographic)
	assert.InDelta(t, 2.5, l.Entities[5].Centroid.X, 1e-9)

	// Writing again replaces the file.
	require.NoError(t, WriteGeoPackage(context.Background(), path, gridTable(1, 2)))
	l, err = ReadGeoPackage(context.Background(), path, "grid", "", "n")
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1.0, l.Entities[1].Value)
}

func TestGeoPackage_Geographic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.gpkg")
	tbl := gridTable(1, 2)
	tbl.Geographic = true
	require.NoError(t, WriteGeoPackage(context.Background(), path, tbl))

	l, err := ReadGeoPackage(context.Background(), path, "", "", "income")
	require.NoError(t, err)
	assert.True(t, l.Geographic)
	assert.Equal(t, 4326, l.SRID)
}

func TestReadGeoPackage_Missing(t *testing.T) {
	_, err := ReadGeoPackage(context.Background(), filepath.Join(t.TempDir(), "none.gpkg"), "", "", "v")
	assert.Error(t, err)
}
