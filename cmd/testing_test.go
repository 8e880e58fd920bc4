package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/config"
)

// useTestConfig installs a default config for the duration of the test.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	c, err := config.Load("")
	require.NoError(t, err)
	c.Output.Dir = dir
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

// gridCollection renders a rows x cols FeatureCollection of unit squares
// with properties zone and value.
func gridCollection(rows, cols int, values []float64) string {
	var features []string
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			x, y := float64(c), float64(r)
			features = append(features, fmt.Sprintf(
				`{"type":"Feature","properties":{"zone":"z%d","value":%g},"geometry":{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}}`,
				i, values[i], x, y, x+1, y, x+1, y+1, x, y+1, x, y))
		}
	}
	return `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`
}

var gridValues = []float64{9, 8, 1, 7, 6, 1, 0, 1, 2}

func writeGrid(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "grid.geojson")
	require.NoError(t, os.WriteFile(path, []byte(gridCollection(3, 3, gridValues)), 0o644))
	return path
}
