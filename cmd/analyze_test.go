package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/layer"
	"github.com/sells-group/spatial-cli/internal/stats"
)

func TestAnalyze_GlobalWritesReport(t *testing.T) {
	c := useTestConfig(t)
	c.Input.Path = writeGrid(t, c.Output.Dir)
	c.Input.ValueField = "value"
	c.Input.IDField = "zone"
	c.Input.Projected = true
	c.Output.Report = filepath.Join(c.Output.Dir, "report.json")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	r, err := analyze(context.Background(), cmd)
	require.NoError(t, err)
	require.NotNil(t, r.Global)
	assert.Equal(t, stats.NameMoranI, r.Global.Statistic)
	assert.Contains(t, out.String(), stats.NameMoranI)

	raw, err := os.ReadFile(c.Output.Report)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, r.RunID, got["run_id"])
}

func TestAnalyze_LocalFeatures(t *testing.T) {
	c := useTestConfig(t)
	c.Input.Path = writeGrid(t, c.Output.Dir)
	c.Input.ValueField = "value"
	c.Input.IDField = "zone"
	c.Input.Projected = true
	c.Analysis.Scope = analysis.ScopeLocal
	c.Analysis.Statistic = analysis.StatGStar

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	r, err := analyze(context.Background(), cmd)
	require.NoError(t, err)
	require.NotNil(t, r.Local)
	assert.Len(t, r.Local.Records, 9)
	assert.Equal(t, "z0", r.Local.Records[0].ID)
}

func TestAnalyze_InvalidConfig(t *testing.T) {
	c := useTestConfig(t)
	c.Analysis.Statistic = "ripley"

	_, err := analyze(context.Background(), &cobra.Command{})
	assert.Error(t, err)
}

func TestWriteNeighborOutputs(t *testing.T) {
	c := useTestConfig(t)
	ctx := context.Background()
	l, err := layer.Open(ctx, layer.Source{Path: writeGrid(t, c.Output.Dir), IDField: "zone", ValueField: "value", Projected: true}, nil)
	require.NoError(t, err)
	r, err := analysis.Connect(ctx, l, c.Analysis)
	require.NoError(t, err)

	dir := c.Output.Dir
	neighborsLines = filepath.Join(dir, "lines.shp")
	neighborsPolygons = filepath.Join(dir, "polygons.gpkg")
	neighborsWeights = filepath.Join(dir, "w.csv")
	neighborsEdges = filepath.Join(dir, "edges.csv")
	t.Cleanup(func() { neighborsLines, neighborsPolygons, neighborsWeights, neighborsEdges = "", "", "", "" })

	require.NoError(t, writeNeighborOutputs(ctx, r))
	for _, p := range []string{neighborsLines, neighborsPolygons, neighborsWeights, neighborsEdges} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size(), p)
	}
}
