package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/config"
)

func TestFlags_OnlyChangedOverrideConfig(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var lf layerFlags
	var af analysisFlags
	addLayerFlags(cmd, &lf)
	addAnalysisFlags(cmd, &af, true)
	require.NoError(t, cmd.ParseFlags([]string{"-i", "tracts.gpkg", "--field", "income", "--k", "6", "--policy", "knn", "-s", "gstar", "--alpha", "0.1"}))

	in := config.InputConfig{Path: "old.shp", IDField: "GEOID", GeomField: "geom"}
	lf.apply(cmd, &in)
	assert.Equal(t, "tracts.gpkg", in.Path)
	assert.Equal(t, "income", in.ValueField)
	assert.Equal(t, "GEOID", in.IDField, "unchanged flags keep config values")
	assert.Equal(t, "geom", in.GeomField)

	c := analysis.DefaultConfig()
	c.WeightStyle = "binary"
	af.apply(cmd, &c)
	assert.Equal(t, 6, c.K)
	assert.Equal(t, "knn", c.NeighborPolicy)
	assert.Equal(t, "gstar", c.Statistic)
	assert.InDelta(t, 0.1, c.SignificanceThreshold, 1e-12)
	assert.Equal(t, "binary", c.WeightStyle)
	assert.Equal(t, "randomization", c.Assumption)
}

func TestFlags_WithoutStatistic(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var af analysisFlags
	addAnalysisFlags(cmd, &af, false)
	require.NoError(t, cmd.ParseFlags([]string{"--style", "binary"}))

	c := analysis.DefaultConfig()
	af.apply(cmd, &c)
	assert.Equal(t, "binary", c.WeightStyle)
	assert.Equal(t, analysis.StatMoran, c.Statistic)
}
