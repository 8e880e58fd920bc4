package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/export"
)

var (
	neighborsLayer    layerFlags
	neighborsAnalysis analysisFlags
	neighborsLines    string
	neighborsPolygons string
	neighborsWeights  string
	neighborsEdges    string
)

var neighborsCmd = &cobra.Command{
	Use:   "neighbors",
	Short: "Build a neighbor graph and weights and describe their connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		neighborsLayer.apply(cmd, &cfg.Input)
		neighborsAnalysis.apply(cmd, &cfg.Analysis)

		l, done, err := openInput(ctx, cfg.Input)
		if err != nil {
			return err
		}
		defer done()
		logLayer(l)

		r, err := analysis.Connect(ctx, l, cfg.Analysis)
		if err != nil {
			return err
		}
		if err := export.WriteReportText(cmd.OutOrStdout(), r); err != nil {
			return err
		}
		return writeNeighborOutputs(ctx, r)
	},
}

func init() {
	addLayerFlags(neighborsCmd, &neighborsLayer)
	addAnalysisFlags(neighborsCmd, &neighborsAnalysis, false)
	neighborsCmd.Flags().StringVar(&neighborsLines, "lines", "", "write centroid-to-centroid links (.shp, .gpkg, .geojson)")
	neighborsCmd.Flags().StringVar(&neighborsPolygons, "polygons", "", "write input geometries with neighbor lists")
	neighborsCmd.Flags().StringVar(&neighborsWeights, "weights-csv", "", "write the dense weights matrix as CSV")
	neighborsCmd.Flags().StringVar(&neighborsEdges, "edges-csv", "", "write one CSV row per directed link")
	rootCmd.AddCommand(neighborsCmd)
}

func writeNeighborOutputs(ctx context.Context, r *analysis.Report) error {
	if neighborsLines != "" {
		t, err := export.NeighborLines(r)
		if err != nil {
			return err
		}
		if err := export.WriteTable(ctx, neighborsLines, t); err != nil {
			return err
		}
		zap.L().Info("neighbor lines written", zap.String("path", neighborsLines), zap.Int("links", len(t.Features)))
	}
	if neighborsPolygons != "" {
		t, err := export.Polygons(r)
		if err != nil {
			return err
		}
		if err := export.WriteTable(ctx, neighborsPolygons, t); err != nil {
			return err
		}
		zap.L().Info("neighbor polygons written", zap.String("path", neighborsPolygons))
	}
	if neighborsWeights != "" {
		if err := writeFile(neighborsWeights, func(f *os.File) error {
			return export.WriteWeightsCSV(f, r.Source.IDs(), r.Weights)
		}); err != nil {
			return err
		}
	}
	if neighborsEdges != "" {
		if err := writeFile(neighborsEdges, func(f *os.File) error {
			return export.WriteNeighborsCSV(f, r)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	zap.L().Info("output written", zap.String("path", path))
	return nil
}
