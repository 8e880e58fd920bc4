package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/db"
	"github.com/sells-group/spatial-cli/internal/export"
)

var (
	globalLayer    layerFlags
	globalAnalysis analysisFlags
	globalReport   string

	localLayer    layerFlags
	localAnalysis analysisFlags
	localReport   string
	localOut      string
	localPostGIS  bool
)

var globalCmd = &cobra.Command{
	Use:   "global",
	Short: "Test a layer for global spatial autocorrelation",
	Example: `  spatial-cli global -i tracts.shp --field income
  spatial-cli global -i tracts.gpkg --field income -s geary --policy knn --k 6`,
	RunE: func(cmd *cobra.Command, args []string) error {
		globalLayer.apply(cmd, &cfg.Input)
		globalAnalysis.apply(cmd, &cfg.Analysis)
		cfg.Analysis.Scope = analysis.ScopeGlobal
		if globalReport != "" {
			cfg.Output.Report = globalReport
		}

		r, err := analyze(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		zap.L().Info("global test complete",
			zap.String("run_id", r.RunID),
			zap.String("statistic", r.Global.Statistic),
			zap.Float64("z", r.Global.ZScore),
			zap.String("result", r.Global.Label),
		)
		return nil
	},
}

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Compute a local indicator of spatial association for every entity",
	Example: `  spatial-cli local -i tracts.shp --field income --out clusters.gpkg
  spatial-cli local -i postgis:public.tracts --field income -s gstar --postgis`,
	RunE: func(cmd *cobra.Command, args []string) error {
		localLayer.apply(cmd, &cfg.Input)
		localAnalysis.apply(cmd, &cfg.Analysis)
		cfg.Analysis.Scope = analysis.ScopeLocal
		if localReport != "" {
			cfg.Output.Report = localReport
		}

		ctx := cmd.Context()
		r, err := analyze(ctx, cmd)
		if err != nil {
			return err
		}

		if localOut != "" {
			t, err := export.LocalFeatures(r)
			if err != nil {
				return err
			}
			if err := export.WriteTable(ctx, localOut, t); err != nil {
				return err
			}
			zap.L().Info("local features written", zap.String("path", localOut))
		}
		if localPostGIS {
			pool, err := db.Connect(ctx, cfg.PostGIS.DatabaseURL)
			if err != nil {
				return eris.Wrap(err, "local: connect for results")
			}
			defer pool.Close()
			if _, err := export.WriteLocalPostGIS(ctx, pool, cfg.Output.LocalTable, r); err != nil {
				return err
			}
		}

		zap.L().Info("local analysis complete",
			zap.String("run_id", r.RunID),
			zap.Int("significant", len(r.Local.Significant())),
		)
		return nil
	},
}

func init() {
	addLayerFlags(globalCmd, &globalLayer)
	addAnalysisFlags(globalCmd, &globalAnalysis, true)
	globalCmd.Flags().StringVar(&globalReport, "report", "", "write the report (.json, .yaml, .txt, .html, .xlsx)")
	rootCmd.AddCommand(globalCmd)

	addLayerFlags(localCmd, &localLayer)
	addAnalysisFlags(localCmd, &localAnalysis, true)
	localCmd.Flags().StringVar(&localReport, "report", "", "write the report (.json, .yaml, .txt, .html, .xlsx, .csv)")
	localCmd.Flags().StringVarP(&localOut, "out", "o", "", "write geometries with local results (.shp, .gpkg, .geojson)")
	localCmd.Flags().BoolVar(&localPostGIS, "postgis", false, "upsert local results into output.local_table")
	rootCmd.AddCommand(localCmd)
}

// analyze loads the configured input, runs the configured analysis and
// prints the text report.
func analyze(ctx context.Context, cmd *cobra.Command) (*analysis.Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l, done, err := openInput(ctx, cfg.Input)
	if err != nil {
		return nil, err
	}
	defer done()
	logLayer(l)

	r, err := analysis.Run(ctx, l, cfg.Analysis)
	if err != nil {
		return nil, err
	}
	if err := export.WriteReportText(cmd.OutOrStdout(), r); err != nil {
		return nil, err
	}
	if cfg.Output.Report != "" {
		if err := export.WriteReport(cfg.Output.Report, r, cfg.Output.IncludeWeights); err != nil {
			return nil, err
		}
		zap.L().Info("report written", zap.String("path", cfg.Output.Report))
	}
	return r, nil
}
