package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/config"
	"github.com/sells-group/spatial-cli/internal/db"
	"github.com/sells-group/spatial-cli/internal/layer"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

// layerFlags override the input section of the config.
type layerFlags struct {
	path        string
	table       string
	idField     string
	valueField  string
	geomField   string
	projected   bool
	webMercator bool
}

func addLayerFlags(cmd *cobra.Command, f *layerFlags) {
	fs := cmd.Flags()
	fs.StringVarP(&f.path, "input", "i", "", "input layer: .shp, .gpkg, .geojson or postgis:<table>")
	fs.StringVar(&f.table, "table", "", "GeoPackage table (default first feature table)")
	fs.StringVar(&f.idField, "id-field", "", "identifier attribute (default record index)")
	fs.StringVar(&f.valueField, "field", "", "numeric attribute to analyse")
	fs.StringVar(&f.geomField, "geom-field", "", "PostGIS geometry column")
	fs.BoolVar(&f.projected, "projected", false, "treat GeoJSON coordinates as projected")
	fs.BoolVar(&f.webMercator, "web-mercator", false, "reproject geographic input to EPSG:3857")
}

func (f *layerFlags) apply(cmd *cobra.Command, in *config.InputConfig) {
	fs := cmd.Flags()
	if fs.Changed("input") {
		in.Path = f.path
	}
	if fs.Changed("table") {
		in.Table = f.table
	}
	if fs.Changed("id-field") {
		in.IDField = f.idField
	}
	if fs.Changed("field") {
		in.ValueField = f.valueField
	}
	if fs.Changed("geom-field") {
		in.GeomField = f.geomField
	}
	if fs.Changed("projected") {
		in.Projected = f.projected
	}
	if fs.Changed("web-mercator") {
		in.WebMercator = f.webMercator
	}
}

// analysisFlags override the analysis section of the config.
type analysisFlags struct {
	policy      string
	mode        string
	dMin        float64
	dMax        float64
	k           int
	style       string
	decay       bool
	self        bool
	statistic   string
	assumption  string
	alternative string
	alpha       float64
	snap        float64
}

func addAnalysisFlags(cmd *cobra.Command, f *analysisFlags, withStatistic bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.policy, "policy", "", "neighbor policy: contiguity, distance or knn")
	fs.StringVar(&f.mode, "mode", "", "contiguity mode: queen or rook")
	fs.Float64Var(&f.dMin, "d-min", 0, "distance band lower bound")
	fs.Float64Var(&f.dMax, "d-max", 0, "distance band upper bound")
	fs.IntVar(&f.k, "k", 0, "neighbors per entity for knn")
	fs.StringVar(&f.style, "style", "", "weight style: binary or row_standardized")
	fs.BoolVar(&f.decay, "decay", false, "inverse-distance decay weights")
	fs.Float64Var(&f.snap, "snap", 0, "contiguity snap tolerance")
	if !withStatistic {
		return
	}
	fs.StringVarP(&f.statistic, "statistic", "s", "", "moran, geary, g or gstar")
	fs.BoolVar(&f.self, "self", false, "include entities as their own neighbors (G* only)")
	fs.StringVar(&f.assumption, "assumption", "", "randomization or normality")
	fs.StringVar(&f.alternative, "alternative", "", "two.sided, greater or less")
	fs.Float64Var(&f.alpha, "alpha", 0, "significance threshold")
}

func (f *analysisFlags) apply(cmd *cobra.Command, c *analysis.Config) {
	fs := cmd.Flags()
	set := map[string]func(){
		"policy":      func() { c.NeighborPolicy = f.policy },
		"mode":        func() { c.ContiguityMode = f.mode },
		"d-min":       func() { c.DMin = f.dMin },
		"d-max":       func() { c.DMax = f.dMax },
		"k":           func() { c.K = f.k },
		"style":       func() { c.WeightStyle = f.style },
		"decay":       func() { c.UseDecay = f.decay },
		"snap":        func() { c.SnapTolerance = f.snap },
		"statistic":   func() { c.Statistic = f.statistic },
		"self":        func() { c.SelfInclude = f.self },
		"assumption":  func() { c.Assumption = f.assumption },
		"alternative": func() { c.Alternative = f.alternative },
		"alpha":       func() { c.SignificanceThreshold = f.alpha },
	}
	for name, fn := range set {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			fn()
		}
	}
}

// openInput loads the configured layer. The returned close func releases the
// database pool when one was opened.
func openInput(ctx context.Context, in config.InputConfig) (*spatial.Layer, func(), error) {
	src := layer.Source{
		Path:        in.Path,
		Table:       in.Table,
		IDField:     in.IDField,
		ValueField:  in.ValueField,
		GeomField:   in.GeomField,
		Projected:   in.Projected,
		WebMercator: in.WebMercator,
	}
	noop := func() {}
	if !strings.HasPrefix(in.Path, layer.PostGISScheme) {
		l, err := layer.Open(ctx, src, nil)
		return l, noop, err
	}

	pool, err := db.Connect(ctx, cfg.PostGIS.DatabaseURL)
	if err != nil {
		return nil, noop, err
	}
	l, err := layer.Open(ctx, src, pool)
	if err != nil {
		pool.Close()
		return nil, noop, err
	}
	return l, pool.Close, nil
}

func logLayer(l *spatial.Layer) {
	zap.L().Info("layer loaded",
		zap.String("layer", l.Name),
		zap.String("field", l.ValueField),
		zap.Int("entities", l.Len()),
		zap.Bool("geographic", l.Geographic),
	)
}
