// Package export projects analysis reports onto files, spreadsheets and
// database tables.
package export

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/layer"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

// maxIDList caps the nb_ids attribute so it fits a dBASE character field.
const maxIDList = 254

// NeighborLines returns one centroid-to-centroid line per link of the
// report's graph. Symmetric pairs are listed once.
func NeighborLines(r *analysis.Report) (*layer.FeatureTable, error) {
	if err := requireSource(r); err != nil {
		return nil, err
	}
	coords := r.Source.Coords()
	ids := r.Source.IDs()

	t := newTable(r, "neighbors", []layer.Column{
		{Name: "from_id", Kind: layer.KindText},
		{Name: "to_id", Kind: layer.KindText},
		{Name: "distance", Kind: layer.KindReal},
	})
	for _, e := range r.Graph.Edges(coords, true) {
		a, b := coords[e.From], coords[e.To]
		line := geom.NewLineStringFlat(geom.XY, []float64{a.X, a.Y, b.X, b.Y})
		t.Features = append(t.Features, layer.Feature{
			Geometry: line,
			Values:   []any{ids[e.From], ids[e.To], e.Distance},
		})
	}
	return t, nil
}

// Polygons returns the input geometries annotated with their neighbor lists.
func Polygons(r *analysis.Report) (*layer.FeatureTable, error) {
	if err := requireSource(r); err != nil {
		return nil, err
	}
	ids := r.Source.IDs()

	t := newTable(r, "polygons", []layer.Column{
		{Name: "id", Kind: layer.KindText},
		{Name: "value", Kind: layer.KindReal},
		{Name: "nb_ids", Kind: layer.KindText},
		{Name: "nb_count", Kind: layer.KindInteger},
	})
	for i, e := range r.Source.Entities {
		var names []string
		for _, j := range r.Graph.Neighbors[i] {
			if j != i {
				names = append(names, ids[j])
			}
		}
		t.Features = append(t.Features, layer.Feature{
			Geometry: e.Geometry,
			Values:   []any{ids[i], e.Value, joinIDs(names), len(names)},
		})
	}
	return t, nil
}

// LocalFeatures returns the input geometries with the local statistic of
// every entity attached.
func LocalFeatures(r *analysis.Report) (*layer.FeatureTable, error) {
	if err := requireSource(r); err != nil {
		return nil, err
	}
	if r.Local == nil {
		return nil, eris.Wrap(spatial.ErrInvalidParameter, "export: report has no local result")
	}
	if len(r.Local.Records) != r.Source.Len() {
		return nil, eris.Wrapf(spatial.ErrInvalidInput, "export: %d records for %d entities", len(r.Local.Records), r.Source.Len())
	}

	t := newTable(r, "local", []layer.Column{
		{Name: "id", Kind: layer.KindText},
		{Name: "value", Kind: layer.KindReal},
		{Name: "lag", Kind: layer.KindReal},
		{Name: "observed", Kind: layer.KindReal},
		{Name: "expected", Kind: layer.KindReal},
		{Name: "variance", Kind: layer.KindReal},
		{Name: "z_score", Kind: layer.KindReal},
		{Name: "p_value", Kind: layer.KindReal},
		{Name: "quadrant", Kind: layer.KindText},
		{Name: "quad_mean", Kind: layer.KindText},
		{Name: "quad_med", Kind: layer.KindText},
		{Name: "cluster", Kind: layer.KindText},
		{Name: "isolate", Kind: layer.KindInteger},
		{Name: "undefined", Kind: layer.KindInteger},
	})
	for i, rec := range r.Local.Records {
		t.Features = append(t.Features, layer.Feature{
			Geometry: r.Source.Entities[i].Geometry,
			Values: []any{
				rec.ID, rec.Value, rec.Lag, rec.Observed, rec.Expected,
				rec.Variance, rec.ZScore, rec.PValue, rec.Quadrant, rec.QuadrantMean, rec.QuadrantMedian,
				rec.Cluster, boolInt(rec.Isolate), boolInt(rec.Undefined),
			},
		})
	}
	return t, nil
}

func requireSource(r *analysis.Report) error {
	if r == nil || r.Source == nil || r.Graph == nil {
		return eris.Wrap(spatial.ErrInvalidParameter, "export: report has no source layer or graph")
	}
	if r.Graph.Len() != r.Source.Len() {
		return eris.Wrapf(spatial.ErrInvalidInput, "export: graph has %d entities, layer %d", r.Graph.Len(), r.Source.Len())
	}
	return nil
}

func newTable(r *analysis.Report, suffix string, cols []layer.Column) *layer.FeatureTable {
	name := r.Source.Name
	if name == "" {
		name = "layer"
	}
	return &layer.FeatureTable{
		Name:       name + "_" + suffix,
		SRID:       r.Source.SRID,
		Geographic: r.Source.Geographic,
		Columns:    cols,
	}
}

// joinIDs renders a neighbor list, truncating at maxIDList characters.
func joinIDs(ids []string) string {
	s := strings.Join(ids, ",")
	if len(s) <= maxIDList {
		return s
	}
	cut := strings.LastIndex(s[:maxIDList-4], ",")
	if cut < 0 {
		cut = maxIDList - 4
	}
	return s[:cut] + ",..."
}

// recordHeader names the columns of the workbook records sheet.
var recordHeader = []string{"index", "id", "value", "lag", "observed", "z_score", "p_value", "quadrant", "cluster"}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
