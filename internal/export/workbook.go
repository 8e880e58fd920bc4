package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

// Workbook sheet names.
const (
	SheetSummary = "Summary"
	SheetRecords = "Local"
	SheetWeights = "Weights"
)

// WriteWorkbook writes r as an XLSX workbook: a summary sheet, the local
// records when present and the dense weights matrix when includeWeights is
// set.
func WriteWorkbook(w io.Writer, r *analysis.Report, includeWeights bool) error {
	if r == nil {
		return eris.Wrap(spatial.ErrInvalidParameter, "export: nil report")
	}
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	pair := func(k string, v any) {
		row := summary.AddRow()
		row.AddCell().SetString(k)
		c := row.AddCell()
		switch t := v.(type) {
		case float64:
			c.SetFloat(t)
		case int:
			c.SetInt(t)
		default:
			c.SetValue(t)
		}
	}
	pair("run_id", r.RunID)
	pair("layer", r.Layer)
	pair("field", r.Field)
	if r.Graph != nil {
		pair("neighbors", r.Graph.Description)
	}
	pair("weight_style", r.Config.WeightStyle)
	pair("regions", r.Summary.Regions)
	pair("links", r.Summary.Links)
	pair("average_links", r.Summary.AverageLinks)
	pair("components", r.Summary.Components)
	pair("isolates", len(r.Summary.Isolates))
	if g := r.Global; g != nil {
		pair("statistic", g.Statistic)
		pair("observed", g.Observed)
		pair("expected", g.Expected)
		pair("variance", g.Variance)
		pair("z_score", g.ZScore)
		pair("p_value", g.PValue)
		pair("result", g.Label)
	}

	if l := r.Local; l != nil {
		pair("statistic", l.Statistic)
		for _, c := range clusterCounts(l) {
			pair(c.Label, c.Count)
		}
		sheet, err := f.AddSheet(SheetRecords)
		if err != nil {
			return eris.Wrap(err, "export: add records sheet")
		}
		stringRow(sheet.AddRow(), recordHeader)
		for _, rec := range l.Records {
			row := sheet.AddRow()
			row.AddCell().SetInt(rec.Index)
			row.AddCell().SetString(rec.ID)
			for _, v := range []float64{rec.Value, rec.Lag, rec.Observed, rec.ZScore, rec.PValue} {
				row.AddCell().SetFloat(v)
			}
			row.AddCell().SetString(rec.Quadrant)
			row.AddCell().SetString(rec.Cluster)
		}
	}

	if includeWeights && r.Weights != nil && r.Source != nil {
		sheet, err := f.AddSheet(SheetWeights)
		if err != nil {
			return eris.Wrap(err, "export: add weights sheet")
		}
		ids := r.Source.IDs()
		stringRow(sheet.AddRow(), append([]string{"id"}, ids...))
		for i, dense := range r.Weights.Dense() {
			row := sheet.AddRow()
			row.AddCell().SetString(ids[i])
			for _, v := range dense {
				row.AddCell().SetFloat(v)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func stringRow(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
