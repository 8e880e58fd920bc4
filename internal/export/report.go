package export

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/spatial"
	"github.com/sells-group/spatial-cli/internal/stats"
)

// WriteReportText writes a plain-text summary of r.
func WriteReportText(w io.Writer, r *analysis.Report) error {
	if r == nil {
		return eris.Wrap(spatial.ErrInvalidParameter, "export: nil report")
	}
	var b strings.Builder
	s := r.Summary

	fmt.Fprintf(&b, "Run        %s\n", r.RunID)
	fmt.Fprintf(&b, "Layer      %s (%s)\n", r.Layer, r.Field)
	if r.Graph != nil {
		fmt.Fprintf(&b, "Neighbors  %s\n", r.Graph.Description)
	}
	fmt.Fprintf(&b, "Weights    %s\n", r.Config.WeightStyle)
	fmt.Fprintf(&b, "\n%-22s %d\n", "Regions", s.Regions)
	fmt.Fprintf(&b, "%-22s %d\n", "Links", s.Links)
	fmt.Fprintf(&b, "%-22s %.4f\n", "Percent nonzero", s.PercentNonzero)
	fmt.Fprintf(&b, "%-22s %.4f\n", "Average links", s.AverageLinks)
	fmt.Fprintf(&b, "%-22s %d..%d\n", "Links per region", s.MinLinks, s.MaxLinks)
	fmt.Fprintf(&b, "%-22s %d\n", "Components", s.Components)
	fmt.Fprintf(&b, "%-22s %d\n", "Isolates", len(s.Isolates))

	if g := r.Global; g != nil {
		fmt.Fprintf(&b, "\n%s (%s, %s)\n", g.Statistic, g.Assumption, g.Alternative)
		fmt.Fprintf(&b, "%-22s %.6f\n", "Observed", g.Observed)
		fmt.Fprintf(&b, "%-22s %.6f\n", "Expected", g.Expected)
		fmt.Fprintf(&b, "%-22s %.6g\n", "Variance", g.Variance)
		fmt.Fprintf(&b, "%-22s %.4f\n", "z-score", g.ZScore)
		fmt.Fprintf(&b, "%-22s %.4g\n", "p-value", g.PValue)
		fmt.Fprintf(&b, "%-22s %s\n", "Result", g.Label)
	}
	if l := r.Local; l != nil {
		fmt.Fprintf(&b, "\n%s (%s, alpha %g)\n", l.Statistic, l.Alternative, l.Significance)
		for _, c := range clusterCounts(l) {
			fmt.Fprintf(&b, "%-22s %d\n", c.Label, c.Count)
		}
	}
	if len(r.Timings) > 0 {
		b.WriteString("\n")
		for _, t := range r.Timings {
			fmt.Fprintf(&b, "%-22s %dms\n", t.Stage, t.DurationMs)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "export: write text report")
	}
	return nil
}

// ClusterCount is one row of a cluster tally.
type ClusterCount struct {
	Label string
	Count int
}

// clusterCounts returns the tally sorted by label.
func clusterCounts(l *stats.LocalResult) []ClusterCount {
	counts := l.ClusterCounts()
	out := make([]ClusterCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, ClusterCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"f": func(v float64) string { return fmt.Sprintf("%.6g", v) },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Report.Layer}} {{.Report.Field}}</title></head>
<body>
<h1>{{.Report.Layer}}: {{.Report.Field}}</h1>
<p>Run {{.Report.RunID}}{{if .Report.Graph}}, {{.Report.Graph.Description}}{{end}}, {{.Report.Config.WeightStyle}} weights</p>
<h2>Connectivity</h2>
<table>
<tr><th>Regions</th><td>{{.Report.Summary.Regions}}</td></tr>
<tr><th>Links</th><td>{{.Report.Summary.Links}}</td></tr>
<tr><th>Average links</th><td>{{f .Report.Summary.AverageLinks}}</td></tr>
<tr><th>Components</th><td>{{.Report.Summary.Components}}</td></tr>
<tr><th>Isolates</th><td>{{len .Report.Summary.Isolates}}</td></tr>
</table>
{{with .Report.Global}}
<h2>{{.Statistic}}</h2>
<table>
<tr><th>Observed</th><td>{{f .Observed}}</td></tr>
<tr><th>Expected</th><td>{{f .Expected}}</td></tr>
<tr><th>Variance</th><td>{{f .Variance}}</td></tr>
<tr><th>z-score</th><td>{{f .ZScore}}</td></tr>
<tr><th>p-value</th><td>{{f .PValue}}</td></tr>
<tr><th>Result</th><td>{{.Label}}</td></tr>
</table>
{{end}}
{{with .Report.Local}}
<h2>{{.Statistic}}</h2>
<table>
{{range $.Clusters}}<tr><th>{{.Label}}</th><td>{{.Count}}</td></tr>
{{end}}</table>
<table>
<tr><th>id</th><th>value</th><th>z</th><th>p</th><th>cluster</th></tr>
{{range .Records}}<tr><td>{{.ID}}</td><td>{{f .Value}}</td><td>{{f .ZScore}}</td><td>{{f .PValue}}</td><td>{{.Cluster}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`))

// WriteReportHTML writes a standalone HTML page for r.
func WriteReportHTML(w io.Writer, r *analysis.Report) error {
	if r == nil {
		return eris.Wrap(spatial.ErrInvalidParameter, "export: nil report")
	}
	data := struct {
		Report   *analysis.Report
		Clusters []ClusterCount
	}{Report: r}
	if r.Local != nil {
		data.Clusters = clusterCounts(r.Local)
	}
	if err := htmlReport.Execute(w, data); err != nil {
		return eris.Wrap(err, "export: render HTML report")
	}
	return nil
}
