package export

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/spatial"
	"github.com/sells-group/spatial-cli/internal/stats"
	"github.com/sells-group/spatial-cli/internal/weights"
)

// NeighborRow is one link of a neighbor graph in flat form.
type NeighborRow struct {
	From     int     `csv:"from" json:"from"`
	To       int     `csv:"to" json:"to"`
	FromID   string  `csv:"from_id" json:"from_id"`
	ToID     string  `csv:"to_id" json:"to_id"`
	Distance float64 `csv:"distance" json:"distance"`
	Weight   float64 `csv:"weight" json:"weight"`
}

// NeighborRows lists every directed link of the report's graph with its
// weight. Self links appear when the weights include them.
func NeighborRows(r *analysis.Report) ([]NeighborRow, error) {
	if err := requireSource(r); err != nil {
		return nil, err
	}
	if r.Weights == nil {
		return nil, eris.Wrap(spatial.ErrInvalidParameter, "export: report has no weights")
	}
	coords := r.Source.Coords()
	ids := r.Source.IDs()

	var out []NeighborRow
	for i, nb := range r.Weights.Neighbors {
		for k, j := range nb {
			out = append(out, NeighborRow{
				From:     i,
				To:       j,
				FromID:   ids[i],
				ToID:     ids[j],
				Distance: coords[i].Distance(coords[j]),
				Weight:   r.Weights.Values[i][k],
			})
		}
	}
	return out, nil
}

// WriteNeighborsCSV writes NeighborRows as CSV with a header.
func WriteNeighborsCSV(w io.Writer, r *analysis.Report) error {
	rows, err := NeighborRows(r)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(NeighborRow{}); err != nil {
			return eris.Wrap(err, "export: write neighbors header")
		}
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "export: write neighbors row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush neighbors CSV")
}

// WriteLocalCSV writes one row per local record.
func WriteLocalCSV(w io.Writer, r *analysis.Report) error {
	if r == nil || r.Local == nil {
		return eris.Wrap(spatial.ErrInvalidParameter, "export: report has no local result")
	}
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(r.Local.Records) == 0 {
		if err := enc.EncodeHeader(stats.LocalRecord{}); err != nil {
			return eris.Wrap(err, "export: write local header")
		}
	}
	for _, rec := range r.Local.Records {
		if err := enc.Encode(rec); err != nil {
			return eris.Wrap(err, "export: write local row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush local CSV")
}

// WriteWeightsCSV writes the dense weights matrix. The header and first
// column carry the entity ids.
func WriteWeightsCSV(w io.Writer, ids []string, wt *weights.Weights) error {
	if wt == nil {
		return eris.Wrap(spatial.ErrInvalidParameter, "export: nil weights")
	}
	if len(ids) != wt.Len() {
		return eris.Wrapf(spatial.ErrInvalidInput, "export: %d ids for %d weight rows", len(ids), wt.Len())
	}

	cw := csv.NewWriter(w)
	header := append([]string{"id"}, ids...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write weights header")
	}
	row := make([]string, len(ids)+1)
	for i, dense := range wt.Dense() {
		row[0] = ids[i]
		for j, v := range dense {
			row[j+1] = formatFloat(v)
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write weights row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush weights CSV")
}
