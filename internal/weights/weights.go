// Package weights derives spatial weights from a neighbor graph.
package weights

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/neighbor"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

// Style selects weight normalization.
type Style string

// Weight styles. The single-letter aliases follow the spdep convention.
const (
	StyleBinary          Style = "binary"
	StyleRowStandardized Style = "row_standardized"
)

// DefaultDistanceFloor replaces centroid distances below it when computing
// 1/d decay weights, so coincident centroids get a large finite weight.
const DefaultDistanceFloor = 1e-6

// ParseStyle resolves a style name.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "b":
		return StyleBinary, nil
	case "row_standardized", "row-standardized", "row", "w":
		return StyleRowStandardized, nil
	}
	return "", eris.Wrapf(spatial.ErrInvalidParameter, "weights: unknown style %q", s)
}

// Options configures Derive.
type Options struct {
	Style       Style
	Decay       bool
	SelfInclude bool
	// DistanceFloor defaults to DefaultDistanceFloor when zero.
	DistanceFloor float64
}

// Weights holds, per entity, parallel neighbor index and weight sequences.
type Weights struct {
	Neighbors    [][]int     `json:"neighbors" yaml:"neighbors"`
	Values       [][]float64 `json:"weights" yaml:"weights"`
	Style        Style       `json:"style" yaml:"style"`
	Decay        bool        `json:"decay" yaml:"decay"`
	SelfIncluded bool        `json:"self_included" yaml:"self_included"`
}

// Derive builds the weights structure for g. coords are only read when
// Decay is set. g is never modified.
func Derive(g *neighbor.Graph, coords []spatial.Coord, opts Options) (*Weights, error) {
	if g == nil || g.Len() == 0 {
		return nil, eris.Wrap(spatial.ErrInsufficientData, "weights: empty graph")
	}
	if opts.Style != StyleBinary && opts.Style != StyleRowStandardized {
		return nil, eris.Wrapf(spatial.ErrInvalidParameter, "weights: unknown style %q", opts.Style)
	}
	if opts.Decay && len(coords) != g.Len() {
		return nil, eris.Wrapf(spatial.ErrInvalidParameter, "weights: decay needs %d coordinates, got %d", g.Len(), len(coords))
	}
	floor := opts.DistanceFloor
	if floor == 0 {
		floor = DefaultDistanceFloor
	}
	if floor < 0 {
		return nil, eris.Wrapf(spatial.ErrInvalidParameter, "weights: negative distance floor %g", floor)
	}

	src := g
	if opts.SelfInclude && !g.SelfIncluded {
		src = g.WithSelf()
	}

	w := &Weights{
		Neighbors:    make([][]int, src.Len()),
		Values:       make([][]float64, src.Len()),
		Style:        opts.Style,
		Decay:        opts.Decay,
		SelfIncluded: src.SelfIncluded,
	}

	if opts.Decay && opts.Style == StyleBinary {
		zap.L().Debug("weights: decay has no effect on binary weights")
	}

	for i, nb := range src.Neighbors {
		w.Neighbors[i] = append([]int(nil), nb...)
		row := make([]float64, len(nb))
		if opts.Style == StyleBinary {
			for k := range row {
				row[k] = 1
			}
			w.Values[i] = row
			continue
		}

		if opts.Decay {
			decayRow(i, nb, coords, floor, row)
		} else {
			for k := range row {
				row[k] = 1
			}
		}

		var sum float64
		for _, v := range row {
			sum += v
		}
		if sum > 0 {
			for k := range row {
				row[k] /= sum
			}
		}
		w.Values[i] = row
	}
	return w, nil
}

// decayRow fills row with 1/d weights. A self neighbor gets the largest
// weight of its row, or 1 when it is the only entry.
func decayRow(i int, nb []int, coords []spatial.Coord, floor float64, row []float64) {
	self := -1
	maxW := 0.0
	for k, j := range nb {
		if j == i {
			self = k
			continue
		}
		d := math.Max(coords[i].Distance(coords[j]), floor)
		row[k] = 1 / d
		maxW = math.Max(maxW, row[k])
	}
	if self >= 0 {
		if maxW == 0 {
			maxW = 1
		}
		row[self] = maxW
	}
}

// Len returns the number of entities.
func (w *Weights) Len() int {
	return len(w.Neighbors)
}

// Has reports whether j is a weighted neighbor of i.
func (w *Weights) Has(i, j int) bool {
	nb := w.Neighbors[i]
	k := sort.SearchInts(nb, j)
	return k < len(nb) && nb[k] == j
}

// Weight returns w_ij, zero when j is not a neighbor of i.
func (w *Weights) Weight(i, j int) float64 {
	nb := w.Neighbors[i]
	k := sort.SearchInts(nb, j)
	if k < len(nb) && nb[k] == j {
		return w.Values[i][k]
	}
	return 0
}

// Isolates returns entities with an empty weight row.
func (w *Weights) Isolates() []int {
	var out []int
	for i, nb := range w.Neighbors {
		if len(nb) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// RowSums returns the sum of every weight row.
func (w *Weights) RowSums() []float64 {
	out := make([]float64, w.Len())
	for i, row := range w.Values {
		for _, v := range row {
			out[i] += v
		}
	}
	return out
}

// S0 is the sum of all weights.
func (w *Weights) S0() float64 {
	var s float64
	for _, row := range w.Values {
		for _, v := range row {
			s += v
		}
	}
	return s
}

// S1 is ½ Σᵢⱼ (wᵢⱼ + wⱼᵢ)².
func (w *Weights) S1() float64 {
	var s float64
	for i, nb := range w.Neighbors {
		for k, j := range nb {
			v := w.Values[i][k] + w.Weight(j, i)
			s += v * v
		}
	}
	// Pairs present only as wⱼᵢ were not visited from row i.
	for i, nb := range w.Neighbors {
		for k, j := range nb {
			if !w.Has(j, i) {
				v := w.Values[i][k]
				s += v * v
			}
		}
	}
	return s / 2
}

// S2 is Σᵢ (wᵢ. + w.ᵢ)².
func (w *Weights) S2() float64 {
	rows := w.RowSums()
	cols := make([]float64, w.Len())
	for i, nb := range w.Neighbors {
		for k, j := range nb {
			cols[j] += w.Values[i][k]
		}
	}
	var s float64
	for i := range rows {
		v := rows[i] + cols[i]
		s += v * v
	}
	return s
}

// Lag returns Σⱼ wᵢⱼ xⱼ for every entity.
func (w *Weights) Lag(x []float64) []float64 {
	out := make([]float64, w.Len())
	for i, nb := range w.Neighbors {
		for k, j := range nb {
			out[i] += w.Values[i][k] * x[j]
		}
	}
	return out
}

// Dense expands the weights to an N×N matrix.
func (w *Weights) Dense() [][]float64 {
	n := w.Len()
	out := make([][]float64, n)
	for i, nb := range w.Neighbors {
		out[i] = make([]float64, n)
		for k, j := range nb {
			out[i][j] = w.Values[i][k]
		}
	}
	return out
}
