package stats

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/spatial-cli/internal/spatial"
	"github.com/sells-group/spatial-cli/internal/weights"
)

// Statistic names used in results.
const (
	NameMoranI      = "Moran's I"
	NameGearyC      = "Geary's C"
	NameGetisOrdG   = "Getis-Ord G"
	NameGetisOrdG2  = "Getis-Ord G*"
	NameLocalMoranI = "Local Moran's I"
	NameLocalG      = "Local Getis-Ord G"
	NameLocalGStar  = "Local Getis-Ord G*"
)

// Global result labels.
const (
	LabelClustered = "clustered"
	LabelDispersed = "dispersed"
	LabelRandom    = "random"
)

// Local cluster labels.
const (
	HighHigh       = "high-high"
	LowLow         = "low-low"
	HighLow        = "high-low"
	LowHigh        = "low-high"
	NotSignificant = "not-significant"
	HotSpot        = "hot-spot"
	ColdSpot       = "cold-spot"
)

// GlobalResult is the outcome of a global test.
type GlobalResult struct {
	Statistic   string      `json:"statistic" yaml:"statistic"`
	Observed    float64     `json:"observed" yaml:"observed"`
	Expected    float64     `json:"expected" yaml:"expected"`
	Variance    float64     `json:"variance" yaml:"variance"`
	ZScore      float64     `json:"z_score" yaml:"z_score"`
	PValue      float64     `json:"p_value" yaml:"p_value"`
	Alternative Alternative `json:"alternative" yaml:"alternative"`
	Assumption  Assumption  `json:"assumption" yaml:"assumption"`
	N           int         `json:"n" yaml:"n"`
	S0          float64     `json:"s0" yaml:"s0"`
	Isolates    []int       `json:"isolates" yaml:"isolates"`
	// Label reads clustered for positive autocorrelation. For Geary's C this
	// corresponds to an observed C below 1.
	Label     string `json:"label" yaml:"label"`
	Neighbors string `json:"neighbors,omitempty" yaml:"neighbors,omitempty"`
}

// LocalRecord is the outcome for one entity of a local statistic.
type LocalRecord struct {
	Index          int     `json:"index" yaml:"index" csv:"index"`
	ID             string  `json:"id" yaml:"id" csv:"id"`
	Value          float64 `json:"value" yaml:"value" csv:"value"`
	Lag            float64 `json:"lag" yaml:"lag" csv:"lag"`
	Observed       float64 `json:"observed" yaml:"observed" csv:"observed"`
	Expected       float64 `json:"expected" yaml:"expected" csv:"expected"`
	Variance       float64 `json:"variance" yaml:"variance" csv:"variance"`
	ZScore         float64 `json:"z_score" yaml:"z_score" csv:"z_score"`
	PValue         float64 `json:"p_value" yaml:"p_value" csv:"p_value"`
	Quadrant       string  `json:"quadrant,omitempty" yaml:"quadrant,omitempty" csv:"quadrant,omitempty"`
	QuadrantMean   string  `json:"quadrant_mean,omitempty" yaml:"quadrant_mean,omitempty" csv:"quadrant_mean,omitempty"`
	QuadrantMedian string  `json:"quadrant_median,omitempty" yaml:"quadrant_median,omitempty" csv:"quadrant_median,omitempty"`
	Cluster        string  `json:"cluster" yaml:"cluster" csv:"cluster"`
	Isolate        bool    `json:"isolate" yaml:"isolate" csv:"isolate"`
	// Undefined marks a zero local variance; ZScore is reported as 0 and
	// PValue as 1.
	Undefined bool `json:"undefined" yaml:"undefined" csv:"undefined"`
}

// LocalResult holds one record per entity, in entity order.
type LocalResult struct {
	Statistic    string        `json:"statistic" yaml:"statistic"`
	Alternative  Alternative   `json:"alternative" yaml:"alternative"`
	Significance float64       `json:"significance" yaml:"significance"`
	Records      []LocalRecord `json:"records" yaml:"records"`
	Isolates     []int         `json:"isolates" yaml:"isolates"`
	Neighbors    string        `json:"neighbors,omitempty" yaml:"neighbors,omitempty"`
}

// Significant returns the records with p below the significance threshold.
func (r *LocalResult) Significant() []LocalRecord {
	var out []LocalRecord
	for _, rec := range r.Records {
		if !rec.Isolate && !rec.Undefined && rec.PValue < r.Significance {
			out = append(out, rec)
		}
	}
	return out
}

// ClusterCounts tallies records by cluster label.
func (r *LocalResult) ClusterCounts() map[string]int {
	out := make(map[string]int)
	for _, rec := range r.Records {
		out[rec.Cluster]++
	}
	return out
}

func globalLabel(z, p, alpha float64) string {
	if p >= alpha {
		return LabelRandom
	}
	if z > 0 {
		return LabelClustered
	}
	if z < 0 {
		return LabelDispersed
	}
	return LabelRandom
}

// sample is the validated attribute vector with its centered moments.
type sample struct {
	x    []float64
	n    int
	sum  float64
	mean float64
	z    []float64
	zz   float64
}

func prepare(x []float64, w *weights.Weights) (*sample, error) {
	if w == nil {
		return nil, eris.Wrap(spatial.ErrInvalidParameter, "stats: nil weights")
	}
	if len(x) != w.Len() {
		return nil, eris.Wrapf(spatial.ErrInvalidInput, "stats: %d values for %d weight rows", len(x), w.Len())
	}
	if len(x) < 2 {
		return nil, eris.Wrapf(spatial.ErrInsufficientData, "stats: %d values, need at least 2", len(x))
	}
	constant := true
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, spatial.NewEntityError(spatial.StageStats, i, spatial.ErrInvalidInput, "non-finite value %v", v)
		}
		if v != x[0] {
			constant = false
		}
	}
	if constant {
		return nil, eris.Wrapf(spatial.ErrInvalidInput, "stats: attribute is constant (%g), spatial correlation undefined", x[0])
	}
	if w.S0() <= 0 {
		return nil, eris.Wrap(spatial.ErrDegenerateGraph, "stats: weights sum to zero")
	}

	s := &sample{x: x, n: len(x), sum: floats.Sum(x)}
	s.mean = s.sum / float64(s.n)
	s.z = make([]float64, s.n)
	for i, v := range x {
		s.z[i] = v - s.mean
		s.zz += s.z[i] * s.z[i]
	}
	return s, nil
}

// moment returns Σ zᵢᵖ.
func (s *sample) moment(p int) float64 {
	var out float64
	for _, v := range s.z {
		out += math.Pow(v, float64(p))
	}
	return out
}

// rawPowerSum returns Σ xᵢᵖ.
func (s *sample) rawPowerSum(p int) float64 {
	var out float64
	for _, v := range s.x {
		out += math.Pow(v, float64(p))
	}
	return out
}

func requireNonNegative(x []float64) error {
	for i, v := range x {
		if v < 0 {
			return spatial.NewEntityError(spatial.StageStats, i, spatial.ErrInvalidInput, "negative value %g, Getis-Ord needs non-negative data", v)
		}
	}
	return nil
}

func requireSelf(w *weights.Weights, star bool, name string) error {
	if w == nil {
		return eris.Wrap(spatial.ErrInvalidParameter, "stats: nil weights")
	}
	if star && !w.SelfIncluded {
		return eris.Wrapf(spatial.ErrInvalidParameter, "stats: %s needs self-included weights", name)
	}
	if !star && w.SelfIncluded {
		return eris.Wrapf(spatial.ErrInvalidParameter, "stats: %s must not include entities as their own neighbors", name)
	}
	return nil
}
