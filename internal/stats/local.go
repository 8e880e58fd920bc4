package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/spatial-cli/internal/spatial"
	"github.com/sells-group/spatial-cli/internal/weights"
)

// LocalMoran computes Anselin's local Moran's I for every entity, with the
// randomization expectation and variance. ids may be nil.
//
// m2 averages squared deviations over all N entities, so the local values
// sum to S0·I·N/n where n excludes isolates; without isolates that is S0·I.
//
// Quadrant compares the entity's deviation and its lagged deviation against
// zero; QuadrantMean and QuadrantMedian compare the raw value and its spatial
// lag against the mean and median of each. A value equal to the threshold
// counts as low. Cluster carries Quadrant when the record is significant.
func LocalMoran(x []float64, ids []string, w *weights.Weights, opts Options) (*LocalResult, error) {
	opts, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if err := requireSelf(w, false, NameLocalMoranI); err != nil {
		return nil, err
	}
	s, err := prepare(x, w)
	if err != nil {
		return nil, err
	}
	if s.n < 3 {
		return nil, eris.Wrapf(spatial.ErrInsufficientData, "stats: %s needs at least 3 entities, got %d", NameLocalMoranI, s.n)
	}

	n := float64(s.n)
	m2 := s.zz / n
	b2 := (s.moment(4) / n) / (m2 * m2)

	lagZ := w.Lag(s.z)
	lagX := w.Lag(s.x)
	meanLag := stat.Mean(lagX, nil)
	medX, err := mstats.Median(mstats.Float64Data(s.x))
	if err != nil {
		return nil, eris.Wrap(err, "stats: median of values")
	}
	medLag, err := mstats.Median(mstats.Float64Data(lagX))
	if err != nil {
		return nil, eris.Wrap(err, "stats: median of spatial lag")
	}

	res := newLocalResult(NameLocalMoranI, opts, s.n)
	for i := range s.x {
		rec := &res.Records[i]
		rec.Index = i
		rec.ID = idAt(ids, i)
		rec.Value = s.x[i]
		rec.Lag = lagX[i]
		rec.Quadrant = quadrant(s.z[i], lagZ[i], 0, 0)
		rec.QuadrantMean = quadrant(s.x[i], lagX[i], s.mean, meanLag)
		rec.QuadrantMedian = quadrant(s.x[i], lagX[i], medX, medLag)
		rec.Cluster = NotSignificant

		if len(w.Neighbors[i]) == 0 {
			rec.Isolate = true
			rec.PValue = 1
			res.Isolates = append(res.Isolates, i)
			continue
		}

		var wi, wi2 float64
		for _, v := range w.Values[i] {
			wi += v
			wi2 += v * v
		}
		rec.Observed = s.z[i] / m2 * lagZ[i]
		rec.Expected = -wi / (n - 1)
		rec.Variance = wi2*(n-b2)/(n-1) +
			(wi*wi-wi2)*(2*b2-n)/((n-1)*(n-2)) -
			rec.Expected*rec.Expected
		if !score(rec, opts) {
			continue
		}
		if rec.PValue < opts.Significance {
			rec.Cluster = rec.Quadrant
		}
	}
	return res, nil
}

// LocalG computes the local Getis-Ord Gᵢ, which excludes xᵢ from both the
// numerator and the denominator.
func LocalG(x []float64, ids []string, w *weights.Weights, opts Options) (*LocalResult, error) {
	return localG(x, ids, w, opts, false)
}

// LocalGStar computes the local Getis-Ord Gᵢ*. w must include every entity
// as its own neighbor.
func LocalGStar(x []float64, ids []string, w *weights.Weights, opts Options) (*LocalResult, error) {
	return localG(x, ids, w, opts, true)
}

func localG(x []float64, ids []string, w *weights.Weights, opts Options, star bool) (*LocalResult, error) {
	name := NameLocalG
	if star {
		name = NameLocalGStar
	}
	opts, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if err := requireSelf(w, star, name); err != nil {
		return nil, err
	}
	s, err := prepare(x, w)
	if err != nil {
		return nil, err
	}
	if err := requireNonNegative(x); err != nil {
		return nil, err
	}
	if s.n < 3 {
		return nil, eris.Wrapf(spatial.ErrInsufficientData, "stats: %s needs at least 3 entities, got %d", name, s.n)
	}

	sx, sx2 := s.sum, s.rawPowerSum(2)
	lag := w.Lag(s.x)

	res := newLocalResult(name, opts, s.n)
	for i, xi := range s.x {
		rec := &res.Records[i]
		rec.Index = i
		rec.ID = idAt(ids, i)
		rec.Value = xi
		rec.Lag = lag[i]
		rec.Cluster = NotSignificant

		if len(w.Neighbors[i]) == 0 {
			rec.Isolate = true
			rec.PValue = 1
			res.Isolates = append(res.Isolates, i)
			continue
		}

		np, den, sq := float64(s.n), sx, sx2
		if !star {
			np, den, sq = np-1, sx-xi, sx2-xi*xi
		}
		if den <= 0 {
			return nil, spatial.NewEntityError(spatial.StageStats, i, spatial.ErrInvalidInput,
				"%s denominator is zero, every other value is 0", name)
		}
		m := den / np
		s2 := sq/np - m*m

		var wi, s1i float64
		for _, v := range w.Values[i] {
			wi += v
			s1i += v * v
		}
		varT := s2 * (np*s1i - wi*wi) / (np - 1)

		rec.Observed = lag[i] / den
		rec.Expected = wi / np
		rec.Variance = varT / (den * den)
		if !score(rec, opts) {
			continue
		}
		if rec.PValue < opts.Significance {
			if rec.ZScore > 0 {
				rec.Cluster = HotSpot
			} else {
				rec.Cluster = ColdSpot
			}
		}
	}
	return res, nil
}

// score fills ZScore and PValue, or marks the record undefined when the
// variance vanishes.
func score(rec *LocalRecord, opts Options) bool {
	if !(rec.Variance > 0) || math.IsInf(rec.Variance, 0) {
		rec.Undefined = true
		rec.ZScore = 0
		rec.PValue = 1
		return false
	}
	rec.ZScore = (rec.Observed - rec.Expected) / math.Sqrt(rec.Variance)
	rec.PValue = pValue(rec.ZScore, opts.Alternative)
	return true
}

func quadrant(v, lag, vt, lt float64) string {
	high, lagHigh := v > vt, lag > lt
	switch {
	case high && lagHigh:
		return HighHigh
	case !high && !lagHigh:
		return LowLow
	case high:
		return HighLow
	}
	return LowHigh
}

func newLocalResult(name string, opts Options, n int) *LocalResult {
	return &LocalResult{
		Statistic:    name,
		Alternative:  opts.Alternative,
		Significance: opts.Significance,
		Records:      make([]LocalRecord, n),
		Isolates:     []int{},
	}
}

func idAt(ids []string, i int) string {
	if i < len(ids) {
		return ids[i]
	}
	return ""
}
