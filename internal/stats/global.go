package stats

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spatial-cli/internal/spatial"
	"github.com/sells-group/spatial-cli/internal/weights"
)

// MoranObserved returns Moran's I without testing it. Isolates are dropped
// from n, following the zero-policy convention.
func MoranObserved(x []float64, w *weights.Weights) (float64, error) {
	s, err := prepare(x, w)
	if err != nil {
		return 0, err
	}
	n := s.n - len(w.Isolates())
	return moranI(s, w, float64(n)), nil
}

func moranI(s *sample, w *weights.Weights, n float64) float64 {
	lag := w.Lag(s.z)
	var cross float64
	for i, zi := range s.z {
		cross += zi * lag[i]
	}
	return (n / w.S0()) * cross / s.zz
}

// MoranI runs the global Moran's I test.
func MoranI(x []float64, w *weights.Weights, opts Options) (*GlobalResult, error) {
	opts, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if err := requireSelf(w, false, NameMoranI); err != nil {
		return nil, err
	}
	s, err := prepare(x, w)
	if err != nil {
		return nil, err
	}

	isolates := w.Isolates()
	n := float64(s.n - len(isolates))
	if err := requireEffective(n, opts.Assumption, NameMoranI); err != nil {
		return nil, err
	}

	s0, s1, s2 := w.S0(), w.S1(), w.S2()
	obs := moranI(s, w, n)
	e := -1 / (n - 1)

	var v float64
	if opts.Assumption == Normality {
		v = (n*n*s1-n*s2+3*s0*s0)/(s0*s0*(n*n-1)) - e*e
	} else {
		k := kurtosis(s)
		num := n*((n*n-3*n+3)*s1-n*s2+3*s0*s0) - k*(n*(n-1)*s1-2*n*s2+6*s0*s0)
		v = num/((n-1)*(n-2)*(n-3)*s0*s0) - e*e
	}

	return finishGlobal(NameMoranI, obs, e, v, (obs-e)/math.Sqrt(v), opts, s.n, s0, isolates)
}

// GearyObserved returns Geary's C without testing it.
func GearyObserved(x []float64, w *weights.Weights) (float64, error) {
	s, err := prepare(x, w)
	if err != nil {
		return 0, err
	}
	n := s.n - len(w.Isolates())
	return gearyC(s, w, float64(n)), nil
}

func gearyC(s *sample, w *weights.Weights, n float64) float64 {
	var num float64
	for i, nb := range w.Neighbors {
		for k, j := range nb {
			d := s.x[i] - s.x[j]
			num += w.Values[i][k] * d * d
		}
	}
	return ((n - 1) / (2 * w.S0())) * num / s.zz
}

// GearyC runs the global Geary's C test. Lower C means stronger positive
// autocorrelation, so the deviate is (E - C)/sd: a positive z-score still
// reads as clustering.
func GearyC(x []float64, w *weights.Weights, opts Options) (*GlobalResult, error) {
	opts, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	if err := requireSelf(w, false, NameGearyC); err != nil {
		return nil, err
	}
	s, err := prepare(x, w)
	if err != nil {
		return nil, err
	}

	isolates := w.Isolates()
	n := float64(s.n - len(isolates))
	if err := requireEffective(n, opts.Assumption, NameGearyC); err != nil {
		return nil, err
	}

	s0, s1, s2 := w.S0(), w.S1(), w.S2()
	obs := gearyC(s, w, n)
	n1 := n - 1

	var v float64
	if opts.Assumption == Normality {
		v = ((2*s1+s2)*n1 - 4*s0*s0) / (2 * (n + 1) * s0 * s0)
	} else {
		k := kurtosis(s)
		v = (n1*s1*(n*n-3*n+3-n1*k) -
			0.25*(n1*s2*(n*n+3*n-6-(n*n-n+2)*k)) +
			s0*s0*(n*n-3-n1*n1*k)) / (n * (n - 2) * (n - 3) * s0 * s0)
	}

	return finishGlobal(NameGearyC, obs, 1, v, (1-obs)/math.Sqrt(v), opts, s.n, s0, isolates)
}

// GObserved returns the global Getis-Ord G, or G* when w includes self
// neighbors.
func GObserved(x []float64, w *weights.Weights) (float64, error) {
	s, err := prepare(x, w)
	if err != nil {
		return 0, err
	}
	if err := requireNonNegative(x); err != nil {
		return 0, err
	}
	num := crossProduct(s.x, w)
	den := s.sum * s.sum
	if !w.SelfIncluded {
		den -= s.rawPowerSum(2)
	}
	if den <= 0 {
		return 0, eris.Wrap(spatial.ErrInvalidInput, "stats: Getis-Ord denominator is zero")
	}
	return num / den, nil
}

// GetisOrdG runs the global Getis-Ord G test (pairs i ≠ j only).
func GetisOrdG(x []float64, w *weights.Weights, opts Options) (*GlobalResult, error) {
	return globalG(x, w, opts, false)
}

// GetisOrdGStar runs the global Getis-Ord G* test. w must include every
// entity as its own neighbor.
func GetisOrdGStar(x []float64, w *weights.Weights, opts Options) (*GlobalResult, error) {
	return globalG(x, w, opts, true)
}

// globalG tests Σᵢⱼ wᵢⱼxᵢxⱼ against its randomization moments. The
// off-diagonal part uses the Getis–Ord (1992) moments; for G* the diagonal
// term Σ wᵢᵢxᵢ² and its covariance with the off-diagonal part are added
// exactly under random permutation of the values.
func globalG(x []float64, w *weights.Weights, opts Options, star bool) (*GlobalResult, error) {
	name := NameGetisOrdG
	if star {
		name = NameGetisOrdG2
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
	if s.n < 4 {
		return nil, eris.Wrapf(spatial.ErrInsufficientData, "stats: %s needs at least 4 entities, got %d", name, s.n)
	}

	n := float64(s.n)
	sx, sx2, sx3, sx4 := s.sum, s.rawPowerSum(2), s.rawPowerSum(3), s.rawPowerSum(4)
	pairs := sx*sx - sx2
	if pairs <= 0 {
		return nil, eris.Wrapf(spatial.ErrInvalidInput, "stats: %s undefined, fewer than two non-zero values", name)
	}

	off, diag := splitDiagonal(w)
	s0, s1, s2 := off.S0(), off.S1(), off.S2()

	q := crossProduct(s.x, off)
	eq := s0 * pairs / (n * (n - 1))

	b0 := (n*n-3*n+3)*s1 - n*s2 + 3*s0*s0
	b1 := -((n*n-n)*s1 - 2*n*s2 + 6*s0*s0)
	b2 := -(2*n*s1 - (n+3)*s2 + 6*s0*s0)
	b3 := 4*(n-1)*s1 - 2*(n+1)*s2 + 8*s0*s0
	b4 := s1 - s2 + s0*s0
	ff4 := n * (n - 1) * (n - 2) * (n - 3)
	eq2 := (b0*sx2*sx2 + b1*sx4 + b2*sx*sx*sx2 + b3*sx*sx3 + b4*sx*sx*sx*sx) / ff4
	vq := eq2 - eq*eq

	obsNum, expNum, varNum, den := q, eq, vq, pairs
	if star {
		var dsum, dq, dss float64
		rows := off.RowSums()
		cols := make([]float64, off.Len())
		for i, nb := range off.Neighbors {
			for k, j := range nb {
				cols[j] += off.Values[i][k]
			}
		}
		for i, d := range diag {
			dsum += d
			dq += d * s.x[i] * s.x[i]
		}
		dbar := dsum / n
		var rc float64
		for i, d := range diag {
			dss += (d - dbar) * (d - dbar)
			rc += d * (rows[i] + cols[i])
		}
		var uss float64
		ubar := sx2 / n
		for _, v := range s.x {
			u := v*v - ubar
			uss += u * u
		}

		ed := dsum * sx2 / n
		vd := dss * uss / (n - 1)
		a3 := (sx3*sx - sx4) / (n * (n - 1))
		a211 := (sx2*sx*sx - 2*sx*sx3 + 2*sx4 - sx2*sx2) / (n * (n - 1) * (n - 2))
		edq := rc*a3 + (dsum*s0-rc)*a211
		cov := edq - ed*eq

		obsNum = dq + q
		expNum = ed + eq
		varNum = vd + vq + 2*cov
		den = sx * sx
	}

	obs := obsNum / den
	e := expNum / den
	v := varNum / (den * den)
	return finishGlobal(name, obs, e, v, (obs-e)/math.Sqrt(v), opts, s.n, w.S0(), w.Isolates())
}

// splitDiagonal separates self weights from the rest.
func splitDiagonal(w *weights.Weights) (*weights.Weights, []float64) {
	diag := make([]float64, w.Len())
	off := &weights.Weights{
		Neighbors: make([][]int, w.Len()),
		Values:    make([][]float64, w.Len()),
		Style:     w.Style,
		Decay:     w.Decay,
	}
	for i, nb := range w.Neighbors {
		for k, j := range nb {
			if j == i {
				diag[i] = w.Values[i][k]
				continue
			}
			off.Neighbors[i] = append(off.Neighbors[i], j)
			off.Values[i] = append(off.Values[i], w.Values[i][k])
		}
	}
	return off, diag
}

func crossProduct(x []float64, w *weights.Weights) float64 {
	lag := w.Lag(x)
	var out float64
	for i, v := range x {
		out += v * lag[i]
	}
	return out
}

func kurtosis(s *sample) float64 {
	return float64(s.n) * s.moment(4) / (s.zz * s.zz)
}

func requireEffective(n float64, a Assumption, name string) error {
	need := 2.0
	if a == Randomization {
		need = 4
	}
	if n < need {
		return eris.Wrapf(spatial.ErrInsufficientData, "stats: %s under %s needs %g entities with neighbors, got %g", name, a, need, n)
	}
	return nil
}

func finishGlobal(name string, obs, e, v, z float64, opts Options, n int, s0 float64, isolates []int) (*GlobalResult, error) {
	if !(v > 0) || math.IsInf(v, 0) {
		return nil, eris.Wrapf(spatial.ErrInvalidInput, "stats: %s variance is %g, z-score undefined", name, v)
	}
	p := pValue(z, opts.Alternative)
	if isolates == nil {
		isolates = []int{}
	}
	return &GlobalResult{
		Statistic:   name,
		Observed:    obs,
		Expected:    e,
		Variance:    v,
		ZScore:      z,
		PValue:      p,
		Alternative: opts.Alternative,
		Assumption:  opts.Assumption,
		N:           n,
		S0:          s0,
		Isolates:    isolates,
		Label:       globalLabel(z, p, opts.Significance),
	}, nil
}
