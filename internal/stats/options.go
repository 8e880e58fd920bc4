// Package stats computes global and local spatial autocorrelation statistics
// over an attribute vector and a spatial weights structure.
package stats

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// Assumption selects the null hypothesis used for the variance of global
// Moran's I and Geary's C.
type Assumption string

// Variance assumptions.
const (
	Randomization Assumption = "randomization"
	Normality     Assumption = "normality"
)

// Alternative selects the tail of the test.
type Alternative string

// Alternative hypotheses.
const (
	TwoSided Alternative = "two.sided"
	Greater  Alternative = "greater"
	Less     Alternative = "less"
)

// DefaultSignificance is the p-value threshold used for labels and clusters.
const DefaultSignificance = 0.05

// Options configures the engines. The zero value means randomization,
// two-sided, p < 0.05.
type Options struct {
	Assumption   Assumption
	Alternative  Alternative
	Significance float64
}

// ParseAssumption resolves an assumption name.
func ParseAssumption(s string) (Assumption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "randomization", "randomisation":
		return Randomization, nil
	case "normality", "normal":
		return Normality, nil
	}
	return "", eris.Wrapf(spatial.ErrInvalidParameter, "stats: unknown assumption %q", s)
}

// ParseAlternative resolves an alternative hypothesis name.
func ParseAlternative(s string) (Alternative, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "two.sided", "two-sided", "two_sided":
		return TwoSided, nil
	case "greater":
		return Greater, nil
	case "less":
		return Less, nil
	}
	return "", eris.Wrapf(spatial.ErrInvalidParameter, "stats: unknown alternative %q", s)
}

func (o Options) resolve() (Options, error) {
	if o.Assumption == "" {
		o.Assumption = Randomization
	}
	if o.Alternative == "" {
		o.Alternative = TwoSided
	}
	if o.Significance == 0 {
		o.Significance = DefaultSignificance
	}
	if o.Assumption != Randomization && o.Assumption != Normality {
		return o, eris.Wrapf(spatial.ErrInvalidParameter, "stats: unknown assumption %q", o.Assumption)
	}
	if o.Alternative != TwoSided && o.Alternative != Greater && o.Alternative != Less {
		return o, eris.Wrapf(spatial.ErrInvalidParameter, "stats: unknown alternative %q", o.Alternative)
	}
	if o.Significance <= 0 || o.Significance >= 1 {
		return o, eris.Wrapf(spatial.ErrInvalidParameter, "stats: significance threshold %g outside (0, 1)", o.Significance)
	}
	return o, nil
}

// pValue converts a standard normal deviate to a p-value.
func pValue(z float64, alt Alternative) float64 {
	switch alt {
	case Greater:
		return distuv.UnitNormal.Survival(z)
	case Less:
		return distuv.UnitNormal.CDF(z)
	}
	return math.Min(1, 2*distuv.UnitNormal.Survival(math.Abs(z)))
}
