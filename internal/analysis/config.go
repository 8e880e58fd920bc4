// Package analysis runs one spatial autocorrelation analysis end to end:
// neighbor graph, weights, then a global or local statistic.
package analysis

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spatial-cli/internal/neighbor"
	"github.com/sells-group/spatial-cli/internal/spatial"
	"github.com/sells-group/spatial-cli/internal/stats"
	"github.com/sells-group/spatial-cli/internal/weights"
)

// Statistic names accepted in Config.
const (
	StatMoran     = "moran"
	StatGeary     = "geary"
	StatGetisOrdG = "getisord_g"
	StatGStar     = "getisord_g_star"
)

// Scopes accepted in Config.
const (
	ScopeGlobal = "global"
	ScopeLocal  = "local"
)

// Config describes one analysis run.
type Config struct {
	NeighborPolicy        string  `json:"neighbor_policy" yaml:"neighbor_policy" mapstructure:"neighbor_policy"`
	ContiguityMode        string  `json:"contiguity_mode" yaml:"contiguity_mode" mapstructure:"contiguity_mode"`
	DMin                  float64 `json:"d_min" yaml:"d_min" mapstructure:"d_min"`
	DMax                  float64 `json:"d_max" yaml:"d_max" mapstructure:"d_max"`
	K                     int     `json:"k" yaml:"k" mapstructure:"k"`
	WeightStyle           string  `json:"weight_style" yaml:"weight_style" mapstructure:"weight_style"`
	UseDecay              bool    `json:"use_decay" yaml:"use_decay" mapstructure:"use_decay"`
	SelfInclude           bool    `json:"self_include" yaml:"self_include" mapstructure:"self_include"`
	Statistic             string  `json:"statistic" yaml:"statistic" mapstructure:"statistic"`
	Scope                 string  `json:"scope" yaml:"scope" mapstructure:"scope"`
	SignificanceThreshold float64 `json:"significance_threshold" yaml:"significance_threshold" mapstructure:"significance_threshold"`
	Assumption            string  `json:"assumption" yaml:"assumption" mapstructure:"assumption"`
	Alternative           string  `json:"alternative" yaml:"alternative" mapstructure:"alternative"`
	DistanceFloor         float64 `json:"distance_floor" yaml:"distance_floor" mapstructure:"distance_floor"`
	SnapTolerance         float64 `json:"snap_tolerance" yaml:"snap_tolerance" mapstructure:"snap_tolerance"`
}

// DefaultConfig returns queen contiguity, row-standardized weights and a
// global Moran's I test.
func DefaultConfig() Config {
	return Config{
		NeighborPolicy:        string(neighbor.PolicyContiguity),
		ContiguityMode:        string(neighbor.ModeQueen),
		WeightStyle:           string(weights.StyleRowStandardized),
		Statistic:             StatMoran,
		Scope:                 ScopeGlobal,
		SignificanceThreshold: stats.DefaultSignificance,
		Assumption:            string(stats.Randomization),
		Alternative:           string(stats.TwoSided),
	}
}

// plan is a validated Config split into per-stage options.
type plan struct {
	neighbor  neighbor.Options
	weights   weights.Options
	stats     stats.Options
	statistic string
	scope     string
}

// Validate resolves every name in c and rejects inconsistent combinations.
func (c Config) Validate() error {
	_, err := c.plan()
	return err
}

func (c Config) plan() (*plan, error) {
	policy, err := neighbor.ParsePolicy(c.NeighborPolicy)
	if err != nil {
		return nil, err
	}
	mode, err := neighbor.ParseMode(c.ContiguityMode)
	if err != nil {
		return nil, err
	}
	style, err := weights.ParseStyle(c.WeightStyle)
	if err != nil {
		return nil, err
	}
	assumption, err := stats.ParseAssumption(c.Assumption)
	if err != nil {
		return nil, err
	}
	alternative, err := stats.ParseAlternative(c.Alternative)
	if err != nil {
		return nil, err
	}
	statistic, err := parseStatistic(c.Statistic)
	if err != nil {
		return nil, err
	}
	scope, err := parseScope(c.Scope)
	if err != nil {
		return nil, err
	}

	if statistic == StatGeary && scope == ScopeLocal {
		return nil, eris.Wrap(spatial.ErrInvalidParameter, "analysis: Geary's C has no local form")
	}
	star := statistic == StatGStar
	if c.SelfInclude && !star {
		return nil, eris.Wrapf(spatial.ErrInvalidParameter, "analysis: self_include is only valid for %s", StatGStar)
	}

	p := &plan{
		neighbor: neighbor.Options{
			Policy:        policy,
			Mode:          mode,
			DMin:          c.DMin,
			DMax:          c.DMax,
			K:             c.K,
			SnapTolerance: c.SnapTolerance,
		},
		weights: weights.Options{
			Style:         style,
			Decay:         c.UseDecay,
			SelfInclude:   star,
			DistanceFloor: c.DistanceFloor,
		},
		stats: stats.Options{
			Assumption:   assumption,
			Alternative:  alternative,
			Significance: c.SignificanceThreshold,
		},
		statistic: statistic,
		scope:     scope,
	}
	if err := p.neighbor.Validate(); err != nil {
		return nil, err
	}
	if p.weights.DistanceFloor < 0 {
		return nil, eris.Wrapf(spatial.ErrInvalidParameter, "analysis: negative distance floor %g", p.weights.DistanceFloor)
	}
	if s := p.stats.Significance; s < 0 || s >= 1 {
		return nil, eris.Wrapf(spatial.ErrInvalidParameter, "analysis: significance threshold %g outside (0, 1)", s)
	}
	return p, nil
}

func parseStatistic(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "moran", "moran_i", "morans_i":
		return StatMoran, nil
	case "geary", "geary_c", "gearys_c":
		return StatGeary, nil
	case "getisord_g", "getis_ord_g", "g":
		return StatGetisOrdG, nil
	case "getisord_g_star", "getis_ord_g_star", "g_star", "gstar":
		return StatGStar, nil
	}
	return "", eris.Wrapf(spatial.ErrInvalidParameter, "analysis: unknown statistic %q", s)
}

func parseScope(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeLocal:
		return ScopeLocal, nil
	}
	return "", eris.Wrapf(spatial.ErrInvalidParameter, "analysis: unknown scope %q", s)
}
