package neighbor

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// Policy selects how neighbor relationships are constructed.
type Policy string

// Supported construction policies.
const (
	PolicyContiguity Policy = "contiguity"
	PolicyDistance   Policy = "distance"
	PolicyKNN        Policy = "knn"
)

// Mode selects the contiguity rule.
type Mode string

// Contiguity modes.
const (
	ModeQueen Mode = "queen"
	ModeRook  Mode = "rook"
)

// DefaultSnapTolerance is the distance under which two boundary points are
// considered coincident during contiguity tests.
const DefaultSnapTolerance = 1e-9

// Options configures Build.
type Options struct {
	Policy Policy
	Mode   Mode
	DMin   float64
	DMax   float64
	K      int
	// SnapTolerance defaults to DefaultSnapTolerance when zero.
	SnapTolerance float64
}

// ParsePolicy resolves a policy name. The R-style names used by the
// original tooling (poly2nb, dnearneigh, knearneigh) are accepted too.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contiguity", "poly2nb", "polygon":
		return PolicyContiguity, nil
	case "distance", "dnearneigh", "distance_band":
		return PolicyDistance, nil
	case "knn", "knearneigh", "k_nearest":
		return PolicyKNN, nil
	}
	return "", eris.Wrapf(spatial.ErrInvalidParameter, "neighbor: unknown policy %q", s)
}

// ParseMode resolves a contiguity mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queen":
		return ModeQueen, nil
	case "rook":
		return ModeRook, nil
	}
	return "", eris.Wrapf(spatial.ErrInvalidParameter, "neighbor: unknown contiguity mode %q", s)
}

// Validate checks parameters that do not depend on the layer.
func (o Options) Validate() error {
	switch o.Policy {
	case PolicyContiguity:
		if o.Mode != ModeQueen && o.Mode != ModeRook {
			return eris.Wrapf(spatial.ErrInvalidParameter, "neighbor: unknown contiguity mode %q", o.Mode)
		}
		if o.SnapTolerance < 0 {
			return eris.Wrapf(spatial.ErrInvalidParameter, "neighbor: negative snap tolerance %g", o.SnapTolerance)
		}
	case PolicyDistance:
		if o.DMin < 0 {
			return eris.Wrapf(spatial.ErrInvalidParameter, "neighbor: negative minimum distance %g", o.DMin)
		}
		if o.DMax <= o.DMin {
			return eris.Wrapf(spatial.ErrInvalidParameter, "neighbor: maximum distance %g must exceed minimum %g", o.DMax, o.DMin)
		}
	case PolicyKNN:
		if o.K < 1 {
			return eris.Wrapf(spatial.ErrInvalidParameter, "neighbor: k must be at least 1, got %d", o.K)
		}
	default:
		return eris.Wrapf(spatial.ErrInvalidParameter, "neighbor: unknown policy %q", o.Policy)
	}
	return nil
}

// Describe renders the construction policy for reports.
func (o Options) Describe() string {
	switch o.Policy {
	case PolicyContiguity:
		return fmt.Sprintf("%s contiguity", o.Mode)
	case PolicyDistance:
		return fmt.Sprintf("distance band [%g, %g]", o.DMin, o.DMax)
	case PolicyKNN:
		return fmt.Sprintf("k-nearest k=%d", o.K)
	}
	return string(o.Policy)
}

func (o Options) snap() float64 {
	if o.SnapTolerance == 0 {
		return DefaultSnapTolerance
	}
	return o.SnapTolerance
}
