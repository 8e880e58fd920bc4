package spatial

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Error kinds shared by every analysis stage. Wrap them with eris and test
// with errors.Is / eris.Is.
var (
	ErrInsufficientData = eris.New("insufficient data")
	ErrInvalidParameter = eris.New("invalid parameter")
	ErrInvalidInput     = eris.New("invalid input")
	ErrDegenerateGraph  = eris.New("degenerate graph")
)

// Stage names used in EntityError.
const (
	StageLayer    = "layer"
	StageNeighbor = "neighbor"
	StageWeights  = "weights"
	StageStats    = "stats"
)

// EntityError attributes a failure to a single entity within a stage.
type EntityError struct {
	Stage string
	Index int
	Err   error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s: entity %d: %s", e.Stage, e.Index, e.Err.Error())
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// NewEntityError wraps kind with a formatted message and the entity context.
func NewEntityError(stage string, index int, kind error, format string, args ...any) *EntityError {
	return &EntityError{
		Stage: stage,
		Index: index,
		Err:   eris.Wrapf(kind, format, args...),
	}
}
