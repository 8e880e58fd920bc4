package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/neighbor"
	"github.com/sells-group/spatial-cli/internal/spatial"
	"github.com/sells-group/spatial-cli/internal/stats"
	"github.com/sells-group/spatial-cli/internal/weights"
)

// Stage names recorded in Report.Timings.
const (
	StageNeighbors = "neighbors"
	StageWeights   = "weights"
	StageStatistic = "statistic"
)

// StageTiming records how long one stage of a run took.
type StageTiming struct {
	Stage      string `json:"stage" yaml:"stage"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
}

// Report is the outcome of one run. Run sets exactly one of Global and
// Local; Connect sets neither.
type Report struct {
	RunID    string              `json:"run_id" yaml:"run_id"`
	Layer    string              `json:"layer" yaml:"layer"`
	Field    string              `json:"field" yaml:"field"`
	Config   Config              `json:"config" yaml:"config"`
	Graph    *neighbor.Graph     `json:"-" yaml:"-"`
	Summary  neighbor.Summary    `json:"summary" yaml:"summary"`
	Weights  *weights.Weights    `json:"-" yaml:"-"`
	Isolates []int               `json:"isolates" yaml:"isolates"`
	Global   *stats.GlobalResult `json:"global,omitempty" yaml:"global,omitempty"`
	Local    *stats.LocalResult  `json:"local,omitempty" yaml:"local,omitempty"`
	Timings  []StageTiming       `json:"timings" yaml:"timings"`
	Started  time.Time           `json:"started" yaml:"started"`
	// Source is the layer the report was computed from.
	Source *spatial.Layer `json:"-" yaml:"-"`

	log *zap.Logger
}

// Run executes cfg against layer. It never modifies layer and holds no state
// between calls, so independent runs may proceed in parallel.
func Run(ctx context.Context, layer *spatial.Layer, cfg Config) (*Report, error) {
	r, p, err := connect(ctx, layer, cfg)
	if err != nil {
		return nil, err
	}
	if err := r.stage(ctx, StageStatistic, func() error {
		return compute(r, layer, p)
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// Connect runs only the neighbor and weights stages of cfg. The returned
// report carries no statistic.
func Connect(ctx context.Context, layer *spatial.Layer, cfg Config) (*Report, error) {
	r, _, err := connect(ctx, layer, cfg)
	return r, err
}

func connect(ctx context.Context, layer *spatial.Layer, cfg Config) (*Report, *plan, error) {
	p, err := cfg.plan()
	if err != nil {
		return nil, nil, err
	}
	if err := layer.Validate(); err != nil {
		return nil, nil, err
	}
	if p.weights.Decay && layer.Geographic {
		return nil, nil, eris.Wrap(spatial.ErrInvalidInput, "analysis: distance decay needs projected coordinates, layer is geographic")
	}

	r := &Report{
		RunID:   uuid.New().String(),
		Layer:   layer.Name,
		Field:   layer.ValueField,
		Config:  cfg,
		Started: time.Now().UTC(),
		Source:  layer,
	}
	r.log = zap.L().With(zap.String("run_id", r.RunID), zap.Int("entities", layer.Len()))

	if err := r.stage(ctx, StageNeighbors, func() error {
		g, err := neighbor.Build(ctx, layer, p.neighbor)
		if err != nil {
			return err
		}
		r.Graph = g
		r.Summary = g.Summary()
		r.Isolates = r.Summary.Isolates
		return nil
	}); err != nil {
		return nil, nil, err
	}

	if err := r.stage(ctx, StageWeights, func() error {
		var coords []spatial.Coord
		if p.weights.Decay {
			coords = layer.Coords()
		}
		w, err := weights.Derive(r.Graph, coords, p.weights)
		if err != nil {
			return err
		}
		r.Weights = w
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return r, p, nil
}

// stage times fn, records it in Timings and checks for cancellation.
func (r *Report) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	r.Timings = append(r.Timings, StageTiming{Stage: name, DurationMs: elapsed.Milliseconds()})
	if err != nil {
		r.log.Debug("analysis: stage failed", zap.String("stage", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return err
	}
	r.log.Debug("analysis: stage complete", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return eris.Wrapf(ctxErr, "analysis: cancelled after %s", name)
	}
	return nil
}

func compute(r *Report, layer *spatial.Layer, p *plan) error {
	x := layer.Values()
	desc := r.Graph.Description

	if p.scope == ScopeGlobal {
		var (
			res *stats.GlobalResult
			err error
		)
		switch p.statistic {
		case StatMoran:
			res, err = stats.MoranI(x, r.Weights, p.stats)
		case StatGeary:
			res, err = stats.GearyC(x, r.Weights, p.stats)
		case StatGetisOrdG:
			res, err = stats.GetisOrdG(x, r.Weights, p.stats)
		case StatGStar:
			res, err = stats.GetisOrdGStar(x, r.Weights, p.stats)
		}
		if err != nil {
			return err
		}
		res.Neighbors = desc
		r.Global = res
		return nil
	}

	ids := layer.IDs()
	var (
		res *stats.LocalResult
		err error
	)
	switch p.statistic {
	case StatMoran:
		res, err = stats.LocalMoran(x, ids, r.Weights, p.stats)
	case StatGetisOrdG:
		res, err = stats.LocalG(x, ids, r.Weights, p.stats)
	case StatGStar:
		res, err = stats.LocalGStar(x, ids, r.Weights, p.stats)
	}
	if err != nil {
		return err
	}
	res.Neighbors = desc
	r.Local = res
	return nil
}
