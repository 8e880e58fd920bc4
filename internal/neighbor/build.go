package neighbor

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// Build constructs the neighbor graph of layer under opts. Contiguity works
// on polygon geometries; distance band and k-nearest work on centroids and
// require projected coordinates. ctx is polled once per entity.
func Build(ctx context.Context, layer *spatial.Layer, opts Options) (*Graph, error) {
	if layer == nil || layer.Len() < 2 {
		n := 0
		if layer != nil {
			n = layer.Len()
		}
		return nil, eris.Wrapf(spatial.ErrInsufficientData, "neighbor: %d entities, need at least 2", n)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var (
		lists [][]int
		err   error
	)
	switch opts.Policy {
	case PolicyContiguity:
		lists, err = contiguity(ctx, layer, opts.Mode, opts.snap())
	case PolicyDistance:
		if err := requireProjected(layer); err != nil {
			return nil, err
		}
		lists, err = distanceBand(ctx, layer.Coords(), opts.DMin, opts.DMax)
	case PolicyKNN:
		if err := requireProjected(layer); err != nil {
			return nil, err
		}
		if opts.K >= layer.Len() {
			return nil, eris.Wrapf(spatial.ErrInvalidParameter, "neighbor: k=%d requires more than %d entities", opts.K, layer.Len())
		}
		lists, err = kNearest(ctx, layer.Coords(), opts.K)
	}
	if err != nil {
		return nil, err
	}

	for _, nb := range lists {
		sort.Ints(nb)
	}
	g := &Graph{Neighbors: lists, Policy: opts.Policy, Description: opts.Describe()}
	if g.EdgeCount() == 0 {
		return nil, eris.Wrapf(spatial.ErrDegenerateGraph, "neighbor: %s produced no links among %d entities", g.Description, g.Len())
	}

	zap.L().Debug("neighbor: graph built",
		zap.String("policy", g.Description),
		zap.Int("entities", g.Len()),
		zap.Int("links", g.EdgeCount()),
		zap.Int("isolates", len(g.Isolates())),
	)
	return g, nil
}

func requireProjected(layer *spatial.Layer) error {
	if layer.Geographic {
		return eris.Wrap(spatial.ErrInvalidInput, "neighbor: distance-based construction needs projected coordinates, layer is geographic")
	}
	return nil
}

func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "neighbor: cancelled")
	}
	return nil
}
