package neighbor

import (
	"context"
	"sort"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// distanceBand links every pair whose distance lies in [dmin, dmax]. Points
// are swept in x order so only pairs within dmax along x are compared.
func distanceBand(ctx context.Context, coords []spatial.Coord, dmin, dmax float64) ([][]int, error) {
	n := len(coords)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return coords[order[a]].X < coords[order[b]].X
	})

	lists := make([][]int, n)
	for p, i := range order {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		for _, j := range order[p+1:] {
			if coords[j].X-coords[i].X > dmax {
				break
			}
			d := coords[i].Distance(coords[j])
			if d >= dmin && d <= dmax {
				lists[i] = append(lists[i], j)
				lists[j] = append(lists[j], i)
			}
		}
	}
	return lists, nil
}
