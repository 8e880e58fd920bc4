package neighbor

import (
	"context"
	"sort"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

type candidate struct {
	index int
	dist  float64
}

// kNearest selects exactly k nearest other entities for every entity, ties
// broken by ascending index. The relation is left asymmetric. Each row is
// O(N log N); a spatial index is not worth it at the layer sizes this tool
// handles.
func kNearest(ctx context.Context, coords []spatial.Coord, k int) ([][]int, error) {
	n := len(coords)
	lists := make([][]int, n)
	cands := make([]candidate, 0, n-1)

	for i := range coords {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		cands = cands[:0]
		for j := range coords {
			if j == i {
				continue
			}
			cands = append(cands, candidate{index: j, dist: coords[i].Distance(coords[j])})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].index < cands[b].index
		})

		nb := make([]int, k)
		for m := 0; m < k; m++ {
			nb[m] = cands[m].index
		}
		lists[i] = nb
	}
	return lists, nil
}
