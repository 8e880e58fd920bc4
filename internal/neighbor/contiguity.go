package neighbor

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/lineintersection"
	"github.com/twpayne/go-geom/xy/lineintersector"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

type edge struct {
	a, b geom.Coord
}

// outline is a polygon boundary broken into edges, with its bounds padded by
// half the snap tolerance so overlapping boxes mean a gap of at most tol.
type outline struct {
	edges  []edge
	bounds *geom.Bounds
}

// contiguity links polygons whose boundaries touch. Queen accepts any shared
// boundary point; rook needs a shared boundary stretch longer than tol.
// Candidate pairs come from a sweep over bounding boxes sorted by minX.
func contiguity(ctx context.Context, layer *spatial.Layer, mode Mode, tol float64) ([][]int, error) {
	n := layer.Len()
	outlines := make([]outline, n)
	for i, e := range layer.Entities {
		o, err := polygonOutline(e.Geometry, tol/2)
		if err != nil {
			return nil, spatial.NewEntityError(spatial.StageNeighbor, i, spatial.ErrInvalidInput, "%v", err)
		}
		outlines[i] = o
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return outlines[order[a]].bounds.Min(0) < outlines[order[b]].bounds.Min(0)
	})

	lists := make([][]int, n)
	for p, i := range order {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		a := &outlines[i]
		for _, j := range order[p+1:] {
			b := &outlines[j]
			if b.bounds.Min(0) > a.bounds.Max(0) {
				break
			}
			if !a.bounds.Overlaps(geom.XY, b.bounds) {
				continue
			}
			if adjacent(a, b, mode, tol) {
				lists[i] = append(lists[i], j)
				lists[j] = append(lists[j], i)
			}
		}
	}
	return lists, nil
}

func polygonOutline(g geom.T, pad float64) (outline, error) {
	var o outline
	addPolygon := func(p *geom.Polygon) {
		for r := 0; r < p.NumLinearRings(); r++ {
			ring := p.LinearRing(r)
			for c := 0; c+1 < ring.NumCoords(); c++ {
				s, t := ring.Coord(c), ring.Coord(c+1)
				e := edge{a: geom.Coord{s.X(), s.Y()}, b: geom.Coord{t.X(), t.Y()}}
				// Repeated vertices give zero-length edges that touch nothing new.
				if e.a.Equal(geom.XY, e.b) {
					continue
				}
				o.edges = append(o.edges, e)
			}
		}
	}

	switch v := g.(type) {
	case *geom.Polygon:
		addPolygon(v)
	case *geom.MultiPolygon:
		for i := 0; i < v.NumPolygons(); i++ {
			addPolygon(v.Polygon(i))
		}
	case nil:
		return o, eris.New("missing geometry")
	default:
		return o, eris.Errorf("contiguity needs polygon geometries, got %T", g)
	}
	if len(o.edges) == 0 {
		return o, eris.New("empty polygon")
	}
	b := geom.NewBounds(geom.XY).Extend(g)
	o.bounds = geom.NewBounds(geom.XY).Set(b.Min(0)-pad, b.Min(1)-pad, b.Max(0)+pad, b.Max(1)+pad)
	return o, nil
}

func adjacent(a, b *outline, mode Mode, tol float64) bool {
	for _, s := range a.edges {
		for _, t := range b.edges {
			if mode == ModeQueen {
				if xy.DistanceFromLineToLine(s.a, s.b, t.a, t.b) <= tol {
					return true
				}
				continue
			}
			if sharedLength(s, t, tol) > tol {
				return true
			}
		}
	}
	return false
}

// sharedLength is the length of the stretch two edges have in common. Exactly
// collinear edges overlap where the line intersector says; edges collinear
// only within tol share the span of the endpoints lying within tol of the
// other edge.
func sharedLength(s, t edge, tol float64) float64 {
	res := lineintersector.LineIntersectsLine(lineintersector.RobustLineIntersector{}, s.a, s.b, t.a, t.b)
	if res.Type() == lineintersection.CollinearIntersection {
		p := res.Intersection()
		return xy.Distance(p[0], p[1])
	}

	for _, c := range [...]struct{ p, from, to geom.Coord }{
		{t.a, s.a, s.b}, {t.b, s.a, s.b}, {s.a, t.a, t.b}, {s.b, t.a, t.b},
	} {
		if xy.PerpendicularDistanceFromPointToLine(c.p, c.from, c.to) > tol {
			return 0
		}
	}
	var shared []geom.Coord
	for _, p := range []geom.Coord{t.a, t.b} {
		if xy.DistanceFromPointToLine(p, s.a, s.b) <= tol {
			shared = append(shared, p)
		}
	}
	for _, p := range []geom.Coord{s.a, s.b} {
		if xy.DistanceFromPointToLine(p, t.a, t.b) <= tol {
			shared = append(shared, p)
		}
	}
	var length float64
	for i := range shared {
		for j := i + 1; j < len(shared); j++ {
			length = max(length, xy.Distance(shared[i], shared[j]))
		}
	}
	return length
}
