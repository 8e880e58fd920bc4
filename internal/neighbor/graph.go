// Package neighbor builds neighbor graphs over the entities of a layer.
package neighbor

import (
	"sort"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

// Graph maps every entity index to its ascending list of neighbor indices.
// A Graph returned by Build is never modified afterwards; derived graphs
// (WithSelf, Clone) are independent copies.
type Graph struct {
	Neighbors   [][]int `json:"neighbors" yaml:"neighbors"`
	Policy      Policy  `json:"policy" yaml:"policy"`
	Description string  `json:"description" yaml:"description"`
	// SelfIncluded is true when every entity lists itself as a neighbor.
	SelfIncluded bool `json:"self_included" yaml:"self_included"`
}

// Edge is one directed neighbor link.
type Edge struct {
	From     int     `json:"from"`
	To       int     `json:"to"`
	Distance float64 `json:"distance"`
}

// Len returns the number of entities.
func (g *Graph) Len() int {
	return len(g.Neighbors)
}

// Cardinalities returns the neighbor count of every entity.
func (g *Graph) Cardinalities() []int {
	out := make([]int, len(g.Neighbors))
	for i, nb := range g.Neighbors {
		out[i] = len(nb)
	}
	return out
}

// Isolates returns the entities without any neighbor.
func (g *Graph) Isolates() []int {
	var out []int
	for i, nb := range g.Neighbors {
		if len(nb) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// EdgeCount returns the number of directed links.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, nb := range g.Neighbors {
		n += len(nb)
	}
	return n
}

// Has reports whether j is listed as a neighbor of i.
func (g *Graph) Has(i, j int) bool {
	nb := g.Neighbors[i]
	k := sort.SearchInts(nb, j)
	return k < len(nb) && nb[k] == j
}

// IsSymmetric reports whether every link has a reverse link.
func (g *Graph) IsSymmetric() bool {
	for i, nb := range g.Neighbors {
		for _, j := range nb {
			if !g.Has(j, i) {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Neighbors:    make([][]int, len(g.Neighbors)),
		Policy:       g.Policy,
		Description:  g.Description,
		SelfIncluded: g.SelfIncluded,
	}
	for i, nb := range g.Neighbors {
		out.Neighbors[i] = make([]int, len(nb))
		copy(out.Neighbors[i], nb)
	}
	return out
}

// WithSelf returns a copy in which every entity lists itself exactly once.
func (g *Graph) WithSelf() *Graph {
	out := g.Clone()
	for i, nb := range out.Neighbors {
		k := sort.SearchInts(nb, i)
		if k < len(nb) && nb[k] == i {
			continue
		}
		nb = append(nb, 0)
		copy(nb[k+1:], nb[k:])
		nb[k] = i
		out.Neighbors[i] = nb
	}
	out.SelfIncluded = true
	return out
}

// Edges lists the links of the graph with their centroid distances. With
// dedupe set, the reverse of a symmetric pair is omitted. Self links are
// never listed.
func (g *Graph) Edges(coords []spatial.Coord, dedupe bool) []Edge {
	var out []Edge
	for i, nb := range g.Neighbors {
		for _, j := range nb {
			if i == j {
				continue
			}
			if dedupe && j < i && g.Has(j, i) {
				continue
			}
			e := Edge{From: i, To: j}
			if coords != nil {
				e.Distance = coords[i].Distance(coords[j])
			}
			out = append(out, e)
		}
	}
	return out
}

// Summary describes the connectivity of a graph.
type Summary struct {
	Regions        int         `json:"regions" yaml:"regions"`
	Links          int         `json:"links" yaml:"links"`
	PercentNonzero float64     `json:"percent_nonzero" yaml:"percent_nonzero"`
	AverageLinks   float64     `json:"average_links" yaml:"average_links"`
	Isolates       []int       `json:"isolates" yaml:"isolates"`
	Distribution   map[int]int `json:"distribution" yaml:"distribution"`
	LeastConnected []int       `json:"least_connected" yaml:"least_connected"`
	MostConnected  []int       `json:"most_connected" yaml:"most_connected"`
	MinLinks       int         `json:"min_links" yaml:"min_links"`
	MaxLinks       int         `json:"max_links" yaml:"max_links"`
	Components     int         `json:"components" yaml:"components"`
	Symmetric      bool        `json:"symmetric" yaml:"symmetric"`
}

// Summary computes connectivity statistics. Self links are not counted.
func (g *Graph) Summary() Summary {
	n := g.Len()
	s := Summary{
		Regions:      n,
		Distribution: make(map[int]int),
		Isolates:     []int{},
		Symmetric:    g.IsSymmetric(),
		MinLinks:     -1,
	}

	cards := make([]int, n)
	for i, nb := range g.Neighbors {
		c := 0
		for _, j := range nb {
			if j != i {
				c++
			}
		}
		cards[i] = c
		s.Links += c
		s.Distribution[c]++
		if c == 0 {
			s.Isolates = append(s.Isolates, i)
		}
		if s.MinLinks < 0 || c < s.MinLinks {
			s.MinLinks = c
		}
		if c > s.MaxLinks {
			s.MaxLinks = c
		}
	}
	if s.MinLinks < 0 {
		s.MinLinks = 0
	}
	if n > 0 {
		s.PercentNonzero = 100 * float64(s.Links) / float64(n*n)
		s.AverageLinks = float64(s.Links) / float64(n)
	}
	for i, c := range cards {
		if c == s.MinLinks {
			s.LeastConnected = append(s.LeastConnected, i)
		}
		if c == s.MaxLinks {
			s.MostConnected = append(s.MostConnected, i)
		}
	}
	s.Components = g.components()
	return s
}

// components counts connected subgraphs, treating links as undirected.
func (g *Graph) components() int {
	parent := make([]int, g.Len())
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	count := g.Len()
	for i, nb := range g.Neighbors {
		for _, j := range nb {
			ri, rj := find(i), find(j)
			if ri != rj {
				parent[ri] = rj
				count--
			}
		}
	}
	return count
}
