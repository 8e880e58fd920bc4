package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/neighbor"
	"github.com/sells-group/spatial-cli/internal/weights"
)

// irregular is a small asymmetric neighbor structure: 1 -> 2 without 2 -> 1,
// rows of different sizes.
var irregular = [][]int{{1, 2}, {2}, {0, 3}, {2, 4, 5}, {5}, {3, 4}}

func derive(t *testing.T, nb [][]int, style weights.Style, self bool) *weights.Weights {
	t.Helper()
	w, err := weights.Derive(&neighbor.Graph{Neighbors: nb}, nil, weights.Options{Style: style, SelfInclude: self})
	require.NoError(t, err)
	return w
}

// chain links entity i with i-1 and i+1.
func chain(n int) [][]int {
	nb := make([][]int, n)
	for i := range nb {
		if i > 0 {
			nb[i] = append(nb[i], i-1)
		}
		if i < n-1 {
			nb[i] = append(nb[i], i+1)
		}
	}
	return nb
}

// rookGrid links cells of a rows x cols grid sharing an edge.
func rookGrid(rows, cols int) [][]int {
	nb := make([][]int, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if r > 0 {
				nb[i] = append(nb[i], i-cols)
			}
			if c > 0 {
				nb[i] = append(nb[i], i-1)
			}
			if c < cols-1 {
				nb[i] = append(nb[i], i+1)
			}
			if r < rows-1 {
				nb[i] = append(nb[i], i+cols)
			}
		}
	}
	return nb
}

// permutations calls fn with every ordering of x (Heap's algorithm).
func permutations(x []float64, fn func([]float64)) {
	a := append([]float64(nil), x...)
	c := make([]int, len(a))
	fn(append([]float64(nil), a...))
	for i := 0; i < len(a); {
		if c[i] < i {
			if i%2 == 0 {
				a[0], a[i] = a[i], a[0]
			} else {
				a[c[i]], a[i] = a[i], a[c[i]]
			}
			fn(append([]float64(nil), a...))
			c[i]++
			i = 0
			continue
		}
		c[i] = 0
		i++
	}
}

// moments returns the population mean and variance of vals.
func moments(vals []float64) (float64, float64) {
	var m, v float64
	for _, x := range vals {
		m += x
	}
	m /= float64(len(vals))
	for _, x := range vals {
		v += (x - m) * (x - m)
	}
	return m, v / float64(len(vals))
}
