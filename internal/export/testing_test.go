package export

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/spatial"
)

// gridReport runs a rook, binary analysis over a 2x2 grid of unit squares
// valued 1..4.
func gridReport(t *testing.T, scope string) *analysis.Report {
	t.Helper()
	l, err := spatial.NewGridLayer(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	cfg := analysis.DefaultConfig()
	cfg.ContiguityMode = "rook"
	cfg.WeightStyle = "binary"
	cfg.Scope = scope
	r, err := analysis.Run(context.Background(), l, cfg)
	require.NoError(t, err)
	return r
}
