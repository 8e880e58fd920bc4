package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/spatial"
)

func TestRunBatch_KeepsOrderAndIsolatesFailures(t *testing.T) {
	layer := checkerboardLayer(t)
	bad := DefaultConfig()
	bad.Statistic = StatGeary
	bad.Scope = ScopeLocal

	geary := DefaultConfig()
	geary.Statistic = StatGeary

	jobs := []Job{
		{Name: "moran", Layer: layer, Config: DefaultConfig()},
		{Name: "bad", Layer: layer, Config: bad},
		{Name: "geary", Layer: layer, Config: geary},
	}

	results, err := RunBatch(context.Background(), jobs, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "moran", results[0].Name)
	require.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Report.Global)

	assert.Equal(t, "bad", results[1].Name)
	assert.Nil(t, results[1].Report)
	assert.True(t, errors.Is(results[1].Err, spatial.ErrInvalidParameter))

	require.NoError(t, results[2].Err)
	assert.Equal(t, "Geary's C", results[2].Report.Global.Statistic)
	assert.NotEqual(t, results[0].Report.RunID, results[2].Report.RunID)
}

func TestRunBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{{Name: "a", Layer: checkerboardLayer(t), Config: DefaultConfig()}}
	results, err := RunBatch(ctx, jobs, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Error(t, results[0].Err)
}
