package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	before := testutil.ToFloat64(MigrationRuns.WithLabelValues("success"))
	MigrationRuns.WithLabelValues("success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(MigrationRuns.WithLabelValues("success")))

	path := filepath.Join(t.TempDir(), "codegraph.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `codegraph_migration_runs_total{outcome="success"}`)
}
