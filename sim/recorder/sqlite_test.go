package recorder

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endowment-sim/endowment-sim/sim"
)

func TestSQLite_RecordAndCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	r, err := NewSQLite(path)
	require.NoError(t, err)
	defer r.Close()

	for step := 0; step < 3; step++ {
		err := r.RecordStep(sim.MetricsRow{
			Step:              step,
			ParticipationRate: 0.3,
			CurrentAPY:        0.08,
			ActiveHolders:     50,
		})
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM step_metrics").Scan(&count))
	assert.Equal(t, 3, count)

	var participation float64
	require.NoError(t, r.db.QueryRow("SELECT participation_rate FROM step_metrics WHERE step = 2").Scan(&participation))
	assert.Equal(t, 0.3, participation)
}

func TestSQLite_MigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	r1, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	// Reopening the same file re-runs migrations without error.
	r2, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, r2.Close())
}

func TestNoop_AcceptsEverything(t *testing.T) {
	var r Recorder = NewNoop()
	assert.NoError(t, r.RecordStep(sim.MetricsRow{Step: 1}))
	assert.NoError(t, r.Close())
}
