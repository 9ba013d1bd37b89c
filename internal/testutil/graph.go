package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stageflow/internal/stage"
)

// NewManager returns a manager with deterministic tokens ("t1", "t2", ...)
// holding the given number of stages.
func NewManager(t testing.TB, stages int, opts ...stage.Option) *stage.Manager {
	t.Helper()
	opts = append([]stage.Option{stage.WithIDSource(stage.NewCounterIDs("t"))}, opts...)
	m := stage.New(opts...)
	for m.StageCount() < stages {
		_, ok := m.AddStage()
		require.True(t, ok, "stage %d does not fit", m.StageCount())
	}
	return m
}

// BuildGraph returns a valid graph with the given number of stages.
func BuildGraph(t testing.TB, stages int) stage.Graph {
	t.Helper()
	g := NewManager(t, stages).Graph()
	require.NoError(t, g.Validate())
	return g
}
