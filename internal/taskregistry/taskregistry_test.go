package taskregistry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentlens/kernel/internal/clock"
)

func newTestRegistry() *Registry {
	return New(clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCreateStartComplete(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := r.Create("w1", "search", nil, 1, nil)

	task, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusAssigned, task.Status)

	require.NoError(t, r.Start(id))
	task, _ = r.Get(id)
	assert.Equal(t, StatusRunning, task.Status)
	require.NotNil(t, task.StartedAt)

	_, err := r.Complete(id, map[string]any{"ok": true})
	require.NoError(t, err)

	task, _ = r.Get(id)
	assert.Equal(t, StatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)

	active, completed := r.Counts()
	assert.Equal(t, 0, active)
	assert.Equal(t, 1, completed)
}

func TestDependencyUnblocksOnCompletion(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	upstream := r.Create("w1", "search", nil, 1, nil)
	dependent := r.Create("w1", "analysis", nil, 1, []string{upstream})

	task, _ := r.Get(dependent)
	assert.Equal(t, StatusWaitingForDependency, task.Status)

	unblocked, err := r.Complete(upstream, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{dependent}, unblocked)

	task, _ = r.Get(dependent)
	assert.Equal(t, StatusAssigned, task.Status)
}

func TestDependencyFailureCascades(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	upstream := r.Create("w1", "search", nil, 1, nil)
	dependent := r.Create("w1", "analysis", nil, 1, []string{upstream})

	failed, err := r.Fail(upstream, errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, []string{dependent}, failed)

	task, _ := r.Get(dependent)
	assert.Equal(t, StatusFailed, task.Status)
	assert.ErrorContains(t, task.Error, "dependency_failed")
}

func TestDependencyWaitsForAll(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	a := r.Create("w1", "search", nil, 1, nil)
	b := r.Create("w1", "search", nil, 1, nil)
	dependent := r.Create("w1", "analysis", nil, 1, []string{a, b})

	unblocked, err := r.Complete(a, nil)
	require.NoError(t, err)
	assert.Empty(t, unblocked)

	task, _ := r.Get(dependent)
	assert.Equal(t, StatusWaitingForDependency, task.Status)

	unblocked, err = r.Complete(b, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{dependent}, unblocked)
}

func TestActiveByWorkerAndReassign(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := r.Create("w1", "search", nil, 1, nil)

	assert.Equal(t, []string{id}, r.ActiveByWorker("w1"))

	require.NoError(t, r.Reassign(id, "w2", 2))
	assert.Empty(t, r.ActiveByWorker("w1"))
	assert.Equal(t, []string{id}, r.ActiveByWorker("w2"))

	task, _ := r.Get(id)
	assert.Equal(t, StatusAssigned, task.Status)
	assert.Equal(t, 2, task.Priority)
}

func TestTaskAccountingInvariant(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	id := r.Create("w1", "search", nil, 1, nil)

	_, activeOK := r.active[id]
	_, completedOK := r.completed[id]
	assert.True(t, activeOK)
	assert.False(t, completedOK)

	_, err := r.Complete(id, nil)
	require.NoError(t, err)

	_, activeOK = r.active[id]
	_, completedOK = r.completed[id]
	assert.False(t, activeOK)
	assert.True(t, completedOK)
}
