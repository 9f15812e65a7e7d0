package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentlens/kernel/internal/bus"
	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/kernelerr"
	"github.com/patentlens/kernel/internal/loadbalancer"
	"github.com/patentlens/kernel/internal/taskregistry"
)

func newTestManager() (*Manager, *clock.Fixed) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := New(c, bus.New(c), loadbalancer.New(), taskregistry.New(c))

	return m, c
}

func TestAssignTaskToOnlineWorker(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.RegisterWorker("w1", "search", nil, []string{"general"}, 5)

	id, err := m.AssignTask("search", map[string]any{"q": "battery"}, "", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	task, ok := m.tasks.Get(id)
	require.True(t, ok)
	assert.Equal(t, "w1", task.WorkerID)

	msg, ok := m.bus.Receive("w1")
	require.True(t, ok)
	assert.Equal(t, bus.TaskAssignment, msg.Type)
}

func TestAssignTaskNoWorkerAvailable(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()

	_, err := m.AssignTask("search", nil, "", 1)
	require.Error(t, err)
}

func TestCompleteTaskRejectsWrongWorker(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.RegisterWorker("w1", "search", nil, []string{"general"}, 5)

	id, err := m.AssignTask("search", nil, "", 1)
	require.NoError(t, err)

	err = m.CompleteTask(id, nil, "impostor", time.Second)
	require.Error(t, err)
}

func TestFailTaskRetriesTimeout(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.RegisterWorker("w1", "search", nil, []string{"general"}, 5)

	id, err := m.AssignTask("search", nil, "", 1)
	require.NoError(t, err)

	err = m.FailTask(id, kernelerr.New(kernelerr.Timeout, "slow source"), "w1", time.Second)
	require.NoError(t, err)

	original, ok := m.tasks.Get(id)
	require.True(t, ok)
	assert.Equal(t, taskregistry.StatusFailed, original.Status)

	active, _ := m.tasks.Counts()
	assert.Equal(t, 1, active, "retry should have created a new active task")
}

func TestFailTaskNonRetryableSurfaces(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.RegisterWorker("w1", "search", nil, []string{"general"}, 5)

	id, err := m.AssignTask("search", nil, "", 1)
	require.NoError(t, err)

	err = m.FailTask(id, kernelerr.New(kernelerr.Validation, "bad input"), "w1", time.Second)
	require.NoError(t, err)

	active, completed := m.tasks.Counts()
	assert.Equal(t, 0, active)
	assert.Equal(t, 1, completed)
}

func TestUnregisterWorkerReassignsTasks(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.RegisterWorker("w1", "search", nil, []string{"general"}, 5)
	m.RegisterWorker("w2", "search", nil, []string{"general"}, 5)

	id, err := m.AssignTask("search", nil, "w1", 1)
	require.NoError(t, err)

	m.UnregisterWorker("w1")

	task, ok := m.tasks.Get(id)
	require.True(t, ok)
	assert.Equal(t, "w2", task.WorkerID)
	assert.Equal(t, taskregistry.StatusAssigned, task.Status)
}

func TestUnregisterWorkerNoReplacementFailsWorkerLost(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.RegisterWorker("w1", "search", nil, []string{"general"}, 5)

	id, err := m.AssignTask("search", nil, "w1", 1)
	require.NoError(t, err)

	m.UnregisterWorker("w1")

	task, ok := m.tasks.Get(id)
	require.True(t, ok)
	assert.Equal(t, taskregistry.StatusFailed, task.Status)
	assert.ErrorContains(t, task.Error, "worker_lost")
}

func TestHeartbeatCleanupMarksOfflineAndReassigns(t *testing.T) {
	t.Parallel()

	m, c := newTestManager()
	m.SetHeartbeatTimeout(time.Minute)
	m.RegisterWorker("w1", "search", nil, []string{"general"}, 5)
	m.RegisterWorker("w2", "search", nil, []string{"general"}, 5)

	id, err := m.AssignTask("search", nil, "w1", 1)
	require.NoError(t, err)

	c.Advance(2 * time.Minute)
	m.Heartbeat("w2")
	stale := m.CleanupStaleWorkers()
	assert.Equal(t, []string{"w1"}, stale)

	task, _ := m.tasks.Get(id)
	assert.Equal(t, "w2", task.WorkerID)
}

func TestCollaborationSessionLifecycle(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.RegisterWorker("w1", "search", nil, nil, 5)
	m.RegisterWorker("w2", "analysis", nil, nil, 5)

	id := m.StartCollaboration("deep-dive", []string{"w1", "w2"}, map[string]any{"topic": "battery"})

	msg, ok := m.bus.Receive("w1")
	require.True(t, ok)
	assert.Equal(t, bus.CollaborationStart, msg.Type)

	require.NoError(t, m.ShareData(id, "w1", "partial_trend", map[string]any{"2024": 10}))

	session, ok := m.Session(id)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"2024": 10}, session.SharedData()["partial_trend"])

	require.NoError(t, m.EndCollaboration(id, map[string]any{"status": "done"}))
	session, _ = m.Session(id)
	assert.NotNil(t, session.EndedAt)
}
