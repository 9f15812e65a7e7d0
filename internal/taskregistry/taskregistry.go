// Package taskregistry owns the ground truth of task state (spec §4.3):
// active and completed task records, the dependency graph, and retry
// bookkeeping.
package taskregistry

import (
	"fmt"
	"sync"
	"time"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/kernelerr"
)

// Status is a TaskAssignment's lifecycle state (spec §3).
type Status string

const (
	StatusAssigned             Status = "assigned"
	StatusRunning              Status = "running"
	StatusWaitingForDependency Status = "waiting_for_dependency"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is a TaskAssignment (spec §3, owned by C3).
type Task struct {
	ID         string
	WorkerID   string
	TaskType   string
	TaskData   map[string]any
	Priority   int
	Status     Status
	AssignedAt time.Time
	StartedAt  *time.Time
	CompletedAt *time.Time
	Result     map[string]any
	Error      error
	RetryCount int
	DependsOn  []string
}

// Registry stores active and completed tasks and their dependency edges.
// Every task id is guarded by the registry's single mutex; this is a small
// enough state machine that per-entity locks would add complexity without a
// measurable benefit.
type Registry struct {
	clock clock.Clock

	mu        sync.Mutex
	active    map[string]*Task
	completed map[string]*Task
	dependents map[string][]string // task -> tasks waiting on it
	seq       int64
}

// New creates an empty task registry.
func New(c clock.Clock) *Registry {
	return &Registry{
		clock:      c,
		active:     make(map[string]*Task),
		completed:  make(map[string]*Task),
		dependents: make(map[string][]string),
	}
}

// Create registers a new task in StatusAssigned (or StatusWaitingForDependency
// if dependsOn is non-empty) and returns its id.
func (r *Registry) Create(workerID, taskType string, taskData map[string]any, priority int, dependsOn []string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	id := fmt.Sprintf("task-%d", r.seq)

	status := StatusAssigned
	if len(dependsOn) > 0 {
		status = StatusWaitingForDependency
	}

	t := &Task{
		ID:         id,
		WorkerID:   workerID,
		TaskType:   taskType,
		TaskData:   taskData,
		Priority:   priority,
		Status:     status,
		AssignedAt: r.clock.Now(),
		DependsOn:  append([]string(nil), dependsOn...),
	}

	r.active[id] = t

	for _, dep := range dependsOn {
		r.dependents[dep] = append(r.dependents[dep], id)
	}

	return id
}

// Get returns a copy of the task by id, searching both active and completed.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.active[id]; ok {
		return cloneTask(t), true
	}

	if t, ok := r.completed[id]; ok {
		return cloneTask(t), true
	}

	return Task{}, false
}

func cloneTask(t *Task) Task {
	c := *t
	c.TaskData = cloneMap(t.TaskData)
	c.Result = cloneMap(t.Result)
	c.DependsOn = append([]string(nil), t.DependsOn...)

	return c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// Start transitions a task from assigned to running.
func (r *Registry) Start(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.active[id]
	if !ok {
		return kernelerr.New(kernelerr.Validation, "unknown task: "+id)
	}

	if t.Status != StatusAssigned {
		return kernelerr.New(kernelerr.Validation, "task not in assigned state: "+id)
	}

	now := r.clock.Now()
	t.Status = StatusRunning
	t.StartedAt = &now

	return nil
}

// Complete moves a task to the completed map with StatusCompleted and
// unblocks any dependents whose last outstanding dependency is now
// satisfied. Returns the ids of dependent tasks that became runnable.
func (r *Registry) Complete(id string, result map[string]any) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.active[id]
	if !ok {
		return nil, kernelerr.New(kernelerr.Validation, "unknown active task: "+id)
	}

	now := r.clock.Now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	t.Result = result

	delete(r.active, id)
	r.completed[id] = t

	return r.unblockDependents(id, true), nil
}

// Fail moves a task to the completed map with StatusFailed. Every dependent
// task also fails with DependencyFailed, transitively (spec §4.3).
// Returns the ids of dependents that were cascaded.
func (r *Registry) Fail(id string, cause error) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.active[id]
	if !ok {
		return nil, kernelerr.New(kernelerr.Validation, "unknown active task: "+id)
	}

	now := r.clock.Now()
	t.Status = StatusFailed
	t.CompletedAt = &now
	t.Error = cause

	delete(r.active, id)
	r.completed[id] = t

	return r.unblockDependents(id, false), nil
}

// unblockDependents must be called with mu held. When the upstream task
// completed, each dependent loses one outstanding dependency and moves to
// Assigned once all are satisfied. When it failed, every direct dependent
// fails immediately with dependency_failed (which itself cascades).
func (r *Registry) unblockDependents(id string, upstreamSucceeded bool) []string {
	var affected []string

	for _, depID := range r.dependents[id] {
		dep, ok := r.active[depID]
		if !ok {
			continue
		}

		if !upstreamSucceeded {
			now := r.clock.Now()
			dep.Status = StatusFailed
			dep.CompletedAt = &now
			dep.Error = kernelerr.Wrap(kernelerr.DependencyFailed, "dependency failed: "+id, nil)
			delete(r.active, depID)
			r.completed[depID] = dep
			affected = append(affected, depID)
			affected = append(affected, r.unblockDependents(depID, false)...)

			continue
		}

		if dep.Status != StatusWaitingForDependency {
			continue
		}

		if r.allDependenciesCompleted(dep) {
			dep.Status = StatusAssigned
			affected = append(affected, depID)
		}
	}

	delete(r.dependents, id)

	return affected
}

func (r *Registry) allDependenciesCompleted(t *Task) bool {
	for _, dep := range t.DependsOn {
		if c, ok := r.completed[dep]; !ok || c.Status != StatusCompleted {
			return false
		}
	}

	return true
}

// IncrementRetry bumps a task's retry count and returns the new value.
// Only valid for tasks still tracked (active or completed).
func (r *Registry) IncrementRetry(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.active[id]; ok {
		t.RetryCount++

		return t.RetryCount
	}

	if t, ok := r.completed[id]; ok {
		t.RetryCount++

		return t.RetryCount
	}

	return 0
}

// ActiveByWorker returns the ids of active tasks assigned to workerID, used
// by the collaboration manager to reassign on worker loss (spec invariant
// 2: load conservation).
func (r *Registry) ActiveByWorker(workerID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string

	for id, t := range r.active {
		if t.WorkerID == workerID {
			ids = append(ids, id)
		}
	}

	return ids
}

// Reassign updates an active task's worker id (used after a worker is lost
// or a task is retried onto a different worker).
func (r *Registry) Reassign(id, newWorkerID string, newPriority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.active[id]
	if !ok {
		return kernelerr.New(kernelerr.Validation, "unknown active task: "+id)
	}

	t.WorkerID = newWorkerID
	t.Priority = newPriority
	t.Status = StatusAssigned
	t.StartedAt = nil

	return nil
}

// Counts returns the number of active and completed tasks, for metrics.
func (r *Registry) Counts() (active, completed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.active), len(r.completed)
}
