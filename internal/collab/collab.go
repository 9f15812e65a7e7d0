// Package collab implements the Collaboration Manager (spec §4.4), the glue
// over the message bus, load balancer, and task registry: worker
// registration, task assignment with retry policy, heartbeats, and
// collaboration sessions.
package collab

import (
	"fmt"
	"sync"
	"time"

	"github.com/patentlens/kernel/internal/bus"
	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/kernelerr"
	"github.com/patentlens/kernel/internal/loadbalancer"
	"github.com/patentlens/kernel/internal/taskregistry"
)

// WorkerStatus mirrors spec §3 WorkerRecord.status.
type WorkerStatus string

const (
	WorkerOnline  WorkerStatus = "online"
	WorkerOffline WorkerStatus = "offline"
)

const (
	defaultHeartbeatTimeout = 5 * time.Minute
	maxRetries              = 2
)

// WorkerInfo is the collaboration manager's record of a worker (spec §3
// WorkerRecord, identity/lifecycle fields; capacity/load/performance live
// in the load balancer).
type WorkerInfo struct {
	ID             string
	Type           string
	Capabilities   []string
	Status         WorkerStatus
	RegisteredAt   time.Time
	LastHeartbeat  time.Time
	Capacity       int
	Specialties    []string
}

// Session is a collaboration session (spec §4.4).
type Session struct {
	ID           string
	Type         string
	Participants []string
	Context      map[string]any
	StartedAt    time.Time
	EndedAt      *time.Time
	Result       map[string]any

	mu         sync.Mutex
	sharedData map[string]any
}

// SharedData returns a copy of the session's shared scratchpad (SPEC_FULL §5).
func (s *Session) SharedData() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]any, len(s.sharedData))
	for k, v := range s.sharedData {
		out[k] = v
	}

	return out
}

func (s *Session) setShared(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sharedData == nil {
		s.sharedData = make(map[string]any)
	}

	s.sharedData[key] = value
}

// Manager coordinates workers, tasks, and collaboration sessions.
type Manager struct {
	clock clock.Clock
	bus   *bus.Bus
	lb    *loadbalancer.LoadBalancer
	tasks *taskregistry.Registry

	heartbeatTimeout time.Duration

	mu       sync.Mutex
	workers  map[string]*WorkerInfo
	sessions map[string]*Session
	seq      int64
}

// New creates a collaboration manager wired to the given bus, load balancer,
// and task registry.
func New(c clock.Clock, b *bus.Bus, lb *loadbalancer.LoadBalancer, tasks *taskregistry.Registry) *Manager {
	return &Manager{
		clock:            c,
		bus:              b,
		lb:               lb,
		tasks:            tasks,
		heartbeatTimeout: defaultHeartbeatTimeout,
		workers:          make(map[string]*WorkerInfo),
		sessions:         make(map[string]*Session),
	}
}

// SetHeartbeatTimeout overrides the default 5 minute offline threshold.
func (m *Manager) SetHeartbeatTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.heartbeatTimeout = d
}

// RegisterWorker adds a worker as online and registers it with the bus and
// load balancer.
func (m *Manager) RegisterWorker(id, workerType string, capabilities, specialties []string, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.workers[id] = &WorkerInfo{
		ID:            id,
		Type:          workerType,
		Capabilities:  capabilities,
		Status:        WorkerOnline,
		RegisteredAt:  now,
		LastHeartbeat: now,
		Capacity:      capacity,
		Specialties:   specialties,
	}

	m.bus.Register(id)
	m.lb.Register(id, capacity, specialties)
}

// UnregisterWorker marks the worker offline and reassigns every task it
// held, preserving priority (spec §4.4).
func (m *Manager) UnregisterWorker(id string) {
	m.mu.Lock()
	w, ok := m.workers[id]
	if ok {
		w.Status = WorkerOffline
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	m.reassignWorkerTasks(id)

	m.mu.Lock()
	delete(m.workers, id)
	m.mu.Unlock()

	m.bus.Unregister(id)
	m.lb.Unregister(id)
}

// Heartbeat refreshes a worker's last-seen timestamp.
func (m *Manager) Heartbeat(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.workers[id]; ok {
		w.LastHeartbeat = m.clock.Now()
		if w.Status == WorkerOffline {
			w.Status = WorkerOnline
		}
	}
}

// CleanupStaleWorkers marks every worker whose last heartbeat exceeds the
// timeout as offline and reassigns its active tasks (spec §4.4).
func (m *Manager) CleanupStaleWorkers() []string {
	now := m.clock.Now()

	m.mu.Lock()
	var stale []string

	for id, w := range m.workers {
		if w.Status == WorkerOnline && now.Sub(w.LastHeartbeat) > m.heartbeatTimeout {
			w.Status = WorkerOffline
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		m.reassignWorkerTasks(id)
	}

	return stale
}

func (m *Manager) onlineWorkerIDs() []string {
	var ids []string

	for id, w := range m.workers {
		if w.Status == WorkerOnline {
			ids = append(ids, id)
		}
	}

	return ids
}

// AssignTask implements spec §4.4 assign_task.
func (m *Manager) AssignTask(taskType string, taskData map[string]any, preferredWorker string, priority int) (string, error) {
	m.mu.Lock()

	var candidate string

	if preferredWorker != "" {
		if w, ok := m.workers[preferredWorker]; ok && w.Status == WorkerOnline {
			candidate = preferredWorker
		}
	}

	var online []string
	if candidate == "" {
		online = m.onlineWorkerIDs()
	}

	m.mu.Unlock()

	if candidate == "" {
		selected, ok := m.lb.SelectWorker(taskType, online)
		if !ok {
			return "", kernelerr.New(kernelerr.Validation, "no available worker for task type "+taskType)
		}

		candidate = selected
	}

	id := m.tasks.Create(candidate, taskType, taskData, priority, nil)
	m.lb.IncrementLoad(candidate)

	m.seq++
	m.bus.Send(bus.Message{
		ID:         fmt.Sprintf("msg-%d", m.seq),
		SenderID:   "collab-manager",
		ReceiverID: candidate,
		Type:       bus.TaskAssignment,
		Priority:   priority,
		Content: map[string]any{
			"task_id":   id,
			"task_type": taskType,
			"task_data": taskData,
		},
	})

	return id, nil
}

// CompleteTask implements spec §4.4 complete_task: rejects if worker is not
// the assignee, moves the task to completed, updates load-balancer
// performance, and unblocks dependents.
func (m *Manager) CompleteTask(taskID string, result map[string]any, workerID string, executionTime time.Duration) error {
	task, ok := m.tasks.Get(taskID)
	if !ok {
		return kernelerr.New(kernelerr.Validation, "unknown task: "+taskID)
	}

	if task.WorkerID != workerID {
		return kernelerr.New(kernelerr.Validation, "worker "+workerID+" is not the assignee of "+taskID)
	}

	if _, err := m.tasks.Complete(taskID, result); err != nil {
		return err
	}

	m.lb.RecordCompletion(workerID, executionTime.Seconds(), true)

	return nil
}

// FailTask implements spec §4.4 fail_task, applying the retry policy: a
// timeout/network error under the retry cap is reassigned with boosted
// priority; otherwise the failure surfaces.
func (m *Manager) FailTask(taskID string, cause error, workerID string, executionTime time.Duration) error {
	task, ok := m.tasks.Get(taskID)
	if !ok {
		return kernelerr.New(kernelerr.Validation, "unknown task: "+taskID)
	}

	if task.WorkerID != workerID {
		return kernelerr.New(kernelerr.Validation, "worker "+workerID+" is not the assignee of "+taskID)
	}

	m.lb.RecordCompletion(workerID, executionTime.Seconds(), false)

	retries := m.tasks.IncrementRetry(taskID)
	if kernelerr.IsRetryable(cause) && retries <= maxRetries {
		newID, assignErr := m.AssignTask(task.TaskType, task.TaskData, "", task.Priority+1)
		if assignErr == nil {
			_, _ = m.tasks.Fail(taskID, cause)
			_ = newID

			return nil
		}
	}

	_, err := m.tasks.Fail(taskID, cause)

	return err
}

// reassignWorkerTasks reassigns every active task held by workerID using
// the same path as a fresh assignment, preserving priority. Tasks that
// cannot be reassigned fail with worker_lost.
func (m *Manager) reassignWorkerTasks(workerID string) {
	for _, taskID := range m.tasks.ActiveByWorker(workerID) {
		task, ok := m.tasks.Get(taskID)
		if !ok {
			continue
		}

		m.mu.Lock()
		online := m.onlineWorkerIDs()
		m.mu.Unlock()

		selected, ok := m.lb.SelectWorker(task.TaskType, online)
		if !ok {
			_, _ = m.tasks.Fail(taskID, kernelerr.New(kernelerr.WorkerLost, "no worker available to reassign "+taskID))

			continue
		}

		if err := m.tasks.Reassign(taskID, selected, task.Priority); err != nil {
			_, _ = m.tasks.Fail(taskID, kernelerr.Wrap(kernelerr.WorkerLost, "reassignment failed", err))

			continue
		}

		m.lb.IncrementLoad(selected)
	}
}

// StartCollaboration implements spec §4.4 start_collaboration.
func (m *Manager) StartCollaboration(sessionType string, participants []string, context map[string]any) string {
	m.mu.Lock()
	m.seq++
	id := fmt.Sprintf("collab-%d", m.seq)

	session := &Session{
		ID:           id,
		Type:         sessionType,
		Participants: append([]string(nil), participants...),
		Context:      context,
		StartedAt:    m.clock.Now(),
	}
	m.sessions[id] = session
	m.mu.Unlock()

	m.bus.Send(bus.Message{
		SenderID:   "collab-manager",
		ReceiverID: bus.Broadcast,
		Type:       bus.CollaborationStart,
		Content:    map[string]any{"collaboration_id": id, "type": sessionType, "participants": participants},
	})

	return id
}

// EndCollaboration implements spec §4.4 end_collaboration.
func (m *Manager) EndCollaboration(id string, result map[string]any) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()

		return kernelerr.New(kernelerr.Validation, "unknown collaboration: "+id)
	}

	now := m.clock.Now()
	session.EndedAt = &now
	session.Result = result
	m.mu.Unlock()

	m.bus.Send(bus.Message{
		SenderID:   "collab-manager",
		ReceiverID: bus.Broadcast,
		Type:       bus.CollaborationEnd,
		Content:    map[string]any{"collaboration_id": id, "result": result},
	})

	return nil
}

// ShareData records a data_share message's payload into the session's
// shared scratchpad and broadcasts it to every registered worker except
// the sender.
func (m *Manager) ShareData(sessionID, senderID, key string, value any) error {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	m.mu.Unlock()

	if !ok {
		return kernelerr.New(kernelerr.Validation, "unknown collaboration: "+sessionID)
	}

	session.setShared(key, value)

	m.bus.Send(bus.Message{
		SenderID:   senderID,
		ReceiverID: bus.Broadcast,
		Type:       bus.DataShare,
		Content:    map[string]any{"collaboration_id": sessionID, "key": key, "value": value},
	})

	return nil
}

// Session returns a collaboration session by id.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]

	return s, ok
}

// Worker returns a worker's record by id.
func (m *Manager) Worker(id string) (WorkerInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workers[id]
	if !ok {
		return WorkerInfo{}, false
	}

	return *w, true
}
