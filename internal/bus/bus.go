// Package bus implements the typed, priority-aware inter-worker message bus
// (spec §4.1). Messages are queued per recipient; broadcast fans out to every
// registered worker except the sender. Delivery is at-most-once and queues
// are purely in-memory (spec: "no persistence").
package bus

import (
	"container/heap"
	"sync"
	"time"

	"github.com/patentlens/kernel/internal/clock"
)

// Broadcast is the sentinel receiver id meaning "every registered worker".
const Broadcast = "broadcast"

// Type enumerates the message kinds carried on the bus.
type Type string

const (
	TaskAssignment     Type = "task_assignment"
	TaskResult         Type = "task_result"
	TaskFailed         Type = "task_failed"
	DataShare          Type = "data_share"
	CollaborationStart Type = "collaboration_start"
	CollaborationEnd   Type = "collaboration_end"
	DependencyResolved Type = "dependency_resolved"
	Heartbeat          Type = "heartbeat"
	StatusUpdate       Type = "status_update"
)

// responseRequiredTypes mirrors the source system's response_required
// derivation: request-like message types expect a reply.
var responseRequiredTypes = map[Type]bool{
	TaskAssignment: true,
}

// Message is one unit carried on the bus (spec §3, owned by C1).
type Message struct {
	ID               string
	SenderID         string
	ReceiverID       string
	Type             Type
	Content          map[string]any
	Priority         int
	Timestamp        time.Time
	Processed        bool
	ResponseRequired bool

	seq int64 // monotonic insertion order, breaks priority ties FIFO
}

// Bus is the inter-worker message bus. Safe for concurrent use; a single
// mutex guards every recipient's queue, the registration tables, and the
// history, so sends and receives on different workers are serialized.
type Bus struct {
	clock clock.Clock

	mu        sync.Mutex
	queues    map[string]*priorityQueue
	known     map[string]bool // registered worker ids, for broadcast fan-out
	subs      map[string]map[Type]bool
	seq       int64
	history   []Message
	historyCap int
}

const defaultHistoryCap = 500

// New creates an empty message bus.
func New(c clock.Clock) *Bus {
	return &Bus{
		clock:      c,
		queues:     make(map[string]*priorityQueue),
		known:      make(map[string]bool),
		subs:       make(map[string]map[Type]bool),
		historyCap: defaultHistoryCap,
	}
}

// Register adds workerID to the set of known recipients for broadcast
// fan-out. Idempotent.
func (b *Bus) Register(workerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.known[workerID] = true
	if _, ok := b.queues[workerID]; !ok {
		b.queues[workerID] = newPriorityQueue()
	}
}

// Unregister drops workerID from the known set and discards its queue.
func (b *Bus) Unregister(workerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.known, workerID)
	delete(b.queues, workerID)
	delete(b.subs, workerID)
}

// Subscribe records workerID's interest in the given types. Broadcast
// delivery today ignores subscriptions (spec §4.1: "used by future
// fan-out; today broadcast covers all") but the table is kept so a future
// targeted fan-out can read it without an API change.
func (b *Bus) Subscribe(workerID string, types []Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[workerID]
	if !ok {
		set = make(map[Type]bool)
		b.subs[workerID] = set
	}

	for _, t := range types {
		set[t] = true
	}
}

// Send enqueues msg for its recipient, or fans out a copy to every known
// worker except the sender when ReceiverID is Broadcast. ID, Timestamp, and
// ResponseRequired are populated if unset.
func (b *Bus) Send(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = b.clock.Now()
	}

	if !msg.ResponseRequired {
		msg.ResponseRequired = responseRequiredTypes[msg.Type]
	}

	if msg.ReceiverID == Broadcast {
		for worker := range b.known {
			if worker == msg.SenderID {
				continue
			}

			b.enqueueLocked(worker, msg)
		}

		return
	}

	b.enqueueLocked(msg.ReceiverID, msg)
}

func (b *Bus) enqueueLocked(receiver string, msg Message) {
	q, ok := b.queues[receiver]
	if !ok {
		q = newPriorityQueue()
		b.queues[receiver] = q
	}

	b.seq++
	msg.ReceiverID = receiver
	msg.seq = b.seq
	heap.Push(q, msg)

	b.history = append(b.history, msg)
	if len(b.history) > b.historyCap {
		b.history = b.history[len(b.history)-b.historyCap:]
	}
}

// Receive pops the highest-priority, oldest-enqueued message for workerID.
// Returns false if the queue is empty.
func (b *Bus) Receive(workerID string) (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[workerID]
	if !ok || q.Len() == 0 {
		return Message{}, false
	}

	msg := heap.Pop(q).(Message)
	msg.Processed = true

	return msg, true
}

// Pending returns the number of queued messages for workerID.
func (b *Bus) Pending(workerID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[workerID]
	if !ok {
		return 0
	}

	return q.Len()
}

// History returns a snapshot of the bounded delivery history, most recent
// last, for introspection (spec §4.1).
func (b *Bus) History() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Message, len(b.history))
	copy(out, b.history)

	return out
}

// priorityQueue orders by (Priority desc, seq asc) so equal-priority
// messages from any sender are delivered FIFO among themselves (spec
// invariant 3: per sender/receiver pair FIFO at equal priority).
type priorityQueue []Message

func newPriorityQueue() *priorityQueue {
	pq := make(priorityQueue, 0)

	return &pq
}

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority > pq[j].Priority
	}

	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(Message))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]

	return item
}
