package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentlens/kernel/internal/clock"
)

func newTestBus() *Bus {
	return New(clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSendReceiveFIFO(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	b.Register("worker-1")

	b.Send(Message{SenderID: "s", ReceiverID: "worker-1", Type: StatusUpdate, Priority: 1, Content: map[string]any{"n": 1}})
	b.Send(Message{SenderID: "s", ReceiverID: "worker-1", Type: StatusUpdate, Priority: 1, Content: map[string]any{"n": 2}})

	m1, ok := b.Receive("worker-1")
	require.True(t, ok)
	assert.Equal(t, 1, m1.Content["n"])
	assert.True(t, m1.Processed)

	m2, ok := b.Receive("worker-1")
	require.True(t, ok)
	assert.Equal(t, 2, m2.Content["n"])
}

func TestReceivePriorityBeforeFIFO(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	b.Register("w")

	b.Send(Message{SenderID: "s", ReceiverID: "w", Priority: 1, Content: map[string]any{"n": "low"}})
	b.Send(Message{SenderID: "s", ReceiverID: "w", Priority: 5, Content: map[string]any{"n": "high"}})

	m, ok := b.Receive("w")
	require.True(t, ok)
	assert.Equal(t, "high", m.Content["n"])
}

func TestBroadcastExcludesSender(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	b.Register("a")
	b.Register("b")
	b.Register("c")

	b.Send(Message{SenderID: "a", ReceiverID: Broadcast, Type: CollaborationStart})

	_, ok := b.Receive("a")
	assert.False(t, ok)

	_, ok = b.Receive("b")
	assert.True(t, ok)

	_, ok = b.Receive("c")
	assert.True(t, ok)
}

func TestReceiveEmptyQueue(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	b.Register("w")

	_, ok := b.Receive("w")
	assert.False(t, ok)
}

func TestResponseRequiredDerivedFromType(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	b.Register("w")
	b.Send(Message{SenderID: "s", ReceiverID: "w", Type: TaskAssignment})

	m, ok := b.Receive("w")
	require.True(t, ok)
	assert.True(t, m.ResponseRequired)
}

func TestHistoryBounded(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	b.Register("w")
	b.historyCap = 3

	for i := 0; i < 10; i++ {
		b.Send(Message{SenderID: "s", ReceiverID: "w"})
	}

	assert.Len(t, b.History(), 3)
}

func TestUnregisterDropsQueue(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	b.Register("w")
	b.Send(Message{SenderID: "s", ReceiverID: "w"})
	b.Unregister("w")

	assert.Equal(t, 0, b.Pending("w"))
}
