package loadbalancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestS5LoadBalancing is spec §8 scenario S5.
func TestS5LoadBalancing(t *testing.T) {
	t.Parallel()

	lb := New()
	lb.Register("W1", 5, []string{"general"})
	lb.Register("W2", 5, []string{"general"})

	for i := 0; i < 2; i++ {
		lb.IncrementLoad("W1")
		lb.IncrementLoad("W2")
	}

	lb.workers["W1"].PerformanceSamples = []float64{1.0}
	lb.workers["W2"].PerformanceSamples = []float64{0.5}

	selected, ok := lb.SelectWorker("search", []string{"W1", "W2"})
	require.True(t, ok)
	assert.Equal(t, "W2", selected)
}

func TestSelectWorkerSkipsSaturated(t *testing.T) {
	t.Parallel()

	lb := New()
	lb.Register("W1", 2, []string{"general"})
	lb.IncrementLoad("W1")
	lb.IncrementLoad("W1")

	lb.Register("W2", 2, []string{"general"})

	selected, ok := lb.SelectWorker("x", []string{"W1", "W2"})
	require.True(t, ok)
	assert.Equal(t, "W2", selected)
}

func TestSelectWorkerNoneAvailable(t *testing.T) {
	t.Parallel()

	lb := New()
	lb.Register("W1", 1, []string{"general"})
	lb.IncrementLoad("W1")

	_, ok := lb.SelectWorker("x", []string{"W1"})
	assert.False(t, ok)
}

func TestSelectWorkerSpecialtyFilter(t *testing.T) {
	t.Parallel()

	lb := New()
	lb.Register("specialist", 5, []string{"trend"})
	lb.Register("generalist", 5, []string{"general"})
	lb.Register("other", 5, []string{"competition"})

	selected, ok := lb.SelectWorker("trend", []string{"specialist", "generalist", "other"})
	require.True(t, ok)
	assert.Contains(t, []string{"specialist", "generalist"}, selected)
}

func TestSelectWorkerTieBrokenByID(t *testing.T) {
	t.Parallel()

	lb := New()
	lb.Register("bravo", 5, []string{"general"})
	lb.Register("alpha", 5, []string{"general"})

	selected, ok := lb.SelectWorker("x", []string{"bravo", "alpha"})
	require.True(t, ok)
	assert.Equal(t, "alpha", selected)
}

func TestRecordCompletionDecrementsLoadFloored(t *testing.T) {
	t.Parallel()

	lb := New()
	lb.Register("W1", 5, []string{"general"})

	lb.RecordCompletion("W1", 10, true)
	w, _ := lb.Snapshot("W1")
	assert.Equal(t, 0, w.Load)
	require.Len(t, w.PerformanceSamples, 1)
	assert.InDelta(t, 1.0, w.PerformanceSamples[0], 0.0001)
}

func TestRecordCompletionFailureSampleIsZero(t *testing.T) {
	t.Parallel()

	lb := New()
	lb.Register("W1", 5, []string{"general"})
	lb.RecordCompletion("W1", 5, false)

	w, _ := lb.Snapshot("W1")
	assert.InDelta(t, 0.0, w.PerformanceSamples[0], 0.0001)
}

func TestPerformanceRingEviction(t *testing.T) {
	t.Parallel()

	lb := New()
	lb.Register("W1", 5, []string{"general"})

	for i := 0; i < 150; i++ {
		lb.RecordCompletion("W1", 1, true)
	}

	w, _ := lb.Snapshot("W1")
	assert.Len(t, w.PerformanceSamples, performanceRingSize)
}
