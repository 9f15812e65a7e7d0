// Package loadbalancer implements per-worker capacity and rolling
// performance tracking, and specialty-aware worker selection (spec §4.2).
package loadbalancer

import (
	"math"
	"sort"
	"sync"
)

const (
	defaultCapacity        = 5
	performanceRingSize    = 100
	performanceBonusWeight = 0.1
	perfTimeWindowSeconds  = 30.0
	minExecutionSeconds    = 1e-9
)

// Worker is the load-balancer's view of a registered worker (spec §3
// WorkerRecord, load/capacity/performance fields only — identity and
// lifecycle live in the collaboration manager).
type Worker struct {
	ID                 string
	Capacity           int
	Specialties        map[string]bool // task types, or "general"
	Load               int
	PerformanceSamples []float64
}

func (w *Worker) meanPerformance() float64 {
	if len(w.PerformanceSamples) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range w.PerformanceSamples {
		sum += s
	}

	return sum / float64(len(w.PerformanceSamples))
}

// LoadBalancer tracks worker capacity and performance and selects the best
// worker for a task type.
type LoadBalancer struct {
	mu      sync.Mutex
	workers map[string]*Worker
}

// New creates an empty load balancer.
func New() *LoadBalancer {
	return &LoadBalancer{workers: make(map[string]*Worker)}
}

// Register adds or replaces a worker's capacity/specialty configuration.
// Load and performance history are preserved across re-registration of the
// same worker id.
func (lb *LoadBalancer) Register(workerID string, capacity int, specialties []string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if capacity <= 0 {
		capacity = defaultCapacity
	}

	specSet := make(map[string]bool, len(specialties))
	for _, s := range specialties {
		specSet[s] = true
	}

	w, ok := lb.workers[workerID]
	if !ok {
		w = &Worker{ID: workerID}
		lb.workers[workerID] = w
	}

	w.Capacity = capacity
	w.Specialties = specSet
}

// Unregister removes a worker entirely.
func (lb *LoadBalancer) Unregister(workerID string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	delete(lb.workers, workerID)
}

// Snapshot returns a copy of the current worker state, for introspection.
func (lb *LoadBalancer) Snapshot(workerID string) (Worker, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	w, ok := lb.workers[workerID]
	if !ok {
		return Worker{}, false
	}

	return cloneWorker(w), true
}

func cloneWorker(w *Worker) Worker {
	specs := make(map[string]bool, len(w.Specialties))
	for k, v := range w.Specialties {
		specs[k] = v
	}

	samples := make([]float64, len(w.PerformanceSamples))
	copy(samples, w.PerformanceSamples)

	return Worker{ID: w.ID, Capacity: w.Capacity, Specialties: specs, Load: w.Load, PerformanceSamples: samples}
}

// IncrementLoad increases workerID's load by one. The load is not capped at
// capacity here; SelectWorker skips workers whose load has reached it.
func (lb *LoadBalancer) IncrementLoad(workerID string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if w, ok := lb.workers[workerID]; ok {
		w.Load++
	}
}

// SelectWorker implements spec §4.2 select_worker: filters candidates by
// specialty, skips saturated workers, and picks the minimum of
// load_ratio - performance_bonus, breaking ties by worker id.
func (lb *LoadBalancer) SelectWorker(taskType string, candidates []string) (string, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	pool := lb.filterBySpecialty(taskType, candidates)

	type scored struct {
		id    string
		score float64
	}

	var best []scored

	for _, id := range pool {
		w, ok := lb.workers[id]
		if !ok || w.Capacity <= 0 || w.Load >= w.Capacity {
			continue
		}

		loadRatio := float64(w.Load) / float64(w.Capacity)
		bonus := (1 - w.meanPerformance()) * performanceBonusWeight
		if len(w.PerformanceSamples) == 0 {
			bonus = 0
		}

		best = append(best, scored{id: id, score: loadRatio - bonus})
	}

	if len(best) == 0 {
		return "", false
	}

	sort.Slice(best, func(i, j int) bool {
		if best[i].score != best[j].score {
			return best[i].score < best[j].score
		}

		return best[i].id < best[j].id
	})

	return best[0].id, true
}

func (lb *LoadBalancer) filterBySpecialty(taskType string, candidates []string) []string {
	var matched []string

	for _, id := range candidates {
		w, ok := lb.workers[id]
		if !ok {
			continue
		}

		if w.Specialties[taskType] || w.Specialties["general"] {
			matched = append(matched, id)
		}
	}

	if len(matched) == 0 {
		return candidates
	}

	return matched
}

// RecordCompletion implements spec §4.2 record_completion: appends a
// performance sample derived from execution time and outcome, evicts the
// oldest sample past the ring size, and decrements load with a floor of 0.
func (lb *LoadBalancer) RecordCompletion(workerID string, executionTimeSeconds float64, success bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	w, ok := lb.workers[workerID]
	if !ok {
		return
	}

	outcome := 0.0
	if success {
		outcome = 1.0
	}

	denom := math.Max(executionTimeSeconds, minExecutionSeconds)
	sample := outcome * math.Min(perfTimeWindowSeconds/denom, 1.0)

	w.PerformanceSamples = append(w.PerformanceSamples, sample)
	if len(w.PerformanceSamples) > performanceRingSize {
		w.PerformanceSamples = w.PerformanceSamples[len(w.PerformanceSamples)-performanceRingSize:]
	}

	if w.Load > 0 {
		w.Load--
	}
}
