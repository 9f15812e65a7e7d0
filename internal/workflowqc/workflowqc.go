// Package workflowqc implements the Workflow Quality Controller (C10):
// request input validation, batch result consistency checks, performance
// checks, alerting, and rolling quality reports per workflow.
package workflowqc

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/kernelerr"
	"github.com/xeipuuv/gojsonschema"
)

const (
	responseTimeThreshold  = 30 * time.Second
	minThroughputPerMinute = 10.0
	maxErrorRate           = 0.05
	maxResourceUsage       = 0.80

	consecutiveFailureWindow = 3
	degradationThreshold     = 0.6
	trendWindow              = 5
	trendFlatBand            = 0.05

	maxAlerts = 500
)

// Schema is a named JSON-Schema document used to validate one request type.
type Schema struct {
	Name   string
	Schema string // JSON-Schema document text
}

// MonitoringSink forwards alerts to an external monitoring system (§6
// external interface).
type MonitoringSink interface {
	Forward(ctx context.Context, alert Alert) error
}

// Alert is a quality or performance alert raised by the controller.
type Alert struct {
	Kind      string // quality_degradation|consecutive_failures
	Workflow  string
	CreatedAt time.Time
	Detail    string
}

// PerformanceSample is one workflow execution's measured performance.
type PerformanceSample struct {
	ResponseTime  time.Duration
	ThroughputPM  float64
	ErrorRate     float64
	CPUUsage      float64
	MemoryUsage   float64
}

// CheckResult is one consistency/performance check outcome, recorded for
// the rolling workflow report.
type CheckResult struct {
	Workflow  string
	Score     float64
	Passed    bool
	CreatedAt time.Time
}

// Controller runs workflow-level quality checks.
type Controller struct {
	clock clock.Clock
	sink  MonitoringSink

	schemas map[string]*gojsonschema.Schema

	mu       sync.Mutex
	alerts   []Alert
	history  map[string][]CheckResult
}

// New creates a workflow quality Controller. sink may be nil.
func New(c clock.Clock, sink MonitoringSink) *Controller {
	return &Controller{
		clock:   c,
		sink:    sink,
		schemas: make(map[string]*gojsonschema.Schema),
		history: make(map[string][]CheckResult),
	}
}

// RegisterSchema compiles and registers a named JSON-Schema document for
// input validation.
func (c *Controller) RegisterSchema(s Schema) error {
	loader := gojsonschema.NewStringLoader(s.Schema)

	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.schemas[s.Name] = compiled
	c.mu.Unlock()

	return nil
}

// ValidationError describes one schema validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// ValidateInput checks payload (already-decoded JSON) against the named
// schema's required fields, types, and constraints (spec §4.10).
func (c *Controller) ValidateInput(schemaName string, payload any) ([]ValidationError, error) {
	c.mu.Lock()
	schema, ok := c.schemas[schemaName]
	c.mu.Unlock()

	if !ok {
		return nil, errUnknownSchema(schemaName)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(encoded))
	if err != nil {
		return nil, err
	}

	if result.Valid() {
		return nil, nil
	}

	out := make([]ValidationError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, ValidationError{Field: e.Field(), Message: e.Description()})
	}

	return out, nil
}

// BatchResult is one result item in a consistency-checked batch: a
// numerical field set, an optional categorical label, and an optional
// trend direction.
type BatchResult struct {
	Numerical  map[string]float64
	Categorical string
	Direction   string // increasing|stable|decreasing, empty if not applicable
}

// ConsistencyReport summarizes the batch-level consistency check.
type ConsistencyReport struct {
	NumericalOK   bool
	CategoricalOK bool
	TrendOK       bool
	Score         float64
}

// CheckConsistency evaluates numerical coefficient-of-variation, categorical
// majority share, and trend-direction agreement across a batch of results
// (spec §4.10).
func CheckConsistency(results []BatchResult) ConsistencyReport {
	numericalOK := numericalConsistent(results)
	categoricalOK := categoricalConsistent(results)
	trendOK := trendConsistent(results)

	passed := boolCount(numericalOK, categoricalOK, trendOK)

	return ConsistencyReport{
		NumericalOK:   numericalOK,
		CategoricalOK: categoricalOK,
		TrendOK:       trendOK,
		Score:         float64(passed) / 3,
	}
}

func boolCount(vals ...bool) int {
	n := 0

	for _, v := range vals {
		if v {
			n++
		}
	}

	return n
}

func numericalConsistent(results []BatchResult) bool {
	fields := make(map[string][]float64)

	for _, r := range results {
		for field, v := range r.Numerical {
			fields[field] = append(fields[field], v)
		}
	}

	if len(fields) == 0 {
		return true
	}

	for _, vals := range fields {
		if coefficientOfVariation(vals) > 0.2 {
			return false
		}
	}

	return true
}

func coefficientOfVariation(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}

	m := meanOf(vals)
	if m == 0 {
		return 0
	}

	var variance float64
	for _, v := range vals {
		variance += (v - m) * (v - m)
	}

	stddev := math.Sqrt(variance / float64(len(vals)))

	return math.Abs(stddev / m)
}

func meanOf(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}

	return sum / float64(len(vals))
}

func categoricalConsistent(results []BatchResult) bool {
	counts := make(map[string]int)
	total := 0

	for _, r := range results {
		if r.Categorical == "" {
			continue
		}

		counts[r.Categorical]++
		total++
	}

	if total == 0 {
		return true
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	return float64(maxCount)/float64(total) >= 0.6
}

func trendConsistent(results []BatchResult) bool {
	counts := make(map[string]int)
	total := 0

	for _, r := range results {
		if r.Direction == "" {
			continue
		}

		counts[r.Direction]++
		total++
	}

	if total == 0 {
		return true
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	return float64(maxCount)/float64(total) >= 0.6
}

// PerformanceReport is the outcome of CheckPerformance.
type PerformanceReport struct {
	ResponseTimeScore float64
	ThroughputOK      bool
	ErrorRateOK       bool
	ResourceOK        bool
	Score             float64
}

// CheckPerformance scores a PerformanceSample per spec §4.10's thresholds.
// Response time decays linearly from 1.0 at the threshold to 0.0 at 2x the
// threshold.
func CheckPerformance(sample PerformanceSample) PerformanceReport {
	responseScore := 1.0

	if sample.ResponseTime > responseTimeThreshold {
		over := sample.ResponseTime - responseTimeThreshold
		span := responseTimeThreshold

		responseScore = math.Max(0, 1-float64(over)/float64(span))
	}

	throughputOK := sample.ThroughputPM >= minThroughputPerMinute
	errorRateOK := sample.ErrorRate <= maxErrorRate
	resourceOK := sample.CPUUsage <= maxResourceUsage && sample.MemoryUsage <= maxResourceUsage

	score := responseScore
	score += boolScore(throughputOK)
	score += boolScore(errorRateOK)
	score += boolScore(resourceOK)
	score /= 4

	return PerformanceReport{
		ResponseTimeScore: responseScore,
		ThroughputOK:      throughputOK,
		ErrorRateOK:       errorRateOK,
		ResourceOK:        resourceOK,
		Score:             score,
	}
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}

	return 0
}

// RecordCheck appends a check outcome to workflow's rolling history and
// fires alerts whenever the score is below the degradation threshold or the
// last 3 checks all failed (spec §4.10).
func (c *Controller) RecordCheck(ctx context.Context, workflow string, score float64, passed bool) {
	c.mu.Lock()

	result := CheckResult{Workflow: workflow, Score: score, Passed: passed, CreatedAt: c.clock.Now()}
	c.history[workflow] = append(c.history[workflow], result)

	history := c.history[workflow]

	var newAlerts []Alert

	if score < degradationThreshold {
		newAlerts = append(newAlerts, Alert{
			Kind:      "quality_degradation",
			Workflow:  workflow,
			CreatedAt: result.CreatedAt,
			Detail:    "quality score fell below threshold",
		})
	}

	if consecutiveFailures(history) {
		newAlerts = append(newAlerts, Alert{
			Kind:      "consecutive_failures",
			Workflow:  workflow,
			CreatedAt: result.CreatedAt,
			Detail:    "last 3 checks all failed",
		})
	}

	c.alerts = append(c.alerts, newAlerts...)
	if len(c.alerts) > maxAlerts {
		c.alerts = c.alerts[len(c.alerts)-maxAlerts:]
	}

	c.mu.Unlock()

	if c.sink != nil {
		for _, a := range newAlerts {
			_ = c.sink.Forward(ctx, a)
		}
	}
}

func consecutiveFailures(history []CheckResult) bool {
	if len(history) < consecutiveFailureWindow {
		return false
	}

	tail := history[len(history)-consecutiveFailureWindow:]

	for _, r := range tail {
		if r.Passed {
			return false
		}
	}

	return true
}

func errUnknownSchema(name string) error {
	return kernelerr.New(kernelerr.Validation, "no schema registered for request type "+name)
}

// Alerts returns a snapshot of all recorded alerts.
func (c *Controller) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)

	return out
}

// WorkflowReport summarizes one workflow's check history.
type WorkflowReport struct {
	Workflow     string
	AverageScore float64
	CheckCount   int
	Trend        string // improving|declining|stable
}

// Report builds the rolling summary for workflow: average score and a
// trend classification over the last 5 checks.
func (c *Controller) Report(workflow string) WorkflowReport {
	c.mu.Lock()
	history := append([]CheckResult(nil), c.history[workflow]...)
	c.mu.Unlock()

	if len(history) == 0 {
		return WorkflowReport{Workflow: workflow}
	}

	scores := make([]float64, len(history))
	for i, h := range history {
		scores[i] = h.Score
	}

	avg := meanOf(scores)

	return WorkflowReport{
		Workflow:     workflow,
		AverageScore: avg,
		CheckCount:   len(history),
		Trend:        trendOf(history),
	}
}

func trendOf(history []CheckResult) string {
	window := history
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}

	if len(window) < 2 {
		return "stable"
	}

	half := len(window) / 2
	early := meanScores(window[:half])
	late := meanScores(window[half:])

	diff := late - early

	switch {
	case diff > trendFlatBand:
		return "improving"
	case diff < -trendFlatBand:
		return "declining"
	default:
		return "stable"
	}
}

func meanScores(results []CheckResult) float64 {
	vals := make([]float64, len(results))
	for i, r := range results {
		vals[i] = r.Score
	}

	return meanOf(vals)
}

// Workflows returns the names of all workflows with recorded check history,
// sorted for deterministic iteration.
func (c *Controller) Workflows() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.history))
	for name := range c.history {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
