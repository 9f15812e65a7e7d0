package workflowqc

import (
	"context"
	"testing"
	"time"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchRequestSchema = `{
	"type": "object",
	"required": ["keywords", "limit"],
	"properties": {
		"keywords": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"limit": {"type": "integer", "minimum": 1, "maximum": 100}
	}
}`

func TestValidateInputSchema(t *testing.T) {
	t.Parallel()

	ctrl := New(clock.NewFixed(time.Now()), nil)
	require.NoError(t, ctrl.RegisterSchema(Schema{Name: "search_request", Schema: searchRequestSchema}))

	errs, err := ctrl.ValidateInput("search_request", map[string]any{"keywords": []string{"ai"}, "limit": 10})
	require.NoError(t, err)
	assert.Empty(t, errs)

	errs, err = ctrl.ValidateInput("search_request", map[string]any{"limit": 200})
	require.NoError(t, err)
	assert.NotEmpty(t, errs)
}

func TestConsistencyChecks(t *testing.T) {
	t.Parallel()

	results := []BatchResult{
		{Numerical: map[string]float64{"score": 0.80}, Categorical: "good", Direction: "increasing"},
		{Numerical: map[string]float64{"score": 0.81}, Categorical: "good", Direction: "increasing"},
		{Numerical: map[string]float64{"score": 0.79}, Categorical: "good", Direction: "stable"},
	}

	report := CheckConsistency(results)
	assert.True(t, report.NumericalOK)
	assert.True(t, report.CategoricalOK)
	assert.True(t, report.TrendOK)
	assert.Equal(t, 1.0, report.Score)
}

func TestConsistencyChecksFailWhenScattered(t *testing.T) {
	t.Parallel()

	results := []BatchResult{
		{Numerical: map[string]float64{"score": 0.1}, Categorical: "a", Direction: "increasing"},
		{Numerical: map[string]float64{"score": 0.9}, Categorical: "b", Direction: "decreasing"},
		{Numerical: map[string]float64{"score": 0.5}, Categorical: "c", Direction: "stable"},
	}

	report := CheckConsistency(results)
	assert.False(t, report.NumericalOK)
	assert.False(t, report.CategoricalOK)
	assert.False(t, report.TrendOK)
}

func TestPerformanceCheck(t *testing.T) {
	t.Parallel()

	good := CheckPerformance(PerformanceSample{
		ResponseTime: 10 * time.Second,
		ThroughputPM: 20,
		ErrorRate:    0.01,
		CPUUsage:     0.5,
		MemoryUsage:  0.5,
	})
	assert.Equal(t, 1.0, good.Score)

	bad := CheckPerformance(PerformanceSample{
		ResponseTime: 60 * time.Second, // 2x threshold -> 0 response score
		ThroughputPM: 2,
		ErrorRate:    0.2,
		CPUUsage:     0.95,
		MemoryUsage:  0.95,
	})
	assert.Equal(t, 0.0, bad.ResponseTimeScore)
	assert.Equal(t, 0.0, bad.Score)
}

type captureSink struct {
	alerts []Alert
}

func (s *captureSink) Forward(_ context.Context, a Alert) error {
	s.alerts = append(s.alerts, a)

	return nil
}

func TestConsecutiveFailuresAlert(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	ctrl := New(clock.NewFixed(time.Now()), sink)

	ctx := context.Background()

	ctrl.RecordCheck(ctx, "wf-1", 0.9, true)
	ctrl.RecordCheck(ctx, "wf-1", 0.3, false)
	ctrl.RecordCheck(ctx, "wf-1", 0.2, false)
	ctrl.RecordCheck(ctx, "wf-1", 0.1, false)

	alerts := ctrl.Alerts()
	require.NotEmpty(t, alerts)

	var sawConsecutive, sawDegradation bool

	for _, a := range alerts {
		if a.Kind == "consecutive_failures" {
			sawConsecutive = true
		}

		if a.Kind == "quality_degradation" {
			sawDegradation = true
		}
	}

	assert.True(t, sawConsecutive)
	assert.True(t, sawDegradation)
	assert.NotEmpty(t, sink.alerts, "alerts should be forwarded to the configured monitoring sink")
}

func TestWorkflowReportTrend(t *testing.T) {
	t.Parallel()

	ctrl := New(clock.NewFixed(time.Now()), nil)
	ctx := context.Background()

	scores := []float64{0.5, 0.5, 0.8, 0.9, 0.95}
	for _, s := range scores {
		ctrl.RecordCheck(ctx, "wf-2", s, s >= 0.6)
	}

	report := ctrl.Report("wf-2")
	assert.Equal(t, "improving", report.Trend)
	assert.Equal(t, 5, report.CheckCount)
}
