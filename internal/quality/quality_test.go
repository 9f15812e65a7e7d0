package quality

import (
	"testing"
	"time"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/patent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() *patent.Bundle {
	return &patent.Bundle{
		ResultID: "r1",
		Trend: &patent.TrendResult{
			DataPointCount: 25,
			Pattern:        "steady_growth",
			Direction:      "increasing",
			GrowthRates:    map[int]float64{2021: 10, 2022: 12},
			YearlyCounts:   map[int]int{2020: 10, 2021: 11, 2022: 12},
		},
		Competition: &patent.CompetitionResult{
			DataPointCount: 20,
			HHI:            0.2,
			ApplicantCounts: []patent.ApplicantCount{
				{Applicant: "A", Count: 5}, {Applicant: "B", Count: 3},
			},
		},
	}
}

func TestS6QualityCache(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	fc := clock.NewFixed(start)

	ctrl := New(fc, Config{})
	bundle := sampleBundle()

	first := ctrl.Validate(bundle)

	fc.Advance(30 * time.Minute)

	second := ctrl.Validate(bundle)

	assert.Same(t, first, second, "a validate call within TTL for the same bundle should return the identical cached report instance")
	assert.Equal(t, first.Overall, second.Overall)

	fc.Advance(45 * time.Minute) // total 75 min > 3600s TTL

	third := ctrl.Validate(bundle)
	assert.NotSame(t, first, third, "after TTL expiry, validation should be recomputed")
}

func TestGradeMapping(t *testing.T) {
	t.Parallel()

	cases := map[float64]string{
		0.95: "excellent",
		0.85: "good",
		0.75: "acceptable",
		0.65: "poor",
		0.45: "failed",
		0.2:  "failed",
	}

	for score, want := range cases {
		assert.Equal(t, want, gradeOf(score), score)
	}
}

func TestAnomalyDetectionExtremeGrowth(t *testing.T) {
	t.Parallel()

	bundle := &patent.Bundle{
		Trend: &patent.TrendResult{
			DataPointCount: 5,
			GrowthRates:    map[int]float64{2022: 600},
			YearlyCounts:   map[int]int{2021: 10, 2022: 70},
		},
	}

	ctrl := New(clock.NewFixed(time.Now()), Config{})
	report := ctrl.Validate(bundle)

	require.NotEmpty(t, report.Anomalies)

	found := false

	for _, a := range report.Anomalies {
		if a.Severity == "critical" && a.Module == "trend" {
			found = true
		}
	}

	assert.True(t, found)
}

func TestTemporalStabilityAcrossVersions(t *testing.T) {
	t.Parallel()

	fc := clock.NewFixed(time.Now())
	ctrl := New(fc, Config{})

	b1 := sampleBundle()
	ctrl.Validate(b1)

	b2 := sampleBundle()
	b2.Trend.YearlyCounts = map[int]int{2020: 10, 2021: 11, 2022: 13} // slightly different content -> different result id

	report2 := ctrl.Validate(b2)
	assert.Equal(t, 1, report2.VersionNumber, "a bundle with new content hashes to a fresh result_id with its own version history")
	assert.Equal(t, 1.0, report2.Dimensions["temporal_stability"], "a result_id with no prior version has no basis for instability")
}
