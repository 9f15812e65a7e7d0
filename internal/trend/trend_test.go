package trend

import (
	"fmt"
	"testing"
	"time"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/patent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordsFromYearlyCounts(counts map[int]int) []patent.Record {
	var out []patent.Record

	for year, n := range counts {
		for i := 0; i < n; i++ {
			out = append(out, patent.Record{
				ApplicationNumber: fmt.Sprintf("APP-%d-%d", year, i),
				ApplicationDate:   fmt.Sprintf("%04d-06-15", year),
			})
		}
	}

	return out
}

func testClock() clock.Clock {
	return clock.NewFixed(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
}

func TestS1TrendMinimum(t *testing.T) {
	t.Parallel()

	records := recordsFromYearlyCounts(map[int]int{2020: 10, 2021: 20, 2022: 40})

	a := New(testClock(), Config{})
	result := a.Analyze(records)

	require.False(t, result.Insufficient)
	assert.InDelta(t, 100.0, result.GrowthRates[2021], 1e-9)
	assert.InDelta(t, 100.0, result.GrowthRates[2022], 1e-9)
	assert.Equal(t, "increasing", result.Direction)
	require.True(t, result.CAGRValid)
	assert.InDelta(t, 1.0, result.CAGR, 1e-9)
	assert.Equal(t, "rapid_growth", result.Pattern)
}

func TestInsufficientData(t *testing.T) {
	t.Parallel()

	records := recordsFromYearlyCounts(map[int]int{2024: 2})

	a := New(testClock(), Config{})
	result := a.Analyze(records)

	assert.True(t, result.Insufficient)
	assert.NotEmpty(t, result.Issues)
}

func TestTrendMonotonicityUnderShift(t *testing.T) {
	t.Parallel()

	base := map[int]int{2018: 5, 2019: 8, 2020: 6, 2021: 14, 2022: 30}

	a := New(testClock(), Config{})

	original := a.Analyze(recordsFromYearlyCounts(base))
	require.False(t, original.Insufficient)

	shifted := make(map[int]int, len(base))
	for y, c := range base {
		shifted[y] = c + 1000
	}

	shiftedResult := a.Analyze(recordsFromYearlyCounts(shifted))
	require.False(t, shiftedResult.Insufficient)

	assert.Equal(t, original.Direction, shiftedResult.Direction, "direction must not change when a non-negative constant is added to every yearly count (invariant 7)")
}

func TestDecreasingDirection(t *testing.T) {
	t.Parallel()

	records := recordsFromYearlyCounts(map[int]int{2020: 50, 2021: 30, 2022: 10})

	a := New(testClock(), Config{})
	result := a.Analyze(records)

	assert.Equal(t, "decreasing", result.Direction)
	assert.Equal(t, "rapid_decline", result.Pattern)
}

func TestOutlierDetection(t *testing.T) {
	t.Parallel()

	records := recordsFromYearlyCounts(map[int]int{
		2018: 10, 2019: 11, 2020: 12, 2021: 500, 2022: 13,
	})

	a := New(testClock(), Config{})
	result := a.Analyze(records)

	require.NotEmpty(t, result.Outliers)

	found := false

	for _, o := range result.Outliers {
		if o.Year == 2021 {
			found = true

			assert.Equal(t, "high", o.Direction)
		}
	}

	assert.True(t, found, "the extreme spike year should be flagged as an outlier")
}
