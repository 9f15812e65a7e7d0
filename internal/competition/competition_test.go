package competition

import (
	"fmt"
	"testing"

	"github.com/patentlens/kernel/internal/patent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordsForApplicantCounts(counts map[string]int) []patent.Record {
	var out []patent.Record

	for name, n := range counts {
		for i := 0; i < n; i++ {
			out = append(out, patent.Record{
				ApplicationNumber: fmt.Sprintf("APP-%s-%d", name, i),
				Applicants:        []string{name},
				ApplicationDate:   "2022-01-01",
				IPCClasses:        []string{"H01M"},
				Country:           "CN",
			})
		}
	}

	return out
}

func TestS2HHI(t *testing.T) {
	t.Parallel()

	records := recordsForApplicantCounts(map[string]int{"A": 50, "B": 30, "C": 20})

	result := New().Analyze(records)

	require.False(t, result.Insufficient)
	assert.InDelta(t, 0.38, result.HHI, 1e-9)
	assert.InDelta(t, 1.0, result.CR4, 1e-9)
	assert.Equal(t, "高度集中", result.ConcentrationLevel)
}

func TestHHIBoundsInvariant(t *testing.T) {
	t.Parallel()

	records := recordsForApplicantCounts(map[string]int{
		"Alpha Corp": 10, "Beta LLC": 8, "Gamma Inc.": 6, "Delta Ltd.": 4, "Epsilon Co.": 2,
	})

	result := New().Analyze(records)
	require.False(t, result.Insufficient)

	n := float64(len(result.ApplicantCounts))
	assert.GreaterOrEqual(t, result.HHI, 1/n-1e-9)
	assert.LessOrEqual(t, result.HHI, 1.0+1e-9)
	assert.GreaterOrEqual(t, result.CR4, 0.0)
	assert.LessOrEqual(t, result.CR4, 1.0)
	assert.GreaterOrEqual(t, result.Gini, 0.0)
	assert.LessOrEqual(t, result.Gini, 1.0)
}

func TestNormalizeApplicant(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Acme Corporation":  "Acme",
		"华为技术有限公司":         "华为技术",
		"Beta Tech, Inc.":   "Beta Tech",
	}

	for input, want := range cases {
		assert.Equal(t, want, NormalizeApplicant(input), input)
	}
}

func TestEmergingApplicants(t *testing.T) {
	t.Parallel()

	var records []patent.Record

	for _, year := range []int{2024, 2024, 2024, 2025, 2025} {
		records = append(records, patent.Record{
			Applicants:      []string{"NewCo"},
			ApplicationDate: fmt.Sprintf("%d-01-01", year),
		})
	}

	// padding so data isn't "insufficient"
	records = append(records,
		patent.Record{Applicants: []string{"OldCo"}, ApplicationDate: "2020-01-01"},
		patent.Record{Applicants: []string{"OldCo"}, ApplicationDate: "2021-01-01"},
	)

	result := New().Analyze(records)
	require.False(t, result.Insufficient)

	var found bool

	for _, e := range result.Emerging {
		if e.Applicant == "NewCo" {
			found = true

			assert.Equal(t, "new_entrant", e.Type)
		}
	}

	assert.True(t, found)
}

func TestCompetitorPairsAboveThreshold(t *testing.T) {
	t.Parallel()

	records := []patent.Record{
		{Applicants: []string{"Alpha"}, IPCClasses: []string{"H01M", "H02J"}, ApplicationDate: "2022-01-01"},
		{Applicants: []string{"Beta"}, IPCClasses: []string{"H01M", "H02J"}, ApplicationDate: "2022-01-01"},
		{Applicants: []string{"Gamma"}, IPCClasses: []string{"A01B"}, ApplicationDate: "2022-01-01"},
	}

	result := New().Analyze(records)
	require.False(t, result.Insufficient)

	require.NotEmpty(t, result.Competitors)
	assert.Equal(t, 1.0, result.Competitors[0].Similarity)
}
