package report

import (
	"sort"
	"strconv"

	"github.com/patentlens/kernel/internal/patent"
)

const topNChart = 10

// BuildChartSpecs derives the four standard chart specs from bundle
// (spec §4.11); a variant not present in bundle is simply omitted.
func BuildChartSpecs(bundle *patent.Bundle) []ChartSpec {
	var specs []ChartSpec

	if bundle.HasTrend() && !bundle.Trend.Insufficient {
		specs = append(specs, trendChartSpec(bundle.Trend))
	}

	if bundle.HasCompetition() && !bundle.Competition.Insufficient {
		specs = append(specs, competitionChartSpec(bundle.Competition))
	}

	if bundle.HasTechnology() && !bundle.Technology.Insufficient {
		specs = append(specs, technologyChartSpec(bundle.Technology))
	}

	if bundle.Geographic != nil {
		specs = append(specs, geographicChartSpec(bundle.Geographic))
	}

	return specs
}

func trendChartSpec(t *patent.TrendResult) ChartSpec {
	years := make([]int, 0, len(t.YearlyCounts))
	for y := range t.YearlyCounts {
		years = append(years, y)
	}

	sort.Ints(years)

	categories := make([]string, len(years))
	values := make([]float64, len(years))

	for i, y := range years {
		categories[i] = yearLabel(y)
		values[i] = float64(t.YearlyCounts[y])
	}

	return ChartSpec{Name: "trend_chart", Type: ChartLine, Title: "专利申请趋势", Categories: categories, Values: values}
}

func competitionChartSpec(c *patent.CompetitionResult) ChartSpec {
	n := topNChart
	if n > len(c.ApplicantCounts) {
		n = len(c.ApplicantCounts)
	}

	categories := make([]string, n)
	values := make([]float64, n)

	for i := 0; i < n; i++ {
		categories[i] = c.ApplicantCounts[i].Applicant
		values[i] = float64(c.ApplicantCounts[i].Count)
	}

	return ChartSpec{Name: "competition_chart", Type: ChartPie, Title: "主要申请人份额", Categories: categories, Values: values}
}

func technologyChartSpec(tc *patent.TechnologyResult) ChartSpec {
	n := topNChart
	if n > len(tc.IPCDistribution) {
		n = len(tc.IPCDistribution)
	}

	categories := make([]string, n)
	values := make([]float64, n)

	for i := 0; i < n; i++ {
		categories[i] = tc.IPCDistribution[i].Prefix
		values[i] = float64(tc.IPCDistribution[i].Count)
	}

	return ChartSpec{Name: "technology_chart", Type: ChartBar, Title: "IPC 分类分布", Categories: categories, Values: values}
}

func geographicChartSpec(g *patent.GeographicResult) ChartSpec {
	type pair struct {
		country string
		count   int
	}

	pairs := make([]pair, 0, len(g.CountryCounts))
	for country, count := range g.CountryCounts {
		pairs = append(pairs, pair{country, count})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}

		return pairs[i].country < pairs[j].country
	})

	n := topNChart
	if n > len(pairs) {
		n = len(pairs)
	}

	categories := make([]string, n)
	values := make([]float64, n)

	for i := 0; i < n; i++ {
		categories[i] = pairs[i].country
		values[i] = float64(pairs[i].count)
	}

	return ChartSpec{Name: "geographic_chart", Type: ChartBar, Title: "地域分布", Categories: categories, Values: values}
}

func yearLabel(y int) string {
	return strconv.Itoa(y)
}
