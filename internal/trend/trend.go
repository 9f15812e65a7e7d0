// Package trend implements the Trend Analyzer (C6): yearly/monthly/
// quarterly counting, linear-regression trend strength, CAGR, pattern
// classification, ensemble predictions, confidence grading, seasonality,
// and outlier detection over a set of patent records.
package trend

import (
	"fmt"
	"math"
	"sort"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/patent"
)

const (
	minDataPoints  = 3
	minSpanDays    = 365
	minDistinctYrs = 3

	directionEpsilon = 1e-9
	seasonalCVCutoff = 0.3
)

// Config tunes the analyzer; zero-value Config is filled with defaults by
// New.
type Config struct {
	MovingAverageWindow int
	PredictionYears     int
	SmoothingAlpha      float64
}

func (c Config) withDefaults() Config {
	if c.MovingAverageWindow <= 0 {
		c.MovingAverageWindow = 3
	}

	if c.PredictionYears <= 0 {
		c.PredictionYears = 3
	}

	if c.SmoothingAlpha <= 0 {
		c.SmoothingAlpha = 0.3
	}

	return c
}

// Analyzer runs trend analysis over patent records.
type Analyzer struct {
	clock  clock.Clock
	config Config
}

// New creates a trend Analyzer with the given configuration.
func New(c clock.Clock, cfg Config) *Analyzer {
	return &Analyzer{clock: c, config: cfg.withDefaults()}
}

// Analyze computes the full TrendResult for records.
func (a *Analyzer) Analyze(records []patent.Record) *patent.TrendResult {
	yearly, monthly, quarterly := bucketCounts(records)

	years := sortedYears(yearly)

	if issues := insufficiencyIssues(records, years); len(issues) > 0 {
		return &patent.TrendResult{
			YearlyCounts:   yearly,
			DataPointCount: len(records),
			Issues:         issues,
			Insufficient:   true,
		}
	}

	result := &patent.TrendResult{
		YearlyCounts:    yearly,
		MonthlyCounts:   monthly,
		QuarterlyCounts: quarterly,
		DataPointCount:  len(records),
	}

	result.MovingAverage = movingAverage(years, yearly, a.config.MovingAverageWindow)
	result.GrowthRates = growthRates(years, yearly)

	slope, r := linearRegression(years, yearly)
	result.Slope = slope
	result.CorrelationR = r

	result.CAGR, result.CAGRValid = cagr(years, yearly)
	result.Pattern = classifyPattern(meanGrowth(result.GrowthRates))

	result.Predictions = a.predict(years, yearly, result.MovingAverage)

	result.Direction, result.DirectionConf, result.DirectionStrength = directionAnalysis(slope, r, result.Pattern, result.CAGR, result.CAGRValid)

	result.Confidence = confidence(len(records), r, result.Predictions, years)
	result.ConfidenceGrade = confidenceGrade(result.Confidence)

	result.SeasonalityCV = seasonalityCV(monthly)
	result.Seasonal = result.SeasonalityCV > seasonalCVCutoff

	result.Outliers = detectOutliers(years, yearly)

	return result
}

func bucketCounts(records []patent.Record) (yearly map[int]int, monthly, quarterly map[string]int) {
	yearly = make(map[int]int)
	monthly = make(map[string]int)
	quarterly = make(map[string]int)

	for _, rec := range records {
		t, ok := patent.ParseDate(rec.ApplicationDate)
		if !ok {
			continue
		}

		yearly[t.Year()]++
		monthly[monthKey(t.Year(), int(t.Month()))]++
		quarterly[quarterKey(t.Year(), int(t.Month()))]++
	}

	return yearly, monthly, quarterly
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func quarterKey(year, month int) string {
	q := (month-1)/3 + 1

	return fmt.Sprintf("%04d-Q%d", year, q)
}

func sortedYears(yearly map[int]int) []int {
	years := make([]int, 0, len(yearly))
	for y := range yearly {
		years = append(years, y)
	}

	sort.Ints(years)

	return years
}

func insufficiencyIssues(records []patent.Record, years []int) []string {
	var issues []string

	if len(records) < minDataPoints {
		issues = append(issues, "fewer than 3 data points")
	}

	if len(years) < minDistinctYrs {
		issues = append(issues, "fewer than 3 distinct years")
	}

	if span := dateSpanDays(records); span < minSpanDays {
		issues = append(issues, "date span shorter than 365 days")
	}

	return issues
}

func dateSpanDays(records []patent.Record) int {
	var min, max int64
	first := true

	for _, rec := range records {
		t, ok := patent.ParseDate(rec.ApplicationDate)
		if !ok {
			continue
		}

		unix := t.Unix()

		if first {
			min, max = unix, unix
			first = false

			continue
		}

		if unix < min {
			min = unix
		}

		if unix > max {
			max = unix
		}
	}

	if first {
		return 0
	}

	return int((max - min) / 86400)
}

func movingAverage(years []int, yearly map[int]int, window int) map[int]float64 {
	out := make(map[int]float64, len(years))

	for i, y := range years {
		start := i - window + 1
		if start < 0 {
			start = 0
		}

		sum := 0.0
		count := 0

		for j := start; j <= i; j++ {
			sum += float64(yearly[years[j]])
			count++
		}

		out[y] = sum / float64(count)
	}

	return out
}

func growthRates(years []int, yearly map[int]int) map[int]float64 {
	out := make(map[int]float64, len(years))

	for i, y := range years {
		if i == 0 {
			continue
		}

		prev := float64(yearly[years[i-1]])
		cur := float64(yearly[y])

		if prev == 0 {
			out[y] = 0

			continue
		}

		out[y] = (cur - prev) / prev * 100
	}

	return out
}

func meanGrowth(growth map[int]float64) float64 {
	if len(growth) == 0 {
		return 0
	}

	sum := 0.0
	for _, g := range growth {
		sum += g
	}

	return sum / float64(len(growth))
}

// classifyPattern buckets the mean year-over-year growth percentage per
// spec §4.6's thresholds.
func classifyPattern(meanGrowthPct float64) string {
	switch {
	case meanGrowthPct >= 20:
		return "rapid_growth"
	case meanGrowthPct >= 5:
		return "steady_growth"
	case meanGrowthPct > -5:
		return "moderate_growth"
	case meanGrowthPct >= -20:
		return "declining"
	default:
		return "rapid_decline"
	}
}

// linearRegression fits count on year index (0,1,2,...) and returns the
// slope and the Pearson correlation coefficient.
func linearRegression(years []int, yearly map[int]int) (slope, r float64) {
	n := len(years)
	if n < 2 {
		return 0, 0
	}

	xs := make([]float64, n)
	ys := make([]float64, n)

	for i, y := range years {
		xs[i] = float64(i)
		ys[i] = float64(yearly[y])
	}

	meanX, meanY := mean(xs), mean(ys)

	var sxy, sxx, syy float64

	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}

	if sxx == 0 {
		return 0, 0
	}

	slope = sxy / sxx

	if syy == 0 {
		return slope, 0
	}

	r = sxy / math.Sqrt(sxx*syy)

	return slope, r
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}

// cagr computes the compound annual growth rate between the first and last
// observed year, valid only when the start count is positive and the span
// is non-zero.
func cagr(years []int, yearly map[int]int) (rate float64, valid bool) {
	if len(years) < 2 {
		return 0, false
	}

	startYear, endYear := years[0], years[len(years)-1]
	start, end := float64(yearly[startYear]), float64(yearly[endYear])

	if start <= 0 || endYear <= startYear {
		return 0, false
	}

	span := float64(endYear - startYear)

	return math.Pow(end/start, 1/span) - 1, true
}

// directionAnalysis anchors the direction classification on the sign of
// the regression slope, which is invariant under a uniform shift of the
// yearly counts; the pattern- and CAGR-based votes (percentage
// measures, which are NOT shift-invariant) only refine confidence and
// strength, never flip the sign.
func directionAnalysis(slope, r float64, pattern string, cagrRate float64, cagrValid bool) (direction string, confidence, strength float64) {
	switch {
	case slope > directionEpsilon:
		direction = "increasing"
	case slope < -directionEpsilon:
		direction = "decreasing"
	default:
		direction = "stable"
	}

	patternVote := patternDirectionVote(pattern)
	cagrVote := 0.0

	if cagrValid {
		cagrVote = sign(cagrRate)
	}

	slopeVote := sign(slope)
	combined := 0.4*slopeVote + 0.3*patternVote + 0.3*cagrVote

	confidence = math.Min(1, math.Abs(combined))
	strength = math.Min(1, math.Abs(r))

	return direction, confidence, strength
}

func patternDirectionVote(pattern string) float64 {
	switch pattern {
	case "rapid_growth", "steady_growth", "moderate_growth":
		return 1
	case "declining", "rapid_decline":
		return -1
	default:
		return 0
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func confidenceGrade(c float64) string {
	switch {
	case c >= 0.8:
		return "high"
	case c >= 0.6:
		return "medium"
	case c >= 0.4:
		return "low"
	default:
		return "very_low"
	}
}

func confidence(dataPoints int, r float64, predictions []patent.YearPrediction, years []int) float64 {
	dataQuality := math.Min(1, float64(dataPoints)/10)
	trendConsistency := math.Abs(r)

	methodAgreement := 0.0
	if len(predictions) > 0 {
		agreementSum := 0.0

		for _, p := range predictions {
			if p.Ensemble == 0 {
				continue
			}

			spread := p.Max - p.Min
			agreementSum += math.Max(0, 1-spread/math.Max(math.Abs(p.Ensemble), 1))
		}

		methodAgreement = agreementSum / float64(len(predictions))
	}

	historicalStability := math.Min(1, float64(len(years))/5)

	return 0.25*dataQuality + 0.3*trendConsistency + 0.25*methodAgreement + 0.2*historicalStability
}

func seasonalityCV(monthly map[string]int) float64 {
	if len(monthly) == 0 {
		return 0
	}

	vals := make([]float64, 0, len(monthly))
	for _, v := range monthly {
		vals = append(vals, float64(v))
	}

	m := mean(vals)
	if m == 0 {
		return 0
	}

	var variance float64
	for _, v := range vals {
		variance += (v - m) * (v - m)
	}

	variance /= float64(len(vals))

	return math.Sqrt(variance) / m
}

// detectOutliers flags years whose counts fall outside the 1.5*IQR fence or
// have |z-score| > 2, unioning both methods (spec §4.6).
func detectOutliers(years []int, yearly map[int]int) []patent.Outlier {
	if len(years) == 0 {
		return nil
	}

	vals := make([]float64, len(years))
	for i, y := range years {
		vals[i] = float64(yearly[y])
	}

	q1, q3 := quartiles(vals)
	iqr := q3 - q1
	lowFence := q1 - 1.5*iqr
	highFence := q3 + 1.5*iqr

	m := mean(vals)

	var variance float64
	for _, v := range vals {
		variance += (v - m) * (v - m)
	}

	stddev := math.Sqrt(variance / float64(len(vals)))

	var outliers []patent.Outlier

	for i, y := range years {
		v := vals[i]

		var z float64
		if stddev > 0 {
			z = (v - m) / stddev
		}

		byIQR := v < lowFence || v > highFence
		byZ := math.Abs(z) > 2

		if !byIQR && !byZ {
			continue
		}

		method := "iqr"

		switch {
		case byIQR && byZ:
			method = "both"
		case byZ:
			method = "zscore"
		}

		direction := "high"
		if v < m {
			direction = "low"
		}

		outliers = append(outliers, patent.Outlier{
			Year:      y,
			Value:     v,
			Direction: direction,
			Method:    method,
			ZScore:    z,
			Causes:    causeHypotheses(direction),
		})
	}

	return outliers
}

// causeHypotheses supplements the spec's "generic cause hypotheses" with
// concrete guesses an analyst can rule in or out.
func causeHypotheses(direction string) []string {
	if direction == "high" {
		return []string{"policy incentive or funding surge", "data collection anomaly", "major filer entering the field"}
	}

	return []string{"filing moratorium or backlog", "data gap in the source corpus", "major filer exiting the field"}
}

func quartiles(sorted []float64) (q1, q3 float64) {
	vals := append([]float64(nil), sorted...)
	sort.Float64s(vals)

	return percentile(vals, 0.25), percentile(vals, 0.75)
}

func percentile(sortedVals []float64, p float64) float64 {
	if len(sortedVals) == 0 {
		return 0
	}

	if len(sortedVals) == 1 {
		return sortedVals[0]
	}

	idx := p * float64(len(sortedVals)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))

	if lo == hi {
		return sortedVals[lo]
	}

	frac := idx - float64(lo)

	return sortedVals[lo]*(1-frac) + sortedVals[hi]*frac
}
