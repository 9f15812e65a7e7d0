package trend

import (
	"math"

	"github.com/patentlens/kernel/internal/patent"
)

const seasonalMinPoints = 6

// predict produces an ensemble forecast for the next PredictionYears years
// using up to four independent methods (spec §4.6).
func (a *Analyzer) predict(years []int, yearly map[int]int, movingAvg map[int]float64) []patent.YearPrediction {
	if len(years) == 0 {
		return nil
	}

	lastYear := years[len(years)-1]

	slope, _ := linearRegression(years, yearly)
	intercept := interceptAt(years, yearly, slope)

	expSmoothed := exponentialSmoothing(years, yearly, a.config.SmoothingAlpha)

	window := a.config.MovingAverageWindow
	recentAvg := tailAverage(years, yearly, window)

	seasonalBase, hasSeasonal := seasonalCycle(years, yearly)

	predictions := make([]patent.YearPrediction, 0, a.config.PredictionYears)

	for step := 1; step <= a.config.PredictionYears; step++ {
		year := lastYear + step
		index := float64(len(years) - 1 + step)

		p := patent.YearPrediction{Year: year}

		p.Linear = intercept + slope*index
		p.HasLinear = true

		p.MovingAvg = recentAvg
		p.HasMovAvg = true

		p.ExpSmooth = expSmoothed
		p.HasExpS = true

		if hasSeasonal {
			cycleIdx := (len(years) - 1 + step) % 3
			p.Seasonal = seasonalBase[cycleIdx]
			p.HasSeason = true
		}

		values := []float64{p.Linear, p.MovingAvg, p.ExpSmooth}
		if p.HasSeason {
			values = append(values, p.Seasonal)
		}

		p.Ensemble = mean(values)
		p.Min, p.Max = minMax(values)
		p.StdDev = stddev(values, p.Ensemble)

		predictions = append(predictions, p)
	}

	return predictions
}

func interceptAt(years []int, yearly map[int]int, slope float64) float64 {
	n := len(years)
	if n == 0 {
		return 0
	}

	xs := make([]float64, n)
	ys := make([]float64, n)

	for i, y := range years {
		xs[i] = float64(i)
		ys[i] = float64(yearly[y])
	}

	return mean(ys) - slope*mean(xs)
}

func exponentialSmoothing(years []int, yearly map[int]int, alpha float64) float64 {
	if len(years) == 0 {
		return 0
	}

	s := float64(yearly[years[0]])

	for _, y := range years[1:] {
		s = alpha*float64(yearly[y]) + (1-alpha)*s
	}

	return s
}

func tailAverage(years []int, yearly map[int]int, window int) float64 {
	if len(years) == 0 {
		return 0
	}

	start := len(years) - window
	if start < 0 {
		start = 0
	}

	sum := 0.0
	count := 0

	for _, y := range years[start:] {
		sum += float64(yearly[y])
		count++
	}

	return sum / float64(count)
}

// seasonalCycle detects a 3-year periodicity when there are enough points,
// returning the average value observed at each phase of the cycle.
func seasonalCycle(years []int, yearly map[int]int) ([3]float64, bool) {
	var totals [3]float64

	var counts [3]int

	if len(years) < seasonalMinPoints {
		return totals, false
	}

	for i, y := range years {
		phase := i % 3
		totals[phase] += float64(yearly[y])
		counts[phase]++
	}

	var avg [3]float64

	for i := range totals {
		if counts[i] > 0 {
			avg[i] = totals[i] / float64(counts[i])
		}
	}

	return avg, true
}

func minMax(vals []float64) (min, max float64) {
	if len(vals) == 0 {
		return 0, 0
	}

	min, max = vals[0], vals[0]

	for _, v := range vals[1:] {
		if v < min {
			min = v
		}

		if v > max {
			max = v
		}
	}

	return min, max
}

func stddev(vals []float64, m float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	var variance float64
	for _, v := range vals {
		variance += (v - m) * (v - m)
	}

	return math.Sqrt(variance / float64(len(vals)))
}
