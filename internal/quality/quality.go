// Package quality implements the Analysis Quality Controller (C9):
// multi-dimensional quality scoring over an analysis bundle, result
// caching, version history, and anomaly detection.
package quality

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/patentlens/kernel/internal/cache"
	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/patent"
)

const (
	cacheTTL             = 3600 * time.Second
	cacheCapacity        = 1000
	versionRetentionDays = 30

	weightCompleteness  = 0.25
	weightConsistency   = 0.25
	weightStatValidity  = 0.20
	weightCoherence     = 0.15
	weightTemporal      = 0.15

	minTrendSamples       = 20
	minCompetitionSamples = 15
	minTechnologySamples  = 10
)

// Config exposes the quality pass/fail cutoff as a configuration knob; the
// source defines it inconsistently (0.7 in C9, 0.6 in C10). A zero or
// negative PassThreshold falls back to 0.7.
type Config struct {
	PassThreshold float64
}

func (c Config) withDefaults() Config {
	if c.PassThreshold <= 0 {
		c.PassThreshold = 0.7
	}

	return c
}

// Anomaly flags a specific data issue found during validation.
type Anomaly struct {
	Severity string // critical|warning
	Module   string
	Message  string
}

// QualityReport is the output of Validate.
type QualityReport struct {
	ResultID      string
	VersionNumber int
	CreatedAt     time.Time

	Dimensions map[string]float64
	Overall    float64
	Grade      string
	Passed     bool

	Anomalies []Anomaly
}

type version struct {
	number    int
	createdAt time.Time
	report    *QualityReport
	bundle    *patent.Bundle
}

// Controller validates analysis bundles against the quality dimensions,
// caching results and tracking version history per result_id.
type Controller struct {
	clock  clock.Clock
	config Config

	resultCache *cache.LRU[string, *QualityReport]

	mu       sync.Mutex
	versions map[string][]*version
}

// New creates a quality Controller.
func New(c clock.Clock, cfg Config) *Controller {
	return &Controller{
		clock:       c,
		config:      cfg.withDefaults(),
		resultCache: cache.New[string, *QualityReport](c, cacheCapacity, cacheTTL),
		versions:    make(map[string][]*version),
	}
}

// Validate scores bundle and returns its QualityReport. A cache hit for the
// same canonical bundle content, within TTL, returns the identical report
// instance (spec scenario S6).
func (c *Controller) Validate(bundle *patent.Bundle) *QualityReport {
	resultID := CanonicalResultID(bundle)

	if cached, ok := c.resultCache.Get(resultID); ok {
		return cached
	}

	report := c.score(resultID, bundle)
	c.resultCache.Set(resultID, report)
	c.recordVersion(resultID, bundle, report)

	return report
}

// CanonicalResultID hashes the canonical JSON form of bundle's analysis
// content to a 16-hex-character id (spec §4.9).
func CanonicalResultID(bundle *patent.Bundle) string {
	payload := canonicalPayload(bundle)

	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte(bundle.ResultID)
	}

	sum := md5.Sum(encoded) //nolint:gosec // content-addressing, not a security boundary

	return hex.EncodeToString(sum[:])[:16]
}

func canonicalPayload(bundle *patent.Bundle) map[string]any {
	payload := make(map[string]any)

	if bundle.HasTrend() {
		payload["trend"] = bundle.Trend
	}

	if bundle.HasCompetition() {
		payload["competition"] = bundle.Competition
	}

	if bundle.HasTechnology() {
		payload["technology"] = bundle.Technology
	}

	return payload
}

func (c *Controller) score(resultID string, bundle *patent.Bundle) *QualityReport {
	dims := map[string]float64{
		"completeness":          completeness(bundle),
		"consistency":           consistency(bundle),
		"statistical_validity":  statisticalValidity(bundle),
		"logical_coherence":     logicalCoherence(bundle),
		"temporal_stability":    c.temporalStability(resultID, bundle),
	}

	overall := weightCompleteness*dims["completeness"] +
		weightConsistency*dims["consistency"] +
		weightStatValidity*dims["statistical_validity"] +
		weightCoherence*dims["logical_coherence"] +
		weightTemporal*dims["temporal_stability"]

	grade := gradeOf(overall)

	return &QualityReport{
		ResultID:   resultID,
		CreatedAt:  c.clock.Now(),
		Dimensions: dims,
		Overall:    overall,
		Grade:      grade,
		Passed:     overall >= c.config.PassThreshold,
		Anomalies:  detectAnomalies(bundle),
	}
}

// gradeOf partitions [0,1] into the five bands named by invariant 10.
func gradeOf(score float64) string {
	switch {
	case score >= 0.9:
		return "excellent"
	case score >= 0.8:
		return "good"
	case score >= 0.7:
		return "acceptable"
	case score >= 0.6:
		return "poor"
	default:
		return "failed"
	}
}

func completeness(bundle *patent.Bundle) float64 {
	modules := 0.0
	total := 3.0
	fieldRatioSum := 0.0
	fieldRatioCount := 0

	if bundle.HasTrend() {
		modules++

		if bundle.Trend.DataPointCount > 0 {
			fieldRatioSum += 1.0
			fieldRatioCount++
		}
	}

	if bundle.HasCompetition() {
		modules++

		if bundle.Competition.DataPointCount > 0 {
			fieldRatioSum += 1.0
			fieldRatioCount++
		}
	}

	if bundle.HasTechnology() {
		modules++

		if bundle.Technology.DataPointCount > 0 {
			fieldRatioSum += 1.0
			fieldRatioCount++
		}
	}

	moduleRatio := modules / total

	fieldRatio := 1.0
	if fieldRatioCount > 0 {
		fieldRatio = fieldRatioSum / float64(fieldRatioCount)
	}

	return (moduleRatio + fieldRatio) / 2
}

func consistency(bundle *patent.Bundle) float64 {
	score := 1.0

	counts := presentDataCounts(bundle)
	if len(counts) >= 2 {
		score -= countAgreementPenalty(counts)
	}

	if bundle.HasTrend() && bundle.HasCompetition() {
		rapidGrowth := bundle.Trend.Pattern == "rapid_growth"
		lowHHI := bundle.Competition.HHI < 0.9

		if rapidGrowth && !lowHHI {
			score -= 0.2
		}
	}

	if score < 0 {
		score = 0
	}

	return score
}

func presentDataCounts(bundle *patent.Bundle) []int {
	var counts []int

	if bundle.HasTrend() {
		counts = append(counts, bundle.Trend.DataPointCount)
	}

	if bundle.HasCompetition() {
		counts = append(counts, bundle.Competition.DataPointCount)
	}

	if bundle.HasTechnology() {
		counts = append(counts, bundle.Technology.DataPointCount)
	}

	return counts
}

func countAgreementPenalty(counts []int) float64 {
	min, max := counts[0], counts[0]

	for _, c := range counts[1:] {
		if c < min {
			min = c
		}

		if c > max {
			max = c
		}
	}

	if max == 0 {
		return 0
	}

	spread := float64(max-min) / float64(max)
	if spread > 0.5 {
		return 0.3
	}

	if spread > 0.2 {
		return 0.1
	}

	return 0
}

func statisticalValidity(bundle *patent.Bundle) float64 {
	var checks, passed float64

	if bundle.HasTrend() {
		checks++

		if bundle.Trend.DataPointCount >= minTrendSamples {
			passed++
		}
	}

	if bundle.HasCompetition() {
		checks++

		if bundle.Competition.DataPointCount >= minCompetitionSamples {
			passed++
		}
	}

	if bundle.HasTechnology() {
		checks++

		if bundle.Technology.DataPointCount >= minTechnologySamples {
			passed++
		}
	}

	if checks == 0 {
		return 0
	}

	return passed / checks
}

func logicalCoherence(bundle *patent.Bundle) float64 {
	score := 1.0

	if bundle.HasTrend() && len(bundle.Trend.Issues) > 0 {
		score -= 0.2
	}

	if bundle.HasCompetition() && len(bundle.Competition.Issues) > 0 {
		score -= 0.2
	}

	if bundle.HasTechnology() && len(bundle.Technology.Issues) > 0 {
		score -= 0.2
	}

	if bundle.HasTrend() && bundle.HasCompetition() {
		if bundle.Trend.Direction == "increasing" && len(bundle.Competition.Emerging) == 0 && bundle.Competition.DataPointCount > minCompetitionSamples {
			score -= 0.1
		}
	}

	if score < 0 {
		score = 0
	}

	return score
}

func (c *Controller) temporalStability(resultID string, bundle *patent.Bundle) float64 {
	c.mu.Lock()
	history := c.versions[resultID]
	c.mu.Unlock()

	if len(history) == 0 {
		return 1.0
	}

	prev := history[len(history)-1].bundle

	score := 0.0
	checks := 0.0

	if bundle.HasTrend() && prev.HasTrend() {
		checks++

		if bundle.Trend.Direction == prev.Trend.Direction {
			score++
		}
	}

	if bundle.HasCompetition() && prev.HasCompetition() {
		checks++

		score += overlapTopN(topApplicants(bundle.Competition, 5), topApplicants(prev.Competition, 5))
	}

	if bundle.HasTechnology() && prev.HasTechnology() {
		checks++

		score += overlapTopN(bundle.Technology.MainTechnologies, prev.Technology.MainTechnologies)
	}

	if checks == 0 {
		return 1.0
	}

	return score / checks
}

func topApplicants(result *patent.CompetitionResult, n int) []string {
	if n > len(result.ApplicantCounts) {
		n = len(result.ApplicantCounts)
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = result.ApplicantCounts[i].Applicant
	}

	return out
}

func overlapTopN(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	setB := make(map[string]bool, len(b))
	for _, v := range b {
		setB[v] = true
	}

	overlap := 0

	for _, v := range a {
		if setB[v] {
			overlap++
		}
	}

	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}

	if denom == 0 {
		return 1.0
	}

	return float64(overlap) / float64(denom)
}

func (c *Controller) recordVersion(resultID string, bundle *patent.Bundle, report *QualityReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := c.versions[resultID]
	number := len(history) + 1

	history = append(history, &version{
		number:    number,
		createdAt: c.clock.Now(),
		report:    report,
		bundle:    bundle,
	})

	cutoff := c.clock.Now().Add(-versionRetentionDays * 24 * time.Hour)

	var retained []*version

	for _, v := range history {
		if v.createdAt.After(cutoff) {
			retained = append(retained, v)
		}
	}

	c.versions[resultID] = retained

	report.VersionNumber = number
}

// VersionCount returns how many retained versions exist for result_id,
// for diagnostics and tests.
func (c *Controller) VersionCount(resultID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.versions[resultID])
}

// detectAnomalies flags extreme growth rates, concentration extremes,
// count outliers, zero-count years, and cross-module contradictions
// (spec §4.9).
func detectAnomalies(bundle *patent.Bundle) []Anomaly {
	var anomalies []Anomaly

	if bundle.HasTrend() {
		anomalies = append(anomalies, trendAnomalies(bundle.Trend)...)
	}

	if bundle.HasCompetition() {
		anomalies = append(anomalies, competitionAnomalies(bundle.Competition)...)
	}

	if bundle.HasTrend() && bundle.HasCompetition() {
		if bundle.Trend.Pattern == "rapid_decline" && bundle.Competition.ConcentrationLevel == "竞争充分" {
			anomalies = append(anomalies, Anomaly{
				Severity: "warning",
				Module:   "cross",
				Message:  "trend shows rapid decline while the market reads as fully competitive; verify data freshness",
			})
		}
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return severityRank(anomalies[i].Severity) > severityRank(anomalies[j].Severity)
	})

	return anomalies
}

func severityRank(s string) int {
	if s == "critical" {
		return 2
	}

	return 1
}

func trendAnomalies(trend *patent.TrendResult) []Anomaly {
	var out []Anomaly

	for year, rate := range trend.GrowthRates {
		switch {
		case math.Abs(rate) > 500:
			out = append(out, Anomaly{Severity: "critical", Module: "trend", Message: yearRateMessage(year, rate)})
		case math.Abs(rate) > 200:
			out = append(out, Anomaly{Severity: "warning", Module: "trend", Message: yearRateMessage(year, rate)})
		}
	}

	counts := make([]float64, 0, len(trend.YearlyCounts))
	for _, c := range trend.YearlyCounts {
		counts = append(counts, float64(c))
	}

	mean := meanOf(counts)

	for year, c := range trend.YearlyCounts {
		if c == 0 {
			out = append(out, Anomaly{Severity: "warning", Module: "trend", Message: zeroCountMessage(year)})

			continue
		}

		if mean > 0 && float64(c) > mean*10 {
			out = append(out, Anomaly{Severity: "warning", Module: "trend", Message: highCountMessage(year, c)})
		}
	}

	return out
}

func competitionAnomalies(result *patent.CompetitionResult) []Anomaly {
	var out []Anomaly

	if result.HHI > 0.95 {
		out = append(out, Anomaly{Severity: "critical", Module: "competition", Message: "market concentration is extreme (HHI > 0.95)"})
	} else if result.HHI < 0.01 && result.HHI > 0 {
		out = append(out, Anomaly{Severity: "warning", Module: "competition", Message: "market concentration is implausibly low (HHI < 0.01)"})
	}

	return out
}

func yearRateMessage(year int, rate float64) string {
	return fmt.Sprintf("year %d growth rate of %.1f%% is an extreme outlier", year, rate)
}

func zeroCountMessage(year int) string {
	return fmt.Sprintf("year %d has zero filings", year)
}

func highCountMessage(year, count int) string {
	return fmt.Sprintf("year %d count (%d) is more than 10x the series mean", year, count)
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range vals {
		sum += v
	}

	return sum / float64(len(vals))
}
