package patent

import "time"

// AnalysisVariant tags which analyzer produced an AnalysisResult.
type AnalysisVariant string

const (
	VariantTrend       AnalysisVariant = "trend"
	VariantCompetition AnalysisVariant = "competition"
	VariantTechnology  AnalysisVariant = "technology"
	VariantGeographic  AnalysisVariant = "geographic"
)

// TrendResult is produced by the Trend Analyzer (C6).
type TrendResult struct {
	YearlyCounts     map[int]int
	MonthlyCounts    map[string]int // "YYYY-MM" -> count
	QuarterlyCounts  map[string]int // "YYYY-Q#" -> count
	MovingAverage    map[int]float64
	GrowthRates      map[int]float64 // year -> YoY growth percent
	Slope            float64
	CorrelationR     float64
	Direction        string // increasing|stable|decreasing
	DirectionConf    float64
	DirectionStrength float64
	CAGR             float64
	CAGRValid        bool
	Pattern          string
	Predictions      []YearPrediction
	Confidence       float64
	ConfidenceGrade  string
	Seasonal         bool
	SeasonalityCV    float64
	Outliers         []Outlier
	DataPointCount   int
	Issues           []string
	Insufficient     bool
}

// YearPrediction is one ensemble-predicted future year.
type YearPrediction struct {
	Year       int
	Linear     float64
	MovingAvg  float64
	ExpSmooth  float64
	Seasonal   float64
	HasLinear  bool
	HasMovAvg  bool
	HasExpS    bool
	HasSeason  bool
	Ensemble   float64
	Min        float64
	Max        float64
	StdDev     float64
}

// Outlier flags one anomalous data point detected by IQR or Z-score.
type Outlier struct {
	Year      int
	Value     float64
	Direction string // high|low
	Method    string // iqr|zscore|both
	ZScore    float64
	Causes    []string
}

// ApplicantCount pairs a normalized applicant name with its patent count.
type ApplicantCount struct {
	Applicant string
	Count     int
}

// EmergingApplicant is a recently-active applicant flagged by C7.
type EmergingApplicant struct {
	Applicant   string
	RecentCount int
	EarlyCount  int
	GrowthRate  float64
	Type        string // new_entrant|rapid_growth
}

// CompetitorPair is a pair of applicants judged direct competitors by IPC
// overlap.
type CompetitorPair struct {
	A, B       string
	Similarity float64
}

// YearlyCompetition is the per-year competition snapshot (§4.7 temporal
// competition).
type YearlyCompetition struct {
	Year             int
	HHI              float64
	EntrantCount     int
	ActiveApplicants int
	Score            float64
}

// CompetitionResult is produced by the Competition Analyzer (C7).
type CompetitionResult struct {
	ApplicantCounts     []ApplicantCount
	HHI                 float64
	CR4                 float64
	CR8                 float64
	Gini                float64
	ConcentrationLevel  string
	ApplicantTypes      map[string]string // applicant -> type
	ActivityScores      map[string]float64
	Emerging            []EmergingApplicant
	Competitors         []CompetitorPair
	Temporal            []YearlyCompetition
	LeaderHistory       map[int]string // year -> leading applicant
	DataPointCount      int
	Issues              []string
	Insufficient        bool
}

// IPCStat is a single IPC-prefix statistic.
type IPCStat struct {
	Prefix string
	Label  string
	Count  int
}

// TechCluster groups keywords under a named technology area.
type TechCluster struct {
	Area     string
	Keywords []string
}

// TechEvolution is the per-(year, area) trend verdict.
type TechEvolution struct {
	Area   string
	Verdict string // rapid|steady|declining|stable
	Yearly map[int]int
}

// TechnologyResult is produced by the Tech Classifier (C8).
type TechnologyResult struct {
	IPCDistribution  []IPCStat
	Keywords         []string
	Clusters         []TechCluster
	MainTechnologies []string
	Evolution        []TechEvolution
	DataPointCount   int
	Issues           []string
	Insufficient     bool
}

// GeographicResult is a minimal country-distribution variant, enriching the
// original spec's four-variant union (§3, §4.11 geographic_chart).
type GeographicResult struct {
	CountryCounts  map[string]int
	DataPointCount int
}

// Bundle groups the variants produced by one analysis run, the unit C9
// validates and C11 consumes.
type Bundle struct {
	ResultID    string
	CreatedAt   time.Time
	Trend       *TrendResult
	Competition *CompetitionResult
	Technology  *TechnologyResult
	Geographic  *GeographicResult
}

// HasTrend reports whether the bundle carries a trend variant.
func (b *Bundle) HasTrend() bool { return b != nil && b.Trend != nil }

// HasCompetition reports whether the bundle carries a competition variant.
func (b *Bundle) HasCompetition() bool { return b != nil && b.Competition != nil }

// HasTechnology reports whether the bundle carries a technology variant.
func (b *Bundle) HasTechnology() bool { return b != nil && b.Technology != nil }
