package config

// Server defaults.
const (
	DefaultDiagnosticsAddr = ":8090"
	DefaultMCPAddr         = ":8091"
)

// Bus (C1) defaults.
const (
	DefaultBusQueueCapacity  = 10000
	DefaultBusDeadLetterCap  = 1000
	DefaultBusAckTimeoutSecs = 30
	DefaultBusPersistence    = "memory"
)

// LoadBalancer (C2) defaults.
const (
	DefaultLBStrategy             = "least_connections"
	DefaultLBHealthCheckInterval  = 15
	DefaultLBMaxLoadFactor        = 0.85
	DefaultLBCircuitBreakerErrors = 5
)

// Search (C5) defaults.
const (
	DefaultSearchRateLimitPerMinute = 60
	DefaultSearchMaxRetries         = 2
	DefaultSearchMaxDiversityResult = 20
	DefaultSearchDedupThreshold     = 0.8
)

// Trend (C6) defaults, matching trend.Config.withDefaults.
const (
	DefaultTrendMovingAverageWindow = 3
	DefaultTrendPredictionYears     = 3
	DefaultTrendSmoothingAlpha      = 0.3
)

// Quality (C9) defaults, matching quality.Config.withDefaults.
const (
	DefaultQualityPassThreshold = 0.7
)

// WorkflowQC (C10) defaults.
const (
	DefaultResponseTimeThresholdSecs = 30.0
	DefaultMinThroughputPerMinute    = 10.0
	DefaultMaxErrorRate              = 0.05
	DefaultMaxResourceUsage          = 0.8
)

// Report (C11) defaults.
const (
	DefaultReportOutputDir            = "./data/reports"
	DefaultMaxVersionsPerReport       = 5
)

// Observability defaults.
const (
	DefaultServiceName = "patentkernel"
	DefaultEnvironment = "development"
	DefaultLogLevel    = "info"
	DefaultSampleRatio = 1.0
)

// DefaultReportFormats is the format list used when a request omits Formats.
func DefaultReportFormats() []string { return []string{"html"} }
