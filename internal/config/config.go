// Package config provides YAML/env-based configuration for the patent
// analysis kernel, mirroring each subsystem's tunables in one unmarshalable
// tree (spec §6 "Configuration").
package config

import "errors"

// Config is the top-level configuration tree for the kernel binary.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Bus           BusConfig           `mapstructure:"bus"`
	LoadBalancer  LoadBalancerConfig  `mapstructure:"load_balancer"`
	Search        SearchConfig        `mapstructure:"search"`
	Trend         TrendConfig         `mapstructure:"trend"`
	Quality       QualityConfig       `mapstructure:"quality"`
	WorkflowQC    WorkflowQCConfig    `mapstructure:"workflow_qc"`
	Report        ReportConfig        `mapstructure:"report"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds the diagnostics/MCP listener settings.
type ServerConfig struct {
	DiagnosticsAddr string `mapstructure:"diagnostics_addr"`
	MCPAddr         string `mapstructure:"mcp_addr"`
}

// BusConfig holds the message bus (C1) tunables.
type BusConfig struct {
	QueueCapacity  int    `mapstructure:"queue_capacity"`
	DeadLetterCap  int    `mapstructure:"dead_letter_capacity"`
	AckTimeoutSecs int    `mapstructure:"ack_timeout_seconds"`
	Persistence    string `mapstructure:"persistence"` // memory|disk
}

// LoadBalancerConfig holds the load balancer (C2) tunables.
type LoadBalancerConfig struct {
	Strategy             string  `mapstructure:"strategy"` // round_robin|least_connections|weighted
	HealthCheckInterval  int     `mapstructure:"health_check_interval_seconds"`
	MaxLoadFactor        float64 `mapstructure:"max_load_factor"`
	CircuitBreakerErrors int     `mapstructure:"circuit_breaker_errors"`
}

// SearchConfig holds the search aggregator (C5) tunables.
type SearchConfig struct {
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
	MaxRetries         int `mapstructure:"max_retries"`
	MaxDiversityResult int `mapstructure:"max_diversity_results"`
	DedupThreshold     float64 `mapstructure:"dedup_threshold"`
}

// TrendConfig mirrors trend.Config for viper unmarshalling.
type TrendConfig struct {
	MovingAverageWindow int     `mapstructure:"moving_average_window"`
	PredictionYears     int     `mapstructure:"prediction_years"`
	SmoothingAlpha      float64 `mapstructure:"smoothing_alpha"`
}

// QualityConfig mirrors quality.Config.
type QualityConfig struct {
	PassThreshold float64 `mapstructure:"pass_threshold"`
}

// WorkflowQCConfig holds the workflow quality controller (C10) tunables.
type WorkflowQCConfig struct {
	ResponseTimeThresholdSecs float64 `mapstructure:"response_time_threshold_seconds"`
	MinThroughputPerMinute    float64 `mapstructure:"min_throughput_per_minute"`
	MaxErrorRate              float64 `mapstructure:"max_error_rate"`
	MaxResourceUsage          float64 `mapstructure:"max_resource_usage"`
}

// ReportConfig holds the report pipeline (C11) tunables.
type ReportConfig struct {
	OutputDir            string   `mapstructure:"output_dir"`
	DefaultFormats       []string `mapstructure:"default_formats"`
	MaxVersionsPerReport int      `mapstructure:"max_versions_per_report"`
}

// ObservabilityConfig holds logging/tracing/metrics tunables.
type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure   bool    `mapstructure:"otlp_insecure"`
	LogLevel       string  `mapstructure:"log_level"`
	LogJSON        bool    `mapstructure:"log_json"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// Sentinel errors for configuration validation.
var (
	ErrInvalidQueueCapacity     = errors.New("bus.queue_capacity must not be negative")
	ErrInvalidAckTimeout        = errors.New("bus.ack_timeout_seconds must not be negative")
	ErrInvalidLoadFactor        = errors.New("load_balancer.max_load_factor must not be negative")
	ErrInvalidRateLimit         = errors.New("search.rate_limit_per_minute must not be negative")
	ErrInvalidDedupThreshold    = errors.New("search.dedup_threshold must be between 0 and 1")
	ErrInvalidPassThreshold     = errors.New("quality.pass_threshold must be between 0 and 1")
	ErrInvalidMaxErrorRate      = errors.New("workflow_qc.max_error_rate must be between 0 and 1")
	ErrInvalidMaxVersions       = errors.New("report.max_versions_per_report must not be negative")
	ErrInvalidSampleRatio       = errors.New("observability.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Bus.QueueCapacity < 0 {
		return ErrInvalidQueueCapacity
	}

	if c.Bus.AckTimeoutSecs < 0 {
		return ErrInvalidAckTimeout
	}

	if c.LoadBalancer.MaxLoadFactor < 0 {
		return ErrInvalidLoadFactor
	}

	if c.Search.RateLimitPerMinute < 0 {
		return ErrInvalidRateLimit
	}

	if c.Search.DedupThreshold < 0 || c.Search.DedupThreshold > 1 {
		return ErrInvalidDedupThreshold
	}

	if c.Quality.PassThreshold < 0 || c.Quality.PassThreshold > 1 {
		return ErrInvalidPassThreshold
	}

	if c.WorkflowQC.MaxErrorRate < 0 || c.WorkflowQC.MaxErrorRate > 1 {
		return ErrInvalidMaxErrorRate
	}

	if c.Report.MaxVersionsPerReport < 0 {
		return ErrInvalidMaxVersions
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}
