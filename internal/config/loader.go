package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".patentkernel"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for kernel settings.
const envPrefix = "PATENTKERNEL"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME. Missing config
// file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("server.diagnostics_addr", DefaultDiagnosticsAddr)
	viperCfg.SetDefault("server.mcp_addr", DefaultMCPAddr)

	viperCfg.SetDefault("bus.queue_capacity", DefaultBusQueueCapacity)
	viperCfg.SetDefault("bus.dead_letter_capacity", DefaultBusDeadLetterCap)
	viperCfg.SetDefault("bus.ack_timeout_seconds", DefaultBusAckTimeoutSecs)
	viperCfg.SetDefault("bus.persistence", DefaultBusPersistence)

	viperCfg.SetDefault("load_balancer.strategy", DefaultLBStrategy)
	viperCfg.SetDefault("load_balancer.health_check_interval_seconds", DefaultLBHealthCheckInterval)
	viperCfg.SetDefault("load_balancer.max_load_factor", DefaultLBMaxLoadFactor)
	viperCfg.SetDefault("load_balancer.circuit_breaker_errors", DefaultLBCircuitBreakerErrors)

	viperCfg.SetDefault("search.rate_limit_per_minute", DefaultSearchRateLimitPerMinute)
	viperCfg.SetDefault("search.max_retries", DefaultSearchMaxRetries)
	viperCfg.SetDefault("search.max_diversity_results", DefaultSearchMaxDiversityResult)
	viperCfg.SetDefault("search.dedup_threshold", DefaultSearchDedupThreshold)

	viperCfg.SetDefault("trend.moving_average_window", DefaultTrendMovingAverageWindow)
	viperCfg.SetDefault("trend.prediction_years", DefaultTrendPredictionYears)
	viperCfg.SetDefault("trend.smoothing_alpha", DefaultTrendSmoothingAlpha)

	viperCfg.SetDefault("quality.pass_threshold", DefaultQualityPassThreshold)

	viperCfg.SetDefault("workflow_qc.response_time_threshold_seconds", DefaultResponseTimeThresholdSecs)
	viperCfg.SetDefault("workflow_qc.min_throughput_per_minute", DefaultMinThroughputPerMinute)
	viperCfg.SetDefault("workflow_qc.max_error_rate", DefaultMaxErrorRate)
	viperCfg.SetDefault("workflow_qc.max_resource_usage", DefaultMaxResourceUsage)

	viperCfg.SetDefault("report.output_dir", DefaultReportOutputDir)
	viperCfg.SetDefault("report.default_formats", DefaultReportFormats())
	viperCfg.SetDefault("report.max_versions_per_report", DefaultMaxVersionsPerReport)

	viperCfg.SetDefault("observability.service_name", DefaultServiceName)
	viperCfg.SetDefault("observability.environment", DefaultEnvironment)
	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
}
