package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentlens/kernel/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Bus:          config.BusConfig{QueueCapacity: 1000, AckTimeoutSecs: 30},
		LoadBalancer: config.LoadBalancerConfig{MaxLoadFactor: 0.85},
		Search:       config.SearchConfig{RateLimitPerMinute: 60, DedupThreshold: 0.8},
		Quality:      config.QualityConfig{PassThreshold: 0.7},
		WorkflowQC:   config.WorkflowQCConfig{MaxErrorRate: 0.05},
		Report:       config.ReportConfig{MaxVersionsPerReport: 5},
		Observability: config.ObservabilityConfig{SampleRatio: 1.0},
	}
}

func TestValidateValidConfigNoError(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())
}

func TestValidateZeroConfigNoError(t *testing.T) {
	t.Parallel()

	require.NoError(t, (&config.Config{}).Validate())
}

func TestValidateInvalidDedupThreshold(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Search.DedupThreshold = 1.5

	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidDedupThreshold)
}

func TestValidateInvalidPassThreshold(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Quality.PassThreshold = -0.1

	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidPassThreshold)
}

func TestValidateInvalidMaxErrorRate(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.WorkflowQC.MaxErrorRate = 2

	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidMaxErrorRate)
}

func TestValidateInvalidSampleRatio(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Observability.SampleRatio = 3

	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidSampleRatio)
}

func TestLoadConfigUsesDefaultsWhenFileMissing(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBusQueueCapacity, cfg.Bus.QueueCapacity)
	assert.Equal(t, config.DefaultQualityPassThreshold, cfg.Quality.PassThreshold)
	assert.Equal(t, config.DefaultReportOutputDir, cfg.Report.OutputDir)
}
