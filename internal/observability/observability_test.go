package observability_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentlens/kernel/internal/observability"
)

func TestHealthHandlerReturnsOK(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()

	observability.HealthHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestReadyHandlerFailsWhenAnyCheckFails(t *testing.T) {
	t.Parallel()

	pass := func(_ context.Context) error { return nil }
	fail := func(_ context.Context) error { return errors.New("bus unavailable") }

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	rec := httptest.NewRecorder()

	observability.ReadyHandler(pass, fail).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInitProducesWorkingProviders(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeServe

	providers, err := observability.Init(cfg)
	require.NoError(t, err)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Registry)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = providers.Shutdown(ctx)
	}()

	red, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "search.run")
	red.RecordRequest(context.Background(), "search.run", "ok", 10*time.Millisecond)
	done()

	metricFamilies, err := providers.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metricFamilies)
}

func TestKernelMetricsRecordBusAndSearch(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	km, err := observability.NewKernelMetrics(providers.Meter)
	require.NoError(t, err)

	km.RecordBusPublish(context.Background(), 3)
	km.RecordBusAck(context.Background(), false)
	km.RecordSearchQuery(context.Background(), "cnki", true)
	km.RecordSearchDedup(context.Background(), 2)
	km.RecordQualityCheck(context.Background(), false)
	km.RecordReportGenerated(context.Background(), []string{"pdf"})

	metricFamilies, err := providers.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metricFamilies)
}

func TestKernelMetricsNilReceiverIsNoop(t *testing.T) {
	t.Parallel()

	var km *observability.KernelMetrics

	assert.NotPanics(t, func() {
		km.RecordBusPublish(context.Background(), 1)
		km.RecordSearchQuery(context.Background(), "web", false)
		km.RecordQualityCheck(context.Background(), true)
		km.RecordReportGenerated(context.Background(), nil)
	})
}
