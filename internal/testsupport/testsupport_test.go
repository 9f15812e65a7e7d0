package testsupport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentlens/kernel/internal/report"
	"github.com/patentlens/kernel/internal/search"
	"github.com/patentlens/kernel/internal/testsupport"
	"github.com/patentlens/kernel/internal/workflowqc"
)

func TestFakeSearchSourceTracksCallsAndHonorsLimit(t *testing.T) {
	t.Parallel()

	src := testsupport.NewFakeSearchSource([]search.Record{{Title: "a"}, {Title: "b"}, {Title: "c"}})

	records, err := src.Search(context.Background(), nil, search.TypePatent, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, src.Calls)
	assert.True(t, src.Health(context.Background()))
	assert.Equal(t, 1, src.HealthCalls)
}

func TestFakeChartRendererRecordsSpecs(t *testing.T) {
	t.Parallel()

	renderer := &testsupport.FakeChartRenderer{}

	out, err := renderer.Render(context.Background(), report.ChartSpec{Name: "trend_chart"}, "/tmp/out.html")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out.html", out.Path)
	assert.Len(t, renderer.Specs, 1)
}

func TestFakeMonitoringSinkAccumulatesAlerts(t *testing.T) {
	t.Parallel()

	sink := &testsupport.FakeMonitoringSink{}

	require.NoError(t, sink.Forward(context.Background(), workflowqc.Alert{Kind: "quality_degradation"}))
	require.NoError(t, sink.Forward(context.Background(), workflowqc.Alert{Kind: "consecutive_failures"}))

	assert.Len(t, sink.Snapshot(), 2)
}
