package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricBusPublished    = "patentkernel.bus.messages.published"
	metricBusAcked        = "patentkernel.bus.messages.acked"
	metricBusDeadLettered = "patentkernel.bus.messages.dead_lettered"
	metricBusQueueDepth   = "patentkernel.bus.queue.depth"

	metricSearchSourcesQueried = "patentkernel.search.sources.queried"
	metricSearchFailovers      = "patentkernel.search.failovers.total"
	metricSearchDeduped        = "patentkernel.search.results.deduped"

	metricQualityChecks   = "patentkernel.quality.checks.total"
	metricQualityFailures = "patentkernel.quality.failures.total"

	metricReportsGenerated   = "patentkernel.report.generated.total"
	metricReportExportErrors = "patentkernel.report.export.errors.total"

	attrSource = "source"
	attrFormat = "format"
)

// KernelMetrics holds the OTel instruments for the orchestration
// components (C1 message bus, C5 search aggregator, C9 quality
// controller, C11 report pipeline) that sit outside the generic RED path.
type KernelMetrics struct {
	busPublished    metric.Int64Counter
	busAcked        metric.Int64Counter
	busDeadLettered metric.Int64Counter
	busQueueDepth   metric.Float64Gauge

	searchSourcesQueried metric.Int64Counter
	searchFailovers      metric.Int64Counter
	searchDeduped        metric.Int64Counter

	qualityChecks   metric.Int64Counter
	qualityFailures metric.Int64Counter

	reportsGenerated   metric.Int64Counter
	reportExportErrors metric.Int64Counter
}

// NewKernelMetrics creates kernel-domain metric instruments from the given meter.
func NewKernelMetrics(mt metric.Meter) (*KernelMetrics, error) {
	b := newMetricBuilder(mt)

	km := &KernelMetrics{
		busPublished:    b.counter(metricBusPublished, "Total messages published to the bus", "{message}"),
		busAcked:        b.counter(metricBusAcked, "Total messages acknowledged", "{message}"),
		busDeadLettered: b.counter(metricBusDeadLettered, "Total messages moved to the dead-letter queue", "{message}"),
		busQueueDepth:   b.gauge(metricBusQueueDepth, "Current depth of the bus queue", "{message}"),

		searchSourcesQueried: b.counter(metricSearchSourcesQueried, "Total search source queries issued", "{query}"),
		searchFailovers:      b.counter(metricSearchFailovers, "Total search failovers triggered", "{failover}"),
		searchDeduped:        b.counter(metricSearchDeduped, "Total search results removed by dedup", "{result}"),

		qualityChecks:   b.counter(metricQualityChecks, "Total quality validations performed", "{check}"),
		qualityFailures: b.counter(metricQualityFailures, "Total quality validations below pass threshold", "{check}"),

		reportsGenerated:   b.counter(metricReportsGenerated, "Total reports generated", "{report}"),
		reportExportErrors: b.counter(metricReportExportErrors, "Total report export failures by format", "{error}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return km, nil
}

// RecordBusPublish records one message entering the bus and the queue's
// depth immediately after enqueue.
func (km *KernelMetrics) RecordBusPublish(ctx context.Context, queueDepth int) {
	if km == nil {
		return
	}

	km.busPublished.Add(ctx, 1)
	km.busQueueDepth.Record(ctx, float64(queueDepth))
}

// RecordBusAck records one message reaching a terminal acked or
// dead-lettered state.
func (km *KernelMetrics) RecordBusAck(ctx context.Context, deadLettered bool) {
	if km == nil {
		return
	}

	if deadLettered {
		km.busDeadLettered.Add(ctx, 1)
		return
	}

	km.busAcked.Add(ctx, 1)
}

// RecordSearchQuery records one source query and whether it required failover.
func (km *KernelMetrics) RecordSearchQuery(ctx context.Context, source string, failedOver bool) {
	if km == nil {
		return
	}

	km.searchSourcesQueried.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))

	if failedOver {
		km.searchFailovers.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))
	}
}

// RecordSearchDedup records how many results a dedup pass removed.
func (km *KernelMetrics) RecordSearchDedup(ctx context.Context, removed int) {
	if km == nil || removed <= 0 {
		return
	}

	km.searchDeduped.Add(ctx, int64(removed))
}

// RecordQualityCheck records one quality validation outcome.
func (km *KernelMetrics) RecordQualityCheck(ctx context.Context, passed bool) {
	if km == nil {
		return
	}

	km.qualityChecks.Add(ctx, 1)

	if !passed {
		km.qualityFailures.Add(ctx, 1)
	}
}

// RecordReportGenerated records one completed report pipeline run and any
// per-format export failures.
func (km *KernelMetrics) RecordReportGenerated(ctx context.Context, failedFormats []string) {
	if km == nil {
		return
	}

	km.reportsGenerated.Add(ctx, 1)

	for _, format := range failedFormats {
		km.reportExportErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrFormat, format)))
	}
}
