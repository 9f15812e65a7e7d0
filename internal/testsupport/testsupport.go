// Package testsupport collects fake implementations of the kernel's
// external-collaborator interfaces (search sources, text generation, chart
// rendering, template rendering, PDF export, alert forwarding) so tests and
// the CLI's offline demo mode can exercise the full pipeline without live
// dependencies.
package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/patentlens/kernel/internal/report"
	"github.com/patentlens/kernel/internal/search"
	"github.com/patentlens/kernel/internal/workflowqc"
)

// FakeSearchSource is a scripted search.Source: it returns Records (or Err)
// for every call and tracks how many times Search/Health were invoked.
type FakeSearchSource struct {
	mu sync.Mutex

	Records []search.Record
	Err     error
	Healthy bool

	Calls       int
	HealthCalls int
}

// NewFakeSearchSource returns a healthy source seeded with records.
func NewFakeSearchSource(records []search.Record) *FakeSearchSource {
	return &FakeSearchSource{Records: records, Healthy: true}
}

func (f *FakeSearchSource) Search(_ context.Context, _ []string, _ search.Type, limit int) ([]search.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls++

	if f.Err != nil {
		return nil, f.Err
	}

	if limit > 0 && limit < len(f.Records) {
		return f.Records[:limit], nil
	}

	return f.Records, nil
}

func (f *FakeSearchSource) Health(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.HealthCalls++

	return f.Healthy
}

func (f *FakeSearchSource) Close() error { return nil }

// FakeTextGenerator returns a deterministic enhancement of whatever prompt
// it is given, recording every call for assertions.
type FakeTextGenerator struct {
	mu     sync.Mutex
	Prompts []string
}

func (f *FakeTextGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Prompts = append(f.Prompts, prompt)

	return fmt.Sprintf("[expanded] %s", prompt), nil
}

// FakeChartRenderer writes a tiny placeholder file instead of invoking a
// real charting library, recording every spec it was asked to render.
type FakeChartRenderer struct {
	mu    sync.Mutex
	Specs []report.ChartSpec
}

func (f *FakeChartRenderer) Render(_ context.Context, spec report.ChartSpec, outputPath string) (report.RenderedChart, error) {
	f.mu.Lock()
	f.Specs = append(f.Specs, spec)
	f.mu.Unlock()

	return report.RenderedChart{Path: outputPath, Size: int64(len(spec.Name)), Format: "html"}, nil
}

// FakeTemplateRenderer renders a minimal deterministic string instead of
// invoking the real template engine.
type FakeTemplateRenderer struct{}

func (FakeTemplateRenderer) Render(name string, _ any) (string, error) {
	return fmt.Sprintf("<html data-template=%q></html>", name), nil
}

// FakeDocumentExporter returns canned PDF bytes, or Err when configured to
// simulate a PDF export failure (exercising the pipeline's fallback path).
type FakeDocumentExporter struct {
	Err error
}

func (f FakeDocumentExporter) HTMLToPDF(_ context.Context, _ string, _ map[string]any) ([]byte, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	return []byte("%PDF-fake-export"), nil
}

// FakeMonitoringSink records every alert forwarded to it by the workflow
// quality controller (C10).
type FakeMonitoringSink struct {
	mu     sync.Mutex
	Alerts []workflowqc.Alert
}

func (f *FakeMonitoringSink) Forward(_ context.Context, alert workflowqc.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Alerts = append(f.Alerts, alert)

	return nil
}

// Snapshot returns a copy of the alerts recorded so far.
func (f *FakeMonitoringSink) Snapshot() []workflowqc.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]workflowqc.Alert, len(f.Alerts))
	copy(out, f.Alerts)

	return out
}
