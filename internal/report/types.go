// Package report implements the Report Pipeline (C11): request parsing,
// content composition, chart-spec generation, template rendering, and
// multi-format export with a persisted, capped version history.
package report

import (
	"context"
	"time"
)

// Depth is the requested analysis depth.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// TimeRange bounds a request to a span of years.
type TimeRange struct {
	StartYear int
	EndYear   int
}

// Request is the structured report request accepted by the pipeline's
// driver (spec §6 "Request shape").
type Request struct {
	ReportID   string
	Content    string
	Keywords   []string
	TimeRange  *TimeRange
	FocusAreas []string
	Depth      Depth
	Formats    []Format
}

// Format is an export target.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
	FormatZIP  Format = "zip"

	// formatPDFError is returned under the "pdf" key when PDF export fails
	// and the pipeline falls back to an HTML-plus-explainer pair.
	formatPDFError Format = "pdf_error"
)

// ChartType is the kind of chart a ChartSpec renders as.
type ChartType string

const (
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
	ChartBar  ChartType = "bar"
)

// ChartSpec describes one chart to render (spec §4.11).
type ChartSpec struct {
	Name       string
	Type       ChartType
	Title      string
	Categories []string
	Values     []float64
}

// RenderedChart is the output of a ChartRenderer call (§6).
type RenderedChart struct {
	Path   string
	Size   int64
	Format string
}

// Section is one prose section of the composed report content.
type Section struct {
	Title string
	Body  string
}

// Content is the composed report body, before template rendering.
type Content struct {
	Summary  string
	Sections []Section
}

// ExportResult is one format's export outcome.
type ExportResult struct {
	Format  Format
	Path    string
	Bytes   int
	Fallback bool
}

// TextGenerator optionally enhances section prose with an LLM (§6).
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChartRenderer draws a ChartSpec to a file and reports its size (§6).
type ChartRenderer interface {
	Render(ctx context.Context, spec ChartSpec, outputPath string) (RenderedChart, error)
}

// TemplateRenderer renders a named template against structured data (§6).
type TemplateRenderer interface {
	Render(templateName string, data any) (string, error)
}

// DocumentExporter converts HTML to PDF bytes, or returns an error for
// Unsupported environments (§6).
type DocumentExporter interface {
	HTMLToPDF(ctx context.Context, html string, options map[string]any) ([]byte, error)
}

// ReportVersion is one persisted version of a report (spec §4.11 /
// versions index structure).
type ReportVersion struct {
	ReportID       string
	VersionID      string
	VersionNumber  int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Status         string
	Files          map[string]string // format -> path
	ArchivedFiles  map[string]string // format -> lz4-compressed archive path (SPEC_FULL §4 domain-stack wiring)
	Parameters     map[string]any
	SourceChecksum string // SPEC_FULL §5 supplement: detects re-export of unchanged source data
}
