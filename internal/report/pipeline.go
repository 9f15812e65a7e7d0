package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/patent"
)

// Pipeline runs the full report sequence: parse request -> build content ->
// build chart specs -> render -> export (spec §4.11).
type Pipeline struct {
	clock clock.Clock

	outputDir string
	versions  *VersionIndex

	textGen  TextGenerator
	charts   ChartRenderer
	template TemplateRenderer
	exporter DocumentExporter
}

// Collaborators bundles the pipeline's external interfaces; any may be nil
// except TemplateRenderer, which the pipeline requires to produce HTML.
type Collaborators struct {
	TextGenerator    TextGenerator
	ChartRenderer    ChartRenderer
	TemplateRenderer TemplateRenderer
	DocumentExporter DocumentExporter
}

// New creates a report Pipeline rooted at outputDir.
func New(c clock.Clock, outputDir string, collab Collaborators) *Pipeline {
	return &Pipeline{
		clock:     c,
		outputDir: outputDir,
		versions:  NewVersionIndex(c, outputDir),
		textGen:   collab.TextGenerator,
		charts:    collab.ChartRenderer,
		template:  collab.TemplateRenderer,
		exporter:  collab.DocumentExporter,
	}
}

// Result is the outcome of one Run call.
type Result struct {
	ReportID string
	Version  int
	HTML     string
	Charts   []RenderedChart
	Exports  map[Format]ExportResult
}

// Run executes the full pipeline for req against bundle.
func (p *Pipeline) Run(ctx context.Context, req Request, bundle *patent.Bundle) (*Result, error) {
	content := BuildContent(ctx, req, bundle, p.textGen)
	specs := BuildChartSpecs(bundle)

	chartAssetsDir := filepath.Join(p.outputDir, "assets", req.ReportID)

	rendered := make([]RenderedChart, 0, len(specs))

	if p.charts != nil {
		for _, spec := range specs {
			outputPath := filepath.Join(chartAssetsDir, spec.Name+".html")

			chart, err := p.charts.Render(ctx, spec, outputPath)
			if err == nil {
				rendered = append(rendered, chart)
			}
		}
	}

	html, err := p.renderHTML(req, content, rendered)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"report_id": req.ReportID,
		"content":   content,
		"bundle":    bundle,
		"charts":    rendered,
	}

	formats := req.Formats
	if len(formats) == 0 {
		formats = []Format{FormatHTML}
	}

	reportDir := filepath.Join(p.outputDir, "reports")

	versionNumber, err := p.versions.Append(ReportVersion{
		ReportID:       req.ReportID,
		VersionID:      fmt.Sprintf("%s-%d", req.ReportID, p.clock.Now().UnixNano()),
		CreatedAt:      p.clock.Now(),
		UpdatedAt:      p.clock.Now(),
		Status:         "pending",
		Parameters:     map[string]any{"keywords": req.Keywords, "depth": req.Depth},
		SourceChecksum: checksumOf(bundle),
	})
	if err != nil {
		return nil, err
	}

	exports, err := Export(ctx, p.exporter, req.ReportID, versionNumber, html, payload, formats, reportDir)
	if err != nil {
		return nil, err
	}

	p.finalizeVersion(req.ReportID, versionNumber, exports)

	return &Result{
		ReportID: req.ReportID,
		Version:  versionNumber,
		HTML:     html,
		Charts:   rendered,
		Exports:  exports,
	}, nil
}

func (p *Pipeline) finalizeVersion(reportID string, versionNumber int, exports map[Format]ExportResult) {
	history := p.versions.Versions(reportID)

	for i := range history {
		if history[i].VersionNumber != versionNumber {
			continue
		}

		files := make(map[string]string, len(exports))
		archived := make(map[string]string, len(exports))

		for format, result := range exports {
			files[string(format)] = result.Path

			archivePath, err := p.versions.archive(reportID, versionNumber, string(format), result.Path)
			if err == nil {
				archived[string(format)] = archivePath
			}
		}

		history[i].Files = files
		history[i].ArchivedFiles = archived
		history[i].Status = "complete"
	}

	p.versions.mu.Lock()
	p.versions.versions[reportID] = history
	p.versions.mu.Unlock()

	_ = p.versions.persist()
}

func (p *Pipeline) renderHTML(req Request, content Content, charts []RenderedChart) (string, error) {
	data := map[string]any{
		"request": req,
		"content": content,
		"charts":  charts,
	}

	if p.template != nil {
		return p.template.Render("report", data)
	}

	return fallbackHTML(content, charts), nil
}

// fallbackHTML renders a minimal report body when no TemplateRenderer is
// configured, so the pipeline still produces usable HTML in tests and
// degraded environments.
func fallbackHTML(content Content, charts []RenderedChart) string {
	html := "<html><body><h1>Patent Analysis Report</h1><p>" + content.Summary + "</p>"

	for _, s := range content.Sections {
		html += "<h2>" + s.Title + "</h2><p>" + s.Body + "</p>"
	}

	for _, c := range charts {
		html += fmt.Sprintf("<div data-chart=%q data-format=%q></div>", c.Path, c.Format)
	}

	html += "</body></html>"

	return html
}

// checksumOf fingerprints the bundle's canonical JSON form so that
// re-exporting identical source data can be detected without comparing the
// full payload (SPEC_FULL §5 supplement).
func checksumOf(bundle *patent.Bundle) string {
	encoded, err := json.Marshal(bundle)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(encoded)

	return hex.EncodeToString(sum[:])[:16]
}
