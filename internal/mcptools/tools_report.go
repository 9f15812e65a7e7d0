package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/patentlens/kernel/internal/patent"
	"github.com/patentlens/kernel/internal/report"
)

// GenerateReportInput is the input schema for the generate_report tool.
// Bundle carries the already-computed analysis variants (trend,
// competition, technology, geographic) keyed exactly like
// [patent.Bundle]'s JSON encoding; the tool does not run analysis itself,
// only composition, rendering, and export.
type GenerateReportInput struct {
	ReportID  string         `json:"report_id"            jsonschema:"identifier this report version is stored and retrieved under"`
	Keywords  []string       `json:"keywords"              jsonschema:"search keywords the analysis bundle was produced from"`
	Depth     string         `json:"depth,omitempty"       jsonschema:"basic, standard, or deep (default standard); deep additionally invokes text enhancement"`
	Formats   []string       `json:"formats,omitempty"     jsonschema:"export formats to produce: html, json, pdf, zip (default html)"`
	Bundle    map[string]any `json:"bundle"                jsonschema:"analysis bundle (trend/competition/technology/geographic results) to report on"`
}

// GenerateReportResult is the structured output of a successful report run.
type GenerateReportResult struct {
	ReportID string                         `json:"report_id"`
	Version  int                            `json:"version"`
	Exports  map[string]report.ExportResult `json:"exports"`
}

// handleGenerateReport processes generate_report tool calls.
func (s *Server) handleGenerateReport(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input GenerateReportInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.ReportID == "" {
		return errorResult(ErrEmptyReportID)
	}

	if len(input.Keywords) == 0 {
		return errorResult(ErrEmptyKeywords)
	}

	if len(input.Bundle) == 0 {
		return errorResult(ErrEmptyBundle)
	}

	bundle, err := decodeBundle(input.Bundle)
	if err != nil {
		return errorResult(fmt.Errorf("decode bundle: %w", err))
	}

	depth := report.DepthStandard
	if input.Depth != "" {
		depth = report.Depth(input.Depth)
	}

	formats := formatsOf(input.Formats)

	req := report.Request{
		ReportID: input.ReportID,
		Keywords: input.Keywords,
		Depth:    depth,
		Formats:  formats,
	}

	result, err := s.reports.Run(ctx, req, bundle)
	if err != nil {
		return errorResult(err)
	}

	exports := make(map[string]report.ExportResult, len(result.Exports))
	for format, export := range result.Exports {
		exports[string(format)] = export
	}

	return jsonResult(GenerateReportResult{
		ReportID: result.ReportID,
		Version:  result.Version,
		Exports:  exports,
	})
}

func decodeBundle(raw map[string]any) (*patent.Bundle, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var bundle patent.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, err
	}

	return &bundle, nil
}

func formatsOf(names []string) []report.Format {
	if len(names) == 0 {
		return []report.Format{report.FormatHTML}
	}

	formats := make([]report.Format, len(names))
	for i, name := range names {
		formats[i] = report.Format(name)
	}

	return formats
}
