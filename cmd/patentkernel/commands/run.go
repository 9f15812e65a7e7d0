package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/patentlens/kernel/internal/bus"
	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/collab"
	"github.com/patentlens/kernel/internal/competition"
	"github.com/patentlens/kernel/internal/loadbalancer"
	"github.com/patentlens/kernel/internal/patent"
	"github.com/patentlens/kernel/internal/quality"
	"github.com/patentlens/kernel/internal/report"
	"github.com/patentlens/kernel/internal/report/chartrender"
	"github.com/patentlens/kernel/internal/search"
	"github.com/patentlens/kernel/internal/taskregistry"
	"github.com/patentlens/kernel/internal/techclass"
	"github.com/patentlens/kernel/internal/testsupport"
	"github.com/patentlens/kernel/internal/trend"
	"github.com/patentlens/kernel/internal/workflowqc"
)

// NewRunCommand wires every component and runs one search-to-report
// pipeline end to end, printing a colored, tabular summary. Search runs
// against fixture sources (testsupport.FakeSearchSource) since no live
// external search API is configured; analysis uses a built-in sample
// record set, and the pipeline falls back to its own defaults for any
// collaborator it doesn't wire a concrete implementation for (text
// enhancement, PDF export, HTML templating). This is the driver for
// manual smoke-testing, not a REPL or interactive demo.
func NewRunCommand() *cobra.Command {
	var (
		outputDir string
		keywords  []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one analysis-to-report pipeline end to end",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runPipeline(cobraCmd.Context(), outputDir, keywords)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "./data/reports", "directory reports are written under")
	cmd.Flags().StringSliceVar(&keywords, "keywords", []string{"电池", "battery"}, "search keywords attached to the report request")

	return cmd
}

func runPipeline(ctx context.Context, outputDir string, keywords []string) error {
	c := clock.RealClock{}

	records := sampleRecords()

	scored := runSampleSearch(ctx, c, keywords)
	printSearchSummary(scored)

	trendResult := trend.New(c, trend.Config{}).Analyze(records)
	competitionResult := competition.New().Analyze(records)
	technologyResult := techclass.New().Analyze(records)

	bundle := &patent.Bundle{
		CreatedAt:   c.Now(),
		Trend:       trendResult,
		Competition: competitionResult,
		Technology:  technologyResult,
	}
	bundle.ResultID = quality.CanonicalResultID(bundle)

	qc := quality.New(c, quality.Config{})
	qualityReport := qc.Validate(bundle)

	printQualitySummary(qualityReport)

	wfqc := workflowqc.New(c, nil)
	wfqc.RecordCheck(ctx, "patent-analysis", qualityReport.Overall, qualityReport.Passed)

	messageBus := bus.New(c)
	lb := loadbalancer.New()
	tasks := taskregistry.New(c)
	manager := collab.New(c, messageBus, lb, tasks)
	manager.RegisterWorker("analysis-worker-1", "analysis", []string{"patent-analysis"}, nil, 5)

	taskID, err := manager.AssignTask("generate_report", map[string]any{"report_id": "demo-report"}, "", 1)
	if err != nil {
		return fmt.Errorf("assign report task: %w", err)
	}

	pipeline := report.New(c, outputDir, report.Collaborators{
		ChartRenderer: chartrender.New(),
	})

	req := report.Request{
		ReportID: "demo-report",
		Keywords: keywords,
		Depth:    report.DepthStandard,
		Formats:  []report.Format{report.FormatHTML, report.FormatJSON},
	}

	result, err := pipeline.Run(ctx, req, bundle)
	if err != nil {
		_ = manager.FailTask(taskID, err, "analysis-worker-1", 2*time.Second)

		return fmt.Errorf("run report pipeline: %w", err)
	}

	if err := manager.CompleteTask(taskID, map[string]any{"version": result.Version}, "analysis-worker-1", 2*time.Second); err != nil {
		return fmt.Errorf("complete report task: %w", err)
	}

	printExportSummary(result)

	return nil
}

// runSampleSearch exercises the search aggregator (C5) against fixture
// sources, since no live external search API is available in this kernel.
func runSampleSearch(ctx context.Context, c clock.Clock, keywords []string) []search.Scored {
	sources := make(map[search.SourceName]search.Source)
	for name, records := range sampleSearchRecords() {
		sources[name] = testsupport.NewFakeSearchSource(records)
	}

	aggregator := search.New(c, sources)

	return aggregator.Search(ctx, search.Request{
		Keywords:   keywords,
		SearchType: search.TypePatent,
		Limit:      10,
		Sources:    []search.SourceName{search.SourceCNKI, search.SourceBocha, search.SourceWeb},
	})
}

func printSearchSummary(scored []search.Scored) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Title", "Final"})

	for _, s := range scored {
		t.AppendRow(table.Row{string(s.Record.Source), s.Record.Title, fmt.Sprintf("%.2f", s.Final)})
	}

	t.Render()
}

func printQualitySummary(r *quality.QualityReport) {
	statusColor := color.New(color.FgGreen)

	if !r.Passed {
		statusColor = color.New(color.FgRed)
	} else if r.Overall < 0.85 {
		statusColor = color.New(color.FgYellow)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Dimension", "Score"})

	for dim, score := range r.Dimensions {
		t.AppendRow(table.Row{dim, fmt.Sprintf("%.2f", score)})
	}

	t.AppendFooter(table.Row{"Overall", fmt.Sprintf("%.2f (%s)", r.Overall, r.Grade)})
	t.Render()

	statusColor.Printf("quality: passed=%v\n", r.Passed)
}

func printExportSummary(result *report.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Format", "Path", "Size", "Fallback"})

	for format, export := range result.Exports {
		row := table.Row{string(format), export.Path, humanize.Bytes(uint64(export.Bytes)), export.Fallback}
		t.AppendRow(row)
	}

	t.Render()

	color.New(color.FgGreen).Printf("report %s v%d complete\n", result.ReportID, result.Version)
}
