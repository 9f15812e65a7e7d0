// Package chartrender adapts go-echarts to the report package's
// ChartRenderer interface, rendering line, pie, and bar charts to
// self-contained HTML files.
package chartrender

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/patentlens/kernel/internal/kernelerr"
	"github.com/patentlens/kernel/internal/report"
)

// Renderer implements report.ChartRenderer using go-echarts.
type Renderer struct{}

// New creates a go-echarts-backed Renderer.
func New() *Renderer { return &Renderer{} }

// renderable is satisfied by every go-echarts chart type (charts.Line,
// charts.Pie, charts.Bar, ...) via their embedded BaseConfiguration.
type renderable interface {
	Render(w ...io.Writer) error
}

// Render draws spec to outputPath as an HTML file and reports its size.
func (r *Renderer) Render(_ context.Context, spec report.ChartSpec, outputPath string) (report.RenderedChart, error) {
	var chart renderable

	switch spec.Type {
	case report.ChartLine:
		chart = lineChart(spec)
	case report.ChartPie:
		chart = pieChart(spec)
	case report.ChartBar:
		chart = barChart(spec)
	default:
		return report.RenderedChart{}, kernelerr.New(kernelerr.Validation, "unsupported chart type "+string(spec.Type))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return report.RenderedChart{}, err
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return report.RenderedChart{}, err
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return report.RenderedChart{}, err
	}

	return report.RenderedChart{Path: outputPath, Size: int64(buf.Len()), Format: "html"}, nil
}

func lineChart(spec report.ChartSpec) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: spec.Title}))
	line.SetXAxis(spec.Categories).AddSeries(spec.Name, lineItems(spec.Values))

	return line
}

func lineItems(values []float64) []opts.LineData {
	items := make([]opts.LineData, len(values))
	for i, v := range values {
		items[i] = opts.LineData{Value: v}
	}

	return items
}

func pieChart(spec report.ChartSpec) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: spec.Title}))
	pie.AddSeries(spec.Name, pieItems(spec))

	return pie
}

func pieItems(spec report.ChartSpec) []opts.PieData {
	items := make([]opts.PieData, len(spec.Categories))
	for i, label := range spec.Categories {
		items[i] = opts.PieData{Name: label, Value: spec.Values[i]}
	}

	return items
}

func barChart(spec report.ChartSpec) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: spec.Title}))
	bar.SetXAxis(spec.Categories).AddSeries(spec.Name, barItems(spec.Values))

	return bar
}

func barItems(values []float64) []opts.BarData {
	items := make([]opts.BarData, len(values))
	for i, v := range values {
		items[i] = opts.BarData{Value: v}
	}

	return items
}
