package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/patentlens/kernel/internal/patent"
)

func sampleBundle() *patent.Bundle {
	return &patent.Bundle{
		ResultID: "r1",
		Trend: &patent.TrendResult{
			DataPointCount: 10,
			Pattern:        "steady_growth",
			Direction:      "increasing",
			Confidence:     0.8,
			CAGRValid:      true,
			CAGR:           0.12,
			YearlyCounts:   map[int]int{2020: 10, 2021: 12, 2022: 15},
		},
		Competition: &patent.CompetitionResult{
			DataPointCount:     10,
			HHI:                0.3,
			CR4:                0.8,
			ConcentrationLevel: "高度集中",
			ApplicantCounts: []patent.ApplicantCount{
				{Applicant: "Alpha Corp", Count: 8},
				{Applicant: "Beta Inc", Count: 5},
			},
		},
		Technology: &patent.TechnologyResult{
			DataPointCount:   10,
			IPCDistribution:  []patent.IPCStat{{Prefix: "G06F", Label: "计算", Count: 7}},
			MainTechnologies: []string{"计算"},
			Clusters:         []patent.TechCluster{{Area: "人工智能", Keywords: []string{"machine learning"}}},
		},
		Geographic: &patent.GeographicResult{
			CountryCounts:  map[string]int{"CN": 7, "US": 3},
			DataPointCount: 10,
		},
	}
}

func sampleRequest() Request {
	return Request{ReportID: "report-1", Keywords: []string{"电池"}, Depth: DepthStandard}
}

type fakeTextGenerator struct{ called int }

func (f *fakeTextGenerator) Generate(_ context.Context, _ string) (string, error) {
	f.called++
	return "enhanced prose", nil
}

type fakeTemplateRenderer struct{}

func (fakeTemplateRenderer) Render(name string, _ any) (string, error) {
	return "<html>" + name + "</html>", nil
}

type fakeDocumentExporter struct{ fail bool }

func (f fakeDocumentExporter) HTMLToPDF(_ context.Context, _ string, _ map[string]any) ([]byte, error) {
	if f.fail {
		return nil, errors.New("pdf rendering unavailable")
	}
	return []byte("%PDF-fake"), nil
}

func TestBuildChartSpecsOmitsMissingVariants(t *testing.T) {
	t.Parallel()

	specs := BuildChartSpecs(sampleBundle())

	names := make(map[string]bool)
	for _, s := range specs {
		names[s.Name] = true
	}

	assert.True(t, names["trend_chart"])
	assert.True(t, names["competition_chart"])
	assert.True(t, names["technology_chart"])
	assert.True(t, names["geographic_chart"])

	bundle := sampleBundle()
	bundle.Geographic = nil
	specs = BuildChartSpecs(bundle)

	names = make(map[string]bool)
	for _, s := range specs {
		names[s.Name] = true
	}
	assert.False(t, names["geographic_chart"])
}

func TestBuildContentWithoutGenerator(t *testing.T) {
	t.Parallel()

	content := BuildContent(context.Background(), sampleRequest(), sampleBundle(), nil)

	assert.NotEmpty(t, content.Summary)
	assert.Len(t, content.Sections, 3)
}

func TestBuildContentEnhancesOnlyAtDeepDepth(t *testing.T) {
	t.Parallel()

	gen := &fakeTextGenerator{}
	req := sampleRequest()
	req.Depth = DepthStandard

	content := BuildContent(context.Background(), req, sampleBundle(), gen)
	assert.Equal(t, 0, gen.called)
	assert.NotEqual(t, "enhanced prose", content.Sections[0].Body)

	req.Depth = DepthDeep
	content = BuildContent(context.Background(), req, sampleBundle(), gen)
	assert.Equal(t, len(content.Sections), gen.called)

	for _, s := range content.Sections {
		assert.Equal(t, "enhanced prose", s.Body)
	}
}

func TestFallbackHTMLUsedWithoutTemplateRenderer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pipeline := New(clock.NewFixed(time.Now()), dir, Collaborators{})

	result, err := pipeline.Run(context.Background(), sampleRequest(), sampleBundle())
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "<h1>Patent Analysis Report</h1>")
}

func TestTemplateRendererUsedWhenConfigured(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pipeline := New(clock.NewFixed(time.Now()), dir, Collaborators{TemplateRenderer: fakeTemplateRenderer{}})

	result, err := pipeline.Run(context.Background(), sampleRequest(), sampleBundle())
	require.NoError(t, err)
	assert.Equal(t, "<html>report</html>", result.HTML)
}

func TestExportAllFormatsAndZIPBundle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	req := sampleRequest()
	req.Formats = []Format{FormatHTML, FormatJSON, FormatPDF, FormatZIP}

	pipeline := New(clock.NewFixed(time.Now()), dir, Collaborators{DocumentExporter: fakeDocumentExporter{}})

	result, err := pipeline.Run(context.Background(), req, sampleBundle())
	require.NoError(t, err)

	require.Contains(t, result.Exports, FormatHTML)
	require.Contains(t, result.Exports, FormatJSON)
	require.Contains(t, result.Exports, FormatPDF)
	require.Contains(t, result.Exports, FormatZIP)

	pdfExport := result.Exports[FormatPDF]
	assert.False(t, pdfExport.Fallback)

	for _, export := range result.Exports {
		_, err := os.Stat(export.Path)
		assert.NoError(t, err)
	}
}

func TestExportPDFFallsBackOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	req := sampleRequest()
	req.Formats = []Format{FormatPDF}

	pipeline := New(clock.NewFixed(time.Now()), dir, Collaborators{DocumentExporter: fakeDocumentExporter{fail: true}})

	result, err := pipeline.Run(context.Background(), req, sampleBundle())
	require.NoError(t, err)

	pdfExport := result.Exports[FormatPDF]
	assert.True(t, pdfExport.Fallback)
	assert.Equal(t, Format("pdf_error"), pdfExport.Format)

	errPath := pdfExport.Path[:len(pdfExport.Path)-len(".html")] + ".pdf_error.txt"
	_, statErr := os.Stat(errPath)
	assert.NoError(t, statErr)
}

func TestExportPDFFallbackWithNoExporter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	req := sampleRequest()
	req.Formats = []Format{FormatPDF}

	pipeline := New(clock.NewFixed(time.Now()), dir, Collaborators{})

	result, err := pipeline.Run(context.Background(), req, sampleBundle())
	require.NoError(t, err)

	assert.True(t, result.Exports[FormatPDF].Fallback)
}

func TestVersionIndexMonotonicAndEvictsOldest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	idx := NewVersionIndex(clock.NewFixed(time.Now()), dir)

	var numbers []int
	for i := 0; i < 7; i++ {
		n, err := idx.Append(ReportVersion{ReportID: "r1", VersionID: "v", CreatedAt: time.Now()})
		require.NoError(t, err)
		numbers = append(numbers, n)
	}

	for i := 1; i < len(numbers); i++ {
		assert.Equal(t, numbers[i-1]+1, numbers[i])
	}

	history := idx.Versions("r1")
	require.Len(t, history, maxVersionsPerReport)
	assert.Equal(t, numbers[len(numbers)-maxVersionsPerReport], history[0].VersionNumber)
	assert.Equal(t, numbers[len(numbers)-1], history[len(history)-1].VersionNumber)
}

func TestVersionIndexPersistsAcrossReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	idx := NewVersionIndex(clock.NewFixed(time.Now()), dir)

	_, err := idx.Append(ReportVersion{ReportID: "r1", VersionID: "v1", CreatedAt: time.Now()})
	require.NoError(t, err)

	reloaded := NewVersionIndex(clock.NewFixed(time.Now()), dir)
	assert.Len(t, reloaded.Versions("r1"), 1)
}

func TestVersionIndexDeleteRemovesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	idx := NewVersionIndex(clock.NewFixed(time.Now()), dir)

	path := filepath.Join(dir, "reports", "r1_v1.html")
	require.NoError(t, writeFile(path, []byte("hi")))

	_, err := idx.Append(ReportVersion{ReportID: "r1", VersionID: "v1", CreatedAt: time.Now(), Files: map[string]string{"html": path}})
	require.NoError(t, err)

	require.NoError(t, idx.Delete("r1"))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, idx.Versions("r1"))
}

func TestRunFinalizesVersionStatus(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pipeline := New(clock.NewFixed(time.Now()), dir, Collaborators{})

	result, err := pipeline.Run(context.Background(), sampleRequest(), sampleBundle())
	require.NoError(t, err)

	history := pipeline.versions.Versions("report-1")
	require.Len(t, history, 1)
	assert.Equal(t, "complete", history[0].Status)
	assert.Equal(t, result.Version, history[0].VersionNumber)
	assert.NotEmpty(t, history[0].SourceChecksum)
	assert.NotEmpty(t, history[0].ArchivedFiles)

	for format, archivePath := range history[0].ArchivedFiles {
		_, statErr := os.Stat(archivePath)
		assert.NoError(t, statErr, "archive for %s should exist on disk", format)
	}
}

func TestVersionIndexArchiveRoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	idx := NewVersionIndex(clock.NewFixed(time.Now()), dir)

	path := filepath.Join(dir, "reports", "r1_v1.json")
	require.NoError(t, writeFile(path, []byte(`{"hello":"world"}`)))

	version, err := idx.Append(ReportVersion{ReportID: "r1", VersionID: "v1", CreatedAt: time.Now(), Files: map[string]string{"json": path}})
	require.NoError(t, err)

	archivePath, err := idx.archive("r1", version, "json", path)
	require.NoError(t, err)

	history := idx.Versions("r1")
	history[0].ArchivedFiles = map[string]string{"json": archivePath}
	idx.mu.Lock()
	idx.versions["r1"] = history
	idx.mu.Unlock()

	restored, err := idx.RestoreArchived("r1", version, "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(restored))
}
