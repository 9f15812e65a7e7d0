package report

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patentlens/kernel/internal/kernelerr"
)

// Export writes rendered for each requested format under reportDir,
// filenames carrying a "_vN" suffix (spec §6 persisted-state layout).
func Export(ctx context.Context, exporter DocumentExporter, reportID string, version int, html string, payload any, formats []Format, reportDir string) (map[Format]ExportResult, error) {
	results := make(map[Format]ExportResult, len(formats))

	for _, format := range formats {
		var (
			result ExportResult
			err    error
		)

		switch format {
		case FormatHTML:
			result, err = exportHTML(reportID, version, html, reportDir)
		case FormatJSON:
			result, err = exportJSON(reportID, version, payload, reportDir)
		case FormatPDF:
			result, err = exportPDF(ctx, exporter, reportID, version, html, reportDir)
		case FormatZIP:
			result, err = exportZIP(ctx, exporter, reportID, version, html, payload, reportDir)
		default:
			err = kernelerr.New(kernelerr.ExportUnsupported, "unknown export format "+string(format))
		}

		if err != nil {
			return nil, err
		}

		results[format] = result
	}

	return results, nil
}

func versionedFilename(reportID string, version int, suffix string) string {
	return fmt.Sprintf("%s_v%d%s", reportID, version, suffix)
}

func exportHTML(reportID string, version int, html, reportDir string) (ExportResult, error) {
	path := filepath.Join(reportDir, versionedFilename(reportID, version, ".html"))

	if err := writeFile(path, []byte(html)); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{Format: FormatHTML, Path: path, Bytes: len(html)}, nil
}

func exportJSON(reportID string, version int, payload any, reportDir string) (ExportResult, error) {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return ExportResult{}, err
	}

	path := filepath.Join(reportDir, versionedFilename(reportID, version, ".json"))

	if err := writeFile(path, encoded); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{Format: FormatJSON, Path: path, Bytes: len(encoded)}, nil
}

// exportPDF delegates to DocumentExporter; on any failure (including a nil
// exporter) it falls back to HTML plus a ".pdf_error.txt" explainer written
// beside it, returning the HTML file's path under the "pdf" key tagged
// format="pdf_error" (spec §4.11).
func exportPDF(ctx context.Context, exporter DocumentExporter, reportID string, version int, html, reportDir string) (ExportResult, error) {
	if exporter != nil {
		if pdfBytes, err := exporter.HTMLToPDF(ctx, html, nil); err == nil {
			path := filepath.Join(reportDir, versionedFilename(reportID, version, ".pdf"))

			if writeErr := writeFile(path, pdfBytes); writeErr == nil {
				return ExportResult{Format: FormatPDF, Path: path, Bytes: len(pdfBytes)}, nil
			}
		}
	}

	return pdfFallback(reportID, version, html, reportDir)
}

func pdfFallback(reportID string, version int, html, reportDir string) (ExportResult, error) {
	htmlResult, err := exportHTML(reportID, version, html, reportDir)
	if err != nil {
		return ExportResult{}, err
	}

	explainerPath := filepath.Join(reportDir, versionedFilename(reportID, version, ".pdf_error.txt"))
	explainer := "PDF export is unavailable; see the accompanying HTML file for the rendered report."

	if err := writeFile(explainerPath, []byte(explainer)); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{
		Format:   formatPDFError,
		Path:     htmlResult.Path,
		Bytes:    htmlResult.Bytes,
		Fallback: true,
	}, nil
}

// exportZIP bundles html+json (and pdf if possible) plus a metadata.json
// manifest (spec §4.11).
func exportZIP(ctx context.Context, exporter DocumentExporter, reportID string, version int, html string, payload any, reportDir string) (ExportResult, error) {
	var buf bytes.Buffer

	w := zip.NewWriter(&buf)

	if err := addZipEntry(w, "report.html", []byte(html)); err != nil {
		return ExportResult{}, err
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return ExportResult{}, err
	}

	if err := addZipEntry(w, "report.json", encoded); err != nil {
		return ExportResult{}, err
	}

	pdfIncluded := false

	if exporter != nil {
		if pdfBytes, err := exporter.HTMLToPDF(ctx, html, nil); err == nil {
			if err := addZipEntry(w, "report.pdf", pdfBytes); err == nil {
				pdfIncluded = true
			}
		}
	}

	manifest, err := json.MarshalIndent(map[string]any{
		"report_id":    reportID,
		"version":      version,
		"pdf_included": pdfIncluded,
	}, "", "  ")
	if err != nil {
		return ExportResult{}, err
	}

	if err := addZipEntry(w, "metadata.json", manifest); err != nil {
		return ExportResult{}, err
	}

	if err := w.Close(); err != nil {
		return ExportResult{}, err
	}

	path := filepath.Join(reportDir, versionedFilename(reportID, version, ".zip"))

	if err := writeFile(path, buf.Bytes()); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{Format: FormatZIP, Path: path, Bytes: buf.Len()}, nil
}

func addZipEntry(w *zip.Writer, name string, data []byte) error {
	f, err := w.Create(name)
	if err != nil {
		return err
	}

	_, err = f.Write(data)

	return err
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
