package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/patentlens/kernel/internal/clock"
)

const maxVersionsPerReport = 5

// VersionIndex tracks the retained ReportVersions, persisted as JSON
// at <output_dir>/versions/versions_index.json (spec §6 "Persisted state
// layout"). Retention keeps at most maxVersionsPerReport per report_id,
// oldest first (invariant 8).
type VersionIndex struct {
	clock      clock.Clock
	outputDir  string
	indexPath  string

	mu       sync.Mutex
	versions map[string][]ReportVersion // report_id -> versions, append order
}

type versionIndexFile struct {
	Reports map[string]reportEntry `json:"reports"`
}

type reportEntry struct {
	CreatedAt     string          `json:"created_at"`
	LatestVersion int             `json:"latest_version"`
	Versions      []ReportVersion `json:"versions"`
}

// NewVersionIndex creates a version index rooted at outputDir, loading any
// existing versions_index.json found there.
func NewVersionIndex(c clock.Clock, outputDir string) *VersionIndex {
	idx := &VersionIndex{
		clock:     c,
		outputDir: outputDir,
		indexPath: filepath.Join(outputDir, "versions", "versions_index.json"),
		versions:  make(map[string][]ReportVersion),
	}

	idx.load()

	return idx
}

func (v *VersionIndex) load() {
	data, err := os.ReadFile(v.indexPath)
	if err != nil {
		return
	}

	var file versionIndexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return
	}

	for reportID, entry := range file.Reports {
		v.versions[reportID] = entry.Versions
	}
}

// Append records a new version for reportID, evicting the oldest version
// once more than maxVersionsPerReport are retained (spec §4.11 / invariant
// 8's "retention removes the oldest first").
func (v *VersionIndex) Append(version ReportVersion) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	history := v.versions[version.ReportID]

	version.VersionNumber = 1
	if n := len(history); n > 0 {
		version.VersionNumber = history[n-1].VersionNumber + 1
	}

	history = append(history, version)

	if len(history) > maxVersionsPerReport {
		history = history[len(history)-maxVersionsPerReport:]
	}

	v.versions[version.ReportID] = history

	if err := v.persist(); err != nil {
		return 0, err
	}

	return version.VersionNumber, nil
}

// Versions returns a copy of reportID's retained version history.
func (v *VersionIndex) Versions(reportID string) []ReportVersion {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]ReportVersion, len(v.versions[reportID]))
	copy(out, v.versions[reportID])

	return out
}

// Delete removes reportID's entire version history and its associated
// files (spec §4.11 "Deletion cleans both the main file and its associated
// versions").
func (v *VersionIndex) Delete(reportID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, version := range v.versions[reportID] {
		for _, path := range version.Files {
			_ = os.Remove(path)
		}

		for _, path := range version.ArchivedFiles {
			_ = os.Remove(path)
		}
	}

	delete(v.versions, reportID)

	return v.persist()
}

// archive lz4-compresses the export at sourcePath into the version's
// archive directory, returning the archive's path. Exported artifacts stay
// at their original path for immediate serving; the archive is the
// long-term, space-efficient copy referenced by ReportVersion.ArchivedFiles.
func (v *VersionIndex) archive(reportID string, versionNumber int, format, sourcePath string) (string, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", err
	}

	archivePath := filepath.Join(v.outputDir, "versions", reportID,
		fmt.Sprintf("v%d", versionNumber), format+".lz4")

	if err := compressArtifact(archivePath, data); err != nil {
		return "", err
	}

	return archivePath, nil
}

// RestoreArchived decompresses the archived copy of reportID's version/format
// artifact, for tooling that needs to recover an export after its live copy
// (ReportVersion.Files) has been cleaned up.
func (v *VersionIndex) RestoreArchived(reportID string, versionNumber int, format string) ([]byte, error) {
	v.mu.Lock()
	history := v.versions[reportID]
	v.mu.Unlock()

	for _, version := range history {
		if version.VersionNumber != versionNumber {
			continue
		}

		archivePath, ok := version.ArchivedFiles[format]
		if !ok {
			return nil, fmt.Errorf("no archived %s artifact for %s v%d", format, reportID, versionNumber)
		}

		return decompressArtifact(archivePath)
	}

	return nil, fmt.Errorf("no version %d for report %s", versionNumber, reportID)
}

func (v *VersionIndex) persist() error {
	file := versionIndexFile{Reports: make(map[string]reportEntry, len(v.versions))}

	for reportID, history := range v.versions {
		latest := 0
		created := v.clock.Now()

		if len(history) > 0 {
			latest = history[len(history)-1].VersionNumber
			created = history[0].CreatedAt
		}

		file.Reports[reportID] = reportEntry{
			CreatedAt:     created.Format("2006-01-02T15:04:05Z07:00"),
			LatestVersion: latest,
			Versions:      history,
		}
	}

	encoded, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(v.indexPath), 0o755); err != nil {
		return err
	}

	return os.WriteFile(v.indexPath, encoded, 0o644)
}

// compressArtifact lz4-compresses data for persisted version storage
// (SPEC_FULL §4 domain-stack wiring) and writes it to path.
func compressArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer

	writer := lz4.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return err
	}

	if err := writer.Close(); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// decompressArtifact reverses compressArtifact, for tests and tooling that
// need to inspect archived versions.
func decompressArtifact(path string) ([]byte, error) {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	reader := lz4.NewReader(bytes.NewReader(encoded))

	var out bytes.Buffer
	if _, err := out.ReadFrom(reader); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}
