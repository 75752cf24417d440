// Package storage persists scan results to a run directory on disk.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

const (
	// RunDirLayout names run directories, e.g. 2024-05-01_1200
	RunDirLayout = "2006-01-02_1504"

	ResultsFile = "results.json"
	ReportFile  = "report.md"
)

// ResultWriter writes the artifacts of one run into a timestamped directory
type ResultWriter struct {
	runDir string
}

// NewResultWriter creates baseDir/<timestamp> for a run starting now
func NewResultWriter(baseDir string) (*ResultWriter, error) {
	return newResultWriter(baseDir, time.Now())
}

func newResultWriter(baseDir string, now time.Time) (*ResultWriter, error) {
	runDir := filepath.Join(baseDir, now.Format(RunDirLayout))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &ResultWriter{runDir: runDir}, nil
}

// RunDir returns the directory artifacts are written to
func (w *ResultWriter) RunDir() string {
	return w.runDir
}

// Save writes the full result as indented JSON and returns the file path
func (w *ResultWriter) Save(result *models.ScanResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal scan result to JSON: %w", err)
	}

	path := filepath.Join(w.runDir, ResultsFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// SaveReport writes a Markdown summary and returns the file path
func (w *ResultWriter) SaveReport(result *models.ScanResult) (string, error) {
	path := filepath.Join(w.runDir, ReportFile)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := WriteMarkdown(result, file); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, file.Close()
}

// LoadResult reads a results.json written by Save. Port, web, dns and subdomain
// payloads come back as their typed values.
func LoadResult(path string) (*models.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result models.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &result, nil
}
