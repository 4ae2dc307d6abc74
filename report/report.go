// Package report writes measurement results to YAML files.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"facegauge/session"
)

// ErrNoDirectory is returned when the writer has no output directory.
var ErrNoDirectory = errors.New("report: no results directory configured")

// Document is the on-disk layout of one results file.
type Document struct {
	RunID       string          `yaml:"run_id"`
	GeneratedAt time.Time       `yaml:"generated_at"`
	Results     session.Results `yaml:"results"`
}

// Writer stores one file per completed run as <dir>/<run-id>.yaml.
type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// Write encodes res and returns the written path. A missing run ID is
// replaced with a fresh one.
func (w *Writer) Write(res session.Results) (string, error) {
	if w.dir == "" {
		return "", ErrNoDirectory
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create results directory: %w", err)
	}

	runID := ""
	if res.Summary != nil {
		runID = res.Summary.RunID
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	doc := Document{RunID: runID, GeneratedAt: w.now().UTC(), Results: res}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}

	path := filepath.Join(w.dir, runID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	w.logger.Info("results written", zap.String("path", path), zap.String("run_id", runID))
	return path, nil
}

// Listener writes a report for every results-viewed event.
func (w *Writer) Listener() session.Listener {
	return func(ev session.Event) {
		if ev.Kind != session.EventResultsViewed || ev.Results == nil {
			return
		}
		if _, err := w.Write(*ev.Results); err != nil {
			w.logger.Error("failed to write results", zap.Error(err))
		}
	}
}

// Read decodes a results file.
func Read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
