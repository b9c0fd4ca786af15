// Package exporter writes the pipeline's output tables as flat tabular
// files: the scored EPI detail table, its product and market aggregates,
// and the supporting supply, demand, ease and bilateral tables.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// CSVWriter writes CSV tables into one output directory. Each write goes to
// a temporary file first and is renamed into place, so a failed run leaves
// the previous output untouched.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at the output directory.
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger}
}

// Write replaces the named CSV file with the given headers and records.
// A UTF-8 BOM is prefixed for spreadsheet compatibility.
func (w *CSVWriter) Write(name string, headers []string, records [][]string) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	finalPath := filepath.Join(w.dir, name)
	tmp, err := os.CreateTemp(w.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		tmp.Close()
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(tmp)
	if err := cw.Write(headers); err != nil {
		tmp.Close()
		return fmt.Errorf("write headers: %w", err)
	}
	for i, record := range records {
		if err := cw.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush writer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("replace %s: %w", finalPath, err)
	}

	w.logger.Info("wrote output table",
		"path", finalPath,
		"rows", len(records),
	)
	return nil
}
