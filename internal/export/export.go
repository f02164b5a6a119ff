// Package export writes advisory on-disk copies of the cart for operators,
// separate from the adapter's KV backup. Exports are never load-bearing.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cartstore/internal/model"
)

type Exporter interface {
	Write(exportID string, lines []model.Line) error
}

type FilesystemExporter struct {
	baseDir string
}

func NewFilesystemExporter(baseDir string) *FilesystemExporter {
	return &FilesystemExporter{baseDir: baseDir}
}

func (f *FilesystemExporter) Write(exportID string, lines []model.Line) error {
	if err := os.MkdirAll(filepath.Join(f.baseDir, exportID), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	file := filepath.Join(f.baseDir, exportID, "cart.json")
	out, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer out.Close()

	if lines == nil {
		lines = []model.Line{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(lines); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadExport loads a previously written export, for inspection tools.
func ReadExport(baseDir string, exportID string) ([]model.Line, error) {
	path := filepath.Join(baseDir, exportID, "cart.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var lines []model.Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal export: %w", err)
	}
	return lines, nil
}
