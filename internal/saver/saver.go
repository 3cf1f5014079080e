package saver

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"VolSentinel/internal/model"
)

const dateLayout = "2006-01-02"

// Saver writes a table to a single file, replacing any previous content.
type Saver interface {
	Save(t *model.Table, path string) error
	Extension() string
}

// Formats lists the supported output formats.
var Formats = []string{"csv", "json", "parquet", "xlsx"}

// NewSaver returns the saver for format, or nil if it is not supported.
// An empty format selects CSV.
func NewSaver(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return CSVSaver{}
	case "json":
		return JSONSaver{}
	case "parquet":
		return ParquetSaver{}
	case "xlsx", "excel":
		return XLSXSaver{}
	default:
		return nil
	}
}

// MustSaver is like NewSaver but panics on an unsupported format.
func MustSaver(format string) Saver {
	s := NewSaver(format)
	if s == nil {
		panic(fmt.Sprintf("saver: unsupported format %q (use: %s)", format, strings.Join(Formats, ", ")))
	}
	return s
}

// FileName joins base and the saver's extension.
func FileName(s Saver, base string) string {
	return base + "." + s.Extension()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

func createFile(path string) (*os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
