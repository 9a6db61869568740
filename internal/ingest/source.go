// Package ingest loads tabular billing data into the record relation.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/dossier/internal/model"
)

// Table is a header row plus data rows, as read from a tabular source.
type Table struct {
	Header []string
	Rows   [][]string
}

// Source reads a complete table. Sources hold no state between reads.
type Source interface {
	Name() string
	Read(ctx context.Context) (Table, error)
}

// Options configure file-backed sources.
type Options struct {
	Sheet   string // xlsx sheet name; empty selects the first sheet
	Columns model.Columns
}

// OpenSource picks a Source implementation from the file extension.
func OpenSource(path string, opts Options) (Source, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv", ".txt":
		return NewCSVSource(path), nil
	case ".xlsx", ".xlsm", ".xltx":
		return NewXLSXSource(path, opts.Sheet), nil
	case ".ofx", ".qfx":
		return NewOFXSource(path, opts.Columns), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q (want .csv, .xlsx, .ofx or .qfx)", ext)
	}
}
