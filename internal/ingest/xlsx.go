package ingest

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads one worksheet of an Excel workbook.
type XLSXSource struct {
	path  string
	sheet string
}

// NewXLSXSource creates a source for the workbook at path. An empty sheet
// selects the first worksheet.
func NewXLSXSource(path, sheet string) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet}
}

// Name implements Source.
func (s *XLSXSource) Name() string {
	if s.sheet == "" {
		return s.path
	}
	return fmt.Sprintf("%s [%s]", s.path, s.sheet)
}

// Read implements Source. Cells are read raw so dates arrive as Excel serial
// numbers and amounts without display formatting.
func (s *XLSXSource) Read(_ context.Context) (Table, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return Table{}, err
	}
	defer func() { _ = f.Close() }()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, idxErr := f.GetSheetIndex(sheet); idxErr != nil || idx < 0 {
		return Table{}, fmt.Errorf("sheet %q not found in workbook (sheets: %v)", sheet, f.GetSheetList())
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	// Leading blank rows are common above the header.
	for len(rows) > 0 && isBlankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return Table{}, nil
	}

	return Table{Header: rows[0], Rows: rows[1:]}, nil
}
