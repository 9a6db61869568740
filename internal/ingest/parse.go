package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/dossier/internal/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// parseAmount reads a monetary cell. It accepts either "1,234.56" or
// "1.234,56" grouping and strips currency symbols. An empty cell yields
// (invalid, true); an unparsable one yields (invalid, false).
func parseAmount(raw string) (decimal.NullDecimal, bool) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ' ', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if s == "" {
		return decimal.NullDecimal{}, true
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// A single comma followed by exactly three digits is a thousands separator.
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d), true
}

// parseDate reads a calendar-date cell using layouts, falling back to an
// Excel/Sheets serial day number. Same contract as parseAmount.
func parseDate(raw string, layouts []string) (*time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, true
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.NewDate(t), true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return model.NewDate(t), true
		}
	}

	return nil, false
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
