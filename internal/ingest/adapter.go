package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/model"
	"github.com/Veraticus/dossier/internal/service"
	"github.com/shopspring/decimal"
)

// LoadResult reports what a Load stored.
type LoadResult struct {
	Source  string
	Rows    int // Records stored
	Skipped int // Rows ignored for being blank or lacking an account key
	Warned  int // Stored rows whose amount or date could not be parsed
}

// Adapter loads a Source into a Relation, replacing its previous contents.
type Adapter struct {
	relation    service.Relation
	columns     model.Columns
	dateLayouts []string
}

// NewAdapter creates an adapter writing to relation.
func NewAdapter(relation service.Relation, columns model.Columns, dateLayouts []string) *Adapter {
	if len(dateLayouts) == 0 {
		dateLayouts = []string{model.DateLayout}
	}
	return &Adapter{
		relation:    relation,
		columns:     columns.WithDefaults(),
		dateLayouts: dateLayouts,
	}
}

// Columns returns the header names the adapter expects.
func (a *Adapter) Columns() model.Columns {
	return a.columns
}

// Load reads src and replaces the relation with its rows.
//
// The source is read and validated in full before the relation is touched,
// so an IOError or SchemaError leaves the previous relation intact. The swap
// itself is a single transaction. Load is not cancellable once the swap starts.
func (a *Adapter) Load(ctx context.Context, src Source) (LoadResult, error) {
	result := LoadResult{Source: src.Name()}

	table, err := src.Read(ctx)
	if err != nil {
		var ioErr *common.IOError
		if errors.As(err, &ioErr) {
			return result, err
		}
		return result, &common.IOError{Source: src.Name(), Err: err}
	}

	index, err := a.mapHeader(src.Name(), table.Header)
	if err != nil {
		return result, err
	}

	records := make([]model.DetailRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		if isBlankRow(row) {
			result.Skipped++
			continue
		}

		rec, warned, ok := a.convertRow(src.Name(), i+2, row, index)
		if !ok {
			result.Skipped++
			continue
		}
		if warned {
			result.Warned++
		}
		records = append(records, rec)
	}

	if err := a.relation.ReplaceRecords(context.WithoutCancel(ctx), src.Name(), records); err != nil {
		return result, fmt.Errorf("failed to replace records: %w", err)
	}

	result.Rows = len(records)
	slog.Info("Loaded dataset",
		"source", src.Name(),
		"records", result.Rows,
		"skipped", result.Skipped,
		"warnings", result.Warned)

	return result, nil
}

type columnIndex struct {
	plan, account, payer, invoice, amount, date int
}

// mapHeader locates each configured column. Names match exactly after
// trimming surrounding whitespace; the first occurrence wins.
func (a *Adapter) mapHeader(source string, header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	var missing []string
	for _, name := range a.columns.Required() {
		if _, ok := positions[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, &common.SchemaError{Source: source, Missing: missing}
	}

	lookup := func(name string) int {
		if i, ok := positions[name]; ok {
			return i
		}
		return -1
	}

	return columnIndex{
		plan:    lookup(a.columns.Plan),
		account: lookup(a.columns.Account),
		payer:   lookup(a.columns.Payer),
		invoice: lookup(a.columns.Invoice),
		amount:  lookup(a.columns.Amount),
		date:    lookup(a.columns.Date),
	}, nil
}

// convertRow builds a record from a data row. line is the 1-based source line
// used in log messages. ok is false when the row has no account key.
func (a *Adapter) convertRow(source string, line int, row []string, idx columnIndex) (rec model.DetailRecord, warned, ok bool) {
	rec = model.DetailRecord{
		PlanCode:   cell(row, idx.plan),
		AccountKey: cell(row, idx.account),
		Payer:      cell(row, idx.payer),
		Invoice:    cell(row, idx.invoice),
	}
	if rec.AccountKey == "" {
		slog.Warn("Skipping row without account key", "source", source, "line", line)
		return rec, false, false
	}

	amount, amountOK := parseAmount(cell(row, idx.amount))
	switch {
	case !amountOK:
		slog.Warn("Unparsable amount treated as missing",
			"source", source, "line", line, "value", cell(row, idx.amount))
		warned = true
	case amount.Valid && !model.AmountFits(amount.Decimal):
		slog.Warn("Out of range amount treated as missing",
			"source", source, "line", line, "value", cell(row, idx.amount))
		amount = decimal.NullDecimal{}
		warned = true
	case amount.Valid && !amount.Decimal.Round(model.AmountScale).Equal(amount.Decimal):
		slog.Warn("Amount rounded",
			"source", source, "line", line, "value", cell(row, idx.amount),
			"stored", amount.Decimal.Round(model.AmountScale).String())
	}
	rec.Amount = amount

	date, dateOK := parseDate(cell(row, idx.date), a.dateLayouts)
	if !dateOK {
		slog.Warn("Unparsable date treated as missing",
			"source", source, "line", line, "value", cell(row, idx.date))
		warned = true
	}
	rec.Date = date

	return rec, warned, true
}
