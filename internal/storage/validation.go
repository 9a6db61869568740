package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/dossier/internal/model"
	"github.com/shopspring/decimal"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidRecord = errors.New("invalid detail record")
	ErrAmountRange   = errors.New("amount out of storable range")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecords validates a slice of records. An empty slice is allowed:
// loading an empty dataset empties the relation. Every account total must
// fit in amount_minor, otherwise SUM overflows when summarizing.
func validateRecords(records []model.DetailRecord) error {
	if records == nil {
		return nil
	}
	totals := make(map[string]decimal.Decimal)
	for i := range records {
		if err := validateRecord(&records[i]); err != nil {
			return fmt.Errorf("record at index %d: %w", i, err)
		}
		r := records[i]
		if !r.Amount.Valid {
			continue
		}
		total := totals[r.AccountKey].Add(r.Amount.Decimal.Round(model.AmountScale))
		if !model.AmountFits(total) {
			return fmt.Errorf("%w: total for account %s", ErrAmountRange, r.AccountKey)
		}
		totals[r.AccountKey] = total
	}
	return nil
}

// validateRecord validates a single record.
func validateRecord(r *model.DetailRecord) error {
	if r == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if strings.TrimSpace(r.AccountKey) == "" {
		return fmt.Errorf("%w: missing account key", ErrInvalidRecord)
	}
	if r.Amount.Valid && !model.AmountFits(r.Amount.Decimal) {
		return fmt.Errorf("%w: %s", ErrAmountRange, r.Amount.Decimal.String())
	}
	return nil
}
