// Package model defines the billing records and account summaries shared across dossier.
package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date layout used for storage.
const DateLayout = "2006-01-02"

// AmountScale is the number of decimal places an amount keeps once stored.
const AmountScale = 4

var (
	maxAmount = decimal.New(math.MaxInt64, -AmountScale)
	minAmount = decimal.New(math.MinInt64, -AmountScale)
)

// AmountFits reports whether d can be stored at AmountScale without overflow.
func AmountFits(d decimal.Decimal) bool {
	r := d.Round(AmountScale)
	return !r.GreaterThan(maxAmount) && !r.LessThan(minAmount)
}

// DetailRecord is one raw billing line as loaded from the tabular source.
type DetailRecord struct {
	Date       *time.Time          // Calendar date, nil when the source cell was empty
	Amount     decimal.NullDecimal // Invalid when the source cell was empty
	PlanCode   string
	AccountKey string
	Payer      string // Payer or concept label
	Invoice    string
	Seq        int64 // Insertion order, assigned by the store
}

// AmountOrZero returns the record amount, treating a missing amount as zero.
func (r DetailRecord) AmountOrZero() decimal.Decimal {
	if !r.Amount.Valid {
		return decimal.Zero
	}
	return r.Amount.Decimal
}

// DateString formats the record date with layout, or returns "" when it is missing.
func (r DetailRecord) DateString(layout string) string {
	if r.Date == nil {
		return ""
	}
	return r.Date.Format(layout)
}

// NewDate truncates t to a calendar date in UTC.
func NewDate(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// LoadInfo describes the most recent ingestion into the relation.
type LoadInfo struct {
	LoadedAt time.Time
	Source   string
	Rows     int
}
