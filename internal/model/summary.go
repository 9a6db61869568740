package model

import "github.com/shopspring/decimal"

// AccountSummary aggregates every detail record that shares an account key.
type AccountSummary struct {
	TotalAmount  decimal.Decimal
	AccountKey   string
	PlanCodes    string // Diagnostic only
	Payers       string // Diagnostic only
	ServiceCount int
}

// SortMode orders the account list.
type SortMode int

// Sort modes, in the order they cycle.
const (
	SortNone SortMode = iota
	SortByServiceCount
	SortByAmount
)

// Next returns the mode that follows m, wrapping back to SortNone.
func (m SortMode) Next() SortMode {
	switch m {
	case SortNone:
		return SortByServiceCount
	case SortByServiceCount:
		return SortByAmount
	default:
		return SortNone
	}
}

func (m SortMode) String() string {
	switch m {
	case SortByServiceCount:
		return "services"
	case SortByAmount:
		return "amount"
	default:
		return "none"
	}
}

// ParseSortMode converts a flag value into a SortMode.
func ParseSortMode(s string) (SortMode, bool) {
	switch s {
	case "", "none", "key":
		return SortNone, true
	case "services", "count":
		return SortByServiceCount, true
	case "amount", "total":
		return SortByAmount, true
	default:
		return SortNone, false
	}
}
