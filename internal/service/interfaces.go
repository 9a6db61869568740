// Package service defines the interfaces shared by dossier's components.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/dossier/internal/model"
)

// Relation is the queryable store of detail records.
type Relation interface {
	// ReplaceRecords swaps the entire relation for records in one transaction.
	ReplaceRecords(ctx context.Context, source string, records []model.DetailRecord) error
	// LastLoad describes the most recent ReplaceRecords call, or returns nil when none happened.
	LastLoad(ctx context.Context) (*model.LoadInfo, error)
	// Summarize groups every record by account key. Order is unspecified.
	Summarize(ctx context.Context) ([]model.AccountSummary, error)
	// DetailsFor returns an account's records, newest date first, ties in insertion order.
	DetailsFor(ctx context.Context, accountKey string) ([]model.DetailRecord, error)
	RecordCount(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// DetailsSource is the read side the document generator needs.
type DetailsSource interface {
	DetailsFor(ctx context.Context, accountKey string) ([]model.DetailRecord, error)
}

// Progress receives busy/idle notifications from long-running operations.
type Progress interface {
	Busy(busy bool, message string)
}

// NopProgress discards progress notifications.
type NopProgress struct{}

// Busy implements Progress.
func (NopProgress) Busy(bool, string) {}

// RetryOptions configures retry behavior for external API calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
