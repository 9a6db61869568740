package common

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/Veraticus/dossier/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrors_MatchSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		name     string
		contains string
	}{
		{
			name:     "schema",
			err:      &SchemaError{Source: "billing.xlsx", Missing: []string{"Account", "Date"}},
			sentinel: ErrSchema,
			contains: "Account, Date",
		},
		{
			name:     "io",
			err:      &IOError{Source: "billing.csv", Err: fs.ErrNotExist},
			sentinel: ErrIO,
			contains: "billing.csv",
		},
		{
			name:     "unknown account",
			err:      &UnknownAccountError{AccountKey: "999"},
			sentinel: ErrUnknownAccount,
			contains: `"999"`,
		},
		{
			name:     "template",
			err:      &TemplateError{Path: "t.txt", Reason: "missing placeholder .Total"},
			sentinel: ErrTemplate,
			contains: ".Total",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}

func TestIOError_UnwrapsCause(t *testing.T) {
	err := &IOError{Source: "x", Err: fs.ErrPermission}
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestWithRetry(t *testing.T) {
	opts := service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return &RetryableError{Err: errors.New("503"), Retryable: true}
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent failure", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func(context.Context) error {
			calls++
			return errors.New("404")
		}, opts)
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		err := WithRetry(context.Background(), func(context.Context) error {
			return ErrRateLimit
		}, opts)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, ErrRateLimit)
	})
}

func TestParseLevel(t *testing.T) {
	_, err := ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())
}
