package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/model"
	"github.com/Veraticus/dossier/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	err   error
	name  string
	table Table
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Read(context.Context) (Table, error) {
	return s.table, s.err
}

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var defaultHeader = []string{"Plan", "Account", "Payer", "Invoice", "Amount", "Date"}

func TestAdapter_Load(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	adapter := NewAdapter(store, model.DefaultColumns(), []string{"2006-01-02", "02/01/2006"})

	src := staticSource{name: "billing.csv", table: Table{
		Header: defaultHeader,
		Rows: [][]string{
			{"P1", "100", "Ana", "INV-1", "10.00", "2024-01-05"},
			{"P2", "100", "Ana", "INV-2", "15,00", "06/01/2024"},
			{"P1", "100", "Ana", "INV-3", "20", "2024-01-07"},
			{"P3", "200", "Rui", "INV-4", "10", "2024-01-08"},
			{"", "", "", "", "", ""},
			{"P3", "  ", "Nobody", "INV-5", "1", "2024-01-08"},
		},
	}}

	result, err := adapter.Load(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, LoadResult{Source: "billing.csv", Rows: 4, Skipped: 2}, result)

	summaries, err := store.Summarize(ctx)
	require.NoError(t, err)
	byKey := make(map[string]model.AccountSummary)
	for _, s := range summaries {
		byKey[s.AccountKey] = s
	}
	require.Len(t, byKey, 2)
	assert.Equal(t, 3, byKey["100"].ServiceCount)
	assert.True(t, decimal.NewFromInt(45).Equal(byKey["100"].TotalAmount))
	assert.Equal(t, 1, byKey["200"].ServiceCount)
	assert.True(t, decimal.NewFromInt(10).Equal(byKey["200"].TotalAmount))

	details, err := store.DetailsFor(ctx, "100")
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, "INV-3", details[0].Invoice)
	assert.Equal(t, "2024-01-06", details[1].DateString(model.DateLayout))

	info, err := store.LastLoad(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "billing.csv", info.Source)
	assert.Equal(t, 4, info.Rows)
}

func TestAdapter_LoadReplacesPreviousRelation(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	adapter := NewAdapter(store, model.DefaultColumns(), nil)

	first := staticSource{name: "a.csv", table: Table{Header: defaultHeader, Rows: [][]string{
		{"P1", "100", "Ana", "INV-1", "10", "2024-01-05"},
	}}}
	second := staticSource{name: "b.csv", table: Table{Header: defaultHeader, Rows: [][]string{
		{"P1", "300", "Eva", "INV-9", "3", "2024-02-05"},
	}}}

	_, err := adapter.Load(ctx, first)
	require.NoError(t, err)
	_, err = adapter.Load(ctx, second)
	require.NoError(t, err)

	summaries, err := store.Summarize(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "300", summaries[0].AccountKey)
}

func TestAdapter_LoadErrorsKeepPreviousRelation(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	adapter := NewAdapter(store, model.DefaultColumns(), nil)

	_, err := adapter.Load(ctx, staticSource{name: "good.csv", table: Table{Header: defaultHeader, Rows: [][]string{
		{"P1", "100", "Ana", "INV-1", "10", "2024-01-05"},
	}}})
	require.NoError(t, err)

	t.Run("missing columns", func(t *testing.T) {
		_, err := adapter.Load(ctx, staticSource{name: "bad.csv", table: Table{
			Header: []string{"Account", "Payer", "Valor"},
			Rows:   [][]string{{"999", "X", "1"}},
		}})
		require.ErrorIs(t, err, common.ErrSchema)

		var schemaErr *common.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, []string{"Invoice", "Amount", "Date"}, schemaErr.Missing)
	})

	t.Run("unreadable source", func(t *testing.T) {
		_, err := adapter.Load(ctx, staticSource{name: "gone.csv", err: errors.New("disk on fire")})
		require.ErrorIs(t, err, common.ErrIO)
		assert.Contains(t, err.Error(), "disk on fire")
	})

	count, err := store.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAdapter_HeaderMatching(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		adapter := NewAdapter(store, model.DefaultColumns(), nil)
		_, err := adapter.Load(ctx, staticSource{name: "ws.csv", table: Table{
			Header: []string{" Account ", "Payer", "Invoice ", "Amount", "Date"},
			Rows:   [][]string{{"100", "Ana", "INV-1", "1", "2024-01-01"}},
		}})
		require.NoError(t, err)
	})

	t.Run("case differences are not", func(t *testing.T) {
		adapter := NewAdapter(store, model.DefaultColumns(), nil)
		_, err := adapter.Load(ctx, staticSource{name: "case.csv", table: Table{
			Header: []string{"account", "Payer", "Invoice", "Amount", "Date"},
		}})
		assert.ErrorIs(t, err, common.ErrSchema)
	})

	t.Run("custom column names", func(t *testing.T) {
		cols := model.Columns{Account: "Conta", Payer: "Pagador", Invoice: "Fatura", Amount: "Valor", Date: "Data"}
		adapter := NewAdapter(store, cols, []string{"02/01/2006"})
		result, err := adapter.Load(ctx, staticSource{name: "pt.csv", table: Table{
			Header: []string{"Conta", "Pagador", "Fatura", "Valor", "Data"},
			Rows:   [][]string{{"100", "Ana", "F-1", "1.234,56", "31/01/2024"}},
		}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Rows)

		details, err := store.DetailsFor(ctx, "100")
		require.NoError(t, err)
		require.Len(t, details, 1)
		assert.Equal(t, "1234.56", details[0].Amount.Decimal.StringFixed(2))
		assert.Empty(t, details[0].PlanCode)
	})
}

func TestAdapter_UnparsableCellsBecomeMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	adapter := NewAdapter(store, model.DefaultColumns(), nil)

	result, err := adapter.Load(ctx, staticSource{name: "messy.csv", table: Table{
		Header: defaultHeader,
		Rows: [][]string{
			{"P1", "100", "Ana", "INV-1", "n/a", "someday"},
			{"P1", "100", "Ana", "INV-2", "", ""},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 1, result.Warned)

	details, err := store.DetailsFor(ctx, "100")
	require.NoError(t, err)
	for _, d := range details {
		assert.False(t, d.Amount.Valid)
		assert.Nil(t, d.Date)
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestAdapter_OutOfRangeAmountBecomesMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	adapter := NewAdapter(store, model.DefaultColumns(), nil)
	logs := captureLogs(t)

	result, err := adapter.Load(ctx, staticSource{name: "huge.csv", table: Table{
		Header: defaultHeader,
		Rows: [][]string{
			{"P1", "100", "Ana", "INV-1", "1000000000000000", "2024-01-05"},
			{"P1", "100", "Ana", "INV-2", "1", "2024-01-06"},
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 1, result.Warned)
	assert.Contains(t, logs.String(), "Out of range amount treated as missing")

	summaries, err := store.Summarize(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].ServiceCount)
	assert.Equal(t, "1.00", summaries[0].TotalAmount.StringFixed(2))

	details, err := store.DetailsFor(ctx, "100")
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.False(t, details[1].Amount.Valid)
}

func TestAdapter_ExtraDecimalsAreRoundedAndLogged(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	adapter := NewAdapter(store, model.DefaultColumns(), nil)
	logs := captureLogs(t)

	result, err := adapter.Load(ctx, staticSource{name: "fine.csv", table: Table{
		Header: defaultHeader,
		Rows: [][]string{
			{"P1", "100", "Ana", "INV-1", "1.123456", "2024-01-05"},
			{"P1", "200", "Rui", "INV-2", "2.50000", "2024-01-06"},
		},
	}})
	require.NoError(t, err)
	assert.Zero(t, result.Warned)
	assert.Contains(t, logs.String(), "Amount rounded")
	assert.Contains(t, logs.String(), "stored=1.1235")
	assert.Equal(t, 1, strings.Count(logs.String(), "Amount rounded"))

	details, err := store.DetailsFor(ctx, "100")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "1.1235", details[0].Amount.Decimal.String())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw   string
		want  string
		valid bool
		ok    bool
	}{
		{raw: "10", want: "10", valid: true, ok: true},
		{raw: "10.50", want: "10.5", valid: true, ok: true},
		{raw: "10,50", want: "10.5", valid: true, ok: true},
		{raw: "1,234", want: "1234", valid: true, ok: true},
		{raw: "1,234.56", want: "1234.56", valid: true, ok: true},
		{raw: "1.234,56", want: "1234.56", valid: true, ok: true},
		{raw: "1,234,567", want: "1234567", valid: true, ok: true},
		{raw: "$ 99.99", want: "99.99", valid: true, ok: true},
		{raw: "€12,00", want: "12", valid: true, ok: true},
		{raw: "(5.00)", want: "-5", valid: true, ok: true},
		{raw: "0.1", want: "0.1", valid: true, ok: true},
		{raw: "", ok: true},
		{raw: "   ", ok: true},
		{raw: "abc"},
		{raw: "12abc"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseAmount(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, got.Decimal.String())
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	layouts := []string{"2006-01-02", "02/01/2006"}
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "2024-03-01", want: "2024-03-01", ok: true},
		{raw: "01/03/2024", want: "2024-03-01", ok: true},
		{raw: "45352", want: "2024-03-01", ok: true},
		{raw: "", ok: true},
		{raw: "March first"},
		{raw: "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseDate(tt.raw, layouts)
			assert.Equal(t, tt.ok, ok)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format(model.DateLayout))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
