package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/dossier/internal/document"
	"github.com/Veraticus/dossier/internal/ingest"
	"github.com/Veraticus/dossier/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAccounts(t *testing.T) {
	accounts := []model.AccountSummary{
		{AccountKey: "100", ServiceCount: 3, TotalAmount: decimal.RequireFromString("45"), Payers: "A, B"},
		{AccountKey: "200", ServiceCount: 1, TotalAmount: decimal.RequireFromString("10.5"), Payers: "C"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts, func(key string) bool { return key == "200" }))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Account")
	assert.Contains(t, lines[2], "[ ]")
	assert.Contains(t, lines[2], "45.00")
	assert.Contains(t, lines[3], "[x]")
	assert.Contains(t, lines[3], "10.50")
}

func TestWriteAccounts_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, nil, nil))
	assert.Contains(t, buf.String(), "No accounts to show")
}

func TestWriteDetails(t *testing.T) {
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	records := []model.DetailRecord{
		{AccountKey: "100", PlanCode: "P1", Payer: "A", Invoice: "I1", Amount: decimal.NewNullDecimal(decimal.RequireFromString("10")), Date: &d},
		{AccountKey: "100", PlanCode: "P2", Payer: "B", Invoice: "I2"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDetails(&buf, "100", records, "02/01/2006"))

	out := buf.String()
	assert.Contains(t, out, "Account 100")
	assert.Contains(t, out, "05/01/2024")
	assert.Contains(t, out, "10.00")
	assert.Contains(t, out, "I2")
}

func TestWriteLoadResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLoadResult(&buf, ingest.LoadResult{Source: "billing.csv", Rows: 4, Skipped: 2, Warned: 1}, 2))

	out := buf.String()
	assert.Contains(t, out, "Loaded 4 records into 2 accounts from billing.csv")
	assert.Contains(t, out, "2 blank or account-less rows skipped")
	assert.Contains(t, out, "1 cells could not be parsed")
}

func TestWriteReport(t *testing.T) {
	tests := []struct {
		name      string
		succeeded []document.Outcome
		failed    []document.Outcome
		want      []string
	}{
		{
			name: "nothing selected",
			want: []string{"Nothing selected"},
		},
		{
			name:      "partial failure",
			succeeded: []document.Outcome{{AccountKey: "100", Path: "out/100.txt"}},
			failed:    []document.Outcome{{AccountKey: "200", Err: errors.New("disk full")}},
			want:      []string{"1 documents written to out", "200: disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteReport(&buf, "out", tt.succeeded, tt.failed))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestNewExportProgress(t *testing.T) {
	var buf bytes.Buffer
	bar, report := NewExportProgress(&buf, 2)

	report(1, 2, "100")
	report(2, 2, "200")

	assert.True(t, bar.IsFinished())
	assert.Contains(t, buf.String(), "2/2")
}

func TestBusyIndicator(t *testing.T) {
	buf := &syncBuffer{}
	b := NewBusyIndicator(buf)

	b.Busy(false, "")
	assert.Empty(t, buf.String())

	b.Busy(true, "Loading billing.csv")
	time.Sleep(250 * time.Millisecond)
	b.Busy(false, "")
	assert.Contains(t, buf.String(), "Loading billing.csv...")

	// Restartable after stopping.
	b.Busy(true, "Loading other.csv")
	b.Busy(false, "")
	assert.Contains(t, buf.String(), "Loading other.csv...")
}
