package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/dossier/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestOpenSource(t *testing.T) {
	tests := []struct {
		path    string
		want    any
		wantErr bool
	}{
		{path: "billing.csv", want: &CSVSource{}},
		{path: "billing.TSV", want: &CSVSource{}},
		{path: "billing.xlsx", want: &XLSXSource{}},
		{path: "statement.qfx", want: &OFXSource{}},
		{path: "billing.pdf", wantErr: true},
		{path: "billing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			src, err := OpenSource(tt.path, Options{Columns: model.DefaultColumns()})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
			assert.Contains(t, src.Name(), tt.path)
		})
	}
}

func TestCSVSource_Read(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantHeader []string
		wantRows   int
	}{
		{
			name:       "comma",
			content:    "Account,Payer,Invoice,Amount,Date\n100,Ana,INV-1,10.00,2024-01-05\n",
			wantHeader: []string{"Account", "Payer", "Invoice", "Amount", "Date"},
			wantRows:   1,
		},
		{
			name:       "semicolon with byte order mark",
			content:    "\ufeffAccount;Payer;Invoice;Amount;Date\n100;Ana;INV-1;10,00;05/01/2024\n200;Rui;INV-2;5,50;06/01/2024\n",
			wantHeader: []string{"Account", "Payer", "Invoice", "Amount", "Date"},
			wantRows:   2,
		},
		{
			name:       "tab",
			content:    "Account\tPayer\n100\tAna\n",
			wantHeader: []string{"Account", "Payer"},
			wantRows:   1,
		},
		{
			name:    "empty",
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewCSVSource(writeFile(t, "data.csv", tt.content))
			table, err := src.Read(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, table.Header)
			assert.Len(t, table.Rows, tt.wantRows)
		})
	}
}

func TestCSVSource_QuotedFieldKeepsComma(t *testing.T) {
	src := NewCSVSource(writeFile(t, "data.csv", "Account,Payer\n100,\"Silva, Ana\"\n"))
	table, err := src.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Silva, Ana", table.Rows[0][1])
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"))
	_, err := src.Read(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestXLSXSource_Read(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billing.xlsx")

	f := excelize.NewFile()
	const sheet = "Billing"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))

	// Row 1 is left blank above the header.
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Plan", "Account", "Payer", "Invoice", "Amount", "Date"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"P1", "100", "Ana", "INV-1", 12.5, 45306}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"P2", "200", "Rui", "INV-2", 7, 45307}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	t.Run("named sheet", func(t *testing.T) {
		table, err := NewXLSXSource(path, sheet).Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Plan", "Account", "Payer", "Invoice", "Amount", "Date"}, table.Header)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "12.5", table.Rows[0][4])
		assert.Equal(t, "45306", table.Rows[0][5])
	})

	t.Run("first sheet by default", func(t *testing.T) {
		table, err := NewXLSXSource(path, "").Read(context.Background())
		require.NoError(t, err)
		assert.Len(t, table.Rows, 2)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		_, err := NewXLSXSource(path, "Nope").Read(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Nope")
	})
}

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestOFXSource_Read(t *testing.T) {
	src := NewOFXSource(writeFile(t, "statement.ofx", sampleOFX), model.DefaultColumns())

	table, err := src.Read(context.Background())
	require.NoError(t, err)

	c := model.DefaultColumns()
	assert.Equal(t, []string{c.Plan, c.Account, c.Payer, c.Invoice, c.Amount, c.Date}, table.Header)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, []string{"DEBIT", "1234567890", "STARBUCKS STORE #1234", "2024011501", "25.5000", "2024-01-15"}, table.Rows[0])
	// Check number replaces the FITID as invoice.
	assert.Equal(t, "1234", table.Rows[1][3])
	assert.Equal(t, "500.0000", table.Rows[1][4])
}

func TestOFXSource_Malformed(t *testing.T) {
	src := NewOFXSource(writeFile(t, "broken.ofx", "not an ofx file"), model.DefaultColumns())
	_, err := src.Read(context.Background())
	assert.Error(t, err)
}

func TestSheetsSource_Read(t *testing.T) {
	cfg := DefaultSheetsConfig()
	cfg.SpreadsheetID = "sheet-1"
	cfg.RetryDelay = 0

	t.Run("converts cells", func(t *testing.T) {
		src := &SheetsSource{config: cfg, fetch: func(_ context.Context, id, rng string) ([][]any, error) {
			assert.Equal(t, "sheet-1", id)
			assert.Equal(t, "A:Z", rng)
			return [][]any{
				{},
				{"Account", "Payer", "Amount", "Date"},
				{"100", "Ana", 12.5, float64(45306)},
				{"200", nil, true},
			}, nil
		}}

		table, err := src.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sheets:sheet-1!A:Z", src.Name())
		assert.Equal(t, []string{"Account", "Payer", "Amount", "Date"}, table.Header)
		assert.Equal(t, []string{"100", "Ana", "12.5", "45306"}, table.Rows[0])
		assert.Equal(t, []string{"200", "", "true"}, table.Rows[1])
	})

	t.Run("retries server errors", func(t *testing.T) {
		calls := 0
		src := &SheetsSource{config: cfg, fetch: func(context.Context, string, string) ([][]any, error) {
			calls++
			if calls < 2 {
				return nil, &googleapi.Error{Code: 503}
			}
			return [][]any{{"Account"}}, nil
		}}

		table, err := src.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, []string{"Account"}, table.Header)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		calls := 0
		src := &SheetsSource{config: cfg, fetch: func(context.Context, string, string) ([][]any, error) {
			calls++
			return nil, &googleapi.Error{Code: 404}
		}}

		_, err := src.Read(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestSheetsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SheetsConfig)
		wantErr bool
	}{
		{name: "no auth", mutate: func(c *SheetsConfig) { c.SpreadsheetID = "x" }, wantErr: true},
		{name: "service account", mutate: func(c *SheetsConfig) {
			c.SpreadsheetID = "x"
			c.ServiceAccountPath = "/tmp/sa.json"
		}},
		{name: "oauth", mutate: func(c *SheetsConfig) {
			c.SpreadsheetID = "x"
			c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "token"
		}},
		{name: "both", mutate: func(c *SheetsConfig) {
			c.SpreadsheetID = "x"
			c.ServiceAccountPath = "/tmp/sa.json"
			c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "token"
		}, wantErr: true},
		{name: "no spreadsheet", mutate: func(c *SheetsConfig) { c.ServiceAccountPath = "/tmp/sa.json" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSheetsConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	_, err := LoadToken(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	require.NoError(t, SaveToken(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
}
