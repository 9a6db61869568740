package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"regexp"
	"strings"

	"github.com/Veraticus/dossier/internal/model"
	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// OFXSource turns the statement lines of an OFX/QFX download into billing
// rows: the statement account becomes the account key, the payee the payer,
// the FITID (or check number) the invoice and the transaction type the plan code.
type OFXSource struct {
	path    string
	columns model.Columns
}

// NewOFXSource creates a source for the OFX file at path. columns names the
// headers of the produced table and must match the adapter's configuration.
func NewOFXSource(path string, columns model.Columns) *OFXSource {
	return &OFXSource{path: path, columns: columns.WithDefaults()}
}

// Name implements Source.
func (s *OFXSource) Name() string {
	return s.path
}

// Read implements Source.
func (s *OFXSource) Read(ctx context.Context) (Table, error) {
	f, err := os.Open(s.path) // #nosec G304
	if err != nil {
		return Table{}, err
	}
	defer func() { _ = f.Close() }()

	return s.parse(ctx, f)
}

func (s *OFXSource) parse(_ context.Context, r io.Reader) (Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	c := s.columns
	table := Table{Header: []string{c.Plan, c.Account, c.Payer, c.Invoice, c.Amount, c.Date}}
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			bankStmts++
			table.Rows = appendStatement(table.Rows, string(stmt.BankAcctFrom.AcctID), stmt.BankTranList.Transactions)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			ccStmts++
			table.Rows = appendStatement(table.Rows, string(stmt.CCAcctFrom.AcctID), stmt.BankTranList.Transactions)
		}
	}

	slog.Debug("Parsed OFX file",
		"path", s.path,
		"rows", len(table.Rows),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return table, nil
}

func appendStatement(rows [][]string, accountID string, txns []ofxgo.Transaction) [][]string {
	for _, t := range txns {
		invoice := string(t.FiTID)
		if t.CheckNum != "" {
			invoice = string(t.CheckNum)
		}

		rows = append(rows, []string{
			t.TrnType.String(),
			accountID,
			payeeName(t),
			invoice,
			// OFX signs debits negative; billing amounts are magnitudes.
			new(big.Rat).Abs(&t.TrnAmt.Rat).FloatString(4),
			t.DtPosted.Format(model.DateLayout),
		})
	}
	return rows
}

// preprocessOFX fixes common formatting issues in bank-exported OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	// SGML-style files sometimes drop the closing bracket of a bare tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// payeeName prefers the PAYEE aggregate, then NAME, then MEMO for generic names.
func payeeName(t ofxgo.Transaction) string {
	if t.Payee != nil && t.Payee.Name != "" {
		return strings.TrimSpace(string(t.Payee.Name))
	}

	name := strings.TrimSpace(string(t.Name))
	if t.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(t.Memo))
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "", "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
