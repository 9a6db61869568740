package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/model"
	"github.com/Veraticus/dossier/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultDateFormat formats dates in rendered documents.
const DefaultDateFormat = "02/01/2006"

// RenderContext is the data a template is executed against. It is built per
// document and discarded after rendering.
type RenderContext struct {
	TotalAmount decimal.Decimal
	Account     string
	Date        string // Generation date
	Total       string // TotalAmount with two decimals
	Records     []model.DetailRecord
	Rows        []map[string]string // One map per record, keyed by RowFields
	Services    int
}

// Document is a rendered document held in memory.
type Document struct {
	AccountKey string
	FileName   string
	Content    []byte
}

// Outcome is the result of generating one account's document. Err is nil
// on success, in which case Path names the written file.
type Outcome struct {
	Err        error
	AccountKey string
	Path       string
}

// OK reports whether the document was written.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// ProgressFunc is called after each account in a batch.
type ProgressFunc func(done, total int, accountKey string)

// Generator renders and writes account documents.
type Generator struct {
	details    service.DetailsSource
	now        func() time.Time
	outputDir  string
	dateFormat string
}

// NewGenerator creates a generator that reads records from details and writes
// into outputDir. An empty dateFormat selects DefaultDateFormat.
func NewGenerator(details service.DetailsSource, outputDir, dateFormat string) *Generator {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	return &Generator{
		details:    details,
		now:        time.Now,
		outputDir:  outputDir,
		dateFormat: dateFormat,
	}
}

// OutputDir returns the directory documents are written to.
func (g *Generator) OutputDir() string {
	return g.outputDir
}

// Generate renders the document for one account into memory. An invalid
// template fails before any records are read.
func (g *Generator) Generate(ctx context.Context, account model.AccountSummary, tmpl *Template) (Document, error) {
	if !tmpl.valid() {
		return Document{}, &common.TemplateError{Reason: "no template loaded"}
	}

	records, err := g.details.DetailsFor(ctx, account.AccountKey)
	if err != nil {
		return Document{}, fmt.Errorf("failed to load details for %s: %w", account.AccountKey, err)
	}

	rc := g.renderContext(account, records)

	var buf bytes.Buffer
	if err := tmpl.tmpl.Execute(&buf, rc); err != nil {
		return Document{}, fmt.Errorf("failed to render %s: %w", account.AccountKey, err)
	}

	return Document{
		AccountKey: account.AccountKey,
		FileName:   FileName(account.AccountKey, tmpl.Extension()),
		Content:    buf.Bytes(),
	}, nil
}

func (g *Generator) renderContext(account model.AccountSummary, records []model.DetailRecord) RenderContext {
	rows := make([]map[string]string, len(records))
	for i, r := range records {
		amount := ""
		if r.Amount.Valid {
			amount = r.Amount.Decimal.StringFixed(2)
		}
		rows[i] = map[string]string{
			"plan":    r.PlanCode,
			"payer":   r.Payer,
			"invoice": r.Invoice,
			"amount":  amount,
			"date":    r.DateString(g.dateFormat),
		}
	}

	return RenderContext{
		Account:     account.AccountKey,
		Date:        g.now().Format(g.dateFormat),
		TotalAmount: account.TotalAmount,
		Total:       account.TotalAmount.StringFixed(2),
		Services:    account.ServiceCount,
		Records:     records,
		Rows:        rows,
	}
}

// GenerateAll writes one document per account, one account at a time. A
// failing account is recorded in its Outcome and the batch continues. The
// only batch-level errors are an invalid template and an output directory
// that cannot be created; both are reported before any account is processed.
func (g *Generator) GenerateAll(ctx context.Context, accounts []model.AccountSummary, tmpl *Template, progress ProgressFunc) ([]Outcome, error) {
	if !tmpl.valid() {
		return nil, &common.TemplateError{Reason: "no template loaded"}
	}

	if err := os.MkdirAll(g.outputDir, 0o750); err != nil {
		return nil, &common.IOError{Source: g.outputDir, Err: err}
	}

	outcomes := make([]Outcome, 0, len(accounts))
	for i, account := range accounts {
		outcome := g.generateOne(ctx, account, tmpl)
		if outcome.OK() {
			slog.Debug("Generated document", "account", account.AccountKey, "path", outcome.Path)
		} else {
			slog.Warn("Document generation failed", "account", account.AccountKey, "error", outcome.Err)
		}
		outcomes = append(outcomes, outcome)

		if progress != nil {
			progress(i+1, len(accounts), account.AccountKey)
		}
	}

	succeeded, failed := Summarize(outcomes)
	slog.Info("Export finished",
		"succeeded", len(succeeded),
		"failed", len(failed),
		"output_dir", g.outputDir)

	return outcomes, nil
}

func (g *Generator) generateOne(ctx context.Context, account model.AccountSummary, tmpl *Template) Outcome {
	doc, err := g.Generate(ctx, account, tmpl)
	if err != nil {
		return Outcome{AccountKey: account.AccountKey, Err: err}
	}

	path := filepath.Join(g.outputDir, doc.FileName)
	if err := writeFileAtomic(path, doc.Content); err != nil {
		return Outcome{AccountKey: account.AccountKey, Path: path, Err: err}
	}
	return Outcome{AccountKey: account.AccountKey, Path: path}
}

// Summarize splits outcomes into successes and failures, keeping order.
func Summarize(outcomes []Outcome) (succeeded, failed []Outcome) {
	for _, o := range outcomes {
		if o.OK() {
			succeeded = append(succeeded, o)
		} else {
			failed = append(failed, o)
		}
	}
	return succeeded, failed
}

// FileName derives the output file name for an account. Keys that are
// already safe file names are used as is; others are sanitized and suffixed
// with a short hash of the key so distinct keys never share a file.
//
// Keys with lowercase letters are suffixed too: two keys that differ only in
// case would otherwise share a file on case-insensitive filesystems, and at
// least one of them has a lowercase letter.
func FileName(accountKey, ext string) string {
	safe := sanitize(accountKey)
	if safe != accountKey || strings.ToUpper(accountKey) != accountKey {
		sum := sha256.Sum256([]byte(accountKey))
		safe += "-" + hex.EncodeToString(sum[:4])
	}
	return safe + ext
}

func sanitize(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.TrimLeft(b.String(), ".")
	if s == "" {
		s = "account"
	}
	return s
}

// writeFileAtomic writes data to a temporary file beside path and renames it
// into place, so path never holds a partial document.
func writeFileAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+uuid.New().String()+".tmp")

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move document into place: %w", err)
	}
	return nil
}
