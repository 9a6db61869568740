package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/dossier/internal/document"
	"github.com/Veraticus/dossier/internal/ingest"
	"github.com/Veraticus/dossier/internal/model"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func flush(tw *tabwriter.Writer) {
	if err := tw.Flush(); err != nil {
		slog.Error("failed to flush table writer", "error", err)
	}
}

// WriteAccounts prints one row per account summary. selected may be nil.
func WriteAccounts(w io.Writer, accounts []model.AccountSummary, selected func(string) bool) error {
	if len(accounts) == 0 {
		_, err := fmt.Fprintln(w, InfoStyle.Render("No accounts to show. Load a source with 'dossier load'."))
		return err
	}

	tw := newTable(w)
	defer flush(tw)

	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		HeaderStyle.Render(" "),
		HeaderStyle.Render("Account"),
		HeaderStyle.Render("Services"),
		HeaderStyle.Render("Total"),
		HeaderStyle.Render("Payers")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 3),
		strings.Repeat("─", 20),
		strings.Repeat("─", 8),
		strings.Repeat("─", 12),
		strings.Repeat("─", 20)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	for _, a := range accounts {
		mark := "[ ]"
		if selected != nil && selected(a.AccountKey) {
			mark = "[x]"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			mark,
			a.AccountKey,
			a.ServiceCount,
			a.TotalAmount.StringFixed(2),
			a.Payers); err != nil {
			return fmt.Errorf("failed to write account row: %w", err)
		}
	}
	return nil
}

// WriteDetails prints the detail records of one account in relation order.
func WriteDetails(w io.Writer, accountKey string, records []model.DetailRecord, dateFormat string) error {
	if _, err := fmt.Fprintln(w, FormatTitle("Account "+accountKey)); err != nil {
		return err
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, InfoStyle.Render("No records for this account."))
		return err
	}

	tw := newTable(w)
	defer flush(tw)

	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		HeaderStyle.Render("Date"),
		HeaderStyle.Render("Plan"),
		HeaderStyle.Render("Payer"),
		HeaderStyle.Render("Invoice"),
		HeaderStyle.Render("Amount")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		amount := ""
		if r.Amount.Valid {
			amount = r.Amount.Decimal.StringFixed(2)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.DateString(dateFormat),
			r.PlanCode,
			r.Payer,
			r.Invoice,
			amount); err != nil {
			return fmt.Errorf("failed to write record row: %w", err)
		}
	}
	return nil
}

// WriteLoadResult summarizes an ingestion.
func WriteLoadResult(w io.Writer, result ingest.LoadResult, accounts int) error {
	lines := []string{
		FormatSuccess(fmt.Sprintf("Loaded %d records into %d accounts from %s",
			result.Rows, accounts, result.Source)),
	}
	if result.Skipped > 0 {
		lines = append(lines, SubtleStyle.Render("  "+strconv.Itoa(result.Skipped)+" blank or account-less rows skipped"))
	}
	if result.Warned > 0 {
		lines = append(lines, FormatWarning(fmt.Sprintf("%d cells could not be parsed and were stored as missing", result.Warned)))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// WriteReport prints the per-account outcome of an export.
func WriteReport(w io.Writer, outputDir string, succeeded, failed []document.Outcome) error {
	var b strings.Builder
	switch {
	case len(succeeded) == 0 && len(failed) == 0:
		b.WriteString(InfoStyle.Render("Nothing selected; no documents written."))
	default:
		b.WriteString(FormatSuccess(fmt.Sprintf("%d documents written to %s", len(succeeded), outputDir)))
	}
	for _, o := range failed {
		b.WriteString("\n")
		b.WriteString(FormatError(fmt.Sprintf("%s: %v", o.AccountKey, o.Err)))
	}
	_, err := fmt.Fprintln(w, b.String())
	return err
}
