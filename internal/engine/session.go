// Package engine ties the record relation, the selection model and the
// document generator into one operator session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/document"
	"github.com/Veraticus/dossier/internal/ingest"
	"github.com/Veraticus/dossier/internal/model"
	"github.com/Veraticus/dossier/internal/selection"
	"github.com/Veraticus/dossier/internal/service"
)

// ErrNoSource is returned by Reload before anything was loaded in the session.
var ErrNoSource = errors.New("no source loaded in this session")

// Loader replaces the relation with the contents of a source.
type Loader interface {
	Load(ctx context.Context, src ingest.Source) (ingest.LoadResult, error)
}

// Report is the result of an export, split by outcome.
type Report struct {
	Succeeded []document.Outcome
	Failed    []document.Outcome
}

// Total returns the number of accounts processed.
func (r Report) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// Session is the single owner of an operator's state: the relation handle,
// the account summaries with their selection flags, and the generator.
//
// Session is not safe for concurrent use. Load and Export refuse to start
// while another long operation is marked busy, which catches a presentation
// layer that forgot to disable its triggers.
type Session struct {
	relation   service.Relation
	loader     Loader
	generator  *document.Generator
	selection  *selection.Model
	progress   service.Progress
	lastSource ingest.Source
	busyMsg    string
	busy       bool
}

// NewSession creates a session with an empty summary list. Call Refresh to
// pick up records already in the relation.
func NewSession(relation service.Relation, loader Loader, generator *document.Generator) *Session {
	return &Session{
		relation:  relation,
		loader:    loader,
		generator: generator,
		selection: selection.New(nil),
		progress:  service.NopProgress{},
	}
}

// SetProgress routes busy notifications to p.
func (s *Session) SetProgress(p service.Progress) {
	if p == nil {
		p = service.NopProgress{}
	}
	s.progress = p
}

// Busy reports whether a long operation is running, and its message.
func (s *Session) Busy() (bool, string) {
	return s.busy, s.busyMsg
}

func (s *Session) begin(msg string) error {
	if s.busy {
		return fmt.Errorf("%w: %s", common.ErrBusy, s.busyMsg)
	}
	s.busy, s.busyMsg = true, msg
	s.progress.Busy(true, msg)
	return nil
}

func (s *Session) end() {
	s.busy, s.busyMsg = false, ""
	s.progress.Busy(false, "")
}

// Load replaces the relation with src and resets the selection state to the
// new summaries. When the load itself fails the previous relation and
// selection are kept. When the relation was replaced but the summaries cannot
// be read back, the selection is emptied so it never names accounts from the
// old relation; Refresh or Reload recovers it.
func (s *Session) Load(ctx context.Context, src ingest.Source) (ingest.LoadResult, error) {
	if err := s.begin("Loading " + src.Name()); err != nil {
		return ingest.LoadResult{}, err
	}
	defer s.end()

	result, err := s.loader.Load(ctx, src)
	if err != nil {
		return result, err
	}
	s.lastSource = src

	if err := s.refresh(ctx); err != nil {
		s.selection.Reset(nil)
		slog.Warn("Cleared account list after failed refresh", "source", src.Name(), "error", err)
		return result, err
	}
	return result, nil
}

// Reload loads the most recent source again.
func (s *Session) Reload(ctx context.Context) (ingest.LoadResult, error) {
	if s.lastSource == nil {
		return ingest.LoadResult{}, ErrNoSource
	}
	return s.Load(ctx, s.lastSource)
}

// Refresh re-reads the summaries from the relation and resets the selection.
func (s *Session) Refresh(ctx context.Context) error {
	if s.busy {
		return fmt.Errorf("%w: %s", common.ErrBusy, s.busyMsg)
	}
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) error {
	summaries, err := s.relation.Summarize(ctx)
	if err != nil {
		return fmt.Errorf("failed to summarize records: %w", err)
	}
	s.selection.Reset(summaries)
	slog.Debug("Refreshed account summaries", "accounts", len(summaries))
	return nil
}

// LastLoad describes the data currently in the relation, or nil.
func (s *Session) LastLoad(ctx context.Context) (*model.LoadInfo, error) {
	return s.relation.LastLoad(ctx)
}

// Details returns the records behind one account, newest first.
func (s *Session) Details(ctx context.Context, accountKey string) ([]model.DetailRecord, error) {
	return s.relation.DetailsFor(ctx, accountKey)
}

// SetFilter sets the account key filter.
func (s *Session) SetFilter(term string) {
	s.selection.SetFilterTerm(term)
}

// FilterTerm returns the current filter.
func (s *Session) FilterTerm() string {
	return s.selection.FilterTerm()
}

// CycleSort advances the sort mode.
func (s *Session) CycleSort() model.SortMode {
	return s.selection.CycleSortMode()
}

// SetSortMode cycles until mode is current.
func (s *Session) SetSortMode(mode model.SortMode) {
	for range 3 {
		if s.selection.SortMode() == mode {
			return
		}
		s.selection.CycleSortMode()
	}
}

// SortMode returns the current sort mode.
func (s *Session) SortMode() model.SortMode {
	return s.selection.SortMode()
}

// Toggle flips the selection of one account.
func (s *Session) Toggle(accountKey string) error {
	return s.selection.Toggle(accountKey)
}

// IsSelected reports whether an account is selected.
func (s *Session) IsSelected(accountKey string) bool {
	return s.selection.IsSelected(accountKey)
}

// SelectVisible selects every account passing the filter.
func (s *Session) SelectVisible() {
	s.selection.SelectVisible()
}

// ClearSelection deselects everything.
func (s *Session) ClearSelection() {
	s.selection.ClearSelection()
}

// Visible returns the filtered, sorted accounts.
func (s *Session) Visible() []model.AccountSummary {
	return s.selection.Visible()
}

// Selected returns the selected accounts regardless of the filter.
func (s *Session) Selected() []model.AccountSummary {
	return s.selection.SelectedAccounts()
}

// AccountCount returns the number of accounts, ignoring the filter.
func (s *Session) AccountCount() int {
	return s.selection.Len()
}

// OutputDir returns where Export writes documents.
func (s *Session) OutputDir() string {
	return s.generator.OutputDir()
}

// Export generates a document for every selected account. An invalid
// template fails the whole export before any account is processed; other
// failures are reported per account in the Report.
func (s *Session) Export(ctx context.Context, tmpl *document.Template, progress document.ProgressFunc) (Report, error) {
	selected := s.Selected()
	if err := s.begin(fmt.Sprintf("Exporting %d documents", len(selected))); err != nil {
		return Report{}, err
	}
	defer s.end()

	outcomes, err := s.generator.GenerateAll(ctx, selected, tmpl, progress)
	if err != nil {
		return Report{}, err
	}

	var report Report
	report.Succeeded, report.Failed = document.Summarize(outcomes)
	return report, nil
}
