// Package selection holds the operator's view of the account summaries: the
// sorted list, a free-text filter, and a per-account selection flag.
//
// A Model has a single owner and is not safe for concurrent use.
package selection

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/model"
)

// Model is the selection state over one set of account summaries.
type Model struct {
	selected  map[string]bool
	keys      map[string]struct{}
	filter    string
	summaries []model.AccountSummary
	sortMode  model.SortMode
}

// New creates a model over summaries with no filter, nothing selected and
// SortNone.
func New(summaries []model.AccountSummary) *Model {
	m := &Model{}
	m.Reset(summaries)
	return m
}

// Reset replaces the summary list after a reload. Every selection flag and the
// filter term are cleared; the sort mode is kept and reapplied.
func (m *Model) Reset(summaries []model.AccountSummary) {
	m.summaries = slices.Clone(summaries)
	m.keys = make(map[string]struct{}, len(summaries))
	for _, s := range m.summaries {
		m.keys[s.AccountKey] = struct{}{}
	}
	m.selected = make(map[string]bool, len(summaries))
	m.filter = ""
	m.sort()
}

// Summaries returns the full summary list in the current sort order.
func (m *Model) Summaries() []model.AccountSummary {
	return slices.Clone(m.summaries)
}

// Len returns the number of summaries, ignoring the filter.
func (m *Model) Len() int {
	return len(m.summaries)
}

// SetFilterTerm sets the case-insensitive substring matched against account keys.
func (m *Model) SetFilterTerm(term string) {
	m.filter = term
}

// FilterTerm returns the current filter term.
func (m *Model) FilterTerm() string {
	return m.filter
}

// SortMode returns the current sort mode.
func (m *Model) SortMode() model.SortMode {
	return m.sortMode
}

// CycleSortMode advances none -> services -> amount -> none and re-sorts the
// summary list. Ties keep their previous relative order.
func (m *Model) CycleSortMode() model.SortMode {
	m.sortMode = m.sortMode.Next()
	m.sort()
	return m.sortMode
}

func (m *Model) sort() {
	switch m.sortMode {
	case model.SortByServiceCount:
		slices.SortStableFunc(m.summaries, func(a, b model.AccountSummary) int {
			return cmp.Compare(b.ServiceCount, a.ServiceCount)
		})
	case model.SortByAmount:
		slices.SortStableFunc(m.summaries, func(a, b model.AccountSummary) int {
			return b.TotalAmount.Cmp(a.TotalAmount)
		})
	default:
		slices.SortStableFunc(m.summaries, func(a, b model.AccountSummary) int {
			return strings.Compare(a.AccountKey, b.AccountKey)
		})
	}
}

// Toggle flips the selection flag for key. A key seen for the first time
// becomes selected. Unknown keys return an UnknownAccountError and leave the
// state untouched.
func (m *Model) Toggle(key string) error {
	if _, ok := m.keys[key]; !ok {
		return &common.UnknownAccountError{AccountKey: key}
	}
	m.selected[key] = !m.selected[key]
	return nil
}

// IsSelected reports whether key is selected.
func (m *Model) IsSelected(key string) bool {
	return m.selected[key]
}

// SelectedAccounts returns every selected summary in the current sort order,
// whether or not it passes the filter.
func (m *Model) SelectedAccounts() []model.AccountSummary {
	var out []model.AccountSummary
	for _, s := range m.summaries {
		if m.selected[s.AccountKey] {
			out = append(out, s)
		}
	}
	return out
}

// SelectedCount returns the number of selected accounts.
func (m *Model) SelectedCount() int {
	n := 0
	for _, on := range m.selected {
		if on {
			n++
		}
	}
	return n
}

// Visible returns the summaries that match the filter, in sort order. It is
// recomputed on every call. Visible keys without a flag get an explicit false
// entry so the presentation can bind to them.
func (m *Model) Visible() []model.AccountSummary {
	term := strings.ToLower(m.filter)
	out := make([]model.AccountSummary, 0, len(m.summaries))
	for _, s := range m.summaries {
		if term != "" && !strings.Contains(strings.ToLower(s.AccountKey), term) {
			continue
		}
		if _, ok := m.selected[s.AccountKey]; !ok {
			m.selected[s.AccountKey] = false
		}
		out = append(out, s)
	}
	return out
}

// SelectVisible selects every account currently passing the filter.
func (m *Model) SelectVisible() {
	for _, s := range m.Visible() {
		m.selected[s.AccountKey] = true
	}
}

// ClearSelection deselects every account, visible or not.
func (m *Model) ClearSelection() {
	for key := range m.selected {
		m.selected[key] = false
	}
}
