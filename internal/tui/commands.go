package tui

import (
	"github.com/Veraticus/dossier/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// The commands below run on bubbletea's goroutines. The model marks itself
// busy before returning one and does not touch the session until the
// matching result message arrives.

func (m Model) refreshCmd() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: s.Refresh(ctx)}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		result, err := s.Reload(ctx)
		return loadedMsg{result: result, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	s, ctx, tmpl := m.session, m.ctx, m.config.Template
	return func() tea.Msg {
		report, err := s.Export(ctx, tmpl, nil)
		return exportedMsg{report: report, err: err}
	}
}

func (m Model) detailsCmd(account model.AccountSummary) tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		records, err := s.Details(ctx, account.AccountKey)
		return detailsLoadedMsg{account: account, records: records, err: err}
	}
}
