package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/dossier/internal/tui/components"
	"github.com/charmbracelet/lipgloss"
)

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	if m.state == StateDetails {
		body = m.detail.View()
	} else {
		body = m.list.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatus(),
		m.help.View(m.keymap),
	)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("dossier")

	parts := []string{
		components.Summary(m.list.Len(), m.header.total, m.header.selected),
		"sort: " + m.header.sortMode.String(),
	}
	if term := m.header.filter; term != "" && m.state != StateSearch {
		parts = append(parts, fmt.Sprintf("filter: %q", term))
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, m.theme.Subtitle.Render(strings.Join(parts, " | ")))
}

func (m Model) renderStatus() string {
	switch {
	case m.busy:
		return m.spinner.View() + " " + m.theme.StatusPending.Render(m.busyMsg)
	case m.state == StateSearch:
		return m.search.View()
	case m.lastError != nil:
		msg := m.theme.StatusError.Render("✗ " + m.lastError.Error())
		if isTemplateError(m.lastError) {
			msg += lipgloss.NewStyle().Foreground(m.theme.Muted).Render("  (nothing was exported)")
		}
		return msg
	case m.report != nil:
		return m.renderReport()
	case m.status != "":
		return m.theme.StatusInfo.Render(m.status)
	default:
		return ""
	}
}

func (m Model) renderReport() string {
	r := m.report
	summary := fmt.Sprintf("✓ %d documents written to %s", len(r.Succeeded), m.header.outputDir)
	if len(r.Failed) == 0 {
		return m.theme.StatusSuccess.Render(summary)
	}

	lines := []string{
		m.theme.StatusWarning.Render(fmt.Sprintf("%s, %d failed", summary, len(r.Failed))),
	}
	for _, f := range r.Failed {
		lines = append(lines, m.theme.StatusError.Render(fmt.Sprintf("  ✗ %s: %v", f.AccountKey, f.Err)))
	}
	return strings.Join(lines, "\n")
}
