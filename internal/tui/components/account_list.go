// Package components holds the bubbletea widgets used by the account browser.
package components

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/dossier/internal/model"
	"github.com/Veraticus/dossier/internal/tui/themes"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AccountListModel renders account summaries as a table with a selection mark.
type AccountListModel struct {
	theme    themes.Theme
	accounts []model.AccountSummary
	table    table.Model
	width    int
	height   int
}

// NewAccountList creates an empty account list.
func NewAccountList(theme themes.Theme) AccountListModel {
	// Space and ctrl+d belong to selection, not paging.
	keys := table.DefaultKeyMap()
	keys.PageDown = key.NewBinding(key.WithKeys("f", "pgdown"), key.WithHelp("f/pgdn", "page down"))
	keys.HalfPageDown = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "½ page down"))

	t := table.New(
		table.WithFocused(true),
		table.WithHeight(20),
		table.WithKeyMap(keys),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(false)
	s.Selected = theme.Selected
	t.SetStyles(s)

	m := AccountListModel{
		theme:  theme,
		table:  t,
		width:  80,
		height: 24,
	}
	m.updateColumnWidths()
	return m
}

// SetAccounts replaces the rows. selected reports each account's flag.
// The cursor stays in range.
func (m *AccountListModel) SetAccounts(accounts []model.AccountSummary, selected func(string) bool) {
	m.accounts = accounts

	rows := make([]table.Row, 0, len(accounts))
	for _, a := range accounts {
		mark := "[ ]"
		if selected(a.AccountKey) {
			mark = "[x]"
		}
		rows = append(rows, table.Row{
			mark,
			a.AccountKey,
			strconv.Itoa(a.ServiceCount),
			a.TotalAmount.StringFixed(2),
			a.Payers,
		})
	}
	m.table.SetRows(rows)

	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
}

// Current returns the account under the cursor.
func (m AccountListModel) Current() (model.AccountSummary, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.accounts) {
		return model.AccountSummary{}, false
	}
	return m.accounts[c], true
}

// Cursor returns the cursor row.
func (m AccountListModel) Cursor() int {
	return m.table.Cursor()
}

// Len returns the number of rows.
func (m AccountListModel) Len() int {
	return len(m.accounts)
}

// Update handles navigation keys.
func (m AccountListModel) Update(msg tea.Msg) (AccountListModel, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the list.
func (m AccountListModel) View() string {
	if len(m.accounts) == 0 {
		return lipgloss.NewStyle().Foreground(m.theme.Muted).Render("No accounts to show.")
	}
	return m.table.View()
}

// Resize updates the component size.
func (m *AccountListModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(1, height))
	m.updateColumnWidths()
}

func (m *AccountListModel) updateColumnWidths() {
	availableWidth := max(60, m.width-4)

	m.table.SetColumns([]table.Column{
		{Title: "Sel", Width: 3},
		{Title: "Account", Width: max(14, int(float64(availableWidth)*0.32))},
		{Title: "Services", Width: 8},
		{Title: "Total", Width: max(10, int(float64(availableWidth)*0.15))},
		{Title: "Payers", Width: max(12, availableWidth-3-8-int(float64(availableWidth)*0.47)-10)},
	})
}

// Summary returns a one-line description of the list contents.
func Summary(visible, total, selected int) string {
	if visible == total {
		return fmt.Sprintf("%d accounts, %d selected", total, selected)
	}
	return fmt.Sprintf("%d of %d accounts, %d selected", visible, total, selected)
}
