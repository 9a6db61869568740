package components

import (
	"fmt"

	"github.com/Veraticus/dossier/internal/model"
	"github.com/Veraticus/dossier/internal/tui/themes"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AccountDetailModel shows the records behind one account.
type AccountDetailModel struct {
	theme      themes.Theme
	account    model.AccountSummary
	records    []model.DetailRecord
	table      table.Model
	dateFormat string
	width      int
}

// NewAccountDetail creates an empty detail view. Dates are shown with dateFormat.
func NewAccountDetail(theme themes.Theme, dateFormat string) AccountDetailModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Date", Width: 10},
			{Title: "Plan", Width: 10},
			{Title: "Payer", Width: 24},
			{Title: "Invoice", Width: 14},
			{Title: "Amount", Width: 12},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true)
	s.Selected = theme.Highlighted
	t.SetStyles(s)

	return AccountDetailModel{theme: theme, table: t, dateFormat: dateFormat, width: 80}
}

// SetRecords shows records for account.
func (m *AccountDetailModel) SetRecords(account model.AccountSummary, records []model.DetailRecord) {
	m.account = account
	m.records = records

	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		amount := "-"
		if r.Amount.Valid {
			amount = r.Amount.Decimal.StringFixed(2)
		}
		date := r.DateString(m.dateFormat)
		if date == "" {
			date = "-"
		}
		rows = append(rows, table.Row{date, r.PlanCode, truncate(r.Payer, 24), r.Invoice, amount})
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

// Account returns the account being shown.
func (m AccountDetailModel) Account() model.AccountSummary {
	return m.account
}

// Update scrolls the record table.
func (m AccountDetailModel) Update(msg tea.Msg) (AccountDetailModel, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the detail panel.
func (m AccountDetailModel) View() string {
	title := m.theme.Title.Render("Account " + m.account.AccountKey)
	subtitle := m.theme.Subtitle.Render(fmt.Sprintf("%d services, total %s",
		m.account.ServiceCount, m.account.TotalAmount.StringFixed(2)))

	return m.theme.BorderedBox.Render(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, m.table.View()))
}

// Resize updates the component size.
func (m *AccountDetailModel) Resize(width, height int) {
	m.width = width
	m.table.SetHeight(max(1, height-4))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
