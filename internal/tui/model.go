// Package tui is the interactive account browser: a filtered, sortable
// account list with per-account selection and export.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/engine"
	"github.com/Veraticus/dossier/internal/model"
	"github.com/Veraticus/dossier/internal/tui/components"
	"github.com/Veraticus/dossier/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// State represents the current screen of the TUI.
type State int

const (
	StateList State = iota
	StateSearch
	StateDetails
)

// Model holds the main TUI state.
type Model struct {
	ctx       context.Context
	lastError error
	session   *engine.Session
	report    *engine.Report
	theme     themes.Theme
	config    Config
	header    headerInfo
	status    string
	busyMsg   string
	keymap    KeyMap
	list      components.AccountListModel
	detail    components.AccountDetailModel
	search    textinput.Model
	help      help.Model
	spinner   spinner.Model
	width     int
	height    int
	state     State
	busy      bool
	quitting  bool
}

func newModel(ctx context.Context, session *engine.Session, cfg Config) Model {
	search := textinput.New()
	search.Placeholder = "account key..."
	search.Prompt = "/ "
	search.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sp.Style.Foreground(cfg.Theme.Primary)

	m := Model{
		ctx:     ctx,
		session: session,
		config:  cfg,
		theme:   cfg.Theme,
		keymap:  DefaultKeyMap(),
		list:    components.NewAccountList(cfg.Theme),
		detail:  components.NewAccountDetail(cfg.Theme, cfg.DateFormat),
		search:  search,
		help:    help.New(),
		spinner: sp,
		width:   cfg.Width,
		height:  cfg.Height,
		state:   StateList,
		busy:    true,
		busyMsg: "Reading accounts",
	}
	m.handleResize()
	return m
}

// Init reads the accounts already in the relation.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.spinner.Tick)
}

func (m *Model) startBusy(msg string) tea.Cmd {
	m.busy = true
	m.busyMsg = msg
	m.lastError = nil
	m.status = ""
	return m.spinner.Tick
}

func (m *Model) stopBusy() {
	m.busy = false
	m.busyMsg = ""
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.handleResize()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshedMsg:
		m.stopBusy()
		m.lastError = msg.err
		m.syncList()
		return m, nil

	case loadedMsg:
		m.stopBusy()
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.report = nil
		m.status = fmt.Sprintf("Loaded %d records from %s", msg.result.Rows, msg.result.Source)
		if msg.result.Skipped > 0 {
			m.status += fmt.Sprintf(" (%d rows skipped)", msg.result.Skipped)
		}
		m.syncList()
		return m, nil

	case exportedMsg:
		m.stopBusy()
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		report := msg.report
		m.report = &report
		return m, nil

	case detailsLoadedMsg:
		m.stopBusy()
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.detail.SetRecords(msg.account, msg.records)
		m.state = StateDetails
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		m.quitting = true
		return m, tea.Quit
	}

	// Triggers stay disabled until the running operation reports back.
	if m.busy {
		return m, nil
	}

	switch m.state {
	case StateSearch:
		return m.handleSearchKey(msg)
	case StateDetails:
		return m.handleDetailsKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Toggle):
		if account, ok := m.list.Current(); ok {
			if err := m.session.Toggle(account.AccountKey); err != nil {
				m.lastError = err
			}
			m.syncList()
		}
		return m, nil

	case key.Matches(msg, m.keymap.Sort):
		mode := m.session.CycleSort()
		m.status = "Sorted by " + mode.String()
		m.syncList()
		return m, nil

	case key.Matches(msg, m.keymap.Search):
		m.state = StateSearch
		m.search.SetValue(m.session.FilterTerm())
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, m.keymap.SelectAll):
		m.session.SelectVisible()
		m.syncList()
		return m, nil

	case key.Matches(msg, m.keymap.DeselectAll):
		m.session.ClearSelection()
		m.syncList()
		return m, nil

	case key.Matches(msg, m.keymap.Export):
		return m.startExport()

	case key.Matches(msg, m.keymap.Reload):
		busy := m.startBusy("Reloading source")
		return m, tea.Batch(busy, m.reloadCmd())

	case key.Matches(msg, m.keymap.Details):
		account, ok := m.list.Current()
		if !ok {
			return m, nil
		}
		busy := m.startBusy("Reading " + account.AccountKey)
		return m, tea.Batch(busy, m.detailsCmd(account))

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.handleResize()
		return m, nil

	case key.Matches(msg, m.keymap.Back):
		if m.session.FilterTerm() != "" {
			m.session.SetFilter("")
			m.syncList()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) startExport() (tea.Model, tea.Cmd) {
	if m.config.Template == nil {
		m.lastError = &common.TemplateError{Reason: "no template configured; set template.path or pass --template"}
		return m, nil
	}
	selected := len(m.session.Selected())
	if selected == 0 {
		m.lastError = nil
		m.status = "Nothing selected"
		return m, nil
	}
	m.report = nil
	busy := m.startBusy(fmt.Sprintf("Exporting %d documents", selected))
	return m, tea.Batch(busy, m.exportCmd())
}

// handleSearchKey filters live as the term is typed. Enter keeps the
// filter, Esc clears it.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.state = StateList
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.state = StateList
		m.search.Blur()
		m.search.SetValue("")
		m.session.SetFilter("")
		m.syncList()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.session.SetFilter(m.search.Value())
	m.syncList()
	return m, cmd
}

func (m Model) handleDetailsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Back), key.Matches(msg, m.keymap.Quit), key.Matches(msg, m.keymap.Details):
		m.state = StateList
		return m, nil
	case key.Matches(msg, m.keymap.Toggle):
		account := m.detail.Account()
		if err := m.session.Toggle(account.AccountKey); err != nil {
			m.lastError = err
		}
		m.syncList()
		return m, nil
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

// headerInfo is a snapshot of session state for View, which must not read
// the session while a command owns it.
type headerInfo struct {
	filter    string
	outputDir string
	sortMode  model.SortMode
	total     int
	selected  int
}

// syncList pulls the visible projection from the session.
func (m *Model) syncList() {
	m.list.SetAccounts(m.session.Visible(), m.session.IsSelected)
	m.header = headerInfo{
		filter:    m.session.FilterTerm(),
		outputDir: m.session.OutputDir(),
		sortMode:  m.session.SortMode(),
		total:     m.session.AccountCount(),
		selected:  len(m.session.Selected()),
	}
}

func (m *Model) handleResize() {
	// Header (2), search or status (1), help (1 or 4).
	chrome := 5
	if m.help.ShowAll {
		chrome += 3
	}
	m.help.Width = m.width
	m.list.Resize(m.width, max(3, m.height-chrome))
	m.detail.Resize(m.width, max(5, m.height-chrome))
}

// Err returns the last error shown to the operator.
func (m Model) Err() error {
	return m.lastError
}

func isTemplateError(err error) bool {
	return errors.Is(err, common.ErrTemplate)
}
