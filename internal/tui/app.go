package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timebird/internal/entries"
	"github.com/sadopc/timebird/internal/export"
	"github.com/sadopc/timebird/internal/logging"
	"github.com/sadopc/timebird/internal/model"
	"github.com/sadopc/timebird/internal/timer"
)

const notConfiguredBanner = "Please configure your Moneybird API token and administration ID in the settings."

var exportFormats = []string{"CSV", "JSON", "PDF"}

// Services are the long-lived components the program drives.
type Services struct {
	Entries   *entries.Store
	Timer     *timer.Timer
	Indicator *Indicator
	Log       *slog.Logger
}

// App is the root Bubble Tea model.
type App struct {
	ctx     context.Context
	svc     Services
	changes chan struct{}
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	busy          bool

	state entries.State

	timerView   timerViewModel
	entriesView entriesModel
	entryForm   entryFormModel
	settings    settingsModel
	onboarding  credentialsWizard

	spinner       spinner.Model
	help          help.Model
	status        string
	statusIsError bool
}

func NewApp(ctx context.Context, svc Services) App {
	if svc.Indicator == nil {
		svc.Indicator = NewIndicator()
	}
	if svc.Log == nil {
		svc.Log = logging.Discard()
	}

	h := help.New()
	h.ShowAll = false

	// Stores and the timer only wake the program; the program then reads
	// fresh snapshots itself.
	changes := make(chan struct{}, 1)
	svc.Entries.Subscribe(func(entries.State) { notifyNonBlocking(changes) })
	svc.Timer.OnChange(func(timer.Session) { notifyNonBlocking(changes) })

	return App{
		ctx:         ctx,
		svc:         svc,
		changes:     changes,
		activeView:  viewTimer,
		state:       svc.Entries.Snapshot(),
		timerView:   newTimerViewModel(svc.Timer),
		entriesView: newEntriesModel(ctx, svc.Entries),
		entryForm:   newEntryFormModel(ctx, svc.Entries, svc.Timer),
		settings:    newSettingsModel(ctx, svc.Entries),
		onboarding:  newCredentialsWizard(ctx, svc.Entries, true),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(highlightStyle)),
		help:        h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.initialize(),
		tickCmd(),
		waitForChange(a.changes),
		a.spinner.Tick,
		tea.SetWindowTitle(windowTitle(false)),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changeMsg{}
	}
}

func (a App) initialize() tea.Cmd {
	es, ctx := a.svc.Entries, a.ctx
	return func() tea.Msg {
		return initDoneMsg{err: es.Initialize(ctx)}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timerView.setSize(a.width, contentHeight)
		a.entriesView.setSize(a.width, contentHeight)
		a.entryForm.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tickMsg:
		// The indicator is polled so the timer never has to reach into the
		// program.
		if busy := a.svc.Indicator.Busy(); busy != a.busy {
			a.busy = busy
			return a, tea.Batch(tickCmd(), tea.SetWindowTitle(windowTitle(busy)))
		}
		return a, tickCmd()

	case changeMsg:
		a.sync()
		return a, waitForChange(a.changes)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case initDoneMsg:
		a.sync()
		if msg.err != nil {
			a.svc.Log.Warn("initialize", "err", msg.err)
			a.setStatus(a.state.Error, true)
		}
		if msg.err == nil && a.state.Credentials.APIToken == "" {
			var cmd tea.Cmd
			a.onboarding, cmd = a.onboarding.start(a.state.Credentials)
			return a, cmd
		}
		return a, nil

	case ConfigReloadedMsg:
		a.svc.Entries.SetPageSize(msg.PageSize)
		a.setStatus("Configuration reloaded", false)
		if a.state.Credentials.Configured() {
			return a, a.entriesView.refresh()
		}
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		return a, nil

	case openEntryFormMsg:
		a.activeView = viewNewEntry
		var cmd tea.Cmd
		a.entryForm, cmd = a.entryForm.open(msg.fromTimer)
		return a, cmd

	case entrySavedMsg:
		var cmd tea.Cmd
		a.entryForm, cmd = a.entryForm.update(msg)
		if msg.err != nil {
			return a, cmd
		}
		a.activeView = viewEntries
		return a, tea.Batch(cmd, status("Time entry saved"))

	case usersLoadedMsg, credentialsSavedMsg:
		return a.routeCredentials(msg)
	}

	return a.updateActiveView(msg)
}

// routeCredentials hands wizard results to whichever wizard is open.
func (a App) routeCredentials(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if a.onboarding.active() {
		a.onboarding, cmd = a.onboarding.update(msg)
	} else {
		a.settings, cmd = a.settings.update(msg)
	}

	saved, ok := msg.(credentialsSavedMsg)
	if !ok {
		return a, cmd
	}
	if saved.err != nil {
		return a, tea.Batch(cmd, errStatusCmd("Could not save credentials", saved.err))
	}
	a.sync()
	return a, tea.Batch(cmd, status("Credentials saved"), a.entriesView.refresh())
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusIsError = isError
}

// sync copies fresh snapshots into every view.
func (a *App) sync() {
	a.state = a.svc.Entries.Snapshot()
	a.timerView.sync()
	a.entriesView.sync(a.state)
	a.settings.sync(a.state.Credentials)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if a.onboarding.active() {
		var cmd tea.Cmd
		a.onboarding, cmd = a.onboarding.update(msg)
		return a, cmd
	}

	// Export picker
	if a.exportPicking {
		return a.updateExportPicker(msg)
	}

	// The entry form always holds focus; esc discards it and leaves.
	if a.activeView == viewNewEntry && key.Matches(msg, keys.Back) {
		var cmd tea.Cmd
		a.entryForm, cmd = a.entryForm.update(msg)
		a.activeView = viewTimer
		return a, cmd
	}

	// If a child view is capturing input (e.g. form), delegate first.
	if a.isFormActive() {
		return a.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
		return a, nil
	case key.Matches(msg, keys.Export) && a.activeView == viewEntries:
		a.exportPicking = true
		a.exportCursor = 0
		return a, nil
	case key.Matches(msg, keys.Tab1):
		a.activeView = viewTimer
		return a, nil
	case key.Matches(msg, keys.Tab2):
		a.activeView = viewEntries
		return a, nil
	case key.Matches(msg, keys.Tab3):
		return a.showNewEntry()
	case key.Matches(msg, keys.Tab4):
		a.activeView = viewSettings
		return a, nil
	case key.Matches(msg, keys.Tab):
		next := (a.activeView + 1) % viewState(len(viewNames))
		if next == viewNewEntry {
			return a.showNewEntry()
		}
		a.activeView = next
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) showNewEntry() (tea.Model, tea.Cmd) {
	a.activeView = viewNewEntry
	var cmd tea.Cmd
	a.entryForm, cmd = a.entryForm.open(false)
	return a, cmd
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timerView, cmd = a.timerView.update(msg)
	case viewEntries:
		a.entriesView, cmd = a.entriesView.update(msg)
	case viewNewEntry:
		a.entryForm, cmd = a.entryForm.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTimer:
		return a.timerView.formActive
	case viewEntries:
		return a.entriesView.formActive
	case viewNewEntry:
		return a.entryForm.capturing()
	case viewSettings:
		return a.settings.formActive()
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()
	spin := a.spinner.View()

	var content string
	switch {
	case a.onboarding.active():
		content = a.onboarding.view(a.width-4, spin)
	case a.activeView == viewTimer:
		content = a.timerView.view()
	case a.activeView == viewEntries:
		content = a.entriesView.view(spin)
	case a.activeView == viewNewEntry:
		content = a.entryForm.view(spin)
	case a.activeView == viewSettings:
		content = a.settings.view(spin)
	}

	if notices := a.renderNotices(); notices != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, notices, content)
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

// renderNotices shows the missing-credentials banner and the last error of
// the entry store.
func (a App) renderNotices() string {
	var lines []string
	if a.state.Initialized && !a.state.Credentials.Configured() && !a.onboarding.active() {
		lines = append(lines, bannerStyle.Width(a.width-4).Render(notConfiguredBanner))
	}
	if a.state.Error != "" {
		lines = append(lines, errorStyle.Render("  "+a.state.Error))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := brandStyle.Render("timebird")
	if a.busy {
		title = lipgloss.JoinHorizontal(lipgloss.Bottom, busyBadgeStyle.Render("● "), title)
	}
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusIsError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Timer indicator in footer
	timerInfo := ""
	if s := a.timerView.session; s.Active() {
		timerInfo = busyBadgeStyle.Render(" ● since " + s.StartTime)
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, doExport(a.state.Entries, a.exportCursor, a.svc.Log)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func doExport(list []model.TimeEntry, format int, log *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		var (
			ext   string
			write func([]model.TimeEntry, string) error
		)
		switch format {
		case 0:
			ext, write = "csv", export.ToCSV
		case 1:
			ext, write = "json", export.ToJSON
		default:
			ext, write = "pdf", export.ToPDF
		}

		path, err := export.Path(ext, time.Now())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		if err := write(list, path); err != nil {
			log.Error("export", "format", ext, "err", err)
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		log.Info("exported entries", "format", ext, "count", len(list), "path", path)
		return exportDoneMsg{path: path}
	}
}
