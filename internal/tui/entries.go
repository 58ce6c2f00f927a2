package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timebird/internal/entries"
	"github.com/sadopc/timebird/internal/export"
	"github.com/sadopc/timebird/internal/model"
)

type entryUpdatedMsg struct {
	err error
}

type entriesModel struct {
	ctx     context.Context
	entries *entries.Store
	width   int
	height  int

	state entries.State
	table table.Model
	chart barchart.Model

	formActive  bool
	form        *huh.Form
	editingID   string
	description *string
}

func newEntriesModel(ctx context.Context, es *entries.Store) entriesModel {
	t := table.New(
		table.WithColumns(entryColumns(80)),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorRule).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(colorBrand).
		Bold(false)
	t.SetStyles(st)

	desc := ""
	return entriesModel{
		ctx:         ctx,
		entries:     es,
		table:       t,
		chart:       barchart.New(60, 10),
		description: &desc,
	}
}

// entryColumns splits width between the columns, giving the description
// whatever the fixed columns leave.
func entryColumns(width int) []table.Column {
	desc := width - (16 + 16 + 10 + 13 + 8) - 12
	if desc < 16 {
		desc = 16
	}
	return []table.Column{
		{Title: "Description", Width: desc},
		{Title: "Project", Width: 16},
		{Title: "Contact", Width: 16},
		{Title: "Date", Width: 10},
		{Title: "Time", Width: 13},
		{Title: "Duration", Width: 8},
	}
}

func entryRow(e model.TimeEntry) table.Row {
	project := e.Project.Name
	if project == "" {
		project = e.Project.ID
	}
	contact := e.Contact.Name
	if contact == "" {
		contact = e.Contact.ID
	}
	start, end := e.StartedAt.Local(), e.EndedAt.Local()
	return table.Row{
		e.Description,
		project,
		contact,
		start.Format("2006-01-02"),
		model.FormatClock(start) + " - " + model.FormatClock(end),
		e.Duration(),
	}
}

func (m *entriesModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.table.SetColumns(entryColumns(w - 8))
	m.table.SetWidth(w - 8)
	// Leave room for the chart below the table.
	th := h - 22
	if th < 5 {
		th = 5
	}
	m.table.SetHeight(th)
	m.buildChart()
}

func (m *entriesModel) sync(st entries.State) {
	m.state = st
	rows := make([]table.Row, 0, len(st.Entries))
	for _, e := range st.Entries {
		rows = append(rows, entryRow(e))
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
	m.buildChart()
}

func (m *entriesModel) buildChart() {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	m.chart = barchart.New(chartWidth, 10)

	var bars []barchart.BarData
	for i, pt := range export.ProjectTotals(m.state.Entries) {
		style := projectStyle(i)
		bars = append(bars, barchart.BarData{
			Label: pt.Name,
			Values: []barchart.BarValue{{
				Name:  pt.Name,
				Value: pt.Total.Hours(),
				Style: style,
			}},
		})
	}
	if len(bars) == 0 {
		return
	}
	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m entriesModel) refresh() tea.Cmd {
	es, parent := m.entries, m.ctx
	return func() tea.Msg {
		ctx, cancel := withTimeout(parent)
		defer cancel()
		if err := es.FetchTimeEntries(ctx); err != nil {
			return errStatus("Refresh failed", err)
		}
		return statusMsg{text: "Entries refreshed"}
	}
}

func (m entriesModel) selected() (model.TimeEntry, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.state.Entries) {
		return model.TimeEntry{}, false
	}
	return m.state.Entries[i], true
}

func (m entriesModel) update(msg tea.Msg) (entriesModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case entryUpdatedMsg:
		if msg.err != nil {
			return m, errStatusCmd("Could not update entry", msg.err)
		}
		return m, status("Entry updated")

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Refresh):
			return m, m.refresh()
		case key.Matches(msg, keys.Edit):
			if e, ok := m.selected(); ok {
				return m.showForm(e)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m entriesModel) showForm(e model.TimeEntry) (entriesModel, tea.Cmd) {
	*m.description = e.Description
	m.editingID = e.ID

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Description").Value(m.description).Validate(required(model.ErrMissingDescription)),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m entriesModel) updateForm(msg tea.Msg) (entriesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		m.form = nil
		return m, m.saveDescription(m.editingID, *m.description)
	}
	return m, cmd
}

func (m entriesModel) saveDescription(id, desc string) tea.Cmd {
	es, parent := m.entries, m.ctx
	return func() tea.Msg {
		ctx, cancel := withTimeout(parent)
		defer cancel()
		_, err := es.UpdateTimeEntry(ctx, id, model.EntryPatch{Description: &desc})
		return entryUpdatedMsg{err: err}
	}
}

func (m entriesModel) view(spin string) string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("Edit entry")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()),
		)
	}

	title := titleStyle.Render("Entries")
	if m.state.Loading {
		title = lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", spin)
	}

	if len(m.state.Entries) == 0 {
		hint := "No time entries loaded. Press r to refresh."
		if !m.state.Credentials.Configured() {
			hint = "Configure your credentials in Settings to load entries."
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render(hint)),
		)
	}

	var total time.Duration
	for _, pt := range export.ProjectTotals(m.state.Entries) {
		total += pt.Total
	}
	summary := mutedStyle.Render(fmt.Sprintf("%d entries, %s total", len(m.state.Entries), model.FormatDuration(total)))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", summary),
		"",
		m.table.View(),
		"",
		titleStyle.Render("Hours per project"),
		m.chart.View(),
		"",
		mutedStyle.Render("↑/↓: select  enter: edit description  r: refresh  e: export"),
	))
}
