package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timebird/internal/model"
	"github.com/sadopc/timebird/internal/timer"
)

// timerViewModel renders the stopwatch and lets the user adjust its clocks.
type timerViewModel struct {
	timer  *timer.Timer
	width  int
	height int

	session timer.Session

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	startClock *string
	endClock   *string
}

func newTimerViewModel(t *timer.Timer) timerViewModel {
	start, end := "", ""
	return timerViewModel{
		timer:      t,
		session:    t.Snapshot(),
		startClock: &start,
		endClock:   &end,
	}
}

func (m *timerViewModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *timerViewModel) sync() {
	m.session = m.timer.Snapshot()
}

func (m timerViewModel) update(msg tea.Msg) (timerViewModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, keys.Start):
		m.timer.Start()
		m.sync()
		return m, status("Timer started")
	case key.Matches(km, keys.Stop):
		if !m.session.Active() {
			return m, nil
		}
		m.timer.Stop()
		m.sync()
		return m, status("Timer stopped")
	case key.Matches(km, keys.Reset):
		m.timer.Reset()
		m.sync()
		return m, status("Timer reset")
	case key.Matches(km, keys.EditTimes):
		if m.session.Active() {
			return m, errorStatus("Stop the timer before editing times")
		}
		return m.showForm()
	case key.Matches(km, keys.Save):
		if m.session.Active() {
			m.timer.Stop()
			m.sync()
		}
		return m, func() tea.Msg { return openEntryFormMsg{fromTimer: true} }
	}
	return m, nil
}

func validateClock(s string) error {
	if _, _, err := model.ParseClock(s); err != nil {
		return errors.New("use HH:MM")
	}
	return nil
}

func validateOptionalClock(s string) error {
	if s == "" {
		return nil
	}
	return validateClock(s)
}

func (m timerViewModel) showForm() (timerViewModel, tea.Cmd) {
	*m.startClock = m.session.StartTime
	*m.endClock = m.session.EndTime

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Start time (HH:MM)").Value(m.startClock).Validate(validateClock),
			huh.NewInput().Title("End time (HH:MM)").Value(m.endClock).Validate(validateOptionalClock),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m timerViewModel) updateForm(msg tea.Msg) (timerViewModel, tea.Cmd) {
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
		if err := m.timer.SetStartTime(*m.startClock); err != nil {
			return m, errorStatus(fmt.Sprintf("Start time: %v", err))
		}
		if err := m.timer.SetEndTime(*m.endClock); err != nil {
			return m, errorStatus(fmt.Sprintf("End time: %v", err))
		}
		m.sync()
		return m, status("Times updated")
	}

	return m, cmd
}

// elapsed is the H:MM between the session clocks on the current day, or ""
// when there is no end time yet.
func (m timerViewModel) elapsed(now time.Time) string {
	if m.session.EndTime == "" {
		return ""
	}
	start, end, err := m.session.Span(time.Time{}, time.Time{}, now)
	if err != nil {
		return ""
	}
	return model.FormatDuration(end.Sub(start))
}

func (m timerViewModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("Edit times")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()),
		)
	}

	end := m.session.EndTime
	if end == "" {
		end = "--:--"
	}
	clock := fmt.Sprintf("%s  →  %s", m.session.StartTime, end)

	style, state := sessionLook(m.session.State)
	display := style.Width(w - 4).Render(clock)

	rows := []string{titleStyle.Render("Timer"), "", display, ""}
	if d := m.elapsed(time.Now()); d != "" {
		rows = append(rows, lipgloss.NewStyle().Width(w-4).Align(lipgloss.Center).Render(highlightStyle.Render(d)), "")
	}
	rows = append(rows,
		state,
		"",
		mutedStyle.Render("s: start  x: stop  c: reset  t: edit times  w: save as entry"),
	)

	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
