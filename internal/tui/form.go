package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timebird/internal/entries"
	"github.com/sadopc/timebird/internal/model"
	"github.com/sadopc/timebird/internal/timer"
)

const dateLayout = "2006-01-02"

// entryFields backs the entry form. The form holds pointers into it.
type entryFields struct {
	description string
	contactID   string
	contactName string
	projectID   string
	projectName string
	billable    bool
	useDates    bool
	startDate   string
	endDate     string
	startClock  string
	endClock    string
}

func (f *entryFields) draft() model.TimeEntry {
	billable := f.billable
	return model.TimeEntry{
		Description: strings.TrimSpace(f.description),
		Contact:     model.Ref{ID: strings.TrimSpace(f.contactID), Name: strings.TrimSpace(f.contactName)},
		Project:     model.Ref{ID: strings.TrimSpace(f.projectID), Name: strings.TrimSpace(f.projectName)},
		Billable:    &billable,
	}
}

// dates returns the chosen calendar days, or zero values when the user did
// not ask for explicit dates.
func (f *entryFields) dates(loc *time.Location) (time.Time, time.Time, error) {
	if !f.useDates {
		return time.Time{}, time.Time{}, nil
	}
	var out [2]time.Time
	for i, s := range []string{f.startDate, f.endDate} {
		if s == "" {
			continue
		}
		d, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		out[i] = d
	}
	return out[0], out[1], nil
}

func required(err error) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return err
		}
		return nil
	}
}

func validateDate(s string) error {
	if s == "" {
		return model.ErrMissingDates
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

// entryFormModel is the "New entry" view. It either takes its clocks from
// the timer session or from its own inputs.
type entryFormModel struct {
	ctx     context.Context
	entries *entries.Store
	timer   *timer.Timer
	width   int
	height  int

	fromTimer  bool
	submitting bool
	form       *huh.Form
	fields     *entryFields
}

func newEntryFormModel(ctx context.Context, es *entries.Store, t *timer.Timer) entryFormModel {
	m := entryFormModel{ctx: ctx, entries: es, timer: t, fields: &entryFields{}}
	m.form = m.buildForm()
	return m
}

func (m *entryFormModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

// open starts over with a blank form.
func (m entryFormModel) open(fromTimer bool) (entryFormModel, tea.Cmd) {
	m.fromTimer = fromTimer
	m.submitting = false
	*m.fields = entryFields{}
	if !fromTimer {
		now := model.FormatClock(time.Now())
		m.fields.startClock, m.fields.endClock = now, now
	}
	m.form = m.buildForm()
	return m, m.form.Init()
}

// capturing reports whether keys should go to the form.
func (m entryFormModel) capturing() bool {
	return m.form != nil && !m.submitting
}

func (m entryFormModel) buildForm() *huh.Form {
	f := m.fields
	fromTimer := m.fromTimer

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Description").Value(&f.description).Validate(required(model.ErrMissingDescription)),
			huh.NewInput().Title("Contact ID").Value(&f.contactID).Validate(required(model.ErrMissingContact)),
			huh.NewInput().Title("Contact name").Value(&f.contactName),
			huh.NewInput().Title("Project ID").Value(&f.projectID).Validate(required(model.ErrMissingProject)),
			huh.NewInput().Title("Project name").Value(&f.projectName),
			huh.NewConfirm().Title("Billable?").Affirmative("Yes").Negative("No").Value(&f.billable),
		).Title("Entry"),
		huh.NewGroup(
			huh.NewConfirm().Title("Specify dates?").
				Description("Without dates the entry is booked on today.").
				Affirmative("Yes").Negative("No").Value(&f.useDates),
		),
		huh.NewGroup(
			huh.NewInput().Title("Start date (YYYY-MM-DD)").Value(&f.startDate).Validate(validateDate),
			huh.NewInput().Title("End date (YYYY-MM-DD)").Value(&f.endDate).Validate(validateDate),
		).Title("Dates").WithHideFunc(func() bool { return !f.useDates }),
		huh.NewGroup(
			huh.NewInput().Title("Start time (HH:MM)").Value(&f.startClock).Validate(validateClock),
			huh.NewInput().Title("End time (HH:MM)").Value(&f.endClock).Validate(validateClock),
		).Title("Times").WithHideFunc(func() bool { return fromTimer }),
	).WithShowHelp(true).WithShowErrors(true)
}

func (m entryFormModel) update(msg tea.Msg) (entryFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case entrySavedMsg:
		m.submitting = false
		if msg.err != nil {
			// Keep what was typed so it can be corrected.
			m.form = m.buildForm()
			return m, tea.Batch(m.form.Init(), errStatusCmd("Could not save entry", msg.err))
		}
		return m.open(false)

	case tea.KeyMsg:
		if msg.String() == "esc" && m.capturing() {
			var cmd tea.Cmd
			m, cmd = m.open(false)
			return m, tea.Batch(cmd, status("Entry discarded"))
		}
	}

	if !m.capturing() {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.submitting = true
		return m, m.submit()
	}
	return m, cmd
}

func (m entryFormModel) submit() tea.Cmd {
	fields := *m.fields
	fromTimer := m.fromTimer
	es, t, parent := m.entries, m.timer, m.ctx

	return func() tea.Msg {
		ctx, cancel := withTimeout(parent)
		defer cancel()

		now := time.Now()
		startDate, endDate, err := fields.dates(now.Location())
		if err != nil {
			return entrySavedMsg{err: err}
		}
		draft := fields.draft()

		if fromTimer {
			if _, err := es.SaveFromTimer(ctx, t, draft, startDate, endDate); err != nil {
				return entrySavedMsg{err: err}
			}
			return entrySavedMsg{entry: draft}
		}

		draft.StartedAt, draft.EndedAt, err = model.Span(startDate, endDate, fields.startClock, fields.endClock, now)
		if err != nil {
			return entrySavedMsg{err: err}
		}
		created, err := es.AddTimeEntry(ctx, draft)
		return entrySavedMsg{entry: created, err: err}
	}
}

func (m entryFormModel) view(spin string) string {
	w := m.width - 4

	title := titleStyle.Render("New entry")
	if m.fromTimer {
		s := m.timer.Snapshot()
		end := s.EndTime
		if end == "" {
			end = s.StartTime
		}
		title = lipgloss.JoinHorizontal(lipgloss.Bottom,
			title, "  ", mutedStyle.Render("from timer "+s.StartTime+" → "+end))
	}

	body := ""
	switch {
	case m.submitting:
		body = spin + " Saving…"
	case m.form != nil:
		body = m.form.View()
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body))
}
