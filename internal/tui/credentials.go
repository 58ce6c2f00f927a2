package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timebird/internal/entries"
	"github.com/sadopc/timebird/internal/model"
)

type wizardStage int

const (
	stageClosed wizardStage = iota
	stageDetails
	stageLoadingUsers
	stageUser
	stageSaving
)

var (
	errAdminRequired = errors.New("administration ID is required")
	errTokenRequired = errors.New("API token is required")
)

// credentialsWizard collects an administration ID and API token, looks up
// the users of that administration and stores all three values. Settings
// and onboarding share it; onboarding adds a welcome and a finished step.
type credentialsWizard struct {
	ctx        context.Context
	entries    *entries.Store
	onboarding bool

	stage wizardStage
	form  *huh.Form
	users []model.User

	// Form field pointers (survive value copies)
	creds *model.Credentials
}

func newCredentialsWizard(ctx context.Context, es *entries.Store, onboarding bool) credentialsWizard {
	return credentialsWizard{
		ctx:        ctx,
		entries:    es,
		onboarding: onboarding,
		creds:      &model.Credentials{},
	}
}

func (w credentialsWizard) active() bool {
	return w.stage != stageClosed
}

// start opens the first step prefilled with current.
func (w credentialsWizard) start(current model.Credentials) (credentialsWizard, tea.Cmd) {
	*w.creds = current
	w.users = nil

	var groups []*huh.Group
	if w.onboarding {
		groups = append(groups, huh.NewGroup(
			huh.NewNote().
				Title("Welcome to timebird").
				Description("Track your hours and book them straight into Moneybird.\n\nYou need your administration ID and a personal API token.\nBoth are found in Moneybird under Settings → Developers."),
		))
	}
	groups = append(groups,
		huh.NewGroup(
			huh.NewInput().Title("Administration ID").
				Description("The number after moneybird.com/ in your browser.").
				Value(&w.creds.AdministrationID).
				Validate(required(errAdminRequired)),
		),
		huh.NewGroup(
			huh.NewInput().Title("API token").
				EchoMode(huh.EchoModePassword).
				Value(&w.creds.APIToken).
				Validate(required(errTokenRequired)),
		),
	)

	w.form = huh.NewForm(groups...).WithShowHelp(true).WithShowErrors(true)
	w.stage = stageDetails
	return w, w.form.Init()
}

func (w credentialsWizard) close() credentialsWizard {
	w.stage = stageClosed
	w.form = nil
	w.users = nil
	return w
}

func (w credentialsWizard) loadUsers() tea.Cmd {
	creds := model.Credentials{
		APIToken:         strings.TrimSpace(w.creds.APIToken),
		AdministrationID: strings.TrimSpace(w.creds.AdministrationID),
	}
	es, parent := w.entries, w.ctx
	return func() tea.Msg {
		ctx, cancel := withTimeout(parent)
		defer cancel()
		users, err := es.ListUsers(ctx, creds)
		return usersLoadedMsg{users: users, err: err}
	}
}

// showUserStep lets the user pick who the entries are booked for. Without a
// user list it falls back to typing the ID.
func (w credentialsWizard) showUserStep() (credentialsWizard, tea.Cmd) {
	var field huh.Field
	if len(w.users) > 0 {
		opts := []huh.Option[string]{huh.NewOption("Nobody in particular", "")}
		for _, u := range w.users {
			label := u.Name
			if u.Email != "" {
				label += " <" + u.Email + ">"
			}
			opts = append(opts, huh.NewOption(label, u.ID))
		}
		field = huh.NewSelect[string]().Title("User").
			Description("Time entries are booked for this user.").
			Options(opts...).
			Value(&w.creds.UserID)
	} else {
		field = huh.NewInput().Title("User ID (optional)").
			Description("Users could not be loaded; enter the ID yourself or leave it empty.").
			Value(&w.creds.UserID)
	}

	groups := []*huh.Group{huh.NewGroup(field)}
	if w.onboarding {
		groups = append(groups, huh.NewGroup(
			huh.NewNote().
				Title("All set").
				Description("Press enter to save your settings and start tracking."),
		))
	}

	w.form = huh.NewForm(groups...).WithShowHelp(true).WithShowErrors(true)
	w.stage = stageUser
	return w, w.form.Init()
}

func (w credentialsWizard) save() tea.Cmd {
	creds := model.Credentials{
		APIToken:         strings.TrimSpace(w.creds.APIToken),
		AdministrationID: strings.TrimSpace(w.creds.AdministrationID),
		UserID:           strings.TrimSpace(w.creds.UserID),
	}
	es := w.entries
	return func() tea.Msg {
		return credentialsSavedMsg{err: es.SetCredentials(creds)}
	}
}

func (w credentialsWizard) update(msg tea.Msg) (credentialsWizard, tea.Cmd) {
	switch msg := msg.(type) {
	case usersLoadedMsg:
		if w.stage != stageLoadingUsers {
			return w, nil
		}
		w.users = msg.users
		var cmd tea.Cmd
		w, cmd = w.showUserStep()
		if msg.err != nil {
			return w, tea.Batch(cmd, errStatusCmd("Could not load users", msg.err))
		}
		return w, cmd

	case credentialsSavedMsg:
		if w.stage != stageSaving {
			return w, nil
		}
		if msg.err != nil {
			// Back to the user step so the save can be retried.
			return w.showUserStep()
		}
		return w.close(), nil

	case tea.KeyMsg:
		// Onboarding cannot be skipped.
		if msg.String() == "esc" && !w.onboarding && w.form != nil {
			return w.close(), nil
		}
	}

	if w.form == nil || (w.stage != stageDetails && w.stage != stageUser) {
		return w, nil
	}

	form, cmd := w.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		w.form = f
	}

	if w.form.State == huh.StateCompleted {
		switch w.stage {
		case stageDetails:
			w.stage = stageLoadingUsers
			return w, w.loadUsers()
		case stageUser:
			w.stage = stageSaving
			return w, w.save()
		}
	}
	return w, cmd
}

func (w credentialsWizard) view(width int, spin string) string {
	title := titleStyle.Render("Moneybird credentials")
	if w.onboarding {
		title = titleStyle.Render("Getting started")
	}

	var body string
	switch w.stage {
	case stageLoadingUsers:
		body = spin + " Looking up users…"
	case stageSaving:
		body = spin + " Saving…"
	default:
		if w.form != nil {
			body = w.form.View()
		}
	}
	return activePanelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body))
}
