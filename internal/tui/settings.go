package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timebird/internal/entries"
	"github.com/sadopc/timebird/internal/model"
)

type settingsModel struct {
	entries *entries.Store
	width   int
	height  int

	creds  model.Credentials
	wizard credentialsWizard

	confirming bool
	confirm    *huh.Form
	resetOK    *bool
}

func newSettingsModel(ctx context.Context, es *entries.Store) settingsModel {
	ok := false
	return settingsModel{
		entries: es,
		wizard:  newCredentialsWizard(ctx, es, false),
		resetOK: &ok,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s *settingsModel) sync(c model.Credentials) {
	s.creds = c
}

func (s settingsModel) formActive() bool {
	return s.wizard.active() || s.confirming
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.confirming && s.confirm != nil {
		return s.updateConfirm(msg)
	}

	switch msg.(type) {
	case usersLoadedMsg, credentialsSavedMsg:
		var cmd tea.Cmd
		s.wizard, cmd = s.wizard.update(msg)
		return s, cmd
	}

	if s.wizard.active() {
		var cmd tea.Cmd
		s.wizard, cmd = s.wizard.update(msg)
		return s, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Enter):
			var cmd tea.Cmd
			s.wizard, cmd = s.wizard.start(s.creds)
			return s, cmd
		case key.Matches(msg, keys.Delete):
			return s.showConfirm()
		}
	}
	return s, nil
}

func (s settingsModel) showConfirm() (settingsModel, tea.Cmd) {
	*s.resetOK = false
	s.confirm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reset credentials?").
				Description("The API token, administration ID and user are removed from this machine.").
				Affirmative("Reset").
				Negative("Cancel").
				Value(s.resetOK),
		),
	).WithShowHelp(true)
	s.confirming = true
	return s, s.confirm.Init()
}

func (s settingsModel) updateConfirm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.confirming = false
			s.confirm = nil
			return s, nil
		}
	}

	form, cmd := s.confirm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.confirm = f
	}

	if s.confirm.State == huh.StateCompleted {
		s.confirming = false
		s.confirm = nil
		if !*s.resetOK {
			return s, nil
		}
		es := s.entries
		return s, func() tea.Msg {
			if err := es.ResetCredentials(); err != nil {
				return errStatus("Reset failed", err)
			}
			return statusMsg{text: "Credentials removed"}
		}
	}
	return s, cmd
}

func (s settingsModel) view(spin string) string {
	w := s.width - 4

	if s.wizard.active() {
		return s.wizard.view(w, spin)
	}
	if s.confirming && s.confirm != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.confirm.View()),
		)
	}

	rows := []string{titleStyle.Render("Settings"), ""}
	for _, item := range []struct {
		label, value string
		style        lipgloss.Style
	}{
		{"Administration ID", s.creds.AdministrationID, highlightStyle},
		{"API token", maskSecret(s.creds.APIToken), secretStyle},
		{"User ID", s.creds.UserID, highlightStyle},
	} {
		label := lipgloss.NewStyle().Width(24).Render(item.label)
		value := mutedStyle.Render("not set")
		if item.value != "" {
			value = item.style.Render(item.value)
		}
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "", mutedStyle.Render("enter: edit credentials  d: reset credentials"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
