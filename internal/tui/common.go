package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/timebird/internal/model"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewEntries
	viewNewEntry
	viewSettings
)

var viewNames = []string{"Timer", "Entries", "New entry", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

// changeMsg means the entry store or the timer changed and the view should
// take a fresh snapshot.
type changeMsg struct{}

type initDoneMsg struct {
	err error
}

type exportDoneMsg struct {
	path string
}

type usersLoadedMsg struct {
	users []model.User
	err   error
}

type credentialsSavedMsg struct {
	err error
}

// entrySavedMsg reports the outcome of the entry form.
type entrySavedMsg struct {
	entry model.TimeEntry
	err   error
}

// openEntryFormMsg asks the app to show the entry form, prefilled from the
// timer when fromTimer is set.
type openEntryFormMsg struct {
	fromTimer bool
}

// ConfigReloadedMsg is sent by the host when the configuration file
// changed.
type ConfigReloadedMsg struct {
	PageSize int
}

// --- Helpers ---

func errStatus(prefix string, err error) tea.Msg {
	return statusMsg{text: prefix + ": " + err.Error(), isError: true}
}

func errStatusCmd(prefix string, err error) tea.Cmd {
	return func() tea.Msg { return errStatus(prefix, err) }
}

// notifyNonBlocking wakes a waiting changeMsg command without ever blocking
// the caller.
func notifyNonBlocking(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// withTimeout bounds background calls made on behalf of the UI.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "••••"
	}
	return "••••" + s[len(s)-4:]
}

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func errorStatus(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: true} }
}
