package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start     key.Binding
	Stop      key.Binding
	Reset     key.Binding
	EditTimes key.Binding
	Save      key.Binding
	Refresh   key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Export    key.Binding
	Tab1      key.Binding
	Tab2      key.Binding
	Tab3      key.Binding
	Tab4      key.Binding
	Tab       key.Binding
	Help      key.Binding
	Enter     key.Binding
	Back      key.Binding
	Up        key.Binding
	Down      key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Start: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start"),
	),
	Stop: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "stop"),
	),
	Reset: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "reset"),
	),
	EditTimes: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "edit times"),
	),
	Save: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "save entry"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Edit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "reset credentials"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export"),
	),
	Tab1: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "timer"),
	),
	Tab2: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "entries"),
	),
	Tab3: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "new entry"),
	),
	Tab4: key.NewBinding(
		key.WithKeys("4"),
		key.WithHelp("4", "settings"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Save, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Reset, k.EditTimes, k.Save},
		{k.Refresh, k.Edit, k.Export, k.Delete},
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4, k.Tab},
		{k.Up, k.Down, k.Enter, k.Back, k.Quit},
	}
}
