package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	LoadMore   key.Binding
	Toggle     key.Binding
	ToggleAll  key.Binding
	Visibility key.Binding
	Focus      key.Binding
	Retry      key.Binding
	Submit     key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:       key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		LoadMore:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "load more")),
		Toggle:     key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
		ToggleAll:  key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "select everyone")),
		Visibility: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "public/private")),
		Focus:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "focus")),
		Retry:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Quit:       key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) forMode(mode Mode) []key.Binding {
	switch mode {
	case ModeInvite:
		return []key.Binding{k.Toggle, k.ToggleAll, k.LoadMore, k.Focus, k.Submit, k.Quit}
	case ModeCreate:
		return []key.Binding{k.Visibility, k.Toggle, k.ToggleAll, k.LoadMore, k.Focus, k.Submit, k.Quit}
	default:
		return []key.Binding{k.Up, k.Down, k.LoadMore, k.Submit, k.Quit}
	}
}
