package dashboard

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextDevice key.Binding
	PrevDevice key.Binding
	Timescale  key.Binding
	Minutely   key.Binding
	Hourly     key.Binding
	Daily      key.Binding
	Monthly    key.Binding
	Load       key.Binding
	Up         key.Binding
	Down       key.Binding
	Decrease   key.Binding
	Increase   key.Binding
	Toggle     key.Binding
	Apply      key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextDevice, k.Timescale, k.Load, k.Apply, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextDevice, k.PrevDevice, k.Load},
		{k.Timescale, k.Minutely, k.Hourly, k.Daily, k.Monthly},
		{k.Up, k.Down, k.Decrease, k.Increase, k.Toggle, k.Apply},
		{k.PageUp, k.PageDown, k.Help, k.Quit},
	}
}

var keys = keyMap{
	NextDevice: key.NewBinding(
		key.WithKeys("]", "tab"),
		key.WithHelp("]", "next device"),
	),
	PrevDevice: key.NewBinding(
		key.WithKeys("[", "shift+tab"),
		key.WithHelp("[", "prev device"),
	),
	Timescale: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "timescale"),
	),
	Minutely: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "minutely"),
	),
	Hourly: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "hourly"),
	),
	Daily: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "daily"),
	),
	Monthly: key.NewBinding(
		key.WithKeys("4"),
		key.WithHelp("4", "monthly"),
	),
	Load: key.NewBinding(
		key.WithKeys("enter", "r"),
		key.WithHelp("enter/r", "load data"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "prev field"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next field"),
	),
	Decrease: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "decrease"),
	),
	Increase: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "increase"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle signal"),
	),
	Apply: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "apply"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "scroll down"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
