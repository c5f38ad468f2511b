package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap is every binding the App handles outside text entry.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PrevPage  key.Binding
	NextPage  key.Binding
	Toggle    key.Binding
	Clear     key.Binding
	Pairwise  key.Binding
	All       key.Binding
	Batch     key.Binding
	Run       key.Binding
	Language  key.Binding
	Threshold key.Binding
	Search    key.Binding
	Sort      key.Binding
	Reverse   key.Binding
	Upload    key.Binding
	Reload    key.Binding
	Focus     key.Binding
	Debug     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		PrevPage:  key.NewBinding(key.WithKeys("h", "left", "pgup"), key.WithHelp("←/h", "prev page")),
		NextPage:  key.NewBinding(key.WithKeys("l", "right", "pgdown"), key.WithHelp("→/l", "next page")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		Clear:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear selection")),
		Pairwise:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "pairwise")),
		All:       key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "against all")),
		Batch:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "batch")),
		Run:       key.NewBinding(key.WithKeys("enter", "c"), key.WithHelp("enter", "compare")),
		Language:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "language filter")),
		Threshold: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "min similarity")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search page")),
		Sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Reverse:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "reverse sort")),
		Upload:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Debug:     key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "debug")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Run, k.Pairwise, k.All, k.Batch, k.NextPage, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage, k.Focus},
		{k.Toggle, k.Clear, k.Search, k.Sort, k.Reverse},
		{k.Pairwise, k.All, k.Batch, k.Language, k.Threshold, k.Run},
		{k.Upload, k.Reload, k.Debug, k.Help, k.Quit},
	}
}
