package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	PrevPage     key.Binding
	NextPage     key.Binding
	Toggle       key.Binding
	SelectAll    key.Binding
	ClearAll     key.Binding
	Search       key.Binding
	Add          key.Binding
	Rename       key.Binding
	Open         key.Binding
	Delete       key.Binding
	Duplicate    key.Binding
	ViewMode     key.Binding
	CollapseAll  key.Binding
	SortKey      key.Binding
	SortDir      key.Binding
	MorePerPage  key.Binding
	FewerPerPage key.Binding
	NextKind     key.Binding
	PrevKind     key.Binding
	Reload       key.Binding
	Help         key.Binding
	Quit         key.Binding

	// detail page
	Next key.Binding
	Prev key.Binding
	Back key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PrevPage:     key.NewBinding(key.WithKeys("[", "pgup"), key.WithHelp("[", "prev page")),
		NextPage:     key.NewBinding(key.WithKeys("]", "pgdown"), key.WithHelp("]", "next page")),
		Toggle:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		SelectAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select visible")),
		ClearAll:     key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "clear selection")),
		Search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Add:          key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "add")),
		Rename:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename")),
		Open:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Delete:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Duplicate:    key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "duplicate")),
		ViewMode:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "group/flat")),
		CollapseAll:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "collapse groups")),
		SortKey:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort by")),
		SortDir:      key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "reverse")),
		MorePerPage:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "page size")),
		FewerPerPage: key.NewBinding(key.WithKeys("-")),
		NextKind:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next list")),
		PrevKind:     key.NewBinding(key.WithKeys("shift+tab")),
		Reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Next: key.NewBinding(key.WithKeys("n", "right", "l"), key.WithHelp("n", "next")),
		Prev: key.NewBinding(key.WithKeys("p", "left", "h"), key.WithHelp("p", "previous")),
		Back: key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	}
}

// ShortHelp and FullHelp implement help.KeyMap for the list page.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Search, k.Add, k.Delete, k.Duplicate, k.ViewMode, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage, k.NextKind},
		{k.Toggle, k.SelectAll, k.ClearAll, k.Open},
		{k.Search, k.Add, k.Rename, k.Delete, k.Duplicate},
		{k.ViewMode, k.CollapseAll, k.SortKey, k.SortDir, k.MorePerPage, k.Reload, k.Quit},
	}
}

type detailKeys struct{ k keyMap }

func (d detailKeys) ShortHelp() []key.Binding {
	return []key.Binding{d.k.Prev, d.k.Next, d.k.Back, d.k.Quit}
}

func (d detailKeys) FullHelp() [][]key.Binding { return [][]key.Binding{d.ShortHelp()} }
