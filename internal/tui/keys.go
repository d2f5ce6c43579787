package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the global page bindings. They are inactive while a form or
// the go-to prompt has focus.
type keyMap struct {
	Quit     key.Binding
	Home     key.Binding
	Login    key.Binding
	Register key.Binding
	Center   key.Binding
	Admin    key.Binding
	Logout   key.Binding
	Refresh  key.Binding
	GoTo     key.Binding
	Edit     key.Binding
	Help     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Home:     key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "home")),
		Login:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "login")),
		Register: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "register")),
		Center:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "center")),
		Admin:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "users")),
		Logout:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "logout")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		GoTo:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "go to")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit profile")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// ShortHelp lists bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Home, k.Center, k.Admin, k.GoTo, k.Refresh, k.Logout, k.Quit}
}

// FullHelp lists every binding, grouped.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Home, k.Login, k.Register, k.Center, k.Admin},
		{k.GoTo, k.Edit, k.Refresh, k.Logout},
		{k.Help, k.Quit},
	}
}
