package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"firetodo/internal/config"
)

type keyMap struct {
	Quit          key.Binding
	Add           key.Binding
	Up            key.Binding
	Down          key.Binding
	Toggle        key.Binding
	Delete        key.Binding
	Edit          key.Binding
	Confirm       key.Binding
	Cancel        key.Binding
	MoveUp        key.Binding
	MoveDown      key.Binding
	FilterAll     key.Binding
	FilterDone    key.Binding
	FilterPending key.Binding
	Search        key.Binding
	MarkAllDone   key.Binding
	ClearAll      key.Binding
	PriorityNext  key.Binding
	PriorityPrev  key.Binding
}

func newKeyMap(k config.Keymap) keyMap {
	bind := func(desc string, keys ...string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keyLabel(keys[0]), desc))
	}
	return keyMap{
		Quit:          bind("quit", k.Quit, "ctrl+c"),
		Add:           bind("add", k.Add),
		Up:            bind("up", k.Up, "up"),
		Down:          bind("down", k.Down, "down"),
		Toggle:        bind("toggle", k.Toggle),
		Delete:        bind("delete", k.Delete),
		Edit:          bind("edit", k.Edit),
		Confirm:       bind("save", k.Confirm),
		Cancel:        bind("cancel", k.Cancel),
		MoveUp:        bind("move up", k.MoveUp),
		MoveDown:      bind("move down", k.MoveDown),
		FilterAll:     bind("all", k.FilterAll),
		FilterDone:    bind("done", k.FilterDone),
		FilterPending: bind("pending", k.FilterPending),
		Search:        bind("search", k.Search),
		MarkAllDone:   bind("mark all done", k.MarkAllDone),
		ClearAll:      bind("clear all", k.ClearAll),
		PriorityNext:  bind("priority", k.PriorityNext),
		PriorityPrev:  bind("priority", k.PriorityPrev),
	}
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Edit, k.Delete, k.Search, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.MoveUp, k.MoveDown},
		{k.Add, k.Toggle, k.Edit, k.Delete},
		{k.FilterAll, k.FilterDone, k.FilterPending, k.Search},
		{k.MarkAllDone, k.ClearAll, k.Quit},
	}
}
