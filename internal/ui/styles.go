package ui

import (
	"github.com/charmbracelet/lipgloss"

	"firetodo/internal/storage"
	"firetodo/internal/todo"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))

	filterStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("250"))

	activeFilterStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62"))

	progressLabelStyle = lipgloss.NewStyle().Bold(true)

	labelStyle     = lipgloss.NewStyle()
	doneLabelStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("245"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	priorityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	priorityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	priorityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	noticeInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	noticeSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	noticeWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	noticeDanger  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func priorityBadge(p storage.Priority) string {
	var style lipgloss.Style
	switch p.Normalize() {
	case storage.PriorityHigh:
		style = priorityHigh
	case storage.PriorityLow:
		style = priorityLow
	default:
		style = priorityMedium
	}
	return style.Render("[" + p.Normalize().String() + "]")
}

func noticeStyle(level todo.Level) lipgloss.Style {
	switch level {
	case todo.LevelSuccess:
		return noticeSuccess
	case todo.LevelWarning:
		return noticeWarning
	case todo.LevelDanger:
		return noticeDanger
	}
	return noticeInfo
}
