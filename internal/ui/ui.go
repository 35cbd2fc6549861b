// Package ui holds terminal presentation helpers for the CLI.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/thingsdev/thingscloud/todo"
)

var (
	idStyle        = lipgloss.NewStyle().Faint(true)
	prefixStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	todoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	completeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Strikethrough(true)
	trashedStyle   = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	todayStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
)

// Enabled reports whether styled output should be produced.
func Enabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ID renders an item id for listings.
func ID(id string) string {
	if !Enabled() {
		return id
	}
	return idStyle.Render(id)
}

// HighlightedID renders an id with its shortest unique prefix
// emphasized, so users can see how little they need to type.
func HighlightedID(id string, prefixLen int) string {
	if !Enabled() || prefixLen <= 0 || prefixLen > len(id) {
		return ID(id)
	}
	return prefixStyle.Render(id[:prefixLen]) + idStyle.Render(id[prefixLen:])
}

// StatusGlyph renders the one-character status marker for an item.
func StatusGlyph(t *todo.Todo) string {
	switch {
	case t.Trashed():
		return "x"
	case t.Status() == todo.StatusComplete:
		return "✓"
	case t.Status() == todo.StatusCancelled:
		return "-"
	default:
		return "·"
	}
}

// Title renders an item title styled by its state.
func Title(t *todo.Todo) string {
	if !Enabled() {
		return t.Title()
	}
	switch {
	case t.Trashed():
		return trashedStyle.Render(t.Title())
	case t.Status() == todo.StatusComplete:
		return completeStyle.Render(t.Title())
	case t.Status() == todo.StatusCancelled:
		return cancelledStyle.Render(t.Title())
	case t.IsToday():
		return todayStyle.Render(t.Title())
	default:
		return todoStyle.Render(t.Title())
	}
}
