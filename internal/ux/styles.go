// Package ux holds the terminal-facing pieces of hatch: styles for error
// reports and advisories, interactivity and CI detection, and the prompts
// the dispatcher needs.
package ux

import (
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors.
var (
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
	Muted       = lipgloss.Color("#8a94a6")
)

// Styles holds the styles used for CLI output.
type Styles struct {
	renderer *lipgloss.Renderer

	Error    lipgloss.Style
	Warning  lipgloss.Style
	Success  lipgloss.Style
	Info     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Prompt   lipgloss.Style
	Advisory lipgloss.Style
}

// NewStyles creates styles rendering to w. Color is dropped when w is not a
// terminal or NO_COLOR is set.
func NewStyles(w io.Writer, lookup func(string) (string, bool)) Styles {
	r := lipgloss.NewRenderer(w)
	if lookup != nil {
		if _, ok := lookup("NO_COLOR"); ok {
			r.SetColorProfile(termenv.Ascii)
		}
		r.SetHasDarkBackground(darkBackground(lookup))
	}
	return newStyles(r)
}

// PlainStyles renders without any escape codes.
func PlainStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.Ascii)
	return newStyles(r)
}

func newStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		renderer: r,
		Error:    r.NewStyle().Foreground(Destructive).Bold(true),
		Warning:  r.NewStyle().Foreground(Warning).Bold(true),
		Success:  r.NewStyle().Foreground(Success).Bold(true),
		Info:     r.NewStyle().Foreground(Info),
		Muted:    r.NewStyle().Foreground(Muted),
		Bold:     r.NewStyle().Bold(true),
		Prompt:   r.NewStyle().Foreground(Success).Bold(true),
		Advisory: r.NewStyle().Foreground(Warning),
	}
}

// darkBackground reads COLORFGBG ("fg;bg"); ANSI 0-6 and 8 are dark.
func darkBackground(lookup func(string) (string, bool)) bool {
	v, ok := lookup("COLORFGBG")
	if !ok {
		return true
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return true
	}
	return (bg >= 0 && bg <= 6) || bg == 8
}
