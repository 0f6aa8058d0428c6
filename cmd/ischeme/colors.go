package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/opal-lang/ischeme/core/config"
)

// ShouldUseColor determines if color output should be used on w.
// Respects --no-color, the NO_COLOR environment variable and the color
// setting; in auto mode only terminals get colors.
func ShouldUseColor(noColorFlag bool, mode string, w io.Writer) bool {
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// styles are the text styles of one output stream
type styles struct {
	err     lipgloss.Style
	warn    lipgloss.Style
	hint    lipgloss.Style
	dim     lipgloss.Style
	heading lipgloss.Style
	command lipgloss.Style
}

func newStyles(w io.Writer, useColor bool) styles {
	r := lipgloss.NewRenderer(w)
	if useColor {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		err:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		hint:    r.NewStyle().Foreground(lipgloss.Color("81")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("240")),
		heading: r.NewStyle().Bold(true),
		command: r.NewStyle().Foreground(lipgloss.Color("42")),
	}
}
