// Package output renders practice feedback for the terminal.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	ColorPrimary = lipgloss.Color("#64b5f6")
	ColorSuccess = lipgloss.Color("#66bb6a")
	ColorError   = lipgloss.Color("#ef5350")
	ColorWarning = lipgloss.Color("#fff59d")
	ColorMuted   = lipgloss.Color("#888888")
)

var (
	StyleHeader  = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
)

// SetNoColor swaps every style for a plain one when disabled is true.
func SetNoColor(disabled bool) {
	if !disabled {
		return
	}
	plain := lipgloss.NewStyle()
	StyleHeader = plain
	StyleSuccess = plain
	StyleError = plain
	StyleWarning = plain
	StyleMuted = plain
}

// ConfigureColor disables colour when forced to or when f is not a
// terminal.
func ConfigureColor(f *os.File, force bool) {
	if force || !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		SetNoColor(true)
	}
}
