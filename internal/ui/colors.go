package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
)

// Text colors for content hierarchy
const (
	ColorPrimary lipgloss.Color = "7" // White/default
	ColorMuted   lipgloss.Color = "8" // Gray (bright black)
)

// GradientColors is cycled through while a spinner animates.
var GradientColors = []lipgloss.Color{"#FF2E97", "#BF40FF", "#00FFFF", "#39FF14"}

// DisableColors forces monochrome output for every lipgloss style.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// SuccessStyle returns a style for successful results.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle returns a style for failures.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// WarningStyle returns a style for problems that did not stop anything.
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

// MutedStyle returns a style for secondary text.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// StatusLine renders "<symbol> message", colored by ok.
func StatusLine(ok bool, message string) string {
	if ok {
		return SuccessStyle().Render(SymbolSuccess) + " " + message
	}
	return ErrorStyle().Render(SymbolFail) + " " + message
}

// WarningLine renders "! message" in the warning color.
func WarningLine(message string) string {
	return WarningStyle().Render(SymbolWarning) + " " + message
}
