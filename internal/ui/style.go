package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Style renders one kind of CLI text. With colour it paints the text; without
// it falls back to a plain decoration such as quotes or brackets.
type Style struct {
	color  *color.Color
	prefix string
	suffix string

	// redact, when set, replaces the text in both modes.
	redact func(string) string
}

func newStyle(attr color.Attribute, prefix, suffix string) Style {
	return Style{color: color.New(attr), prefix: prefix, suffix: suffix}
}

// Sprint formats a like fmt.Sprint and styles the result.
func (s Style) Sprint(a ...any) string {
	return s.render(fmt.Sprint(a...))
}

// Sprintf formats like fmt.Sprintf and styles the result.
func (s Style) Sprintf(format string, a ...any) string {
	return s.render(fmt.Sprintf(format, a...))
}

func (s Style) render(text string) string {
	if s.redact != nil {
		text = s.redact(text)
	}
	if !colorEnabled() {
		return s.prefix + text + s.suffix
	}
	return s.color.Sprint(text)
}

// colorEnabled honours NO_COLOR (https://no-color.org/) and fatih/color's
// terminal detection.
func colorEnabled() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return !color.NoColor
}

// EnsureNewline appends a newline unless s already ends with one.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

var (
	// Status marks and messages.
	Success = newStyle(color.FgGreen, "", "")
	Error   = newStyle(color.FgRed, "", "")
	Warning = newStyle(color.FgYellow, "", "")
	Info    = newStyle(color.FgCyan, "", "")

	// Code is a command to run; `backticks` without colour.
	Code = newStyle(color.FgYellow, "`", "`")
	Path = newStyle(color.FgYellow, "", "")
	Flag = newStyle(color.FgYellow, "", "")

	// Name is a secret name; 'quoted' without colour.
	Name = newStyle(color.FgCyan, "'", "'")

	// Provider is the service a secret belongs to; [bracketed] without colour.
	Provider = newStyle(color.FgMagenta, "[", "]")

	// Muted is secondary detail; (parenthesised) without colour.
	Muted = newStyle(color.FgHiBlack, "(", ")")

	// Secret shows a value through Mask, never in the clear.
	Secret = Style{color: color.New(color.FgHiBlack), redact: Mask}
)
