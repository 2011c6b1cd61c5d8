package tui

import (
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/aretw0/weft/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// FormatValue renders v for the console, coloured by variant when the
// terminal supports it.
func FormatValue(v domain.Value) string {
	p := termenv.ColorProfile()
	s := termenv.String(v.String())
	switch v.Kind() {
	case domain.KindEmpty:
		return s.Faint().String()
	case domain.KindNumber:
		return s.Foreground(p.Color("#38bdf8")).String()
	case domain.KindBool:
		return s.Foreground(p.Color("#a78bfa")).String()
	case domain.KindText:
		return s.Foreground(p.Color("#4ade80")).String()
	default:
		return s.Foreground(p.Color("#fbbf24")).String()
	}
}
