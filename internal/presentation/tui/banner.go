package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the weft ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Indigo to rose, one step per line
	lines := []struct{ text, color string }{
		{"                    __ _   ", "#818cf8"},
		{" __      _____ ___ / _| |_ ", "#a78bfa"},
		{" \\ \\ /\\ / / _ \\ _ \\  _|  _|", "#c084fc"},
		{"  \\ V  V /  __/ __/ | | |_ ", "#e879f9"},
		{"   \\_/\\_/ \\___\\___|_|  \\__|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
