package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{` ____        _                 _ `, "#34d399"},
	{`| __ ) _   _| | __ _ _ __   __| |`, "#2dd4bf"},
	{`|  _ \| | | | |/ _' | '_ \ / _' |`, "#22d3ee"},
	{`| |_) | |_| | | (_| | | | | (_| |`, "#38bdf8"},
	{`|____/ \__, |_|\__,_|_| |_|\__,_|`, "#60a5fa"},
	{`       |___/                      `, "#818cf8"},
}

// PrintBanner writes the ASCII art banner to w, colored when the terminal supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
