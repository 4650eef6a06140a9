package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// fitBlock pads or truncates s to exactly width columns per line (ANSI-aware)
// and, when height > 0, to exactly height lines.
func fitBlock(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		lines[i] = fitLine(ln, width)
	}
	return strings.Join(lines, "\n")
}

func fitLine(ln string, width int) string {
	w := xansi.StringWidth(ln)
	switch {
	case w > width && width <= 1:
		ln = xansi.Cut(ln, 0, width)
	case w > width:
		ln = xansi.Cut(ln, 0, width-1) + "…"
	}
	if w = xansi.StringWidth(ln); w < width {
		ln += strings.Repeat(" ", width-w)
	}
	return ln
}

// wrapWords breaks s into lines of at most width cells. Words longer than a
// line are hard-cut.
func wrapWords(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var (
		lines []string
		cur   string
		curW  int
	)
	for _, word := range strings.Fields(s) {
		ww := xansi.StringWidth(word)
		if curW > 0 && curW+1+ww <= width {
			cur += " " + word
			curW += 1 + ww
			continue
		}
		if curW > 0 {
			lines = append(lines, cur)
			cur, curW = "", 0
		}
		for ww > width {
			lines = append(lines, xansi.Cut(word, 0, width))
			word = xansi.Cut(word, width, ww)
			ww = xansi.StringWidth(word)
		}
		cur, curW = word, ww
	}
	if curW > 0 || len(lines) == 0 {
		lines = append(lines, cur)
	}
	return lines
}
