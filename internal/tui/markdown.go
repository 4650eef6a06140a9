package tui

import (
	"strconv"
	"strings"
	"sync"

	"deckhand/internal/model"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	mdRendererMu sync.Mutex
	// Keyed by style and wrap width. Fixed styles avoid the terminal queries
	// WithAutoStyle performs, which can block.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// quotesMarkdown renders each quote as a blockquote followed by its author.
func quotesMarkdown(qs []model.Quote) string {
	var b strings.Builder
	for i, q := range qs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		for _, ln := range strings.Split(strings.TrimSpace(q.Quote), "\n") {
			b.WriteString("> ")
			if ln == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString(ln)
			b.WriteString("\n")
		}
		if a := strings.TrimSpace(q.Author); a != "" {
			b.WriteString(">\n> **")
			b.WriteString(a)
			b.WriteString("**\n")
		}
	}
	return b.String()
}

func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	if r == nil {
		cfg := markdownStyleConfig(style)
		zero := uint(0)
		cfg.Document.Margin = &zero
		rr, err := glamour.NewTermRenderer(
			glamour.WithStyles(cfg),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdRendererMu.Unlock()
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	mdRendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func markdownStyleConfig(style string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	if style == "light" {
		cfg = styles.LightStyleConfig
	}
	text := mdColor(colorSurfaceFg, style)
	cfg.Text.Color = text
	cfg.Strong.Color = nil
	cfg.Emph.Color = nil
	cfg.BlockQuote.Color = text
	cfg.BlockQuote.Italic = mdBoolPtr(true)
	cfg.BlockQuote.Faint = mdBoolPtr(false)
	bar := "┃ "
	cfg.BlockQuote.IndentToken = &bar
	return cfg
}

func mdColor(c lipgloss.AdaptiveColor, style string) *string {
	if style == "light" {
		return &c.Light
	}
	return &c.Dark
}

func mdBoolPtr(b bool) *bool { return &b }
