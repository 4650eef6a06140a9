package tui

import (
	"fmt"
	"strings"

	"deckhand/internal/query"
)

func (m appModel) renderQuotesPane(width, height int) string {
	lines := []string{styleTitle().Render(quotesTitle), ""}

	box := "[ ]"
	if m.abort {
		box = "[x]"
	}
	lines = append(lines, fmt.Sprintf("%s Abort %s", box, styleMuted().Render(fmt.Sprintf("(after %s)", m.abortAfter))))

	switch {
	case m.rec.Status == query.StatusError && m.rec.Cancelled:
		lines = append(lines, styleMuted().Render("Request aborted"))
	case m.rec.Status == query.StatusError:
		lines = append(lines, styleError().Render(quotesErrorText))
	}

	lines = append(lines, "", styleButton(!m.rec.IsLoading()).Render("Fetch quotes"), "")

	if m.rec.IsLoading() {
		lines = append(lines, m.spinner.View()+" "+quotesLoadingText)
	}

	head := strings.Join(lines, "\n")
	if m.rec.Status == query.StatusSuccess && m.rec.HasData {
		var body string
		if len(m.rec.Data) == 0 {
			body = styleMuted().Render("No quotes.")
		} else {
			body = renderMarkdown(quotesMarkdown(m.rec.Data), width-2)
		}
		head += "\n" + body
	}
	return fitBlock(head, width, height)
}
