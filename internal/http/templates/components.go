package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const stylesheet = `body{font-family:Georgia,serif;max-width:42rem;margin:2rem auto;padding:0 1rem;color:#1e1e2e;background:#eff1f5}` +
	`h1{font-size:1.4rem}ol.choices{padding-left:1.2rem}ol.choices a{color:#8839ef}` +
	`.ending{color:#d20f39;font-weight:bold}footer{margin-top:3rem;font-size:.85rem;color:#6c6f85}`

// Layout wraps content in the shared page chrome.
func Layout(title, footerNote string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if footerNote == "" {
			footerNote = DefaultFooterNote
		}

		head := fmt.Sprintf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body><main>`,
			templ.EscapeString(title), stylesheet)
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}

		if err := content.Render(ctx, w); err != nil {
			return err
		}

		_, err := fmt.Fprintf(w, `</main><footer>%s</footer></body></html>`, templ.EscapeString(footerNote))
		return err
	})
}

// PlayPage renders a single gamebook page with its choices.
func PlayPage(data PlayPageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		fmt.Fprintf(&b, `<h1>Page %d</h1>`, data.PageID)
		for _, paragraph := range data.Paragraphs {
			fmt.Fprintf(&b, `<p>%s</p>`, templ.EscapeString(paragraph))
		}

		if data.IsEnding {
			b.WriteString(`<p class="ending">The End</p>`)
		}

		if len(data.Choices) > 0 {
			b.WriteString(`<ol class="choices">`)
			for _, choice := range data.Choices {
				fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, templ.EscapeString(choice.URL), templ.EscapeString(choice.Label))
			}
			b.WriteString(`</ol>`)
		}

		if data.IsEnding || len(data.Choices) == 0 {
			fmt.Fprintf(&b, `<p><a href="%s">Restart</a></p>`, templ.EscapeString(data.RestartURL))
		}

		_, err := io.WriteString(w, b.String())
		return err
	})

	return Layout(data.Title, data.FooterNote, content)
}

// ErrorPage renders an error message with a way back to the start.
func ErrorPage(data ErrorPageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>%s</h1><p>%s</p>`, templ.EscapeString(data.StatusLabel), templ.EscapeString(data.Message))
		if err != nil {
			return err
		}
		if data.RestartURL != "" {
			_, err = fmt.Fprintf(w, `<p><a href="%s">Back to the start</a></p>`, templ.EscapeString(data.RestartURL))
		}
		return err
	})

	return Layout(data.Title, "", content)
}

// Paragraphs splits a page body on blank lines.
func Paragraphs(body string) []string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	blocks := strings.Split(normalized, "\n\n")

	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
