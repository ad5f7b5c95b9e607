package llm

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// plainText flattens any markup the model slipped into a draft. Block
// elements become paragraph breaks; script and style content is dropped.
func plainText(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || !strings.Contains(trimmed, "<") {
		return trimmed, nil
	}

	doc, err := html.Parse(strings.NewReader(trimmed))
	if err != nil {
		return "", eris.Wrap(err, "parsing draft markup")
	}

	var builder strings.Builder
	collectText(&builder, doc)

	paragraphs := strings.Split(builder.String(), "\n")
	kept := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		if collapsed := strings.Join(strings.Fields(paragraph), " "); collapsed != "" {
			kept = append(kept, collapsed)
		}
	}

	return strings.Join(kept, "\n\n"), nil
}

func collectText(builder *strings.Builder, node *html.Node) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			builder.WriteString(child.Data)
		case html.ElementNode:
			name := strings.ToLower(child.Data)
			switch name {
			case "script", "style", "head":
				continue
			case "br":
				builder.WriteString("\n")
				continue
			}
			collectText(builder, child)
			if isBlockElement(name) {
				builder.WriteString("\n")
			}
		default:
			collectText(builder, child)
		}
	}
}

func isBlockElement(name string) bool {
	switch name {
	case "p", "div", "section", "article", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
		return true
	default:
		return false
	}
}

func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}

	body := content[3:]
	newline := strings.IndexByte(body, '\n')
	if newline == -1 {
		return content
	}
	body = body[newline+1:]

	trimmedBody := strings.TrimRight(body, " \t\r\n")
	if !strings.HasSuffix(trimmedBody, "```") {
		return content
	}

	trimmedBody = strings.TrimRight(trimmedBody[:len(trimmedBody)-3], " \t\r\n")
	return strings.TrimSpace(trimmedBody)
}
