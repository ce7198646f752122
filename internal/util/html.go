package util

import (
	"strings"

	"golang.org/x/net/html"
)

// VisibleText strips markup from HTML-bearing content (Substack posts,
// saved Discord exports) before the text reaches the sanitizer. Input that
// does not look like HTML is returned unchanged.
func VisibleText(content string) string {
	if !strings.Contains(content, "<") {
		return content
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String())
}
