package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// PageText is the readable text of a page with its metadata.
type PageText struct {
	Text        string
	Title       string
	Description string
	Truncated   bool
}

// extractPageText parses rawHTML and returns its visible text. Block
// elements start new lines and noise elements are dropped. maxLength <= 0
// means no limit.
func extractPageText(rawHTML string, maxLength int) (*PageText, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	w := &textWriter{maxLength: maxLength}
	w.walk(doc)

	return &PageText{
		Text:        w.String(),
		Title:       extractTitle(doc),
		Description: extractMetaDescription(doc),
		Truncated:   w.truncated,
	}, nil
}

type textWriter struct {
	b         strings.Builder
	maxLength int
	truncated bool
	newline   bool
}

func (w *textWriter) String() string {
	return strings.TrimSpace(w.b.String())
}

func (w *textWriter) full() bool {
	return w.maxLength > 0 && w.b.Len() >= w.maxLength
}

func (w *textWriter) walk(n *html.Node) {
	if w.truncated {
		return
	}

	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) || isHidden(n) {
			return
		}
		if tag == "br" {
			w.lineBreak()
			return
		}
		if isBlockElement(tag) {
			w.lineBreak()
			defer w.lineBreak()
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *textWriter) text(data string) {
	text := strings.Join(strings.Fields(data), " ")
	if text == "" {
		return
	}

	if w.b.Len() > 0 && !w.newline {
		w.b.WriteByte(' ')
	}
	w.newline = false

	if w.maxLength > 0 && w.b.Len()+len(text) > w.maxLength {
		remaining := w.maxLength - w.b.Len()
		if remaining > 0 {
			w.b.WriteString(truncateRunes(text, remaining))
		}
		w.b.WriteString("...")
		w.truncated = true
		return
	}
	w.b.WriteString(text)
}

func (w *textWriter) lineBreak() {
	if w.b.Len() == 0 || w.newline || w.full() {
		return
	}
	w.b.WriteByte('\n')
	w.newline = true
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func isHidden(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "hidden":
			return true
		case "aria-hidden":
			if attr.Val == "true" {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(attr.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

var skippedElements = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
	"canvas":   true,
}

func isSkippedElement(tagName string) bool {
	return skippedElements[tagName]
}

var blockElements = map[string]bool{
	"div":        true,
	"p":          true,
	"section":    true,
	"article":    true,
	"header":     true,
	"footer":     true,
	"nav":        true,
	"main":       true,
	"aside":      true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"ul":         true,
	"ol":         true,
	"li":         true,
	"table":      true,
	"tr":         true,
	"form":       true,
	"fieldset":   true,
	"blockquote": true,
	"pre":        true,
	"dl":         true,
	"dt":         true,
	"dd":         true,
	"hr":         true,
}

func isBlockElement(tagName string) bool {
	return blockElements[tagName]
}

func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return title
}

func extractMetaDescription(doc *html.Node) string {
	var description string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var isDescription bool
			var content string
			for _, attr := range n.Attr {
				if attr.Key == "name" && strings.EqualFold(attr.Val, "description") {
					isDescription = true
				}
				if attr.Key == "content" {
					content = attr.Val
				}
			}
			if isDescription && content != "" {
				description = strings.TrimSpace(content)
				return
			}
		}
		for c := n.FirstChild; c != nil && description == ""; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return description
}
