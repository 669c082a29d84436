// Package perception renders browser observations into prompt text.
package perception

import (
	"fmt"
	"strings"

	"github.com/entrhq/surfer/pkg/browser"
)

// DefaultShortDataLength is the number of characters kept from scraped data
// in the shortened rendering.
const DefaultShortDataLength = 1000

// Perceiver turns observations into text for the conversation.
type Perceiver interface {
	// Perceive renders the page state.
	Perceive(obs *browser.Observation) string

	// PerceiveData renders scraped data, raw or shortened.
	PerceiveData(obs *browser.Observation, raw bool) string
}

// Default is the standard text renderer.
type Default struct {
	// ShortDataLength bounds shortened scraped data. Zero uses the default.
	ShortDataLength int

	// MaxElements bounds the interactive element list. Zero means no limit.
	MaxElements int
}

// NewDefault returns a Default perceiver with default limits.
func NewDefault() *Default {
	return &Default{ShortDataLength: DefaultShortDataLength}
}

func (p *Default) Perceive(obs *browser.Observation) string {
	if obs == nil {
		return "[No observation available]"
	}

	var b strings.Builder
	b.WriteString("[Start of page]\n")
	fmt.Fprintf(&b, "URL: %s\n", obs.Metadata.URL)
	fmt.Fprintf(&b, "Title: %s\n", obs.Metadata.Title)
	if obs.Category != "" {
		fmt.Fprintf(&b, "Page category: %s\n", obs.Category)
	}

	if len(obs.Metadata.Tabs) > 1 {
		b.WriteString("Open tabs:\n")
		for _, tab := range obs.Metadata.Tabs {
			fmt.Fprintf(&b, "  [%d] %s (%s)\n", tab.TabID, tab.Title, tab.URL)
		}
	}

	vp := obs.Metadata.Viewport
	if above := vp.PixelsAbove(); above > 0 {
		fmt.Fprintf(&b, "... %d pixels above - scroll up to see more ...\n", above)
	}

	b.WriteString("\nInteractive elements:\n")
	elements := obs.Elements
	if p.MaxElements > 0 && len(elements) > p.MaxElements {
		elements = elements[:p.MaxElements]
	}
	if len(elements) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, el := range elements {
		fmt.Fprintf(&b, "  [%s] %s %q\n", el.ID, el.Role, el.Text)
	}
	if hidden := len(obs.Elements) - len(elements); hidden > 0 {
		fmt.Fprintf(&b, "  ... %d more elements not shown\n", hidden)
	}

	if obs.Content != "" {
		b.WriteString("\nPage content:\n")
		b.WriteString(obs.Content)
		b.WriteString("\n")
	}

	if below := vp.PixelsBelow(); below > 0 {
		fmt.Fprintf(&b, "... %d pixels below - scroll down to see more ...\n", below)
	}
	b.WriteString("[End of page]")
	return b.String()
}

func (p *Default) PerceiveData(obs *browser.Observation, raw bool) string {
	if !obs.HasData() {
		return ""
	}

	content := obs.Data.Content
	label := "Scraped data"
	if !raw {
		limit := p.ShortDataLength
		if limit <= 0 {
			limit = DefaultShortDataLength
		}
		if runes := []rune(content); len(runes) > limit {
			content = string(runes[:limit]) + "..."
			label = "Scraped data (shortened)"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Start of %s]\n", strings.ToLower(label))
	if obs.Data.Instructions != "" {
		fmt.Fprintf(&b, "Instructions: %s\n", obs.Data.Instructions)
	}
	b.WriteString(content)
	fmt.Fprintf(&b, "\n[End of %s]", strings.ToLower(label))
	return b.String()
}
