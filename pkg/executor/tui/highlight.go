package tui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// HighlightJSON colors JSON for a 256-color terminal. The source is returned
// unchanged if highlighting fails.
func HighlightJSON(src string) string {
	var b strings.Builder
	if err := quick.Highlight(&b, src, "json", "terminal256", "monokai"); err != nil {
		debugLog.Warnf("failed to highlight JSON: %v", err)
		return src
	}
	return b.String()
}

// RenderAnswer frames a run's final answer for display.
func RenderAnswer(answer string, success bool) string {
	title := successStyle.Render("✓ solved")
	if !success {
		title = errorStyle.Render("✗ not solved")
	}
	return ResultBoxStyle.Render(title + "\n" + answer)
}
