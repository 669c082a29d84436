package perception

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/types"
)

// Page categories.
const (
	CategorySearchResults = "search-results"
	CategoryProduct       = "product"
	CategoryForm          = "form"
	CategoryArticle       = "article"
	CategoryListing       = "listing"
	CategoryLogin         = "login"
	CategoryOther         = "other"
)

var categories = []string{
	CategorySearchResults,
	CategoryProduct,
	CategoryForm,
	CategoryArticle,
	CategoryListing,
	CategoryLogin,
	CategoryOther,
}

// maxCategorizeContent bounds the page text sent for categorization.
const maxCategorizeContent = 4000

// Categorizer labels a page with one of a fixed set of categories.
type Categorizer interface {
	Categorize(ctx context.Context, obs *browser.Observation) (string, error)
}

// LLMCategorizer asks a model to categorize pages.
type LLMCategorizer struct {
	provider llm.Provider
}

// NewLLMCategorizer creates a categorizer backed by provider.
func NewLLMCategorizer(provider llm.Provider) *LLMCategorizer {
	return &LLMCategorizer{provider: provider}
}

type categoryVerdict struct {
	Category string `json:"category"`
}

// Categorize returns one of the known categories; unknown labels map to
// CategoryOther.
func (c *LLMCategorizer) Categorize(ctx context.Context, obs *browser.Observation) (string, error) {
	if c.provider == nil {
		return "", fmt.Errorf("LLM provider not available")
	}
	if obs == nil {
		return CategoryOther, nil
	}

	var verdict categoryVerdict
	messages := []*types.Message{types.NewUserMessage(buildCategorizePrompt(obs))}
	if _, err := llm.StructuredCompletion(ctx, c.provider, messages, &verdict, llm.WithTemperature(0)); err != nil {
		return "", fmt.Errorf("failed to categorize page: %w", err)
	}
	return normalizeCategory(verdict.Category), nil
}

func normalizeCategory(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, "_", "-")
	label = strings.ReplaceAll(label, " ", "-")
	for _, c := range categories {
		if label == c {
			return c
		}
	}
	return CategoryOther
}

func buildCategorizePrompt(obs *browser.Observation) string {
	var prompt strings.Builder

	prompt.WriteString("Categorize the following web page. Answer with a JSON object of the form {\"category\": \"<category>\"}.\n\n")
	fmt.Fprintf(&prompt, "Allowed categories: %s\n\n", strings.Join(categories, ", "))
	fmt.Fprintf(&prompt, "URL: %s\n", obs.Metadata.URL)
	fmt.Fprintf(&prompt, "Title: %s\n\n", obs.Metadata.Title)

	if len(obs.Elements) > 0 {
		prompt.WriteString("Interactive elements:\n")
		for i, el := range obs.Elements {
			if i == 30 {
				fmt.Fprintf(&prompt, "... %d more\n", len(obs.Elements)-i)
				break
			}
			fmt.Fprintf(&prompt, "- %s %q\n", el.Role, el.Text)
		}
		prompt.WriteString("\n")
	}

	content := obs.Content
	if runes := []rune(content); len(runes) > maxCategorizeContent {
		content = string(runes[:maxCategorizeContent]) + "..."
	}
	prompt.WriteString("Page text:\n")
	prompt.WriteString(content)
	prompt.WriteString("\n\nPick the single category that best describes the page. Use \"other\" when none fits.")

	return prompt.String()
}
