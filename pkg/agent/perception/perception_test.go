package perception

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surfer/pkg/browser"
	"github.com/entrhq/surfer/pkg/llm"
	"github.com/entrhq/surfer/pkg/types"
)

func sampleObservation() *browser.Observation {
	return &browser.Observation{
		Metadata: browser.SnapshotMetadata{
			Title: "Books",
			URL:   "https://shop.test/books",
			Viewport: browser.ViewportData{
				ScrollY: 200, ViewportHeight: 1000, TotalHeight: 3000,
			},
			Tabs: []browser.TabData{
				{TabID: 0, Title: "Books", URL: "https://shop.test/books"},
				{TabID: 1, Title: "Help", URL: "https://shop.test/help"},
			},
		},
		Elements: []browser.InteractiveElement{
			{ID: "I1", Role: "input", Text: "Search"},
			{ID: "B1", Role: "button", Text: "Go"},
		},
		Content:  "Dune\nFoundation",
		Category: CategoryListing,
	}
}

func TestPerceive(t *testing.T) {
	text := NewDefault().Perceive(sampleObservation())

	for _, want := range []string{
		"URL: https://shop.test/books",
		"Title: Books",
		"Page category: listing",
		"[1] Help (https://shop.test/help)",
		"200 pixels above",
		"1800 pixels below",
		`[I1] input "Search"`,
		`[B1] button "Go"`,
		"Page content:\nDune\nFoundation",
	} {
		assert.Contains(t, text, want)
	}
	assert.True(t, strings.HasPrefix(text, "[Start of page]"))
	assert.True(t, strings.HasSuffix(text, "[End of page]"))
}

func TestPerceiveLimitsElements(t *testing.T) {
	p := &Default{MaxElements: 1}
	text := p.Perceive(sampleObservation())
	assert.Contains(t, text, "[I1]")
	assert.NotContains(t, text, "[B1]")
	assert.Contains(t, text, "1 more elements not shown")
}

func TestPerceiveNil(t *testing.T) {
	assert.Equal(t, "[No observation available]", NewDefault().Perceive(nil))
}

func TestPerceiveData(t *testing.T) {
	obs := sampleObservation()
	p := &Default{ShortDataLength: 5}
	assert.Empty(t, p.PerceiveData(obs, true))

	obs.Data = &browser.ScrapedData{Instructions: "titles", Content: "Dune, Foundation, Hyperion"}

	raw := p.PerceiveData(obs, true)
	assert.Contains(t, raw, "Dune, Foundation, Hyperion")
	assert.Contains(t, raw, "Instructions: titles")

	short := p.PerceiveData(obs, false)
	assert.Contains(t, short, "Dune,...")
	assert.NotContains(t, short, "Hyperion")
	assert.Contains(t, short, "shortened")
}

type cannedProvider struct {
	content string
	err     error
	prompts []string
}

func (c *cannedProvider) Complete(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (*types.Message, error) {
	c.prompts = append(c.prompts, messages[len(messages)-1].Content)
	if c.err != nil {
		return nil, c.err
	}
	return types.NewAssistantMessage(c.content), nil
}

func (c *cannedProvider) GetModelInfo() *types.ModelInfo { return &types.ModelInfo{Name: "canned"} }
func (c *cannedProvider) GetModel() string              { return "canned" }

func TestLLMCategorizer(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{reply: `{"category":"search-results"}`, want: CategorySearchResults},
		{reply: `{"category":"Search Results"}`, want: CategorySearchResults},
		{reply: `{"category":"PRODUCT"}`, want: CategoryProduct},
		{reply: `{"category":"spaceship"}`, want: CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			p := &cannedProvider{content: tt.reply}
			got, err := NewLLMCategorizer(p).Categorize(context.Background(), sampleObservation())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.Len(t, p.prompts, 1)
			assert.Contains(t, p.prompts[0], "URL: https://shop.test/books")
		})
	}
}

func TestLLMCategorizerErrors(t *testing.T) {
	_, err := NewLLMCategorizer(&cannedProvider{err: errors.New("offline")}).Categorize(context.Background(), sampleObservation())
	assert.Error(t, err)

	_, err = NewLLMCategorizer(&cannedProvider{content: "not json"}).Categorize(context.Background(), sampleObservation())
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)

	_, err = NewLLMCategorizer(nil).Categorize(context.Background(), sampleObservation())
	assert.Error(t, err)
}
