package browser

import (
	"time"
)

// ViewportData describes the scroll position and page dimensions at
// snapshot time.
type ViewportData struct {
	ScrollX        int `json:"scroll_x" yaml:"scroll_x"`
	ScrollY        int `json:"scroll_y" yaml:"scroll_y"`
	ViewportWidth  int `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int `json:"viewport_height" yaml:"viewport_height"`
	TotalWidth     int `json:"total_width" yaml:"total_width"`
	TotalHeight    int `json:"total_height" yaml:"total_height"`
}

// PixelsAbove is the amount of page hidden above the viewport.
func (v ViewportData) PixelsAbove() int {
	if v.ScrollY < 0 {
		return 0
	}
	return v.ScrollY
}

// PixelsBelow is the amount of page hidden below the viewport.
func (v ViewportData) PixelsBelow() int {
	below := v.TotalHeight - v.ScrollY - v.ViewportHeight
	if below < 0 {
		return 0
	}
	return below
}

// TabData identifies one open tab.
type TabData struct {
	TabID int    `json:"tab_id" yaml:"tab_id"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// SnapshotMetadata is the page-level part of an observation.
type SnapshotMetadata struct {
	Title     string       `json:"title" yaml:"title"`
	URL       string       `json:"url" yaml:"url"`
	Viewport  ViewportData `json:"viewport" yaml:"viewport"`
	Tabs      []TabData    `json:"tabs,omitempty" yaml:"tabs,omitempty"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
}

// InteractiveElement is an element the agent can target by ID.
// IDs are prefixed by kind: L link, B button, I input, S select.
type InteractiveElement struct {
	ID   string `json:"id" yaml:"id"`
	Role string `json:"role" yaml:"role"`
	Text string `json:"text" yaml:"text"`
}

// ScrapedData is the result of a scrape action.
type ScrapedData struct {
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Content      string `json:"content" yaml:"content"`
}

// Observation is a read-only snapshot of the browser after an action.
type Observation struct {
	Metadata   SnapshotMetadata     `json:"metadata" yaml:"metadata"`
	Elements   []InteractiveElement `json:"elements" yaml:"elements"`
	Content    string               `json:"content" yaml:"content"`
	Screenshot []byte               `json:"-" yaml:"-"`
	Data       *ScrapedData         `json:"data,omitempty" yaml:"data,omitempty"`
	Category   string               `json:"category,omitempty" yaml:"category,omitempty"`
}

// HasData reports whether the observation carries scraped data.
func (o *Observation) HasData() bool {
	return o != nil && o.Data != nil && o.Data.Content != ""
}

// HasScreenshot reports whether a screenshot was captured.
func (o *Observation) HasScreenshot() bool {
	return o != nil && len(o.Screenshot) > 0
}

// Element returns the interactive element with the given ID.
func (o *Observation) Element(id string) (InteractiveElement, bool) {
	if o == nil {
		return InteractiveElement{}, false
	}
	for _, el := range o.Elements {
		if el.ID == id {
			return el, true
		}
	}
	return InteractiveElement{}, false
}
