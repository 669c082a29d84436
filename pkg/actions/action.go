// Package actions defines the browser actions an agent can choose and the
// structured step output the model returns each turn.
package actions

import (
	"errors"
	"fmt"
	"strings"
)

// ActionType is the wire discriminator of an action.
type ActionType string

const (
	TypeGoto       ActionType = "goto"       // TypeGoto navigates to a URL.
	TypeClick      ActionType = "click"      // TypeClick clicks an interactive element.
	TypeFill       ActionType = "fill"       // TypeFill types a value into an input element.
	TypePressKey   ActionType = "press_key"  // TypePressKey presses a keyboard key on the focused element.
	TypeScroll     ActionType = "scroll"     // TypeScroll scrolls the page up or down.
	TypeGoBack     ActionType = "go_back"    // TypeGoBack navigates back in history.
	TypeWait       ActionType = "wait"       // TypeWait pauses for a fixed time.
	TypeScrape     ActionType = "scrape"     // TypeScrape extracts the page content as data.
	TypeCompletion ActionType = "completion" // TypeCompletion ends the task with an answer.
)

// MaxWaitMs bounds WaitAction.TimeMs.
const MaxWaitMs = 30000

// ErrInvalidAction is wrapped by every action validation failure.
var ErrInvalidAction = errors.New("invalid action")

// Action is one agent-chosen browser operation.
type Action interface {
	// Type returns the wire discriminator.
	Type() ActionType

	// Validate checks the action's parameters.
	Validate() error

	// ExecutionMessage describes the action in past tense for history rendering.
	ExecutionMessage() string
}

// InteractionAction is an action that targets an element from the
// observation's interactive element list.
type InteractionAction interface {
	Action
	ElementID() string
}

func invalid(t ActionType, format string, args ...interface{}) error {
	return fmt.Errorf("%w '%s': %s", ErrInvalidAction, t, fmt.Sprintf(format, args...))
}

// GotoAction navigates the current tab to URL.
type GotoAction struct {
	URL string `json:"url"`
}

func (a *GotoAction) Type() ActionType { return TypeGoto }

func (a *GotoAction) Validate() error {
	if strings.TrimSpace(a.URL) == "" {
		return invalid(TypeGoto, "url is required")
	}
	return nil
}

func (a *GotoAction) ExecutionMessage() string {
	return fmt.Sprintf("Navigated to '%s' in current tab", a.URL)
}

// ClickAction clicks the element with the given ID.
type ClickAction struct {
	ID string `json:"id"`
}

func (a *ClickAction) Type() ActionType  { return TypeClick }
func (a *ClickAction) ElementID() string { return a.ID }

func (a *ClickAction) Validate() error {
	if a.ID == "" {
		return invalid(TypeClick, "id is required")
	}
	return nil
}

func (a *ClickAction) ExecutionMessage() string {
	return fmt.Sprintf("Clicked on the element with id %s", a.ID)
}

// FillAction replaces the value of an input element.
type FillAction struct {
	ID         string `json:"id"`
	Value      string `json:"value"`
	PressEnter bool   `json:"press_enter,omitempty"`
}

func (a *FillAction) Type() ActionType  { return TypeFill }
func (a *FillAction) ElementID() string { return a.ID }

func (a *FillAction) Validate() error {
	if a.ID == "" {
		return invalid(TypeFill, "id is required")
	}
	return nil
}

func (a *FillAction) ExecutionMessage() string {
	msg := fmt.Sprintf("Filled the input field %s with the value: '%s'", a.ID, a.Value)
	if a.PressEnter {
		msg += " and pressed Enter"
	}
	return msg
}

// PressKeyAction presses a key such as Enter, Tab or Escape.
type PressKeyAction struct {
	Key string `json:"key"`
}

func (a *PressKeyAction) Type() ActionType { return TypePressKey }

func (a *PressKeyAction) Validate() error {
	if a.Key == "" {
		return invalid(TypePressKey, "key is required")
	}
	return nil
}

func (a *PressKeyAction) ExecutionMessage() string {
	return fmt.Sprintf("Pressed the keyboard key: %s", a.Key)
}

// Scroll directions.
const (
	ScrollUp   = "up"
	ScrollDown = "down"
)

// ScrollAction scrolls by Amount pixels; zero means one viewport height.
type ScrollAction struct {
	Direction string `json:"direction"`
	Amount    int    `json:"amount,omitempty"`
}

func (a *ScrollAction) Type() ActionType { return TypeScroll }

func (a *ScrollAction) Validate() error {
	if a.Direction != ScrollUp && a.Direction != ScrollDown {
		return invalid(TypeScroll, "direction must be %q or %q, got %q", ScrollUp, ScrollDown, a.Direction)
	}
	if a.Amount < 0 {
		return invalid(TypeScroll, "amount must not be negative")
	}
	return nil
}

func (a *ScrollAction) ExecutionMessage() string {
	if a.Amount > 0 {
		return fmt.Sprintf("Scrolled %s by %d pixels", a.Direction, a.Amount)
	}
	return fmt.Sprintf("Scrolled %s by one page", a.Direction)
}

// GoBackAction navigates back in the tab history.
type GoBackAction struct{}

func (a *GoBackAction) Type() ActionType         { return TypeGoBack }
func (a *GoBackAction) Validate() error          { return nil }
func (a *GoBackAction) ExecutionMessage() string { return "Navigated back to the previous page" }

// WaitAction pauses for TimeMs milliseconds.
type WaitAction struct {
	TimeMs int `json:"time_ms"`
}

func (a *WaitAction) Type() ActionType { return TypeWait }

func (a *WaitAction) Validate() error {
	if a.TimeMs <= 0 || a.TimeMs > MaxWaitMs {
		return invalid(TypeWait, "time_ms must be in (0, %d], got %d", MaxWaitMs, a.TimeMs)
	}
	return nil
}

func (a *WaitAction) ExecutionMessage() string {
	return fmt.Sprintf("Waited for %d milliseconds", a.TimeMs)
}

// ScrapeAction extracts the current page content into the observation data.
type ScrapeAction struct {
	Instructions string `json:"instructions,omitempty"`
}

func (a *ScrapeAction) Type() ActionType { return TypeScrape }
func (a *ScrapeAction) Validate() error  { return nil }

func (a *ScrapeAction) ExecutionMessage() string {
	if a.Instructions != "" {
		return fmt.Sprintf("Scraped the page content with instructions: %s", a.Instructions)
	}
	return "Scraped the page content"
}

// CompletionAction is the terminal claim that the task is finished.
type CompletionAction struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer"`
}

func (a *CompletionAction) Type() ActionType { return TypeCompletion }

func (a *CompletionAction) Validate() error { return nil }

func (a *CompletionAction) ExecutionMessage() string {
	return fmt.Sprintf("Completed the task with success=%t and answer: %s", a.Success, a.Answer)
}
