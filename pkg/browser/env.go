package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/surfer/pkg/actions"
	"github.com/entrhq/surfer/pkg/logging"
)

var browserDebugLog *logging.Logger

func init() {
	var err error
	browserDebugLog, err = logging.NewLogger("browser")
	if err != nil {
		browserDebugLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// Env implements Environment on top of a Driver.
type Env struct {
	cfg    Config
	driver Driver
	guard  *DomainGuard

	mu         sync.Mutex
	started    bool
	trajectory []*Observation
	elementIDs map[string]struct{}
}

// NewEnv wraps driver. Zero values in cfg fall back to defaults.
func NewEnv(driver Driver, cfg Config) (*Env, error) {
	if driver == nil {
		return nil, fmt.Errorf("browser driver is required")
	}
	defaults := DefaultConfig()
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaults.MaxSteps
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = defaults.ViewportHeight
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = defaults.ViewportWidth
	}
	if cfg.MaxContentLength == 0 {
		cfg.MaxContentLength = defaults.MaxContentLength
	}

	guard, err := NewDomainGuard(cfg.AllowedDomains, cfg.DeniedDomains)
	if err != nil {
		return nil, err
	}

	return &Env{
		cfg:        cfg,
		driver:     driver,
		guard:      guard,
		elementIDs: make(map[string]struct{}),
	}, nil
}

// Start launches the driver. Calling Start on a started Env is a no-op.
func (e *Env) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if err := e.driver.Launch(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	e.started = true
	browserDebugLog.Infof("browser started (backend=%s headless=%t)", e.cfg.Backend, e.cfg.Headless)
	return nil
}

// Close shuts the driver down.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}
	e.started = false
	if err := e.driver.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	browserDebugLog.Infof("browser closed")
	return nil
}

// Reset forgets the trajectory and known element IDs.
func (e *Env) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.trajectory = nil
	e.elementIDs = make(map[string]struct{})
	return nil
}

// Trajectory returns a copy of the recorded observations.
func (e *Env) Trajectory() []*Observation {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Observation, len(e.trajectory))
	copy(out, e.trajectory)
	return out
}

func (e *Env) MaxSteps() int            { return e.cfg.MaxSteps }
func (e *Env) ScreenshotsEnabled() bool { return e.cfg.Screenshot }

// Act performs action and snapshots the page. Failures are returned as
// *ActionError; nothing is recorded for a failed action.
func (e *Env) Act(ctx context.Context, action actions.Action) (*Observation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil, ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := action.Validate(); err != nil {
		return nil, newActionError(action, err.Error(), err)
	}

	if err := e.perform(ctx, action); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ae *ActionError
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, newActionError(action, fmt.Sprintf("failed to execute action '%s'", action.Type()), err)
	}

	var scrape *actions.ScrapeAction
	if s, ok := action.(*actions.ScrapeAction); ok {
		scrape = s
	}
	obs, err := e.observe(ctx, scrape)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newActionError(action, "failed to capture the page after the action", err)
	}

	e.trajectory = append(e.trajectory, obs)
	return obs, nil
}

func (e *Env) perform(ctx context.Context, action actions.Action) error {
	browserDebugLog.Debugf("performing %s", action.ExecutionMessage())

	if ia, ok := action.(actions.InteractionAction); ok {
		if _, known := e.elementIDs[ia.ElementID()]; !known {
			return newActionError(action,
				fmt.Sprintf("element with id %s does not exist in the current page", ia.ElementID()),
				fmt.Errorf("%w: %s", ErrElementNotFound, ia.ElementID()))
		}
	}

	switch a := action.(type) {
	case *actions.GotoAction:
		target := normalizeURL(a.URL)
		if err := e.guard.Check(target); err != nil {
			return newActionError(action, fmt.Sprintf("navigation to '%s' is not allowed", a.URL), err)
		}
		return e.driver.Navigate(ctx, target)

	case *actions.ClickAction:
		return e.driver.Click(ctx, elementSelector(a.ID))

	case *actions.FillAction:
		if err := e.driver.Fill(ctx, elementSelector(a.ID), a.Value); err != nil {
			return err
		}
		if a.PressEnter {
			return e.driver.Press(ctx, "Enter")
		}
		return nil

	case *actions.PressKeyAction:
		return e.driver.Press(ctx, a.Key)

	case *actions.ScrollAction:
		amount := a.Amount
		if amount == 0 {
			amount = e.cfg.ViewportHeight
		}
		if a.Direction == actions.ScrollUp {
			amount = -amount
		}
		_, err := e.driver.Evaluate(ctx, scrollScript(amount))
		return err

	case *actions.GoBackAction:
		return e.driver.GoBack(ctx)

	case *actions.WaitAction:
		timer := time.NewTimer(time.Duration(a.TimeMs) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}

	case *actions.ScrapeAction, *actions.CompletionAction:
		return nil

	default:
		return newActionError(action, fmt.Sprintf("action '%s' is not supported", action.Type()),
			fmt.Errorf("%w: %T", ErrUnsupportedAction, action))
	}
}

// observe snapshots the current page. The element ID set is replaced by the
// snapshot's IDs.
func (e *Env) observe(ctx context.Context, scrape *actions.ScrapeAction) (*Observation, error) {
	raw, err := e.driver.Evaluate(ctx, snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("snapshot script failed: %w", err)
	}
	snap, err := parseSnapshot(raw)
	if err != nil {
		return nil, err
	}

	pageURL, err := e.driver.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read url: %w", err)
	}
	title, err := e.driver.Title(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read title: %w", err)
	}
	tabs, err := e.driver.Tabs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	rawHTML, err := e.driver.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page html: %w", err)
	}

	page, err := extractPageText(rawHTML, e.cfg.MaxContentLength)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = page.Title
	}

	obs := &Observation{
		Metadata: SnapshotMetadata{
			Title:     title,
			URL:       pageURL,
			Viewport:  snap.Viewport,
			Tabs:      tabs,
			Timestamp: time.Now(),
		},
		Elements: snap.Elements,
		Content:  page.Text,
	}

	if scrape != nil {
		full, err := extractPageText(rawHTML, DefaultMaxScrapeLength)
		if err != nil {
			return nil, err
		}
		obs.Data = &ScrapedData{Instructions: scrape.Instructions, Content: full.Text}
	}

	if e.cfg.Screenshot {
		shot, err := e.driver.Screenshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to capture screenshot: %w", err)
		}
		obs.Screenshot = shot
	}

	e.elementIDs = make(map[string]struct{}, len(snap.Elements))
	for _, el := range snap.Elements {
		e.elementIDs[el.ID] = struct{}{}
	}
	return obs, nil
}
