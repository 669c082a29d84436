package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// ChromedpDriver drives Chrome over the DevTools protocol with chromedp.
type ChromedpDriver struct {
	cfg Config

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewChromedpDriver creates an unlaunched chromedp driver.
func NewChromedpDriver(cfg Config) *ChromedpDriver {
	return &ChromedpDriver{cfg: cfg}
}

// Launch starts a Chrome process. The browser lifetime is bound to Close,
// not to ctx; ctx only bounds the startup.
func (d *ChromedpDriver) Launch(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tabCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(d.cfg.ViewportWidth, d.cfg.ViewportHeight),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	startCtx, cancel := context.WithTimeout(tabCtx, d.timeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(startCtx); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("failed to launch chrome: %w", err)
	}

	d.allocCancel, d.tabCtx, d.tabCancel = allocCancel, tabCtx, tabCancel
	return nil
}

// Close cancels the tab and allocator contexts, which terminates Chrome.
func (d *ChromedpDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tabCtx == nil {
		return nil
	}
	d.tabCancel()
	d.allocCancel()
	d.tabCtx, d.tabCancel, d.allocCancel = nil, nil, nil
	return nil
}

func (d *ChromedpDriver) timeout() time.Duration {
	if d.cfg.Timeout > 0 {
		return d.cfg.Timeout
	}
	return DefaultTimeout
}

// run executes actions on the tab with the configured timeout, also
// aborting when the caller's ctx is done.
func (d *ChromedpDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	tabCtx := d.tabCtx
	d.mu.Unlock()

	if tabCtx == nil {
		return ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(tabCtx, d.timeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (d *ChromedpDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (d *ChromedpDriver) Click(ctx context.Context, selector string) error {
	if err := d.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (d *ChromedpDriver) Fill(ctx context.Context, selector, value string) error {
	err := d.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// chromedpKeys maps playwright-style key names onto chromedp key codes.
var chromedpKeys = map[string]string{
	"Enter":      kb.Enter,
	"Tab":        kb.Tab,
	"Escape":     kb.Escape,
	"Backspace":  kb.Backspace,
	"Delete":     kb.Delete,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"PageUp":     kb.PageUp,
	"PageDown":   kb.PageDown,
	"Home":       kb.Home,
	"End":        kb.End,
}

func (d *ChromedpDriver) Press(ctx context.Context, key string) error {
	code, ok := chromedpKeys[key]
	if !ok {
		if len([]rune(key)) != 1 {
			return fmt.Errorf("unsupported key %q", key)
		}
		code = key
	}
	if err := d.run(ctx, chromedp.KeyEvent(code)); err != nil {
		return fmt.Errorf("key press failed: %w", err)
	}
	return nil
}

func (d *ChromedpDriver) GoBack(ctx context.Context) error {
	if err := d.run(ctx, chromedp.NavigateBack()); err != nil {
		return fmt.Errorf("go back failed: %w", err)
	}
	return nil
}

func (d *ChromedpDriver) Evaluate(ctx context.Context, script string) (string, error) {
	var res string
	if err := d.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return "", fmt.Errorf("evaluate failed: %w", err)
	}
	return res, nil
}

func (d *ChromedpDriver) Title(ctx context.Context) (string, error) {
	var title string
	err := d.run(ctx, chromedp.Title(&title))
	return title, err
}

func (d *ChromedpDriver) URL(ctx context.Context) (string, error) {
	var loc string
	err := d.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (d *ChromedpDriver) HTML(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (d *ChromedpDriver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := d.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (d *ChromedpDriver) Tabs(ctx context.Context) ([]TabData, error) {
	d.mu.Lock()
	tabCtx := d.tabCtx
	d.mu.Unlock()

	if tabCtx == nil {
		return nil, ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := chromedp.Targets(tabCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	var tabs []TabData
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		tabs = append(tabs, TabData{TabID: len(tabs), Title: info.Title, URL: info.URL})
	}
	return tabs, nil
}
