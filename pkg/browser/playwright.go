package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver drives a Chromium page through playwright-go.
type PlaywrightDriver struct {
	cfg Config

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// NewPlaywrightDriver creates an unlaunched playwright driver.
func NewPlaywrightDriver(cfg Config) *PlaywrightDriver {
	return &PlaywrightDriver{cfg: cfg}
}

// Launch installs the playwright browsers if needed, then opens one page.
func (d *PlaywrightDriver) Launch(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.page != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Keep playwright's installer quiet so it does not interleave with CLI output.
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	headless := d.cfg.Headless
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  d.cfg.ViewportWidth,
			Height: d.cfg.ViewportHeight,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("failed to create page: %w", err)
	}

	timeout := d.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	page.SetDefaultTimeout(float64(timeout.Milliseconds()))

	d.pw, d.browser, d.context, d.page = pw, browser, bctx, page
	return nil
}

// Close releases the page, context, browser and playwright server.
func (d *PlaywrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw == nil {
		return nil
	}

	var errs []error
	if err := d.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	d.pw, d.browser, d.context, d.page = nil, nil, nil, nil

	if len(errs) > 0 {
		return fmt.Errorf("errors closing playwright: %v", errs)
	}
	return nil
}

// active returns the page to act on. New tabs opened by the page become the
// active page.
func (d *PlaywrightDriver) active(ctx context.Context) (playwright.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.page == nil {
		return nil, ErrNotStarted
	}
	pages := d.context.Pages()
	if n := len(pages); n > 0 && pages[n-1] != d.page && !pages[n-1].IsClosed() {
		d.page = pages[n-1]
	}
	if d.page.IsClosed() && len(pages) > 0 {
		d.page = pages[0]
	}
	return d.page, nil
}

func (d *PlaywrightDriver) Navigate(ctx context.Context, url string) error {
	page, err := d.active(ctx)
	if err != nil {
		return err
	}
	waitUntil := playwright.WaitUntilStateDomcontentloaded
	if _, err := page.Goto(url, playwright.PageGotoOptions{WaitUntil: waitUntil}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (d *PlaywrightDriver) Click(ctx context.Context, selector string) error {
	page, err := d.active(ctx)
	if err != nil {
		return err
	}
	if err := page.Click(selector); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (d *PlaywrightDriver) Fill(ctx context.Context, selector, value string) error {
	page, err := d.active(ctx)
	if err != nil {
		return err
	}
	if err := page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

func (d *PlaywrightDriver) Press(ctx context.Context, key string) error {
	page, err := d.active(ctx)
	if err != nil {
		return err
	}
	if err := page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("key press failed: %w", err)
	}
	return nil
}

func (d *PlaywrightDriver) GoBack(ctx context.Context) error {
	page, err := d.active(ctx)
	if err != nil {
		return err
	}
	if _, err := page.GoBack(); err != nil {
		return fmt.Errorf("go back failed: %w", err)
	}
	return nil
}

func (d *PlaywrightDriver) Evaluate(ctx context.Context, script string) (string, error) {
	page, err := d.active(ctx)
	if err != nil {
		return "", err
	}
	res, err := page.Evaluate(script)
	if err != nil {
		return "", fmt.Errorf("evaluate failed: %w", err)
	}
	s, ok := res.(string)
	if !ok {
		return fmt.Sprint(res), nil
	}
	return s, nil
}

func (d *PlaywrightDriver) Title(ctx context.Context) (string, error) {
	page, err := d.active(ctx)
	if err != nil {
		return "", err
	}
	return page.Title()
}

func (d *PlaywrightDriver) URL(ctx context.Context) (string, error) {
	page, err := d.active(ctx)
	if err != nil {
		return "", err
	}
	return page.URL(), nil
}

func (d *PlaywrightDriver) HTML(ctx context.Context) (string, error) {
	page, err := d.active(ctx)
	if err != nil {
		return "", err
	}
	return page.Content()
}

func (d *PlaywrightDriver) Screenshot(ctx context.Context) ([]byte, error) {
	page, err := d.active(ctx)
	if err != nil {
		return nil, err
	}
	return page.Screenshot()
}

func (d *PlaywrightDriver) Tabs(ctx context.Context) ([]TabData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.context == nil {
		return nil, ErrNotStarted
	}
	var tabs []TabData
	for i, p := range d.context.Pages() {
		title, err := p.Title()
		if err != nil {
			title = ""
		}
		tabs = append(tabs, TabData{TabID: i, Title: title, URL: p.URL()})
	}
	return tabs, nil
}
