package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/config"
)

// Connector drives a headless Chrome tab and exposes the simplified page
// model to the agent. One connector serves one session.
type Connector struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	cfg    config.BrowserConfig
	logger *zap.Logger

	mu        sync.Mutex
	selectors map[string]string
	isClosed  bool
}

var _ schemas.BrowserConnector = (*Connector)(nil)

// NewConnector launches a browser and connects a fresh tab to it.
func NewConnector(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Connector, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force target creation so the first Navigate does not pay the startup
	// cost inside its own timeout, and pin the viewport so element layout is
	// reproducible across runs.
	width, height := cfg.ViewportWidth, cfg.ViewportHeight
	if width <= 0 || height <= 0 {
		width, height = 1366, 900
	}
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(runCtx context.Context) error {
		return emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1.0, false).Do(runCtx)
	}))
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Connector{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      tabCancel,
		cfg:         cfg,
		logger:      logger.Named("browser"),
		selectors:   make(map[string]string),
	}, nil
}

// Navigate loads url, waits for the page to settle and returns the
// simplified page.
func (c *Connector) Navigate(ctx context.Context, url string) (*schemas.PageSnapshot, error) {
	c.logger.Info("Navigating", zap.String("url", url))

	navCtx, cancel := c.combined(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		c.logger.Error("Navigation failed", zap.String("url", url), zap.Error(err))
		return &schemas.PageSnapshot{URL: url, ErrorMessage: err.Error()}, nil
	}

	// Give client side rendering a moment to populate the DOM.
	if c.cfg.PostNavigateWait > 0 {
		select {
		case <-time.After(c.cfg.PostNavigateWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return c.ObservePage(ctx)
}

// ObservePage simplifies the current DOM without navigating. Failures are
// reported inside the snapshot so perception always has something to read.
func (c *Connector) ObservePage(ctx context.Context) (*schemas.PageSnapshot, error) {
	obsCtx, cancel := c.combined(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	var rawHTML, pageURL string
	err := chromedp.Run(obsCtx,
		chromedp.Location(&pageURL),
		chromedp.OuterHTML("html", &rawHTML, chromedp.ByQuery),
	)
	if err != nil {
		c.logger.Error("Could not capture page content", zap.Error(err))
		return &schemas.PageSnapshot{URL: pageURL, ErrorMessage: err.Error()}, nil
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return &schemas.PageSnapshot{URL: pageURL, ErrorMessage: err.Error()}, nil
	}

	snap, selectors := Simplify(doc, pageURL)

	c.mu.Lock()
	c.selectors = selectors
	c.mu.Unlock()

	c.logger.Debug("Simplified page",
		zap.String("url", snap.URL),
		zap.Int("clickables", len(snap.Clickables)),
		zap.Int("inputs", len(snap.Inputs)),
		zap.Int("text_blocks", len(snap.TextBlocks)),
	)
	return snap, nil
}

// Execute dispatches one action. Every failure, including an unknown action
// type or a stale element name, comes back as a failed ActionResult.
func (c *Connector) Execute(ctx context.Context, action schemas.Action) schemas.ActionResult {
	action = action.Normalize()
	c.logger.Info("Executing action",
		zap.String("type", string(action.Type)),
		zap.String("name", action.Name),
	)

	execCtx, cancel := c.combined(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	var err error
	switch action.Type {
	case schemas.ActionClick:
		sel, ok := c.lookup(action)
		if !ok {
			return fail("Action failed: unknown element %q", action.Name)
		}
		err = chromedp.Run(execCtx,
			chromedp.Click(sel, chromedp.ByQuery),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)

	case schemas.ActionInput:
		sel, ok := c.lookup(action)
		if !ok {
			return fail("Action failed: unknown element %q", action.Name)
		}
		err = chromedp.Run(execCtx,
			chromedp.Clear(sel, chromedp.ByQuery),
			chromedp.SendKeys(sel, action.Value, chromedp.ByQuery),
		)

	case schemas.ActionScroll:
		offset := 600
		if strings.EqualFold(action.Value, "up") {
			offset = -600
		}
		err = chromedp.Run(execCtx,
			chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", offset), nil),
		)

	case schemas.ActionNavigate:
		url := action.NavigationURL()
		if url == "" {
			return fail("Action failed: navigate action has no URL")
		}
		snap, navErr := c.Navigate(ctx, url)
		if navErr != nil {
			err = navErr
		} else if snap.ErrorMessage != "" {
			return fail("Action failed: %s", snap.ErrorMessage)
		}

	case schemas.ActionBack:
		err = chromedp.Run(execCtx,
			chromedp.NavigateBack(),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)

	case schemas.ActionWait:
		seconds := 2
		if n, convErr := strconv.Atoi(strings.TrimSpace(action.Value)); convErr == nil && n > 0 {
			seconds = n
		}
		select {
		case <-time.After(time.Duration(seconds) * time.Second):
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err == nil {
			return schemas.ActionResult{Success: true, Message: fmt.Sprintf("Waited for %d seconds", seconds)}
		}

	default:
		return fail("Unsupported action type: %s", action.Type)
	}

	if err != nil {
		c.logger.Warn("Action failed",
			zap.String("type", string(action.Type)),
			zap.Error(err),
		)
		return fail("Action failed: %v", err)
	}
	return schemas.ActionResult{Success: true, Message: "Executed action successfully"}
}

// Screenshot captures the current viewport as PNG bytes.
func (c *Connector) Screenshot(ctx context.Context) ([]byte, error) {
	shotCtx, cancel := c.combined(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// CurrentURL returns the location of the page the tab is on.
func (c *Connector) CurrentURL(ctx context.Context) (string, error) {
	urlCtx, cancel := c.combined(ctx, 10*time.Second)
	defer cancel()

	var url string
	if err := chromedp.Run(urlCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return url, nil
}

// Close shuts the tab and the browser process down. Safe to call twice.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.isClosed {
		c.mu.Unlock()
		return nil
	}
	c.isClosed = true
	c.mu.Unlock()

	c.logger.Debug("Closing browser")
	c.cancel()
	c.allocCancel()
	return nil
}

// lookup resolves an action's element name to the selector recorded at the
// last ObservePage. A raw Target is accepted as a selector escape hatch.
func (c *Connector) lookup(action schemas.Action) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sel, ok := c.selectors[action.Name]; ok {
		return sel, true
	}
	if action.Target != "" {
		return action.Target, true
	}
	return "", false
}

// combined derives a context bounded by both the tab lifetime and the
// caller's deadline.
func (c *Connector) combined(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel1 := context.WithTimeout(c.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel1)
	return runCtx, func() {
		stop()
		cancel1()
	}
}

func fail(format string, args ...interface{}) schemas.ActionResult {
	return schemas.ActionResult{Success: false, Message: fmt.Sprintf(format, args...)}
}
