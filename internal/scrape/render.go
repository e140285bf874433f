package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// RenderExtractor loads the listing page in headless Chrome so that
// script-built listings are present in the DOM before links are read.
// Each Extract launches a fresh browser and tears it down afterwards; a
// single poll does not justify keeping Chrome alive between runs.
type RenderExtractor struct {
	url     string
	rules   Rules
	timeout time.Duration
	logger  *slog.Logger
}

func NewRenderExtractor(pageURL string, rules Rules, timeout time.Duration, logger *slog.Logger) *RenderExtractor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderExtractor{url: pageURL, rules: rules, timeout: timeout, logger: logger}
}

func (e *RenderExtractor) Extract(ctx context.Context) ([]Document, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	l := launcher.New().Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := page.Context(ctx).Navigate(e.url); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", e.url, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		// A slow third-party widget should not sink the run; whatever is in
		// the DOM by now is still worth reading.
		e.logger.Warn("Page load wait timed out", "url", e.url, "error", err)
	}

	res, err := page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered DOM: %w", err)
	}

	return ExtractLinks(strings.NewReader(res.Value.Str()), e.url, e.rules)
}
