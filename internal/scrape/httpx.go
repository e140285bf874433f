package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPExtractor fetches the listing page with a plain GET. Enough for pages
// that ship their listing in the initial HTML; use RenderExtractor when the
// listing is assembled by scripts.
type HTTPExtractor struct {
	url    string
	rules  Rules
	client *http.Client
}

func NewHTTPExtractor(pageURL string, rules Rules, timeout time.Duration) *HTTPExtractor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPExtractor{
		url:   pageURL,
		rules: rules,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context) ([]Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "docwatch/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", e.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page responded with status: %d", resp.StatusCode)
	}

	return ExtractLinks(resp.Body, e.url, e.rules)
}
