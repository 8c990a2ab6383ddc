package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// HTTPSession fetches pages with a plain HTTP client. It works for sites that
// render listings server-side and needs no browser. Session ids are ignored;
// the collector's cookie jar is shared by the whole run.
type HTTPSession struct {
	collector *colly.Collector
}

func NewHTTPSession(opts Options) *HTTPSession {
	if opts.UserAgent == "" {
		opts.UserAgent = RandomUserAgent()
	}

	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	if opts.RequestTimeout > 0 {
		c.SetRequestTimeout(opts.RequestTimeout)
	}

	return &HTTPSession{collector: c}
}

func (h *HTTPSession) Fetch(ctx context.Context, _ string, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	collector := h.collector.Clone()
	var body string
	var responseErr error

	collector.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		responseErr = fmt.Errorf("request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	start := time.Now()
	if err := collector.Visit(url); err != nil {
		return "", fmt.Errorf("failed to visit %s: %w", url, err)
	}
	collector.Wait()

	if responseErr != nil {
		return "", responseErr
	}
	if body == "" {
		return "", fmt.Errorf("empty response from %s after %v", url, time.Since(start).Round(time.Millisecond))
	}
	return body, nil
}

func (h *HTTPSession) Close() error {
	return nil
}
