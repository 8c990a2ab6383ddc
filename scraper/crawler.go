package scraper

import (
	"classifieds-scraper/scraper/extract"
	"context"
	"strings"
)

// PageSource loads a URL within a browsing session and returns its HTML.
type PageSource interface {
	Fetch(ctx context.Context, sessionID, url string) (string, error)
	Close() error
}

// Extractor turns cleaned page content into a JSON array of records.
type Extractor interface {
	Extract(ctx context.Context, content string) (string, error)
}

type RunOptions struct {
	SessionID string
	// CSSSelector scopes the content handed to the extractor.
	CSSSelector string
	// Extractor is optional; without it Run only fetches and cleans.
	Extractor Extractor
}

// Result mirrors one fetch. Success is false when the page could not be loaded
// or cleaned, or when extraction was requested and failed.
type Result struct {
	URL              string
	Success          bool
	HTML             string
	CleanedText      string
	Content          string
	ExtractedContent string
	ErrorMessage     string
}

type Crawler struct {
	source PageSource
}

func NewCrawler(source PageSource) *Crawler {
	return &Crawler{source: source}
}

func (c *Crawler) Run(ctx context.Context, url string, opts RunOptions) Result {
	res := Result{URL: url}

	html, err := c.source.Fetch(ctx, opts.SessionID, url)
	if err != nil {
		res.ErrorMessage = err.Error()
		return res
	}
	res.HTML = html

	page, err := extract.Clean(html, url, opts.CSSSelector)
	if err != nil {
		res.ErrorMessage = err.Error()
		return res
	}
	res.CleanedText = page.Text
	res.Content = page.Content

	if opts.Extractor == nil {
		res.Success = true
		return res
	}

	if strings.TrimSpace(page.Content) == "" {
		res.ErrorMessage = "no content matched selector " + opts.CSSSelector
		return res
	}

	extracted, err := opts.Extractor.Extract(ctx, page.Content)
	if err != nil {
		res.ErrorMessage = err.Error()
		return res
	}
	res.ExtractedContent = extracted
	res.Success = true
	return res
}

func (c *Crawler) Close() error {
	return c.source.Close()
}
