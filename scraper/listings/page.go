package listings

import (
	"bytes"
	"classifieds-scraper/models"
	"classifieds-scraper/scraper"
	"classifieds-scraper/scraper/extract"
	"classifieds-scraper/utils"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Fetcher is the fetch capability the processor drives: it loads a URL and,
// when opts carries an extractor, returns the extracted JSON payload.
type Fetcher interface {
	Run(ctx context.Context, url string, opts scraper.RunOptions) scraper.Result
}

type PageResult[T models.Record] struct {
	Page    int
	URL     string
	Records []T
	// NoMoreResults is set only when the site explicitly reported an empty
	// search. A page that simply yielded nothing leaves it false.
	NoMoreResults bool
}

type PageOptions struct {
	BaseURL         string
	PageParam       string
	CSSSelector     string
	NoResultsMarker string
	SessionID       string
}

type PageProcessor[T models.Record] struct {
	fetcher   Fetcher
	extractor scraper.Extractor
	schema    models.Schema
	opts      PageOptions
}

func NewPageProcessor[T models.Record](fetcher Fetcher, extractor scraper.Extractor, schema models.Schema, opts PageOptions) *PageProcessor[T] {
	if opts.PageParam == "" {
		opts.PageParam = "page"
	}
	return &PageProcessor[T]{
		fetcher:   fetcher,
		extractor: extractor,
		schema:    schema,
		opts:      opts,
	}
}

// PageURL returns base unchanged for the first page and base with the page
// query parameter set for every later one.
func PageURL(base, param string, page int) string {
	if page <= 1 {
		return base
	}

	u, err := url.Parse(base)
	if err != nil {
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%s%s=%d", base, sep, param, page)
	}

	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// Process fetches one page and returns its clean records. Identities of kept
// records are added to seen. Fetch and extraction failures are logged and
// reported as an empty page; nothing is returned as an error.
func (p *PageProcessor[T]) Process(ctx context.Context, page int, seen SeenSet) PageResult[T] {
	pageURL := PageURL(p.opts.BaseURL, p.opts.PageParam, page)
	result := PageResult[T]{Page: page, URL: pageURL}
	utils.Info("Fetching %s", pageURL)

	if p.noResults(ctx, pageURL) {
		result.NoMoreResults = true
		return result
	}

	res := p.fetcher.Run(ctx, pageURL, scraper.RunOptions{
		SessionID:   p.opts.SessionID,
		CSSSelector: p.opts.CSSSelector,
		Extractor:   p.extractor,
	})
	if !res.Success || strings.TrimSpace(res.ExtractedContent) == "" {
		utils.Warn("Failed to fetch page %d: %s", page, res.ErrorMessage)
		return result
	}

	var raws []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(res.ExtractedContent), &raws); err != nil {
		utils.Warn("Could not parse extracted content on page %d: %v", page, err)
		return result
	}
	if len(raws) == 0 {
		utils.Warn("No %s records found on page %d", p.schema.Name, page)
		return result
	}
	utils.Debug("Extracted %d raw records from page %d", len(raws), page)

	for _, raw := range raws {
		if rec, ok := p.accept(raw, seen); ok {
			result.Records = append(result.Records, rec)
		}
	}

	if len(result.Records) == 0 {
		utils.Warn("No complete %s records found on page %d", p.schema.Name, page)
		return result
	}

	utils.Success("Extracted %d %s records from page %d", len(result.Records), p.schema.Name, page)
	return result
}

func (p *PageProcessor[T]) accept(raw map[string]json.RawMessage, seen SeenSet) (T, bool) {
	var zero T

	if flag, ok := raw["error"]; ok && bytes.Equal(bytes.TrimSpace(flag), []byte("false")) {
		delete(raw, "error")
	}

	if !IsComplete(raw, p.schema.Required) {
		utils.Debug("Skipping incomplete record: %s", compact(raw))
		return zero, false
	}

	rec, err := models.Decode[T](raw)
	if err != nil {
		utils.Debug("Skipping malformed record: %v", err)
		return zero, false
	}

	id := rec.Field(p.schema.IdentityField)
	if IsDuplicate(id, seen) {
		utils.Debug("Duplicate %s found: %s", p.schema.Name, id)
		return zero, false
	}

	seen.Add(id)
	return rec, true
}

// noResults runs the separate probe fetch. A failed probe means "results may
// still exist".
func (p *PageProcessor[T]) noResults(ctx context.Context, pageURL string) bool {
	if p.opts.NoResultsMarker == "" {
		return false
	}

	res := p.fetcher.Run(ctx, pageURL, scraper.RunOptions{SessionID: p.opts.SessionID})
	if !res.Success {
		utils.Debug("No-results probe failed for %s: %s", pageURL, res.ErrorMessage)
		return false
	}

	if extract.ContainsMarker(res.CleanedText, p.opts.NoResultsMarker) {
		utils.Info("Found %q on %s", p.opts.NoResultsMarker, pageURL)
		return true
	}
	return false
}

func compact(raw map[string]json.RawMessage) string {
	data, err := json.Marshal(raw)
	if err != nil {
		return "<unprintable>"
	}
	return string(data)
}
