package listings

import (
	"classifieds-scraper/models"
	"classifieds-scraper/scraper"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const testBase = "https://riyasewana.com/search/cars"

type fakePage struct {
	noResults bool
	fail      bool
	payload   string
}

// fakeFetcher serves scripted pages. Calls without an extractor are probes.
type fakeFetcher struct {
	pages   map[string]fakePage
	probes  []string
	fetches []string
}

func (f *fakeFetcher) Run(_ context.Context, url string, opts scraper.RunOptions) scraper.Result {
	p, ok := f.pages[url]

	if opts.Extractor == nil {
		f.probes = append(f.probes, url)
		if !ok || p.fail {
			return scraper.Result{URL: url, ErrorMessage: "navigation failed"}
		}
		text := "Cars for sale"
		if p.noResults {
			text = "Sorry. No results found. Try another search."
		}
		return scraper.Result{URL: url, Success: true, CleanedText: text}
	}

	f.fetches = append(f.fetches, url)
	if !ok || p.fail {
		return scraper.Result{URL: url, ErrorMessage: "navigation failed"}
	}
	return scraper.Result{URL: url, Success: true, ExtractedContent: p.payload}
}

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, string) (string, error) {
	return "", errors.New("not used by fakeFetcher")
}

type recordingSink struct {
	calls [][]models.Vehicle
	err   error
}

func (s *recordingSink) Save(_ context.Context, records []models.Vehicle) error {
	s.calls = append(s.calls, append([]models.Vehicle(nil), records...))
	return s.err
}

func vehicle(name string) map[string]any {
	return map[string]any{
		"name":        name,
		"location":    "Colombo",
		"price":       "Rs. 950,000",
		"mileage":     120000,
		"date":        "2024-05-14",
		"image_url":   "https://img.example/" + name + ".jpg",
		"listing_url": "https://riyasewana.com/buy/" + name,
		"error":       false,
	}
}

func payload(records ...map[string]any) string {
	data, err := json.Marshal(records)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func vehicles(prefix string, n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = vehicle(fmt.Sprintf("%s-%d", prefix, i+1))
	}
	return out
}

func pageURL(n int) string {
	return PageURL(testBase, "page", n)
}

func newProcessor(f *fakeFetcher) *PageProcessor[models.Vehicle] {
	return NewPageProcessor[models.Vehicle](f, stubExtractor{}, models.VehicleSchema, PageOptions{
		BaseURL:         testBase,
		CSSSelector:     "[class^='item round']",
		NoResultsMarker: "No results found",
		SessionID:       "test-session",
	})
}

func names(records []models.Vehicle) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Identity()
	}
	return out
}
