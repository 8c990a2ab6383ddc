package listings

import (
	"classifieds-scraper/models"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newDriver(f *fakeFetcher, sink *recordingSink, retries int) *Driver[models.Vehicle] {
	return NewDriver[models.Vehicle](newProcessor(f), sink, DriverOptions{EmptyPageRetries: retries})
}

func TestRunStopsOnSentinel(t *testing.T) {
	f := &fakeFetcher{pages: map[string]fakePage{
		pageURL(1): {payload: payload(vehicles("p1", 3)...)},
		pageURL(2): {payload: payload(vehicles("p2", 3)...)},
		pageURL(3): {noResults: true},
	}}
	sink := &recordingSink{}

	res, err := newDriver(f, sink, 1).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Records, 6)
	require.Len(t, sink.calls, 1)
	require.Len(t, sink.calls[0], 6)
	require.Equal(t, 3, res.LastPage)
	require.Equal(t, StopNoMoreResults, res.Reason)
	require.Equal(t, []string{pageURL(1), pageURL(2), pageURL(3)}, f.probes)
	require.Equal(t, []string{pageURL(1), pageURL(2)}, f.fetches)
}

func TestRunDropsIncompleteRecord(t *testing.T) {
	missing := vehicle("no-price")
	delete(missing, "price")

	f := &fakeFetcher{pages: map[string]fakePage{
		pageURL(1): {payload: payload(vehicle("aqua"), missing)},
		pageURL(2): {noResults: true},
	}}
	sink := &recordingSink{}

	res, err := newDriver(f, sink, 0).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"aqua"}, names(res.Records))
	require.Equal(t, 1, res.Seen.Len())
}

func TestRunRejectsRepeatAcrossPages(t *testing.T) {
	f := &fakeFetcher{pages: map[string]fakePage{
		pageURL(1): {payload: payload(vehicle("aqua"))},
		pageURL(2): {payload: payload(vehicle("aqua"))},
		pageURL(3): {noResults: true},
	}}
	sink := &recordingSink{}

	res, err := newDriver(f, sink, 0).Run(context.Background())
	require.NoError(t, err)

	// page 2 is empty after dedupe, which ends the crawl with no retries
	require.Equal(t, []string{"aqua"}, names(res.Records))
	require.Equal(t, StopEmptyPage, res.Reason)
	require.Equal(t, 2, res.LastPage)
	require.Len(t, sink.calls, 1)
}

func TestRunFirstPageFetchFails(t *testing.T) {
	for _, retries := range []int{0, 1} {
		f := &fakeFetcher{pages: map[string]fakePage{pageURL(1): {fail: true}}}
		sink := &recordingSink{}

		res, err := newDriver(f, sink, retries).Run(context.Background())
		require.NoError(t, err)

		require.Empty(t, res.Records)
		require.Empty(t, sink.calls, "sink must not run without records")
		require.Equal(t, 1, res.LastPage)
		require.Equal(t, StopEmptyPage, res.Reason)
		require.Equal(t, retries+1, res.PagesFetched)
	}
}

func TestRunRetriesEmptyPageOnce(t *testing.T) {
	f := &fakeFetcher{pages: map[string]fakePage{
		pageURL(1): {payload: payload(vehicle("aqua"))},
		pageURL(2): {payload: "[]"},
	}}
	sink := &recordingSink{}

	res, err := newDriver(f, sink, 1).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{pageURL(1), pageURL(2), pageURL(2)}, f.fetches)
	require.Equal(t, StopEmptyPage, res.Reason)
	require.Len(t, res.Records, 1)
}

// scriptedProcessor returns a fixed page sequence; a transient gap recovers on retry.
type scriptedProcessor struct {
	calls   int
	results []PageResult[models.Vehicle]
}

func (p *scriptedProcessor) Process(_ context.Context, page int, seen SeenSet) PageResult[models.Vehicle] {
	r := p.results[p.calls]
	p.calls++
	for _, rec := range r.Records {
		seen.Add(rec.Identity())
	}
	r.Page = page
	return r
}

func TestRunRecoversFromTransientEmptyPage(t *testing.T) {
	proc := &scriptedProcessor{results: []PageResult[models.Vehicle]{
		{Records: []models.Vehicle{{Name: "a"}}},
		{},
		{Records: []models.Vehicle{{Name: "b"}}},
		{NoMoreResults: true},
	}}
	sink := &recordingSink{}

	res, err := NewDriver[models.Vehicle](proc, sink, DriverOptions{EmptyPageRetries: 1}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names(res.Records))
	require.Equal(t, 3, res.LastPage)
	require.Equal(t, 4, res.PagesFetched)
}

func TestRunIsIdempotent(t *testing.T) {
	pages := map[string]fakePage{
		pageURL(1): {payload: payload(vehicle("a"), vehicle("b"), vehicle("a"))},
		pageURL(2): {payload: payload(vehicle("c"), vehicle("b"))},
		pageURL(3): {noResults: true},
	}

	first, err := newDriver(&fakeFetcher{pages: pages}, &recordingSink{}, 1).Run(context.Background())
	require.NoError(t, err)
	second, err := newDriver(&fakeFetcher{pages: pages}, &recordingSink{}, 1).Run(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(first.Records, second.Records); diff != "" {
		t.Errorf("records differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Seen, second.Seen); diff != "" {
		t.Errorf("seen sets differ between runs (-first +second):\n%s", diff)
	}
	require.Equal(t, []string{"a", "b", "c"}, names(first.Records))
}

func TestRunHonoursMaxPages(t *testing.T) {
	f := &fakeFetcher{pages: map[string]fakePage{
		pageURL(1): {payload: payload(vehicle("a"))},
		pageURL(2): {payload: payload(vehicle("b"))},
		pageURL(3): {payload: payload(vehicle("c"))},
	}}

	res, err := NewDriver[models.Vehicle](newProcessor(f), nil, DriverOptions{MaxPages: 2}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StopMaxPages, res.Reason)
	require.Equal(t, []string{"a", "b"}, names(res.Records))
}

func TestRunReturnsSinkError(t *testing.T) {
	f := &fakeFetcher{pages: map[string]fakePage{
		pageURL(1): {payload: payload(vehicle("a"))},
		pageURL(2): {noResults: true},
	}}
	sink := &recordingSink{err: errors.New("disk full")}

	res, err := newDriver(f, sink, 0).Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, sink.err)
	require.Len(t, res.Records, 1)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	f := &fakeFetcher{pages: map[string]fakePage{
		pageURL(1): {payload: payload(vehicle("a"))},
		pageURL(2): {payload: payload(vehicle("b"))},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	res, err := newDriver(f, sink, 0).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, StopCancelled, res.Reason)
	require.Equal(t, []string{"a"}, names(res.Records))
	require.Len(t, sink.calls, 1)
}
