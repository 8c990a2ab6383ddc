package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTab() (tab, *bool) {
	cancelled := false
	ctx, cancel := context.WithCancel(context.Background())
	return tab{ctx: ctx, cancel: func() {
		cancelled = true
		cancel()
	}}, &cancelled
}

func TestTabSetFirstSessionClaimsLaunchTab(t *testing.T) {
	launch, _ := newTestTab()
	ts := newTabSet(launch)

	got, ok := ts.get("vehicle_crawler_session-1")
	require.True(t, ok)
	require.Equal(t, launch.ctx, got.ctx)

	again, ok := ts.get("vehicle_crawler_session-1")
	require.True(t, ok)
	require.Equal(t, launch.ctx, again.ctx)

	_, ok = ts.get("venue_crawler_session-2")
	require.False(t, ok, "launch tab belongs to the first session")
}

func TestTabSetAddedTabsAreReused(t *testing.T) {
	launch, _ := newTestTab()
	ts := newTabSet(launch)
	ts.get("a")

	extra, _ := newTestTab()
	ts.add("b", extra)

	got, ok := ts.get("b")
	require.True(t, ok)
	require.Equal(t, extra.ctx, got.ctx)
}

func TestTabSetCloseAllLeavesLaunchTabToBrowser(t *testing.T) {
	launch, launchCancelled := newTestTab()
	ts := newTabSet(launch)
	ts.get("a")

	extra, extraCancelled := newTestTab()
	ts.add("b", extra)

	ts.closeAll(launch.ctx)

	require.True(t, *extraCancelled)
	require.False(t, *launchCancelled)
	_, ok := ts.get("a")
	require.False(t, ok)
}
