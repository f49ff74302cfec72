package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sykell/seo-engine/internal/apperr"
	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/provider"
)

func newKeywordFixture(t *testing.T, rankings provider.RankingProvider) (*KeywordTracker, *ActionLog, *fakeClock) {
	t.Helper()
	conn := testDB(t)
	clock := newClock()
	l := newLog(t, conn, clock)
	return NewKeywordTracker(conn, l, KeywordTrackerConfig{Rankings: rankings, Timeout: time.Second, Now: clock.Now}), l, clock
}

func TestNormalizeKeyword(t *testing.T) {
	assert.Equal(t, "go web tips", NormalizeKeyword("  Go   Web\tTIPS "))
	assert.Equal(t, "", NormalizeKeyword("   "))
}

func TestKeywordTracker_TrackUpsertsByPair(t *testing.T) {
	ctx := context.Background()
	tracker, l, _ := newKeywordFixture(t, &fakeRankings{})

	first, err := tracker.Track(ctx, TrackInput{Keyword: "Go Tips", TargetURL: pageA, ContentID: "post-1"})
	require.NoError(t, err)
	assert.Equal(t, "go tips", first.Keyword)
	assert.True(t, first.IsTracking)

	require.NoError(t, tracker.Untrack(ctx, "go tips", pageA))

	second, err := tracker.Track(ctx, TrackInput{Keyword: "go  tips", TargetURL: pageA})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsTracking)
	assert.Equal(t, "post-1", second.ContentID, "empty content id keeps the stored one")

	other, err := tracker.Track(ctx, TrackInput{Keyword: "go tips", TargetURL: "https://example.com/blog/b"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	all, err := tracker.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, logsFor(t, l, db.ActionKeywordTrack), 3)
}

func TestKeywordTracker_TrackValidation(t *testing.T) {
	tracker, _, _ := newKeywordFixture(t, &fakeRankings{})

	_, err := tracker.Track(context.Background(), TrackInput{Keyword: " ", TargetURL: pageA})
	assert.True(t, apperr.IsValidation(err))

	_, err = tracker.Track(context.Background(), TrackInput{Keyword: "go", TargetURL: "not a url"})
	assert.True(t, apperr.IsValidation(err))

	long := "https://example.com/" + strings.Repeat("a", 600)
	_, err = ValidatePageURL(long)
	require.NoError(t, err)
	_, err = tracker.Track(context.Background(), TrackInput{Keyword: "go", TargetURL: long})
	assert.True(t, apperr.IsValidation(err))

	assert.True(t, apperr.IsNotFound(tracker.Untrack(context.Background(), "missing", pageA)))
}

func TestApplyReading(t *testing.T) {
	kw := &db.TrackedKeyword{Keyword: "go", TargetURL: pageA}

	ApplyReading(kw, provider.RankingRow{Position: 12.346, Impressions: 0, Clicks: 0}, epoch)
	assert.Equal(t, 12.35, *kw.CurrentPosition)
	assert.Nil(t, kw.PreviousPosition)
	assert.Nil(t, kw.PositionChange)
	assert.Zero(t, kw.CTR)

	ApplyReading(kw, provider.RankingRow{Position: 8, Impressions: 300, Clicks: 7}, epoch.Add(time.Hour))
	assert.Equal(t, 8.0, *kw.CurrentPosition)
	assert.Equal(t, 12.35, *kw.PreviousPosition)
	assert.Equal(t, 4.35, *kw.PositionChange)
	assert.Equal(t, 2.33, kw.CTR)
	assert.Len(t, kw.History, 2)

	ApplyReading(kw, provider.RankingRow{Position: 10, Impressions: 10, Clicks: 10}, epoch.Add(2*time.Hour))
	assert.Equal(t, -2.0, *kw.PositionChange)
	assert.Equal(t, 100.0, kw.CTR)
}

func TestKeywordTracker_HistoryIsBoundedFIFO(t *testing.T) {
	ctx := context.Background()
	rankings := &fakeRankings{}
	tracker, _, clock := newKeywordFixture(t, rankings)

	_, err := tracker.Track(ctx, TrackInput{Keyword: "go tips", TargetURL: pageA})
	require.NoError(t, err)

	for day := 0; day < 91; day++ {
		rankings.rows = []provider.RankingRow{{
			Query: "Go Tips", Page: pageA, Position: float64(day + 1), Impressions: 100, Clicks: 5,
		}}
		summary, err := tracker.SyncRankings(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, summary.Updated)
		clock.Advance(24 * time.Hour)
	}

	kw, err := tracker.Get(ctx, "go tips", pageA)
	require.NoError(t, err)
	require.Len(t, kw.History, MaxRankingHistory)
	assert.Equal(t, 2.0, kw.History[0].Position, "the first reading was evicted")
	assert.Equal(t, 91.0, kw.History[MaxRankingHistory-1].Position)
	assert.True(t, epoch.Add(24*time.Hour).Equal(kw.History[0].Date))
	assert.Equal(t, 91.0, *kw.CurrentPosition)
	assert.Equal(t, -1.0, *kw.PositionChange)
	assert.Equal(t, 5.0, kw.CTR)
	assert.Len(t, rankings.queries, 91)
}

func TestKeywordTracker_SyncMissingAndUntracked(t *testing.T) {
	ctx := context.Background()
	rankings := &fakeRankings{rows: []provider.RankingRow{
		{Query: "go tips", Page: pageA, Position: 3, Impressions: 50, Clicks: 5},
		{Query: "rust tips", Page: pageA, Position: 1, Impressions: 50, Clicks: 5},
	}}
	tracker, l, _ := newKeywordFixture(t, rankings)

	_, err := tracker.Track(ctx, TrackInput{Keyword: "go tips", TargetURL: pageA})
	require.NoError(t, err)
	_, err = tracker.Track(ctx, TrackInput{Keyword: "go tips", TargetURL: "https://example.com/other"})
	require.NoError(t, err)
	_, err = tracker.Track(ctx, TrackInput{Keyword: "rust tips", TargetURL: pageA})
	require.NoError(t, err)
	require.NoError(t, tracker.Untrack(ctx, "rust tips", pageA))

	summary, err := tracker.SyncRankings(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncSummary{Tracked: 2, Updated: 1, Missing: 1, Rows: 2}, summary)

	missing, err := tracker.Get(ctx, "go tips", "https://example.com/other")
	require.NoError(t, err)
	assert.Nil(t, missing.CurrentPosition)
	assert.Empty(t, missing.History)
	assert.NotNil(t, missing.LastCheckedAt)

	untracked, err := tracker.Get(ctx, "rust tips", pageA)
	require.NoError(t, err)
	assert.Nil(t, untracked.CurrentPosition)

	require.Len(t, rankings.queries, 1)
	q := rankings.queries[0]
	assert.Equal(t, []string{provider.DimensionQuery, provider.DimensionPage}, q.Dimensions)
	assert.Equal(t, DefaultRankingWindow, q.EndDate.Sub(q.StartDate))

	entries := logsFor(t, l, db.ActionKeywordSync)
	require.Len(t, entries, 1)
	assert.Equal(t, db.LogSuccess, entries[0].Status)
}

func TestKeywordTracker_SyncKeepsConcurrentChanges(t *testing.T) {
	ctx := context.Background()
	rankings := &fakeRankings{rows: []provider.RankingRow{
		{Query: "go", Page: pageA, Position: 4, Impressions: 100, Clicks: 10},
		{Query: "rust", Page: pageA, Position: 2, Impressions: 10, Clicks: 1},
	}}
	tracker, l, _ := newKeywordFixture(t, rankings)

	_, err := tracker.Track(ctx, TrackInput{Keyword: "go", TargetURL: pageA})
	require.NoError(t, err)
	_, err = tracker.Track(ctx, TrackInput{Keyword: "rust", TargetURL: pageA})
	require.NoError(t, err)

	rankings.during = func(ctx context.Context) {
		require.NoError(t, tracker.Untrack(ctx, "go", pageA))
		_, err := tracker.Track(ctx, TrackInput{Keyword: "rust", TargetURL: pageA, ContentID: "post-7"})
		require.NoError(t, err)
	}

	summary, err := tracker.SyncRankings(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncSummary{Tracked: 2, Updated: 1, Untracked: 1, Rows: 2}, summary)

	untracked, err := tracker.Get(ctx, "go", pageA)
	require.NoError(t, err)
	assert.False(t, untracked.IsTracking)
	assert.Nil(t, untracked.CurrentPosition)
	assert.Empty(t, untracked.History)

	synced, err := tracker.Get(ctx, "rust", pageA)
	require.NoError(t, err)
	assert.True(t, synced.IsTracking)
	assert.Equal(t, "post-7", synced.ContentID)
	require.NotNil(t, synced.CurrentPosition)
	assert.Equal(t, 2.0, *synced.CurrentPosition)
	require.Len(t, synced.History, 1)
	assert.True(t, epoch.Equal(synced.UpdatedAt))

	entries := logsFor(t, l, db.ActionKeywordSync)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 1, entries[0].Details["untracked"])
}

func TestKeywordTracker_SyncProviderOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("error", func(t *testing.T) {
		tracker, l, _ := newKeywordFixture(t, &fakeRankings{err: errors.New("HTTP 500")})
		_, err := tracker.Track(ctx, TrackInput{Keyword: "go", TargetURL: pageA})
		require.NoError(t, err)

		_, err = tracker.SyncRankings(ctx)
		assert.True(t, apperr.IsProvider(err))
		assert.Equal(t, db.LogFailed, logsFor(t, l, db.ActionKeywordSync)[0].Status)
	})

	t.Run("disabled", func(t *testing.T) {
		tracker, l, _ := newKeywordFixture(t, provider.Disabled{})
		_, err := tracker.Track(ctx, TrackInput{Keyword: "go", TargetURL: pageA})
		require.NoError(t, err)

		summary, err := tracker.SyncRankings(ctx)
		require.NoError(t, err)
		assert.True(t, summary.Skipped)
		assert.Equal(t, db.LogSkipped, logsFor(t, l, db.ActionKeywordSync)[0].Status)
	})

	t.Run("nothing tracked", func(t *testing.T) {
		rankings := &fakeRankings{}
		tracker, _, _ := newKeywordFixture(t, rankings)

		summary, err := tracker.SyncRankings(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.Tracked)
		assert.Empty(t, rankings.queries)
	})
}

func TestKeywordTracker_TopAndStats(t *testing.T) {
	ctx := context.Background()
	rankings := &fakeRankings{rows: []provider.RankingRow{
		{Query: "alpha", Page: pageA, Position: 9},
		{Query: "beta", Page: pageA, Position: 2},
		{Query: "gamma", Page: pageA, Position: 4},
	}}
	tracker, _, _ := newKeywordFixture(t, rankings)

	for _, k := range []string{"alpha", "beta", "gamma", "delta"} {
		_, err := tracker.Track(ctx, TrackInput{Keyword: k, TargetURL: pageA})
		require.NoError(t, err)
	}
	_, err := tracker.SyncRankings(ctx)
	require.NoError(t, err)

	top, err := tracker.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "beta", top[0].Keyword)
	assert.Equal(t, "gamma", top[1].Keyword)

	stats, err := tracker.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, KeywordStats{Tracked: 4, Ranked: 3, AveragePosition: 5}, stats)
}
