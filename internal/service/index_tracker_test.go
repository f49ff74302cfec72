package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sykell/seo-engine/internal/apperr"
	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/provider"
)

const pageA = "https://example.com/blog/a"

type trackerFixture struct {
	tracker   *IndexTracker
	log       *ActionLog
	clock     *fakeClock
	submitter *fakeSubmitter
	inspector *fakeInspector
	perf      *fakePerformance
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()
	conn := testDB(t)
	clock := newClock()
	f := &trackerFixture{
		log:       newLog(t, conn, clock),
		clock:     clock,
		submitter: &fakeSubmitter{},
		inspector: &fakeInspector{verdicts: map[string]provider.Inspection{}},
		perf:      &fakePerformance{scores: map[provider.Strategy]int{provider.StrategyMobile: 71, provider.StrategyDesktop: 93}},
	}
	f.tracker = NewIndexTracker(conn, f.log, IndexTrackerConfig{
		Submitter:   f.submitter,
		Inspector:   f.inspector,
		Performance: f.perf,
		Timeout:     time.Second,
		Now:         clock.Now,
	})
	return f
}

func TestIndexTracker_SubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	first, err := f.tracker.Submit(ctx, pageA, "post-1")
	require.NoError(t, err)
	assert.Equal(t, db.IndexSubmitted, first.Status)
	assert.Equal(t, "fake-indexing", first.Method)
	require.NotNil(t, first.SubmittedAt)

	f.clock.Advance(time.Hour)
	second, err := f.tracker.Submit(ctx, pageA, "post-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, db.IndexSubmitted, second.Status)
	assert.True(t, first.SubmittedAt.Equal(*second.SubmittedAt))
	assert.Len(t, f.submitter.calls, 1)

	records, err := f.tracker.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	entries := logsFor(t, f.log, db.ActionSubmitIndex)
	require.Len(t, entries, 2)
	assert.Equal(t, db.LogSkipped, entries[0].Status)
	assert.Equal(t, db.LogSuccess, entries[1].Status)
}

func TestIndexTracker_SubmitFailureStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)
	f.submitter.err = errors.New("HTTP 503: unavailable")

	record, err := f.tracker.Submit(ctx, pageA, "")
	require.NoError(t, err)
	assert.Equal(t, db.IndexPending, record.Status)
	assert.Contains(t, record.ErrorMessage, "503")
	assert.Nil(t, record.SubmittedAt)

	entries := logsFor(t, f.log, db.ActionSubmitIndex)
	require.Len(t, entries, 1)
	assert.Equal(t, db.LogFailed, entries[0].Status)
}

func TestIndexTracker_SubmitWithDisabledProvider(t *testing.T) {
	ctx := context.Background()
	conn := testDB(t)
	clock := newClock()
	l := newLog(t, conn, clock)
	tracker := NewIndexTracker(conn, l, IndexTrackerConfig{Now: clock.Now})

	record, err := tracker.Submit(ctx, pageA, "")
	require.NoError(t, err)
	assert.Equal(t, db.IndexPending, record.Status)
	assert.Equal(t, db.LogSkipped, logsFor(t, l, db.ActionSubmitIndex)[0].Status)

	summary, err := tracker.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Checked)
}

func TestIndexTracker_SubmitRejectsInvalidURL(t *testing.T) {
	f := newTrackerFixture(t)
	for _, raw := range []string{"", "   ", "/relative/path", "ftp://example.com/x", "https://"} {
		_, err := f.tracker.Submit(context.Background(), raw, "")
		assert.True(t, apperr.IsValidation(err), raw)
	}
	assert.Empty(t, f.submitter.calls)
}

func TestIndexTracker_PollRespectsStalenessThreshold(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)
	f.inspector.verdicts[pageA] = provider.Inspection{Verdict: provider.VerdictIndexed, CoverageState: "Submitted and indexed"}

	_, err := f.tracker.Submit(ctx, pageA, "post-1")
	require.NoError(t, err)

	f.clock.Advance(23 * time.Hour)
	summary, err := f.tracker.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Checked)
	assert.Zero(t, f.inspector.calls)

	f.clock.Advance(2 * time.Hour)
	summary, err = f.tracker.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, PollSummary{Checked: 1, Indexed: 1}, summary)

	record, err := f.tracker.Get(ctx, pageA)
	require.NoError(t, err)
	assert.Equal(t, db.IndexIndexed, record.Status)
	assert.Equal(t, "Submitted and indexed", record.CoverageState)
	require.NotNil(t, record.IndexedAt)
	require.NotNil(t, record.MobileScore)
	require.NotNil(t, record.DesktopScore)
	assert.Equal(t, 71, *record.MobileScore)
	assert.Equal(t, 93, *record.DesktopScore)

	assert.Len(t, logsFor(t, f.log, db.ActionPageSpeed), 1)

	f.clock.Advance(48 * time.Hour)
	summary, err = f.tracker.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Checked, "indexed records are no longer polled")
}

func TestIndexTracker_PollUnknownVerdictWaitsForNextWindow(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	_, err := f.tracker.Submit(ctx, pageA, "")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	summary, err := f.tracker.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)

	record, err := f.tracker.Get(ctx, pageA)
	require.NoError(t, err)
	assert.Equal(t, db.IndexSubmitted, record.Status)
	require.NotNil(t, record.LastCheckedAt)

	f.clock.Advance(time.Hour)
	summary, err = f.tracker.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Checked)
}

func TestIndexTracker_PollProviderFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)
	f.inspector.err = context.DeadlineExceeded

	_, err := f.tracker.Submit(ctx, pageA, "")
	require.NoError(t, err)
	f.clock.Advance(25 * time.Hour)

	summary, err := f.tracker.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, PollSummary{Checked: 1, Failed: 1}, summary)

	record, err := f.tracker.Get(ctx, pageA)
	require.NoError(t, err)
	assert.Equal(t, db.IndexSubmitted, record.Status)
	assert.Contains(t, record.ErrorMessage, "deadline")

	entries := logsFor(t, f.log, db.ActionCheckIndex)
	require.Len(t, entries, 1)
	assert.Equal(t, db.LogFailed, entries[0].Status)
}

func TestIndexTracker_PollTerminalVerdicts(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)
	urls := map[string]provider.Verdict{
		"https://example.com/n": provider.VerdictNotIndexed,
		"https://example.com/r": provider.VerdictRemoved,
		"https://example.com/e": provider.VerdictError,
	}
	for u, v := range urls {
		f.inspector.verdicts[u] = provider.Inspection{Verdict: v, CoverageState: "state " + string(v)}
		_, err := f.tracker.Submit(ctx, u, "")
		require.NoError(t, err)
	}

	f.clock.Advance(25 * time.Hour)
	summary, err := f.tracker.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, PollSummary{Checked: 3, NotIndexed: 1, Removed: 1, Errors: 1}, summary)

	counts, err := f.tracker.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[db.IndexStatus]int64{
		db.IndexNotIndexed: 1,
		db.IndexRemoved:    1,
		db.IndexError:      1,
	}, counts)

	errored, err := f.tracker.Get(ctx, "https://example.com/e")
	require.NoError(t, err)
	assert.Equal(t, "state error", errored.ErrorMessage)
}

func TestIndexTracker_ResubmitRestartsLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)
	f.inspector.verdicts[pageA] = provider.Inspection{Verdict: provider.VerdictNotIndexed}

	_, err := f.tracker.Submit(ctx, pageA, "")
	require.NoError(t, err)
	f.clock.Advance(25 * time.Hour)
	_, err = f.tracker.Poll(ctx)
	require.NoError(t, err)

	record, err := f.tracker.Resubmit(ctx, pageA)
	require.NoError(t, err)
	assert.Equal(t, db.IndexSubmitted, record.Status)
	assert.Nil(t, record.LastCheckedAt)
	assert.Len(t, f.submitter.calls, 2)

	fresh, err := f.tracker.Resubmit(ctx, "https://example.com/new")
	require.NoError(t, err)
	assert.Equal(t, db.IndexSubmitted, fresh.Status)
}

func TestIndexTracker_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("sends deletion and marks removed", func(t *testing.T) {
		f := newTrackerFixture(t)
		_, err := f.tracker.Submit(ctx, pageA, "post-1")
		require.NoError(t, err)

		record, err := f.tracker.Remove(ctx, pageA)
		require.NoError(t, err)
		assert.Equal(t, db.IndexRemoved, record.Status)
		assert.Equal(t, []provider.ChangeType{provider.URLUpdated, provider.URLDeleted}, f.submitter.changes)

		records, err := f.tracker.ForContent(ctx, "post-1")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, db.IndexRemoved, records[0].Status)

		entries := logsFor(t, f.log, db.ActionRemoveIndex)
		require.Len(t, entries, 1)
		assert.Equal(t, db.LogSuccess, entries[0].Status)

		// removed records are never polled again
		f.clock.Advance(48 * time.Hour)
		summary, err := f.tracker.Poll(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.Checked)
	})

	t.Run("provider failure keeps the status", func(t *testing.T) {
		f := newTrackerFixture(t)
		_, err := f.tracker.Submit(ctx, pageA, "post-1")
		require.NoError(t, err)
		f.submitter.err = errors.New("HTTP 500")

		_, err = f.tracker.Remove(ctx, pageA)
		assert.True(t, apperr.IsProvider(err))

		record, err := f.tracker.Get(ctx, pageA)
		require.NoError(t, err)
		assert.Equal(t, db.IndexSubmitted, record.Status)
		assert.Equal(t, "HTTP 500", record.ErrorMessage)
		assert.Equal(t, db.LogFailed, logsFor(t, f.log, db.ActionRemoveIndex)[0].Status)
	})

	t.Run("disabled provider still marks removed", func(t *testing.T) {
		f := newTrackerFixture(t)
		_, err := f.tracker.Submit(ctx, pageA, "post-1")
		require.NoError(t, err)
		f.submitter.err = provider.ErrDisabled

		record, err := f.tracker.Remove(ctx, pageA)
		require.NoError(t, err)
		assert.Equal(t, db.IndexRemoved, record.Status)
		assert.Equal(t, db.LogSkipped, logsFor(t, f.log, db.ActionRemoveIndex)[0].Status)
	})

	t.Run("unknown url", func(t *testing.T) {
		f := newTrackerFixture(t)
		_, err := f.tracker.Remove(ctx, pageA)
		assert.True(t, apperr.IsNotFound(err))
		assert.Empty(t, f.submitter.calls)
	})
}

func TestIndexTracker_CheckPerformance(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture(t)

	_, err := f.tracker.CheckPerformance(ctx, pageA)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.tracker.Submit(ctx, pageA, "")
	require.NoError(t, err)

	f.perf.err = errors.New("lighthouse crashed")
	_, err = f.tracker.CheckPerformance(ctx, pageA)
	assert.True(t, apperr.IsProvider(err))

	f.perf.err = nil
	record, err := f.tracker.CheckPerformance(ctx, pageA)
	require.NoError(t, err)
	assert.Equal(t, 71, *record.MobileScore)

	entries := logsFor(t, f.log, db.ActionPageSpeed)
	require.Len(t, entries, 2)
	assert.Equal(t, db.LogSuccess, entries[0].Status)
	assert.Equal(t, db.LogFailed, entries[1].Status)
}
