package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/db/dbtest"
	"github.com/sykell/seo-engine/internal/provider"
)

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock { return &fakeClock{t: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeSubmitter struct {
	err     error
	calls   []string
	changes []provider.ChangeType
}

func (f *fakeSubmitter) Name() string { return "fake-indexing" }

func (f *fakeSubmitter) Submit(_ context.Context, url string, change provider.ChangeType) error {
	f.calls = append(f.calls, url)
	f.changes = append(f.changes, change)
	return f.err
}

type fakeInspector struct {
	verdicts map[string]provider.Inspection
	err      error
	calls    int
}

func (f *fakeInspector) Inspect(_ context.Context, url string) (provider.Inspection, error) {
	f.calls++
	if f.err != nil {
		return provider.Inspection{}, f.err
	}
	if v, ok := f.verdicts[url]; ok {
		return v, nil
	}
	return provider.Inspection{Verdict: provider.VerdictUnknown}, nil
}

type fakePerformance struct {
	scores map[provider.Strategy]int
	err    error
}

func (f *fakePerformance) Measure(_ context.Context, _ string, s provider.Strategy) (provider.Performance, error) {
	if f.err != nil {
		return provider.Performance{}, f.err
	}
	return provider.Performance{Score: f.scores[s], Diagnostics: map[string]float64{"lcp": 2.1}}, nil
}

type fakeRankings struct {
	rows    []provider.RankingRow
	err     error
	queries []provider.RankingQuery
	// runs inside the provider call, before rows are returned
	during func(ctx context.Context)
}

func (f *fakeRankings) Rankings(ctx context.Context, q provider.RankingQuery) ([]provider.RankingRow, error) {
	f.queries = append(f.queries, q)
	if f.during != nil {
		f.during(ctx)
	}
	return f.rows, f.err
}

func newLog(t *testing.T, conn *gorm.DB, clock *fakeClock) *ActionLog {
	t.Helper()
	return NewActionLog(conn, clock.Now)
}

func logsFor(t *testing.T, l *ActionLog, action db.Action) []db.LogEntry {
	t.Helper()
	entries, err := l.Query(context.Background(), LogFilter{Action: action, Limit: maxLogLimit})
	require.NoError(t, err)
	return entries
}

func seedContent(t *testing.T, conn *gorm.DB, items ...db.Content) {
	t.Helper()
	for i := range items {
		require.NoError(t, conn.Create(&items[i]).Error)
	}
}

func testDB(t *testing.T) *gorm.DB {
	return dbtest.New(t)
}
