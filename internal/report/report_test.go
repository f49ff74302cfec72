package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/db/dbtest"
	"github.com/sykell/seo-engine/internal/scoring"
	"github.com/sykell/seo-engine/internal/service"
)

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return epoch }

func newGenerator(t *testing.T) (*Generator, *gorm.DB, *service.ActionLog) {
	t.Helper()
	conn := dbtest.New(t)
	actionLog := service.NewActionLog(conn, fixedNow)
	g := NewGenerator(
		service.NewContentRepository(conn),
		service.NewScoreStore(conn),
		service.NewKeywordTracker(conn, actionLog, service.KeywordTrackerConfig{Now: fixedNow}),
		service.NewIndexTracker(conn, actionLog, service.IndexTrackerConfig{Now: fixedNow}),
		actionLog,
		fixedNow,
	)
	return g, conn, actionLog
}

func snapshot(id string, overall, sub int) *db.ScoreSnapshot {
	return &db.ScoreSnapshot{
		ContentID:            id,
		OverallScore:         overall,
		TitleScore:           sub,
		MetaDescriptionScore: 90,
		ContentScore:         sub,
		HeadingScore:         90,
		KeywordScore:         90,
		ReadabilityScore:     90,
		InternalLinkScore:    90,
		ImageScore:           90,
		TechnicalScore:       90,
		CheckedAt:            epoch.Add(-time.Hour),
	}
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"daily", "weekly", "monthly"} {
		p, err := ParsePeriod(s)
		require.NoError(t, err)
		assert.Equal(t, Period(s), p)
	}
	_, err := ParsePeriod("yearly")
	assert.Error(t, err)

	assert.Equal(t, 24*time.Hour, Daily.Window())
	assert.Equal(t, 7*24*time.Hour, Weekly.Window())
	assert.Equal(t, 30*24*time.Hour, Monthly.Window())
}

func TestWeakAreas(t *testing.T) {
	s := scoring.Subscores{
		Title: 49, MetaDescription: 50, Content: 10, Heading: 100, Keyword: 0,
		Readability: 80, InternalLink: 60, Image: 70, Technical: 90,
	}
	assert.Equal(t, []string{"title", "content", "keyword"}, WeakAreas(s))
	assert.Empty(t, WeakAreas(scoring.Subscores{
		Title: 50, MetaDescription: 50, Content: 50, Heading: 50, Keyword: 50,
		Readability: 50, InternalLink: 50, Image: 50, Technical: 50,
	}))
}

func TestGenerate_EmptyStores(t *testing.T) {
	g, _, actionLog := newGenerator(t)

	r, err := g.Generate(context.Background(), Weekly)
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, epoch, r.GeneratedAt)
	assert.Equal(t, epoch.Add(-7*24*time.Hour), r.Since)
	assert.Zero(t, r.Summary.Scores.Analyzed)
	assert.Empty(t, r.TopPerformers)
	assert.Empty(t, r.NeedsAttention)
	assert.Empty(t, r.KeywordRankings)

	entries, err := actionLog.Query(context.Background(), service.LogFilter{Action: db.ActionReportGenerated})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, r.ID, entries[0].EntityID)
}

func TestGenerate_Aggregates(t *testing.T) {
	ctx := context.Background()
	g, conn, actionLog := newGenerator(t)
	scores := service.NewScoreStore(conn)

	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("post-%02d", i)
		require.NoError(t, conn.Create(&db.Content{
			ID: id, Title: "Post " + id, Slug: id, Status: db.ContentPublished,
			CreatedAt: epoch, UpdatedAt: epoch,
		}).Error)
		sub := 90
		if i < 3 {
			sub = 20
		}
		require.NoError(t, scores.Upsert(ctx, snapshot(id, 40+i*5, sub)))
	}

	pos := []float64{3, 1.5, 7}
	for i, p := range pos {
		p := p
		require.NoError(t, conn.Create(&db.TrackedKeyword{
			Keyword:         fmt.Sprintf("kw %d", i),
			TargetURL:       "https://example.com/post",
			CurrentPosition: &p,
			Impressions:     100,
			Clicks:          int64(i),
			History:         []db.RankingPoint{},
			IsTracking:      true,
		}).Error)
	}
	require.NoError(t, conn.Create(&db.TrackedKeyword{
		Keyword: "unranked", TargetURL: "https://example.com/post", History: []db.RankingPoint{}, IsTracking: true,
	}).Error)

	require.NoError(t, conn.Create(&db.IndexRecord{URL: "https://example.com/a", Status: db.IndexIndexed}).Error)
	require.NoError(t, conn.Create(&db.IndexRecord{URL: "https://example.com/b", Status: db.IndexPending}).Error)

	actionLog.Append(ctx, db.LogEntry{Action: db.ActionAnalyze, Status: db.LogSuccess})
	actionLog.Append(ctx, db.LogEntry{Action: db.ActionAnalyze, Status: db.LogFailed})
	actionLog.Append(ctx, db.LogEntry{Action: db.ActionAnalyze, Status: db.LogFailed, CreatedAt: epoch.Add(-48 * time.Hour)})

	r, err := g.Generate(ctx, Daily)
	require.NoError(t, err)

	s := r.Summary
	assert.Equal(t, int64(12), s.PublishedContent)
	assert.Equal(t, int64(12), s.Scores.Analyzed)
	assert.Equal(t, int64(4), s.Keywords.Tracked)
	assert.Equal(t, int64(3), s.Keywords.Ranked)
	assert.Equal(t, int64(1), s.IndexStatus[db.IndexIndexed])
	assert.Equal(t, int64(1), s.IndexStatus[db.IndexPending])
	assert.Equal(t, int64(2), s.ActionsTotal)
	assert.Equal(t, int64(1), s.FailedActions)

	require.Len(t, r.TopPerformers, TopN)
	assert.Equal(t, "post-11", r.TopPerformers[0].ContentID)
	assert.Equal(t, "Post post-11", r.TopPerformers[0].Title)
	assert.Equal(t, 95, r.TopPerformers[0].OverallScore)
	assert.Equal(t, scoring.BandGood, r.TopPerformers[0].Band)
	assert.Empty(t, r.TopPerformers[0].WeakAreas)

	require.Len(t, r.NeedsAttention, BottomN)
	worst := r.NeedsAttention[0]
	assert.Equal(t, "post-00", worst.ContentID)
	assert.Equal(t, scoring.BandPoor, worst.Band)
	assert.Equal(t, []string{"title", "content"}, worst.WeakAreas)
	assert.Empty(t, r.NeedsAttention[3].WeakAreas)

	require.Len(t, r.KeywordRankings, 3)
	assert.Equal(t, "kw 1", r.KeywordRankings[0].Keyword)
	assert.Equal(t, 1.5, r.KeywordRankings[0].Position)
	assert.Equal(t, "kw 2", r.KeywordRankings[2].Keyword)
}

func TestCache(t *testing.T) {
	c := NewCache()
	_, ok := c.Get(Daily)
	assert.False(t, ok)

	first := &Report{ID: "1", Period: Daily}
	c.Set(first)
	c.Set(&Report{ID: "2", Period: Weekly})

	got, ok := c.Get(Daily)
	require.True(t, ok)
	assert.Same(t, first, got)

	c.Set(&Report{ID: "3", Period: Daily})
	got, _ = c.Get(Daily)
	assert.Equal(t, "3", got.ID)
}
