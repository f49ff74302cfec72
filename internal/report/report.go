// Package report aggregates the engine's stores into point-in-time reports.
package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/scoring"
	"github.com/sykell/seo-engine/internal/service"
)

type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

const (
	TopN          = 10
	BottomN       = 10
	KeywordN      = 20
	WeakThreshold = 50
)

// ParsePeriod accepts daily, weekly or monthly
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Daily, Weekly, Monthly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown report period %q", s)
	}
}

// Window is the span of activity a report of this period covers
func (p Period) Window() time.Duration {
	switch p {
	case Weekly:
		return 7 * 24 * time.Hour
	case Monthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

type Report struct {
	ID              string                `json:"id"`
	GeneratedAt     time.Time             `json:"generated_at"`
	Period          Period                `json:"period"`
	Since           time.Time             `json:"since"`
	Summary         Summary               `json:"summary"`
	TopPerformers   []ScoredItem          `json:"top_performers"`
	NeedsAttention  []ScoredItem          `json:"needs_attention"`
	KeywordRankings []KeywordRanking      `json:"keyword_rankings"`
	Actions         []service.ActionCount `json:"actions"`
}

type Summary struct {
	PublishedContent int64                    `json:"published_content"`
	Scores           service.ScoreStats       `json:"scores"`
	Keywords         service.KeywordStats     `json:"keywords"`
	IndexStatus      map[db.IndexStatus]int64 `json:"index_status"`
	ActionsTotal     int64                    `json:"actions_total"`
	FailedActions    int64                    `json:"failed_actions"`
}

// ScoredItem is one content item in a ranking; WeakAreas lists subscores
// below WeakThreshold
type ScoredItem struct {
	ContentID    string       `json:"content_id"`
	Title        string       `json:"title"`
	OverallScore int          `json:"overall_score"`
	Band         scoring.Band `json:"band"`
	CheckedAt    time.Time    `json:"checked_at"`
	WeakAreas    []string     `json:"weak_areas,omitempty"`
}

type KeywordRanking struct {
	Keyword        string   `json:"keyword"`
	TargetURL      string   `json:"target_url"`
	Position       float64  `json:"position"`
	PositionChange *float64 `json:"position_change,omitempty"`
	Impressions    int64    `json:"impressions"`
	Clicks         int64    `json:"clicks"`
	CTR            float64  `json:"ctr"`
}

// Cache holds the most recent report per period
type Cache struct {
	mu      sync.RWMutex
	reports map[Period]*Report
}

func NewCache() *Cache {
	return &Cache{reports: make(map[Period]*Report)}
}

func (c *Cache) Get(p Period) (*Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.reports[p]
	return r, ok
}

func (c *Cache) Set(r *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[r.Period] = r
}

// Generator reads the stores at call time. Its only write is one
// report-generated log entry per report.
type Generator struct {
	content  *service.ContentRepository
	scores   *service.ScoreStore
	keywords *service.KeywordTracker
	index    *service.IndexTracker
	log      *service.ActionLog
	cache    *Cache
	now      func() time.Time
}

func NewGenerator(
	content *service.ContentRepository,
	scores *service.ScoreStore,
	keywords *service.KeywordTracker,
	index *service.IndexTracker,
	actionLog *service.ActionLog,
	now func() time.Time,
) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		content:  content,
		scores:   scores,
		keywords: keywords,
		index:    index,
		log:      actionLog,
		cache:    NewCache(),
		now:      now,
	}
}

func (g *Generator) Cache() *Cache { return g.cache }

// Generate builds a report for the period
func (g *Generator) Generate(ctx context.Context, period Period) (*Report, error) {
	start := g.now()
	generatedAt := start.UTC()
	since := generatedAt.Add(-period.Window())

	r := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: generatedAt,
		Period:      period,
		Since:       since,
	}

	if err := g.fillSummary(ctx, r); err != nil {
		return nil, err
	}

	best, err := g.scores.Best(ctx, TopN)
	if err != nil {
		return nil, err
	}
	worst, err := g.scores.Worst(ctx, BottomN)
	if err != nil {
		return nil, err
	}
	titles, err := g.content.Titles(ctx, contentIDs(best, worst))
	if err != nil {
		return nil, err
	}
	r.TopPerformers = scoredItems(best, titles, false)
	r.NeedsAttention = scoredItems(worst, titles, true)

	top, err := g.keywords.Top(ctx, KeywordN)
	if err != nil {
		return nil, err
	}
	r.KeywordRankings = make([]KeywordRanking, 0, len(top))
	for _, kw := range top {
		r.KeywordRankings = append(r.KeywordRankings, KeywordRanking{
			Keyword:        kw.Keyword,
			TargetURL:      kw.TargetURL,
			Position:       *kw.CurrentPosition,
			PositionChange: kw.PositionChange,
			Impressions:    kw.Impressions,
			Clicks:         kw.Clicks,
			CTR:            kw.CTR,
		})
	}

	g.log.Append(ctx, db.LogEntry{
		Action:     db.ActionReportGenerated,
		EntityType: "report",
		EntityID:   r.ID,
		Status:     db.LogSuccess,
		Message:    fmt.Sprintf("%s report generated", period),
		Details: map[string]any{
			"period":          string(period),
			"analyzed":        r.Summary.Scores.Analyzed,
			"needs_attention": len(r.NeedsAttention),
			"keywords":        len(r.KeywordRankings),
		},
		DurationMs: g.now().Sub(start).Milliseconds(),
	})

	return r, nil
}

func (g *Generator) fillSummary(ctx context.Context, r *Report) error {
	var err error
	s := &r.Summary

	if s.PublishedContent, err = g.content.CountPublished(ctx); err != nil {
		return err
	}
	if s.Scores, err = g.scores.Stats(ctx); err != nil {
		return err
	}
	if s.Keywords, err = g.keywords.Stats(ctx); err != nil {
		return err
	}
	if s.IndexStatus, err = g.index.StatusCounts(ctx); err != nil {
		return err
	}
	if r.Actions, err = g.log.CountByAction(ctx, r.Since); err != nil {
		return err
	}

	for _, a := range r.Actions {
		s.ActionsTotal += a.Count
		if a.Status == db.LogFailed {
			s.FailedActions += a.Count
		}
	}
	return nil
}

func contentIDs(lists ...[]db.ScoreSnapshot) []string {
	var ids []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, s := range list {
			if !seen[s.ContentID] {
				seen[s.ContentID] = true
				ids = append(ids, s.ContentID)
			}
		}
	}
	return ids
}

func scoredItems(snapshots []db.ScoreSnapshot, titles map[string]string, annotate bool) []ScoredItem {
	items := make([]ScoredItem, 0, len(snapshots))
	for i := range snapshots {
		s := &snapshots[i]
		item := ScoredItem{
			ContentID:    s.ContentID,
			Title:        titles[s.ContentID],
			OverallScore: s.OverallScore,
			Band:         scoring.BandOf(s.OverallScore),
			CheckedAt:    s.CheckedAt,
		}
		if annotate {
			item.WeakAreas = WeakAreas(s.Subscores())
		}
		items = append(items, item)
	}
	return items
}

// WeakAreas names the subscores below WeakThreshold, in weight order
func WeakAreas(s scoring.Subscores) []string {
	var weak []string
	for _, n := range s.Named() {
		if n.Score < WeakThreshold {
			weak = append(weak, n.Name)
		}
	}
	return weak
}
