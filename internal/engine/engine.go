// Package engine is the facade the admin surface and the CMS publish hook
// talk to. It wires analysis and scoring to the stores and exposes the read
// side used by dashboards.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sykell/seo-engine/internal/apperr"
	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/report"
	"github.com/sykell/seo-engine/internal/scoring"
	"github.com/sykell/seo-engine/internal/service"
)

var contentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Deps are the collaborators an Engine needs
type Deps struct {
	Content  *service.ContentRepository
	Scores   *service.ScoreStore
	Log      *service.ActionLog
	Index    *service.IndexTracker
	Keywords *service.KeywordTracker
	Reports  *report.Generator
	SiteURL  string
	Now      func() time.Time
}

type Engine struct {
	content  *service.ContentRepository
	scores   *service.ScoreStore
	log      *service.ActionLog
	index    *service.IndexTracker
	keywords *service.KeywordTracker
	reports  *report.Generator
	siteURL  string
	now      func() time.Time
}

func New(deps Deps) *Engine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		content:  deps.Content,
		scores:   deps.Scores,
		log:      deps.Log,
		index:    deps.Index,
		keywords: deps.Keywords,
		reports:  deps.Reports,
		siteURL:  strings.TrimRight(deps.SiteURL, "/"),
		now:      now,
	}
}

// AnalyzeResult is the non-raising outcome of a manual analysis
type AnalyzeResult struct {
	Success  bool              `json:"success"`
	Snapshot *db.ScoreSnapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
	err      error
}

// Err returns the typed error behind a failed result
func (r AnalyzeResult) Err() error { return r.err }

// ValidateContentID rejects ids that cannot belong to a content row
func ValidateContentID(id string) error {
	if !contentIDPattern.MatchString(id) {
		return apperr.NewValidation(fmt.Sprintf("invalid content id %q", id))
	}
	return nil
}

// Analyze scores one content item now. Failures are reported in the result
// rather than returned.
func (e *Engine) Analyze(ctx context.Context, contentID string) AnalyzeResult {
	snapshot, err := e.analyze(ctx, contentID, false)
	if err != nil {
		return AnalyzeResult{Error: err.Error(), err: err}
	}
	return AnalyzeResult{Success: true, Snapshot: snapshot}
}

// AnalyzeScheduled is Analyze for scheduler tasks, which need the error
func (e *Engine) AnalyzeScheduled(ctx context.Context, contentID string) (*db.ScoreSnapshot, error) {
	return e.analyze(ctx, contentID, true)
}

func (e *Engine) analyze(ctx context.Context, contentID string, scheduled bool) (*db.ScoreSnapshot, error) {
	if err := ValidateContentID(contentID); err != nil {
		return nil, err
	}

	start := e.now()
	entry := db.LogEntry{
		Action:     db.ActionAnalyze,
		EntityType: "content",
		EntityID:   contentID,
		Scheduled:  scheduled,
	}
	fail := func(err error) (*db.ScoreSnapshot, error) {
		entry.Status = db.LogFailed
		entry.Message = err.Error()
		entry.DurationMs = e.now().Sub(start).Milliseconds()
		e.log.Append(ctx, entry)
		return nil, err
	}

	content, err := e.content.GetContent(ctx, contentID)
	if err != nil {
		return fail(err)
	}

	result := scoring.Score(ScoringInput(content))
	snapshot := db.NewScoreSnapshot(contentID, result, start.UTC())
	if err := e.scores.Upsert(ctx, &snapshot); err != nil {
		return fail(err)
	}

	entry.Status = db.LogSuccess
	entry.Message = fmt.Sprintf("scored %d (%s)", result.Overall, scoring.BandOf(result.Overall))
	entry.Details = map[string]any{
		"overall_score": result.Overall,
		"suggestions":   len(result.Suggestions),
	}
	entry.DurationMs = e.now().Sub(start).Milliseconds()
	e.log.Append(ctx, entry)

	return e.scores.Get(ctx, contentID)
}

// ScoringInput maps a content row onto the scorer's input
func ScoringInput(c *db.Content) scoring.Input {
	return scoring.Input{
		Title:           c.Title,
		MetaTitle:       c.MetaTitle,
		MetaDescription: c.MetaDescription,
		Excerpt:         c.Excerpt,
		Body:            c.Body,
		CoverImage:      c.CoverImage,
		Slug:            c.Slug,
		HasCategory:     c.CategoryID != nil && *c.CategoryID != "",
		FocusKeyword:    c.FocusKeyword,
	}
}

// PublicURL is the canonical URL of a content item, or the site URL joined
// with its slug. Empty when neither is known.
func (e *Engine) PublicURL(c *db.Content) string {
	if c.CanonicalURL != "" {
		return c.CanonicalURL
	}
	if e.siteURL == "" || c.Slug == "" {
		return ""
	}
	return e.siteURL + "/" + strings.TrimLeft(c.Slug, "/")
}

// OnPublish reacts to a publish transition with one analysis and one index
// submission. Nothing here may fail the publish, so every failure ends in
// the log.
func (e *Engine) OnPublish(ctx context.Context, contentID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("publish hook panicked", "content_id", contentID, "panic", r)
		}
	}()

	if _, err := e.analyze(ctx, contentID, false); err != nil {
		slog.Warn("publish analysis failed", "content_id", contentID, "error", err)
	}

	content, err := e.content.GetContent(ctx, contentID)
	if err != nil {
		slog.Warn("publish index submission skipped", "content_id", contentID, "error", err)
		return
	}

	pageURL := e.PublicURL(content)
	if pageURL == "" {
		slog.Warn("publish index submission skipped: no public url", "content_id", contentID)
		return
	}
	if _, err := e.index.Submit(ctx, pageURL, contentID); err != nil {
		slog.Warn("publish index submission failed", "content_id", contentID, "url", pageURL, "error", err)
	}
}

// OnUnpublish withdraws every indexed URL of a content item that was
// unpublished or deleted. Like OnPublish it never fails the caller.
func (e *Engine) OnUnpublish(ctx context.Context, contentID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("unpublish hook panicked", "content_id", contentID, "panic", r)
		}
	}()

	if err := ValidateContentID(contentID); err != nil {
		slog.Warn("unpublish hook rejected", "content_id", contentID, "error", err)
		return
	}

	records, err := e.index.ForContent(ctx, contentID)
	if err != nil {
		slog.Warn("unpublish index lookup failed", "content_id", contentID, "error", err)
		return
	}
	for _, record := range records {
		if record.Status == db.IndexRemoved {
			continue
		}
		if _, err := e.index.Remove(ctx, record.URL); err != nil {
			slog.Warn("unpublish index removal failed", "content_id", contentID, "url", record.URL, "error", err)
		}
	}
}

// GetScore returns the stored snapshot of a content item
func (e *Engine) GetScore(ctx context.Context, contentID string) (*db.ScoreSnapshot, error) {
	if err := ValidateContentID(contentID); err != nil {
		return nil, err
	}
	return e.scores.Get(ctx, contentID)
}

// DashboardStats is the admin overview
type DashboardStats struct {
	PublishedContent int64                    `json:"published_content"`
	Scores           service.ScoreStats       `json:"scores"`
	IndexStatus      map[db.IndexStatus]int64 `json:"index_status"`
	Keywords         service.KeywordStats     `json:"keywords"`
	FailedLast24h    int64                    `json:"failed_last_24h"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

func (e *Engine) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := e.now().UTC()
	stats := &DashboardStats{GeneratedAt: now}

	var err error
	if stats.PublishedContent, err = e.content.CountPublished(ctx); err != nil {
		return nil, err
	}
	if stats.Scores, err = e.scores.Stats(ctx); err != nil {
		return nil, err
	}
	if stats.IndexStatus, err = e.index.StatusCounts(ctx); err != nil {
		return nil, err
	}
	if stats.Keywords, err = e.keywords.Stats(ctx); err != nil {
		return nil, err
	}
	if stats.FailedLast24h, err = e.log.CountSince(ctx, db.LogFailed, now.Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	return stats, nil
}

func (e *Engine) GetRecentLogs(ctx context.Context, filter service.LogFilter) ([]db.LogEntry, error) {
	return e.log.Query(ctx, filter)
}

// GetLastReport returns the cached report of the period, if one was generated
func (e *Engine) GetLastReport(period report.Period) (*report.Report, bool) {
	return e.reports.Cache().Get(period)
}

// RefreshReport generates a report and replaces the cached one
func (e *Engine) RefreshReport(ctx context.Context, period report.Period) (*report.Report, error) {
	r, err := e.reports.Generate(ctx, period)
	if err != nil {
		return nil, err
	}
	e.reports.Cache().Set(r)
	return r, nil
}
