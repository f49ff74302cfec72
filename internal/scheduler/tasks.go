package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sykell/seo-engine/internal/crawler"
	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/report"
	"github.com/sykell/seo-engine/internal/service"
)

const maxDetailItems = 50

// Tasks returns the ordered batch of a cadence
func (s *Scheduler) Tasks(c Cadence) []Task {
	switch c {
	case Hourly:
		return []Task{
			{Name: "analyze-recent", Run: s.analyzeRecent},
		}
	case Daily:
		return []Task{
			{Name: "analyze-recent", Run: s.analyzeRecent},
			{Name: "poll-index", Run: s.pollIndex},
			{Name: "sync-rankings", Run: s.syncRankings},
			{Name: "daily-report", Run: s.reportTask(report.Daily)},
		}
	case Weekly:
		return []Task{
			{Name: "reanalyze-all", Run: s.reanalyzeAll},
			{Name: "broken-links", Run: s.brokenLinks},
			{Name: "stale-content", Run: s.staleContent},
			{Name: "weekly-report", Run: s.reportTask(report.Weekly)},
		}
	case Monthly:
		return []Task{
			{Name: "monthly-report", Run: s.reportTask(report.Monthly)},
			{Name: "purge-logs", Run: s.purgeLogs},
			{Name: "reanalyze-worst", Run: s.reanalyzeWorst},
		}
	}
	return nil
}

func (s *Scheduler) analyzeRecent(ctx context.Context) (map[string]any, error) {
	refs, err := s.deps.Content.NeedingAnalysis(ctx, s.config.HourlyBatchSize)
	if err != nil {
		return nil, err
	}
	return s.analyzeAll(ctx, refs)
}

func (s *Scheduler) reanalyzeAll(ctx context.Context) (map[string]any, error) {
	refs, err := s.deps.Content.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	return s.analyzeAll(ctx, refs)
}

// analyzeAll analyses every ref. Individual failures are counted; the task
// fails only when nothing could be analysed.
func (s *Scheduler) analyzeAll(ctx context.Context, refs []service.ContentRef) (map[string]any, error) {
	analyzed, failed := 0, 0
	var lastErr error
	for _, ref := range refs {
		if _, err := s.deps.Engine.AnalyzeScheduled(ctx, ref.ID); err != nil {
			failed++
			lastErr = err
			continue
		}
		analyzed++
	}

	details := map[string]any{"candidates": len(refs), "analyzed": analyzed, "failed": failed}
	if failed > 0 && analyzed == 0 {
		return details, fmt.Errorf("all %d analyses failed: %w", failed, lastErr)
	}
	return details, nil
}

func (s *Scheduler) pollIndex(ctx context.Context) (map[string]any, error) {
	summary, err := s.deps.Index.Poll(ctx)
	details := map[string]any{
		"checked":     summary.Checked,
		"indexed":     summary.Indexed,
		"not_indexed": summary.NotIndexed,
		"removed":     summary.Removed,
		"errors":      summary.Errors,
		"unchanged":   summary.Unchanged,
		"failed":      summary.Failed,
		"skipped":     summary.Skipped,
	}
	return details, err
}

func (s *Scheduler) syncRankings(ctx context.Context) (map[string]any, error) {
	summary, err := s.deps.Keywords.SyncRankings(ctx)
	details := map[string]any{
		"tracked":   summary.Tracked,
		"updated":   summary.Updated,
		"missing":   summary.Missing,
		"untracked": summary.Untracked,
		"rows":      summary.Rows,
		"skipped":   summary.Skipped,
	}
	return details, err
}

func (s *Scheduler) reportTask(p report.Period) func(context.Context) (map[string]any, error) {
	return func(ctx context.Context) (map[string]any, error) {
		r, err := s.deps.Engine.RefreshReport(ctx, p)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"report_id":       r.ID,
			"analyzed":        r.Summary.Scores.Analyzed,
			"needs_attention": len(r.NeedsAttention),
		}, nil
	}
}

func (s *Scheduler) brokenLinks(ctx context.Context) (map[string]any, error) {
	start := s.now()
	refs, err := s.deps.Content.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	slugs, err := s.deps.Content.PublishedSlugs(ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]crawler.Page, 0, len(refs))
	for _, ref := range refs {
		content, err := s.deps.Content.GetContent(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		pages = append(pages, crawler.Page{ContentID: content.ID, Body: content.Body})
	}

	result := s.deps.Links.Scan(ctx, pages, slugs)

	status := db.LogSuccess
	if len(result.Broken) > 0 {
		status = db.LogWarning
	}
	broken := result.Broken
	if len(broken) > maxDetailItems {
		broken = broken[:maxDetailItems]
	}
	s.deps.Log.Append(ctx, db.LogEntry{
		Action:     db.ActionBrokenLinks,
		EntityType: "content",
		Status:     status,
		Message:    result.String(),
		Details:    map[string]any{"broken": broken, "affected": result.Affected, "probed": result.Probed},
		DurationMs: s.now().Sub(start).Milliseconds(),
		Scheduled:  true,
	})

	return map[string]any{
		"pages":    result.Pages,
		"links":    result.Links,
		"broken":   len(result.Broken),
		"affected": result.Affected,
	}, nil
}

func (s *Scheduler) staleContent(ctx context.Context) (map[string]any, error) {
	cutoff := s.now().UTC().Add(-time.Duration(s.config.StaleAfterDays) * 24 * time.Hour)
	refs, err := s.deps.Content.UpdatedBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if len(ids) == maxDetailItems {
			break
		}
		ids = append(ids, ref.ID)
	}

	status := db.LogSuccess
	if len(refs) > 0 {
		status = db.LogWarning
	}
	s.deps.Log.Append(ctx, db.LogEntry{
		Action:     db.ActionStaleContent,
		EntityType: "content",
		Status:     status,
		Message:    fmt.Sprintf("%d published items untouched for %d days", len(refs), s.config.StaleAfterDays),
		Details:    map[string]any{"content_ids": ids, "cutoff": cutoff},
		Scheduled:  true,
	})

	return map[string]any{"stale": len(refs), "cutoff": cutoff}, nil
}

func (s *Scheduler) purgeLogs(ctx context.Context) (map[string]any, error) {
	cutoff := s.now().UTC().Add(-time.Duration(s.config.LogRetentionDays) * 24 * time.Hour)
	deleted, err := s.deps.Log.Purge(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	s.deps.Log.Append(ctx, db.LogEntry{
		Action:    db.ActionLogPurge,
		Status:    db.LogSuccess,
		Message:   fmt.Sprintf("purged %d entries older than %d days", deleted, s.config.LogRetentionDays),
		Details:   map[string]any{"deleted": deleted, "cutoff": cutoff},
		Scheduled: true,
	})
	return map[string]any{"deleted": deleted}, nil
}

// reanalyzeWorst re-scores the lowest scoring items and counts how many
// came back with a higher overall score
func (s *Scheduler) reanalyzeWorst(ctx context.Context) (map[string]any, error) {
	worst, err := s.deps.Scores.Worst(ctx, s.config.WorstBatchSize)
	if err != nil {
		return nil, err
	}

	reanalyzed, improved, failed := 0, 0, 0
	var lastErr error
	for _, before := range worst {
		after, err := s.deps.Engine.AnalyzeScheduled(ctx, before.ContentID)
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		reanalyzed++
		if after.OverallScore > before.OverallScore {
			improved++
		}
	}

	details := map[string]any{"candidates": len(worst), "reanalyzed": reanalyzed, "improved": improved, "failed": failed}
	if failed > 0 && reanalyzed == 0 {
		return details, fmt.Errorf("all %d re-analyses failed: %w", failed, lastErr)
	}
	return details, nil
}
