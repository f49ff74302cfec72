package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sykell/seo-engine/internal/apperr"
	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/provider"
)

const (
	DefaultIndexStaleAfter = 24 * time.Hour
	DefaultProviderTimeout = 30 * time.Second
	pollBatchSize          = 100
	maxErrorLength         = 1024
)

// IndexTrackerConfig holds the collaborators and thresholds of an IndexTracker
type IndexTrackerConfig struct {
	Submitter   provider.IndexSubmitter
	Inspector   provider.URLInspector
	Performance provider.PerformanceProvider
	StaleAfter  time.Duration
	Timeout     time.Duration
	Now         func() time.Time
}

// IndexTracker owns the per-URL indexing lifecycle:
// pending -> submitted -> {indexed, not_indexed, error, removed}.
// The external checks are delegated to the injected providers.
type IndexTracker struct {
	db          *gorm.DB
	log         *ActionLog
	submitter   provider.IndexSubmitter
	inspector   provider.URLInspector
	performance provider.PerformanceProvider
	staleAfter  time.Duration
	timeout     time.Duration
	now         func() time.Time
}

func NewIndexTracker(dbConn *gorm.DB, actionLog *ActionLog, config IndexTrackerConfig) *IndexTracker {
	t := &IndexTracker{
		db:          dbConn,
		log:         actionLog,
		submitter:   config.Submitter,
		inspector:   config.Inspector,
		performance: config.Performance,
		staleAfter:  config.StaleAfter,
		timeout:     config.Timeout,
		now:         config.Now,
	}
	if t.submitter == nil {
		t.submitter = provider.Disabled{}
	}
	if t.inspector == nil {
		t.inspector = provider.Disabled{}
	}
	if t.performance == nil {
		t.performance = provider.Disabled{}
	}
	if t.staleAfter <= 0 {
		t.staleAfter = DefaultIndexStaleAfter
	}
	if t.timeout <= 0 {
		t.timeout = DefaultProviderTimeout
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// ValidatePageURL rejects anything that is not an absolute http(s) URL
func ValidatePageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.NewValidation("url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", apperr.NewValidationWrap("invalid url", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.NewValidation("url must be absolute http(s)")
	}
	if len(raw) > 768 {
		return "", apperr.NewValidation("url is too long")
	}
	return raw, nil
}

// Submit registers a URL and notifies the index submitter. A URL that is
// already tracked is returned unchanged; use Resubmit to restart it.
func (t *IndexTracker) Submit(ctx context.Context, rawURL, contentID string) (*db.IndexRecord, error) {
	pageURL, err := ValidatePageURL(rawURL)
	if err != nil {
		return nil, err
	}

	now := t.now().UTC()
	record := db.IndexRecord{
		URL:       pageURL,
		ContentID: contentID,
		Status:    db.IndexPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoNothing: true,
	}).Create(&record)
	if res.Error != nil {
		return nil, apperr.NewPersistence("create index record", res.Error)
	}
	if res.RowsAffected == 0 {
		existing, err := t.Get(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		t.log.Append(ctx, db.LogEntry{
			Action:     db.ActionSubmitIndex,
			EntityType: "url",
			EntityID:   pageURL,
			Status:     db.LogSkipped,
			Message:    fmt.Sprintf("URL already tracked with status %s", existing.Status),
		})
		return existing, nil
	}

	return t.notify(ctx, pageURL)
}

// Resubmit notifies the submitter again and moves the record back to the
// start of the lifecycle. Unknown URLs are submitted as new.
func (t *IndexTracker) Resubmit(ctx context.Context, rawURL string) (*db.IndexRecord, error) {
	pageURL, err := ValidatePageURL(rawURL)
	if err != nil {
		return nil, err
	}

	if _, err := t.Get(ctx, pageURL); err != nil {
		if apperr.IsNotFound(err) {
			return t.Submit(ctx, pageURL, "")
		}
		return nil, err
	}

	err = t.update(ctx, pageURL, map[string]any{
		"status":          db.IndexPending,
		"indexed_at":      nil,
		"last_checked_at": nil,
		"error_message":   "",
	})
	if err != nil {
		return nil, err
	}
	return t.notify(ctx, pageURL)
}

// Remove tells the submitter a URL is gone and marks its record removed. A
// disabled submitter still marks the record; a failing one leaves it as is.
func (t *IndexTracker) Remove(ctx context.Context, rawURL string) (*db.IndexRecord, error) {
	pageURL, err := ValidatePageURL(rawURL)
	if err != nil {
		return nil, err
	}
	if _, err := t.Get(ctx, pageURL); err != nil {
		return nil, err
	}

	start := t.now()
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	err = t.submitter.Submit(callCtx, pageURL, provider.URLDeleted)
	cancel()

	entry := db.LogEntry{
		Action:     db.ActionRemoveIndex,
		EntityType: "url",
		EntityID:   pageURL,
		DurationMs: t.now().Sub(start).Milliseconds(),
		Details:    map[string]any{"method": t.submitter.Name()},
	}

	updates := map[string]any{"status": db.IndexRemoved, "error_message": ""}
	switch {
	case err == nil:
		entry.Status = db.LogSuccess
		entry.Message = "URL removal sent"
	case errors.Is(err, provider.ErrDisabled):
		entry.Status = db.LogSkipped
		entry.Message = "index submission provider disabled; URL marked removed locally"
	default:
		perr := apperr.NewProvider(t.submitter.Name(), "remove", err)
		entry.Status = db.LogFailed
		entry.Message = perr.Error()
		if uerr := t.update(ctx, pageURL, map[string]any{"error_message": truncate(err.Error(), maxErrorLength)}); uerr != nil {
			return nil, uerr
		}
		t.log.Append(ctx, entry)
		return nil, perr
	}

	if err := t.update(ctx, pageURL, updates); err != nil {
		return nil, err
	}
	t.log.Append(ctx, entry)

	return t.Get(ctx, pageURL)
}

// ForContent returns the records registered for a content item
func (t *IndexTracker) ForContent(ctx context.Context, contentID string) ([]db.IndexRecord, error) {
	var records []db.IndexRecord
	err := t.db.WithContext(ctx).Where("content_id = ?", contentID).Order("id").Find(&records).Error
	if err != nil {
		return nil, apperr.NewPersistence("list index records for content", err)
	}
	return records, nil
}

// notify calls the submitter for a pending record and records the outcome
func (t *IndexTracker) notify(ctx context.Context, pageURL string) (*db.IndexRecord, error) {
	start := t.now()
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	err := t.submitter.Submit(callCtx, pageURL, provider.URLUpdated)
	cancel()

	entry := db.LogEntry{
		Action:     db.ActionSubmitIndex,
		EntityType: "url",
		EntityID:   pageURL,
		DurationMs: t.now().Sub(start).Milliseconds(),
		Details:    map[string]any{"method": t.submitter.Name()},
	}

	var updates map[string]any
	switch {
	case err == nil:
		now := t.now().UTC()
		updates = map[string]any{
			"status":        db.IndexSubmitted,
			"method":        t.submitter.Name(),
			"submitted_at":  now,
			"error_message": "",
		}
		entry.Status = db.LogSuccess
		entry.Message = "URL submitted for indexing"
	case errors.Is(err, provider.ErrDisabled):
		entry.Status = db.LogSkipped
		entry.Message = "index submission provider disabled; URL left pending"
	default:
		updates = map[string]any{"error_message": truncate(err.Error(), maxErrorLength)}
		entry.Status = db.LogFailed
		entry.Message = apperr.NewProvider(t.submitter.Name(), "submit", err).Error()
	}

	if updates != nil {
		if uerr := t.update(ctx, pageURL, updates); uerr != nil {
			return nil, uerr
		}
	}
	t.log.Append(ctx, entry)

	return t.Get(ctx, pageURL)
}

// PollSummary counts the outcomes of one Poll run
type PollSummary struct {
	Checked    int  `json:"checked"`
	Indexed    int  `json:"indexed"`
	NotIndexed int  `json:"not_indexed"`
	Removed    int  `json:"removed"`
	Errors     int  `json:"errors"`
	Unchanged  int  `json:"unchanged"`
	Failed     int  `json:"failed"`
	Skipped    bool `json:"skipped,omitempty"`
}

// Poll inspects pending and submitted records whose last check is older than
// the staleness threshold and applies the inspector's verdict.
func (t *IndexTracker) Poll(ctx context.Context) (PollSummary, error) {
	var summary PollSummary
	cutoff := t.now().UTC().Add(-t.staleAfter)

	var records []db.IndexRecord
	err := t.db.WithContext(ctx).
		Where("status IN ?", []db.IndexStatus{db.IndexPending, db.IndexSubmitted}).
		Where(timeCol(t.db, "COALESCE(last_checked_at, submitted_at, created_at)")+" < "+timeCol(t.db, "?"), cutoff).
		Order("id").
		Limit(pollBatchSize).
		Find(&records).Error
	if err != nil {
		return summary, apperr.NewPersistence("list stale index records", err)
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		status, err := t.check(ctx, record)
		if errors.Is(err, provider.ErrDisabled) {
			summary.Skipped = true
			t.log.Append(ctx, db.LogEntry{
				Action:  db.ActionCheckIndex,
				Status:  db.LogSkipped,
				Message: "URL inspection provider disabled",
				Details: map[string]any{"eligible": len(records)},
			})
			return summary, nil
		}
		if apperr.IsPersistence(err) {
			return summary, err
		}

		summary.Checked++
		switch {
		case err != nil:
			summary.Failed++
		case status == db.IndexIndexed:
			summary.Indexed++
		case status == db.IndexNotIndexed:
			summary.NotIndexed++
		case status == db.IndexRemoved:
			summary.Removed++
		case status == db.IndexError:
			summary.Errors++
		default:
			summary.Unchanged++
		}
	}

	return summary, nil
}

// check inspects one record, persists the transition and returns the new status
func (t *IndexTracker) check(ctx context.Context, record db.IndexRecord) (db.IndexStatus, error) {
	start := t.now()
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	inspection, err := t.inspector.Inspect(callCtx, record.URL)
	cancel()

	if errors.Is(err, provider.ErrDisabled) {
		return record.Status, err
	}

	now := t.now().UTC()
	entry := db.LogEntry{
		Action:     db.ActionCheckIndex,
		EntityType: "url",
		EntityID:   record.URL,
		DurationMs: t.now().Sub(start).Milliseconds(),
	}

	if err != nil {
		perr := apperr.NewProvider("inspector", "inspect", err)
		if uerr := t.update(ctx, record.URL, map[string]any{
			"last_checked_at": now,
			"error_message":   truncate(err.Error(), maxErrorLength),
		}); uerr != nil {
			return record.Status, uerr
		}
		entry.Status = db.LogFailed
		entry.Message = perr.Error()
		t.log.Append(ctx, entry)
		return record.Status, perr
	}

	status := transition(record.Status, inspection.Verdict)
	updates := map[string]any{
		"status":          status,
		"last_checked_at": now,
		"coverage_state":  inspection.CoverageState,
		"indexing_state":  inspection.IndexingState,
		"crawled_as":      inspection.CrawledAs,
		"error_message":   "",
	}
	if inspection.LastCrawledAt != nil {
		updates["last_crawled_at"] = inspection.LastCrawledAt.UTC()
	}
	if status == db.IndexIndexed && record.Status != db.IndexIndexed {
		updates["indexed_at"] = now
	}
	if status == db.IndexError {
		updates["error_message"] = truncate(inspection.CoverageState, maxErrorLength)
	}
	if err := t.update(ctx, record.URL, updates); err != nil {
		return record.Status, err
	}

	entry.Status = db.LogSuccess
	if status == db.IndexError {
		entry.Status = db.LogWarning
	}
	entry.Message = fmt.Sprintf("index status %s -> %s", record.Status, status)
	entry.Details = map[string]any{
		"verdict":        inspection.Verdict,
		"coverage_state": inspection.CoverageState,
	}
	t.log.Append(ctx, entry)

	if status == db.IndexIndexed && record.Status != db.IndexIndexed {
		if _, err := t.CheckPerformance(ctx, record.URL); err != nil && !errors.Is(err, provider.ErrDisabled) {
			slog.Warn("performance probe failed", "url", record.URL, "error", err)
		}
	}

	return status, nil
}

// transition maps an inspection verdict onto the lifecycle. An unknown
// verdict leaves the record where it is so the next poll retries it.
func transition(current db.IndexStatus, verdict provider.Verdict) db.IndexStatus {
	switch verdict {
	case provider.VerdictIndexed:
		return db.IndexIndexed
	case provider.VerdictNotIndexed:
		return db.IndexNotIndexed
	case provider.VerdictRemoved:
		return db.IndexRemoved
	case provider.VerdictError:
		return db.IndexError
	default:
		return current
	}
}

// CheckPerformance measures mobile and desktop performance for a tracked URL
func (t *IndexTracker) CheckPerformance(ctx context.Context, rawURL string) (*db.IndexRecord, error) {
	pageURL, err := ValidatePageURL(rawURL)
	if err != nil {
		return nil, err
	}
	if _, err := t.Get(ctx, pageURL); err != nil {
		return nil, err
	}

	start := t.now()
	updates := map[string]any{}
	details := map[string]any{}
	var failures []string

	for _, strategy := range []provider.Strategy{provider.StrategyMobile, provider.StrategyDesktop} {
		callCtx, cancel := context.WithTimeout(ctx, t.timeout)
		perf, err := t.performance.Measure(callCtx, pageURL, strategy)
		cancel()

		if errors.Is(err, provider.ErrDisabled) {
			t.log.Append(ctx, db.LogEntry{
				Action:     db.ActionPageSpeed,
				EntityType: "url",
				EntityID:   pageURL,
				Status:     db.LogSkipped,
				Message:    "performance provider disabled",
			})
			return nil, err
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", strategy, err))
			continue
		}

		score := perf.Score
		updates[string(strategy)+"_score"] = score
		details[string(strategy)] = perf
	}

	if len(updates) > 0 {
		if err := t.update(ctx, pageURL, updates); err != nil {
			return nil, err
		}
	}

	entry := db.LogEntry{
		Action:     db.ActionPageSpeed,
		EntityType: "url",
		EntityID:   pageURL,
		Status:     db.LogSuccess,
		Message:    "performance measured",
		Details:    details,
		DurationMs: t.now().Sub(start).Milliseconds(),
	}
	if len(failures) > 0 {
		entry.Status = db.LogFailed
		entry.Message = strings.Join(failures, "; ")
		if len(updates) > 0 {
			entry.Status = db.LogWarning
		}
	}
	t.log.Append(ctx, entry)

	record, err := t.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return record, apperr.NewProvider("performance", "measure", errors.New(entry.Message))
	}
	return record, nil
}

// Get returns the record for a URL or a NotFoundError
func (t *IndexTracker) Get(ctx context.Context, pageURL string) (*db.IndexRecord, error) {
	var record db.IndexRecord
	if err := t.db.WithContext(ctx).Where("url = ?", pageURL).First(&record).Error; err != nil {
		return nil, lookupErr(err, "get index record", "index record", pageURL)
	}
	return &record, nil
}

// List returns records, optionally filtered by status, newest first
func (t *IndexTracker) List(ctx context.Context, status db.IndexStatus, limit int) ([]db.IndexRecord, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}

	q := t.db.WithContext(ctx).Model(&db.IndexRecord{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var records []db.IndexRecord
	if err := q.Order("updated_at DESC").Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, apperr.NewPersistence("list index records", err)
	}
	return records, nil
}

// StatusCounts returns the number of records per status
func (t *IndexTracker) StatusCounts(ctx context.Context) (map[db.IndexStatus]int64, error) {
	var rows []struct {
		Status db.IndexStatus
		Count  int64
	}
	err := t.db.WithContext(ctx).Model(&db.IndexRecord{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.NewPersistence("count index records", err)
	}

	counts := make(map[db.IndexStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (t *IndexTracker) update(ctx context.Context, pageURL string, updates map[string]any) error {
	updates["updated_at"] = t.now().UTC()
	err := t.db.WithContext(ctx).Model(&db.IndexRecord{}).Where("url = ?", pageURL).Updates(updates).Error
	if err != nil {
		return apperr.NewPersistence("update index record", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
