package service

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/sykell/seo-engine/internal/apperr"
	"github.com/sykell/seo-engine/internal/db"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// ActionLog is the append-only audit trail
type ActionLog struct {
	db  *gorm.DB
	now func() time.Time
}

func NewActionLog(dbConn *gorm.DB, now func() time.Time) *ActionLog {
	if now == nil {
		now = time.Now
	}
	return &ActionLog{db: dbConn, now: now}
}

// Append stores an entry. Failures are logged and swallowed so that the
// operation being documented is never failed by its own audit record.
func (l *ActionLog) Append(ctx context.Context, entry db.LogEntry) {
	entry.ID = 0
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}
	if entry.Status == "" {
		entry.Status = db.LogInfo
	}

	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		slog.Warn("failed to append action log",
			"action", entry.Action, "entity_id", entry.EntityID, "status", entry.Status, "error", err)
	}
}

// LogFilter narrows a Query. Zero values match everything.
type LogFilter struct {
	Action    db.Action
	Status    db.LogStatus
	EntityID  string
	Scheduled *bool
	Since     time.Time
	Limit     int
}

// Query returns matching entries newest first
func (l *ActionLog) Query(ctx context.Context, filter LogFilter) ([]db.LogEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	q := l.db.WithContext(ctx).Model(&db.LogEntry{})
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Scheduled != nil {
		q = q.Where("scheduled = ?", *filter.Scheduled)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since.UTC())
	}

	var entries []db.LogEntry
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, apperr.NewPersistence("query logs", err)
	}
	return entries, nil
}

// Purge deletes entries created strictly before the cutoff
func (l *ActionLog) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := l.db.WithContext(ctx).Where("created_at < ?", before.UTC()).Delete(&db.LogEntry{})
	if res.Error != nil {
		return 0, apperr.NewPersistence("purge logs", res.Error)
	}
	return res.RowsAffected, nil
}

// CountSince counts entries with the given status created at or after since.
// An empty status counts every entry.
func (l *ActionLog) CountSince(ctx context.Context, status db.LogStatus, since time.Time) (int64, error) {
	q := l.db.WithContext(ctx).Model(&db.LogEntry{}).Where("created_at >= ?", since.UTC())
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, apperr.NewPersistence("count logs", err)
	}
	return n, nil
}

// ActionCount is the number of entries per (action, status) pair
type ActionCount struct {
	Action db.Action    `json:"action"`
	Status db.LogStatus `json:"status"`
	Count  int64        `json:"count"`
}

// CountByAction groups entries created at or after since
func (l *ActionLog) CountByAction(ctx context.Context, since time.Time) ([]ActionCount, error) {
	var counts []ActionCount
	err := l.db.WithContext(ctx).Model(&db.LogEntry{}).
		Select("action, status, COUNT(*) AS count").
		Where("created_at >= ?", since.UTC()).
		Group("action").Group("status").
		Order("action").Order("status").
		Scan(&counts).Error
	if err != nil {
		return nil, apperr.NewPersistence("count logs by action", err)
	}
	return counts, nil
}
