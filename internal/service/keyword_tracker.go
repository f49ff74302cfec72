package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sykell/seo-engine/internal/apperr"
	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/provider"
)

const (
	MaxRankingHistory    = 90
	DefaultRankingWindow = 7 * 24 * time.Hour
	maxKeywordLength     = 255
	maxTargetURLLength   = 512 // size of the target_url column
)

type KeywordTrackerConfig struct {
	Rankings provider.RankingProvider
	Window   time.Duration
	Timeout  time.Duration
	Now      func() time.Time
}

// KeywordTracker keeps the ranking state of (keyword, target URL) pairs
type KeywordTracker struct {
	db       *gorm.DB
	log      *ActionLog
	rankings provider.RankingProvider
	window   time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func NewKeywordTracker(dbConn *gorm.DB, actionLog *ActionLog, config KeywordTrackerConfig) *KeywordTracker {
	k := &KeywordTracker{
		db:       dbConn,
		log:      actionLog,
		rankings: config.Rankings,
		window:   config.Window,
		timeout:  config.Timeout,
		now:      config.Now,
	}
	if k.rankings == nil {
		k.rankings = provider.Disabled{}
	}
	if k.window <= 0 {
		k.window = DefaultRankingWindow
	}
	if k.timeout <= 0 {
		k.timeout = DefaultProviderTimeout
	}
	if k.now == nil {
		k.now = time.Now
	}
	return k
}

// TrackInput identifies the pair to track
type TrackInput struct {
	Keyword   string `json:"keyword" binding:"required"`
	TargetURL string `json:"target_url" binding:"required"`
	ContentID string `json:"content_id"`
}

// NormalizeKeyword lowercases and collapses whitespace so that provider
// queries and stored keywords compare equal
func NormalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
}

// Track creates the pair or re-enables tracking on an existing one. History
// and positions of an existing pair are kept.
func (k *KeywordTracker) Track(ctx context.Context, in TrackInput) (*db.TrackedKeyword, error) {
	keyword := NormalizeKeyword(in.Keyword)
	if keyword == "" {
		return nil, apperr.NewValidation("keyword cannot be empty")
	}
	if len(keyword) > maxKeywordLength {
		return nil, apperr.NewValidation("keyword is too long")
	}
	target, err := ValidatePageURL(in.TargetURL)
	if err != nil {
		return nil, err
	}
	if len(target) > maxTargetURLLength {
		return nil, apperr.NewValidation("target url is too long")
	}

	now := k.now().UTC()
	kw := db.TrackedKeyword{
		Keyword:    keyword,
		TargetURL:  target,
		ContentID:  in.ContentID,
		History:    []db.RankingPoint{},
		IsTracking: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	updates := []string{"is_tracking", "updated_at"}
	if in.ContentID != "" {
		updates = append(updates, "content_id")
	}
	err = k.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword"}, {Name: "target_url"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&kw).Error
	if err != nil {
		return nil, apperr.NewPersistence("track keyword", err)
	}

	k.log.Append(ctx, db.LogEntry{
		Action:     db.ActionKeywordTrack,
		EntityType: "keyword",
		EntityID:   keyword,
		Status:     db.LogSuccess,
		Message:    fmt.Sprintf("tracking %q for %s", keyword, target),
	})

	return k.Get(ctx, keyword, target)
}

// Untrack stops syncing a pair; its history is kept
func (k *KeywordTracker) Untrack(ctx context.Context, keyword, targetURL string) error {
	keyword = NormalizeKeyword(keyword)
	res := k.db.WithContext(ctx).Model(&db.TrackedKeyword{}).
		Where("keyword = ? AND target_url = ?", keyword, targetURL).
		Updates(map[string]any{"is_tracking": false, "updated_at": k.now().UTC()})
	if res.Error != nil {
		return apperr.NewPersistence("untrack keyword", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("keyword", keyword)
	}
	return nil
}

func (k *KeywordTracker) Get(ctx context.Context, keyword, targetURL string) (*db.TrackedKeyword, error) {
	var kw db.TrackedKeyword
	err := k.db.WithContext(ctx).
		Where("keyword = ? AND target_url = ?", NormalizeKeyword(keyword), targetURL).
		First(&kw).Error
	if err != nil {
		return nil, lookupErr(err, "get keyword", "keyword", keyword)
	}
	return &kw, nil
}

// SyncSummary counts the outcomes of one SyncRankings run
type SyncSummary struct {
	Tracked   int  `json:"tracked"`
	Updated   int  `json:"updated"`
	Missing   int  `json:"missing"`
	Untracked int  `json:"untracked,omitempty"`
	Rows      int  `json:"rows"`
	Skipped   bool `json:"skipped,omitempty"`
}

// SyncRankings pulls one search analytics report for the window ending now and
// applies a reading to every tracked pair that appears in it.
func (k *KeywordTracker) SyncRankings(ctx context.Context) (SyncSummary, error) {
	var summary SyncSummary
	start := k.now()

	var keywords []db.TrackedKeyword
	if err := k.db.WithContext(ctx).Where("is_tracking = ?", true).Order("id").Find(&keywords).Error; err != nil {
		return summary, apperr.NewPersistence("list tracked keywords", err)
	}
	summary.Tracked = len(keywords)
	if len(keywords) == 0 {
		return summary, nil
	}

	end := start.UTC()
	callCtx, cancel := context.WithTimeout(ctx, k.timeout)
	rows, err := k.rankings.Rankings(callCtx, provider.RankingQuery{
		StartDate:  end.Add(-k.window),
		EndDate:    end,
		Dimensions: []string{provider.DimensionQuery, provider.DimensionPage},
	})
	cancel()

	entry := db.LogEntry{Action: db.ActionKeywordSync, EntityType: "keyword"}
	if errors.Is(err, provider.ErrDisabled) {
		summary.Skipped = true
		entry.Status = db.LogSkipped
		entry.Message = "ranking provider disabled"
		k.log.Append(ctx, entry)
		return summary, nil
	}
	if err != nil {
		perr := apperr.NewProvider("rankings", "query", err)
		entry.Status = db.LogFailed
		entry.Message = perr.Error()
		entry.DurationMs = k.now().Sub(start).Milliseconds()
		k.log.Append(ctx, entry)
		return summary, perr
	}
	summary.Rows = len(rows)

	readings := make(map[string]provider.RankingRow, len(rows))
	for _, r := range rows {
		readings[rankingKey(r.Query, r.Page)] = r
	}

	checkedAt := k.now().UTC()
	for i := range keywords {
		kw := &keywords[i]
		row, ok := readings[rankingKey(kw.Keyword, kw.TargetURL)]
		if !ok {
			summary.Missing++
			err := k.db.WithContext(ctx).Model(kw).
				Updates(map[string]any{"last_checked_at": checkedAt, "updated_at": checkedAt}).Error
			if err != nil {
				return summary, apperr.NewPersistence("update keyword", err)
			}
			continue
		}

		ApplyReading(kw, row, checkedAt)
		kw.UpdatedAt = checkedAt
		// only the ranking columns, and only while the pair is still tracked
		res := k.db.WithContext(ctx).Model(kw).
			Where("is_tracking = ?", true).
			Select(rankingColumns).
			UpdateColumns(kw)
		if res.Error != nil {
			return summary, apperr.NewPersistence("save keyword ranking", res.Error)
		}
		if res.RowsAffected == 0 {
			summary.Untracked++
			continue
		}
		summary.Updated++
	}

	entry.Status = db.LogSuccess
	entry.Message = fmt.Sprintf("synced %d of %d tracked keywords", summary.Updated, summary.Tracked)
	entry.Details = map[string]any{"rows": summary.Rows, "missing": summary.Missing, "untracked": summary.Untracked}
	entry.DurationMs = k.now().Sub(start).Milliseconds()
	k.log.Append(ctx, entry)

	return summary, nil
}

var rankingColumns = []string{
	"current_position", "previous_position", "position_change",
	"impressions", "clicks", "ctr", "history", "last_checked_at", "updated_at",
}

func rankingKey(query, page string) string {
	return NormalizeKeyword(query) + "\x00" + page
}

// ApplyReading folds a fresh ranking reading into a tracked keyword:
// the position shifts into previous, change = previous - new (positive means
// the page moved up), one history point is appended with the oldest points
// evicted beyond MaxRankingHistory, and ctr is recomputed.
func ApplyReading(kw *db.TrackedKeyword, row provider.RankingRow, at time.Time) {
	position := round2(row.Position)

	kw.PreviousPosition = kw.CurrentPosition
	kw.CurrentPosition = &position
	kw.PositionChange = nil
	if kw.PreviousPosition != nil {
		change := round2(*kw.PreviousPosition - position)
		kw.PositionChange = &change
	}

	kw.Impressions = row.Impressions
	kw.Clicks = row.Clicks
	kw.CTR = 0
	if row.Impressions > 0 {
		kw.CTR = round2(float64(row.Clicks) / float64(row.Impressions) * 100)
	}

	kw.History = append(kw.History, db.RankingPoint{
		Date:        at,
		Position:    position,
		Impressions: row.Impressions,
		Clicks:      row.Clicks,
	})
	if extra := len(kw.History) - MaxRankingHistory; extra > 0 {
		kw.History = append([]db.RankingPoint(nil), kw.History[extra:]...)
	}

	kw.LastCheckedAt = &at
}

// List returns pairs ordered by keyword; onlyTracking drops untracked pairs
func (k *KeywordTracker) List(ctx context.Context, onlyTracking bool) ([]db.TrackedKeyword, error) {
	q := k.db.WithContext(ctx).Model(&db.TrackedKeyword{})
	if onlyTracking {
		q = q.Where("is_tracking = ?", true)
	}

	var keywords []db.TrackedKeyword
	if err := q.Order("keyword").Order("target_url").Find(&keywords).Error; err != nil {
		return nil, apperr.NewPersistence("list keywords", err)
	}
	return keywords, nil
}

// Top returns the n best ranked tracked pairs, position ascending
func (k *KeywordTracker) Top(ctx context.Context, n int) ([]db.TrackedKeyword, error) {
	var keywords []db.TrackedKeyword
	err := k.db.WithContext(ctx).
		Where("is_tracking = ? AND current_position IS NOT NULL", true).
		Order("current_position ASC").Order("keyword").
		Limit(n).
		Find(&keywords).Error
	if err != nil {
		return nil, apperr.NewPersistence("top keywords", err)
	}
	return keywords, nil
}

// KeywordStats aggregates tracked pairs
type KeywordStats struct {
	Tracked         int64   `json:"tracked"`
	Ranked          int64   `json:"ranked"`
	AveragePosition float64 `json:"average_position"`
}

func (k *KeywordTracker) Stats(ctx context.Context) (KeywordStats, error) {
	var row struct {
		Tracked int64
		Ranked  int64
		Avg     *float64
	}
	err := k.db.WithContext(ctx).Model(&db.TrackedKeyword{}).
		Select("COUNT(*) AS tracked, COUNT(current_position) AS ranked, AVG(current_position) AS avg").
		Where("is_tracking = ?", true).
		Scan(&row).Error
	if err != nil {
		return KeywordStats{}, apperr.NewPersistence("keyword stats", err)
	}

	stats := KeywordStats{Tracked: row.Tracked, Ranked: row.Ranked}
	if row.Avg != nil {
		stats.AveragePosition = round2(*row.Avg)
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
