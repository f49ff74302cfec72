package service

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sykell/seo-engine/internal/apperr"
	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/scoring"
)

// ScoreStore keeps one snapshot per content id
type ScoreStore struct {
	db *gorm.DB
}

func NewScoreStore(dbConn *gorm.DB) *ScoreStore {
	return &ScoreStore{db: dbConn}
}

// Upsert creates the snapshot or overwrites every column of the existing one
func (s *ScoreStore) Upsert(ctx context.Context, snapshot *db.ScoreSnapshot) error {
	if snapshot.ContentID == "" {
		return apperr.NewValidation("score snapshot requires a content id")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_id"}},
		UpdateAll: true,
	}).Create(snapshot).Error
	if err != nil {
		return apperr.NewPersistence("upsert score", err)
	}
	return nil
}

// Get returns the snapshot for a content id or a NotFoundError
func (s *ScoreStore) Get(ctx context.Context, contentID string) (*db.ScoreSnapshot, error) {
	var snapshot db.ScoreSnapshot
	err := s.db.WithContext(ctx).Where("content_id = ?", contentID).First(&snapshot).Error
	if err != nil {
		return nil, lookupErr(err, "get score", "score", contentID)
	}
	return &snapshot, nil
}

// List returns snapshots ordered by overall score, best first
func (s *ScoreStore) List(ctx context.Context, limit, offset int) ([]db.ScoreSnapshot, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&db.ScoreSnapshot{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.NewPersistence("count scores", err)
	}

	var snapshots []db.ScoreSnapshot
	err := s.db.WithContext(ctx).
		Order("overall_score DESC").Order("content_id").
		Limit(limit).Offset(offset).
		Find(&snapshots).Error
	if err != nil {
		return nil, 0, apperr.NewPersistence("list scores", err)
	}
	return snapshots, total, nil
}

// Best returns the n highest scoring snapshots
func (s *ScoreStore) Best(ctx context.Context, n int) ([]db.ScoreSnapshot, error) {
	return s.ranked(ctx, "overall_score DESC", n)
}

// Worst returns the n lowest scoring snapshots
func (s *ScoreStore) Worst(ctx context.Context, n int) ([]db.ScoreSnapshot, error) {
	return s.ranked(ctx, "overall_score ASC", n)
}

func (s *ScoreStore) ranked(ctx context.Context, order string, n int) ([]db.ScoreSnapshot, error) {
	var snapshots []db.ScoreSnapshot
	err := s.db.WithContext(ctx).Order(order).Order("content_id").Limit(n).Find(&snapshots).Error
	if err != nil {
		return nil, apperr.NewPersistence("rank scores", err)
	}
	return snapshots, nil
}

// ScoreStats aggregates the stored snapshots
type ScoreStats struct {
	Analyzed     int64   `json:"analyzed"`
	AverageScore float64 `json:"average_score"`
	Good         int64   `json:"good"`
	Average      int64   `json:"average"`
	Poor         int64   `json:"poor"`
}

func (s *ScoreStore) Stats(ctx context.Context) (ScoreStats, error) {
	var row struct {
		Analyzed int64
		Avg      *float64
		Good     int64
		Average  int64
	}

	err := s.db.WithContext(ctx).Model(&db.ScoreSnapshot{}).
		Select(
			"COUNT(*) AS analyzed, AVG(overall_score) AS avg, "+
				"COALESCE(SUM(CASE WHEN overall_score >= ? THEN 1 ELSE 0 END), 0) AS good, "+
				"COALESCE(SUM(CASE WHEN overall_score >= ? AND overall_score < ? THEN 1 ELSE 0 END), 0) AS average",
			scoring.GoodThreshold, scoring.AverageThreshold, scoring.GoodThreshold,
		).
		Scan(&row).Error
	if err != nil {
		return ScoreStats{}, apperr.NewPersistence("score stats", err)
	}

	stats := ScoreStats{
		Analyzed: row.Analyzed,
		Good:     row.Good,
		Average:  row.Average,
		Poor:     row.Analyzed - row.Good - row.Average,
	}
	if row.Avg != nil {
		stats.AverageScore = round2(*row.Avg)
	}
	return stats, nil
}
