package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sykell/seo-engine/internal/apperr"
	"github.com/sykell/seo-engine/internal/db"
)

// ContentRef is the slice of a content row the scheduler needs to plan work
type ContentRef struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContentRepository reads the CMS content table. It never writes.
type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(dbConn *gorm.DB) *ContentRepository {
	return &ContentRepository{db: dbConn}
}

// GetContent retrieves a content item by ID
func (r *ContentRepository) GetContent(ctx context.Context, id string) (*db.Content, error) {
	var content db.Content
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&content).Error; err != nil {
		return nil, lookupErr(err, "get content", "content", id)
	}
	return &content, nil
}

// CountPublished returns the number of published content items
func (r *ContentRepository) CountPublished(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Content{}).Where("status = ?", db.ContentPublished).Count(&n).Error
	if err != nil {
		return 0, apperr.NewPersistence("count published", err)
	}
	return n, nil
}

// ListPublished returns every published item, most recently updated first
func (r *ContentRepository) ListPublished(ctx context.Context) ([]ContentRef, error) {
	var refs []ContentRef
	err := r.db.WithContext(ctx).Model(&db.Content{}).
		Select("id, slug, title, updated_at").
		Where("status = ?", db.ContentPublished).
		Order("updated_at DESC").Order("id").
		Scan(&refs).Error
	if err != nil {
		return nil, apperr.NewPersistence("list published", err)
	}
	return refs, nil
}

// NeedingAnalysis returns published items with no snapshot or updated after
// their last analysis, most recently updated first
func (r *ContentRepository) NeedingAnalysis(ctx context.Context, limit int) ([]ContentRef, error) {
	var refs []ContentRef
	err := r.db.WithContext(ctx).Table("contents AS c").
		Select("c.id, c.slug, c.title, c.updated_at").
		Joins("LEFT JOIN seo_scores s ON s.content_id = c.id").
		Where("c.status = ?", db.ContentPublished).
		Where("s.id IS NULL OR " + timeCol(r.db, "c.updated_at") + " > " + timeCol(r.db, "s.checked_at")).
		Order("c.updated_at DESC").Order("c.id").
		Limit(limit).
		Scan(&refs).Error
	if err != nil {
		return nil, apperr.NewPersistence("list content needing analysis", err)
	}
	return refs, nil
}

// UpdatedBefore returns published items not touched since the cutoff, oldest first
func (r *ContentRepository) UpdatedBefore(ctx context.Context, cutoff time.Time) ([]ContentRef, error) {
	var refs []ContentRef
	err := r.db.WithContext(ctx).Model(&db.Content{}).
		Select("id, slug, title, updated_at").
		Where("status = ?", db.ContentPublished).
		Where(timeCol(r.db, "updated_at")+" < "+timeCol(r.db, "?"), cutoff.UTC()).
		Order("updated_at ASC").Order("id").
		Scan(&refs).Error
	if err != nil {
		return nil, apperr.NewPersistence("list stale content", err)
	}
	return refs, nil
}

// PublishedSlugs returns the set of slugs that resolve to published content
func (r *ContentRepository) PublishedSlugs(ctx context.Context) (map[string]bool, error) {
	var slugs []string
	err := r.db.WithContext(ctx).Model(&db.Content{}).
		Where("status = ? AND slug <> ''", db.ContentPublished).
		Pluck("slug", &slugs).Error
	if err != nil {
		return nil, apperr.NewPersistence("list slugs", err)
	}

	set := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		set[s] = true
	}
	return set, nil
}

// Titles maps content ids to titles; unknown ids are absent from the result
func (r *ContentRepository) Titles(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		ID    string
		Title string
	}
	err := r.db.WithContext(ctx).Model(&db.Content{}).Select("id, title").Where("id IN ?", ids).Scan(&rows).Error
	if err != nil {
		return nil, apperr.NewPersistence("content titles", err)
	}
	for _, row := range rows {
		out[row.ID] = row.Title
	}
	return out, nil
}

// timeCol makes a timestamp expression compare chronologically. SQLite keeps
// times as text carrying the writer's zone offset, and the contents table is
// written by the CMS in whatever zone it uses.
func timeCol(conn *gorm.DB, expr string) string {
	if conn.Dialector.Name() == "sqlite" {
		return "julianday(" + expr + ")"
	}
	return expr
}
