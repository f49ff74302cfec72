package db

import (
	"time"

	"github.com/sykell/seo-engine/internal/analyzer"
	"github.com/sykell/seo-engine/internal/scoring"
)

type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentPublished ContentStatus = "published"
)

// Content is the CMS record the engine reads. The engine never writes it.
type Content struct {
	ID              string        `gorm:"primaryKey;size:64" json:"id"`
	Title           string        `gorm:"not null" json:"title"`
	Slug            string        `gorm:"index;size:255" json:"slug"`
	MetaTitle       string        `json:"meta_title"`
	MetaDescription string        `gorm:"size:512" json:"meta_description"`
	Excerpt         string        `gorm:"size:1024" json:"excerpt"`
	Body            string        `gorm:"type:text" json:"body"`
	CoverImage      string        `json:"cover_image"`
	CanonicalURL    string        `json:"canonical_url"`
	CategoryID      *string       `gorm:"size:64" json:"category_id,omitempty"`
	FocusKeyword    string        `json:"focus_keyword"`
	Status          ContentStatus `gorm:"index;size:20;default:'draft'" json:"status"`
	PublishedAt     *time.Time    `json:"published_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `gorm:"index" json:"updated_at"`
}

func (Content) TableName() string { return "contents" }

// ScoreSnapshot is the latest scoring run for one content item
type ScoreSnapshot struct {
	ID                   uint                 `gorm:"primaryKey" json:"id"`
	ContentID            string               `gorm:"uniqueIndex;not null;size:64" json:"content_id"`
	OverallScore         int                  `gorm:"index" json:"overall_score"`
	TitleScore           int                  `json:"title_score"`
	MetaDescriptionScore int                  `json:"meta_description_score"`
	ContentScore         int                  `json:"content_score"`
	HeadingScore         int                  `json:"heading_score"`
	KeywordScore         int                  `json:"keyword_score"`
	ReadabilityScore     int                  `json:"readability_score"`
	InternalLinkScore    int                  `json:"internal_link_score"`
	ImageScore           int                  `json:"image_score"`
	TechnicalScore       int                  `json:"technical_score"`
	Analysis             analyzer.Result      `gorm:"serializer:json;type:text" json:"analysis"`
	Suggestions          []scoring.Suggestion `gorm:"serializer:json;type:text" json:"suggestions"`
	CheckedAt            time.Time            `gorm:"index" json:"checked_at"`
}

func (ScoreSnapshot) TableName() string { return "seo_scores" }

// Subscores returns the nine subscores in their scoring form
func (s *ScoreSnapshot) Subscores() scoring.Subscores {
	return scoring.Subscores{
		Title:           s.TitleScore,
		MetaDescription: s.MetaDescriptionScore,
		Content:         s.ContentScore,
		Heading:         s.HeadingScore,
		Keyword:         s.KeywordScore,
		Readability:     s.ReadabilityScore,
		InternalLink:    s.InternalLinkScore,
		Image:           s.ImageScore,
		Technical:       s.TechnicalScore,
	}
}

// NewScoreSnapshot builds the persisted form of a scoring result
func NewScoreSnapshot(contentID string, result scoring.Result, checkedAt time.Time) ScoreSnapshot {
	return ScoreSnapshot{
		ContentID:            contentID,
		OverallScore:         result.Overall,
		TitleScore:           result.Scores.Title,
		MetaDescriptionScore: result.Scores.MetaDescription,
		ContentScore:         result.Scores.Content,
		HeadingScore:         result.Scores.Heading,
		KeywordScore:         result.Scores.Keyword,
		ReadabilityScore:     result.Scores.Readability,
		InternalLinkScore:    result.Scores.InternalLink,
		ImageScore:           result.Scores.Image,
		TechnicalScore:       result.Scores.Technical,
		Analysis:             result.Analysis,
		Suggestions:          result.Suggestions,
		CheckedAt:            checkedAt,
	}
}

type Action string

const (
	ActionAnalyze         Action = "analyze"
	ActionSubmitIndex     Action = "submit-index"
	ActionCheckIndex      Action = "check-index"
	ActionRemoveIndex     Action = "remove-index"
	ActionPageSpeed       Action = "pagespeed-check"
	ActionKeywordTrack    Action = "keyword-track"
	ActionKeywordSync     Action = "keyword-sync"
	ActionBrokenLinks     Action = "broken-link-scan"
	ActionStaleContent    Action = "stale-content"
	ActionLogPurge        Action = "log-purge"
	ActionScheduledTask   Action = "scheduled-task"
	ActionReportGenerated Action = "report-generated"
)

type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
	LogSkipped LogStatus = "skipped"
	LogWarning LogStatus = "warning"
	LogInfo    LogStatus = "info"
)

// LogEntry is one immutable audit trail record
type LogEntry struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Action     Action         `gorm:"index;not null;size:40" json:"action"`
	EntityType string         `gorm:"size:40" json:"entity_type,omitempty"`
	EntityID   string         `gorm:"index;size:768" json:"entity_id,omitempty"`
	Status     LogStatus      `gorm:"index;not null;size:20" json:"status"`
	Message    string         `gorm:"size:1024" json:"message"`
	Details    map[string]any `gorm:"serializer:json;type:text" json:"details,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Scheduled  bool           `json:"scheduled"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (LogEntry) TableName() string { return "seo_logs" }

type IndexStatus string

const (
	IndexPending    IndexStatus = "pending"
	IndexSubmitted  IndexStatus = "submitted"
	IndexIndexed    IndexStatus = "indexed"
	IndexNotIndexed IndexStatus = "not_indexed"
	IndexError      IndexStatus = "error"
	IndexRemoved    IndexStatus = "removed"
)

// IndexRecord tracks the indexing lifecycle of one public URL
type IndexRecord struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	URL           string      `gorm:"uniqueIndex;not null;size:768" json:"url"`
	ContentID     string      `gorm:"index;size:64" json:"content_id,omitempty"`
	Status        IndexStatus `gorm:"index;size:20;default:'pending'" json:"status"`
	Method        string      `gorm:"size:40" json:"method"`
	SubmittedAt   *time.Time  `json:"submitted_at,omitempty"`
	IndexedAt     *time.Time  `json:"indexed_at,omitempty"`
	LastCheckedAt *time.Time  `json:"last_checked_at,omitempty"`
	CoverageState string      `json:"coverage_state,omitempty"`
	IndexingState string      `json:"indexing_state,omitempty"`
	CrawledAs     string      `gorm:"size:20" json:"crawled_as,omitempty"`
	LastCrawledAt *time.Time  `json:"last_crawled_at,omitempty"`
	ErrorMessage  string      `gorm:"size:1024" json:"error_message,omitempty"`
	MobileScore   *int        `json:"mobile_score,omitempty"`
	DesktopScore  *int        `json:"desktop_score,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (IndexRecord) TableName() string { return "seo_index_records" }

// RankingPoint is one entry of a keyword's ranking history
type RankingPoint struct {
	Date        time.Time `json:"date"`
	Position    float64   `json:"position"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
}

// TrackedKeyword is the ranking state of one keyword for one target URL
type TrackedKeyword struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Keyword          string         `gorm:"uniqueIndex:idx_keyword_target;not null;size:255" json:"keyword"`
	TargetURL        string         `gorm:"uniqueIndex:idx_keyword_target;not null;size:512" json:"target_url"`
	ContentID        string         `gorm:"index;size:64" json:"content_id,omitempty"`
	CurrentPosition  *float64       `json:"current_position,omitempty"`
	PreviousPosition *float64       `json:"previous_position,omitempty"`
	PositionChange   *float64       `json:"position_change,omitempty"`
	Impressions      int64          `json:"impressions"`
	Clicks           int64          `json:"clicks"`
	CTR              float64        `json:"ctr"`
	History          []RankingPoint `gorm:"serializer:json;type:text" json:"history"`
	IsTracking       bool           `gorm:"index" json:"is_tracking"`
	LastCheckedAt    *time.Time     `json:"last_checked_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (TrackedKeyword) TableName() string { return "seo_keywords" }
