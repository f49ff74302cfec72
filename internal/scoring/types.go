package scoring

import "github.com/sykell/seo-engine/internal/analyzer"

// Input is everything a score depends on
type Input struct {
	Title           string
	MetaTitle       string
	MetaDescription string
	Excerpt         string
	Body            string
	CoverImage      string
	Slug            string
	HasCategory     bool
	FocusKeyword    string
}

// Subscores are the nine per-dimension ratings, each in [0,100]
type Subscores struct {
	Title           int `json:"title"`
	MetaDescription int `json:"metaDescription"`
	Content         int `json:"content"`
	Heading         int `json:"heading"`
	Keyword         int `json:"keyword"`
	Readability     int `json:"readability"`
	InternalLink    int `json:"internalLink"`
	Image           int `json:"image"`
	Technical       int `json:"technical"`
}

// Named lists the subscores with their dimension names, in weight order
func (s Subscores) Named() []NamedScore {
	return []NamedScore{
		{Name: "title", Score: s.Title},
		{Name: "metaDescription", Score: s.MetaDescription},
		{Name: "content", Score: s.Content},
		{Name: "heading", Score: s.Heading},
		{Name: "keyword", Score: s.Keyword},
		{Name: "readability", Score: s.Readability},
		{Name: "internalLink", Score: s.InternalLink},
		{Name: "image", Score: s.Image},
		{Name: "technical", Score: s.Technical},
	}
}

type NamedScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Result is the outcome of one scoring run
type Result struct {
	Overall     int             `json:"overallScore"`
	Scores      Subscores       `json:"scores"`
	Analysis    analyzer.Result `json:"analysis"`
	Suggestions []Suggestion    `json:"suggestions"`
}

type SuggestionType string

const (
	TypeError   SuggestionType = "error"
	TypeWarning SuggestionType = "warning"
	TypeSuccess SuggestionType = "success"
	TypeInfo    SuggestionType = "info"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Suggestion is one actionable finding
type Suggestion struct {
	Type     SuggestionType `json:"type"`
	Category string         `json:"category"`
	Message  string         `json:"message"`
	Priority Priority       `json:"priority"`
}

type Band string

const (
	BandGood    Band = "good"
	BandAverage Band = "average"
	BandPoor    Band = "poor"
)

// BandOf places a 0-100 score into its quality band
func BandOf(score int) Band {
	switch {
	case score >= GoodThreshold:
		return BandGood
	case score >= AverageThreshold:
		return BandAverage
	default:
		return BandPoor
	}
}
