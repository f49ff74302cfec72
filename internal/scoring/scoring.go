// Package scoring rates content along nine weighted dimensions and derives
// prioritized suggestions. Scoring is a pure function of its Input.
package scoring

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sykell/seo-engine/internal/analyzer"
)

// Subscore weights; they sum to 1.00
const (
	WeightTitle           = 0.15
	WeightMetaDescription = 0.10
	WeightContent         = 0.20
	WeightHeading         = 0.10
	WeightKeyword         = 0.15
	WeightReadability     = 0.10
	WeightInternalLink    = 0.08
	WeightImage           = 0.07
	WeightTechnical       = 0.05
)

// Thresholds shared by rubrics and suggestions
const (
	NeutralKeywordScore = 50
	GoodThreshold       = 80
	AverageThreshold    = 50

	MinTitleLength     = 30
	OptimalTitleMin    = 50
	OptimalTitleMax    = 60
	OptimalMetaMin     = 120
	OptimalMetaMax     = 160
	MinWordCount       = 300
	TargetWordCount    = 1500
	MinKeywordDensity  = 0.5
	MaxKeywordDensity  = 2.5
	MaxSentenceLength  = 20
	SentenceCeiling    = 25
	MinInternalLinks   = 3
	IntroWordCount     = 100
	MaxSlugLength      = 75
	MaxParagraphLength = 150
)

// Score runs the analyzer over the body and rates the content
func Score(in Input) Result {
	doc := analyzer.Parse(in.Body, in.FocusKeyword)
	return ScoreDocument(in, doc)
}

// ScoreDocument rates content whose body has already been parsed
func ScoreDocument(in Input, doc analyzer.Document) Result {
	f := newFacts(in, doc)

	scores := Subscores{
		Title:           titleRubric(f).score(),
		MetaDescription: metaDescriptionRubric(f).score(),
		Content:         contentRubric(f).score(),
		Heading:         headingRubric(f).score(),
		Keyword:         keywordScore(f),
		Readability:     readabilityRubric(f).score(),
		InternalLink:    internalLinkRubric(f).score(),
		Image:           imageRubric(f).score(),
		Technical:       technicalRubric(f).score(),
	}

	return Result{
		Overall:     Overall(scores),
		Scores:      scores,
		Analysis:    doc.Result,
		Suggestions: suggest(f),
	}
}

// Overall combines subscores with the fixed weights
func Overall(s Subscores) int {
	sum := WeightTitle*float64(clamp(s.Title)) +
		WeightMetaDescription*float64(clamp(s.MetaDescription)) +
		WeightContent*float64(clamp(s.Content)) +
		WeightHeading*float64(clamp(s.Heading)) +
		WeightKeyword*float64(clamp(s.Keyword)) +
		WeightReadability*float64(clamp(s.Readability)) +
		WeightInternalLink*float64(clamp(s.InternalLink)) +
		WeightImage*float64(clamp(s.Image)) +
		WeightTechnical*float64(clamp(s.Technical))
	return clamp(int(math.Round(sum)))
}

// facts carries the derived values every rubric looks at
type facts struct {
	in          Input
	doc         analyzer.Document
	title       string
	description string
	keyword     string
	intro       string
}

func newFacts(in Input, doc analyzer.Document) *facts {
	title := strings.TrimSpace(in.MetaTitle)
	if title == "" {
		title = strings.TrimSpace(in.Title)
	}
	description := strings.TrimSpace(in.MetaDescription)
	if description == "" {
		description = strings.TrimSpace(in.Excerpt)
	}

	return &facts{
		in:          in,
		doc:         doc,
		title:       title,
		description: description,
		keyword:     strings.ToLower(strings.TrimSpace(in.FocusKeyword)),
		intro:       analyzer.FirstWords(doc.Text, IntroWordCount),
	}
}

func (f *facts) hasKeyword() bool { return f.keyword != "" }

func (f *facts) contains(text string) bool {
	return f.hasKeyword() && strings.Contains(strings.ToLower(text), f.keyword)
}

func (f *facts) keywordInHeading() bool {
	for _, h := range f.doc.HeadingTexts {
		if f.contains(h) {
			return true
		}
	}
	return false
}

func (f *facts) keywordInAlt() bool {
	for _, alt := range f.doc.AltTexts {
		if f.contains(alt) {
			return true
		}
	}
	return false
}

func (f *facts) keywordSlug() string {
	return strings.Join(strings.Fields(f.keyword), "-")
}

func length(s string) int { return utf8.RuneCountInString(s) }

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func sortSuggestions(list []Suggestion) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Priority.rank() < list[j].Priority.rank()
	})
}
