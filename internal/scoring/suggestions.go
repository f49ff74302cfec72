package scoring

import (
	"fmt"
	"strings"
)

// suggest evaluates every suggestion rule independently; each emits at most
// one entry. The list is ordered by priority, rule order within a priority.
func suggest(f *facts) []Suggestion {
	rules := []func(*facts) (Suggestion, bool){
		suggestTitleLength,
		suggestTitleKeyword,
		suggestMetaDescription,
		suggestWordCount,
		suggestSubheadings,
		suggestSingleH1,
		suggestCoverImage,
		suggestAltText,
		suggestInternalLinks,
		suggestExternalLinks,
		suggestKeywordDensity,
		suggestKeywordIntro,
		suggestSentenceLength,
		suggestSlug,
		suggestCategory,
	}

	list := make([]Suggestion, 0, len(rules))
	for _, r := range rules {
		if s, ok := r(f); ok {
			list = append(list, s)
		}
	}
	sortSuggestions(list)
	return list
}

func newSuggestion(t SuggestionType, category string, p Priority, format string, args ...any) (Suggestion, bool) {
	return Suggestion{Type: t, Category: category, Message: fmt.Sprintf(format, args...), Priority: p}, true
}

func suggestTitleLength(f *facts) (Suggestion, bool) {
	n := length(f.title)
	switch {
	case n == 0:
		return newSuggestion(TypeError, "title", PriorityHigh, "Add a title")
	case n < MinTitleLength:
		return newSuggestion(TypeError, "title", PriorityHigh,
			"Title is too short (%d characters); aim for %d-%d", n, OptimalTitleMin, OptimalTitleMax)
	case n > OptimalTitleMax:
		return newSuggestion(TypeWarning, "title", PriorityMedium,
			"Title is %d characters and may be truncated in search results; aim for %d-%d", n, OptimalTitleMin, OptimalTitleMax)
	case n < OptimalTitleMin:
		return newSuggestion(TypeInfo, "title", PriorityLow,
			"Title could be longer (%d characters); aim for %d-%d", n, OptimalTitleMin, OptimalTitleMax)
	default:
		return newSuggestion(TypeSuccess, "title", PriorityLow, "Title length is optimal")
	}
}

func suggestTitleKeyword(f *facts) (Suggestion, bool) {
	if !f.hasKeyword() {
		return newSuggestion(TypeInfo, "keyword", PriorityMedium, "Set a focus keyword to enable keyword checks")
	}
	if !f.contains(f.title) {
		return newSuggestion(TypeError, "title", PriorityHigh, "Focus keyword %q does not appear in the title", f.in.FocusKeyword)
	}
	return Suggestion{}, false
}

func suggestMetaDescription(f *facts) (Suggestion, bool) {
	n := length(f.description)
	switch {
	case n == 0:
		return newSuggestion(TypeError, "metaDescription", PriorityHigh, "Add a meta description")
	case n < OptimalMetaMin:
		return newSuggestion(TypeWarning, "metaDescription", PriorityMedium,
			"Meta description is too short (%d characters); aim for %d-%d", n, OptimalMetaMin, OptimalMetaMax)
	case n > OptimalMetaMax:
		return newSuggestion(TypeWarning, "metaDescription", PriorityMedium,
			"Meta description is too long (%d characters); aim for %d-%d", n, OptimalMetaMin, OptimalMetaMax)
	default:
		return newSuggestion(TypeSuccess, "metaDescription", PriorityLow, "Meta description length is optimal")
	}
}

func suggestWordCount(f *facts) (Suggestion, bool) {
	words := f.doc.WordCount
	switch {
	case words < MinWordCount:
		return newSuggestion(TypeError, "content", PriorityHigh,
			"Content is too short (%d words); write at least %d", words, MinWordCount)
	case words < 600:
		return newSuggestion(TypeWarning, "content", PriorityMedium,
			"Content is thin (%d words); in-depth articles usually run past 600", words)
	case words >= TargetWordCount:
		return newSuggestion(TypeSuccess, "content", PriorityLow, "Content length is comprehensive")
	}
	return Suggestion{}, false
}

func suggestSubheadings(f *facts) (Suggestion, bool) {
	if f.doc.Headings.H2 == 0 {
		return newSuggestion(TypeWarning, "heading", PriorityMedium, "Add H2 subheadings to structure the content")
	}
	return Suggestion{}, false
}

func suggestSingleH1(f *facts) (Suggestion, bool) {
	if f.doc.Headings.H1 > 1 {
		return newSuggestion(TypeWarning, "heading", PriorityMedium,
			"Found %d H1 headings; use a single H1", f.doc.Headings.H1)
	}
	return Suggestion{}, false
}

func suggestCoverImage(f *facts) (Suggestion, bool) {
	if strings.TrimSpace(f.in.CoverImage) == "" {
		return newSuggestion(TypeError, "image", PriorityHigh, "Add a cover image")
	}
	return Suggestion{}, false
}

func suggestAltText(f *facts) (Suggestion, bool) {
	if missing := f.doc.Images.WithoutAlt; missing > 0 {
		return newSuggestion(TypeWarning, "image", PriorityMedium, "%d image(s) are missing alt text", missing)
	}
	return Suggestion{}, false
}

func suggestInternalLinks(f *facts) (Suggestion, bool) {
	if f.doc.Links.Internal == 0 {
		return newSuggestion(TypeWarning, "internalLink", PriorityMedium,
			"Add internal links to related content (aim for at least %d)", MinInternalLinks)
	}
	return Suggestion{}, false
}

func suggestExternalLinks(f *facts) (Suggestion, bool) {
	if f.doc.WordCount > 0 && f.doc.Links.External == 0 {
		return newSuggestion(TypeInfo, "internalLink", PriorityLow, "Consider linking to authoritative external sources")
	}
	return Suggestion{}, false
}

func suggestKeywordDensity(f *facts) (Suggestion, bool) {
	if !f.hasKeyword() {
		return Suggestion{}, false
	}
	density := f.doc.KeywordDensity
	switch {
	case density == 0:
		return newSuggestion(TypeError, "keyword", PriorityHigh,
			"Focus keyword %q does not appear in the content", f.in.FocusKeyword)
	case density > MaxKeywordDensity:
		return newSuggestion(TypeWarning, "keyword", PriorityMedium,
			"Keyword density is %.2f%%; above %.1f%% reads as keyword stuffing", density, MaxKeywordDensity)
	case density < MinKeywordDensity:
		return newSuggestion(TypeInfo, "keyword", PriorityLow,
			"Keyword density is %.2f%%; aim for %.1f-%.1f%%", density, MinKeywordDensity, MaxKeywordDensity)
	default:
		return newSuggestion(TypeSuccess, "keyword", PriorityLow, "Keyword density is %.2f%%", density)
	}
}

func suggestKeywordIntro(f *facts) (Suggestion, bool) {
	if f.hasKeyword() && f.doc.WordCount > 0 && !f.contains(f.intro) {
		return newSuggestion(TypeWarning, "keyword", PriorityMedium,
			"Use the focus keyword within the first %d words", IntroWordCount)
	}
	return Suggestion{}, false
}

func suggestSentenceLength(f *facts) (Suggestion, bool) {
	if avg := f.doc.AvgWordsPerSentence; avg > SentenceCeiling {
		return newSuggestion(TypeWarning, "readability", PriorityLow,
			"Sentences average %d words; keep them under %d", avg, SentenceCeiling)
	}
	return Suggestion{}, false
}

func suggestSlug(f *facts) (Suggestion, bool) {
	slug := strings.TrimSpace(f.in.Slug)
	switch {
	case slug == "":
		return newSuggestion(TypeWarning, "technical", PriorityMedium, "Set a URL slug")
	case !slugPattern.MatchString(slug):
		return newSuggestion(TypeInfo, "technical", PriorityLow, "Use lowercase words separated by hyphens in the slug")
	}
	return Suggestion{}, false
}

func suggestCategory(f *facts) (Suggestion, bool) {
	if !f.in.HasCategory {
		return newSuggestion(TypeInfo, "technical", PriorityLow, "Assign a category")
	}
	return Suggestion{}, false
}
