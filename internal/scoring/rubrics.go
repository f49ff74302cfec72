package scoring

import (
	"regexp"
	"strings"
)

// rule is one additive bonus inside a rubric
type rule struct {
	name   string
	points int
	max    int
}

type rubric []rule

func (r rubric) score() int {
	total := 0
	for _, rl := range r {
		total += rl.points
	}
	return clamp(total)
}

func award(name string, ok bool, points int) rule {
	if ok {
		return rule{name: name, points: points, max: points}
	}
	return rule{name: name, max: points}
}

// keywordRule gives half credit when no focus keyword is set
func keywordRule(f *facts, name string, ok bool, points int) rule {
	if !f.hasKeyword() {
		return rule{name: name, points: points / 2, max: points}
	}
	return award(name, ok, points)
}

var (
	digitPattern = regexp.MustCompile(`\d`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

var powerWords = []string{
	"ultimate", "complete", "essential", "proven", "best", "guide",
	"easy", "simple", "quick", "powerful", "secret", "amazing",
	"definitive", "expert", "free", "new", "top", "how to",
}

var callToActionWords = []string{
	"learn", "discover", "find out", "read", "get", "try", "explore",
	"see how", "start", "check out",
}

var transitionPatterns = compileWords(
	"however", "therefore", "moreover", "furthermore", "for example",
	"for instance", "in addition", "consequently", "meanwhile",
	"in contrast", "finally", "firstly", "secondly", "as a result",
	"on the other hand", "in conclusion", "similarly", "also",
)

func compileWords(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// lengthPoints gives full credit inside the best window, partial credit in
// the adjacent windows and minimal credit for any other nonzero length
func lengthPoints(n, bestMin, bestMax, nearMin, nearMax, full, partial, minimal int) int {
	switch {
	case n == 0:
		return 0
	case n >= bestMin && n <= bestMax:
		return full
	case n >= nearMin && n <= nearMax:
		return partial
	default:
		return minimal
	}
}

func titleRubric(f *facts) rubric {
	n := length(f.title)
	keywordAt := strings.Index(strings.ToLower(f.title), f.keyword)

	return rubric{
		{name: "length", points: lengthPoints(n, OptimalTitleMin, OptimalTitleMax, 40, 70, 40, 25, 10), max: 40},
		keywordRule(f, "keyword", f.contains(f.title), 30),
		award("keywordFirst", f.hasKeyword() && keywordAt >= 0 && keywordAt < len(f.title)/2+1, 10),
		award("numeral", digitPattern.MatchString(f.title), 10),
		award("powerWord", containsAny(f.title, powerWords), 10),
	}
}

func metaDescriptionRubric(f *facts) rubric {
	n := length(f.description)

	return rubric{
		{name: "length", points: lengthPoints(n, OptimalMetaMin, OptimalMetaMax, 100, 180, 50, 30, 10), max: 50},
		keywordRule(f, "keyword", f.contains(f.description), 30),
		award("callToAction", containsAny(f.description, callToActionWords), 10),
		award("distinct", n > 0 && !strings.EqualFold(f.description, f.title), 10),
	}
}

func contentRubric(f *facts) rubric {
	words := f.doc.WordCount
	density := f.doc.KeywordDensity

	wordPoints := 0
	switch {
	case words >= TargetWordCount:
		wordPoints = 40
	case words >= 1000:
		wordPoints = 30
	case words >= 600:
		wordPoints = 20
	case words >= MinWordCount:
		wordPoints = 10
	case words > 0:
		wordPoints = 5
	}

	densityPoints := 0
	switch {
	case !f.hasKeyword():
		densityPoints = 12
	case density >= MinKeywordDensity && density <= MaxKeywordDensity:
		densityPoints = 25
	case density > 0:
		densityPoints = 10
	}

	paragraphPoints := 0
	switch {
	case f.doc.ParagraphCount >= 5:
		paragraphPoints = 10
	case f.doc.ParagraphCount >= 2:
		paragraphPoints = 5
	}

	return rubric{
		{name: "wordCount", points: wordPoints, max: 40},
		{name: "density", points: densityPoints, max: 25},
		keywordRule(f, "keywordInIntro", f.contains(f.intro), 15),
		{name: "paragraphs", points: paragraphPoints, max: 10},
		award("list", f.doc.HasList, 10),
	}
}

func headingRubric(f *facts) rubric {
	h := f.doc.Headings

	h1Points := 0
	switch {
	case h.H1 == 1:
		h1Points = 30
	case h.H1 > 1:
		h1Points = 10
	}

	h2Points := 0
	switch {
	case h.H2 >= 2:
		h2Points = 30
	case h.H2 == 1:
		h2Points = 15
	}

	hasHeadings := h.H1+h.H2+h.H3+h.H4 > 0
	ordered := hasHeadings && (h.H3 == 0 || h.H2 > 0) && (h.H4 == 0 || h.H3 > 0)

	return rubric{
		{name: "singleH1", points: h1Points, max: 30},
		{name: "subheadings", points: h2Points, max: 30},
		award("depth", h.H3 > 0, 15),
		award("hierarchy", ordered, 10),
		keywordRule(f, "keywordInHeading", f.keywordInHeading(), 15),
	}
}

// keywordScore is the neutral value exactly when no focus keyword is set
func keywordScore(f *facts) int {
	if !f.hasKeyword() {
		return NeutralKeywordScore
	}
	return keywordRubric(f).score()
}

func keywordRubric(f *facts) rubric {
	density := f.doc.KeywordDensity

	densityPoints := 0
	switch {
	case density >= MinKeywordDensity && density <= MaxKeywordDensity:
		densityPoints = 30
	case density > MaxKeywordDensity:
		densityPoints = 10
	case density > 0:
		densityPoints = 15
	}

	return rubric{
		{name: "density", points: densityPoints, max: 30},
		award("inTitle", f.contains(f.title), 20),
		award("inDescription", f.contains(f.description), 15),
		award("inIntro", f.contains(f.intro), 15),
		award("inSlug", strings.Contains(strings.ToLower(f.in.Slug), f.keywordSlug()), 10),
		award("inHeading", f.keywordInHeading(), 10),
	}
}

func readabilityRubric(f *facts) rubric {
	doc := f.doc

	sentencePoints := 0
	switch {
	case doc.SentenceCount == 0:
	case doc.AvgWordsPerSentence <= MaxSentenceLength:
		sentencePoints = 40
	case doc.AvgWordsPerSentence <= SentenceCeiling:
		sentencePoints = 25
	default:
		sentencePoints = 10
	}

	paragraphPoints := 0
	if doc.WordCount > 0 && doc.ParagraphCount > 0 {
		if doc.WordCount/doc.ParagraphCount <= MaxParagraphLength {
			paragraphPoints = 20
		} else {
			paragraphPoints = 10
		}
	}

	transitionPoints := 0
	switch n := countTransitions(doc.Text); {
	case n >= 3:
		transitionPoints = 20
	case n >= 1:
		transitionPoints = 10
	}

	varietyPoints := 0
	switch ratio := vocabularyVariety(doc.Text); {
	case ratio >= 0.4:
		varietyPoints = 20
	case ratio >= 0.25:
		varietyPoints = 10
	}

	return rubric{
		{name: "sentenceLength", points: sentencePoints, max: 40},
		{name: "paragraphLength", points: paragraphPoints, max: 20},
		{name: "transitions", points: transitionPoints, max: 20},
		{name: "variety", points: varietyPoints, max: 20},
	}
}

func countTransitions(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, p := range transitionPatterns {
		if p.MatchString(lower) {
			n++
		}
	}
	return n
}

// vocabularyVariety is the ratio of distinct words to all words
func vocabularyVariety(text string) float64 {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}

func internalLinkRubric(f *facts) rubric {
	links := f.doc.Links
	total := links.Internal + links.External

	internalPoints := 0
	switch {
	case links.Internal >= MinInternalLinks:
		internalPoints = 50
	case links.Internal > 0:
		internalPoints = 30
	}

	// at most five links per hundred words
	balanced := total > 0 && f.doc.WordCount > 0 && total*100 <= 5*f.doc.WordCount

	return rubric{
		{name: "internal", points: internalPoints, max: 50},
		award("external", links.External > 0, 20),
		award("category", f.in.HasCategory, 20),
		award("density", balanced, 10),
	}
}

func imageRubric(f *facts) rubric {
	images := f.doc.Images

	altPoints := 0
	switch {
	case images.Total == 0:
	case images.WithoutAlt == 0:
		altPoints = 30
	case images.WithAlt > 0:
		altPoints = 15
	}

	return rubric{
		award("cover", strings.TrimSpace(f.in.CoverImage) != "", 40),
		award("bodyImages", images.Total > 0, 20),
		{name: "altText", points: altPoints, max: 30},
		keywordRule(f, "keywordInAlt", f.keywordInAlt(), 10),
	}
}

func technicalRubric(f *facts) rubric {
	slug := strings.TrimSpace(f.in.Slug)

	return rubric{
		award("slug", slug != "", 25),
		award("slugFormat", slugPattern.MatchString(slug) && len(slug) <= MaxSlugLength, 25),
		keywordRule(f, "keywordInSlug", slug != "" && strings.Contains(strings.ToLower(slug), f.keywordSlug()), 20),
		award("metaTitle", strings.TrimSpace(f.in.MetaTitle) != "", 15),
		award("excerpt", strings.TrimSpace(f.in.Excerpt) != "", 15),
	}
}
