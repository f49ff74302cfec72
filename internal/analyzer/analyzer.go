// Package analyzer turns content markup into the structural statistics the
// scoring rubrics work from. It never fails: malformed or empty input yields
// a zero result.
package analyzer

import (
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	sentenceSplit  = regexp.MustCompile(`[.!?]+`)
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
)

// blockElements end a paragraph in the extracted text
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
	"header": true, "footer": true, "table": true, "tr": true,
	"figure": true, "figcaption": true, "hr": true,
}

var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// Analyze parses body markup and returns its statistics
func Analyze(body, focusKeyword string) Result {
	return Parse(body, focusKeyword).Result
}

// Parse returns the statistics together with the extracted texts
func Parse(body, focusKeyword string) Document {
	doc := parse(body)
	fillTextStats(&doc, focusKeyword)
	return doc
}

func parse(body string) Document {
	var doc Document
	if strings.TrimSpace(body) == "" {
		return doc
	}

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return doc
	}

	doc.Text = PlainTextFrom(gq)
	doc.Headings = countHeadings(gq)
	doc.Images, doc.AltTexts = countImages(gq)
	doc.Links, doc.LinkTargets = countLinks(gq)
	doc.HasList = gq.Find("ul, ol").Length() > 0

	gq.Find("h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			doc.HeadingTexts = append(doc.HeadingTexts, text)
		}
	})

	return doc
}

func fillTextStats(doc *Document, focusKeyword string) {
	text := doc.Text
	keyword := strings.TrimSpace(focusKeyword)
	doc.FocusKeyword = keyword

	doc.WordCount = len(strings.Fields(text))
	doc.SentenceCount = countNonEmpty(sentenceSplit.Split(text, -1))
	doc.ParagraphCount = countNonEmpty(paragraphSplit.Split(text, -1))
	if doc.WordCount > 0 && doc.ParagraphCount == 0 {
		doc.ParagraphCount = 1
	}

	if doc.SentenceCount > 0 {
		doc.AvgWordsPerSentence = int(math.Round(float64(doc.WordCount) / float64(doc.SentenceCount)))
	}

	if keyword != "" {
		doc.FocusKeywordCount = CountOccurrences(text, keyword)
		if doc.WordCount > 0 {
			doc.KeywordDensity = round2(100 * float64(doc.FocusKeywordCount) / float64(doc.WordCount))
		}
	}
}

// countHeadings counts heading tags of levels 1 to 4
func countHeadings(doc *goquery.Document) Heading {
	return Heading{
		H1: doc.Find("h1").Length(),
		H2: doc.Find("h2").Length(),
		H3: doc.Find("h3").Length(),
		H4: doc.Find("h4").Length(),
	}
}

// countImages counts images and those carrying a non-empty alt attribute
func countImages(doc *goquery.Document) (Images, []string) {
	var images Images
	var alts []string

	sel := doc.Find("img")
	images.Total = sel.Length()
	sel.Each(func(_ int, s *goquery.Selection) {
		if alt, exists := s.Attr("alt"); exists && alt != "" {
			images.WithAlt++
			alts = append(alts, alt)
		}
	})
	images.WithoutAlt = images.Total - images.WithAlt

	return images, alts
}

// countLinks splits anchors into internal (root-relative) and external
func countLinks(doc *goquery.Document) (Links, []string) {
	var links Links
	var targets []string

	all := 0
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		all++
		targets = append(targets, href)
		if strings.HasPrefix(href, "/") {
			links.Internal++
		}
	})
	links.External = max(0, all-links.Internal)

	return links, targets
}

// PlainText strips markup from body, keeping paragraph breaks as blank lines
func PlainText(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return PlainTextFrom(gq)
}

// PlainTextFrom extracts the text of an already parsed document
func PlainTextFrom(doc *goquery.Document) string {
	var sb strings.Builder
	for _, n := range doc.Nodes {
		writeText(n, &sb)
	}
	return strings.TrimSpace(sb.String())
}

func writeText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipElements[n.Data] {
			return
		}
		if n.Data == "br" {
			sb.WriteString("\n")
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, sb)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		sb.WriteString("\n\n")
	}
}

// CountOccurrences counts case-insensitive, non-overlapping occurrences of
// phrase in text
func CountOccurrences(text, phrase string) int {
	if phrase == "" {
		return 0
	}
	return strings.Count(strings.ToLower(text), strings.ToLower(phrase))
}

// FirstWords returns the first n whitespace-separated words of text
func FirstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func countNonEmpty(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
