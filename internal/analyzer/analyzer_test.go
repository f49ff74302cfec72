package analyzer

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_EmptyContent(t *testing.T) {
	assert.Equal(t, Result{}, Analyze("", ""))
	assert.Equal(t, Result{}, Analyze("   \n\t", ""))

	withKeyword := Analyze("", "seo")
	assert.Equal(t, "seo", withKeyword.FocusKeyword)
	assert.Zero(t, withKeyword.WordCount)
	assert.Zero(t, withKeyword.KeywordDensity)
	assert.Zero(t, withKeyword.ParagraphCount)
}

func TestAnalyze_MalformedMarkupDoesNotFail(t *testing.T) {
	res := Analyze("<p>Unclosed <b>bold <h2>heading", "")
	assert.Equal(t, 1, res.Headings.H2)
	assert.Equal(t, 3, res.WordCount)
}

func TestAnalyze_ElementCounts(t *testing.T) {
	body := `
<h1>Main</h1>
<h2>First</h2><h2>Second</h2>
<h3>Detail</h3>
<h4>Deep</h4>
<h5>Ignored</h5>
<img src="a.png" alt="diagram">
<img src="b.png" alt="">
<img src="c.png">
<img src="d.png" alt=" ">
<a href="/posts/one">one</a>
<a href="/posts/two">two</a>
<a href="https://example.com">example</a>
<a href="#top">top</a>
<a name="anchor">no href</a>`

	res := Analyze(body, "")

	assert.Equal(t, Heading{H1: 1, H2: 2, H3: 1, H4: 1}, res.Headings)
	assert.Equal(t, Images{Total: 4, WithAlt: 2, WithoutAlt: 2}, res.Images)
	assert.Equal(t, Links{Internal: 2, External: 2}, res.Links)
}

func TestAnalyze_TextStatistics(t *testing.T) {
	body := "<p>One two three. Four five!</p><p>Six seven? Eight</p>"

	res := Analyze(body, "")

	assert.Equal(t, 8, res.WordCount)
	assert.Equal(t, 4, res.SentenceCount)
	assert.Equal(t, 2, res.ParagraphCount)
	assert.Equal(t, 2, res.AvgWordsPerSentence)
}

func TestAnalyze_ParagraphFloor(t *testing.T) {
	res := Analyze("just some words without any block", "")
	assert.Equal(t, 1, res.ParagraphCount)
	assert.Equal(t, 1, res.SentenceCount)
}

func TestAnalyze_KeywordDensityRoundTrip(t *testing.T) {
	cases := []struct{ words, hits int }{
		{100, 1}, {100, 3}, {300, 7}, {1600, 24}, {333, 5}, {50, 50},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_of_%d", tc.hits, tc.words), func(t *testing.T) {
			tokens := make([]string, tc.words)
			for i := range tokens {
				if i < tc.hits {
					tokens[i] = "GoLang"
				} else {
					tokens[i] = fmt.Sprintf("filler%d", i%17)
				}
			}

			res := Analyze("<p>"+strings.Join(tokens, " ")+"</p>", "golang")

			want := math.Round(100*float64(tc.hits)/float64(tc.words)*100) / 100
			assert.Equal(t, tc.words, res.WordCount)
			assert.Equal(t, tc.hits, res.FocusKeywordCount)
			assert.Equal(t, want, res.KeywordDensity)
		})
	}
}

func TestPlainText_SkipsScriptsAndSeparatesBlocks(t *testing.T) {
	text := PlainText("<p>Hello <b>world</b></p><script>var x = 1;</script><p>Bye<br>now</p>")

	require.NotContains(t, text, "var x")
	assert.Equal(t, []string{"Hello world", "Bye\nnow"}, strings.Split(text, "\n\n"))
}

func TestFirstWords(t *testing.T) {
	assert.Equal(t, "a b", FirstWords("a b c d", 2))
	assert.Equal(t, "a b", FirstWords("  a   b ", 5))
}
