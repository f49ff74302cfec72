package analyzer

// Result holds the structural statistics of one content body
type Result struct {
	WordCount           int     `json:"wordCount"`
	SentenceCount       int     `json:"sentenceCount"`
	ParagraphCount      int     `json:"paragraphCount"`
	AvgWordsPerSentence int     `json:"avgWordsPerSentence"`
	Headings            Heading `json:"headings"`
	Images              Images  `json:"images"`
	Links               Links   `json:"links"`
	KeywordDensity      float64 `json:"keywordDensity"`
	FocusKeyword        string  `json:"focusKeyword,omitempty"`
	FocusKeywordCount   int     `json:"focusKeywordCount"`
}

type Heading struct {
	H1 int `json:"h1"`
	H2 int `json:"h2"`
	H3 int `json:"h3"`
	H4 int `json:"h4"`
}

type Images struct {
	Total      int `json:"total"`
	WithAlt    int `json:"withAlt"`
	WithoutAlt int `json:"withoutAlt"`
}

type Links struct {
	Internal int `json:"internal"`
	External int `json:"external"`
}

// Document is the parsed form of a body: the statistics plus the texts the
// scoring rubrics look into.
type Document struct {
	Result
	Text         string
	HeadingTexts []string
	AltTexts     []string
	LinkTargets  []string
	HasList      bool
}
