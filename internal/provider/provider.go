// Package provider declares the external signal sources the engine consumes:
// index submission, URL inspection, search analytics and page performance.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrDisabled is returned by providers that are not configured. Callers
// record the affected work as skipped rather than failed.
var ErrDisabled = errors.New("provider disabled")

type ChangeType string

const (
	URLUpdated ChangeType = "URL_UPDATED"
	URLDeleted ChangeType = "URL_DELETED"
)

// IndexSubmitter notifies a search engine that a URL changed
type IndexSubmitter interface {
	Name() string
	Submit(ctx context.Context, url string, change ChangeType) error
}

type Verdict string

const (
	VerdictIndexed    Verdict = "indexed"
	VerdictNotIndexed Verdict = "not_indexed"
	VerdictRemoved    Verdict = "removed"
	VerdictError      Verdict = "error"
	VerdictUnknown    Verdict = "unknown"
)

// Inspection is the index verdict for one URL plus crawl diagnostics
type Inspection struct {
	Verdict       Verdict    `json:"verdict"`
	CoverageState string     `json:"coverageState"`
	IndexingState string     `json:"indexingState"`
	CrawledAs     string     `json:"crawledAs"`
	LastCrawledAt *time.Time `json:"lastCrawlTime,omitempty"`
}

type URLInspector interface {
	Inspect(ctx context.Context, url string) (Inspection, error)
}

const (
	DimensionQuery = "query"
	DimensionPage  = "page"
)

// RankingQuery selects search analytics rows for a date range
type RankingQuery struct {
	StartDate  time.Time
	EndDate    time.Time
	Dimensions []string
	RowLimit   int
}

// RankingRow is one (query, page) aggregate over the queried range
type RankingRow struct {
	Query       string
	Page        string
	Clicks      int64
	Impressions int64
	Position    float64
}

type RankingProvider interface {
	Rankings(ctx context.Context, q RankingQuery) ([]RankingRow, error)
}

type Strategy string

const (
	StrategyMobile  Strategy = "mobile"
	StrategyDesktop Strategy = "desktop"
)

// Performance is a 0-100 lab score plus named diagnostics (metric -> value)
type Performance struct {
	Score       int                `json:"score"`
	Diagnostics map[string]float64 `json:"diagnostics,omitempty"`
}

type PerformanceProvider interface {
	Measure(ctx context.Context, url string, strategy Strategy) (Performance, error)
}

// Disabled satisfies every provider interface and always returns ErrDisabled
type Disabled struct{}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Submit(context.Context, string, ChangeType) error { return ErrDisabled }

func (Disabled) Inspect(context.Context, string) (Inspection, error) {
	return Inspection{}, ErrDisabled
}

func (Disabled) Rankings(context.Context, RankingQuery) ([]RankingRow, error) {
	return nil, ErrDisabled
}

func (Disabled) Measure(context.Context, string, Strategy) (Performance, error) {
	return Performance{}, ErrDisabled
}
