// Package app wires configuration, storage and providers into the engine's
// services. The server and the CLI share it.
package app

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/sykell/seo-engine/internal/config"
	"github.com/sykell/seo-engine/internal/crawler"
	"github.com/sykell/seo-engine/internal/engine"
	"github.com/sykell/seo-engine/internal/provider"
	"github.com/sykell/seo-engine/internal/report"
	"github.com/sykell/seo-engine/internal/scheduler"
	"github.com/sykell/seo-engine/internal/service"
)

// Providers bundles the four external signal sources
type Providers struct {
	Submitter   provider.IndexSubmitter
	Inspector   provider.URLInspector
	Rankings    provider.RankingProvider
	Performance provider.PerformanceProvider
}

// NewProviders returns the gateway client for every role, or the disabled
// provider when no gateway is configured
func NewProviders(cfg config.Providers) (Providers, error) {
	if cfg.BaseURL == "" {
		slog.Warn("No provider gateway configured, external signals are disabled")
		d := provider.Disabled{}
		return Providers{Submitter: d, Inspector: d, Rankings: d, Performance: d}, nil
	}

	client, err := provider.NewClient(cfg.BaseURL, cfg.Token, cfg.Timeout)
	if err != nil {
		return Providers{}, err
	}
	return Providers{Submitter: client, Inspector: client, Rankings: client, Performance: client}, nil
}

// App holds the wired services
type App struct {
	Content   *service.ContentRepository
	Scores    *service.ScoreStore
	Log       *service.ActionLog
	Index     *service.IndexTracker
	Keywords  *service.KeywordTracker
	Reports   *report.Generator
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler
}

// New builds every service on top of dbConn. now may be nil.
func New(cfg *config.Config, dbConn *gorm.DB, providers Providers, now func() time.Time) *App {
	if now == nil {
		now = time.Now
	}
	sched := cfg.Scheduler

	a := &App{
		Content: service.NewContentRepository(dbConn),
		Scores:  service.NewScoreStore(dbConn),
		Log:     service.NewActionLog(dbConn, now),
	}
	a.Index = service.NewIndexTracker(dbConn, a.Log, service.IndexTrackerConfig{
		Submitter:   providers.Submitter,
		Inspector:   providers.Inspector,
		Performance: providers.Performance,
		StaleAfter:  sched.IndexStaleAfter,
		Timeout:     cfg.Providers.Timeout,
		Now:         now,
	})
	a.Keywords = service.NewKeywordTracker(dbConn, a.Log, service.KeywordTrackerConfig{
		Rankings: providers.Rankings,
		Window:   sched.RankingWindow,
		Timeout:  cfg.Providers.Timeout,
		Now:      now,
	})
	a.Reports = report.NewGenerator(a.Content, a.Scores, a.Keywords, a.Index, a.Log, now)
	a.Engine = engine.New(engine.Deps{
		Content:  a.Content,
		Scores:   a.Scores,
		Log:      a.Log,
		Index:    a.Index,
		Keywords: a.Keywords,
		Reports:  a.Reports,
		SiteURL:  cfg.SiteURL,
		Now:      now,
	})
	a.Scheduler = scheduler.New(sched, scheduler.Deps{
		Engine:   a.Engine,
		Content:  a.Content,
		Scores:   a.Scores,
		Index:    a.Index,
		Keywords: a.Keywords,
		Log:      a.Log,
		Links: crawler.NewChecker(&crawler.Config{
			Workers:       crawler.DefaultConfig().Workers,
			Timeout:       sched.LinkCheckTimeout,
			ProbeExternal: sched.ProbeExternal,
		}),
		Now: now,
	})
	return a
}
