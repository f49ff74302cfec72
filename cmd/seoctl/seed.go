package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sykell/seo-engine/internal/db"
)

var flagSeedForce bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo content for local development",
	Long: `Insert a handful of published and draft articles into the contents table.

Existing rows are left alone unless --force is given, which overwrites them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		dbConn, err := db.InitDB()
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}

		n, err := seedContent(dbConn, flagSeedForce, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d content item(s).\n", n)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&flagSeedForce, "force", false, "overwrite existing demo rows")
}

// seedContent writes the demo articles and returns how many rows changed
func seedContent(dbConn *gorm.DB, force bool, now time.Time) (int64, error) {
	items := demoContent(now.UTC())

	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}
	if force {
		onConflict = clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}
	}

	res := dbConn.Clauses(onConflict).Create(&items)
	if res.Error != nil {
		return 0, fmt.Errorf("seeding content: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func demoContent(now time.Time) []db.Content {
	news := "news"
	guides := "guides"
	published := now.Add(-72 * time.Hour)

	return []db.Content{
		{
			ID:              "demo-go-testing",
			Title:           "7 Proven Ways to Write Better Go Tests",
			Slug:            "better-go-tests",
			MetaTitle:       "Better Go Tests: 7 Proven Techniques",
			MetaDescription: "Write better Go tests with table driven cases, helpers and clear failure messages. Seven proven techniques with examples you can copy today.",
			Excerpt:         "Seven techniques that make Go tests easier to read and maintain.",
			Body: `<h1>Better Go tests</h1>
<p>Good Go tests read like documentation. This guide shows how to write better Go tests step by step.</p>
<h2>Use table driven cases</h2>
<p>Table driven Go tests keep every scenario in one place. However, each case needs a clear name.</p>
<img src="/img/tables.png" alt="table driven go tests">
<h2>Write helpers</h2>
<p>Helpers remove noise. For example, a fixture builder keeps setup short. See our <a href="/blog/go-tips">Go tips</a>.</p>
<h3>Mark helpers</h3>
<p>Call t.Helper so failures point at the caller.</p>`,
			CoverImage:   "/img/go-tests.png",
			CategoryID:   &guides,
			FocusKeyword: "go tests",
			Status:       db.ContentPublished,
			PublishedAt:  &published,
			CreatedAt:    published,
			UpdatedAt:    published,
		},
		{
			ID:              "demo-go-tips",
			Title:           "Go tips",
			Slug:            "go-tips",
			MetaDescription: "Short Go tips.",
			Body:            `<p>Use gofmt. Read the standard library. <a href="/blog/missing-page">More</a></p><img src="/img/gopher.png">`,
			CategoryID:      &news,
			Status:          db.ContentPublished,
			PublishedAt:     &published,
			CreatedAt:       published,
			UpdatedAt:       published,
		},
		{
			ID:        "demo-stale",
			Title:     "Our 2019 roadmap",
			Slug:      "roadmap-2019",
			Body:      `<p>Plans for the year ahead.</p>`,
			Status:    db.ContentPublished,
			CreatedAt: now.AddDate(-5, 0, 0),
			UpdatedAt: now.AddDate(-5, 0, 0),
		},
		{
			ID:        "demo-draft",
			Title:     "Upcoming release notes",
			Slug:      "release-notes",
			Body:      `<p>Work in progress.</p>`,
			Status:    db.ContentDraft,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
