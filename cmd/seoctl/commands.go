package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sykell/seo-engine/internal/app"
	"github.com/sykell/seo-engine/internal/config"
	"github.com/sykell/seo-engine/internal/db"
	"github.com/sykell/seo-engine/internal/middleware"
	"github.com/sykell/seo-engine/internal/scheduler"
)

func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		if err := os.Setenv("SEO_CONFIG_FILE", flagConfig); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dbConn, err := db.InitDB()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	providers, err := app.NewProviders(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("configuring providers: %w", err)
	}
	return app.New(cfg, dbConn, providers, nil), nil
}

var runCmd = &cobra.Command{
	Use:       "run <hourly|daily|weekly|monthly>",
	Short:     "Run one cadence's task batch now",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"hourly", "daily", "weekly", "monthly"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cadence, err := scheduler.ParseCadence(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		results := a.Scheduler.Trigger(cmd.Context(), cadence)
		failed := 0
		for _, r := range results {
			state := "ok"
			if !r.Success {
				state = "FAILED"
				failed++
			}
			fmt.Fprintf(out, "%-16s %-6s %8s", r.Task, state, r.Duration.Round(time.Millisecond))
			if r.Error != "" {
				fmt.Fprintf(out, "  %s", r.Error)
			}
			fmt.Fprintln(out)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d tasks failed", failed, len(results))
		}
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <content-id>...",
	Short: "Score content items now",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, id := range args {
			res := a.Engine.Analyze(cmd.Context(), id)
			if !res.Success {
				failed++
				fmt.Fprintf(out, "%s: %s\n", id, res.Error)
				continue
			}
			fmt.Fprintf(out, "%s: %d\n", id, res.Snapshot.OverallScore)
			for _, s := range res.Snapshot.Suggestions {
				fmt.Fprintf(out, "  [%s] %s: %s\n", s.Priority, s.Category, s.Message)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d analyses failed", failed, len(args))
		}
		return nil
	},
}

var (
	flagTokenSubject string
	flagTokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin JWT for the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		token, expiresAt, err := middleware.IssueToken(cfg.JWTSecret, flagTokenSubject, flagTokenTTL)
		if err != nil {
			return fmt.Errorf("issuing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		cmd.PrintErrf("expires %s\n", expiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&flagTokenSubject, "subject", "admin", "subject claim of the token")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
