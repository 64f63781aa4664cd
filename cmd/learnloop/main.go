package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"learnloop/internal/config"
	"learnloop/internal/generation"
	"learnloop/internal/saving"
	"learnloop/internal/server"
	"learnloop/internal/sources"
	"learnloop/internal/store"
	"learnloop/internal/viewing"
	"learnloop/internal/webhook"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "learnloop",
	Short:   "Personal bite-size learning content",
	Long:    "Learnloop requests AI-generated learning articles tuned to your interests, avoids repeating topics you have read, and tracks what you actually finish.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("learnloop", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/learnloop/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your profile, categories, and the generation webhook URL.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and request status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cfg.Profile.UserID)
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Profile: %s (%s)\n\n", cfg.Profile.DisplayName, cfg.Profile.UserID)
		fmt.Println("History:")
		fmt.Printf("  Topics generated: %d\n", stats.HistoryEntries)
		fmt.Printf("  Read: %d\n", stats.ViewedEntries)
		fmt.Printf("  Read this week: %d\n", stats.WeeklyRead)
		fmt.Println("\nLibrary:")
		fmt.Printf("  Recent articles: %d\n", stats.RecentArticles)
		fmt.Printf("  Saved articles: %d\n", stats.SavedArticles)
		if stats.PendingRequest != "" {
			fmt.Printf("\nPending request: %s\n", stats.PendingRequest)
		} else {
			fmt.Println("\nNo pending request.")
		}
		return nil
	},
}

// --- request command ---

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request a new article and wait for it",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.Generation.WebhookURL == "" {
			return fmt.Errorf("no webhook_url configured; set generation.webhook_url in your config")
		}

		client := webhook.NewClient(cfg.Generation.WebhookURL, cfg.WebhookTimeout())
		coord := generation.NewCoordinator(db, client, cfg.History.MaxSummaries)
		watcher := generation.NewWatcher(db, cfg.PollInterval(), cfg.WatchTimeout())

		ctx := context.Background()
		requestID, err := coord.RequestGeneration(ctx, cfg.Profile.UserID, generation.Profile{
			DisplayName:  cfg.Profile.DisplayName,
			Categories:   cfg.Profile.Categories,
			DailyMinutes: cfg.Profile.DailyMinutes,
		})
		if err != nil {
			if errors.Is(err, generation.ErrAlreadyInFlight) {
				return fmt.Errorf("a request is already in flight; wait for it to finish")
			}
			return err
		}

		fmt.Printf("Request %s accepted, waiting for content...\n", requestID)

		session := coord.Session(cfg.Profile.UserID)
		sub := watcher.Watch(ctx, session)
		defer sub.Stop()

		status, err := generation.Await(ctx, session)
		switch status {
		case generation.StatusCompleted:
			rec := session.Record()
			if rec != nil && rec.TopicSummary != nil {
				fmt.Printf("Ready: %s\n", *rec.TopicSummary)
			} else {
				fmt.Println("Ready.")
			}
			fmt.Printf("Read it with: learnloop read %s\n", requestID)
			return nil
		case generation.StatusTimedOut:
			return fmt.Errorf("no result within %s; the request was abandoned", cfg.WatchTimeout())
		default:
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			return fmt.Errorf("generation ended in state %s", status)
		}
	},
}

// --- read command ---

var skim bool

var readCmd = &cobra.Command{
	Use:   "read [request-id]",
	Short: "Read a generated article",
	Long:  "Prints a generated article. Keeping it open past the confirmation delay counts it as read for the week; --skim closes immediately without counting.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		userID := cfg.Profile.UserID
		requestID := args[0]

		rec, err := db.GetGeneratedContent(userID, requestID)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no article for request %s", requestID)
		}
		if rec.Status != store.StatusCompleted {
			if rec.Error != nil {
				return fmt.Errorf("request %s failed: %s", requestID, *rec.Error)
			}
			return fmt.Errorf("request %s is not completed (status %s)", requestID, rec.Status)
		}
		if rec.Body == nil {
			return fmt.Errorf("request %s has no article body", requestID)
		}

		if rec.TopicSummary != nil {
			fmt.Printf("== %s ==\n", *rec.TopicSummary)
		}
		if rec.ReadingMinutes > 0 {
			fmt.Printf("(%d min read)\n", rec.ReadingMinutes)
		}
		fmt.Println()
		fmt.Println(*rec.Body)

		entry, err := db.GetHistoryEntryByRequest(userID, requestID)
		if err != nil {
			return err
		}

		tracker := viewing.NewTracker(db, cfg.ConfirmDelay())
		defer tracker.Close()
		if entry != nil {
			tracker.Open(entry.ID, requestID)
		}

		if skim {
			fmt.Println("\n(skimmed, not counted as read)")
			return nil
		}

		// The confirmation timer runs while the article is on screen.
		time.Sleep(cfg.ConfirmDelay() + 100*time.Millisecond)

		if _, err := db.AddRecentArticle(userID, *rec.Body); err != nil {
			log.Printf("Adding to recent articles failed: %v", err)
		}
		fmt.Println("\n(counted as read)")
		return nil
	},
}

func init() {
	readCmd.Flags().BoolVar(&skim, "skim", false, "Close immediately without counting as read")
}

// --- history command ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the anti-repetition history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent history entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.FetchFullHistory(cfg.Profile.UserID, 50)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		for _, e := range entries {
			marks := ""
			if e.Viewed {
				marks += " read"
			}
			if e.Saved {
				marks += " saved"
			}
			category := ""
			if e.Category != nil {
				category = " [" + *e.Category + "]"
			}
			fmt.Printf("  %s%s%s\n    %s\n", e.TopicSummary, category, marks, e.RequestID)
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the history log",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearHistory(cfg.Profile.UserID)
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d history entries.\n", n)
		return nil
	},
}

// --- recent command ---

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Manage recently read articles",
}

var recentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently read articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		articles, err := db.GetRecentArticles(cfg.Profile.UserID)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			fmt.Println("Nothing read yet.")
			return nil
		}

		for _, a := range articles {
			readAt := ""
			if a.ReadAt != nil {
				readAt = " (" + store.FormatTimestamp(*a.ReadAt) + ")"
			}
			fmt.Printf("  [%d] %s%s\n", a.ID, a.Title, readAt)
		}
		return nil
	},
}

var recentClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear recently read articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearRecentArticles(cfg.Profile.UserID)
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d recent articles.\n", n)
		return nil
	},
}

// --- saved command ---

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved articles",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListSaved(cfg.Profile.UserID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No saved articles.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("  %s\n    %s\n", e.TopicSummary, e.RequestID)
		}
		return nil
	},
}

var savedToggleCmd = &cobra.Command{
	Use:   "toggle [request-id]",
	Short: "Save or unsave an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		userID := cfg.Profile.UserID
		requestID := args[0]

		entry, err := db.GetHistoryEntryByRequest(userID, requestID)
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("no article for request %s", requestID)
		}

		count, err := db.SavedCount(userID)
		if err != nil {
			return err
		}
		view := saving.View{Saved: entry.Saved, SavedCount: count}
		prev := view.ApplyToggle()

		coord := saving.NewCoordinator(db)
		if _, err := coord.ToggleSaved(userID, requestID); err != nil {
			view.Revert(prev)
			return fmt.Errorf("toggle not persisted, state unchanged: %w", err)
		}

		if view.Saved {
			fmt.Printf("Saved: %s (%d total)\n", entry.TopicSummary, view.SavedCount)
		} else {
			fmt.Printf("Unsaved: %s (%d total)\n", entry.TopicSummary, view.SavedCount)
		}
		return nil
	},
}

// --- sources command ---

var sourcesCmd = &cobra.Command{
	Use:   "sources [request-id]",
	Short: "Fetch and show source excerpts for an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		requestID := args[0]
		fetcher := sources.NewFetcher(db, cfg.FetchTimeout())
		result, err := fetcher.FetchExcerpts(cfg.Profile.UserID, requestID)
		if err != nil {
			return err
		}
		if result.Fetched > 0 || result.Failed > 0 {
			fmt.Printf("Fetched %d excerpts (%d failed).\n\n", result.Fetched, result.Failed)
		}

		excerpts, err := db.GetSourceExcerpts(requestID)
		if err != nil {
			return err
		}
		if len(excerpts) == 0 {
			fmt.Println("No sources recorded for this article.")
			return nil
		}

		for _, e := range excerpts {
			if e.Title != nil {
				fmt.Printf("  %s\n  %s\n", *e.Title, e.URL)
			} else {
				fmt.Printf("  %s\n", e.URL)
			}
			if e.Excerpt != nil {
				fmt.Printf("    %s\n", *e.Excerpt)
			}
			fmt.Println()
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	Long:  "Serves the article pages and receives generation results on /worker/{userID}/{requestID}.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if !cmd.Flags().Changed("port") && cfg.Server.Port != 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, cfg.Profile.UserID, port)
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	recentCmd.AddCommand(recentListCmd)
	recentCmd.AddCommand(recentClearCmd)
	savedCmd.AddCommand(savedListCmd)
	savedCmd.AddCommand(savedToggleCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*store.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "learnloop.db")
	return store.Open(dbPath)
}
