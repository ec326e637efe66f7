package main

import (
	"context"
	"fmt"

	"github.com/abdulachik/replyguy/internal/config"
	"github.com/abdulachik/replyguy/internal/db"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show reply history statistics",
	Long:  `Display the reply ledger: total replies made and the most recent ones.`,
	RunE:  runStats,
}

var statsRecent int

func init() {
	statsCmd.Flags().IntVar(&statsRecent, "recent", 10, "number of recent replies to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	// Ensure migrations are run
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	total, err := store.CountReplies(ctx)
	if err != nil {
		return fmt.Errorf("count replies: %w", err)
	}

	recent, err := store.RecentReplies(ctx, int64(statsRecent))
	if err != nil {
		return fmt.Errorf("list recent replies: %w", err)
	}

	fmt.Println("=== Replyguy Statistics ===")
	fmt.Println()
	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	fmt.Printf("Total replies: %d\n", total)
	fmt.Println()

	if len(recent) > 0 {
		fmt.Println("Recent replies:")
		for _, r := range recent {
			fmt.Printf("  [%s] @%s (%s)\n", r.RepliedAt.Format("2006-01-02 15:04"), r.Author, r.ContentID)
			fmt.Printf("    post:  %s\n", trim(r.BodyText, 80))
			fmt.Printf("    reply: %s\n", trim(r.ReplyText, 80))
		}
	}

	return nil
}

func trim(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
