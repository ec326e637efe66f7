package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdulachik/replyguy/internal/app"
	"github.com/abdulachik/replyguy/internal/config"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reply bot",
	Long: `Run the bot against the live feed: scan, pick an unseen post,
generate a reply, and post it. By default a single run; with --continuous
the bot repeats runs with a pause in between.`,
	RunE: runRun,
}

var (
	runContinuous     bool
	runIntervalMins   int
	runMaxReplies     int
	runHeadless       bool
	runDryRun         bool
	runManualApproval bool
	runReviewDelay    time.Duration
)

func init() {
	runCmd.Flags().BoolVar(&runContinuous, "continuous", false, "keep running with a pause between runs")
	runCmd.Flags().IntVar(&runIntervalMins, "interval", 60, "minutes between runs in continuous mode")
	runCmd.Flags().IntVar(&runMaxReplies, "max-replies", 0, "override the per-run reply quota")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "run the browser headless")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "log replies instead of posting them")
	runCmd.Flags().BoolVar(&runManualApproval, "manual-approval", false, "confirm each reply on the terminal before posting")
	runCmd.Flags().DurationVar(&runReviewDelay, "review-delay", 0, "show each pending reply and pause this long before posting")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if runMaxReplies > 0 {
		cfg.MaxRepliesPerRun = runMaxReplies
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = runHeadless
	}

	if err := cfg.ValidateForRun(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	a, err := app.New(ctx, cfg, app.Options{
		DryRun:         runDryRun,
		ManualApproval: runManualApproval,
		ReviewDelay:    runReviewDelay,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	// Run the bot in the background so shutdown signals interrupt cleanly.
	errCh := make(chan error, 1)
	go func() {
		if runContinuous {
			errCh <- a.Bot.RunContinuous(ctx, time.Duration(runIntervalMins)*time.Minute)
			return
		}
		made, err := a.Bot.RunOnce(ctx)
		slog.Info("run finished", "replies_made", made)
		errCh <- err
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("bot error: %w", err)
		}
	}

	slog.Info("shutting down...")
	return nil
}
