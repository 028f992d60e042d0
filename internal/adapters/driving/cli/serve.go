package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driving"
	"github.com/meridian-labs/gramsync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run sync on a schedule until interrupted",
	Long: `Runs a sync cycle immediately and then on the configured interval.
A tick that arrives while a run is still active is skipped; runs never
overlap against the same watermark.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	interval, err := p.cfg.Interval()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func() {
		report, err := p.runner.Run(ctx, driving.RunOptions{})
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			logger.Info("Previous run still active, skipping tick")
		case errors.Is(err, context.Canceled):
		case err != nil:
			logger.Warn("Scheduled run failed: %v", err)
		default:
			logger.Info("Scheduled run %s: %s, %d written", report.RunID, report.State, report.ItemsProcessed)
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", interval), runOnce); err != nil {
		return fmt.Errorf("scheduling sync: %w", err)
	}

	cmd.Printf("Syncing every %s. Press Ctrl+C to stop.\n", interval)
	runOnce()
	scheduler.Start()

	<-ctx.Done()
	cmd.Println("\nShutting down...")
	<-scheduler.Stop().Done()
	return nil
}
