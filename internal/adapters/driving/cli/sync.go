package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/gramsync/internal/core/domain"
	"github.com/meridian-labs/gramsync/internal/core/ports/driving"
)

var flagLookback time.Duration

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one incremental sync cycle",
	Long: `Fetches everything newer than the stored watermark, normalises it,
writes it to the relational store and the vector index, and advances
the watermark. Failed items hold the watermark back so the next run
retries them.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().DurationVar(&flagLookback, "lookback", 0,
		"re-fetch window below the watermark (default from config)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Syncing...")
	report, err := runWithProgress(ctx, cmd, p.runner, driving.RunOptions{Lookback: flagLookback})
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}

// runWithProgress runs the sync while polling status for display.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	runner driving.SyncRunner,
	opts driving.RunOptions,
) (*domain.RunReport, error) {
	type result struct {
		report *domain.RunReport
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		report, err := runner.Run(ctx, opts)
		resCh <- result{report, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case res := <-resCh:
			return res.report, res.err
		case <-ticker.C:
			// Best effort; a status error never fails the run.
			status, err := runner.Status(ctx)
			if err == nil && status.ItemsProcessed > lastCount {
				cmd.Printf("\rProcessing... %d items", status.ItemsProcessed)
				lastCount = status.ItemsProcessed
			}
		}
	}
}

func printReport(cmd *cobra.Command, report *domain.RunReport) {
	cmd.Printf("Run %s finished: %s\n", report.RunID, report.State)
	cmd.Printf("  items written:  %d\n", report.ItemsProcessed)
	cmd.Printf("  items skipped:  %d\n", report.ItemsSkipped)
	cmd.Printf("  vector pending: %d\n", len(report.VectorPending))
	cmd.Printf("  watermark:      %s -> %s\n",
		report.OldWatermark.Format(time.RFC3339), report.NewWatermark.Format(time.RFC3339))

	if len(report.Failures) > 0 {
		cmd.Printf("  failures (%d, retried next run):\n", len(report.Failures))
		for _, f := range report.Failures {
			cmd.Printf("    %s [%s]: %v\n", f.ID, f.Stage, f.Err)
		}
	}
	if len(report.VectorPending) > 0 {
		cmd.Println("Run 'gramsync reconcile' to retry pending vector writes.")
	}
}
