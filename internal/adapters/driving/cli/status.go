package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watermark, stored totals and pending work",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	ctx := context.Background()

	watermark, err := p.marks.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading watermark: %w", err)
	}
	if watermark.Equal(domain.EpochWatermark()) {
		cmd.Println("Watermark: unset (next run fetches everything)")
	} else {
		cmd.Printf("Watermark: %s\n", watermark.Format(time.RFC3339))
	}

	posts, comments, err := p.rel.Counts(ctx)
	if err != nil {
		return fmt.Errorf("counting records: %w", err)
	}
	cmd.Printf("Stored:    %d posts, %d comments\n", posts, comments)

	pendingPosts, pendingComments, err := p.rel.ListVectorPending(ctx)
	if err != nil {
		return fmt.Errorf("listing pending records: %w", err)
	}
	pending := len(pendingPosts) + len(pendingComments)
	cmd.Printf("Pending:   %d vector writes\n", pending)
	if pending > 0 {
		cmd.Println("Run 'gramsync reconcile' to retry them.")
	}

	return nil
}
