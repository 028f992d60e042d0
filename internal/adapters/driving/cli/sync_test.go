package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/meridian-labs/gramsync/internal/core/domain"
)

func TestSyncCmd_Registered(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "sync")
	assert.Contains(t, names, "reconcile")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "serve")
}

func TestSyncCmd_LookbackFlag(t *testing.T) {
	flag := syncCmd.Flags().Lookup("lookback")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "0s", flag.DefValue)
	}
}

func TestPrintReport_Committed(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	printReport(cmd, &domain.RunReport{
		RunID:          "run-1",
		State:          domain.RunCommitted,
		ItemsProcessed: 12,
		OldWatermark:   base,
		NewWatermark:   base.Add(time.Hour),
	})

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "committed")
	assert.Contains(t, out, "items written:  12")
	assert.NotContains(t, out, "failures")
}

func TestPrintReport_PartialListsFailures(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	printReport(cmd, &domain.RunReport{
		RunID:        "run-2",
		State:        domain.RunPartial,
		OldWatermark: base,
		NewWatermark: base,
		Failures: []domain.ItemFailure{
			{ID: "p9", Stage: domain.StageFetch, Err: errors.New("comments unavailable")},
		},
		VectorPending: []string{"p3"},
	})

	out := buf.String()
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "p9 [fetch]")
	assert.Contains(t, out, "reconcile")
}
