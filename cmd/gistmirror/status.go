package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statusLimit int

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Display recent sync run history",
		Long: `Display recent sync runs from the local history database: when each
run happened, how many gists it dispatched, and the per-run outcome
counts. History must be enabled in the config.`,
		Example: `  gistmirror status
  gistmirror status --limit 5`,
		RunE: statusRun,
	}

	cmd.Flags().IntVar(&statusLimit, "limit", 20, "maximum number of runs to show")

	return cmd
}

func statusRun(cmd *cobra.Command, args []string) error {
	if globalStore == nil {
		return fmt.Errorf("run history is disabled in the config")
	}

	runs, err := globalStore.ListSyncRuns(statusLimit)
	if err != nil {
		return fmt.Errorf("reading run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No sync runs recorded yet")
		return nil
	}

	fmt.Printf("%-17s %-9s %7s %8s %8s %8s %7s %s\n",
		"Started", "Status", "Gists", "Created", "Updated", "Skipped", "Failed", "Mode")
	fmt.Println(strings.Repeat("-", 84))

	for _, run := range runs {
		mode := "sync"
		if run.DryRun {
			mode = "dry-run"
		}
		status := run.Status
		switch status {
		case "success":
			status = success(status)
		case "partial", "failed":
			status = failure(status)
		}

		fmt.Printf("%-17s %-18s %7d %8d %8d %8d %7d %s\n",
			run.StartTime.Format("2006-01-02 15:04"),
			status,
			run.Items,
			run.Created,
			run.Updated,
			run.Skipped,
			run.Failed,
			mode,
		)
	}

	return nil
}
