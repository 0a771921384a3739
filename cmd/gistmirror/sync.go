package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/engine"
	"github.com/gistmirror/gistmirror/internal/hook"
	"github.com/gistmirror/gistmirror/internal/transport"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize source gists to all enabled targets",
		Long: `Synchronize source gists to all enabled targets.

The sync command will:
  1. List the source user's gists, applying the configured filters
  2. Look up each gist on every enabled target by derived identifier
  3. Create missing objects and apply the per-target conflict policy
     to existing ones
  4. Record per-pair outcomes in the run history

A failure on one (gist, target) pair never aborts the rest of the run.
With --dry-run, lookups run live but writes are only logged.`,
		Example: `  gistmirror sync
  gistmirror sync --dry-run
  gistmirror sync -c prod.yaml -q`,
		RunE: syncRun,
	}
}

func syncRun(cmd *cobra.Command, args []string) error {
	if err := globalCfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	targets, err := buildTargets()
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		logger.Warn("no enabled targets, nothing to do")
		return nil
	}

	var hooks hook.Runner = hook.NewShellRunner(logger)
	if dryRun {
		hooks = hook.NopRunner{}
	}

	eng := engine.New(
		globalSource,
		targets,
		hooks,
		globalCfg.Hooks,
		globalStore,
		transport.NewThrottle(globalCfg.Sync.RateLimitInterval()),
		logger,
		engine.Options{DryRun: dryRun},
	)

	report, runErr := eng.Run(cmd.Context())
	if report != nil && !quiet {
		printReport(report)
	}
	return runErr
}

func printReport(r *engine.Report) {
	header := "Sync complete"
	if r.DryRun {
		header = "Dry run complete"
	}
	fmt.Printf("\n%s %s\n", bold(header), dim("("+r.EndTime.Sub(r.StartTime).Round(time.Millisecond).String()+")"))
	fmt.Printf("  Gists:   %d\n", r.Items)
	fmt.Printf("  Created: %s\n", success(r.Created))
	fmt.Printf("  Updated: %s\n", success(r.Updated))
	fmt.Printf("  Skipped: %s\n", dim(r.Skipped))
	if r.Failed > 0 {
		fmt.Printf("  Failed:  %s\n", failure(r.Failed))
		fmt.Println("\nFailures:")
		for _, out := range r.Outcomes {
			if out.Err == nil {
				continue
			}
			fmt.Printf("  %s %s on %s: %v\n", failure("✗"), out.Identifier, out.Target, out.Err)
		}
	} else {
		fmt.Printf("  Failed:  %d\n", r.Failed)
	}
}

// targetLabel renders "name (provider)" for summaries.
func targetLabel(t config.TargetConfig) string {
	return fmt.Sprintf("%s (%s)", t.Name, t.Provider)
}
