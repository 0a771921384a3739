package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gistmirror/gistmirror/internal/config"
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "Show the configured targets and their settings",
		Long: `Show every configured target with its provider, conflict policy,
visibility mode, and whether a credential is resolvable. Disabled
targets are listed too so typos in the enabled flag are visible.`,
		Example: `  gistmirror targets
  gistmirror targets -c prod.yaml`,
		RunE: targetsRun,
	}
}

func targetsRun(cmd *cobra.Command, args []string) error {
	if len(globalCfg.Targets) == 0 {
		fmt.Println("No targets configured")
		return nil
	}

	fmt.Printf("%-16s %-10s %-9s %-10s %-10s %s\n",
		"Name", "Provider", "Enabled", "Conflict", "Visibility", "Token")
	fmt.Println(strings.Repeat("-", 72))

	for _, t := range globalCfg.Targets {
		enabled := dim("no")
		if t.Enabled {
			enabled = success("yes")
		}

		policy := string(t.OnConflict)
		if policy == "" {
			policy = string(config.ConflictSkip)
		}
		visibility := string(t.Visibility)
		if visibility == "" {
			visibility = "preserve"
		}

		fmt.Printf("%-16s %-10s %-18s %-10s %-10s %s\n",
			t.Name, t.Provider, enabled, policy, visibility, tokenStatus(t))
	}

	return nil
}

// tokenStatus reports where a target's credential would come from.
// Keybase uses the local session, not a token.
func tokenStatus(t config.TargetConfig) string {
	if t.Provider == config.ProviderKeybase {
		return dim("session")
	}
	if os.Getenv(config.TargetTokenVar(t.Name)) != "" {
		return success("env " + config.TargetTokenVar(t.Name))
	}
	if t.Token != "" {
		return success("config")
	}
	return failure("missing")
}
