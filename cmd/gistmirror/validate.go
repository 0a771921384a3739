package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gistmirror/gistmirror/internal/config"
	"github.com/gistmirror/gistmirror/internal/target/keybase"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and target connectivity prerequisites",
		Long: `Validate the loaded configuration: source settings, target settings,
credentials, and conflict policies. Every enabled target's adapter is
constructed, so provider-specific problems like a bad base URL or a
missing keybase session surface here instead of mid-sync.`,
		Example: `  gistmirror validate
  gistmirror validate -c prod.yaml`,
		RunE: validateRun,
	}
}

func validateRun(cmd *cobra.Command, args []string) error {
	if err := globalCfg.Validate(); err != nil {
		fmt.Printf("%s %v\n", failure("✗"), err)
		return fmt.Errorf("config validation failed")
	}
	fmt.Printf("%s config is valid\n", success("✓"))

	problems := 0
	for _, tcfg := range globalCfg.EnabledTargets() {
		adapter, err := buildAdapter(tcfg)
		if err != nil {
			fmt.Printf("%s %s: %v\n", failure("✗"), targetLabel(tcfg), err)
			problems++
			continue
		}

		if tcfg.Provider == config.ProviderKeybase {
			if kb, ok := adapter.(*keybase.Adapter); ok {
				if err := kb.Verify(cmd.Context()); err != nil {
					fmt.Printf("%s %s: %v\n", failure("✗"), targetLabel(tcfg), err)
					problems++
					continue
				}
			}
		}

		fmt.Printf("%s %s\n", success("✓"), targetLabel(tcfg))
	}

	if problems > 0 {
		return fmt.Errorf("%d target(s) failed validation", problems)
	}
	return nil
}
