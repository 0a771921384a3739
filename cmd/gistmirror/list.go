package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gistmirror/gistmirror/internal/snippet"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the source gists a sync would operate on",
		Long: `List the source user's gists after applying the configured filters.
This is the exact item set a sync run would dispatch, so it is useful
for checking filter settings before syncing.`,
		Example: `  gistmirror list
  gistmirror list -c prod.yaml`,
		RunE: listRun,
	}
}

func listRun(cmd *cobra.Command, args []string) error {
	if err := globalCfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	items, err := globalSource.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing source gists: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No gists match the configured filters")
		return nil
	}

	fmt.Printf("%-26s %-10s %-17s %s\n", "Identifier", "Visibility", "Updated", "Description")
	fmt.Println(strings.Repeat("-", 78))
	for _, item := range items {
		vis := "private"
		if item.Public {
			vis = "public"
		}
		desc := item.Description
		if len(desc) > 40 {
			desc = desc[:37] + "..."
		}
		fmt.Printf("%-26s %-10s %-17s %s\n",
			snippet.DeriveIdentifier(item),
			vis,
			item.UpdatedAt.Format("2006-01-02 15:04"),
			desc,
		)
	}
	fmt.Printf("\n%d gists\n", len(items))

	return nil
}
