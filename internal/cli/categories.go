package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewCategoriesCommand lists the categories present in the catalog. The
// catalog service has no category endpoint, so the set is derived from the
// course listing.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "categories",
		Short:         "List catalog categories with course counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			courses, err := app.API.ListAll(cmd.Context(), app.Config.PageLimit)
			if err != nil {
				return apiExitError("failed to list courses", err)
			}

			counts := map[string]int{}
			for _, c := range courses {
				counts[c.Display().Category]++
			}
			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)

			f := newFormatter(rootOpts, cmd)
			if f.JSON() {
				return f.Success(counts)
			}
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", name, counts[name])
			}
			return nil
		},
	}
	return cmd
}
