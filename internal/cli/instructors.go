package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewInstructorsCommand lists instructors derived from the course listing,
// with their course counts. Mirrors the derivation used for categories.
func NewInstructorsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "instructors",
		Short:         "List instructors with course counts",
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
				counts[c.Display().Instructor]++
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
