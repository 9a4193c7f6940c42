package cli

import (
	"bufio"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/educloud/educloud-cli/internal/api"
	"github.com/educloud/educloud-cli/internal/search"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Limit int
	Live  bool
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog",
		Long: `Search the catalog through the advanced-search service.

With a query argument, runs one full search. With --live, reads queries
from stdin line by line and shows debounced autocomplete suggestions, the
way the storefront search box behaves.

Example:
  educloud search "machine learning"
  educloud search --live`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Live {
				return runLiveSearch(opts, cmd)
			}
			if len(args) == 0 {
				return NewExitError(ExitCommandError, "query required unless --live is set")
			}
			return runSearch(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum results (defaults to the configured page limit)")
	cmd.Flags().BoolVar(&opts.Live, "live", false, "interactive autocomplete mode reading stdin")

	return cmd
}

func runSearch(opts *SearchOptions, query string, cmd *cobra.Command) error {
	app, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	limit := opts.Limit
	if limit <= 0 {
		limit = app.Config.PageLimit
	}

	result, err := app.API.Search(cmd.Context(), query, api.SearchTypeFull, limit)
	if err != nil {
		return apiExitError("search failed", err)
	}

	displays := make([]api.DisplayCourse, 0, len(result.Courses))
	for _, c := range result.Courses {
		displays = append(displays, c.Display())
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		return f.Success(map[string]any{"courses": displays, "total": result.Total})
	}

	out := cmd.OutOrStdout()
	if len(displays) == 0 {
		fmt.Fprintf(out, "No results for %q\n", query)
		return nil
	}
	renderCourseTable(out, displays)
	fmt.Fprintf(out, "\n%d results\n", result.Total)
	return nil
}

// runLiveSearch wires stdin through the debouncer: each line is one input
// state, suggestions print after the quiet window, short queries clear.
func runLiveSearch(opts *SearchOptions, cmd *cobra.Command) error {
	app, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	var outMu sync.Mutex // timer goroutine and reader both print

	onQuery := func(q string) {
		result, err := app.API.Search(cmd.Context(), q, api.SearchTypeAutocomplete, search.AutocompleteLimit)
		outMu.Lock()
		defer outMu.Unlock()
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			return
		}
		if len(result.Courses) == 0 {
			fmt.Fprintf(out, "(no suggestions for %q)\n", q)
			return
		}
		for _, c := range result.Courses {
			d := c.Display()
			fmt.Fprintf(out, "  %s  %s (%s)\n", d.ID, d.Title, formatPrice(d.Price))
		}
	}
	onClear := func() {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintln(out, "(cleared)")
	}

	deb := search.NewDebouncer(search.DefaultDelay, search.DefaultMinRunes, onQuery, onClear)
	defer deb.Stop()

	fmt.Fprintln(out, "Type to search; empty line quits.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		deb.Input(line)
	}
	deb.Flush()
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	return nil
}
