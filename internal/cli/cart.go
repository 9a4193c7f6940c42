package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/educloud/educloud-cli/internal/api"
	"github.com/educloud/educloud-cli/internal/cart"
)

// NewCartCommand creates the cart command group.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the local cart",
		Long: `Manage the local cart.

The cart lives in the local state database and survives across runs. It
never talks to the purchase service; checkout does that.`,
	}

	cmd.AddCommand(newCartShowCommand(rootOpts))
	cmd.AddCommand(newCartAddCommand(rootOpts))
	cmd.AddCommand(newCartRemoveCommand(rootOpts))
	cmd.AddCommand(newCartUpdateCommand(rootOpts))
	cmd.AddCommand(newCartClearCommand(rootOpts))

	return cmd
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show",
		Short:         "Show cart contents and totals",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			items := app.Cart.Items()

			f := newFormatter(rootOpts, cmd)
			if f.JSON() {
				return f.Success(map[string]any{
					"items": items,
					"count": app.Cart.ItemCount(),
					"total": app.Cart.Total(),
				})
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Cart is empty.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tQTY\tUNIT\tSUBTOTAL")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					it.ID, it.Title, it.Quantity, formatPrice(it.UnitPrice),
					formatPrice(it.UnitPrice*float64(it.Quantity)))
			}
			tw.Flush()
			fmt.Fprintf(out, "\n%d items, total %s\n", app.Cart.ItemCount(), formatPrice(app.Cart.Total()))
			return nil
		},
	}
	return cmd
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "add <course-id>",
		Short: "Add a course to the cart",
		Long: `Add a course to the cart.

The course is fetched from the catalog first so the cart snapshot carries
its title and price. A course already in the cart is rejected; use
'cart update' to change its quantity.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if quantity < 1 {
				return NewExitError(ExitCommandError, "quantity must be at least 1")
			}

			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			course, err := app.API.GetCourse(cmd.Context(), args[0])
			if errors.Is(err, api.ErrNotFound) {
				return NewExitError(ExitCommandError, fmt.Sprintf("course %s not found", args[0]))
			}
			if err != nil {
				return apiExitError("failed to fetch course", err)
			}

			d := course.Display()
			item := cart.Item{
				ID:         course.CursoID,
				Title:      d.Title,
				UnitPrice:  d.Price,
				Category:   d.Category,
				Instructor: d.Instructor,
				Quantity:   quantity,
			}
			if err := app.Cart.Add(item); err != nil {
				if errors.Is(err, cart.ErrAlreadyInCart) {
					return NewExitError(ExitCommandError, fmt.Sprintf("%s is already in the cart; use 'cart update' to change its quantity", d.Title))
				}
				return WrapExitError(ExitCommandError, "failed to save cart", err)
			}
			// Add always inserts a single unit; apply the requested
			// quantity as a follow-up update.
			if quantity > 1 {
				if err := app.Cart.UpdateQuantity(item.ID, quantity); err != nil {
					return WrapExitError(ExitCommandError, "failed to save cart", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) to cart\n", d.Title, formatPrice(d.Price))
			return nil
		},
	}
	cmd.Flags().IntVar(&quantity, "quantity", 1, "number of units")

	return cmd
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "remove <course-id>",
		Short:         "Remove a course from the cart",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Cart.Remove(args[0]); err != nil {
				return WrapExitError(ExitCommandError, "failed to save cart", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from cart\n", args[0])
			return nil
		},
	}
	return cmd
}

func newCartUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:           "update <course-id>",
		Short:         "Change the quantity of a cart line",
		Long:          "Change the quantity of a cart line. A quantity of zero removes the line.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Cart.UpdateQuantity(args[0], quantity); err != nil {
				return WrapExitError(ExitCommandError, "failed to save cart", err)
			}
			if quantity <= 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from cart\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s quantity to %d\n", args[0], quantity)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&quantity, "quantity", 1, "new quantity (0 removes the line)")
	_ = cmd.MarkFlagRequired("quantity")

	return cmd
}

func newCartClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clear",
		Short:         "Empty the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Cart.Clear(); err != nil {
				return WrapExitError(ExitCommandError, "failed to save cart", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared")
			return nil
		},
	}
	return cmd
}
