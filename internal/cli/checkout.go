package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/educloud/educloud-cli/internal/checkout"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	NoRedirect bool
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Purchase the cart contents",
		Long: `Register every cart line with the purchase service, one call per unit.

A failing unit ends its course; other courses still run. The cart is
cleared only when every course succeeds, so failed courses stay in the
cart for retry. After a fully successful run the purchase history is
shown following a short pause.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoRedirect, "no-redirect", false, "skip the purchase-history view after success")

	return cmd
}

func runCheckout(opts *CheckoutOptions, cmd *cobra.Command) error {
	app, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	proc := checkout.New(app.Cart, app.Sessions, app.API, time.Duration(app.Config.RedirectDelay), nil)
	result, err := proc.Run(cmd.Context())
	switch {
	case errors.Is(err, checkout.ErrNoSession),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInProgress):
		return WrapExitError(ExitCommandError, "checkout not started", err)
	case err != nil:
		return WrapExitError(ExitFailure, "checkout failed", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		renderCheckout(cmd, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d courses failed; they remain in the cart", result.Failed, result.Failed+result.Succeeded))
	}

	if result.CartCleared && !opts.NoRedirect && !f.JSON() {
		fmt.Fprintln(cmd.OutOrStdout(), "\nOpening purchase history...")
		time.Sleep(result.RedirectAfter)
		purchases, err := app.API.ListPurchases(cmd.Context())
		if err != nil {
			// The purchases were recorded; a history fetch failure should
			// not turn the run into an error.
			fmt.Fprintf(cmd.OutOrStdout(), "Could not load purchase history: %v\n", err)
			return nil
		}
		renderPurchases(cmd.OutOrStdout(), purchases)
	}
	return nil
}

func renderCheckout(cmd *cobra.Command, result *checkout.Result) {
	out := cmd.OutOrStdout()
	for _, c := range result.Courses {
		switch c.State {
		case checkout.StateSucceeded:
			fmt.Fprintf(out, "✓ %s (%d of %d units)\n", c.Title, c.UnitsPurchased, c.UnitsRequested)
		default:
			fmt.Fprintf(out, "✗ %s (%d of %d units): %s\n", c.Title, c.UnitsPurchased, c.UnitsRequested, c.Reason)
		}
	}
	if result.CartCleared {
		fmt.Fprintf(out, "\nAll %d courses purchased. Cart cleared.\n", result.Succeeded)
	}
}
