package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/educloud/educloud-cli/internal/api"
)

// NewPurchasesCommand creates the purchases command.
func NewPurchasesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "purchases",
		Short:         "Show purchase history (requires sign-in)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			purchases, err := app.API.ListPurchases(cmd.Context())
			if err != nil {
				return apiExitError("failed to load purchase history", err)
			}

			f := newFormatter(rootOpts, cmd)
			if f.JSON() {
				return f.Success(map[string]any{
					"purchases": purchases,
					"total":     purchasesTotal(purchases),
				})
			}
			renderPurchases(cmd.OutOrStdout(), purchases)
			return nil
		},
	}
	return cmd
}

func purchasesTotal(purchases []api.Purchase) float64 {
	var total float64
	for _, p := range purchases {
		total += p.MontoPagado
	}
	return total
}

// renderPurchases writes the purchase ledger, newest data as the service
// returns it, with the lifetime total underneath.
func renderPurchases(w io.Writer, purchases []api.Purchase) {
	if len(purchases) == 0 {
		fmt.Fprintln(w, "No purchases yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCOURSE\tAMOUNT\tPURCHASE ID")
	for _, p := range purchases {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatDate(p.FechaCompra), p.NombreCurso, formatPrice(p.MontoPagado), p.CompraID)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d purchases, %s spent\n", len(purchases), formatPrice(purchasesTotal(purchases)))
}
