package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/growex/quotebot/internal/domain"
)

func newRatesCmd(app *app) *cobra.Command {
	var weight float64

	cmd := &cobra.Command{
		Use:   "rates <city> <volume>",
		Short: "Price a shipment against the loaded rate tables",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			city := strings.TrimSpace(args[0])
			volume, err := domain.ParseQuantity(args[1])
			if err != nil {
				return fmt.Errorf("parse volume: %w", err)
			}

			quote, err := app.tariffs.Resolve(&volume, &weight, city)
			if err != nil {
				return fmt.Errorf("resolve quote for %s: %w", city, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Destination: %s\n", quote.Destination)
			if quote.HubRouted() {
				fmt.Fprintf(out, "No direct rate for %s; priced to the hub.\n", quote.RequestedCity)
			}
			fmt.Fprintf(out, "Bracket: up to %d m3\n", quote.Threshold)
			fmt.Fprintf(out, "Price: %.2f %s\n", quote.Price, quote.Currency)
			if quote.ValidUntil != nil {
				fmt.Fprintf(out, "Valid until: %s\n", quote.ValidUntil.Format(domain.NotificationDayFormat))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&weight, "weight", 500, "Assumed cargo weight in kg")

	return cmd
}
