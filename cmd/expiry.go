package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	analyticsrender "github.com/growex/quotebot/internal/adapters/render/analytics"
	"github.com/growex/quotebot/internal/domain"
)

func newExpiryCmd(app *app) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "expiry",
		Short: "Check rate table validity deadlines",
		Long: "expiry reports how long each rate table stays valid. With --notify it also emits the " +
			"operator warnings, at most once per table, condition, and calendar day. A scheduler is " +
			"expected to run \"quotebot expiry --notify\" daily.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var report domain.ExpiryReport
			if notify {
				checked, err := app.expiry.CheckNow(cmd.Context())
				if err != nil {
					return err
				}
				report = checked
			} else {
				report = app.tariffs.CheckExpiry()
			}

			rendered, err := app.renderer(
				analyticsrender.Report{Expiry: &report},
				analyticsrender.RenderOptions{Now: app.clock.Now()},
			)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Also deliver due operator notifications")

	return cmd
}
