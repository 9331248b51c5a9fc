package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	analyticsrender "github.com/growex/quotebot/internal/adapters/render/analytics"
	"github.com/growex/quotebot/internal/domain"
)

func newLeadsCmd(app *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Show the most recent delivery requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			leads, err := app.analytics.RecentLeads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if leads == nil {
				leads = []domain.Lead{}
			}

			rendered, err := app.renderer(
				analyticsrender.Report{Leads: leads},
				analyticsrender.RenderOptions{Now: app.clock.Now()},
			)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of leads to show")

	return cmd
}
