package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	analyticsrender "github.com/growex/quotebot/internal/adapters/render/analytics"
	"github.com/growex/quotebot/internal/domain"
)

func newAnalyticsCmd(app *app) *cobra.Command {
	var period string
	var incomplete bool

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show usage aggregates for a rolling window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := analyticsrender.Report{}

			if period == "" {
				for _, window := range domain.Windows() {
					snapshot, err := app.analytics.Snapshot(cmd.Context(), window)
					if err != nil {
						return err
					}
					report.Aggregates = append(report.Aggregates, snapshot)
				}
			} else {
				window := domain.Window(period)
				if !window.Valid() {
					return fmt.Errorf("unsupported period %q (weekly, monthly, quarterly, all_time)", period)
				}
				snapshot, err := app.analytics.Snapshot(cmd.Context(), window)
				if err != nil {
					return err
				}
				report.Aggregates = append(report.Aggregates, snapshot)
			}

			if incomplete {
				stats, err := app.analytics.IncompleteStats(cmd.Context())
				if err != nil {
					return err
				}
				for _, window := range domain.Windows() {
					if period != "" && window != domain.Window(period) {
						continue
					}
					report.Funnels = append(report.Funnels, stats[window])
				}
			}

			rendered, err := app.renderer(report, analyticsrender.RenderOptions{Now: app.clock.Now()})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "Single window to show (weekly, monthly, quarterly, all_time; default all)")
	cmd.Flags().BoolVar(&incomplete, "incomplete", false, "Include the abandoned-session funnel")

	return cmd
}
