package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	analyticsrender "github.com/growex/quotebot/internal/adapters/render/analytics"
	"github.com/growex/quotebot/internal/domain"
)

func newUploadsCmd(app *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Show the recent rate table upload attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uploads, err := app.analytics.RecentUploads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if uploads == nil {
				uploads = []domain.UploadRecord{}
			}

			rendered, err := app.renderer(
				analyticsrender.Report{Uploads: uploads},
				analyticsrender.RenderOptions{Now: app.clock.Now()},
			)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 3, "Maximum number of upload records to show")

	return cmd
}
