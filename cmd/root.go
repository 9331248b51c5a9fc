package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "quotebot",
		Short:         "Shipment quote assistant: rates, conversations, leads",
		Long:          "quotebot prices shipments from Turkey against the published rate tables, runs the conversational estimate flow, records leads for the sales team, and keeps an eye on rate table expiry.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newChatCmd(app),
		newRatesCmd(app),
		newUploadCmd(app),
		newAnalyticsCmd(app),
		newLeadsCmd(app),
		newUploadsCmd(app),
		newExpiryCmd(app),
	)

	return rootCmd
}
