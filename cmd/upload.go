package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/growex/quotebot/internal/application"
)

func newUploadCmd(app *app) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Replace a rate table from an exported sheet",
		Long: "upload classifies the sheet by file name, validates its structure, and swaps the matching " +
			"rate table all-or-nothing. The previous table version is archived first.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			result, err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(),
				"Validating and replacing the rate table...",
				func(ctx context.Context) (string, error) {
					summary, err := app.uploads.Upload(ctx, userID, filepath.Base(path), path, info.Size())
					if err != nil {
						return "", err
					}
					return formatUploadResult(summary), nil
				})
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), result)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "operator", "User ID recorded in the upload audit log")

	return cmd
}

func formatUploadResult(summary application.UpdateSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Replaced the %s rate table from %s\n", summary.Kind, summary.SourceFile)
	fmt.Fprintf(&b, "Locations: %d\n", len(summary.Locations))
	if summary.ValidUntil != "" {
		fmt.Fprintf(&b, "Valid until: %s\n", summary.ValidUntil)
	}
	return b.String()
}
