package cmd

import (
	"catalog-backup/internal/application"

	"github.com/spf13/cobra"
)

func newInspectCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect ID",
		Short: "Decode and print the committed backup of a metacard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, flags, func(app *application.Application) error {
				return app.Inspect(args[0])
			})
		},
	}
}

func newScanCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Report temp and staged files left by interrupted operations",
		Long: `Walk the backup root and list every temp (.tmp) and staged (.del) file.
Nothing is modified; each artifact is reported with whether a committed
backup for the same ID sits next to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, flags, func(app *application.Application) error {
				return app.Scan(cmd.Context())
			})
		},
	}
}
