package cmd

import (
	"catalog-backup/internal/application"

	"github.com/spf13/cobra"
)

func newCreateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create FILE...",
		Short: "Back up newly created metacards",
		Long: `Back up every metacard listed in the given JSON or YAML files.

A file holds either a single metacard or a list of metacards:

  [{"id": "4f9a0c", "attributes": {"title": "Harbor survey"}}]

An existing backup for the same ID is overwritten.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, flags, func(app *application.Application) error {
				return app.Create(cmd.Context(), args)
			})
		},
	}
}

func newUpdateCmd(flags *globalFlags) *cobra.Command {
	var oldFiles, newFiles []string

	cmd := &cobra.Command{
		Use:   "update --old FILE... --new FILE...",
		Short: "Replace the backups of updated metacards",
		Long: `Replace the backup of every metacard in the --new files. Each one is paired
by ID with its previous version from the --old files, whose backup must exist.

The old backup is staged, the new version is written, and only then is the
staged file removed. If the write fails the staged file is kept for
reconciliation; run "catalog-backup scan" to find it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, flags, func(app *application.Application) error {
				return app.Update(cmd.Context(), oldFiles, newFiles)
			})
		},
	}

	cmd.Flags().StringSliceVar(&oldFiles, "old", nil, "files holding the previous metacard versions")
	cmd.Flags().StringSliceVar(&newFiles, "new", nil, "files holding the updated metacard versions")
	cmd.MarkFlagRequired("old")
	cmd.MarkFlagRequired("new")
	return cmd
}

func newDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete FILE...",
		Short: "Remove the backups of deleted metacards",
		Long: `Remove the backup of every metacard listed in the given files. Only the IDs
are used. A metacard without a backup is reported as a failure.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, flags, func(app *application.Application) error {
				return app.Delete(cmd.Context(), args)
			})
		},
	}
}
