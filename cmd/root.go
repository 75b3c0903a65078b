package cmd

import (
	"context"
	"fmt"
	"os"

	"catalog-backup/internal/application"
	"catalog-backup/internal/config"
	appErrors "catalog-backup/internal/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// globalFlags holds the persistent flags shared by every subcommand
type globalFlags struct {
	configFile string
	verbose    bool
	quiet      bool
	format     string
	noColor    bool
	noIcons    bool
}

// flagBindings maps persistent flags onto configuration keys. A flag only
// overrides the file and environment when it is set.
var flagBindings = map[string]string{
	"root-dir":     "backup.root_dir",
	"shard-depth":  "backup.shard_depth",
	"workers":      "backup.workers",
	"audit-log":    "backup.audit_log_file",
	"compression":  "codec.compression.algorithm",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"log-file":     "logging.file",
	"metrics-file": "metrics.file",
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "catalog-backup",
		Short: "Keep a filesystem backup of catalog metacards in step with catalog changes",
		Long: `catalog-backup mirrors catalog create, update and delete batches into a
sharded directory tree, one file per metacard.

Every write goes through a temp file and a rename, and every delete is staged
before it is finalized, so a crash never leaves a half-written backup under
a metacard's final name. Failures are collected per metacard: the rest of the
batch still completes and the command exits with status 3.

Examples:
  # Back up newly created metacards
  catalog-backup create --root-dir /var/lib/catalog/backup created.json

  # Replace backups after an update, pairing old and new versions by ID
  catalog-backup update --old before.json --new after.yaml

  # Remove backups of deleted metacards
  catalog-backup delete deleted.json

  # Look for artifacts left by an interrupted run
  catalog-backup scan --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default is ./catalog-backup.yaml or $HOME/.config/catalog-backup/catalog-backup.yaml)")
	pf.String("root-dir", "", "absolute path of the backup root directory")
	pf.Int("shard-depth", 0, "number of two-character directory levels per metacard ID")
	pf.Int("workers", 0, "worker pool size (default 1000)")
	pf.String("audit-log", "", "append per-metacard outcomes to this JSON file")
	pf.String("compression", "", "snapshot compression: none, gzip, lz4, zstd")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log every metacard")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "log errors only")
	pf.String("log-level", "", "log level: quiet, normal, verbose, debug")
	pf.String("log-format", "", "log format: text, json")
	pf.String("log-file", "", "also write logs to this file, with rotation")
	pf.StringVar(&flags.format, "format", "text", "report format: text, json, yaml")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable color output")
	pf.BoolVar(&flags.noIcons, "no-icons", false, "use ASCII status markers")
	pf.String("metrics-file", "", "write prometheus metrics to this file after the command")

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(
		newCreateCmd(flags),
		newUpdateCmd(flags),
		newDeleteCmd(flags),
		newInspectCmd(flags),
		newScanCmd(flags),
		createVersionCommand(),
		createConfigCommand(),
	)
	return rootCmd
}

// Execute runs the command line and exits with a status derived from the
// error class. This is called by main.main().
func Execute() {
	ctx, stop := appErrors.SignalContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", appErrors.FormatUserError(err))
		os.Exit(appErrors.ExitCode(err))
	}
}

// loadConfig layers defaults, the config file, environment variables and
// explicitly set flags, in increasing priority.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	v, err := config.NewViper(flags.configFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagBindings {
		flag := fs.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return appErrors.NewAppError(appErrors.ErrorTypeConfiguration,
				fmt.Sprintf("failed to bind flag --%s", name), err)
		}
	}
	return nil
}

// withApplication loads the configuration, wires an application, runs fn
// and always closes the application.
func withApplication(cmd *cobra.Command, flags *globalFlags, fn func(*application.Application) error) (err error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	app, err := application.NewApplication(cfg, application.Options{
		Verbose:   flags.verbose,
		Quiet:     flags.quiet,
		Format:    flags.format,
		NoColor:   flags.noColor,
		NoIcons:   flags.noIcons,
		Out:       cmd.OutOrStdout(),
		LogOutput: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(app)
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catalog-backup version %s\n", version)
			fmt.Fprintf(out, "Built: %s\n", buildTime)
			fmt.Fprintf(out, "Commit: %s\n", gitCommit)
			fmt.Fprintf(out, "Go version: %s\n", goVersion)
		},
	}
}

// createConfigCommand creates the config subcommand for generating sample config
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file that can be used with the --config flag.

Every key can also be set through the environment with the CATALOG_BACKUP_
prefix, for example CATALOG_BACKUP_BACKUP_ROOT_DIR.

Examples:
  catalog-backup config > catalog-backup.yaml`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), config.SampleConfig)
		},
	}
}
