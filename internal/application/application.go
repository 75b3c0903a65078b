package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"catalog-backup/internal/backup"
	"catalog-backup/internal/config"
	"catalog-backup/internal/display"
	appErrors "catalog-backup/internal/errors"
	"catalog-backup/internal/logging"
	"catalog-backup/internal/metacard"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

// Options holds the command line settings that are not part of the
// configuration file
type Options struct {
	Verbose bool
	Quiet   bool
	Format  string
	NoColor bool
	NoIcons bool

	// Out receives reports, LogOutput receives log lines. Both default to
	// the standard streams.
	Out       io.Writer
	LogOutput io.Writer

	// Fs replaces the operating system filesystem, mainly for tests.
	Fs afero.Fs
}

// Application wires configuration, logging, metrics and the backup
// coordinator for one command invocation
type Application struct {
	config       *config.Config
	backupConfig backup.Config
	fs           afero.Fs
	logger       *logging.Logger
	backupLogger *backup.BackupLogger
	coordinator  *backup.Coordinator
	registry     *prometheus.Registry
	reporter     *display.Reporter
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config, opts Options) (*Application, error) {
	if opts.Verbose && opts.Quiet {
		return nil, appErrors.NewAppError(appErrors.ErrorTypeConfiguration,
			"--verbose and --quiet flags are mutually exclusive", nil)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logOutput := opts.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	loggerConfig, err := cfg.LoggerOptions(opts.Verbose, opts.Quiet)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrorTypeConfiguration, "invalid logging configuration", err).
			WithUserMessage(err.Error())
	}
	loggerConfig.Output = logOutput
	logger, err := logging.NewLogger(loggerConfig)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrorTypeConfiguration, "failed to create logger", err).
			WithUserMessage(err.Error())
	}

	reporter, err := display.NewReporter(display.Config{
		ColorEnabled: !opts.NoColor,
		UseIcons:     !opts.NoIcons,
		Format:       opts.Format,
		Writer:       out,
	})
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrorTypeConfiguration, "invalid output format", err).
			WithUserMessage(err.Error())
	}

	backupConfig, err := cfg.BackupOptions()
	if err != nil {
		return nil, err
	}

	backupLogger, err := backup.NewBackupLogger(backup.BackupLoggerConfig{
		Logger:       logger,
		AuditLogFile: cfg.Backup.AuditLogFile,
	})
	if err != nil {
		return nil, appErrors.WrapError(err, "failed to open audit log")
	}

	registry := prometheus.NewRegistry()
	metrics, err := backup.NewMetrics(registry)
	if err != nil {
		backupLogger.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	coordinator, err := backup.NewCoordinator(backupConfig,
		backup.WithFs(fs),
		backup.WithLogger(backupLogger),
		backup.WithMetrics(metrics),
	)
	if err != nil {
		backupLogger.Close()
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"root_dir":    backupConfig.RootDir,
		"shard_depth": backupConfig.ShardDepth,
		"workers":     coordinator.Workers(),
	}).Debug("Backup coordinator ready")

	return &Application{
		config:       cfg,
		backupConfig: backupConfig,
		fs:           fs,
		logger:       logger,
		backupLogger: backupLogger,
		coordinator:  coordinator,
		registry:     registry,
		reporter:     reporter,
	}, nil
}

// Create backs up the metacards listed in files
func (app *Application) Create(ctx context.Context, files []string) error {
	metacards, err := app.load(files)
	if err != nil {
		return err
	}
	if err := checkInterrupted(ctx); err != nil {
		return err
	}

	start := time.Now()
	_, err = app.coordinator.HandleCreate(ctx, metacards)
	return app.report("create", len(metacards), err, time.Since(start))
}

// Update replaces the backups of the metacards in newFiles. Each new
// metacard is paired by ID with its previous version from oldFiles.
func (app *Application) Update(ctx context.Context, oldFiles, newFiles []string) error {
	olds, err := app.load(oldFiles)
	if err != nil {
		return err
	}
	news, err := app.load(newFiles)
	if err != nil {
		return err
	}
	updates, err := metacard.PairUpdates(olds, news)
	if err != nil {
		return appErrors.NewAppError(appErrors.ErrorTypeValidation, "cannot pair updates", err).
			WithUserMessage(err.Error())
	}
	if err := checkInterrupted(ctx); err != nil {
		return err
	}

	start := time.Now()
	_, err = app.coordinator.HandleUpdate(ctx, updates)
	return app.report("update", len(updates), err, time.Since(start))
}

// Delete removes the backups of the metacards listed in files
func (app *Application) Delete(ctx context.Context, files []string) error {
	metacards, err := app.load(files)
	if err != nil {
		return err
	}
	if err := checkInterrupted(ctx); err != nil {
		return err
	}

	start := time.Now()
	_, err = app.coordinator.HandleDelete(ctx, metacards)
	return app.report("delete", len(metacards), err, time.Since(start))
}

// Inspect decodes and prints the committed backup of id
func (app *Application) Inspect(id string) (err error) {
	if err := app.requireRoot(); err != nil {
		return err
	}

	finishLog := app.logger.LogOperationStart("inspect", map[string]interface{}{
		"id": id,
	})
	defer func() { finishLog(err) }()

	reader, err := backup.NewReader(app.fs, app.backupConfig)
	if err != nil {
		return err
	}
	path, err := app.coordinator.Resolver().Path(id)
	if err != nil {
		return err
	}
	m, err := reader.ReadFile(id, path)
	if err != nil {
		return err
	}
	return app.reporter.Metacard(m, path)
}

// Scan reports temp and staged artifacts left under the backup root. It
// never changes the tree.
func (app *Application) Scan(ctx context.Context) (err error) {
	if err := app.requireRoot(); err != nil {
		return err
	}

	finishLog := app.logger.LogOperationStart("scan", map[string]interface{}{
		"root": app.backupConfig.RootDir,
	})
	defer func() { finishLog(err) }()

	report, err := backup.NewScanner(app.fs, app.backupConfig.RootDir).Scan(ctx)
	if err != nil {
		return err
	}
	if stray := len(report.Stray()); stray > 0 {
		app.logger.WithField("stray", stray).Warn("Backup tree needs reconciliation")
	}
	return app.reporter.Scan(app.backupConfig.RootDir, report)
}

// Close writes the metrics file, if configured, and releases the audit log
func (app *Application) Close() error {
	var firstErr error
	if file := app.config.Metrics.File; file != "" {
		if err := prometheus.WriteToTextfile(file, app.registry); err != nil {
			firstErr = fmt.Errorf("failed to write metrics file %s: %w", file, err)
		}
	}
	if err := app.backupLogger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Coordinator exposes the wired coordinator
func (app *Application) Coordinator() *backup.Coordinator {
	return app.coordinator
}

// Registry exposes the metrics registry
func (app *Application) Registry() *prometheus.Registry {
	return app.registry
}

func (app *Application) load(files []string) ([]metacard.Metacard, error) {
	if len(files) == 0 {
		return nil, appErrors.NewAppError(appErrors.ErrorTypeValidation, "no metacard files given", nil)
	}
	metacards, err := metacard.LoadFiles(files)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.ErrorTypeValidation, "failed to load metacards", err).
			WithUserMessage(err.Error())
	}
	app.logger.WithFields(map[string]interface{}{
		"files":     len(files),
		"metacards": len(metacards),
	}).Debug("Loaded metacards")
	return metacards, nil
}

// report renders the outcome of a batch. Errors that rejected the whole
// batch are returned without a summary.
func (app *Application) report(operation string, items int, err error, duration time.Duration) error {
	if _, partial := backup.AsBatchError(err); err != nil && !partial {
		return err
	}
	if renderErr := app.reporter.Batch(display.SummarizeBatch(operation, items, err, duration)); renderErr != nil {
		app.logger.WithField("error", renderErr.Error()).Error("Failed to render batch summary")
	}
	return err
}

func (app *Application) requireRoot() error {
	if strings.TrimSpace(app.backupConfig.RootDir) == "" {
		return backup.NewConfigurationError("no root backup directory configured", nil)
	}
	return nil
}

func checkInterrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return appErrors.NewAppError(appErrors.ErrorTypeInterruption, "interrupted before the batch started", err)
	}
	return nil
}
