package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"catalog-backup/internal/metacard"

	"github.com/spf13/afero"
)

const (
	operationCreate = "create"
	operationUpdate = "update"
	operationDelete = "delete"
)

// Config configures a Coordinator. Workers is read once by NewCoordinator;
// changing it afterwards does not resize the pool.
type Config struct {
	RootDir    string
	ShardDepth int
	Workers    int
	Codec      CodecConfig
}

// Coordinator keeps a filesystem backup in step with catalog create, update
// and delete batches. Work for distinct metacards runs in parallel on a
// shared worker pool; concurrent operations on the same ID are not
// serialized.
type Coordinator struct {
	config   Config
	fs       afero.Fs
	resolver *PathResolver
	writer   *AtomicWriter
	deleter  *AtomicDeleter
	executor *TaskExecutor
	logger   *BackupLogger
	metrics  *Metrics
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithFs replaces the operating system filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Coordinator) { c.fs = fs }
}

// WithLogger sets the backup logger.
func WithLogger(logger *BackupLogger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Coordinator) { c.metrics = metrics }
}

// WithExecutor shares an existing executor instead of creating one.
func WithExecutor(executor *TaskExecutor) Option {
	return func(c *Coordinator) { c.executor = executor }
}

// NewCoordinator creates a coordinator. A blank RootDir is accepted here and
// rejected by every Handle call, so a coordinator can be wired before its
// root directory is configured.
func NewCoordinator(config Config, opts ...Option) (*Coordinator, error) {
	codec, err := NewCodec(config.Codec)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{config: config}
	for _, opt := range opts {
		opt(c)
	}

	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	if c.executor == nil {
		c.executor = NewTaskExecutor(config.Workers)
	}
	if c.logger == nil {
		logger, err := NewBackupLogger(BackupLoggerConfig{})
		if err != nil {
			return nil, err
		}
		c.logger = logger
	}

	c.resolver = NewPathResolver(c.fs, config.RootDir, config.ShardDepth)
	c.writer = NewAtomicWriter(c.fs, codec)
	c.deleter = NewAtomicDeleter(c.fs)
	c.metrics.setWorkers(c.executor.Size())

	return c, nil
}

// Workers returns the size of the worker pool.
func (c *Coordinator) Workers() int {
	return c.executor.Size()
}

// Resolver returns the path resolver used for backups.
func (c *Coordinator) Resolver() *PathResolver {
	return c.resolver
}

// HandleCreate backs up newly created metacards. It returns metacards
// unchanged when every item succeeded and a *BatchError otherwise.
func (c *Coordinator) HandleCreate(ctx context.Context, metacards []metacard.Metacard) ([]metacard.Metacard, error) {
	if err := c.preflight(); err != nil {
		return nil, err
	}

	ctx, done := c.logger.StartBatch(ctx, operationCreate, len(metacards))
	start := time.Now()
	errs := NewErrorSet()
	group := c.executor.NewGroup()

	for _, m := range metacards {
		m := m
		path, err := c.resolver.Resolve(m.ID)
		if err != nil {
			c.recordFailure(ctx, errs, operationCreate, NewItemState(m.ID).Fail(StepResolve, err), CategoryBackup)
			continue
		}

		group.Go(func() {
			state := c.create(m, path)
			if state.Failed() {
				c.recordFailure(ctx, errs, operationCreate, state, state.FailedStep.Category())
				return
			}
			c.recordSuccess(ctx, operationCreate, m.ID, path)
		})
	}

	return finish(c, group, errs, ResponseTypeCreate, operationCreate, start, done, metacards)
}

// HandleDelete removes deleted metacards from the backup. Deleting a metacard
// with no committed backup is a failure.
func (c *Coordinator) HandleDelete(ctx context.Context, metacards []metacard.Metacard) ([]metacard.Metacard, error) {
	if err := c.preflight(); err != nil {
		return nil, err
	}

	ctx, done := c.logger.StartBatch(ctx, operationDelete, len(metacards))
	start := time.Now()
	errs := NewErrorSet()
	group := c.executor.NewGroup()

	for _, m := range metacards {
		m := m
		path, err := c.existingBackup(m.ID)
		if err != nil {
			c.recordFailure(ctx, errs, operationDelete, NewItemState(m.ID).Fail(StepResolve, err), CategoryDelete)
			continue
		}

		group.Go(func() {
			state := c.delete(m.ID, path)
			if state.Failed() {
				c.recordFailure(ctx, errs, operationDelete, state, CategoryDelete)
				return
			}
			c.recordSuccess(ctx, operationDelete, m.ID, path)
		})
	}

	return finish(c, group, errs, ResponseTypeDelete, operationDelete, start, done, metacards)
}

// HandleUpdate replaces the backup of each updated metacard. The old backup
// is staged before the new one is written and only removed once the write
// has committed; if the write fails the staged file is kept.
func (c *Coordinator) HandleUpdate(ctx context.Context, updates []metacard.Update) ([]metacard.Update, error) {
	if err := c.preflight(); err != nil {
		return nil, err
	}

	ctx, done := c.logger.StartBatch(ctx, operationUpdate, len(updates))
	start := time.Now()
	errs := NewErrorSet()
	group := c.executor.NewGroup()

	for _, u := range updates {
		u := u

		// A mismatched pair would stage one record and commit another.
		if err := u.Validate(); err != nil {
			invalid := NewValidationError("invalid update pair", err).
				WithContext("old_id", u.Old.ID).
				WithContext("new_id", u.New.ID)
			c.recordFailure(ctx, errs, operationUpdate, NewItemState(u.Old.ID).Fail(StepResolve, invalid), CategoryDelete)
			c.recordFailure(ctx, errs, operationUpdate, NewItemState(u.New.ID).Fail(StepResolve, invalid), CategoryBackup)
			continue
		}

		newPath, newErr := c.resolver.Resolve(u.New.ID)
		if newErr != nil {
			c.recordFailure(ctx, errs, operationUpdate, NewItemState(u.New.ID).Fail(StepResolve, newErr), CategoryBackup)
		}

		oldPath, oldErr := c.existingBackup(u.Old.ID)
		if oldErr != nil {
			c.recordFailure(ctx, errs, operationUpdate, NewItemState(u.Old.ID).Fail(StepResolve, oldErr), CategoryDelete)
		}

		if newErr != nil || oldErr != nil {
			continue
		}

		group.Go(func() {
			state := c.update(u, oldPath, newPath)
			if state.Failed() {
				if state.LeftStaged() {
					c.logger.StagedLeftBehind(ctx, u.Old.ID, state.StagedPath)
				}
				id := u.Old.ID
				if state.FailedStep == StepWrite {
					id = u.New.ID
				}
				state.ID = id
				c.recordFailure(ctx, errs, operationUpdate, state, state.FailedStep.Category())
				return
			}
			c.recordSuccess(ctx, operationUpdate, u.New.ID, newPath)
		})
	}

	return finish(c, group, errs, ResponseTypeUpdate, operationUpdate, start, done, updates)
}

// create runs the write protocol: PENDING -> WRITTEN.
func (c *Coordinator) create(m metacard.Metacard, path string) ItemState {
	state := NewItemState(m.ID)
	if err := c.writer.Write(m, path); err != nil {
		return state.Fail(StepWrite, err)
	}
	return mustAdvance(state, PhaseWritten)
}

// delete runs the two-phase delete: PENDING -> STAGED -> DELETED. Finalize
// is never attempted when staging fails.
func (c *Coordinator) delete(id, path string) ItemState {
	state := NewItemState(id)

	staged, err := c.deleter.Stage(path)
	if err != nil {
		return state.Fail(StepStage, err)
	}
	state = mustStage(state, staged)

	if err := c.deleter.Finalize(staged); err != nil {
		return state.Fail(StepFinalize, err)
	}
	return mustAdvance(state, PhaseDeleted)
}

// update runs PENDING -> STAGED -> WRITTEN -> DELETED. Each step runs only if
// the previous one succeeded.
func (c *Coordinator) update(u metacard.Update, oldPath, newPath string) ItemState {
	state := NewItemState(u.Old.ID)

	staged, err := c.deleter.Stage(oldPath)
	if err != nil {
		return state.Fail(StepStage, err)
	}
	state = mustStage(state, staged)

	if err := c.writer.Write(u.New, newPath); err != nil {
		return state.Fail(StepWrite, err)
	}
	state = mustAdvance(state, PhaseWritten)

	if err := c.deleter.Finalize(staged); err != nil {
		return state.Fail(StepFinalize, err)
	}
	return mustAdvance(state, PhaseDeleted)
}

// existingBackup resolves id and checks that a committed backup is present.
func (c *Coordinator) existingBackup(id string) (string, error) {
	path, err := c.resolver.Resolve(id)
	if err != nil {
		return "", err
	}

	exists, err := c.deleter.Exists(path)
	if err != nil {
		return "", NewStageError(fmt.Sprintf("failed to inspect %s", path), err)
	}
	if !exists {
		return "", NewNotFoundError(fmt.Sprintf("no backup exists for metacard %s", id), nil).WithContext("path", path)
	}
	return path, nil
}

func (c *Coordinator) preflight() error {
	root := strings.TrimSpace(c.config.RootDir)
	if root == "" {
		return NewConfigurationError("no root backup directory configured", nil)
	}
	if !filepath.IsAbs(root) {
		return NewConfigurationError(fmt.Sprintf("root backup directory %q is not an absolute path", root), nil)
	}
	return nil
}

func (c *Coordinator) recordFailure(ctx context.Context, errs *ErrorSet, operation string, state ItemState, category FailureCategory) {
	errs.Add(category, state.ID, state.Err)
	c.logger.ItemFailed(ctx, operation, state.ID, state.FailedStep, state.Err)
	c.metrics.observeFailure(category)
	c.metrics.observeItem(operation, true)
}

func (c *Coordinator) recordSuccess(ctx context.Context, operation, id, path string) {
	c.logger.ItemSucceeded(ctx, operation, id, path)
	c.metrics.observeItem(operation, false)
}

// finish waits for every unit of the batch before inspecting its errors.
func finish[T any](c *Coordinator, group *TaskGroup, errs *ErrorSet, responseType, operation string,
	start time.Time, done func(int, error), batch []T) ([]T, error) {
	group.Wait()

	err := errs.Err(responseType)
	c.metrics.observeBatch(operation, time.Since(start))
	done(errs.Len(), err)

	if err != nil {
		return nil, err
	}
	return batch, nil
}

func mustAdvance(state ItemState, phase Phase) ItemState {
	next, err := state.Advance(phase)
	if err != nil {
		panic(err)
	}
	return next
}

func mustStage(state ItemState, path string) ItemState {
	next, err := state.Staged(path)
	if err != nil {
		panic(err)
	}
	return next
}
