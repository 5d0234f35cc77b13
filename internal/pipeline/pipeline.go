// Package pipeline drives a generation task through its stages: speech
// synthesis, subtitle timing, footage material and final render. Every stage
// commits its artifact to the task registry before the next one starts, and
// cancellation is observed on each commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/compose"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
	"github.com/GiladLeef/ShortsTurbo/internal/storage"
)

// Progress checkpoints committed while a task advances.
const (
	progressClaimed    = 0.05
	progressSpeech     = 0.10
	progressSubtitle   = 0.20
	progressSearched   = 0.30
	progressDownloaded = 0.40
	progressRendering  = 0.50
)

// errCancelRequested aborts the pipeline when the task carries a pending
// cancellation request.
var errCancelRequested = errors.New("task cancellation requested")

// stageError ties a pipeline failure to the stage it happened in and the
// reason reported on the task.
type stageError struct {
	stage  model.Stage
	reason model.FailureReason
	err    error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error { return e.err }

func newStageError(stage model.Stage, reason model.FailureReason, err error) *stageError {
	return &stageError{stage: stage, reason: reason, err: err}
}

// Downloader materializes remote clips on disk.
type Downloader interface {
	Download(ctx context.Context, url, savePath string) error
}

// SongPicker resolves the background music configuration to a song path.
type SongPicker interface {
	Pick(cfg model.MusicConfig) (string, error)
}

// CoordinatorConfig is the configuration for the pipeline coordinator.
type CoordinatorConfig struct {
	Repository storage.Repository
	Speech     provider.SpeechSynthesizer
	Keywords   provider.KeywordExtractor
	Footage    []provider.FootageFetcher
	Compositor compose.Compositor
	Music      SongPicker
	Downloader Downloader
	// DataDir is the root under which per-task artifact directories live.
	DataDir string
	// TaskTimeout bounds a whole task run.
	TaskTimeout time.Duration
	// DownloadRetry bounds retries of clip downloads.
	DownloadRetry provider.RetryPolicy
	Logger        log.Logger
}

func (c *CoordinatorConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Speech == nil {
		return fmt.Errorf("speech synthesizer is required")
	}
	if c.Keywords == nil {
		return fmt.Errorf("keyword extractor is required")
	}
	if len(c.Footage) == 0 {
		return fmt.Errorf("at least one footage fetcher is required")
	}
	if c.Compositor == nil {
		return fmt.Errorf("compositor is required")
	}
	if c.Music == nil {
		return fmt.Errorf("music picker is required")
	}
	if c.Downloader == nil {
		return fmt.Errorf("downloader is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 15 * time.Minute
	}
	if c.DownloadRetry == (provider.RetryPolicy{}) {
		c.DownloadRetry = provider.DefaultRetryPolicy()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pipeline.Coordinator"})

	return nil
}

// Coordinator executes generation tasks stage by stage against the registry.
type Coordinator struct {
	repo          storage.Repository
	speech        provider.SpeechSynthesizer
	keywords      provider.KeywordExtractor
	footage       []provider.FootageFetcher
	comp          compose.Compositor
	music         SongPicker
	downloader    Downloader
	dataDir       string
	taskTimeout   time.Duration
	downloadRetry provider.RetryPolicy
	logger        log.Logger
}

// NewCoordinator creates a new pipeline coordinator.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Coordinator{
		repo:          cfg.Repository,
		speech:        cfg.Speech,
		keywords:      cfg.Keywords,
		footage:       cfg.Footage,
		comp:          cfg.Compositor,
		music:         cfg.Music,
		downloader:    cfg.Downloader,
		dataDir:       cfg.DataDir,
		taskTimeout:   cfg.TaskTimeout,
		downloadRetry: cfg.DownloadRetry,
		logger:        cfg.Logger,
	}, nil
}

// Execute runs the pipeline for one task until it reaches a terminal state.
// The returned error reports registry problems only, task level failures are
// recorded on the task itself.
func (c *Coordinator) Execute(ctx context.Context, taskID string) error {
	logger := c.logger.WithValues(log.Kv{"task-id": taskID})

	// 1. Claim the task, moving it to running. A task cancelled while it was
	// still queued is already terminal and is skipped.
	task, err := c.repo.UpdateTask(ctx, taskID, func(t *model.Task) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("task is finished: %w", model.ErrAlreadyTerminal)
		}
		if err := t.Transition(model.TaskStatusRunning); err != nil {
			return err
		}
		t.SetProgress(progressClaimed)
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyTerminal) {
			logger.Infof("Task already reached a terminal state, nothing to run")
			return nil
		}
		return fmt.Errorf("could not claim task: %w", err)
	}

	logger.Infof("Task started")

	// 2. Bound the whole run with the task deadline and run the stages.
	runCtx, cancel := context.WithTimeout(ctx, c.taskTimeout)
	defer cancel()

	runErr := c.run(runCtx, logger, *task)
	if runErr == nil {
		return nil
	}

	// 3. Record the terminal failure. The run context may be dead at this
	// point, the registry write must still go through.
	return c.finalizeFailure(context.WithoutCancel(ctx), logger, taskID, runErr, runCtx.Err())
}

// run drives the stages in order. It returns nil once the task has been
// committed to a successful terminal state, otherwise a stageError describing
// where and why the pipeline stopped.
func (c *Coordinator) run(ctx context.Context, logger log.Logger, task model.Task) error {
	// 1. Speech synthesis.
	speechArt, err := c.runSpeech(ctx, logger, task)
	if err != nil {
		return err
	}
	task, err = c.commit(ctx, task.ID, commitChange{artifact: speechArt, progress: progressSpeech, terminal: terminalFor(task.Config, model.StageSpeech)})
	if err != nil {
		return asStageError(model.StageSpeech, err)
	}
	if task.Status.IsTerminal() {
		logger.Infof("Task stopped after speech stage")
		return nil
	}

	// 2. Subtitle timing.
	subtitleArt, err := c.runSubtitle(task, speechArt)
	if err != nil {
		return err
	}
	task, err = c.commit(ctx, task.ID, commitChange{artifact: subtitleArt, progress: progressSubtitle, terminal: terminalFor(task.Config, model.StageSubtitle)})
	if err != nil {
		return asStageError(model.StageSubtitle, err)
	}
	if task.Status.IsTerminal() {
		logger.Infof("Task stopped after subtitle stage")
		return nil
	}

	// 3. Footage material.
	materialArt, specs, warnings, err := c.runMaterial(ctx, logger, task, speechArt.Duration)
	if err != nil {
		return err
	}
	task, err = c.commit(ctx, task.ID, commitChange{artifact: materialArt, progress: progressDownloaded, warnings: warnings, terminal: terminalFor(task.Config, model.StageMaterial)})
	if err != nil {
		return asStageError(model.StageMaterial, err)
	}
	if task.Status.IsTerminal() {
		logger.Infof("Task stopped after material stage")
		return nil
	}

	// 4. Final render, commits the terminal state itself.
	return c.runRender(ctx, logger, task, specs, speechArt, subtitleArt)
}

// commitChange is one registry update of a running task.
type commitChange struct {
	stage    model.Stage
	artifact *model.StageArtifact
	progress float64
	warnings []string
	// terminal moves the task to this status after applying the change.
	terminal model.TaskStatus
}

// commit applies a pipeline change to the stored task. It refuses to touch
// tasks that stopped running or have a pending cancellation request, which
// discards the change.
func (c *Coordinator) commit(ctx context.Context, taskID string, change commitChange) (model.Task, error) {
	updated, err := c.repo.UpdateTask(ctx, taskID, func(t *model.Task) error {
		if t.Status != model.TaskStatusRunning {
			return fmt.Errorf("task is not running: %w", model.ErrAlreadyTerminal)
		}
		if t.CancelRequested {
			return errCancelRequested
		}

		if change.artifact != nil {
			t.Stage = change.artifact.Stage
			t.Artifacts = append(t.Artifacts, *change.artifact)
		} else if change.stage != "" {
			t.Stage = change.stage
		}
		t.Warnings = append(t.Warnings, change.warnings...)
		t.SetProgress(change.progress)

		if change.terminal != "" {
			if err := t.Transition(change.terminal); err != nil {
				return err
			}
			t.SetProgress(1)
		}

		return nil
	})
	if err != nil {
		return model.Task{}, err
	}

	return *updated, nil
}

// terminalFor returns the terminal status a stage commit should apply, empty
// when the pipeline continues past the stage.
func terminalFor(cfg model.GenerationConfig, stage model.Stage) model.TaskStatus {
	if cfg.StopAfter == stage {
		return model.TaskStatusSucceeded
	}
	return ""
}

// asStageError keeps stage errors as they are and ties registry or
// cancellation errors raised during a commit to the stage being committed.
func asStageError(stage model.Stage, err error) error {
	var serr *stageError
	if errors.As(err, &serr) {
		return err
	}
	return newStageError(stage, model.FailureReasonInternal, err)
}

// finalizeFailure classifies the run error and commits the terminal state.
// ctxErr is the state of the bounded run context, which distinguishes an
// external cancellation from the task deadline and from plain stage failures.
func (c *Coordinator) finalizeFailure(ctx context.Context, logger log.Logger, taskID string, runErr, ctxErr error) error {
	stage := model.StageSpeech
	reason := model.FailureReasonInternal
	message := runErr.Error()

	var serr *stageError
	if errors.As(runErr, &serr) {
		stage = serr.stage
		reason = serr.reason
		message = serr.err.Error()
	}

	status := model.TaskStatusFailed
	switch {
	case errors.Is(runErr, errCancelRequested) || errors.Is(ctxErr, context.Canceled):
		status = model.TaskStatusCancelled
	case errors.Is(ctxErr, context.DeadlineExceeded):
		reason = model.FailureReasonTimeout
		message = fmt.Sprintf("task deadline exceeded during %s stage", stage)
	}

	_, err := c.repo.UpdateTask(ctx, taskID, func(t *model.Task) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("task is finished: %w", model.ErrAlreadyTerminal)
		}
		if err := t.Transition(status); err != nil {
			return err
		}
		if status == model.TaskStatusFailed {
			t.Failure = &model.TaskFailure{Stage: stage, Reason: reason, Message: message}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyTerminal) {
			return nil
		}
		return fmt.Errorf("could not record task failure: %w", err)
	}

	if status == model.TaskStatusCancelled {
		logger.Infof("Task cancelled")
	} else {
		logger.Warningf("Task failed at %s stage (%s): %s", stage, reason, message)
	}

	return nil
}
