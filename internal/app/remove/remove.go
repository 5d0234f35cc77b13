package remove

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/scheduler"
	"github.com/GiladLeef/ShortsTurbo/internal/storage"
)

// ServiceConfig is the configuration for the remove service.
type ServiceConfig struct {
	Repository storage.Repository
	Queue      scheduler.Queue
	// DataDir is the root data directory holding task artifacts.
	DataDir string
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Queue == nil {
		return fmt.Errorf("queue is required")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service removes a task and its artifacts.
type Service struct {
	repo    storage.Repository
	queue   scheduler.Queue
	dataDir string
	logger  log.Logger
}

// NewService creates a new remove service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:    cfg.Repository,
		queue:   cfg.Queue,
		dataDir: cfg.DataDir,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the remove request parameters.
type Request struct {
	// TaskID is the task to remove.
	TaskID string
	// Force requests cancellation of a pending or running task before
	// removing it.
	Force bool
}

// Run removes a task record and its artifact directory.
// If the task is still live and Force is false, it returns an error.
// If Force is true, cancellation is requested first and the removal
// proceeds best effort.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	s.logger.Debugf("removing task: %s (force: %v)", req.TaskID, req.Force)

	if req.TaskID == "" {
		return nil, fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	task, err := s.repo.GetTask(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("task not found: %s: %w", req.TaskID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	// Live tasks are only removed when forced.
	if !task.Status.IsTerminal() {
		if !req.Force {
			return nil, fmt.Errorf("cannot remove task in status %s without force: %w", task.Status, model.ErrNotValid)
		}

		// Request cancellation first (ignore errors, best effort).
		s.logger.Infof("force removing live task, requesting cancellation first: %s", task.ID)
		_, err := s.repo.UpdateTask(ctx, task.ID, func(t *model.Task) error {
			if t.Status.IsTerminal() {
				return nil
			}
			if t.Status == model.TaskStatusPending {
				return t.Transition(model.TaskStatusCancelled)
			}
			t.CancelRequested = true
			return nil
		})
		if err != nil {
			s.logger.Warningf("could not flag task %s for cancellation: %s", task.ID, err)
		}
		_ = s.queue.Cancel(task.ID)
	}

	// Delete the record from the registry.
	if err := s.repo.DeleteTask(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("could not delete task: %w", err)
	}

	// Remove the artifact directory.
	dir := conventions.TaskDir(s.dataDir, task.ID)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("could not remove task artifacts: %w", err)
	}

	s.logger.Infof("removed task %s and its artifacts", task.ID)
	return task, nil
}
