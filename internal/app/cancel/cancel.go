package cancel

import (
	"context"
	"errors"
	"fmt"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/scheduler"
	"github.com/GiladLeef/ShortsTurbo/internal/storage"
)

// ServiceConfig is the configuration for the cancel service.
type ServiceConfig struct {
	Repository storage.Repository
	Queue      scheduler.Queue
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Queue == nil {
		return fmt.Errorf("queue is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Cancel"})
	return nil
}

// Service requests task cancellations.
type Service struct {
	repo   storage.Repository
	queue  scheduler.Queue
	logger log.Logger
}

// NewService creates a new cancel service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		queue:  cfg.Queue,
		logger: cfg.Logger,
	}, nil
}

// Request represents the cancel request parameters.
type Request struct {
	// TaskID is the task to cancel.
	TaskID string
}

// Run requests the cancellation of a task. Pending tasks are cancelled on
// the spot. Running tasks are flagged and their execution interrupted, the
// pipeline settles the terminal state at its next stage boundary.
func (s *Service) Run(ctx context.Context, req Request) (*model.Task, error) {
	s.logger.Debugf("cancelling task: %s", req.TaskID)

	if req.TaskID == "" {
		return nil, fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	task, err := s.repo.UpdateTask(ctx, req.TaskID, func(t *model.Task) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("task already finished as %s: %w", t.Status, model.ErrAlreadyTerminal)
		}
		if t.Status == model.TaskStatusPending {
			return t.Transition(model.TaskStatusCancelled)
		}
		t.CancelRequested = true
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("task not found: %s: %w", req.TaskID, model.ErrNotFound)
		}
		if errors.Is(err, model.ErrAlreadyTerminal) {
			return nil, err
		}
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	// Interrupt the execution when a worker already picked the task up.
	if task.Status == model.TaskStatusRunning {
		interrupted := s.queue.Cancel(task.ID)
		s.logger.Debugf("interrupt for task %s delivered: %v", task.ID, interrupted)
	}

	s.logger.Infof("Cancellation of task %s requested (status: %s)", task.ID, task.Status)
	return task, nil
}
