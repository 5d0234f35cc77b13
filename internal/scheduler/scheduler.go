// Package scheduler runs queued tasks on a bounded worker pool and keeps
// track of in-flight executions so they can be cancelled individually.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/storage"
)

// Executor runs a single task to completion. Task-level failures are
// recorded by the executor itself; a returned error means the execution
// could not even be driven (e.g. the registry is unreachable).
type Executor interface {
	Execute(ctx context.Context, taskID string) error
}

// ExecutorFunc is a helper to create executors from functions.
type ExecutorFunc func(ctx context.Context, taskID string) error

func (f ExecutorFunc) Execute(ctx context.Context, taskID string) error { return f(ctx, taskID) }

// Queue is the submission surface services use to hand tasks to the pool.
type Queue interface {
	Enqueue(taskID string) error
	Cancel(taskID string) bool
}

// SchedulerConfig is the configuration for the scheduler.
type SchedulerConfig struct {
	// Executor runs each dequeued task.
	Executor Executor
	// Repository is used to repair task state when an execution panics or
	// was interrupted by a previous shutdown.
	Repository storage.Repository
	// Workers is the number of concurrent executions. Defaults to 5.
	Workers int
	// QueueSize bounds the number of tasks waiting for a worker. Defaults
	// to 64.
	QueueSize int
	Logger    log.Logger
}

func (c *SchedulerConfig) defaults() error {
	if c.Executor == nil {
		return fmt.Errorf("executor is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Workers <= 0 {
		c.Workers = 5
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "scheduler.Scheduler"})

	return nil
}

// Scheduler dispatches queued task IDs to a fixed pool of workers. Each
// execution gets its own cancellable context, registered while the task
// runs so Cancel can interrupt it.
type Scheduler struct {
	executor Executor
	repo     storage.Repository
	workers  int
	queue    chan string
	logger   log.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	err := cfg.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}

	return &Scheduler{
		executor: cfg.Executor,
		repo:     cfg.Repository,
		workers:  cfg.Workers,
		queue:    make(chan string, cfg.QueueSize),
		logger:   cfg.Logger,
		inflight: map[string]context.CancelFunc{},
	}, nil
}

// Enqueue hands a task to the pool without blocking. It fails when the
// queue is at capacity.
func (s *Scheduler) Enqueue(taskID string) error {
	select {
	case s.queue <- taskID:
		return nil
	default:
		return fmt.Errorf("cannot enqueue task %q: %w", taskID, model.ErrQueueFull)
	}
}

// Cancel interrupts the task's execution context. It returns true when the
// task was executing, false when it was not (queued tasks are not
// interrupted here, they observe the cancellation flag when claimed).
func (s *Scheduler) Cancel(taskID string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[taskID]
	s.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	return true
}

// Running returns the number of tasks currently executing.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Run starts the worker pool and blocks until ctx is cancelled. Cancelling
// ctx interrupts in-flight executions and waits for the workers to stop.
// Queued tasks that never got a worker stay pending in the registry.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Infof("Scheduler started with %d workers (queue depth %d)", s.workers, cap(s.queue))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			s.work(ctx, worker)
		}(i)
	}
	wg.Wait()

	s.logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) work(ctx context.Context, worker int) {
	logger := s.logger.WithValues(log.Kv{"worker": worker})
	for {
		select {
		case <-ctx.Done():
			return
		case taskID := <-s.queue:
			if ctx.Err() != nil {
				return
			}
			s.execute(ctx, logger, taskID)
		}
	}
}

// execute runs one task under its own cancellable context. A panicking
// executor must not take the worker down, the task is marked failed and
// the worker moves on.
func (s *Scheduler) execute(ctx context.Context, logger log.Logger, taskID string) {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.inflight[taskID] = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, taskID)
		s.mu.Unlock()

		if r := recover(); r != nil {
			logger.Errorf("Execution of task %s panicked: %v\n%s", taskID, r, debug.Stack())
			s.markFailed(taskID, fmt.Sprintf("task execution panicked: %v", r))
		}
	}()

	logger.Debugf("Executing task %s", taskID)
	err := s.executor.Execute(taskCtx, taskID)
	if err != nil {
		logger.Errorf("Execution of task %s errored: %s", taskID, err)
	}
}

// Recover repairs registry state left over from a previous process: tasks
// still marked running are failed (their worker is gone) and pending tasks
// are queued again.
func (s *Scheduler) Recover(ctx context.Context) error {
	// 1. Fail tasks that were mid-flight when the previous process died.
	interrupted, err := s.listAll(ctx, model.TaskStatusRunning)
	if err != nil {
		return fmt.Errorf("could not list running tasks: %w", err)
	}
	for _, t := range interrupted {
		s.markFailed(t.ID, "task interrupted by service restart")
		s.logger.Warningf("Marked interrupted task %s as failed", t.ID)
	}

	// 2. Queue pending tasks again so they get a worker.
	pending, err := s.listAll(ctx, model.TaskStatusPending)
	if err != nil {
		return fmt.Errorf("could not list pending tasks: %w", err)
	}
	for _, t := range pending {
		err := s.Enqueue(t.ID)
		if err != nil {
			s.logger.Warningf("Could not requeue pending task %s: %s", t.ID, err)
			continue
		}
		s.logger.Infof("Requeued pending task %s", t.ID)
	}

	return nil
}

func (s *Scheduler) listAll(ctx context.Context, status model.TaskStatus) ([]model.TaskSummary, error) {
	var all []model.TaskSummary
	for page := 1; ; page++ {
		res, err := s.repo.ListTasks(ctx, model.TaskFilter{Status: status, Page: page, PageSize: 100})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Tasks...)
		if len(all) >= res.Total || len(res.Tasks) == 0 {
			return all, nil
		}
	}
}

// markFailed force-fails a task outside the regular pipeline flow. The
// status is assigned directly, the task may still be pending when its
// execution died before the claim. Uses a fresh context, the caller's one
// may already be cancelled.
func (s *Scheduler) markFailed(taskID, message string) {
	_, err := s.repo.UpdateTask(context.Background(), taskID, func(t *model.Task) error {
		if t.Status.IsTerminal() {
			return model.ErrAlreadyTerminal
		}
		stage := t.Stage
		if stage == "" {
			stage = model.StageSpeech
		}
		t.Status = model.TaskStatusFailed
		t.Failure = &model.TaskFailure{
			Stage:   stage,
			Reason:  model.FailureReasonInternal,
			Message: message,
		}
		return nil
	})
	if err != nil {
		s.logger.Errorf("Could not mark task %s as failed: %s", taskID, err)
	}
}
