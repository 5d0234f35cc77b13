package lib

import (
	"context"
	"fmt"

	"github.com/GiladLeef/ShortsTurbo/internal/app/cancel"
	"github.com/GiladLeef/ShortsTurbo/internal/app/list"
	"github.com/GiladLeef/ShortsTurbo/internal/app/remove"
	"github.com/GiladLeef/ShortsTurbo/internal/app/status"
	"github.com/GiladLeef/ShortsTurbo/internal/app/submit"
)

// SubmitTask registers a new generation task without executing it.
//
// The script must be non-empty. Unset opts fields take defaults, the
// effective configuration is snapshotted on the returned task. The task
// stays [TaskStatusPending] until [Client.RunTask] executes it or a serving
// process sharing the registry recovers it.
//
// Returns [ErrNotValid] if the script is empty or the configuration does not
// validate.
func (c *Client) SubmitTask(ctx context.Context, script string, opts *GenerateOpts) (*Task, error) {
	svc, err := submit.NewService(submit.ServiceConfig{
		Repository:         c.repo,
		Queue:              noopQueue{},
		DefaultVoice:       c.defaultVoice,
		DefaultMusicVolume: c.defaultMusicVolume,
		Logger:             c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Submit(ctx, submit.Request{
		Script: script,
		Config: toInternalGenerationConfig(opts),
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// RunTask executes a pending task and blocks until it reaches a terminal
// state. Pipeline failures are recorded on the returned task, not returned
// as an error. A task that already reached a terminal state is returned as
// is.
//
// Returns [ErrNotFound] if the task does not exist.
func (c *Client) RunTask(ctx context.Context, taskID string) (*Task, error) {
	if err := c.coordinator.Execute(ctx, taskID); err != nil {
		return nil, mapError(err)
	}

	return c.GetTask(ctx, taskID)
}

// Generate submits a task and executes it inline. It blocks until the task
// reaches a terminal state, check the returned task's Status and Videos for
// the outcome.
//
// This is the one-call path for script to video:
//
//	task, err := client.Generate(ctx, "A short story about the ocean.", nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(task.Status, task.Videos)
func (c *Client) Generate(ctx context.Context, script string, opts *GenerateOpts) (*Task, error) {
	task, err := c.SubmitTask(ctx, script, opts)
	if err != nil {
		return nil, err
	}

	return c.RunTask(ctx, task.ID)
}

// GetTask retrieves a task by ID.
//
// Returns [ErrNotFound] if the task does not exist.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	svc, err := status.NewService(status.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, status.Request{TaskID: taskID})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// ListTasks lists task summaries newest first with optional filtering and
// pagination. Pass nil opts for the first page of all tasks.
func (c *Client) ListTasks(ctx context.Context, opts *ListTasksOpts) (*TaskPage, error) {
	svc, err := list.NewService(list.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := list.Request{Status: toInternalStatusFilter(opts)}
	if opts != nil {
		req.Page = opts.Page
		req.PageSize = opts.PageSize
	}

	page, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalPage(*page)
	return &result, nil
}

// CancelTask requests the cancellation of a task. Pending tasks are
// cancelled on the spot. Running tasks are flagged and settle to
// [TaskStatusCancelled] at their next stage boundary, poll with
// [Client.GetTask] to observe it.
//
// Returns [ErrNotFound] if the task does not exist, or [ErrAlreadyTerminal]
// if it already finished.
func (c *Client) CancelTask(ctx context.Context, taskID string) (*Task, error) {
	svc, err := cancel.NewService(cancel.ServiceConfig{
		Repository: c.repo,
		Queue:      noopQueue{},
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, cancel.Request{TaskID: taskID})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}

// RemoveTask removes a task record and its artifact directory. If the task
// is still live it is rejected unless force is true, in which case
// cancellation is requested first and the removal proceeds best effort.
//
// Returns [ErrNotFound] if the task does not exist, or [ErrNotValid] if the
// task is live and force is false.
func (c *Client) RemoveTask(ctx context.Context, taskID string, force bool) (*Task, error) {
	svc, err := remove.NewService(remove.ServiceConfig{
		Repository: c.repo,
		Queue:      noopQueue{},
		DataDir:    c.dataDir,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	task, err := svc.Run(ctx, remove.Request{TaskID: taskID, Force: force})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalTask(*task)
	return &result, nil
}
