package storage

import (
	"context"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

// Repository is the interface for task registry persistence.
//
// UpdateTask is the single mutation path for live tasks: implementations run
// the mutation as an atomic read-modify-write against one task record, so
// concurrent workers updating different tasks never contend on each other.
// The mutation receives a private copy; returning an error discards it.
type Repository interface {
	CreateTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter model.TaskFilter) (*model.TaskPage, error)
	UpdateTask(ctx context.Context, id string, mutate func(t *model.Task) error) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}
