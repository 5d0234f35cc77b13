package list

import (
	"context"
	"fmt"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/storage"
)

// Listing page bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ServiceConfig is the configuration for the list service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists tasks with optional filtering.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct {
	// Status is an optional filter to only show tasks with this status.
	Status model.TaskStatus
	// Page is the 1-based page number, values below 1 mean the first page.
	Page int
	// PageSize caps the returned tasks, clamped to [1, MaxPageSize].
	PageSize int
}

// Run lists tasks newest first, optionally filtered by status.
func (s *Service) Run(ctx context.Context, req Request) (*model.TaskPage, error) {
	s.logger.Debugf("listing tasks with status filter: %q", req.Status)

	if req.Status != "" {
		switch req.Status {
		case model.TaskStatusPending, model.TaskStatusRunning, model.TaskStatusSucceeded,
			model.TaskStatusPartiallyFailed, model.TaskStatusFailed, model.TaskStatusCancelled:
		default:
			return nil, fmt.Errorf("unknown task status %q: %w", req.Status, model.ErrNotValid)
		}
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	res, err := s.repo.ListTasks(ctx, model.TaskFilter{Status: req.Status, Page: page, PageSize: size})
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}

	s.logger.Debugf("found %d tasks (page %d of size %d)", res.Total, res.Page, res.PageSize)
	return res, nil
}
