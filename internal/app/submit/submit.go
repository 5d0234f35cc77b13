package submit

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/scheduler"
	"github.com/GiladLeef/ShortsTurbo/internal/storage"
)

// ServiceConfig is the configuration for the submit service.
type ServiceConfig struct {
	Repository storage.Repository
	Queue      scheduler.Queue
	// DefaultVoice overrides the built-in default voice for requests that
	// leave it unset.
	DefaultVoice string
	// DefaultMusicVolume overrides the built-in default music gain for
	// requests that leave it unset.
	DefaultMusicVolume float64
	Logger             log.Logger
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Submit"})
	return nil
}

// Service handles task submission business logic.
type Service struct {
	repo               storage.Repository
	queue              scheduler.Queue
	defaultVoice       string
	defaultMusicVolume float64
	logger             log.Logger
}

// NewService creates a new submit service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:               cfg.Repository,
		queue:              cfg.Queue,
		defaultVoice:       cfg.DefaultVoice,
		defaultMusicVolume: cfg.DefaultMusicVolume,
		logger:             cfg.Logger,
	}, nil
}

// Request represents the submission request.
type Request struct {
	// Script is the narration text driving the generation.
	Script string
	// Config tunes the generation, unset fields take defaults.
	Config model.GenerationConfig
}

// Submit registers a new generation task and queues it for execution.
func (s *Service) Submit(ctx context.Context, req Request) (*model.Task, error) {
	// 1. Validate the script.
	script := strings.TrimSpace(req.Script)
	if script == "" {
		return nil, fmt.Errorf("script is required: %w", model.ErrNotValid)
	}

	// 2. Snapshot the generation config, instance defaults first, then the
	// built-in ones.
	cfg := req.Config
	if cfg.Voice == "" {
		cfg.Voice = s.defaultVoice
	}
	if cfg.Music.Volume == 0 {
		cfg.Music.Volume = s.defaultMusicVolume
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation config: %w", err)
	}

	// 3. Register the task as pending.
	now := time.Now().UTC()
	task := model.Task{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Script:    script,
		Config:    cfg,
		Status:    model.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("could not save task: %w", err)
	}

	// 4. Hand it to the worker pool.
	if err := s.queue.Enqueue(task.ID); err != nil {
		// The task never reached the queue, drop the record.
		if delErr := s.repo.DeleteTask(ctx, task.ID); delErr != nil {
			s.logger.Warningf("Could not delete unqueued task %s: %s", task.ID, delErr)
		}
		return nil, fmt.Errorf("could not queue task: %w", err)
	}

	s.logger.Infof("Submitted task %s (%d outputs requested)", task.ID, cfg.VideoCount)

	return &task, nil
}
