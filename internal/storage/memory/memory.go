package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// taskEntry holds one task record under its own lock, so mutating one task
// never blocks workers mutating another.
type taskEntry struct {
	mu   sync.Mutex
	task model.Task
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	tasks  map[string]*taskEntry
	mu     sync.RWMutex // Guards the map structure only, not task records.
	logger log.Logger
}

// NewRepository creates a new memory repository. The registry starts empty.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		tasks:  make(map[string]*taskEntry),
		logger: cfg.Logger,
	}, nil
}

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task with id %s: %w", t.ID, model.ErrAlreadyExists)
	}

	r.tasks[t.ID] = &taskEntry{task: t.Clone()}
	r.logger.Debugf("Created task in repository: %s", t.ID)

	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	entry, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	task := entry.task.Clone()
	return &task, nil
}

// ListTasks returns one page of task summaries, newest first.
func (r *Repository) ListTasks(ctx context.Context, filter model.TaskFilter) (*model.TaskPage, error) {
	r.mu.RLock()
	entries := make([]*taskEntry, 0, len(r.tasks))
	for _, e := range r.tasks {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	summaries := make([]model.TaskSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		s := e.task.Summary()
		e.mu.Unlock()

		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = len(summaries)
	}

	total := len(summaries)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return &model.TaskPage{
		Tasks:    summaries[start:end],
		Total:    total,
		Page:     page,
		PageSize: size,
	}, nil
}

// UpdateTask applies a mutation to one task record atomically and returns the
// updated task.
func (r *Repository) UpdateTask(ctx context.Context, id string, mutate func(t *model.Task) error) (*model.Task, error) {
	entry, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	updated := entry.task.Clone()
	if err := mutate(&updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = time.Now().UTC()

	entry.task = updated
	r.logger.Debugf("Updated task in repository: %s", id)

	result := updated.Clone()
	return &result, nil
}

// DeleteTask deletes a task.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	delete(r.tasks, id)
	r.logger.Debugf("Deleted task from repository: %s", id)

	return nil
}

func (r *Repository) entry(id string) (*taskEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	return entry, nil
}
