// Package cleanup prunes expired tasks and their artifacts on a schedule.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/storage"
)

// SweeperConfig is the configuration for the retention sweeper.
type SweeperConfig struct {
	Repository storage.Repository
	// DataDir is the root data directory holding task artifacts.
	DataDir string
	// Retention is how long finished tasks are kept. Defaults to 72h.
	Retention time.Duration
	// Schedule is the cron spec driving the sweeps. Defaults to hourly.
	Schedule string
	Logger   log.Logger
}

func (c *SweeperConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.Retention <= 0 {
		c.Retention = 72 * time.Hour
	}
	if c.Schedule == "" {
		c.Schedule = "@hourly"
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "cleanup.Sweeper"})
	return nil
}

// Sweeper removes finished tasks older than the retention age, dropping both
// the registry record and the artifact directory. Artifact directories
// without a task record are removed as well.
type Sweeper struct {
	repo      storage.Repository
	dataDir   string
	retention time.Duration
	cron      *cron.Cron
	logger    log.Logger
}

// NewSweeper creates a new retention sweeper.
func NewSweeper(cfg SweeperConfig) (*Sweeper, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Sweeper{
		repo:      cfg.Repository,
		dataDir:   cfg.DataDir,
		retention: cfg.Retention,
		cron:      cron.New(),
		logger:    cfg.Logger,
	}

	_, err := s.cron.AddFunc(cfg.Schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.Errorf("Sweep failed: %s", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.Schedule, err)
	}

	return s, nil
}

// Run sweeps once, then keeps sweeping on the schedule until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Errorf("Sweep failed: %s", err)
	}

	s.logger.Infof("Retention sweeper started (retention %s)", s.retention)
	s.cron.Start()

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Infof("Retention sweeper stopped")

	return nil
}

// Sweep runs one pruning pass and returns how many tasks were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	s.logger.Debugf("sweeping expired tasks")

	known, err := s.listAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not list tasks: %w", err)
	}

	cutoff := time.Now().UTC().Add(-s.retention)

	removed := 0
	for _, t := range known {
		if !t.Status.IsTerminal() || t.UpdatedAt.After(cutoff) {
			continue
		}

		if err := s.repo.DeleteTask(ctx, t.ID); err != nil {
			s.logger.Warningf("Could not delete expired task %s: %s", t.ID, err)
			continue
		}
		if err := os.RemoveAll(conventions.TaskDir(s.dataDir, t.ID)); err != nil {
			s.logger.Warningf("Could not remove artifacts of task %s: %s", t.ID, err)
			continue
		}
		removed++
	}

	orphans := s.removeOrphans(known)

	if removed > 0 || orphans > 0 {
		s.logger.Infof("Swept %d expired tasks and %d orphan directories", removed, orphans)
	}

	return removed + orphans, nil
}

// removeOrphans drops artifact directories that have no task record, the
// debris of interrupted removals.
func (s *Sweeper) removeOrphans(known map[string]model.TaskSummary) int {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, conventions.TasksDir))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warningf("Could not read tasks directory: %s", err)
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, ok := known[e.Name()]; ok {
			continue
		}

		if err := os.RemoveAll(filepath.Join(s.dataDir, conventions.TasksDir, e.Name())); err != nil {
			s.logger.Warningf("Could not remove orphan directory %s: %s", e.Name(), err)
			continue
		}
		removed++
	}

	return removed
}

func (s *Sweeper) listAll(ctx context.Context) (map[string]model.TaskSummary, error) {
	const pageSize = 100

	all := map[string]model.TaskSummary{}
	for page := 1; ; page++ {
		res, err := s.repo.ListTasks(ctx, model.TaskFilter{Page: page, PageSize: pageSize})
		if err != nil {
			return nil, err
		}
		for _, t := range res.Tasks {
			all[t.ID] = t
		}
		if len(all) >= res.Total || len(res.Tasks) == 0 {
			break
		}
	}

	return all, nil
}
