package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/GiladLeef/ShortsTurbo/internal/app/cancel"
	"github.com/GiladLeef/ShortsTurbo/internal/app/list"
	"github.com/GiladLeef/ShortsTurbo/internal/app/remove"
	"github.com/GiladLeef/ShortsTurbo/internal/app/status"
	"github.com/GiladLeef/ShortsTurbo/internal/app/submit"
	"github.com/GiladLeef/ShortsTurbo/internal/cleanup"
	"github.com/GiladLeef/ShortsTurbo/internal/config"
	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
	"github.com/GiladLeef/ShortsTurbo/internal/scheduler"
	"github.com/GiladLeef/ShortsTurbo/internal/server"
	"github.com/GiladLeef/ShortsTurbo/internal/storage"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/memory"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/sqlite"
)

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	configFile         string
	listenAddr         string
	workers            int
	queueSize          int
	registry           string
	sqlitePath         string
	retention          time.Duration
	sweepSchedule      string
	pexelsAPIKey       string
	pixabayAPIKey      string
	fakeProviders      bool
	callTimeout        time.Duration
	speechTimeout      time.Duration
	taskDeadline       time.Duration
	retryAttempts      int
	retryBackoff       time.Duration
	retryMaxBackoff    time.Duration
	defaultVoice       string
	defaultMusicVolume float64
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Run the HTTP API server with the task worker pool.")
	c.Cmd.Flag("config", "YAML configuration file. Values set in the file take precedence over flags.").StringVar(&c.configFile)
	c.Cmd.Flag("listen", "HTTP listen address.").Default(":8080").StringVar(&c.listenAddr)
	c.Cmd.Flag("workers", "Number of concurrent task executions.").Default("5").IntVar(&c.workers)
	c.Cmd.Flag("queue-size", "Maximum number of tasks waiting for a worker.").Default("64").IntVar(&c.queueSize)
	c.Cmd.Flag("registry", "Task registry backend (memory, sqlite).").Default(config.RegistrySQLite).EnumVar(&c.registry, config.RegistryMemory, config.RegistrySQLite)
	c.Cmd.Flag("sqlite-path", "SQLite registry file. Defaults to the data directory.").StringVar(&c.sqlitePath)
	c.Cmd.Flag("retention", "How long finished tasks and their artifacts are kept.").Default("72h").DurationVar(&c.retention)
	c.Cmd.Flag("sweep-schedule", "Cron schedule for the retention sweeps.").Default("@hourly").StringVar(&c.sweepSchedule)
	c.Cmd.Flag("pexels-api-key", "Pexels API key, empty disables the source.").Envar("SHORTSTURBO_PEXELS_API_KEY").StringVar(&c.pexelsAPIKey)
	c.Cmd.Flag("pixabay-api-key", "Pixabay API key, empty disables the source.").Envar("SHORTSTURBO_PIXABAY_API_KEY").StringVar(&c.pixabayAPIKey)
	c.Cmd.Flag("fake-providers", "Replace speech, footage and rendering with filesystem fakes.").BoolVar(&c.fakeProviders)
	c.Cmd.Flag("call-timeout", "Timeout for a single footage provider call.").Default("30s").DurationVar(&c.callTimeout)
	c.Cmd.Flag("speech-timeout", "Timeout for a single speech synthesis call.").Default("5m").DurationVar(&c.speechTimeout)
	c.Cmd.Flag("task-deadline", "Deadline for a whole task run.").Default("15m").DurationVar(&c.taskDeadline)
	c.Cmd.Flag("retry-attempts", "Retries after a failed provider call.").Default("3").IntVar(&c.retryAttempts)
	c.Cmd.Flag("retry-backoff", "Initial backoff between provider retries.").Default("1s").DurationVar(&c.retryBackoff)
	c.Cmd.Flag("retry-max-backoff", "Backoff ceiling between provider retries.").Default("30s").DurationVar(&c.retryMaxBackoff)
	c.Cmd.Flag("default-voice", "Voice used when a request does not pick one.").StringVar(&c.defaultVoice)
	c.Cmd.Flag("default-music-volume", "Music gain used when a request does not pick one.").Float64Var(&c.defaultMusicVolume)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Resolve configuration: flags and env build the base, a config file
	// overlays it.
	cfg := config.Config{
		ListenAddr:          c.listenAddr,
		DataDir:             c.rootCmd.DataDir,
		Workers:             c.workers,
		QueueSize:           c.queueSize,
		Registry:            c.registry,
		SQLitePath:          c.sqlitePath,
		Retention:           c.retention,
		SweepSchedule:       c.sweepSchedule,
		PexelsAPIKey:        c.pexelsAPIKey,
		PixabayAPIKey:       c.pixabayAPIKey,
		ProviderCallTimeout: c.callTimeout,
		SpeechTimeout:       c.speechTimeout,
		TaskDeadline:        c.taskDeadline,
		RetryAttempts:       c.retryAttempts,
		RetryInitialBackoff: c.retryBackoff,
		RetryMaxBackoff:     c.retryMaxBackoff,
		DefaultVoice:        c.defaultVoice,
		DefaultMusicVolume:  c.defaultMusicVolume,
	}
	if c.configFile != "" {
		loader := config.NewYAMLLoader(os.DirFS(filepath.Dir(c.configFile)))
		fileCfg, err := loader.Load(ctx, filepath.Base(c.configFile))
		if err != nil {
			return fmt.Errorf("could not load config file: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}

	// Initialize storage.
	var repo storage.Repository
	switch cfg.Registry {
	case config.RegistryMemory:
		memRepo, err := memory.NewRepository(memory.RepositoryConfig{Logger: logger})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		repo = memRepo
	default:
		dbPath := cfg.SQLitePath
		if dbPath == "" {
			dbPath = conventions.DBPath(cfg.DataDir)
		}
		sqlRepo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: dbPath,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		defer sqlRepo.Close()
		repo = sqlRepo
	}

	// Build the generation pipeline.
	retry := provider.RetryPolicy{
		MaxRetries:  cfg.RetryAttempts,
		BaseBackoff: cfg.RetryInitialBackoff,
		MaxBackoff:  cfg.RetryMaxBackoff,
	}
	deps, err := newGeneration(repo, generationSettings{
		DataDir:       cfg.DataDir,
		FakeProviders: c.fakeProviders,
		PexelsAPIKey:  cfg.PexelsAPIKey,
		PixabayAPIKey: cfg.PixabayAPIKey,
		CallTimeout:   cfg.ProviderCallTimeout,
		SpeechTimeout: cfg.SpeechTimeout,
		TaskDeadline:  cfg.TaskDeadline,
		Retry:         retry,
	}, logger)
	if err != nil {
		return err
	}

	// Create the scheduler and repair state left over from a previous run.
	sched, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Executor:   deps.Coordinator,
		Repository: repo,
		Workers:    cfg.Workers,
		QueueSize:  cfg.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create scheduler: %w", err)
	}
	if err := sched.Recover(ctx); err != nil {
		return fmt.Errorf("could not recover interrupted tasks: %w", err)
	}

	// Create the app services.
	submitSvc, err := submit.NewService(submit.ServiceConfig{
		Repository:         repo,
		Queue:              sched,
		DefaultVoice:       cfg.DefaultVoice,
		DefaultMusicVolume: cfg.DefaultMusicVolume,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("could not create submit service: %w", err)
	}
	statusSvc, err := status.NewService(status.ServiceConfig{Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create status service: %w", err)
	}
	cancelSvc, err := cancel.NewService(cancel.ServiceConfig{Repository: repo, Queue: sched, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create cancel service: %w", err)
	}
	listSvc, err := list.NewService(list.ServiceConfig{Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create list service: %w", err)
	}
	removeSvc, err := remove.NewService(remove.ServiceConfig{
		Repository: repo,
		Queue:      sched,
		DataDir:    cfg.DataDir,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create remove service: %w", err)
	}

	// Create the retention sweeper.
	sweeper, err := cleanup.NewSweeper(cleanup.SweeperConfig{
		Repository: repo,
		DataDir:    cfg.DataDir,
		Retention:  cfg.Retention,
		Schedule:   cfg.SweepSchedule,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create retention sweeper: %w", err)
	}

	// Create the API server.
	srv, err := server.NewServer(server.ServerConfig{
		Addr:    cfg.ListenAddr,
		Submit:  submitSvc,
		Status:  statusSvc,
		Cancel:  cancelSvc,
		List:    listSvc,
		Remove:  removeSvc,
		Music:   deps.Music,
		Prober:  durationProber{comp: deps.Compositor},
		DataDir: cfg.DataDir,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	// Run everything, the first component to stop brings the rest down.
	var g run.Group

	// Task scheduler worker pool.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				return sched.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Retention sweeper.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				return sweeper.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// HTTP API server.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				return srv.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	logger.Infof("ShortsTurbo serving on %s (registry %s, data dir %s)", cfg.ListenAddr, cfg.Registry, cfg.DataDir)
	return g.Run()
}
