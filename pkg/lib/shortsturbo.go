package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/compose"
	composefake "github.com/GiladLeef/ShortsTurbo/internal/compose/fake"
	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/music"
	"github.com/GiladLeef/ShortsTurbo/internal/pipeline"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
	providerfake "github.com/GiladLeef/ShortsTurbo/internal/provider/fake"
	"github.com/GiladLeef/ShortsTurbo/internal/provider/footage"
	"github.com/GiladLeef/ShortsTurbo/internal/provider/keywords"
	"github.com/GiladLeef/ShortsTurbo/internal/provider/tts"
	"github.com/GiladLeef/ShortsTurbo/internal/storage"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/sqlite"
)

const (
	defaultCallTimeout   = 30 * time.Second
	defaultSpeechTimeout = 5 * time.Minute
	defaultTaskDeadline  = 15 * time.Minute
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.shortsturbo for storage and the real providers
// (edge-tts, ffmpeg and the stock footage APIs with configured keys).
type Config struct {
	// DBPath is the SQLite task registry path.
	// Default: ~/.shortsturbo/shortsturbo.db.
	DBPath string

	// DataDir is the base directory for ShortsTurbo data (task artifacts,
	// the music library and local footage materials).
	// Default: ~/.shortsturbo.
	DataDir string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// FakeProviders replaces every external call (speech synthesis, stock
	// footage search, ffmpeg rendering) with a filesystem stand-in.
	//
	// Set this for testing without network access or installed binaries.
	FakeProviders bool

	// PexelsAPIKey enables the Pexels stock footage source.
	PexelsAPIKey string

	// PixabayAPIKey enables the Pixabay stock footage source.
	PixabayAPIKey string

	// CallTimeout caps a single stock footage API call.
	// Default: 30s.
	CallTimeout time.Duration

	// SpeechTimeout caps a single speech synthesis call.
	// Default: 5m.
	SpeechTimeout time.Duration

	// TaskDeadline caps a whole task execution.
	// Default: 15m.
	TaskDeadline time.Duration

	// DefaultVoice overrides the built-in narration voice for tasks that
	// don't set one.
	DefaultVoice string

	// DefaultMusicVolume overrides the built-in background music gain for
	// tasks that don't set one.
	DefaultMusicVolume float64
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, conventions.DefaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(c.DataDir)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.CallTimeout == 0 {
		c.CallTimeout = defaultCallTimeout
	}

	if c.SpeechTimeout == 0 {
		c.SpeechTimeout = defaultSpeechTimeout
	}

	if c.TaskDeadline == 0 {
		c.TaskDeadline = defaultTaskDeadline
	}

	return nil
}

// Client is the main SDK entry point for generating short videos
// programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	repo               storage.Repository
	coordinator        *pipeline.Coordinator
	music              *music.Library
	logger             log.Logger
	dataDir            string
	fakeProviders      bool
	pexelsAPIKey       string
	pixabayAPIKey      string
	defaultVoice       string
	defaultMusicVolume float64
	closeFn            func() error
}

// New creates a new SDK client backed by a SQLite task registry.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	coordinator, lib, err := newPipeline(cfg, repo)
	if err != nil {
		repo.Close()
		return nil, err
	}

	return &Client{
		repo:               repo,
		coordinator:        coordinator,
		music:              lib,
		logger:             cfg.Logger,
		dataDir:            cfg.DataDir,
		fakeProviders:      cfg.FakeProviders,
		pexelsAPIKey:       cfg.PexelsAPIKey,
		pixabayAPIKey:      cfg.PixabayAPIKey,
		defaultVoice:       cfg.DefaultVoice,
		defaultMusicVolume: cfg.DefaultMusicVolume,
		closeFn:            repo.Close,
	}, nil
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// Doctor runs preflight health checks for the generation toolchain.
//
// This checks the edge-tts and ffmpeg binaries the real providers shell out
// to and the configured stock footage API keys. With [Config].FakeProviders
// set it returns an empty slice (nothing to check).
//
// Returns a slice of [CheckResult] describing each check's outcome.
func (c *Client) Doctor(ctx context.Context) ([]CheckResult, error) {
	if c.fakeProviders {
		return []CheckResult{}, nil
	}

	synth, err := tts.NewSynthesizer(tts.SynthesizerConfig{Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create speech synthesizer: %w", err)
	}

	ff, err := compose.NewFFmpeg(compose.FFmpegConfig{Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create compositor: %w", err)
	}

	results := append(synth.Check(ctx), ff.Check(ctx)...)

	if c.pexelsAPIKey == "" && c.pixabayAPIKey == "" {
		results = append(results, model.CheckResult{
			ID:      "stock_api_keys",
			Message: "no stock footage API key configured, only the local source is available",
			Status:  model.CheckStatusWarning,
		})
	} else {
		results = append(results, model.CheckResult{
			ID:      "stock_api_keys",
			Message: "stock footage API key configured",
			Status:  model.CheckStatusOK,
		})
	}

	return fromInternalCheckResults(results), nil
}

// newPipeline wires the providers, compositor and music library into the
// pipeline coordinator the client executes tasks with.
func newPipeline(cfg Config, repo storage.Repository) (*pipeline.Coordinator, *music.Library, error) {
	lib, err := music.NewLibrary(music.LibraryConfig{
		Dir:    conventions.SongsDirPath(cfg.DataDir),
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create music library: %w", err)
	}

	var comp compose.Compositor
	if cfg.FakeProviders {
		comp, err = composefake.NewCompositor(composefake.CompositorConfig{Logger: cfg.Logger})
	} else {
		comp, err = compose.NewFFmpeg(compose.FFmpegConfig{Logger: cfg.Logger})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not create compositor: %w", err)
	}

	retry := provider.DefaultRetryPolicy()

	var speech provider.SpeechSynthesizer
	if cfg.FakeProviders {
		speech, err = providerfake.NewSpeech(providerfake.SpeechConfig{Logger: cfg.Logger})
	} else {
		speech, err = tts.NewSynthesizer(tts.SynthesizerConfig{
			CallTimeout: cfg.SpeechTimeout,
			Retry:       retry,
			Logger:      cfg.Logger,
		})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not create speech synthesizer: %w", err)
	}

	extractor, err := keywords.NewExtractor(keywords.ExtractorConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create keyword extractor: %w", err)
	}

	fetchers, err := newFetchers(cfg, comp, retry)
	if err != nil {
		return nil, nil, err
	}

	downloader, err := footage.NewDownloader(footage.DownloaderConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create downloader: %w", err)
	}

	coordinator, err := pipeline.NewCoordinator(pipeline.CoordinatorConfig{
		Repository:    repo,
		Speech:        speech,
		Keywords:      extractor,
		Footage:       fetchers,
		Compositor:    comp,
		Music:         lib,
		Downloader:    downloader,
		DataDir:       cfg.DataDir,
		TaskTimeout:   cfg.TaskDeadline,
		DownloadRetry: retry,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create pipeline coordinator: %w", err)
	}

	return coordinator, lib, nil
}

// newFetchers builds the footage sources. Stock backends are registered only
// when their API key is configured, the local material directory is always
// available.
func newFetchers(cfg Config, comp compose.Compositor, retry provider.RetryPolicy) ([]provider.FootageFetcher, error) {
	materialsDir := conventions.MaterialsDirPath(cfg.DataDir)

	if cfg.FakeProviders {
		// One fake per source name so any requested source resolves.
		sources := []model.FootageSource{model.FootageSourcePexels, model.FootageSourcePixabay, model.FootageSourceLocal}
		fetchers := make([]provider.FootageFetcher, 0, len(sources))
		for _, src := range sources {
			f, err := providerfake.NewFootage(providerfake.FootageConfig{
				Name:   string(src),
				Dir:    materialsDir,
				Logger: cfg.Logger,
			})
			if err != nil {
				return nil, fmt.Errorf("could not create fake footage fetcher: %w", err)
			}
			fetchers = append(fetchers, f)
		}
		return fetchers, nil
	}

	fetchers := []provider.FootageFetcher{}

	if cfg.PexelsAPIKey != "" {
		pexels, err := footage.NewPexels(footage.PexelsConfig{
			APIKey:      cfg.PexelsAPIKey,
			CallTimeout: cfg.CallTimeout,
			Retry:       retry,
			Logger:      cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create pexels fetcher: %w", err)
		}
		fetchers = append(fetchers, pexels)
	}

	if cfg.PixabayAPIKey != "" {
		pixabay, err := footage.NewPixabay(footage.PixabayConfig{
			APIKey:      cfg.PixabayAPIKey,
			CallTimeout: cfg.CallTimeout,
			Retry:       retry,
			Logger:      cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create pixabay fetcher: %w", err)
		}
		fetchers = append(fetchers, pixabay)
	}

	if err := os.MkdirAll(materialsDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create materials directory: %w", err)
	}
	local, err := footage.NewLocal(footage.LocalConfig{
		Dir:    materialsDir,
		Prober: comp,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create local fetcher: %w", err)
	}
	fetchers = append(fetchers, local)

	return fetchers, nil
}

// noopQueue satisfies the app services' queue dependency. The SDK runs no
// scheduler: pending tasks are executed inline with [Client.RunTask], and a
// serving process sharing the registry observes cancellation of running
// tasks at its next stage boundary.
type noopQueue struct{}

func (noopQueue) Enqueue(taskID string) error { return nil }

func (noopQueue) Cancel(taskID string) bool { return false }
