package commands

import (
	"context"
	"fmt"
	"os"
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
)

// generationSettings bundles the tunables needed to build the generation
// pipeline for a command.
type generationSettings struct {
	DataDir       string
	FakeProviders bool
	PexelsAPIKey  string
	PixabayAPIKey string
	CallTimeout   time.Duration
	SpeechTimeout time.Duration
	TaskDeadline  time.Duration
	Retry         provider.RetryPolicy
}

// generationDeps is everything a command needs to run generation tasks.
type generationDeps struct {
	Coordinator *pipeline.Coordinator
	Compositor  compose.Compositor
	Music       *music.Library
}

// newGeneration wires the providers, compositor and music library into a
// pipeline coordinator. With fake providers enabled every external call
// (speech, footage search, ffmpeg) is replaced by a filesystem stand-in.
func newGeneration(repo storage.Repository, settings generationSettings, logger log.Logger) (*generationDeps, error) {
	lib, err := music.NewLibrary(music.LibraryConfig{
		Dir:    conventions.SongsDirPath(settings.DataDir),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create music library: %w", err)
	}

	var comp compose.Compositor
	if settings.FakeProviders {
		comp, err = composefake.NewCompositor(composefake.CompositorConfig{Logger: logger})
	} else {
		comp, err = compose.NewFFmpeg(compose.FFmpegConfig{Logger: logger})
	}
	if err != nil {
		return nil, fmt.Errorf("could not create compositor: %w", err)
	}

	var speech provider.SpeechSynthesizer
	if settings.FakeProviders {
		speech, err = providerfake.NewSpeech(providerfake.SpeechConfig{Logger: logger})
	} else {
		speech, err = tts.NewSynthesizer(tts.SynthesizerConfig{
			CallTimeout: settings.SpeechTimeout,
			Retry:       settings.Retry,
			Logger:      logger,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("could not create speech synthesizer: %w", err)
	}

	extractor, err := keywords.NewExtractor(keywords.ExtractorConfig{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create keyword extractor: %w", err)
	}

	fetchers, err := newFetchers(settings, comp, logger)
	if err != nil {
		return nil, err
	}

	downloader, err := footage.NewDownloader(footage.DownloaderConfig{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create downloader: %w", err)
	}

	coordinator, err := pipeline.NewCoordinator(pipeline.CoordinatorConfig{
		Repository:    repo,
		Speech:        speech,
		Keywords:      extractor,
		Footage:       fetchers,
		Compositor:    comp,
		Music:         lib,
		Downloader:    downloader,
		DataDir:       settings.DataDir,
		TaskTimeout:   settings.TaskDeadline,
		DownloadRetry: settings.Retry,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create pipeline coordinator: %w", err)
	}

	return &generationDeps{
		Coordinator: coordinator,
		Compositor:  comp,
		Music:       lib,
	}, nil
}

// newFetchers builds the footage sources. Stock backends are registered only
// when their API key is configured, the local material directory is always
// available.
func newFetchers(settings generationSettings, comp compose.Compositor, logger log.Logger) ([]provider.FootageFetcher, error) {
	if settings.FakeProviders {
		// One fake per source name so any requested source resolves.
		sources := []model.FootageSource{model.FootageSourcePexels, model.FootageSourcePixabay, model.FootageSourceLocal}
		fetchers := make([]provider.FootageFetcher, 0, len(sources))
		for _, src := range sources {
			f, err := providerfake.NewFootage(providerfake.FootageConfig{
				Name:   string(src),
				Dir:    conventions.MaterialsDirPath(settings.DataDir),
				Logger: logger,
			})
			if err != nil {
				return nil, fmt.Errorf("could not create fake footage fetcher: %w", err)
			}
			fetchers = append(fetchers, f)
		}
		return fetchers, nil
	}

	fetchers := []provider.FootageFetcher{}

	if settings.PexelsAPIKey != "" {
		pexels, err := footage.NewPexels(footage.PexelsConfig{
			APIKey:      settings.PexelsAPIKey,
			CallTimeout: settings.CallTimeout,
			Retry:       settings.Retry,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create pexels fetcher: %w", err)
		}
		fetchers = append(fetchers, pexels)
	}

	if settings.PixabayAPIKey != "" {
		pixabay, err := footage.NewPixabay(footage.PixabayConfig{
			APIKey:      settings.PixabayAPIKey,
			CallTimeout: settings.CallTimeout,
			Retry:       settings.Retry,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create pixabay fetcher: %w", err)
		}
		fetchers = append(fetchers, pixabay)
	}

	materialsDir := conventions.MaterialsDirPath(settings.DataDir)
	if err := os.MkdirAll(materialsDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create materials directory: %w", err)
	}
	local, err := footage.NewLocal(footage.LocalConfig{
		Dir:    materialsDir,
		Prober: comp,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create local fetcher: %w", err)
	}
	fetchers = append(fetchers, local)

	return fetchers, nil
}

// durationProber exposes the compositor probe as plain durations for the API
// music listing.
type durationProber struct {
	comp compose.Compositor
}

func (p durationProber) Probe(ctx context.Context, path string) (time.Duration, error) {
	info, err := p.comp.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}
