package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/GiladLeef/ShortsTurbo/internal/app/submit"
	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/printer"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
	"github.com/GiladLeef/ShortsTurbo/internal/provider/keywords"
	"github.com/GiladLeef/ShortsTurbo/internal/storage/sqlite"
)

type GenerateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	scriptFile    string
	terms         []string
	sources       []string
	aspect        string
	voice         string
	videoCount    int
	clipDuration  time.Duration
	noSubtitles   bool
	noMusic       bool
	musicFile     string
	stopAfter     string
	taskDeadline  time.Duration
	fakeProviders bool
	pexelsAPIKey  string
	pixabayAPIKey string
	format        string
}

// NewGenerateCommand returns the generate command.
func NewGenerateCommand(rootCmd *RootCommand, app *kingpin.Application) *GenerateCommand {
	c := &GenerateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("generate", "Generate a video from a script file without a server.")
	c.Cmd.Arg("script-file", "Text file with the narration script.").Required().StringVar(&c.scriptFile)
	c.Cmd.Flag("terms", "Footage search term, repeatable. Defaults to terms derived from the file name or script.").StringsVar(&c.terms)
	c.Cmd.Flag("source", "Footage source (pexels, pixabay, local), repeatable.").EnumsVar(&c.sources, string(model.FootageSourcePexels), string(model.FootageSourcePixabay), string(model.FootageSourceLocal))
	c.Cmd.Flag("aspect", "Output aspect ratio.").Default(string(model.AspectPortrait)).EnumVar(&c.aspect, string(model.AspectPortrait), string(model.AspectLandscape), string(model.AspectSquare))
	c.Cmd.Flag("voice", "Narration voice.").StringVar(&c.voice)
	c.Cmd.Flag("video-count", "Number of output videos.").Default("1").IntVar(&c.videoCount)
	c.Cmd.Flag("clip-duration", "Maximum footage taken from a single clip.").Default("5s").DurationVar(&c.clipDuration)
	c.Cmd.Flag("no-subtitles", "Render without burned-in subtitles.").BoolVar(&c.noSubtitles)
	c.Cmd.Flag("no-music", "Render without background music.").BoolVar(&c.noMusic)
	c.Cmd.Flag("music-file", "Song from the music library instead of a random pick.").StringVar(&c.musicFile)
	c.Cmd.Flag("stop-after", "Stop the pipeline after a stage (speech, subtitle, material, render).").StringVar(&c.stopAfter)
	c.Cmd.Flag("task-deadline", "Deadline for the whole run.").Default("15m").DurationVar(&c.taskDeadline)
	c.Cmd.Flag("fake-providers", "Replace speech, footage and rendering with filesystem fakes.").BoolVar(&c.fakeProviders)
	c.Cmd.Flag("pexels-api-key", "Pexels API key, empty disables the source.").Envar("SHORTSTURBO_PEXELS_API_KEY").StringVar(&c.pexelsAPIKey)
	c.Cmd.Flag("pixabay-api-key", "Pixabay API key, empty disables the source.").Envar("SHORTSTURBO_PIXABAY_API_KEY").StringVar(&c.pixabayAPIKey)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c GenerateCommand) Name() string { return c.Cmd.FullCommand() }

func (c GenerateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	script, err := os.ReadFile(c.scriptFile)
	if err != nil {
		return fmt.Errorf("could not read script file: %w", err)
	}

	// Initialize storage (SQLite) so the run shows up in list and status.
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: conventions.DBPath(c.rootCmd.DataDir),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// Build the generation pipeline.
	deps, err := newGeneration(repo, generationSettings{
		DataDir:       c.rootCmd.DataDir,
		FakeProviders: c.fakeProviders,
		PexelsAPIKey:  c.pexelsAPIKey,
		PixabayAPIKey: c.pixabayAPIKey,
		TaskDeadline:  c.taskDeadline,
		Retry:         provider.DefaultRetryPolicy(),
	}, logger)
	if err != nil {
		return err
	}

	// Create submit service. The task is executed inline, no queue involved.
	submitSvc, err := submit.NewService(submit.ServiceConfig{
		Repository: repo,
		Queue:      localQueue{},
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	terms := c.terms
	if len(terms) == 0 {
		terms = keywords.FromFilename(c.scriptFile)
	}

	cfg := model.GenerationConfig{
		Aspect:       model.AspectRatio(c.aspect),
		Voice:        c.voice,
		Sources:      toSources(c.sources),
		SearchTerms:  terms,
		ClipDuration: c.clipDuration,
		VideoCount:   c.videoCount,
		StopAfter:    model.Stage(c.stopAfter),
	}
	cfg.Subtitle.Enabled = !c.noSubtitles
	switch {
	case c.noMusic:
		cfg.Music.Mode = model.MusicModeNone
	case c.musicFile != "":
		cfg.Music.Mode = model.MusicModeFile
		cfg.Music.File = c.musicFile
	}

	// Register and execute the task.
	task, err := submitSvc.Submit(ctx, submit.Request{
		Script: string(script),
		Config: cfg,
	})
	if err != nil {
		return fmt.Errorf("could not submit task: %w", err)
	}

	logger.Infof("Generating task %s", task.ID)

	if err := deps.Coordinator.Execute(ctx, task.ID); err != nil {
		return fmt.Errorf("could not execute task: %w", err)
	}

	final, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("could not get task result: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}
	if err := p.PrintStatus(*final); err != nil {
		return fmt.Errorf("could not print status: %w", err)
	}

	switch final.Status {
	case model.TaskStatusFailed:
		return fmt.Errorf("generation failed")
	case model.TaskStatusCancelled:
		return fmt.Errorf("generation cancelled")
	}

	return nil
}

func toSources(names []string) []model.FootageSource {
	sources := make([]model.FootageSource, 0, len(names))
	for _, n := range names {
		sources = append(sources, model.FootageSource(n))
	}
	return sources
}
