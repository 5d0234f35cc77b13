package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/GiladLeef/ShortsTurbo/internal/compose"
	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/music"
	"github.com/GiladLeef/ShortsTurbo/internal/provider/tts"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	pexelsAPIKey  string
	pixabayAPIKey string
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks for video generation.")
	c.Cmd.Flag("pexels-api-key", "Pexels API key to check.").Envar("SHORTSTURBO_PEXELS_API_KEY").StringVar(&c.pexelsAPIKey)
	c.Cmd.Flag("pixabay-api-key", "Pixabay API key to check.").Envar("SHORTSTURBO_PIXABAY_API_KEY").StringVar(&c.pixabayAPIKey)

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	out := c.rootCmd.Stdout

	var allResults []componentCheckResults

	// Check speech synthesis toolchain.
	synth, err := tts.NewSynthesizer(tts.SynthesizerConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create speech synthesizer: %w", err)
	}
	allResults = append(allResults, componentCheckResults{
		name:    "speech synthesis",
		results: synth.Check(ctx),
	})

	// Check rendering toolchain.
	ff, err := compose.NewFFmpeg(compose.FFmpegConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create compositor: %w", err)
	}
	allResults = append(allResults, componentCheckResults{
		name:    "rendering",
		results: ff.Check(ctx),
	})

	// Check footage sources.
	allResults = append(allResults, componentCheckResults{
		name:    "footage sources",
		results: c.checkFootage(),
	})

	// Check the data directory and music library.
	allResults = append(allResults, componentCheckResults{
		name:    "data directory",
		results: c.checkStorage(),
	})

	// Print results.
	var combined []model.CheckResult
	for _, cr := range allResults {
		fmt.Fprintf(out, "\nChecking %s...\n", cr.name)
		for _, r := range cr.results {
			fmt.Fprintf(out, "  %s %-20s %s\n", getStatusIcon(r.Status), r.ID, r.Message)
		}
		combined = append(combined, cr.results...)
	}

	// Summary.
	summary := model.SummarizeChecks(combined)
	fmt.Fprintln(out)
	if summary.Errors == 0 && summary.Warnings == 0 {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		fmt.Fprintf(out, "%d error(s), %d warning(s)\n", summary.Errors, summary.Warnings)
	}

	if summary.Errors > 0 {
		return fmt.Errorf("preflight checks failed with %d error(s)", summary.Errors)
	}

	return nil
}

func (c DoctorCommand) checkFootage() []model.CheckResult {
	if c.pexelsAPIKey == "" && c.pixabayAPIKey == "" {
		return []model.CheckResult{{
			ID:      "stock_api_keys",
			Message: "no stock footage API key configured, only the local source is available",
			Status:  model.CheckStatusWarning,
		}}
	}

	configured := []string{}
	if c.pexelsAPIKey != "" {
		configured = append(configured, "pexels")
	}
	if c.pixabayAPIKey != "" {
		configured = append(configured, "pixabay")
	}

	results := make([]model.CheckResult, 0, len(configured))
	for _, name := range configured {
		results = append(results, model.CheckResult{
			ID:      "stock_api_keys",
			Message: fmt.Sprintf("%s API key configured", name),
			Status:  model.CheckStatusOK,
		})
	}
	return results
}

func (c DoctorCommand) checkStorage() []model.CheckResult {
	results := []model.CheckResult{}

	// Writable data directory.
	dataDir := c.rootCmd.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		results = append(results, model.CheckResult{
			ID:      "data_dir_writable",
			Message: fmt.Sprintf("cannot create %s: %v", dataDir, err),
			Status:  model.CheckStatusError,
		})
		return results
	}
	probe := filepath.Join(dataDir, ".doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		results = append(results, model.CheckResult{
			ID:      "data_dir_writable",
			Message: fmt.Sprintf("cannot write to %s: %v", dataDir, err),
			Status:  model.CheckStatusError,
		})
		return results
	}
	_ = os.Remove(probe)
	results = append(results, model.CheckResult{
		ID:      "data_dir_writable",
		Message: fmt.Sprintf("data directory %s is writable", dataDir),
		Status:  model.CheckStatusOK,
	})

	// Music library content.
	lib, err := music.NewLibrary(music.LibraryConfig{
		Dir:    conventions.SongsDirPath(dataDir),
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		results = append(results, model.CheckResult{
			ID:      "music_library",
			Message: fmt.Sprintf("cannot open the music library: %v", err),
			Status:  model.CheckStatusError,
		})
		return results
	}
	songs, err := lib.List()
	switch {
	case err != nil:
		results = append(results, model.CheckResult{
			ID:      "music_library",
			Message: fmt.Sprintf("cannot read the music library: %v", err),
			Status:  model.CheckStatusError,
		})
	case len(songs) == 0:
		results = append(results, model.CheckResult{
			ID:      "music_library",
			Message: "music library is empty, tasks degrade to a silent background",
			Status:  model.CheckStatusWarning,
		})
	default:
		results = append(results, model.CheckResult{
			ID:      "music_library",
			Message: fmt.Sprintf("%d song(s) in the music library", len(songs)),
			Status:  model.CheckStatusOK,
		})
	}

	return results
}

type componentCheckResults struct {
	name    string
	results []model.CheckResult
}

func getStatusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}
