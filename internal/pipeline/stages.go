package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/compose"
	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
	"github.com/GiladLeef/ShortsTurbo/internal/provider/keywords"
	"github.com/GiladLeef/ShortsTurbo/internal/subtitle"
)

// searchTermLimit is how many search terms are derived from the script when
// the task does not set them explicitly.
const searchTermLimit = 3

// runSpeech synthesizes the narration audio for the task script.
func (c *Coordinator) runSpeech(ctx context.Context, logger log.Logger, task model.Task) (*model.StageArtifact, error) {
	// 1. Prepare the task directory with the script snapshot.
	dir := conventions.TaskDir(c.dataDir, task.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, newStageError(model.StageSpeech, model.FailureReasonInternal, fmt.Errorf("creating task directory: %w", err))
	}
	scriptPath := conventions.TaskFilePath(c.dataDir, task.ID, conventions.ScriptFile)
	if err := os.WriteFile(scriptPath, []byte(task.Script), 0o644); err != nil {
		return nil, newStageError(model.StageSpeech, model.FailureReasonInternal, fmt.Errorf("writing script snapshot: %w", err))
	}

	// 2. Synthesize, retrying transient provider failures.
	desc := c.speech.Descriptor()
	req := provider.SpeechRequest{
		Script:     task.Script,
		Voice:      task.Config.Voice,
		Rate:       task.Config.VoiceRate,
		OutputPath: conventions.TaskFilePath(c.dataDir, task.ID, conventions.AudioFile),
	}

	var result *provider.SpeechResult
	err := provider.Retry(ctx, desc.Retry, logger, func(ctx context.Context) error {
		res, err := c.speech.Synthesize(ctx, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, newStageError(model.StageSpeech, model.FailureReasonSpeechSynthesisFailed, err)
	}

	// 3. Some providers do not report the audio duration, probe it then.
	duration := result.Duration
	if duration <= 0 {
		info, err := c.comp.Probe(ctx, result.AudioPath)
		if err != nil {
			return nil, newStageError(model.StageSpeech, model.FailureReasonSpeechSynthesisFailed, fmt.Errorf("probing narration duration: %w", err))
		}
		duration = info.Duration
	}
	if duration <= 0 {
		return nil, newStageError(model.StageSpeech, model.FailureReasonSpeechSynthesisFailed, errors.New("narration audio has no duration"))
	}

	logger.Infof("Synthesized %.1fs of narration with %s", duration.Seconds(), desc.Name)

	return &model.StageArtifact{
		Stage:     model.StageSpeech,
		Paths:     []string{result.AudioPath},
		Duration:  duration,
		Marks:     result.Marks,
		Provider:  desc.Name,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// runSubtitle derives the subtitle timing marks and writes the SRT file.
// Provider supplied marks win, otherwise the narration duration is allocated
// over the script sentences by character weight.
func (c *Coordinator) runSubtitle(task model.Task, speechArt *model.StageArtifact) (*model.StageArtifact, error) {
	marks := speechArt.Marks
	producer := speechArt.Provider
	if len(marks) == 0 {
		segments := subtitle.Segment(task.Script)
		allocated, err := subtitle.Allocate(segments, speechArt.Duration)
		if err != nil {
			return nil, newStageError(model.StageSubtitle, model.FailureReasonInternal, fmt.Errorf("allocating subtitle timings: %w", err))
		}
		marks = allocated
		producer = "allocator"
	}

	srtPath := conventions.TaskFilePath(c.dataDir, task.ID, conventions.SubtitleFile)
	if err := os.WriteFile(srtPath, []byte(subtitle.FormatSRT(marks)), 0o644); err != nil {
		return nil, newStageError(model.StageSubtitle, model.FailureReasonInternal, fmt.Errorf("writing subtitle file: %w", err))
	}

	return &model.StageArtifact{
		Stage:     model.StageSubtitle,
		Paths:     []string{srtPath},
		Duration:  speechArt.Duration,
		Marks:     marks,
		Provider:  producer,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// runMaterial searches the configured footage sources, downloads the selected
// clips and builds the clip sequence covering the narration.
func (c *Coordinator) runMaterial(ctx context.Context, logger log.Logger, task model.Task, total time.Duration) (*model.StageArtifact, []compose.ClipSpec, []string, error) {
	cfg := task.Config

	// 1. Resolve the search terms.
	terms := c.resolveTerms(ctx, logger, task)

	// 2. Query every configured source. A failing source degrades the task,
	// only all of them coming up empty is fatal.
	req := provider.FootageRequest{
		Terms:        terms,
		Aspect:       cfg.Aspect,
		MinClipSecs:  cfg.ClipDuration,
		TotalNeeded:  total,
		MaxPerSource: int(total/cfg.ClipDuration)*2 + 2,
	}

	var candidates []provider.Clip
	var warnings []string
	for _, source := range cfg.Sources {
		fetcher := c.fetcherFor(source)
		if fetcher == nil {
			warnings = append(warnings, fmt.Sprintf("footage source %q is not configured", source))
			logger.Warningf("Footage source %q requested but not configured", source)
			continue
		}

		desc := fetcher.Descriptor()
		var clips []provider.Clip
		err := provider.Retry(ctx, desc.Retry, logger, func(ctx context.Context) error {
			cs, err := fetcher.Fetch(ctx, req)
			if err != nil {
				return err
			}
			clips = cs
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, nil, newStageError(model.StageMaterial, model.FailureReasonInternal, fmt.Errorf("fetching footage: %w", ctx.Err()))
			}
			warnings = append(warnings, fmt.Sprintf("footage source %q failed: %v", desc.Name, err))
			logger.Warningf("Footage source %q failed: %v", desc.Name, err)
			continue
		}

		logger.Debugf("Source %q returned %d clips", desc.Name, len(clips))
		candidates = append(candidates, clips...)
	}

	if len(candidates) == 0 {
		return nil, nil, nil, newStageError(model.StageMaterial, model.FailureReasonNoMaterialAvailable,
			fmt.Errorf("no footage found for terms %q on any configured source", strings.Join(terms, ", ")))
	}

	if _, err := c.commit(ctx, task.ID, commitChange{stage: model.StageMaterial, progress: progressSearched, warnings: warnings}); err != nil {
		return nil, nil, nil, asStageError(model.StageMaterial, err)
	}
	warnings = nil

	// 3. Order the candidates and materialize the remote ones.
	ordered := orderClips(candidates, total, cfg.ClipDuration)

	var clips []provider.Clip
	downloaded := 0
	for _, clip := range ordered {
		if clip.Path == "" {
			savePath := conventions.TaskFilePath(c.dataDir, task.ID, conventions.ClipFile(downloaded))
			err := provider.Retry(ctx, c.downloadRetry, logger, func(ctx context.Context) error {
				return c.downloader.Download(ctx, clip.URL, savePath)
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, nil, nil, newStageError(model.StageMaterial, model.FailureReasonInternal, fmt.Errorf("downloading footage: %w", ctx.Err()))
				}
				warnings = append(warnings, fmt.Sprintf("downloading clip from %q failed: %v", clip.Provider, err))
				logger.Warningf("Downloading clip %s failed: %v", clip.URL, err)
				continue
			}
			clip.Path = savePath
			downloaded++
		}
		clips = append(clips, clip)
	}

	if len(clips) == 0 {
		return nil, nil, nil, newStageError(model.StageMaterial, model.FailureReasonNoMaterialAvailable,
			errors.New("no clip could be downloaded"))
	}

	// 4. Build the clip sequence covering the narration, reusing clips when
	// there is not enough distinct footage.
	picks, covered, reused := buildPicks(clips, total, cfg.ClipDuration, pickOffset(task.ID, len(clips)))
	if reused {
		warnings = append(warnings, fmt.Sprintf("distinct footage covers %.1fs of %.1fs narration, clips are reused", distinctCoverage(clips, cfg.ClipDuration).Seconds(), total.Seconds()))
		logger.Warningf("Not enough distinct footage for %.1fs of narration, reusing clips", total.Seconds())
	}

	specs := make([]compose.ClipSpec, 0, len(picks))
	for _, p := range picks {
		specs = append(specs, compose.ClipSpec{Path: p.clip.Path, Start: p.start, Length: p.length, Image: p.clip.Image})
	}

	paths := make([]string, 0, len(clips))
	for _, clip := range clips {
		paths = append(paths, clip.Path)
	}

	logger.Infof("Selected %d clips (%d segments) covering %.1fs", len(clips), len(picks), covered.Seconds())

	return &model.StageArtifact{
		Stage:     model.StageMaterial,
		Paths:     paths,
		Duration:  covered,
		Provider:  clipProviders(clips),
		CreatedAt: time.Now().UTC(),
	}, specs, warnings, nil
}

// resolveTerms picks the footage search terms: explicit configuration wins,
// then script derived keywords, then the generic defaults.
func (c *Coordinator) resolveTerms(ctx context.Context, logger log.Logger, task model.Task) []string {
	if len(task.Config.SearchTerms) > 0 {
		return task.Config.SearchTerms
	}

	terms, err := c.keywords.Extract(ctx, task.Script, searchTermLimit)
	if err != nil {
		logger.Warningf("Keyword extraction failed, falling back to default terms: %v", err)
	}
	if len(terms) > 0 {
		logger.Debugf("Derived search terms %v from the script", terms)
		return terms
	}

	return keywords.DefaultTerms()
}

func (c *Coordinator) fetcherFor(source model.FootageSource) provider.FootageFetcher {
	for _, f := range c.footage {
		if f.Descriptor().Name == string(source) {
			return f
		}
	}
	return nil
}

func clipProviders(clips []provider.Clip) string {
	seen := map[string]bool{}
	names := []string{}
	for _, c := range clips {
		if seen[c.Provider] {
			continue
		}
		seen[c.Provider] = true
		names = append(names, c.Provider)
	}
	return strings.Join(names, ",")
}

// runRender produces the requested output videos and commits the terminal
// state. Individual outputs may fail without sinking the task as long as at
// least one renders.
func (c *Coordinator) runRender(ctx context.Context, logger log.Logger, task model.Task, specs []compose.ClipSpec, speechArt, subtitleArt *model.StageArtifact) error {
	cfg := task.Config

	// 1. Resolve the background music. An unavailable song degrades the task
	// to a silent background instead of failing it.
	var musicSpec *compose.AudioSpec
	var warnings []string
	songPath, err := c.music.Pick(cfg.Music)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("background music unavailable: %v", err))
		logger.Warningf("Background music unavailable, rendering without it: %v", err)
	} else if songPath != "" {
		musicSpec = &compose.AudioSpec{Path: songPath, Gain: cfg.Music.Volume}
	}

	if _, err := c.commit(ctx, task.ID, commitChange{stage: model.StageRender, progress: progressRendering, warnings: warnings}); err != nil {
		return asStageError(model.StageRender, err)
	}

	width, height := cfg.Aspect.Resolution()
	taskDir := conventions.TaskDir(c.dataDir, task.ID)
	speech := compose.AudioSpec{Path: speechArt.Paths[0], Gain: cfg.VoiceVolume}
	var sub *compose.SubtitleSpec
	if cfg.Subtitle.Enabled {
		sub = &compose.SubtitleSpec{Path: subtitleArt.Paths[0], Style: cfg.Subtitle}
	}

	// 2. Render each requested output.
	var finals []string
	var renderWarnings []string
	var lastErr error
	for k := 0; k < cfg.VideoCount; k++ {
		order := specs
		if cfg.ConcatMode == model.ConcatModeRandom {
			order = shuffledSpecs(specs, renderSeed(task.ID, k))
		}

		outPath := filepath.Join(taskDir, conventions.FinalVideoFile(k+1))
		_, err := c.comp.Render(ctx, compose.Request{
			Clips:      order,
			Speech:     speech,
			Music:      musicSpec,
			Subtitle:   sub,
			Width:      width,
			Height:     height,
			Transition: cfg.Transition,
			WorkDir:    taskDir,
			OutputPath: outPath,
		})
		if err != nil {
			if ctx.Err() != nil {
				return newStageError(model.StageRender, model.FailureReasonRenderFailed, fmt.Errorf("rendering output %d: %w", k+1, ctx.Err()))
			}
			lastErr = err
			renderWarnings = append(renderWarnings, fmt.Sprintf("rendering output %d failed: %v", k+1, err))
			logger.Errorf("Rendering output %d failed: %v", k+1, err)
			continue
		}

		finals = append(finals, outPath)
		if k+1 < cfg.VideoCount {
			progress := progressRendering + (1-progressRendering)*float64(k+1)/float64(cfg.VideoCount)
			if _, err := c.commit(ctx, task.ID, commitChange{stage: model.StageRender, progress: progress}); err != nil {
				return asStageError(model.StageRender, err)
			}
		}
	}

	// 3. Commit the terminal state.
	if len(finals) == 0 {
		return newStageError(model.StageRender, model.FailureReasonRenderFailed, fmt.Errorf("no output could be rendered: %w", lastErr))
	}

	status := model.TaskStatusSucceeded
	if len(finals) < cfg.VideoCount {
		status = model.TaskStatusPartiallyFailed
	}

	artifact := &model.StageArtifact{
		Stage:     model.StageRender,
		Paths:     finals,
		Duration:  speechArt.Duration,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := c.commit(ctx, task.ID, commitChange{artifact: artifact, progress: 1, warnings: renderWarnings, terminal: status}); err != nil {
		return asStageError(model.StageRender, err)
	}

	logger.Infof("Task finished as %s with %d/%d outputs", status, len(finals), cfg.VideoCount)

	return nil
}

// shuffledSpecs returns a deterministic reordering of the clip sequence.
func shuffledSpecs(specs []compose.ClipSpec, seed int64) []compose.ClipSpec {
	out := append([]compose.ClipSpec(nil), specs...)
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func renderSeed(taskID string, output int) int64 {
	return int64(hashString(taskID)) + int64(output)
}
