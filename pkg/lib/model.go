package lib

import (
	"errors"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/music"
)

var (
	// ErrNotFound is returned when a task or resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource with the same name already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when an input or operation is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrAlreadyTerminal is returned when an operation needs a live task but
	// the task already reached a terminal state.
	ErrAlreadyTerminal = errors.New("already in a terminal state")
)

// TaskStatus represents the lifecycle state of a generation task.
//
// The typical lifecycle is:
//
//	pending -> running -> succeeded
//
// A task can also end as partially_failed, failed or cancelled.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is registered and not started yet.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates the task pipeline is executing.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusSucceeded indicates all requested outputs were produced.
	TaskStatusSucceeded TaskStatus = "succeeded"
	// TaskStatusPartiallyFailed indicates at least one requested output was
	// produced but others failed.
	TaskStatusPartiallyFailed TaskStatus = "partially_failed"
	// TaskStatusFailed indicates the task produced no final output.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled on external request.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Stage identifies one pipeline phase.
//
// Stages run in order: speech synthesis, subtitle timing, material
// collection, final render.
type Stage string

const (
	// StageSpeech synthesizes the narration audio from the script.
	StageSpeech Stage = "speech"
	// StageSubtitle derives subtitle timing marks from the narration.
	StageSubtitle Stage = "subtitle"
	// StageMaterial searches, downloads and prepares the footage clips.
	StageMaterial Stage = "material"
	// StageRender composes the final videos.
	StageRender Stage = "render"
)

// FailureReason classifies why a task ended in a failed state.
type FailureReason string

const (
	FailureReasonSpeechSynthesisFailed FailureReason = "speech_synthesis_failed"
	FailureReasonNoMaterialAvailable   FailureReason = "no_material_available"
	FailureReasonRenderFailed          FailureReason = "render_failed"
	FailureReasonTimeout               FailureReason = "timeout"
	FailureReasonInvalidConfiguration  FailureReason = "invalid_configuration"
	FailureReasonInternal              FailureReason = "internal_error"
)

// AspectRatio is the output video aspect ratio.
type AspectRatio string

const (
	// AspectPortrait is the vertical 9:16 format used by shorts and reels.
	AspectPortrait AspectRatio = "9:16"
	// AspectLandscape is the horizontal 16:9 format.
	AspectLandscape AspectRatio = "16:9"
	// AspectSquare is the 1:1 format.
	AspectSquare AspectRatio = "1:1"
)

// FootageSource identifies a stock footage backend.
type FootageSource string

const (
	// FootageSourcePexels searches the Pexels video API.
	FootageSourcePexels FootageSource = "pexels"
	// FootageSourcePixabay searches the Pixabay video API.
	FootageSourcePixabay FootageSource = "pixabay"
	// FootageSourceLocal uses clips from the materials directory under the
	// data dir.
	FootageSourceLocal FootageSource = "local"
)

// ConcatMode selects how downloaded clips are ordered in the final video.
type ConcatMode string

const (
	ConcatModeRandom     ConcatMode = "random"
	ConcatModeSequential ConcatMode = "sequential"
)

// TransitionMode selects the transition effect between clips.
type TransitionMode string

const (
	TransitionNone    TransitionMode = "none"
	TransitionFadeIn  TransitionMode = "fade_in"
	TransitionFadeOut TransitionMode = "fade_out"
)

// MusicMode selects how background music is chosen.
type MusicMode string

const (
	// MusicModeNone renders without background music.
	MusicModeNone MusicMode = "none"
	// MusicModeRandom picks a random song from the music library.
	MusicModeRandom MusicMode = "random"
	// MusicModeFile uses a specific song from the music library.
	MusicModeFile MusicMode = "file"
)

// SubtitlePosition is the vertical placement of burned-in subtitles.
type SubtitlePosition string

const (
	SubtitlePositionTop    SubtitlePosition = "top"
	SubtitlePositionCenter SubtitlePosition = "center"
	SubtitlePositionBottom SubtitlePosition = "bottom"
)

// Task represents a generation task returned by the SDK.
//
// This is a read-only snapshot of the task state at the time of the API call.
// Use [Client.GetTask] to get the latest state.
type Task struct {
	// ID is the unique identifier (ULID) assigned at submission.
	ID string
	// Script is the narration text driving the generation.
	Script string
	// Status is the current lifecycle state.
	Status TaskStatus
	// Stage is the pipeline phase the task is in (or stopped at).
	Stage Stage
	// Progress is the completion ratio in [0, 1].
	Progress float64
	// Videos holds the rendered output paths. Empty until the render stage
	// has finished.
	Videos []string
	// Artifacts holds the durable outputs of the finished stages.
	Artifacts []StageArtifact
	// Warnings lists non-fatal degradations hit during the run (for example
	// an empty music library).
	Warnings []string
	// Failure describes why the task failed. Nil unless the task ended as
	// failed or partially_failed.
	Failure *TaskFailure
	// CancelRequested is true once cancellation was requested. A running
	// task settles to cancelled at its next stage boundary.
	CancelRequested bool
	// Settings is the effective generation configuration, defaults applied.
	Settings GenerationSettings
	// CreatedAt is when the task was submitted.
	CreatedAt time.Time
	// UpdatedAt is when the task state last changed.
	UpdatedAt time.Time
}

// StageArtifact is the durable output of one pipeline stage.
type StageArtifact struct {
	// Stage is the phase that produced this artifact.
	Stage Stage
	// Paths are the files the stage produced.
	Paths []string
	// Duration is the media duration where it applies (narration audio).
	Duration time.Duration
	// Marks are the subtitle timing entries (subtitle stage only).
	Marks []TimingMark
	// Provider names the backend that served the stage.
	Provider string
	// CreatedAt is when the artifact was committed.
	CreatedAt time.Time
}

// TimingMark is one subtitle timing entry. Marks are ordered, non-overlapping
// and have strictly increasing start times.
type TimingMark struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// TaskFailure describes the failing stage and error kind of a failed task.
type TaskFailure struct {
	// Stage is the pipeline phase that failed.
	Stage Stage
	// Reason classifies the failure.
	Reason FailureReason
	// Message is a human-readable description.
	Message string
}

// GenerationSettings is the effective configuration of a task, resolved at
// submission time.
type GenerationSettings struct {
	Aspect       AspectRatio
	Voice        string
	VoiceRate    float64
	VoiceVolume  float64
	Subtitle     SubtitleSettings
	Sources      []FootageSource
	SearchTerms  []string
	ClipDuration time.Duration
	Concat       ConcatMode
	Transition   TransitionMode
	Music        MusicSettings
	VideoCount   int
	StopAfter    Stage
}

// SubtitleSettings is the effective subtitle styling of a task.
type SubtitleSettings struct {
	Enabled     bool
	FontName    string
	FontSize    int
	Position    SubtitlePosition
	TextColor   string
	StrokeColor string
	StrokeWidth float64
}

// MusicSettings is the effective background music configuration of a task.
type MusicSettings struct {
	Mode   MusicMode
	File   string
	Volume float64
}

// GenerateOpts tunes a task submission.
//
// All fields are optional. Pass nil to [Client.Generate] or
// [Client.SubmitTask] for the defaults: portrait aspect, subtitles on, a
// random library song, search terms extracted from the script and one output
// video per task.
type GenerateOpts struct {
	// Terms are the footage search terms. When empty, terms are extracted
	// from the script text.
	Terms []string
	// Sources are the footage backends to query, in order of preference.
	// Default: pexels.
	Sources []FootageSource
	// Aspect is the output aspect ratio. Default: 9:16.
	Aspect AspectRatio
	// Voice is the narration voice name. Default: en-US-JennyNeural-Female.
	Voice string
	// VoiceRate is the narration speed multiplier. Default: 1.2.
	VoiceRate float64
	// VideoCount is how many videos to render from the same narration.
	// Default: 1.
	VideoCount int
	// ClipDuration caps each footage clip's screen time. Default: 5s.
	ClipDuration time.Duration
	// Concat selects clip ordering. Default: random.
	Concat ConcatMode
	// Transition selects the clip transition effect. Default: none.
	Transition TransitionMode
	// NoSubtitles disables burned-in subtitles.
	NoSubtitles bool
	// Subtitles tunes the subtitle styling. Nil means default styling.
	// Ignored when NoSubtitles is set.
	Subtitles *SubtitleOpts
	// NoMusic renders without background music.
	NoMusic bool
	// Music tunes the background music. Nil means a random library song.
	// Ignored when NoMusic is set.
	Music *MusicOpts
	// StopAfter stops the pipeline after the named stage, leaving the task
	// succeeded with the stage artifacts only. Use [StageSpeech] for
	// narration-only runs or [StageSubtitle] for narration plus timing.
	// Empty means run to the final render.
	StopAfter Stage
}

// SubtitleOpts configures burned-in subtitle styling.
type SubtitleOpts struct {
	// FontName is the subtitle font. Empty uses the renderer default.
	FontName string
	// FontSize is the font size in points. Default: 60.
	FontSize int
	// Position is the vertical placement. Default: bottom.
	Position SubtitlePosition
	// TextColor is the fill color as #RRGGBB. Default: #FFFFFF.
	TextColor string
	// StrokeColor is the outline color as #RRGGBB. Default: #000000.
	StrokeColor string
	// StrokeWidth is the outline width. Default: 1.5.
	StrokeWidth float64
}

// MusicOpts configures background music.
type MusicOpts struct {
	// File is a song name from the music library. Empty picks a random
	// library song.
	File string
	// Volume is the music gain relative to the narration. Default: 0.2.
	Volume float64
}

// ListTasksOpts configures task listing.
//
// Pass nil to [Client.ListTasks] for the first page of all tasks.
type ListTasksOpts struct {
	// Status filters tasks by status. Nil means all statuses.
	Status *TaskStatus
	// Page is the 1-based page number. Values below 1 mean the first page.
	Page int
	// PageSize caps the returned tasks per page.
	PageSize int
}

// TaskSummary is the reduced task view returned by listings.
type TaskSummary struct {
	ID        string
	Status    TaskStatus
	Stage     Stage
	Progress  float64
	Warnings  int
	Failure   *TaskFailure
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskPage is one page of task summaries, newest first.
type TaskPage struct {
	Tasks    []TaskSummary
	Total    int
	Page     int
	PageSize int
}

// Song is one background music file in the library.
type Song struct {
	// Name is the song filename.
	Name string
	// Path is the absolute path inside the music library.
	Path string
	// SizeBytes is the file size.
	SizeBytes int64
}

// --- Doctor types ---

// CheckStatus represents the status of a preflight check.
type CheckStatus string

const (
	// CheckStatusOK indicates the check passed.
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusWarning indicates the check passed with a warning.
	CheckStatusWarning CheckStatus = "warning"
	// CheckStatusError indicates the check failed.
	CheckStatusError CheckStatus = "error"
)

// CheckResult represents the result of a single preflight check.
type CheckResult struct {
	// ID is a unique identifier for the check (e.g. "ffmpeg_binary").
	ID string
	// Message is a human-readable description of the result.
	Message string
	// Status is the check status.
	Status CheckStatus
}

// --- Internal conversion helpers ---

func toInternalGenerationConfig(opts *GenerateOpts) model.GenerationConfig {
	if opts == nil {
		opts = &GenerateOpts{}
	}

	cfg := model.GenerationConfig{
		Aspect:       model.AspectRatio(opts.Aspect),
		Voice:        opts.Voice,
		VoiceRate:    opts.VoiceRate,
		Sources:      toInternalSources(opts.Sources),
		SearchTerms:  opts.Terms,
		ClipDuration: opts.ClipDuration,
		ConcatMode:   model.ConcatMode(opts.Concat),
		Transition:   model.TransitionMode(opts.Transition),
		VideoCount:   opts.VideoCount,
		StopAfter:    model.Stage(opts.StopAfter),
	}

	cfg.Subtitle.Enabled = !opts.NoSubtitles
	if s := opts.Subtitles; s != nil && !opts.NoSubtitles {
		cfg.Subtitle.FontName = s.FontName
		cfg.Subtitle.FontSize = s.FontSize
		cfg.Subtitle.Position = model.SubtitlePosition(s.Position)
		cfg.Subtitle.TextColor = s.TextColor
		cfg.Subtitle.StrokeColor = s.StrokeColor
		cfg.Subtitle.StrokeWidth = s.StrokeWidth
	}

	switch {
	case opts.NoMusic:
		cfg.Music.Mode = model.MusicModeNone
	case opts.Music != nil && opts.Music.File != "":
		cfg.Music.Mode = model.MusicModeFile
		cfg.Music.File = opts.Music.File
	}
	if opts.Music != nil && !opts.NoMusic {
		cfg.Music.Volume = opts.Music.Volume
	}

	return cfg
}

func toInternalSources(sources []FootageSource) []model.FootageSource {
	if len(sources) == 0 {
		return nil
	}
	result := make([]model.FootageSource, len(sources))
	for i, s := range sources {
		result[i] = model.FootageSource(s)
	}
	return result
}

func fromInternalTask(t model.Task) Task {
	task := Task{
		ID:              t.ID,
		Script:          t.Script,
		Status:          TaskStatus(t.Status),
		Stage:           Stage(t.Stage),
		Progress:        t.Progress,
		Videos:          t.FinalVideos(),
		CancelRequested: t.CancelRequested,
		Settings:        fromInternalGenerationConfig(t.Config),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}

	if len(t.Warnings) > 0 {
		task.Warnings = append([]string(nil), t.Warnings...)
	}
	for _, a := range t.Artifacts {
		task.Artifacts = append(task.Artifacts, fromInternalArtifact(a))
	}
	task.Failure = fromInternalFailure(t.Failure)

	return task
}

func fromInternalArtifact(a model.StageArtifact) StageArtifact {
	art := StageArtifact{
		Stage:     Stage(a.Stage),
		Paths:     append([]string(nil), a.Paths...),
		Duration:  a.Duration,
		Provider:  a.Provider,
		CreatedAt: a.CreatedAt,
	}
	for _, m := range a.Marks {
		art.Marks = append(art.Marks, TimingMark{Start: m.Start, End: m.End, Text: m.Text})
	}
	return art
}

func fromInternalFailure(f *model.TaskFailure) *TaskFailure {
	if f == nil {
		return nil
	}
	return &TaskFailure{
		Stage:   Stage(f.Stage),
		Reason:  FailureReason(f.Reason),
		Message: f.Message,
	}
}

func fromInternalGenerationConfig(c model.GenerationConfig) GenerationSettings {
	s := GenerationSettings{
		Aspect:      AspectRatio(c.Aspect),
		Voice:       c.Voice,
		VoiceRate:   c.VoiceRate,
		VoiceVolume: c.VoiceVolume,
		Subtitle: SubtitleSettings{
			Enabled:     c.Subtitle.Enabled,
			FontName:    c.Subtitle.FontName,
			FontSize:    c.Subtitle.FontSize,
			Position:    SubtitlePosition(c.Subtitle.Position),
			TextColor:   c.Subtitle.TextColor,
			StrokeColor: c.Subtitle.StrokeColor,
			StrokeWidth: c.Subtitle.StrokeWidth,
		},
		SearchTerms:  append([]string(nil), c.SearchTerms...),
		ClipDuration: c.ClipDuration,
		Concat:       ConcatMode(c.ConcatMode),
		Transition:   TransitionMode(c.Transition),
		Music: MusicSettings{
			Mode:   MusicMode(c.Music.Mode),
			File:   c.Music.File,
			Volume: c.Music.Volume,
		},
		VideoCount: c.VideoCount,
		StopAfter:  Stage(c.StopAfter),
	}

	for _, src := range c.Sources {
		s.Sources = append(s.Sources, FootageSource(src))
	}

	return s
}

func fromInternalSummary(s model.TaskSummary) TaskSummary {
	return TaskSummary{
		ID:        s.ID,
		Status:    TaskStatus(s.Status),
		Stage:     Stage(s.Stage),
		Progress:  s.Progress,
		Warnings:  s.Warnings,
		Failure:   fromInternalFailure(s.Failure),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func fromInternalPage(p model.TaskPage) TaskPage {
	page := TaskPage{
		Tasks:    make([]TaskSummary, len(p.Tasks)),
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	for i, s := range p.Tasks {
		page.Tasks[i] = fromInternalSummary(s)
	}
	return page
}

func toInternalStatusFilter(opts *ListTasksOpts) model.TaskStatus {
	if opts == nil || opts.Status == nil {
		return ""
	}
	return model.TaskStatus(*opts.Status)
}

func fromInternalSong(s music.Song) Song {
	return Song{Name: s.Name, Path: s.Path, SizeBytes: s.Size}
}

func fromInternalSongs(ss []music.Song) []Song {
	result := make([]Song, len(ss))
	for i, s := range ss {
		result[i] = fromInternalSong(s)
	}
	return result
}

// --- Doctor conversion helpers ---

func fromInternalCheckResults(results []model.CheckResult) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{
			ID:      r.ID,
			Message: r.Message,
			Status:  CheckStatus(r.Status),
		}
	}
	return out
}

// --- Error mapping ---

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isInternalError(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case isInternalError(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case isInternalError(err, model.ErrAlreadyTerminal):
		return joinErrors(err, ErrAlreadyTerminal)
	case isInternalError(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func isInternalError(err, target error) bool {
	for {
		if err == target {
			return true
		}
		unwrapped := unwrapSingle(err)
		if unwrapped == nil {
			return false
		}
		err = unwrapped
	}
}

func unwrapSingle(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
