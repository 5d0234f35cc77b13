package model

import (
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle state of a generation task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is queued and not started yet.
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

// IsTerminal returns true when no further status transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusPartiallyFailed, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

var validTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending: {TaskStatusRunning, TaskStatusCancelled},
	TaskStatusRunning: {TaskStatusSucceeded, TaskStatusPartiallyFailed, TaskStatusFailed, TaskStatusCancelled},
}

// CanTransition returns true when moving from s to next is a legal status change.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Stage identifies one pipeline phase.
type Stage string

const (
	StageSpeech   Stage = "speech"
	StageSubtitle Stage = "subtitle"
	StageMaterial Stage = "material"
	StageRender   Stage = "render"
)

// Stages lists the pipeline phases in execution order.
var Stages = []Stage{StageSpeech, StageSubtitle, StageMaterial, StageRender}

// Index returns the position of the stage in the pipeline order, or -1 when
// the stage is unknown.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

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

// TimingMark is one subtitle timing entry. Marks are ordered, non-overlapping
// and have strictly increasing start times.
type TimingMark struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// StageArtifact is the durable output of one pipeline stage.
type StageArtifact struct {
	Stage     Stage
	Paths     []string
	Duration  time.Duration
	Marks     []TimingMark
	Provider  string
	CreatedAt time.Time
}

// TaskFailure describes the failing stage and error kind of a failed task.
type TaskFailure struct {
	Stage   Stage
	Reason  FailureReason
	Message string
}

// Task represents one script-to-video generation task.
type Task struct {
	ID              string
	Script          string
	Config          GenerationConfig
	Status          TaskStatus
	Stage           Stage
	Progress        float64
	Artifacts       []StageArtifact
	Warnings        []string
	Failure         *TaskFailure
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Transition moves the task to a new status, validating the status change.
func (t *Task) Transition(next TaskStatus) error {
	if !t.Status.CanTransition(next) {
		return fmt.Errorf("cannot transition task from %q to %q: %w", t.Status, next, ErrNotValid)
	}
	t.Status = next
	return nil
}

// SetProgress advances the progress ratio. Progress never decreases and is
// clamped to [0, 1].
func (t *Task) SetProgress(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	if p > t.Progress {
		t.Progress = p
	}
}

// Artifact returns the artifact for a stage, or nil when the stage has not
// produced one yet.
func (t *Task) Artifact(stage Stage) *StageArtifact {
	for i := range t.Artifacts {
		if t.Artifacts[i].Stage == stage {
			return &t.Artifacts[i]
		}
	}
	return nil
}

// FinalVideos returns the rendered output paths, empty until the render stage
// has committed its artifact.
func (t *Task) FinalVideos() []string {
	a := t.Artifact(StageRender)
	if a == nil {
		return nil
	}
	return a.Paths
}

// Clone returns a deep copy of the task so callers can't mutate stored slices.
func (t Task) Clone() Task {
	c := t

	if t.Artifacts != nil {
		c.Artifacts = make([]StageArtifact, len(t.Artifacts))
		for i, a := range t.Artifacts {
			ac := a
			ac.Paths = append([]string(nil), a.Paths...)
			ac.Marks = append([]TimingMark(nil), a.Marks...)
			c.Artifacts[i] = ac
		}
	}
	if t.Warnings != nil {
		c.Warnings = append([]string(nil), t.Warnings...)
	}
	if t.Failure != nil {
		f := *t.Failure
		c.Failure = &f
	}
	c.Config = t.Config.Clone()

	return c
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

// Summary reduces a task to its listing view.
func (t Task) Summary() TaskSummary {
	s := TaskSummary{
		ID:        t.ID,
		Status:    t.Status,
		Stage:     t.Stage,
		Progress:  t.Progress,
		Warnings:  len(t.Warnings),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Failure != nil {
		f := *t.Failure
		s.Failure = &f
	}
	return s
}

// TaskFilter selects and paginates task listings.
type TaskFilter struct {
	Status   TaskStatus // Empty matches every status.
	Page     int
	PageSize int
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks    []TaskSummary
	Total    int
	Page     int
	PageSize int
}
