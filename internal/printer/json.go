package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/music"
)

// JSONPrinter prints task information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents a task in the list output (subset of fields).
type listItem struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Progress  float64   `json:"progress"`
	Warnings  int       `json:"warnings,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// statusOutput represents the full task status output.
type statusOutput struct {
	ID        string           `json:"id"`
	Script    string           `json:"script"`
	Status    string           `json:"status"`
	Stage     string           `json:"stage,omitempty"`
	Progress  float64          `json:"progress"`
	Artifacts []artifactOutput `json:"artifacts,omitempty"`
	Videos    []string         `json:"videos,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
	Failure   *failureOutput   `json:"failure,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// artifactOutput represents one stage artifact in the status output.
type artifactOutput struct {
	Stage           string   `json:"stage"`
	Files           []string `json:"files"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	Provider        string   `json:"provider,omitempty"`
}

// failureOutput represents the failure details of a failed task.
type failureOutput struct {
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// songItem represents one library song in the songs output.
type songItem struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintList prints task summaries in JSON format with a subset of fields.
func (j *JSONPrinter) PrintList(tasks []model.TaskSummary) error {
	items := make([]listItem, len(tasks))
	for i, t := range tasks {
		items[i] = listItem{
			ID:        t.ID,
			Status:    string(t.Status),
			Stage:     string(t.Stage),
			Progress:  t.Progress,
			Warnings:  t.Warnings,
			CreatedAt: t.CreatedAt.UTC(),
			UpdatedAt: t.UpdatedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintStatus prints detailed task status in JSON format.
func (j *JSONPrinter) PrintStatus(task model.Task) error {
	output := statusOutput{
		ID:        task.ID,
		Script:    task.Script,
		Status:    string(task.Status),
		Stage:     string(task.Stage),
		Progress:  task.Progress,
		Videos:    task.FinalVideos(),
		Warnings:  task.Warnings,
		CreatedAt: task.CreatedAt.UTC(),
		UpdatedAt: task.UpdatedAt.UTC(),
	}

	for _, a := range task.Artifacts {
		output.Artifacts = append(output.Artifacts, artifactOutput{
			Stage:           string(a.Stage),
			Files:           a.Paths,
			DurationSeconds: a.Duration.Seconds(),
			Provider:        a.Provider,
		})
	}

	if task.Failure != nil {
		output.Failure = &failureOutput{
			Stage:   string(task.Failure.Stage),
			Reason:  string(task.Failure.Reason),
			Message: task.Failure.Message,
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintSongs prints the music library in JSON format.
func (j *JSONPrinter) PrintSongs(songs []music.Song) error {
	items := make([]songItem, len(songs))
	for i, s := range songs {
		items[i] = songItem{Name: s.Name, Size: s.Size, Path: s.Path}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
