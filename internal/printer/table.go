package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/music"
)

// TablePrinter prints task information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintList prints task summaries in a table format.
func (t *TablePrinter) PrintList(tasks []model.TaskSummary) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "ID\tSTATUS\tSTAGE\tPROGRESS\tCREATED")

	// Print rows
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			task.ID, task.Status, task.Stage, formatProgress(task.Progress), TimeAgo(task.CreatedAt))
	}

	return nil
}

// PrintStatus prints detailed task status.
func (t *TablePrinter) PrintStatus(task model.Task) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", task.ID)
	fmt.Fprintf(t.writer, "Status:     %s\n", task.Status)
	if task.Stage != "" {
		fmt.Fprintf(t.writer, "Stage:      %s\n", task.Stage)
	}
	fmt.Fprintf(t.writer, "Progress:   %s\n", formatProgress(task.Progress))
	fmt.Fprintf(t.writer, "Voice:      %s\n", task.Config.Voice)
	fmt.Fprintf(t.writer, "Aspect:     %s\n", task.Config.Aspect)
	fmt.Fprintf(t.writer, "Outputs:    %d\n", task.Config.VideoCount)
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(task.CreatedAt))
	fmt.Fprintf(t.writer, "Updated:    %s\n", FormatTimestamp(task.UpdatedAt))

	if task.Failure != nil {
		fmt.Fprintf(t.writer, "Failure:    %s/%s: %s\n", task.Failure.Stage, task.Failure.Reason, task.Failure.Message)
	}

	for _, w := range task.Warnings {
		fmt.Fprintf(t.writer, "Warning:    %s\n", w)
	}

	if len(task.Artifacts) > 0 {
		fmt.Fprintln(t.writer)
		tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "STAGE\tPROVIDER\tDURATION\tFILES")
		for _, a := range task.Artifacts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", a.Stage, a.Provider, a.Duration, len(a.Paths))
		}
		tw.Flush()
	}

	if videos := task.FinalVideos(); len(videos) > 0 {
		fmt.Fprintln(t.writer)
		for _, v := range videos {
			fmt.Fprintf(t.writer, "Video:      %s\n", v)
		}
	}

	return nil
}

// PrintSongs prints the music library in a table format.
func (t *TablePrinter) PrintSongs(songs []music.Song) error {
	if len(songs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "NAME\tSIZE")

	// Print rows.
	for _, s := range songs {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, FormatBytes(s.Size))
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func formatProgress(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}
