package printer

import (
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/music"
)

// Printer knows how to print task information in different formats.
type Printer interface {
	PrintList(tasks []model.TaskSummary) error
	PrintStatus(task model.Task) error
	PrintSongs(songs []music.Song) error
	PrintMessage(msg string) error
}
