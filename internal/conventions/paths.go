package conventions

import (
	"fmt"
	"path/filepath"
)

const (
	// DefaultDataDir is the default data directory name (relative to home).
	DefaultDataDir = ".shortsturbo"
	// TasksDir is the subdirectory holding per-task artifacts.
	TasksDir = "tasks"
	// SongsDir is the subdirectory holding the background music library.
	SongsDir = "songs"
	// MaterialsDir is the subdirectory holding user supplied local footage.
	MaterialsDir = "materials"

	// Task-level files.

	// ScriptFile is the filename for the task's script snapshot.
	ScriptFile = "script.txt"
	// AudioFile is the filename for the synthesized narration audio.
	AudioFile = "audio.mp3"
	// SubtitleFile is the filename for the generated SRT subtitles.
	SubtitleFile = "subtitle.srt"
	// DBFile is the filename for the SQLite task registry.
	DBFile = "shortsturbo.db"
)

// TaskDir returns the artifact directory for a task.
func TaskDir(dataDir, taskID string) string {
	return filepath.Join(dataDir, TasksDir, taskID)
}

// TaskFilePath returns the full path to a file inside a task directory.
func TaskFilePath(dataDir, taskID, filename string) string {
	return filepath.Join(TaskDir(dataDir, taskID), filename)
}

// ClipFile returns the filename for the nth downloaded footage clip.
func ClipFile(n int) string {
	return fmt.Sprintf("clip-%d.mp4", n)
}

// ProcessedClipFile returns the filename for the nth trimmed and scaled clip.
func ProcessedClipFile(n int) string {
	return fmt.Sprintf("processed-%d.mp4", n)
}

// FinalVideoFile returns the filename for the nth rendered output video.
func FinalVideoFile(n int) string {
	return fmt.Sprintf("final-%d.mp4", n)
}

// SongsDirPath returns the music library directory.
func SongsDirPath(dataDir string) string {
	return filepath.Join(dataDir, SongsDir)
}

// MaterialsDirPath returns the local footage directory.
func MaterialsDirPath(dataDir string) string {
	return filepath.Join(dataDir, MaterialsDir)
}

// DBPath returns the SQLite task registry path.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}
