package shortsturbo_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intst "github.com/GiladLeef/ShortsTurbo/test/integration/shortsturbo"
)

// statusOutput matches the JSON output of `shortsturbo status --format json`.
type statusOutput struct {
	ID        string   `json:"id"`
	Script    string   `json:"script"`
	Status    string   `json:"status"`
	Stage     string   `json:"stage"`
	Progress  float64  `json:"progress"`
	Videos    []string `json:"videos"`
	Artifacts []struct {
		Stage string   `json:"stage"`
		Files []string `json:"files"`
	} `json:"artifacts"`
}

// listItem matches the JSON output of `shortsturbo list --format json`.
type listItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// songItem matches the JSON output of `shortsturbo musics list --format json`.
type songItem struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// writeScript writes a script file into a temp dir and returns its path.
func writeScript(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "script.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGenerateLifecycle(t *testing.T) {
	config := intst.NewConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	dataDir := t.TempDir()
	script := writeScript(t, "The ocean covers most of our planet and hides its deepest valleys.")

	// Generate a video.
	stdout, stderr, err := intst.RunGenerate(ctx, config, dataDir, script, "")
	require.NoError(t, err, "stdout: %s, stderr: %s", stdout, stderr)

	var generated statusOutput
	require.NoError(t, json.Unmarshal(stdout, &generated), "stdout: %s", stdout)
	assert.Equal(t, "succeeded", generated.Status)
	assert.Equal(t, "render", generated.Stage)
	require.Len(t, generated.Videos, 1)

	// The final video must exist on disk.
	_, err = os.Stat(generated.Videos[0])
	require.NoError(t, err)

	// Status shows the same task.
	stdout, stderr, err = intst.RunStatus(ctx, config, dataDir, generated.ID)
	require.NoError(t, err, "stdout: %s, stderr: %s", stdout, stderr)

	var status statusOutput
	require.NoError(t, json.Unmarshal(stdout, &status))
	assert.Equal(t, generated.ID, status.ID)
	assert.Equal(t, "succeeded", status.Status)

	// The task shows up in the listing.
	stdout, stderr, err = intst.RunList(ctx, config, dataDir)
	require.NoError(t, err, "stdout: %s, stderr: %s", stdout, stderr)

	var tasks []listItem
	require.NoError(t, json.Unmarshal(stdout, &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, generated.ID, tasks[0].ID)

	// Remove drops the task and its artifacts.
	stdout, stderr, err = intst.RunRm(ctx, config, dataDir, generated.ID)
	require.NoError(t, err, "stdout: %s, stderr: %s", stdout, stderr)
	assert.Contains(t, string(stdout), "Removed task")

	_, err = os.Stat(filepath.Dir(generated.Videos[0]))
	assert.True(t, os.IsNotExist(err), "task artifact directory should be gone")

	stdout, _, err = intst.RunList(ctx, config, dataDir)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(stdout, &tasks))
	assert.Empty(t, tasks)
}

func TestGenerateNarrationOnly(t *testing.T) {
	config := intst.NewConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	dataDir := t.TempDir()
	script := writeScript(t, "Just the narration, please.")

	stdout, stderr, err := intst.RunGenerate(ctx, config, dataDir, script, "--stop-after speech")
	require.NoError(t, err, "stdout: %s, stderr: %s", stdout, stderr)

	var status statusOutput
	require.NoError(t, json.Unmarshal(stdout, &status))
	assert.Equal(t, "succeeded", status.Status)
	assert.Equal(t, "speech", status.Stage)
	assert.Empty(t, status.Videos)
	require.Len(t, status.Artifacts, 1)
	assert.Equal(t, "speech", status.Artifacts[0].Stage)
}

func TestMusicsFlow(t *testing.T) {
	config := intst.NewConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	dataDir := t.TempDir()

	// Add a song to the library.
	songPath := filepath.Join(t.TempDir(), "calm-waves.mp3")
	require.NoError(t, os.WriteFile(songPath, []byte("not really audio"), 0o644))

	stdout, stderr, err := intst.RunMusicsAdd(ctx, config, dataDir, songPath)
	require.NoError(t, err, "stdout: %s, stderr: %s", stdout, stderr)
	assert.Contains(t, string(stdout), "Added song")

	// The song shows up in the library listing.
	stdout, stderr, err = intst.RunMusicsList(ctx, config, dataDir)
	require.NoError(t, err, "stdout: %s, stderr: %s", stdout, stderr)

	var songs []songItem
	require.NoError(t, json.Unmarshal(stdout, &songs))
	require.Len(t, songs, 1)
	assert.Equal(t, "calm-waves.mp3", songs[0].Name)

	// Generate using that song explicitly.
	script := writeScript(t, "A story with a chosen soundtrack.")
	stdout, stderr, err = intst.RunGenerate(ctx, config, dataDir, script, "--music-file calm-waves.mp3")
	require.NoError(t, err, "stdout: %s, stderr: %s", stdout, stderr)

	var status statusOutput
	require.NoError(t, json.Unmarshal(stdout, &status))
	assert.Equal(t, "succeeded", status.Status)
	require.Len(t, status.Videos, 1)
}

func TestGenerateInvalidScript(t *testing.T) {
	config := intst.NewConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dataDir := t.TempDir()
	script := writeScript(t, "   ")

	_, stderr, err := intst.RunGenerate(ctx, config, dataDir, script, "")
	require.Error(t, err)
	assert.True(t, strings.Contains(string(stderr), "script"), "stderr: %s", stderr)
}
