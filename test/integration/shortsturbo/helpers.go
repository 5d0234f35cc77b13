package shortsturbo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/GiladLeef/ShortsTurbo/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "shortsturbo"
	}

	// If the path is already absolute, just check it exists.
	// If relative, the caller should pass an absolute path via the env var,
	// because go test changes the CWD to the test package directory.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("SHORTSTURBO_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("shortsturbo binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "SHORTSTURBO_INTEGRATION"
		envBinary     = "SHORTSTURBO_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// RunCmd runs a shortsturbo command against a specific data directory with
// fake providers, so no network access, edge-tts or ffmpeg is needed.
// It suppresses logging output for cleaner test output.
func RunCmd(ctx context.Context, config Config, dataDir, cmdArgs string) (stdout, stderr []byte, err error) {
	return testutils.Run(ctx, testutils.Command{
		Binary: config.Binary,
		Args:   fmt.Sprintf("--no-log --data-dir %s %s", dataDir, cmdArgs),
		Silent: true,
	})
}

// RunGenerate generates videos from a script file with fake providers in JSON format.
func RunGenerate(ctx context.Context, config Config, dataDir, scriptPath, extraArgs string) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("generate %s --fake-providers --format json %s", scriptPath, extraArgs)
	return RunCmd(ctx, config, dataDir, args)
}

// RunList lists tasks in JSON format.
func RunList(ctx context.Context, config Config, dataDir string) (stdout, stderr []byte, err error) {
	return RunCmd(ctx, config, dataDir, "list --format json")
}

// RunStatus gets a task status in JSON format.
func RunStatus(ctx context.Context, config Config, dataDir, taskID string) (stdout, stderr []byte, err error) {
	return RunCmd(ctx, config, dataDir, fmt.Sprintf("status %s --format json", taskID))
}

// RunRm removes a task (with force).
func RunRm(ctx context.Context, config Config, dataDir, taskID string) (stdout, stderr []byte, err error) {
	return RunCmd(ctx, config, dataDir, fmt.Sprintf("rm --force %s", taskID))
}

// RunMusicsAdd adds a song to the music library.
func RunMusicsAdd(ctx context.Context, config Config, dataDir, songPath string) (stdout, stderr []byte, err error) {
	return RunCmd(ctx, config, dataDir, fmt.Sprintf("musics add %s", songPath))
}

// RunMusicsList lists the music library in JSON format.
func RunMusicsList(ctx context.Context, config Config, dataDir string) (stdout, stderr []byte, err error) {
	return RunCmd(ctx, config, dataDir, "musics list --format json")
}

// RunServe runs the API server with fake providers on the given address.
// It blocks until the context is cancelled.
func RunServe(ctx context.Context, config Config, dataDir, listen string) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("serve --fake-providers --listen %s --workers 2", listen)
	return RunCmd(ctx, config, dataDir, args)
}
