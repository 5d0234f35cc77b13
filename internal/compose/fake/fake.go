package fake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/compose"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
)

// CompositorConfig is the configuration for the fake compositor.
type CompositorConfig struct {
	Logger log.Logger
}

func (c *CompositorConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "compose.Fake"})

	return nil
}

// Compositor is a fake implementation of the compose.Compositor interface.
// It writes placeholder output files instead of running ffmpeg.
type Compositor struct {
	logger log.Logger
}

// NewCompositor creates a new fake compositor.
func NewCompositor(cfg CompositorConfig) (*Compositor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Compositor{logger: cfg.Logger}, nil
}

// Probe returns fixed media metadata.
func (c *Compositor) Probe(ctx context.Context, path string) (*compose.MediaInfo, error) {
	return &compose.MediaInfo{
		Duration: 10 * time.Second,
		Width:    1920,
		Height:   1080,
		HasAudio: true,
	}, nil
}

// Render writes a placeholder file at the requested output path.
func (c *Compositor) Render(ctx context.Context, req compose.Request) (string, error) {
	if len(req.Clips) == 0 {
		return "", fmt.Errorf("no clips to render")
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(req.OutputPath, []byte("fake video"), 0o644); err != nil {
		return "", fmt.Errorf("writing fake video: %w", err)
	}

	c.logger.Infof("Rendered fake video: %s (%d clips)", req.OutputPath, len(req.Clips))

	return req.OutputPath, nil
}
