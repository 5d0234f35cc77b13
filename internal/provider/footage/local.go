package footage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/GiladLeef/ShortsTurbo/internal/compose"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

// minLocalDimension rejects material too small to upscale cleanly.
const minLocalDimension = 480

var (
	videoExtensions = map[string]struct{}{
		".mp4": {}, ".mov": {}, ".mkv": {}, ".webm": {}, ".avi": {},
	}
	imageExtensions = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".bmp": {}, ".webp": {},
	}
)

// Prober measures local media files.
type Prober interface {
	Probe(ctx context.Context, path string) (*compose.MediaInfo, error)
}

// LocalConfig is the configuration for the local directory fetcher.
type LocalConfig struct {
	Dir    string
	Prober Prober
	Logger log.Logger
}

func (c *LocalConfig) defaults() error {
	if c.Dir == "" {
		return fmt.Errorf("material directory is required")
	}
	if c.Prober == nil {
		return fmt.Errorf("prober is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "footage.Local"})

	return nil
}

// Local serves clips from a directory of user supplied media files. Videos
// are probed for duration and dimensions, images become animated stills.
type Local struct {
	dir    string
	prober Prober
	logger log.Logger
}

// NewLocal creates a new local directory fetcher.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Local{
		dir:    cfg.Dir,
		prober: cfg.Prober,
		logger: cfg.Logger,
	}, nil
}

// Descriptor returns the provider descriptor.
func (l *Local) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:         "local",
		Capabilities: []provider.Capability{provider.CapabilityFootage},
	}
}

// Fetch scans the material directory. Search terms are ignored, a local
// library is taken as-is. Files that cannot be probed or are too small are
// skipped with a warning.
func (l *Local) Fetch(ctx context.Context, req provider.FootageRequest) ([]provider.Clip, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, provider.NewPermanent("local", fmt.Errorf("reading material directory: %w", err))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	clips := []provider.Clip{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, provider.NewTransient("local", err)
		}

		path := filepath.Join(l.dir, name)
		ext := strings.ToLower(filepath.Ext(name))

		if _, ok := imageExtensions[ext]; ok {
			clips = append(clips, provider.Clip{
				Provider: "local",
				Path:     path,
				Image:    true,
			})
			continue
		}

		if _, ok := videoExtensions[ext]; !ok {
			continue
		}

		info, err := l.prober.Probe(ctx, path)
		if err != nil {
			l.logger.Warningf("Skipping unreadable material %s: %v", path, err)
			continue
		}
		if info.Width < minLocalDimension || info.Height < minLocalDimension {
			l.logger.Warningf("Skipping low resolution material %s (%dx%d)", path, info.Width, info.Height)
			continue
		}

		clips = append(clips, provider.Clip{
			Provider: "local",
			Path:     path,
			Duration: info.Duration,
			Width:    info.Width,
			Height:   info.Height,
		})

		if req.MaxPerSource > 0 && len(clips) >= req.MaxPerSource {
			break
		}
	}

	return clips, nil
}
