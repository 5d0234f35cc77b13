package fake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

// SpeechConfig is the configuration for the fake speech synthesizer.
type SpeechConfig struct {
	Logger log.Logger
}

func (c *SpeechConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "provider.FakeSpeech"})

	return nil
}

// Speech is a fake implementation of the provider.SpeechSynthesizer
// interface. It writes a placeholder audio file and derives a plausible
// duration from the script length.
type Speech struct {
	logger log.Logger
}

// NewSpeech creates a new fake speech synthesizer.
func NewSpeech(cfg SpeechConfig) (*Speech, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Speech{logger: cfg.Logger}, nil
}

// Descriptor returns the provider descriptor.
func (s *Speech) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:         "fake-speech",
		Capabilities: []provider.Capability{provider.CapabilitySpeech},
	}
}

// Synthesize writes the script bytes as a stand-in audio file. Roughly 15
// characters count as one spoken second.
func (s *Speech) Synthesize(ctx context.Context, req provider.SpeechRequest) (*provider.SpeechResult, error) {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, provider.NewPermanent("fake-speech", err)
	}
	if err := os.WriteFile(req.OutputPath, []byte(req.Script), 0o644); err != nil {
		return nil, provider.NewPermanent("fake-speech", err)
	}

	secs := float64(len([]rune(req.Script))) / 15.0
	if req.Rate > 0 {
		secs /= req.Rate
	}
	if secs < 1 {
		secs = 1
	}

	duration := time.Duration(secs * float64(time.Second))
	s.logger.Infof("Synthesized fake narration: %s (%.1fs)", req.OutputPath, duration.Seconds())

	return &provider.SpeechResult{
		AudioPath: req.OutputPath,
		Duration:  duration,
	}, nil
}

// FootageConfig is the configuration for the fake footage fetcher.
type FootageConfig struct {
	// Name is the source name the fetcher answers to. It lets one fake stand
	// in for a real source like "pexels". Defaults to "fake-footage".
	Name string
	// Dir is where fake clip files are materialized.
	Dir string
	// ClipCount is how many clips the fetcher offers.
	ClipCount int
	Logger    log.Logger
}

func (c *FootageConfig) defaults() error {
	if c.Name == "" {
		c.Name = "fake-footage"
	}
	if c.Dir == "" {
		c.Dir = filepath.Join(os.TempDir(), "shortsturbo-fake-footage")
	}
	if c.ClipCount <= 0 {
		c.ClipCount = 4
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "provider.FakeFootage"})

	return nil
}

// Footage is a fake implementation of the provider.FootageFetcher interface.
// It materializes placeholder clip files so the rest of the pipeline can
// treat them like downloaded stock footage.
type Footage struct {
	name      string
	dir       string
	clipCount int
	logger    log.Logger
}

// NewFootage creates a new fake footage fetcher.
func NewFootage(cfg FootageConfig) (*Footage, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating fake footage dir: %w", err)
	}

	return &Footage{
		name:      cfg.Name,
		dir:       cfg.Dir,
		clipCount: cfg.ClipCount,
		logger:    cfg.Logger,
	}, nil
}

// Descriptor returns the provider descriptor.
func (f *Footage) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:         f.name,
		Capabilities: []provider.Capability{provider.CapabilityFootage},
	}
}

// Fetch returns deterministic local clips with varied durations.
func (f *Footage) Fetch(ctx context.Context, req provider.FootageRequest) ([]provider.Clip, error) {
	durations := []time.Duration{
		13 * time.Second,
		7 * time.Second,
		9 * time.Second,
		5 * time.Second,
	}
	width, height := req.Aspect.Resolution()

	clips := make([]provider.Clip, 0, f.clipCount)
	for i := 0; i < f.clipCount; i++ {
		path := filepath.Join(f.dir, fmt.Sprintf("fake-clip-%d.mp4", i))
		if _, err := os.Stat(path); err != nil {
			if err := os.WriteFile(path, []byte("fake clip"), 0o644); err != nil {
				return nil, provider.NewPermanent(f.name, err)
			}
		}

		clips = append(clips, provider.Clip{
			Provider: f.name,
			Path:     path,
			Duration: durations[i%len(durations)],
			Width:    width,
			Height:   height,
		})
	}

	f.logger.Infof("Offering %d fake clips", len(clips))

	return clips, nil
}
