package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// SynthesizerConfig is the configuration for the edge-tts synthesizer.
type SynthesizerConfig struct {
	BinaryPath  string
	ProbePath   string
	CallTimeout time.Duration
	Retry       provider.RetryPolicy
	Logger      log.Logger
}

func (c *SynthesizerConfig) defaults() error {
	if c.BinaryPath == "" {
		c.BinaryPath = "edge-tts"
	}
	if c.ProbePath == "" {
		c.ProbePath = "ffprobe"
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tts.Synthesizer"})

	return nil
}

// Synthesizer produces narration audio through the edge-tts command line
// tool and measures the resulting duration with ffprobe.
type Synthesizer struct {
	binary      string
	probe       string
	callTimeout time.Duration
	retry       provider.RetryPolicy
	runner      commandRunner
	lookPath    func(file string) (string, error)
	stat        func(name string) (os.FileInfo, error)
	logger      log.Logger
}

// NewSynthesizer creates a new edge-tts backed speech synthesizer.
func NewSynthesizer(cfg SynthesizerConfig) (*Synthesizer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Synthesizer{
		binary:      cfg.BinaryPath,
		probe:       cfg.ProbePath,
		callTimeout: cfg.CallTimeout,
		retry:       cfg.Retry,
		runner:      &execRunner{},
		lookPath:    exec.LookPath,
		stat:        os.Stat,
		logger:      cfg.Logger,
	}, nil
}

// Descriptor returns the provider descriptor.
func (s *Synthesizer) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:         "edge-tts",
		Capabilities: []provider.Capability{provider.CapabilitySpeech},
		CallTimeout:  s.callTimeout,
		Retry:        s.retry,
	}
}

// Check runs the preflight check for the speech toolchain.
func (s *Synthesizer) Check(ctx context.Context) []model.CheckResult {
	path, err := s.lookPath(s.binary)
	if err != nil {
		return []model.CheckResult{{
			ID:      "edge_tts_binary",
			Message: fmt.Sprintf("%s not found in PATH (install with: pip install edge-tts)", s.binary),
			Status:  model.CheckStatusError,
		}}
	}

	return []model.CheckResult{{
		ID:      "edge_tts_binary",
		Message: fmt.Sprintf("edge-tts found at %s", path),
		Status:  model.CheckStatusOK,
	}}
}

// Synthesize renders the script into req.OutputPath. A missing binary is a
// permanent failure, everything else (network hiccups inside edge-tts, a
// truncated output file, a timeout) is transient.
func (s *Synthesizer) Synthesize(ctx context.Context, req provider.SpeechRequest) (*provider.SpeechResult, error) {
	if _, err := s.lookPath(s.binary); err != nil {
		return nil, provider.NewPermanent("edge-tts", fmt.Errorf("binary %q not found: %w", s.binary, err))
	}

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	args := []string{
		"--voice", normalizeVoice(req.Voice),
		"--rate", formatPercent(req.Rate),
		"--text", req.Script,
		"--write-media", req.OutputPath,
	}

	s.logger.Debugf("Synthesizing %d chars into %s", len(req.Script), req.OutputPath)

	res, err := s.runner.Run(ctx, s.binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, provider.NewTransient("edge-tts", fmt.Errorf("synthesis timed out: %w", ctx.Err()))
		}
		return nil, provider.NewTransient("edge-tts", fmt.Errorf("synthesis failed (exit %d): %s", res.ExitCode, tail(res.Stderr)))
	}

	info, err := s.stat(req.OutputPath)
	if err != nil || info.Size() == 0 {
		return nil, provider.NewTransient("edge-tts", fmt.Errorf("no audio produced at %s", req.OutputPath))
	}

	duration, err := s.measureDuration(ctx, req.OutputPath)
	if err != nil {
		return nil, provider.NewTransient("edge-tts", fmt.Errorf("measuring audio duration: %w", err))
	}

	return &provider.SpeechResult{
		AudioPath: req.OutputPath,
		Duration:  duration,
	}, nil
}

func (s *Synthesizer) measureDuration(ctx context.Context, path string) (time.Duration, error) {
	res, err := s.runner.Run(ctx, s.probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %s", tail(res.Stderr))
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", strings.TrimSpace(res.Stdout), err)
	}

	return time.Duration(secs * float64(time.Second)), nil
}

// normalizeVoice strips the gender suffix some voice catalogs append, edge-tts
// expects "en-US-JennyNeural" rather than "en-US-JennyNeural-Female".
func normalizeVoice(voice string) string {
	voice = strings.TrimSuffix(voice, "-Female")
	voice = strings.TrimSuffix(voice, "-Male")
	return voice
}

// formatPercent converts a rate ratio into the signed percent string edge-tts
// expects, 1.2 becomes "+20%" and 0.8 becomes "-20%".
func formatPercent(ratio float64) string {
	if ratio <= 0 {
		ratio = 1.0
	}
	pct := int(math.Round((ratio - 1.0) * 100))
	if pct < 0 {
		return fmt.Sprintf("%d%%", pct)
	}
	return fmt.Sprintf("+%d%%", pct)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 400
	if len(s) > max {
		return "..." + s[len(s)-max:]
	}
	return s
}
