package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/conventions"
	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/model"
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

// FFmpegConfig is the configuration for the ffmpeg compositor.
type FFmpegConfig struct {
	BinaryPath string
	ProbePath  string
	Logger     log.Logger
}

func (c *FFmpegConfig) defaults() error {
	if c.BinaryPath == "" {
		c.BinaryPath = "ffmpeg"
	}
	if c.ProbePath == "" {
		c.ProbePath = "ffprobe"
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "compose.FFmpeg"})

	return nil
}

// FFmpeg renders videos by chaining ffmpeg invocations: clip preparation,
// concatenation, audio mixing and subtitle burning.
type FFmpeg struct {
	binary string
	probe  string
	runner commandRunner
	logger log.Logger
}

// NewFFmpeg creates a new ffmpeg backed compositor.
func NewFFmpeg(cfg FFmpegConfig) (*FFmpeg, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &FFmpeg{
		binary: cfg.BinaryPath,
		probe:  cfg.ProbePath,
		runner: &execRunner{},
		logger: cfg.Logger,
	}, nil
}

// Check runs the preflight checks for the rendering toolchain.
func (f *FFmpeg) Check(ctx context.Context) []model.CheckResult {
	return []model.CheckResult{
		f.checkBinary(ctx, "ffmpeg_binary", f.binary),
		f.checkBinary(ctx, "ffprobe_binary", f.probe),
	}
}

func (f *FFmpeg) checkBinary(ctx context.Context, id, binary string) model.CheckResult {
	path, err := exec.LookPath(binary)
	if err != nil {
		return model.CheckResult{
			ID:      id,
			Message: fmt.Sprintf("%s not found in PATH", binary),
			Status:  model.CheckStatusError,
		}
	}

	version := "unknown version"
	if res, err := f.runner.Run(ctx, binary, "-version"); err == nil {
		line, _, _ := strings.Cut(res.Stdout, "\n")
		if line = strings.TrimSpace(line); line != "" {
			version = line
		}
	}

	return model.CheckResult{
		ID:      id,
		Message: fmt.Sprintf("%s found at %s (%s)", binary, path, version),
		Status:  model.CheckStatusOK,
	}
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// Probe returns duration, dimensions and audio presence of a media file.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	res, err := f.runner.Run(ctx, f.probe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %s", path, tail(res.Stderr))
	}

	var out probeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	// Images and some containers report no duration, leave it at zero.
	if secs, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}

	return info, nil
}

// Render produces the final video for a request. Intermediate files are
// written next to the output and removed afterwards.
func (f *FFmpeg) Render(ctx context.Context, req Request) (string, error) {
	if len(req.Clips) == 0 {
		return "", fmt.Errorf("no clips to render")
	}
	if req.Speech.Path == "" {
		return "", fmt.Errorf("no speech track to render")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return "", fmt.Errorf("invalid output resolution %dx%d", req.Width, req.Height)
	}

	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("creating work dir: %w", err)
	}

	var temps []string
	defer func() {
		for _, p := range temps {
			os.Remove(p)
		}
	}()

	// 1. Prepare every segment: trim, scale and pad to the target
	// resolution. Stills become short zoom pans.
	prepared := make([]string, 0, len(req.Clips))
	for i, clip := range req.Clips {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out := filepath.Join(req.WorkDir, conventions.ProcessedClipFile(i))
		var err error
		if clip.Image {
			err = f.prepareImage(ctx, clip, req.Width, req.Height, out)
		} else {
			err = f.prepareClip(ctx, clip, req.Width, req.Height, req.Transition, out)
		}
		if err != nil {
			return "", fmt.Errorf("preparing clip %d: %w", i, err)
		}
		temps = append(temps, out)
		prepared = append(prepared, out)
	}

	// 2. Concatenate the prepared segments.
	combined := filepath.Join(req.WorkDir, "combined.mp4")
	if err := f.concat(ctx, prepared, combined); err != nil {
		return "", fmt.Errorf("concatenating clips: %w", err)
	}
	temps = append(temps, combined)

	// 3. Mix in the speech track and optional background music.
	withAudio := filepath.Join(req.WorkDir, "with-audio.mp4")
	if err := f.mixAudio(ctx, combined, req.Speech, req.Music, withAudio); err != nil {
		return "", fmt.Errorf("mixing audio: %w", err)
	}

	// 4. Burn subtitles, or promote the mixed file to the final output.
	if req.Subtitle != nil {
		temps = append(temps, withAudio)
		if err := f.burnSubtitles(ctx, withAudio, *req.Subtitle, req.Height, req.OutputPath); err != nil {
			return "", fmt.Errorf("burning subtitles: %w", err)
		}
	} else if err := os.Rename(withAudio, req.OutputPath); err != nil {
		return "", fmt.Errorf("moving output: %w", err)
	}

	f.logger.Infof("Rendered %s from %d clips", req.OutputPath, len(req.Clips))

	return req.OutputPath, nil
}

func (f *FFmpeg) prepareClip(ctx context.Context, clip ClipSpec, width, height int, transition model.TransitionMode, out string) error {
	vf := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		width, height, width, height)
	if fade := fadeFilter(transition, clip.Length); fade != "" {
		vf += "," + fade
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if clip.Start > 0 {
		args = append(args, "-ss", formatSeconds(clip.Start))
	}
	args = append(args,
		"-i", clip.Path,
		"-t", formatSeconds(clip.Length),
		"-vf", vf,
		"-an",
		"-c:v", "libx264", "-preset", "ultrafast",
		out,
	)

	return f.run(ctx, args...)
}

func (f *FFmpeg) prepareImage(ctx context.Context, clip ClipSpec, width, height int, out string) error {
	frames := int(clip.Length.Seconds() * 25)
	if frames < 25 {
		frames = 25
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1",
		"-i", clip.Path,
		"-t", formatSeconds(clip.Length),
		"-vf", fmt.Sprintf("zoompan=z='min(1.0+(in/%d)*0.2,1.2)':d=1:s=%dx%d", frames, width, height),
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-r", "30",
		out,
	}

	return f.run(ctx, args...)
}

func (f *FFmpeg) concat(ctx context.Context, files []string, out string) error {
	if len(files) == 1 {
		return os.Rename(files[0], out)
	}

	var sb strings.Builder
	for _, p := range files {
		fmt.Fprintf(&sb, "file '%s'\n", p)
	}

	list := out + ".txt"
	if err := os.WriteFile(list, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing concat list: %w", err)
	}
	defer os.Remove(list)

	return f.run(ctx,
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", list,
		"-an",
		"-c:v", "copy",
		out,
	)
}

func (f *FFmpeg) mixAudio(ctx context.Context, video string, speech AudioSpec, music *AudioSpec, out string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", video,
		"-i", speech.Path,
	}

	if music != nil {
		// Music is looped under the narration, faded and cut with the
		// video by -shortest.
		filter := fmt.Sprintf(
			"[1:a]volume=%s[a1];[2:a]volume=%s,afade=out:st=3:d=3,aloop=loop=-1:size=0[a2];[a1][a2]amix=inputs=2:duration=first[a]",
			formatFloat(speech.Gain), formatFloat(music.Gain),
		)
		args = append(args,
			"-i", music.Path,
			"-filter_complex", filter,
			"-map", "0:v", "-map", "[a]",
			"-c:v", "copy", "-c:a", "aac", "-shortest",
			out,
		)
	} else {
		args = append(args,
			"-filter_complex", fmt.Sprintf("[1:a]volume=%s[a]", formatFloat(speech.Gain)),
			"-map", "0:v", "-map", "[a]",
			"-c:v", "copy", "-c:a", "aac",
			out,
		)
	}

	return f.run(ctx, args...)
}

func (f *FFmpeg) burnSubtitles(ctx context.Context, video string, sub SubtitleSpec, height int, out string) error {
	vf := fmt.Sprintf("subtitles='%s':force_style='%s'", sub.Path, subtitleStyle(sub.Style, height))

	return f.run(ctx,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", video,
		"-vf", vf,
		"-c:v", "libx264", "-preset", "medium",
		"-c:a", "copy",
		out,
	)
}

func (f *FFmpeg) run(ctx context.Context, args ...string) error {
	f.logger.Debugf("Running %s %s", f.binary, strings.Join(args, " "))

	res, err := f.runner.Run(ctx, f.binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed (exit %d): %s", f.binary, res.ExitCode, tail(res.Stderr))
	}

	return nil
}

// subtitleStyle builds the libass force_style string. Configured sizes target
// a 1080p canvas and are capped relative to the output height.
func subtitleStyle(cfg model.SubtitleConfig, height int) string {
	if height <= 0 {
		height = 1080
	}
	size := cfg.FontSize / 3
	if maxSize := 24 * height / 1080; size > maxSize {
		size = maxSize
	}

	outline := cfg.StrokeWidth
	if outline > 0.8 {
		outline = 0.8
	}

	alignment := 2
	switch cfg.Position {
	case model.SubtitlePositionTop:
		alignment = 6
	case model.SubtitlePositionCenter:
		alignment = 10
	}

	return fmt.Sprintf(
		"FontName=%s,FontSize=%d,PrimaryColour=%s,OutlineColour=%s,BorderStyle=1,Outline=%s,Alignment=%d,MarginV=30,Bold=0,Shadow=0",
		cfg.FontName, size, assColor(cfg.TextColor), assColor(cfg.StrokeColor), formatFloat(outline), alignment,
	)
}

// assColor converts "#RRGGBB" into the BGR form libass expects.
func assColor(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return "&HFFFFFF&"
	}
	return fmt.Sprintf("&H%s%s%s&", hex[4:6], hex[2:4], hex[0:2])
}

func fadeFilter(mode model.TransitionMode, length time.Duration) string {
	switch mode {
	case model.TransitionFadeIn:
		return "fade=t=in:st=0:d=1"
	case model.TransitionFadeOut:
		st := length.Seconds() - 1
		if st < 0 {
			st = 0
		}
		return fmt.Sprintf("fade=t=out:st=%s:d=1", strconv.FormatFloat(st, 'f', -1, 64))
	}
	return ""
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 400
	if len(s) > max {
		return "..." + s[len(s)-max:]
	}
	return s
}
