package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

// fakeRunner records invocations and writes the output file each command
// would produce (the last argument is always the output path).
type fakeRunner struct {
	t     *testing.T
	calls [][]string
	fail  func(call int) error
	lists []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	f.calls = append(f.calls, append([]string{name}, args...))

	if f.fail != nil {
		if err := f.fail(len(f.calls)); err != nil {
			return commandResult{Stderr: "boom", ExitCode: 1}, err
		}
	}

	// Capture concat list contents before they are removed.
	for i, a := range args {
		if a == "-f" && i+1 < len(args) && args[i+1] == "concat" {
			data, err := os.ReadFile(argAfter(args, "-i"))
			require.NoError(f.t, err)
			f.lists = append(f.lists, string(data))
		}
	}

	out := args[len(args)-1]
	require.NoError(f.t, os.WriteFile(out, []byte("media"), 0o644))

	return commandResult{}, nil
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newTestFFmpeg(t *testing.T) (*FFmpeg, *fakeRunner) {
	f, err := NewFFmpeg(FFmpegConfig{})
	require.NoError(t, err)

	runner := &fakeRunner{t: t}
	f.runner = runner

	return f, runner
}

func joined(call []string) string {
	return strings.Join(call, " ")
}

func TestRenderFullChain(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	workDir := t.TempDir()
	f, runner := newTestFFmpeg(t)

	out, err := f.Render(context.Background(), Request{
		Clips: []ClipSpec{
			{Path: "/clips/a.mp4", Start: 0, Length: 5 * time.Second},
			{Path: "/clips/b.mp4", Start: 3 * time.Second, Length: 4 * time.Second},
		},
		Speech: AudioSpec{Path: "/task/audio.mp3", Gain: 1},
		Music:  &AudioSpec{Path: "/songs/song.mp3", Gain: 0.2},
		Subtitle: &SubtitleSpec{
			Path: "/task/subtitle.srt",
			Style: model.SubtitleConfig{
				Enabled:     true,
				FontName:    "Arial",
				FontSize:    60,
				Position:    model.SubtitlePositionBottom,
				TextColor:   "#FFFFFF",
				StrokeColor: "#000000",
				StrokeWidth: 1.5,
			},
		},
		Width:      1080,
		Height:     1920,
		WorkDir:    workDir,
		OutputPath: filepath.Join(workDir, "final-1.mp4"),
	})

	require.NoError(err)
	assert.Equal(filepath.Join(workDir, "final-1.mp4"), out)
	require.Len(runner.calls, 5)

	// Clip preparation scales and pads to the portrait canvas.
	prep0 := joined(runner.calls[0])
	assert.Contains(prep0, "scale=1080:1920:force_original_aspect_ratio=decrease")
	assert.Contains(prep0, "pad=1080:1920:(ow-iw)/2:(oh-ih)/2")
	assert.Contains(prep0, "-an")
	assert.NotContains(prep0, "-ss")

	// The second clip starts mid-source.
	prep1 := runner.calls[1]
	assert.Equal("3", argAfter(prep1[1:], "-ss"))
	assert.Equal("4", argAfter(prep1[1:], "-t"))

	// Concatenation uses a demuxer list with both prepared segments.
	require.Len(runner.lists, 1)
	assert.Contains(runner.lists[0], "processed-0.mp4'")
	assert.Contains(runner.lists[0], "processed-1.mp4'")

	// Audio mixing loops the music under the narration.
	mix := joined(runner.calls[3])
	assert.Contains(mix, "/task/audio.mp3")
	assert.Contains(mix, "/songs/song.mp3")
	assert.Contains(mix, "[1:a]volume=1[a1]")
	assert.Contains(mix, "volume=0.2,afade=out:st=3:d=3,aloop=loop=-1:size=0[a2]")
	assert.Contains(mix, "amix=inputs=2:duration=first[a]")
	assert.Contains(mix, "-shortest")

	// Subtitles are burned last with the configured style.
	burn := joined(runner.calls[4])
	assert.Contains(burn, "subtitles='/task/subtitle.srt'")
	assert.Contains(burn, "FontName=Arial")
	assert.Contains(burn, "FontSize=20")
	assert.Contains(burn, "PrimaryColour=&HFFFFFF&")
	assert.Contains(burn, "OutlineColour=&H000000&")
	assert.Contains(burn, "Outline=0.8")
	assert.Contains(burn, "Alignment=2")

	// Intermediates are cleaned up.
	entries, err := os.ReadDir(workDir)
	require.NoError(err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal([]string{"final-1.mp4"}, names)
}

func TestRenderSingleClipNoExtras(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	workDir := t.TempDir()
	f, runner := newTestFFmpeg(t)

	out, err := f.Render(context.Background(), Request{
		Clips:      []ClipSpec{{Path: "/clips/a.mp4", Length: 5 * time.Second}},
		Speech:     AudioSpec{Path: "/task/audio.mp3", Gain: 1},
		Width:      1920,
		Height:     1080,
		WorkDir:    workDir,
		OutputPath: filepath.Join(workDir, "final-1.mp4"),
	})

	require.NoError(err)
	assert.FileExists(out)

	// One clip means no concat invocation: prepare, then mix.
	require.Len(runner.calls, 2)
	mix := joined(runner.calls[1])
	assert.Contains(mix, "[1:a]volume=1[a]")
	assert.NotContains(mix, "amix")
	assert.NotContains(mix, "-shortest")
}

func TestRenderImageClipUsesZoomPan(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	workDir := t.TempDir()
	f, runner := newTestFFmpeg(t)

	_, err := f.Render(context.Background(), Request{
		Clips:      []ClipSpec{{Path: "/clips/photo.jpg", Length: 5 * time.Second, Image: true}},
		Speech:     AudioSpec{Path: "/task/audio.mp3", Gain: 1},
		Width:      1080,
		Height:     1080,
		WorkDir:    workDir,
		OutputPath: filepath.Join(workDir, "final-1.mp4"),
	})

	require.NoError(err)
	prep := joined(runner.calls[0])
	assert.Contains(prep, "-loop 1")
	assert.Contains(prep, "zoompan=")
	assert.Contains(prep, "s=1080x1080")
	assert.Contains(prep, "-pix_fmt yuv420p")
}

func TestRenderFailures(t *testing.T) {
	tests := map[string]struct {
		req      func(workDir string) Request
		failCall int
		expErr   string
	}{
		"Rendering without clips should fail.": {
			req: func(workDir string) Request {
				return Request{
					Speech:     AudioSpec{Path: "/task/audio.mp3", Gain: 1},
					Width:      1080,
					Height:     1920,
					WorkDir:    workDir,
					OutputPath: filepath.Join(workDir, "final-1.mp4"),
				}
			},
			expErr: "no clips",
		},

		"Rendering without a speech track should fail.": {
			req: func(workDir string) Request {
				return Request{
					Clips:      []ClipSpec{{Path: "/clips/a.mp4", Length: time.Second}},
					Width:      1080,
					Height:     1920,
					WorkDir:    workDir,
					OutputPath: filepath.Join(workDir, "final-1.mp4"),
				}
			},
			expErr: "no speech track",
		},

		"A failing clip preparation should abort the render.": {
			req: func(workDir string) Request {
				return Request{
					Clips:      []ClipSpec{{Path: "/clips/a.mp4", Length: time.Second}},
					Speech:     AudioSpec{Path: "/task/audio.mp3", Gain: 1},
					Width:      1080,
					Height:     1920,
					WorkDir:    workDir,
					OutputPath: filepath.Join(workDir, "final-1.mp4"),
				}
			},
			failCall: 1,
			expErr:   "preparing clip 0",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			f, runner := newTestFFmpeg(t)
			if test.failCall > 0 {
				failCall := test.failCall
				runner.fail = func(call int) error {
					if call == failCall {
						return errors.New("exit status 1")
					}
					return nil
				}
			}

			_, err := f.Render(context.Background(), test.req(t.TempDir()))

			assert.Error(err)
			assert.Contains(err.Error(), test.expErr)
		})
	}
}

func TestProbe(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f, err := NewFFmpeg(FFmpegConfig{})
	require.NoError(err)

	f.runner = &probeRunner{out: `{
		"streams": [
			{"codec_type": "video", "width": 1920, "height": 1080},
			{"codec_type": "audio"}
		],
		"format": {"duration": "12.480000"}
	}`}

	info, err := f.Probe(context.Background(), "/media/a.mp4")
	require.NoError(err)

	assert.InDelta(12.48, info.Duration.Seconds(), 0.001)
	assert.Equal(1920, info.Width)
	assert.Equal(1080, info.Height)
	assert.True(info.HasAudio)
}

func TestProbeFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f, err := NewFFmpeg(FFmpegConfig{})
	require.NoError(err)

	f.runner = &probeRunner{err: errors.New("exit status 1")}

	_, err = f.Probe(context.Background(), "/media/missing.mp4")
	assert.Error(err)
}

type probeRunner struct {
	out string
	err error
}

func (p *probeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if p.err != nil {
		return commandResult{Stderr: "no such file", ExitCode: 1}, p.err
	}
	return commandResult{Stdout: p.out}, nil
}

func TestSubtitleStyle(t *testing.T) {
	tests := map[string]struct {
		cfg    model.SubtitleConfig
		height int
		exp    []string
	}{
		"Bottom position should map to alignment 2 and cap the size.": {
			cfg:    model.SubtitleConfig{FontName: "Arial", FontSize: 200, Position: model.SubtitlePositionBottom, TextColor: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 1.5},
			height: 1080,
			exp:    []string{"Alignment=2", "FontSize=24", "Outline=0.8"},
		},

		"Top position should map to alignment 6.": {
			cfg:    model.SubtitleConfig{FontName: "Arial", FontSize: 60, Position: model.SubtitlePositionTop, TextColor: "#FF0000", StrokeColor: "#000000", StrokeWidth: 0.5},
			height: 1920,
			exp:    []string{"Alignment=6", "FontSize=20", "PrimaryColour=&H0000FF&", "Outline=0.5"},
		},

		"Center position should map to alignment 10.": {
			cfg:    model.SubtitleConfig{FontName: "Arial", FontSize: 60, Position: model.SubtitlePositionCenter, TextColor: "#FFFFFF", StrokeColor: "#000000", StrokeWidth: 1},
			height: 1080,
			exp:    []string{"Alignment=10"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			style := subtitleStyle(test.cfg, test.height)
			for _, e := range test.exp {
				assert.Contains(style, e)
			}
		})
	}
}
