package compose

import (
	"context"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

// MediaInfo is the probed metadata of a media file.
type MediaInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	HasAudio bool
}

// ClipSpec is one footage segment of the final video. Start and Length select
// the part of the source file to use. Image clips are animated stills.
type ClipSpec struct {
	Path   string
	Start  time.Duration
	Length time.Duration
	Image  bool
}

// AudioSpec is an audio track with its mixing gain.
type AudioSpec struct {
	Path string
	Gain float64
}

// SubtitleSpec is a subtitle file to burn into the video.
type SubtitleSpec struct {
	Path  string
	Style model.SubtitleConfig
}

// Request describes one final video render.
type Request struct {
	Clips      []ClipSpec
	Speech     AudioSpec
	Music      *AudioSpec
	Subtitle   *SubtitleSpec
	Width      int
	Height     int
	Transition model.TransitionMode
	WorkDir    string
	OutputPath string
}

// Compositor renders final videos and probes media files.
type Compositor interface {
	Probe(ctx context.Context, path string) (*MediaInfo, error)
	Render(ctx context.Context, req Request) (string, error)
}
