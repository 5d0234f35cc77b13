package model

import (
	"fmt"
	"time"
)

// AspectRatio is the output video aspect ratio.
type AspectRatio string

const (
	// AspectLandscape is the 16:9 horizontal format.
	AspectLandscape AspectRatio = "16:9"
	// AspectPortrait is the 9:16 vertical short-form format.
	AspectPortrait AspectRatio = "9:16"
	// AspectSquare is the 1:1 format.
	AspectSquare AspectRatio = "1:1"
)

// Resolution returns the pixel dimensions for the aspect ratio.
func (a AspectRatio) Resolution() (width, height int) {
	switch a {
	case AspectLandscape:
		return 1920, 1080
	case AspectPortrait:
		return 1080, 1920
	case AspectSquare:
		return 1080, 1080
	}
	return 0, 0
}

// FootageSource identifies a stock footage backend.
type FootageSource string

const (
	FootageSourcePexels  FootageSource = "pexels"
	FootageSourcePixabay FootageSource = "pixabay"
	FootageSourceLocal   FootageSource = "local"
)

// ConcatMode controls how selected clips are ordered per output video.
type ConcatMode string

const (
	// ConcatModeRandom shuffles the clip order per output video.
	ConcatModeRandom ConcatMode = "random"
	// ConcatModeSequential keeps clips in selection order.
	ConcatModeSequential ConcatMode = "sequential"
)

// TransitionMode controls the visual transition applied to clips.
type TransitionMode string

const (
	TransitionNone    TransitionMode = "none"
	TransitionFadeIn  TransitionMode = "fade_in"
	TransitionFadeOut TransitionMode = "fade_out"
)

// MusicMode controls background music selection.
type MusicMode string

const (
	// MusicModeNone renders without background music.
	MusicModeNone MusicMode = "none"
	// MusicModeRandom picks a random song from the music library.
	MusicModeRandom MusicMode = "random"
	// MusicModeFile uses an explicit song file.
	MusicModeFile MusicMode = "file"
)

// SubtitlePosition places the burned-in subtitles on the frame.
type SubtitlePosition string

const (
	SubtitlePositionTop    SubtitlePosition = "top"
	SubtitlePositionCenter SubtitlePosition = "center"
	SubtitlePositionBottom SubtitlePosition = "bottom"
)

// SubtitleConfig is the subtitle rendering style.
type SubtitleConfig struct {
	Enabled     bool
	FontName    string
	FontSize    int
	Position    SubtitlePosition
	TextColor   string
	StrokeColor string
	StrokeWidth float64
}

// MusicConfig is the background music selection and gain.
type MusicConfig struct {
	Mode MusicMode
	// File is the song file name inside the music library, only used with
	// MusicModeFile.
	File   string
	Volume float64
}

// GenerationConfig is the immutable per-task generation configuration. It is
// snapshotted at submission and never mutated after the task starts.
type GenerationConfig struct {
	Aspect      AspectRatio
	Voice       string
	VoiceRate   float64
	VoiceVolume float64
	Subtitle    SubtitleConfig
	Sources     []FootageSource
	SearchTerms []string
	// ClipDuration is the maximum seconds of footage taken from a single clip.
	ClipDuration time.Duration
	ConcatMode   ConcatMode
	Transition   TransitionMode
	Music        MusicConfig
	VideoCount   int
	// StopAfter ends the pipeline early after the named stage. Empty runs the
	// full pipeline.
	StopAfter Stage
}

// MaxVideoCount bounds the outputs a single task may request.
const MaxVideoCount = 5

// Default generation values applied to unset fields at submission.
const (
	DefaultVoice        = "en-US-JennyNeural-Female"
	DefaultVoiceRate    = 1.2
	DefaultVoiceVolume  = 1.0
	DefaultMusicVolume  = 0.2
	DefaultClipDuration = 5 * time.Second
	DefaultFontSize     = 60
	DefaultTextColor    = "#FFFFFF"
	DefaultStrokeColor  = "#000000"
	DefaultStrokeWidth  = 1.5
	DefaultVideoCount   = 1
)

// WithDefaults returns a copy of the configuration with zero-valued fields
// replaced by the default generation values. Explicit values are kept.
func (c GenerationConfig) WithDefaults() GenerationConfig {
	cc := c.Clone()

	if cc.Aspect == "" {
		cc.Aspect = AspectPortrait
	}
	if cc.Voice == "" {
		cc.Voice = DefaultVoice
	}
	if cc.VoiceRate == 0 {
		cc.VoiceRate = DefaultVoiceRate
	}
	if cc.VoiceVolume == 0 {
		cc.VoiceVolume = DefaultVoiceVolume
	}
	if len(cc.Sources) == 0 {
		cc.Sources = []FootageSource{FootageSourcePexels}
	}
	if cc.ClipDuration == 0 {
		cc.ClipDuration = DefaultClipDuration
	}
	if cc.ConcatMode == "" {
		cc.ConcatMode = ConcatModeRandom
	}
	if cc.Transition == "" {
		cc.Transition = TransitionNone
	}
	if cc.Music.Mode == "" {
		cc.Music.Mode = MusicModeRandom
	}
	if cc.Music.Volume == 0 {
		cc.Music.Volume = DefaultMusicVolume
	}
	if cc.VideoCount == 0 {
		cc.VideoCount = DefaultVideoCount
	}

	if cc.Subtitle.Enabled {
		if cc.Subtitle.FontSize == 0 {
			cc.Subtitle.FontSize = DefaultFontSize
		}
		if cc.Subtitle.Position == "" {
			cc.Subtitle.Position = SubtitlePositionBottom
		}
		if cc.Subtitle.TextColor == "" {
			cc.Subtitle.TextColor = DefaultTextColor
		}
		if cc.Subtitle.StrokeColor == "" {
			cc.Subtitle.StrokeColor = DefaultStrokeColor
		}
		if cc.Subtitle.StrokeWidth == 0 {
			cc.Subtitle.StrokeWidth = DefaultStrokeWidth
		}
	}

	return cc
}

// Validate validates the generation configuration.
func (c *GenerationConfig) Validate() error {
	switch c.Aspect {
	case AspectLandscape, AspectPortrait, AspectSquare:
	default:
		return fmt.Errorf("unknown aspect ratio %q: %w", c.Aspect, ErrNotValid)
	}

	if c.Voice == "" {
		return fmt.Errorf("voice is required: %w", ErrNotValid)
	}
	if c.VoiceRate <= 0 {
		return fmt.Errorf("voice rate must be positive: %w", ErrNotValid)
	}
	if c.VoiceVolume < 0 || c.VoiceVolume > 2 {
		return fmt.Errorf("voice volume must be in [0, 2]: %w", ErrNotValid)
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one footage source is required: %w", ErrNotValid)
	}
	for _, s := range c.Sources {
		switch s {
		case FootageSourcePexels, FootageSourcePixabay, FootageSourceLocal:
		default:
			return fmt.Errorf("unknown footage source %q: %w", s, ErrNotValid)
		}
	}

	if c.ClipDuration <= 0 {
		return fmt.Errorf("clip duration must be positive: %w", ErrNotValid)
	}

	switch c.ConcatMode {
	case ConcatModeRandom, ConcatModeSequential:
	default:
		return fmt.Errorf("unknown concat mode %q: %w", c.ConcatMode, ErrNotValid)
	}

	switch c.Transition {
	case TransitionNone, TransitionFadeIn, TransitionFadeOut:
	default:
		return fmt.Errorf("unknown transition %q: %w", c.Transition, ErrNotValid)
	}

	switch c.Music.Mode {
	case MusicModeNone, MusicModeRandom:
	case MusicModeFile:
		if c.Music.File == "" {
			return fmt.Errorf("music file is required with file music mode: %w", ErrNotValid)
		}
	default:
		return fmt.Errorf("unknown music mode %q: %w", c.Music.Mode, ErrNotValid)
	}
	if c.Music.Volume < 0 || c.Music.Volume > 1 {
		return fmt.Errorf("music volume must be in [0, 1]: %w", ErrNotValid)
	}

	if c.VideoCount < 1 || c.VideoCount > MaxVideoCount {
		return fmt.Errorf("video count must be in [1, %d]: %w", MaxVideoCount, ErrNotValid)
	}

	if c.Subtitle.Enabled {
		switch c.Subtitle.Position {
		case SubtitlePositionTop, SubtitlePositionCenter, SubtitlePositionBottom:
		default:
			return fmt.Errorf("unknown subtitle position %q: %w", c.Subtitle.Position, ErrNotValid)
		}
		if c.Subtitle.FontSize <= 0 {
			return fmt.Errorf("subtitle font size must be positive: %w", ErrNotValid)
		}
	}

	if c.StopAfter != "" && c.StopAfter.Index() < 0 {
		return fmt.Errorf("unknown stop-after stage %q: %w", c.StopAfter, ErrNotValid)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c GenerationConfig) Clone() GenerationConfig {
	cc := c
	if c.Sources != nil {
		cc.Sources = append([]FootageSource(nil), c.Sources...)
	}
	if c.SearchTerms != nil {
		cc.SearchTerms = append([]string(nil), c.SearchTerms...)
	}
	return cc
}
