package provider

import (
	"context"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

// Capability identifies a function an external provider can serve.
type Capability string

const (
	CapabilitySpeech   Capability = "speech"
	CapabilityFootage  Capability = "footage"
	CapabilityKeywords Capability = "keywords"
)

// Descriptor describes a provider adapter: how it is identified, what it can
// do and how calls against it are bounded.
type Descriptor struct {
	Name           string
	Capabilities   []Capability
	CredentialsRef string
	CallTimeout    time.Duration
	Retry          RetryPolicy
}

// Has returns true if the descriptor declares the given capability.
func (d Descriptor) Has(c Capability) bool {
	for _, dc := range d.Capabilities {
		if dc == c {
			return true
		}
	}
	return false
}

// SpeechRequest is a single speech synthesis call. Voice volume is not part
// of it, loudness is applied later when audio tracks are mixed.
type SpeechRequest struct {
	Script     string
	Voice      string
	Rate       float64
	OutputPath string
}

// SpeechResult is the outcome of a speech synthesis call. Marks are optional
// per-sentence timings, only set when the provider reports them.
type SpeechResult struct {
	AudioPath string
	Duration  time.Duration
	Marks     []model.TimingMark
}

// SpeechSynthesizer converts a text script into an audio file.
type SpeechSynthesizer interface {
	Descriptor() Descriptor
	Synthesize(ctx context.Context, req SpeechRequest) (*SpeechResult, error)
}

// Clip is a single piece of footage offered by a fetcher. Remote clips carry
// an URL and are materialized later, local clips already have a Path.
type Clip struct {
	Provider string
	URL      string
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	Image    bool
}

// FootageRequest asks fetchers for candidate clips matching the search terms.
type FootageRequest struct {
	Terms        []string
	Aspect       model.AspectRatio
	MinClipSecs  time.Duration
	TotalNeeded  time.Duration
	MaxPerSource int
}

// FootageFetcher searches one footage source for candidate clips.
type FootageFetcher interface {
	Descriptor() Descriptor
	Fetch(ctx context.Context, req FootageRequest) ([]Clip, error)
}

// KeywordExtractor derives search terms from a script when the task does not
// set them explicitly.
type KeywordExtractor interface {
	Descriptor() Descriptor
	Extract(ctx context.Context, script string, limit int) ([]string, error)
}
