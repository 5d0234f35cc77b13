package footage

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"resty.dev/v3"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

const pixabayPerPage = 50

// PixabayConfig is the configuration for the Pixabay fetcher.
type PixabayConfig struct {
	APIKey      string
	BaseURL     string
	CallTimeout time.Duration
	Retry       provider.RetryPolicy
	CacheTTL    time.Duration
	Logger      log.Logger
}

func (c *PixabayConfig) defaults() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://pixabay.com"
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "footage.Pixabay"})

	return nil
}

// Pixabay fetches stock clips from the Pixabay video API.
type Pixabay struct {
	client      *resty.Client
	apiKey      string
	cache       *gocache.Cache
	callTimeout time.Duration
	retry       provider.RetryPolicy
	logger      log.Logger
}

// NewPixabay creates a new Pixabay footage fetcher.
func NewPixabay(cfg PixabayConfig) (*Pixabay, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.CallTimeout)

	return &Pixabay{
		client:      client,
		apiKey:      cfg.APIKey,
		cache:       gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		callTimeout: cfg.CallTimeout,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
	}, nil
}

// Descriptor returns the provider descriptor.
func (p *Pixabay) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:           "pixabay",
		Capabilities:   []provider.Capability{provider.CapabilityFootage},
		CredentialsRef: "PIXABAY_API_KEY",
		CallTimeout:    p.callTimeout,
		Retry:          p.retry,
	}
}

type pixabayRendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pixabayHit struct {
	Duration int `json:"duration"`
	Videos   struct {
		Large  pixabayRendition `json:"large"`
		Medium pixabayRendition `json:"medium"`
		Small  pixabayRendition `json:"small"`
		Tiny   pixabayRendition `json:"tiny"`
	} `json:"videos"`
}

type pixabaySearchResponse struct {
	Hits []pixabayHit `json:"hits"`
}

// Fetch searches Pixabay once per term with the same caching behavior as the
// Pexels fetcher.
func (p *Pixabay) Fetch(ctx context.Context, req provider.FootageRequest) ([]provider.Clip, error) {
	width, height := req.Aspect.Resolution()

	clips := []provider.Clip{}
	seen := map[string]struct{}{}
	for _, term := range req.Terms {
		key := cacheKey("pixabay", term, req.Aspect)
		if cached, ok := p.cache.Get(key); ok {
			clips = appendUnique(clips, cached.([]provider.Clip), seen)
			continue
		}

		var result pixabaySearchResponse
		resp, err := p.client.R().
			SetContext(ctx).
			SetResult(&result).
			SetQueryParams(map[string]string{
				"key":        p.apiKey,
				"q":          term,
				"per_page":   fmt.Sprintf("%d", pixabayPerPage),
				"video_type": "film",
			}).
			Get("/api/videos/")
		if err != nil {
			return nil, provider.NewTransient("pixabay", fmt.Errorf("searching %q: %w", term, err))
		}
		if err := classifyStatus("pixabay", resp.StatusCode(), resp.String()); err != nil {
			return nil, err
		}

		termClips := make([]provider.Clip, 0, len(result.Hits))
		for _, hit := range result.Hits {
			duration := time.Duration(hit.Duration) * time.Second
			if req.MinClipSecs > 0 && duration < req.MinClipSecs {
				continue
			}

			best, ok := pickVariant([]variant{
				{url: hit.Videos.Large.URL, width: hit.Videos.Large.Width, height: hit.Videos.Large.Height},
				{url: hit.Videos.Medium.URL, width: hit.Videos.Medium.Width, height: hit.Videos.Medium.Height},
				{url: hit.Videos.Small.URL, width: hit.Videos.Small.Width, height: hit.Videos.Small.Height},
				{url: hit.Videos.Tiny.URL, width: hit.Videos.Tiny.Width, height: hit.Videos.Tiny.Height},
			}, width, height)
			if !ok {
				continue
			}

			termClips = append(termClips, provider.Clip{
				Provider: "pixabay",
				URL:      best.url,
				Duration: duration,
				Width:    best.width,
				Height:   best.height,
			})
		}

		p.cache.Set(key, termClips, gocache.DefaultExpiration)
		p.logger.Debugf("Pixabay search %q returned %d usable clips", term, len(termClips))

		clips = appendUnique(clips, termClips, seen)
	}

	if req.MaxPerSource > 0 && len(clips) > req.MaxPerSource {
		clips = clips[:req.MaxPerSource]
	}

	return clips, nil
}
