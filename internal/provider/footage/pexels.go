package footage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"resty.dev/v3"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

const pexelsPerPage = 20

// PexelsConfig is the configuration for the Pexels fetcher.
type PexelsConfig struct {
	APIKey      string
	BaseURL     string
	CallTimeout time.Duration
	Retry       provider.RetryPolicy
	CacheTTL    time.Duration
	Logger      log.Logger
}

func (c *PexelsConfig) defaults() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.pexels.com"
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "footage.Pexels"})

	return nil
}

// Pexels fetches stock clips from the Pexels video search API.
type Pexels struct {
	client      *resty.Client
	cache       *gocache.Cache
	callTimeout time.Duration
	retry       provider.RetryPolicy
	logger      log.Logger
}

// NewPexels creates a new Pexels footage fetcher.
func NewPexels(cfg PexelsConfig) (*Pexels, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", cfg.APIKey).
		SetTimeout(cfg.CallTimeout)

	return &Pexels{
		client:      client,
		cache:       gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		callTimeout: cfg.CallTimeout,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
	}, nil
}

// Descriptor returns the provider descriptor.
func (p *Pexels) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:           "pexels",
		Capabilities:   []provider.Capability{provider.CapabilityFootage},
		CredentialsRef: "PEXELS_API_KEY",
		CallTimeout:    p.callTimeout,
		Retry:          p.retry,
	}
}

type pexelsVideoFile struct {
	Link   string `json:"link"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pexelsVideo struct {
	ID         int64             `json:"id"`
	Duration   int               `json:"duration"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsSearchResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

// Fetch searches Pexels once per term. Term results are cached, so repeated
// tasks with the same terms do not burn through the API quota.
func (p *Pexels) Fetch(ctx context.Context, req provider.FootageRequest) ([]provider.Clip, error) {
	width, height := req.Aspect.Resolution()

	clips := []provider.Clip{}
	seen := map[string]struct{}{}
	for _, term := range req.Terms {
		key := cacheKey("pexels", term, req.Aspect)
		if cached, ok := p.cache.Get(key); ok {
			clips = appendUnique(clips, cached.([]provider.Clip), seen)
			continue
		}

		var result pexelsSearchResponse
		resp, err := p.client.R().
			SetContext(ctx).
			SetResult(&result).
			SetQueryParams(map[string]string{
				"query":       term,
				"per_page":    strconv.Itoa(pexelsPerPage),
				"orientation": orientation(req.Aspect),
			}).
			Get("/videos/search")
		if err != nil {
			return nil, provider.NewTransient("pexels", fmt.Errorf("searching %q: %w", term, err))
		}
		if err := classifyStatus("pexels", resp.StatusCode(), resp.String()); err != nil {
			return nil, err
		}

		termClips := make([]provider.Clip, 0, len(result.Videos))
		for _, v := range result.Videos {
			duration := time.Duration(v.Duration) * time.Second
			if req.MinClipSecs > 0 && duration < req.MinClipSecs {
				continue
			}

			variants := make([]variant, 0, len(v.VideoFiles))
			for _, f := range v.VideoFiles {
				variants = append(variants, variant{url: f.Link, width: f.Width, height: f.Height})
			}
			best, ok := pickVariant(variants, width, height)
			if !ok {
				continue
			}

			termClips = append(termClips, provider.Clip{
				Provider: "pexels",
				URL:      best.url,
				Duration: duration,
				Width:    best.width,
				Height:   best.height,
			})
		}

		p.cache.Set(key, termClips, gocache.DefaultExpiration)
		p.logger.Debugf("Pexels search %q returned %d usable clips", term, len(termClips))

		clips = appendUnique(clips, termClips, seen)
	}

	if req.MaxPerSource > 0 && len(clips) > req.MaxPerSource {
		clips = clips[:req.MaxPerSource]
	}

	return clips, nil
}

// appendUnique merges clips deduplicated by URL, terms often share results.
func appendUnique(dst, src []provider.Clip, seen map[string]struct{}) []provider.Clip {
	for _, c := range src {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		dst = append(dst, c)
	}
	return dst
}

// classifyStatus maps an API response status to a provider error. Credential
// problems are permanent, rate limits and server errors are worth a retry.
func classifyStatus(name string, status int, body string) error {
	switch {
	case status == 200:
		return nil
	case status == 401 || status == 403:
		return provider.NewPermanent(name, fmt.Errorf("request rejected (status %d): check credentials", status))
	case status == 429:
		return provider.NewTransient(name, fmt.Errorf("rate limited (status %d)", status))
	case status >= 500:
		return provider.NewTransient(name, fmt.Errorf("server error (status %d)", status))
	default:
		return provider.NewPermanent(name, fmt.Errorf("unexpected status %d: %s", status, truncate(body, 200)))
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
