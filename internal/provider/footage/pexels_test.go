package footage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
	"github.com/GiladLeef/ShortsTurbo/internal/provider/footage"
)

const pexelsSearchBody = `{
	"videos": [
		{
			"id": 1,
			"duration": 15,
			"video_files": [
				{"link": "https://cdn.example/one-small.mp4", "width": 640, "height": 360},
				{"link": "https://cdn.example/one-hd.mp4", "width": 1920, "height": 1080},
				{"link": "https://cdn.example/one-uhd.mp4", "width": 3840, "height": 2160}
			]
		},
		{
			"id": 2,
			"duration": 3,
			"video_files": [
				{"link": "https://cdn.example/two-hd.mp4", "width": 1920, "height": 1080}
			]
		}
	]
}`

func TestPexelsFetch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)

		assert.Equal("/videos/search", r.URL.Path)
		assert.Equal("test-key", r.Header.Get("Authorization"))
		assert.Equal("ocean", r.URL.Query().Get("query"))
		assert.Equal("landscape", r.URL.Query().Get("orientation"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pexelsSearchBody))
	}))
	defer server.Close()

	fetcher, err := footage.NewPexels(footage.PexelsConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(err)

	req := provider.FootageRequest{
		Terms:       []string{"ocean"},
		Aspect:      model.AspectLandscape,
		MinClipSecs: 5 * time.Second,
	}

	clips, err := fetcher.Fetch(context.Background(), req)
	require.NoError(err)

	// The 3s video is filtered out, the 15s one picks the smallest
	// rendition covering 1920x1080.
	require.Len(clips, 1)
	assert.Equal("pexels", clips[0].Provider)
	assert.Equal("https://cdn.example/one-hd.mp4", clips[0].URL)
	assert.Equal(15*time.Second, clips[0].Duration)

	// The second fetch is served from the cache.
	_, err = fetcher.Fetch(context.Background(), req)
	require.NoError(err)
	assert.Equal(int64(1), atomic.LoadInt64(&hits))
}

func TestPexelsFetchErrors(t *testing.T) {
	tests := map[string]struct {
		status       int
		expTransient bool
		expPermanent bool
	}{
		"An auth failure should be permanent.":  {status: http.StatusUnauthorized, expPermanent: true},
		"A rate limit should be transient.":     {status: http.StatusTooManyRequests, expTransient: true},
		"A server error should be transient.":   {status: http.StatusBadGateway, expTransient: true},
		"An unexpected 4xx should be permanent": {status: http.StatusBadRequest, expPermanent: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
			}))
			defer server.Close()

			fetcher, err := footage.NewPexels(footage.PexelsConfig{
				APIKey:  "test-key",
				BaseURL: server.URL,
			})
			require.NoError(err)

			_, err = fetcher.Fetch(context.Background(), provider.FootageRequest{
				Terms:  []string{"ocean"},
				Aspect: model.AspectLandscape,
			})

			assert.Error(err)
			assert.Equal(test.expTransient, provider.IsTransient(err))
			assert.Equal(test.expPermanent, provider.IsPermanent(err))
		})
	}
}

func TestPexelsRequiresAPIKey(t *testing.T) {
	assert := assert.New(t)

	_, err := footage.NewPexels(footage.PexelsConfig{})
	assert.Error(err)
}
