package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

func clip(source, url string, d time.Duration) provider.Clip {
	return provider.Clip{Provider: source, URL: url, Duration: d}
}

func TestClipContribution(t *testing.T) {
	tests := map[string]struct {
		clip    provider.Clip
		ceiling time.Duration
		exp     time.Duration
	}{
		"A clip shorter than the ceiling contributes its full duration.": {
			clip:    clip("pexels", "u", 3*time.Second),
			ceiling: 5 * time.Second,
			exp:     3 * time.Second,
		},

		"A clip longer than the ceiling contributes one segment.": {
			clip:    clip("pexels", "u", 20*time.Second),
			ceiling: 5 * time.Second,
			exp:     5 * time.Second,
		},

		"An image contributes one animated segment.": {
			clip:    provider.Clip{Provider: "local", Path: "/m/a.jpg", Image: true},
			ceiling: 5 * time.Second,
			exp:     5 * time.Second,
		},

		"An unknown duration is assumed to fill a segment.": {
			clip:    clip("pexels", "u", 0),
			ceiling: 5 * time.Second,
			exp:     5 * time.Second,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, clipContribution(test.clip, test.ceiling))
		})
	}
}

func TestOrderClips(t *testing.T) {
	tests := map[string]struct {
		candidates []provider.Clip
		target     time.Duration
		ceiling    time.Duration
		expOrder   []string
	}{
		"Larger contributions should be picked first.": {
			candidates: []provider.Clip{
				clip("pexels", "short", 2*time.Second),
				clip("pexels", "long", 5*time.Second),
				clip("pexels", "mid", 3*time.Second),
			},
			target:   20 * time.Second,
			ceiling:  5 * time.Second,
			expOrder: []string{"long", "mid", "short"},
		},

		"Selection should stop once the target is covered.": {
			candidates: []provider.Clip{
				clip("pexels", "a", 5*time.Second),
				clip("pexels", "b", 5*time.Second),
				clip("pexels", "c", 5*time.Second),
			},
			target:   8 * time.Second,
			ceiling:  5 * time.Second,
			expOrder: []string{"a", "b"},
		},

		"Sources should alternate when more than one has clips.": {
			candidates: []provider.Clip{
				clip("pexels", "p1", 10*time.Second),
				clip("pexels", "p2", 10*time.Second),
				clip("local", "l1", 10*time.Second),
			},
			target:   15 * time.Second,
			ceiling:  5 * time.Second,
			expOrder: []string{"p1", "l1", "p2"},
		},

		"A single source should still cover the target.": {
			candidates: []provider.Clip{
				clip("pexels", "a", 10*time.Second),
				clip("pexels", "b", 10*time.Second),
			},
			target:   10 * time.Second,
			ceiling:  5 * time.Second,
			expOrder: []string{"a", "b"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ordered := orderClips(test.candidates, test.target, test.ceiling)

			got := []string{}
			for _, c := range ordered {
				got = append(got, c.URL)
			}
			assert.Equal(t, test.expOrder, got)
		})
	}
}

func TestBuildPicks(t *testing.T) {
	t.Run("Enough footage should not be reused.", func(t *testing.T) {
		clips := []provider.Clip{
			clip("pexels", "a", 5*time.Second),
			clip("pexels", "b", 5*time.Second),
			clip("pexels", "c", 5*time.Second),
		}

		picks, covered, reused := buildPicks(clips, 12*time.Second, 5*time.Second, 0)

		assert.False(t, reused)
		assert.Equal(t, 15*time.Second, covered)
		require.Len(t, picks, 3)
		for _, p := range picks {
			assert.Equal(t, time.Duration(0), p.start)
			assert.Equal(t, 5*time.Second, p.length)
		}
	})

	t.Run("Short footage should cycle again from the given offset.", func(t *testing.T) {
		clips := []provider.Clip{
			clip("pexels", "a", 3*time.Second),
			clip("pexels", "b", 3*time.Second),
		}

		picks, covered, reused := buildPicks(clips, 10*time.Second, 5*time.Second, 1)

		assert.True(t, reused)
		assert.Equal(t, 12*time.Second, covered)
		require.Len(t, picks, 4)

		// Base round in order, then the cycle starting at the offset.
		assert.Equal(t, "a", picks[0].clip.URL)
		assert.Equal(t, "b", picks[1].clip.URL)
		assert.Equal(t, "b", picks[2].clip.URL)
		assert.Equal(t, "a", picks[3].clip.URL)
	})

	t.Run("Long clips should contribute their later windows on reuse.", func(t *testing.T) {
		clips := []provider.Clip{clip("pexels", "a", 12*time.Second)}

		picks, covered, reused := buildPicks(clips, 14*time.Second, 5*time.Second, 0)

		assert.True(t, reused)
		assert.Equal(t, 15*time.Second, covered)
		require.Len(t, picks, 3)
		assert.Equal(t, time.Duration(0), picks[0].start)
		assert.Equal(t, 5*time.Second, picks[1].start)
		// The third window does not fit in 12s anymore, it wraps around.
		assert.Equal(t, time.Duration(0), picks[2].start)
	})

	t.Run("Images always animate a full segment from zero.", func(t *testing.T) {
		clips := []provider.Clip{{Provider: "local", Path: "/m/a.jpg", Image: true}}

		picks, covered, reused := buildPicks(clips, 12*time.Second, 5*time.Second, 0)

		assert.True(t, reused)
		assert.Equal(t, 15*time.Second, covered)
		require.Len(t, picks, 3)
		for _, p := range picks {
			assert.Equal(t, time.Duration(0), p.start)
			assert.Equal(t, 5*time.Second, p.length)
		}
	})
}

func TestPickOffset(t *testing.T) {
	assert.Equal(t, pickOffset("some-task", 7), pickOffset("some-task", 7))
	assert.Equal(t, 0, pickOffset("whatever", 0))

	for i := 0; i < 50; i++ {
		off := pickOffset("another-task", 5)
		assert.GreaterOrEqual(t, off, 0)
		assert.Less(t, off, 5)
	}
}
