package keywords_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GiladLeef/ShortsTurbo/internal/provider/keywords"
)

func TestExtract(t *testing.T) {
	tests := map[string]struct {
		script   string
		limit    int
		expTerms []string
	}{
		"The most frequent meaningful words should win.": {
			script:   "The ocean waves crashed. Ocean water is cold, the waves kept coming, ocean spray everywhere.",
			limit:    2,
			expTerms: []string{"ocean", "waves"},
		},

		"Stopwords and short words should be ignored.": {
			script:   "It is a day at the sea, the sea is big.",
			limit:    3,
			expTerms: []string{"sea", "day", "big"},
		},

		"Ties should keep the order of first appearance.": {
			script:   "mountain river mountain river forest",
			limit:    3,
			expTerms: []string{"mountain", "river", "forest"},
		},

		"An empty script should yield no terms.": {
			script:   "",
			limit:    3,
			expTerms: []string{},
		},

		"A non-positive limit should fall back to a sane default.": {
			script:   "sunset sunset beach beach palm palm horizon horizon",
			limit:    0,
			expTerms: []string{"sunset", "beach", "palm"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			extractor, err := keywords.NewExtractor(keywords.ExtractorConfig{})
			require.NoError(err)

			terms, err := extractor.Extract(context.Background(), test.script, test.limit)
			require.NoError(err)
			assert.Equal(test.expTerms, append([]string{}, terms...))
		})
	}
}

func TestFromFilename(t *testing.T) {
	tests := map[string]struct {
		name     string
		expTerms []string
	}{
		"Underscores and dashes should split into terms.": {
			name:     "sunset_beach-waves.txt",
			expTerms: []string{"sunset", "beach", "waves"},
		},

		"Directories and extensions should be stripped.": {
			name:     "/data/scripts/City_Nights.md",
			expTerms: []string{"city", "nights"},
		},

		"Single letter fragments should be dropped.": {
			name:     "a_big_story.txt",
			expTerms: []string{"big", "story"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(test.expTerms, keywords.FromFilename(test.name))
		})
	}
}

func TestDefaultTerms(t *testing.T) {
	assert := assert.New(t)

	terms := keywords.DefaultTerms()
	assert.NotEmpty(terms)
	assert.Contains(terms, "nature")
}
