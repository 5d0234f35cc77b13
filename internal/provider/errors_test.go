package provider_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

func TestErrorClassification(t *testing.T) {
	tests := map[string]struct {
		err          error
		expTransient bool
		expPermanent bool
	}{
		"A transient error should be detected as such.": {
			err:          provider.NewTransient("pexels", errors.New("429")),
			expTransient: true,
		},

		"A permanent error should be detected as such.": {
			err:          provider.NewPermanent("pexels", errors.New("401")),
			expPermanent: true,
		},

		"A wrapped classified error should keep its classification.": {
			err:          fmt.Errorf("fetching footage: %w", provider.NewTransient("pixabay", errors.New("503"))),
			expTransient: true,
		},

		"A plain error should not be classified.": {
			err: errors.New("boom"),
		},

		"A nil error should not be classified.": {
			err: nil,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(test.expTransient, provider.IsTransient(test.err))
			assert.Equal(test.expPermanent, provider.IsPermanent(test.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	assert := assert.New(t)

	cause := errors.New("connection reset")
	err := provider.NewTransient("pexels", cause)

	assert.ErrorIs(err, cause)
	assert.Contains(err.Error(), "pexels")
	assert.Contains(err.Error(), "transient")
}
