package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := map[string]struct {
		input int64
		exp   string
	}{
		"zero bytes": {
			input: 0,
			exp:   "0 B",
		},
		"negative bytes should return zero": {
			input: -100,
			exp:   "0 B",
		},
		"small bytes": {
			input: 730,
			exp:   "730 B",
		},
		"kilobytes": {
			input: 1536,
			exp:   "1.5 KB",
		},
		"a song-sized file": {
			input: 3*1024*1024 + 512*1024,
			exp:   "3.5 MB",
		},
		"a video-sized file": {
			input: 48 * 1024 * 1024,
			exp:   "48.0 MB",
		},
		"gigabytes": {
			input: 2 * 1024 * 1024 * 1024,
			exp:   "2.0 GB",
		},
		"terabytes": {
			input: 1024 * 1024 * 1024 * 1024,
			exp:   "1.0 TB",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, FormatBytes(test.input))
		})
	}
}
