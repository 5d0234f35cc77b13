package printer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GiladLeef/ShortsTurbo/internal/printer"
)

func TestTimeAgo(t *testing.T) {
	now := time.Now().UTC()

	tests := map[string]struct {
		time time.Time
		exp  string
	}{
		"moments ago renders in seconds": {
			time: now.Add(-10 * time.Second),
			exp:  "10 seconds ago (UTC)",
		},
		"a single unit drops the plural": {
			time: now.Add(-1 * time.Minute),
			exp:  "1 minute ago (UTC)",
		},
		"under an hour renders in minutes": {
			time: now.Add(-59 * time.Minute),
			exp:  "59 minutes ago (UTC)",
		},
		"under a day renders in hours": {
			time: now.Add(-23 * time.Hour),
			exp:  "23 hours ago (UTC)",
		},
		"older timestamps render in days": {
			time: now.Add(-3 * 24 * time.Hour),
			exp:  "3 days ago (UTC)",
		},
		"future timestamps are called out": {
			time: now.Add(5 * time.Minute),
			exp:  "in the future (UTC)",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.TimeAgo(test.time))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[string]struct {
		time time.Time
		exp  string
	}{
		"UTC timestamps render verbatim": {
			time: time.Date(2026, 8, 14, 9, 30, 5, 0, time.UTC),
			exp:  "2026-08-14 09:30:05 UTC",
		},
		"other zones are converted to UTC first": {
			time: time.Date(2026, 8, 14, 9, 30, 5, 0, time.FixedZone("CEST", 2*3600)),
			exp:  "2026-08-14 07:30:05 UTC",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.FormatTimestamp(test.time))
		})
	}
}
