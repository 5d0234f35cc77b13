package printer

import (
	"fmt"
	"time"
)

// TimeAgo renders how long ago t was in the coarsest sensible unit,
// e.g. "5 seconds ago (UTC)" or "3 hours ago (UTC)".
func TimeAgo(t time.Time) string {
	elapsed := time.Now().UTC().Sub(t.UTC())
	if elapsed < 0 {
		return "in the future (UTC)"
	}

	var value int
	var unit string
	switch {
	case elapsed < time.Minute:
		value, unit = int(elapsed.Seconds()), "second"
	case elapsed < time.Hour:
		value, unit = int(elapsed.Minutes()), "minute"
	case elapsed < 24*time.Hour:
		value, unit = int(elapsed.Hours()), "hour"
	default:
		value, unit = int(elapsed.Hours()/24), "day"
	}

	if value == 1 {
		return fmt.Sprintf("1 %s ago (UTC)", unit)
	}
	return fmt.Sprintf("%d %ss ago (UTC)", value, unit)
}

// FormatTimestamp renders t as "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
