// Package subtitle derives subtitle timing from a script and the measured
// narration duration. The audio is never analyzed, each sentence simply gets
// a share of the total proportional to its length.
package subtitle

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

var terminators = map[rune]struct{}{
	'.': {}, '!': {}, '?': {}, ';': {}, '\n': {},
	'。': {}, '！': {}, '？': {}, '；': {}, '…': {},
}

func isTerminator(r rune) bool {
	_, ok := terminators[r]
	return ok
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func hasWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Segment splits a script into sentence segments on terminal punctuation.
// A period between two digits does not end a sentence, so "version 3.14"
// stays together. Runs of terminators collapse into one boundary and
// segments without any word content are dropped.
func Segment(script string) []string {
	runes := []rune(script)

	var segments []string
	var current []rune

	flush := func() {
		text := strings.TrimSpace(string(current))
		current = current[:0]
		if text == "" || !hasWord(text) {
			return
		}
		segments = append(segments, text)
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current = append(current, r)

		if !isTerminator(r) {
			continue
		}
		if r == '.' && i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1]) {
			continue
		}

		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
			current = append(current, runes[i])
		}
		flush()
	}
	flush()

	return segments
}

// Allocate distributes total across the segments proportionally to their
// rune length. Boundaries are computed cumulatively, so marks are contiguous,
// start times strictly increase and the last mark ends exactly at total.
func Allocate(segments []string, total time.Duration) ([]model.TimingMark, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to allocate")
	}
	if total <= 0 {
		return nil, fmt.Errorf("audio duration must be positive, got %s", total)
	}

	weights := make([]int64, len(segments))
	var totalWeight int64
	for i, s := range segments {
		w := int64(len([]rune(s)))
		if w == 0 {
			w = 1
		}
		weights[i] = w
		totalWeight += w
	}

	marks := make([]model.TimingMark, len(segments))
	var cumWeight int64
	var start time.Duration
	for i, s := range segments {
		cumWeight += weights[i]

		end := total
		if i < len(segments)-1 {
			end = time.Duration(total.Nanoseconds() * cumWeight / totalWeight)
		}

		marks[i] = model.TimingMark{
			Start: start,
			End:   end,
			Text:  s,
		}
		start = end
	}

	return marks, nil
}

// FormatSRT renders timing marks as an SRT document.
func FormatSRT(marks []model.TimingMark) string {
	var sb strings.Builder
	for i, m := range marks {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(m.Start), srtTimestamp(m.End), m.Text)
	}
	return sb.String()
}

func srtTimestamp(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
