package pipeline

import (
	"hash/fnv"
	"sort"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

// pick is one segment of the final clip sequence: a window of a source clip.
type pick struct {
	clip   provider.Clip
	start  time.Duration
	length time.Duration
}

// clipContribution is how much footage time a single use of the clip adds.
// Images are animated for a full segment and unknown durations are assumed to
// fill one.
func clipContribution(c provider.Clip, ceiling time.Duration) time.Duration {
	if c.Image || c.Duration <= 0 || c.Duration > ceiling {
		return ceiling
	}
	return c.Duration
}

// orderClips greedily picks candidates until the target duration is covered,
// longest contribution first and avoiding back to back clips from the same
// source whenever another source still has clips to offer.
func orderClips(candidates []provider.Clip, target, ceiling time.Duration) []provider.Clip {
	remaining := append([]provider.Clip(nil), candidates...)
	sort.SliceStable(remaining, func(i, j int) bool {
		return clipContribution(remaining[i], ceiling) > clipContribution(remaining[j], ceiling)
	})

	ordered := make([]provider.Clip, 0, len(remaining))
	var covered time.Duration
	last := ""
	for len(remaining) > 0 && covered < target {
		idx := 0
		for i := range remaining {
			if remaining[i].Provider != last {
				idx = i
				break
			}
		}

		clip := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		ordered = append(ordered, clip)
		covered += clipContribution(clip, ceiling)
		last = clip.Provider
	}

	return ordered
}

// distinctCoverage is the footage time the clips cover without any reuse.
func distinctCoverage(clips []provider.Clip, ceiling time.Duration) time.Duration {
	var covered time.Duration
	for _, c := range clips {
		covered += clipContribution(c, ceiling)
	}
	return covered
}

// buildPicks turns the ordered clips into the segment sequence covering the
// target duration. When the clips alone fall short they are walked again from
// the given offset, preferring unused windows of clips long enough to have
// them.
func buildPicks(clips []provider.Clip, target, ceiling time.Duration, offset int) (picks []pick, covered time.Duration, reused bool) {
	picks = make([]pick, 0, len(clips))
	for _, c := range clips {
		length := clipContribution(c, ceiling)
		picks = append(picks, pick{clip: c, length: length})
		covered += length
	}
	if covered >= target || len(clips) == 0 {
		return picks, covered, false
	}

	rounds := make([]int, len(clips))
	for i := range rounds {
		rounds[i] = 1
	}

	i := offset % len(clips)
	for covered < target {
		c := clips[i]
		length := clipContribution(c, ceiling)
		start := time.Duration(rounds[i]) * ceiling
		if c.Image || c.Duration <= 0 || start+length > c.Duration {
			start = 0
		}

		picks = append(picks, pick{clip: c, start: start, length: length})
		covered += length
		rounds[i]++
		i = (i + 1) % len(clips)
	}

	return picks, covered, true
}

// pickOffset derives a stable per-task starting offset for clip reuse.
func pickOffset(taskID string, n int) int {
	if n <= 0 {
		return 0
	}
	return int(hashString(taskID) % uint64(n))
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
