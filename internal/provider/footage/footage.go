// Package footage implements the stock footage fetchers. Remote sources are
// queried over their HTTP APIs and cached per search term, the local source
// scans a directory of media files.
package footage

import (
	"fmt"

	"github.com/GiladLeef/ShortsTurbo/internal/model"
)

// orientation maps an aspect ratio to the orientation filter the stock APIs
// understand.
func orientation(aspect model.AspectRatio) string {
	switch aspect {
	case model.AspectLandscape:
		return "landscape"
	case model.AspectPortrait:
		return "portrait"
	default:
		return "square"
	}
}

func cacheKey(source, term string, aspect model.AspectRatio) string {
	return fmt.Sprintf("%s:%s:%s", source, term, aspect)
}

// variant is one downloadable rendition of a remote video.
type variant struct {
	url    string
	width  int
	height int
}

// pickVariant chooses the smallest rendition that still covers the target
// resolution, falling back to the largest one available.
func pickVariant(variants []variant, width, height int) (variant, bool) {
	var best variant
	var bestArea int
	var covering bool

	for _, v := range variants {
		if v.url == "" {
			continue
		}
		area := v.width * v.height
		covers := v.width >= width && v.height >= height

		switch {
		case covers && !covering:
			best, bestArea, covering = v, area, true
		case covers && area < bestArea:
			best, bestArea = v, area
		case !covers && !covering && area > bestArea:
			best, bestArea = v, area
		}
	}

	return best, best.url != ""
}
