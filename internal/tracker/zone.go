package tracker

import "math"

// Box is the live vertical geometry of one heading, in viewport
// coordinates (0 is the top edge of the viewport).
type Box struct {
	Anchor string  `json:"anchor"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Frame is one measurement of every tracked heading.
type Frame struct {
	Boxes          []Box   `json:"boxes"`
	ViewportHeight float64 `json:"viewport_height"`
}

// Zone is the reading band, as fractions of the viewport height.
type Zone struct {
	Top    float64
	Bottom float64
}

// DefaultZone is where the eye lands below the top edge.
var DefaultZone = Zone{Top: 0.2, Bottom: 0.4}

// Select picks the heading the reader is most plausibly reading.
//
// Headings overlapping the band win, closest top edge to the band midpoint
// first. Failing that, the heading entirely above the band with the largest
// top is the last one scrolled past. ok is false when neither exists.
func (z Zone) Select(f Frame) (anchor string, ok bool) {
	if f.ViewportHeight <= 0 {
		return "", false
	}
	zoneTop := f.ViewportHeight * z.Top
	zoneBottom := f.ViewportHeight * z.Bottom
	mid := (zoneTop + zoneBottom) / 2

	var (
		inZone    string
		bestDist  = math.Inf(1)
		above     string
		aboveTop  = math.Inf(-1)
		haveAbove bool
	)
	for _, b := range f.Boxes {
		if b.Anchor == "" {
			continue
		}
		bottom := math.Max(b.Bottom, b.Top)
		switch {
		case bottom <= zoneTop:
			if b.Top >= aboveTop {
				above, aboveTop, haveAbove = b.Anchor, b.Top, true
			}
		case b.Top < zoneBottom:
			if d := math.Abs(b.Top - mid); d < bestDist {
				inZone, bestDist = b.Anchor, d
			}
		}
	}

	if inZone != "" {
		return inZone, true
	}
	if haveAbove {
		return above, true
	}
	return "", false
}
