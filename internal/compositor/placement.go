package compositor

import (
	"fmt"
	"math/rand"

	"github.com/ironsheep/seal-compositor/internal/imaging"
)

// MaxPlacementAttempts bounds the random search for one object.
const MaxPlacementAttempts = 50

// FailureReason explains why an object could not be placed.
type FailureReason string

const (
	// ReasonDoesNotFit means no center position keeps the whole patch inside
	// the image. No attempts are made.
	ReasonDoesNotFit FailureReason = "does_not_fit"

	// ReasonAttemptsExhausted means every attempt produced the wrong
	// conflict outcome.
	ReasonAttemptsExhausted FailureReason = "attempts_exhausted"
)

// Placement is the outcome of a location search: either a placed box or a
// failure reason.
type Placement struct {
	// Placed is true when Box holds a valid location.
	Placed bool `json:"placed"`

	// Box is the chosen location; zero when Placed is false.
	Box Box `json:"box"`

	// Conflict records whether the chosen footprint overlaps foreground.
	Conflict bool `json:"conflict"`

	// Attempts is the number of candidate positions tried.
	Attempts int `json:"attempts"`

	// Reason and Detail describe a failed placement.
	Reason FailureReason `json:"reason,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

func placed(box Box, conflict bool, attempts int) Placement {
	return Placement{Placed: true, Box: box, Conflict: conflict, Attempts: attempts}
}

func failed(reason FailureReason, attempts int, format string, args ...interface{}) Placement {
	return Placement{Reason: reason, Attempts: attempts, Detail: fmt.Sprintf(format, args...)}
}

// centerRange returns the inclusive range of valid center coordinates for an
// object of objSize pixels along an image axis of imgSize pixels.
//
// The lower bound keeps one pixel of margin before the object and the upper
// bound keeps two after it.
func centerRange(imgSize, objSize int) (lo, hi int, ok bool) {
	half := objSize / 2
	lo = half + 1
	hi = imgSize - half - 2
	return lo, hi, objSize > 0 && lo <= hi
}

// FindLocation searches for a position of patch inside img whose footprint
// overlaps the foreground of img exactly when requiresConflict is true.
//
// The segmentation of img is computed once and reused for every attempt.
// A patch that cannot fit fails immediately with ReasonDoesNotFit; otherwise
// up to MaxPlacementAttempts uniformly random centers are tried before
// failing with ReasonAttemptsExhausted.
func FindLocation(rng *rand.Rand, img, patch *imaging.RGB, category Category, requiresConflict bool) Placement {
	if p, ok := checkFit(img.Width, img.Height, patch); !ok {
		return p
	}
	return SearchLocation(rng, Segment(img), patch.Width, patch.Height, category, requiresConflict)
}

// SearchLocation runs the bounded random search against a precomputed
// segmentation for an object of the given size.
func SearchLocation(rng *rand.Rand, seg *Segmentation, objW, objH int, category Category, requiresConflict bool) Placement {
	xLo, xHi, okX := centerRange(seg.Width, objW)
	yLo, yHi, okY := centerRange(seg.Height, objH)
	if !okX || !okY {
		return failed(ReasonDoesNotFit, 0,
			"object %dx%d does not fit image %dx%d", objW, objH, seg.Width, seg.Height)
	}

	for attempt := 1; attempt <= MaxPlacementAttempts; attempt++ {
		cx := xLo + rng.Intn(xHi-xLo+1)
		cy := yLo + rng.Intn(yHi-yLo+1)
		x0 := cx - objW/2
		y0 := cy - objH/2

		conflict := seg.CountForeground(x0, y0, objW, objH) > 0
		if conflict != requiresConflict {
			continue
		}

		return placed(Box{
			Category: category,
			XMin:     x0,
			YMin:     y0,
			XMax:     x0 + objW - 1,
			YMax:     y0 + objH - 1,
		}, conflict, attempt)
	}

	want := "background"
	if requiresConflict {
		want = "foreground"
	}
	return failed(ReasonAttemptsExhausted, MaxPlacementAttempts,
		"no %s-overlapping position for %dx%d object in %d attempts", want, objW, objH, MaxPlacementAttempts)
}

func checkFit(imgW, imgH int, patch *imaging.RGB) (Placement, bool) {
	if patch.Empty() {
		return failed(ReasonDoesNotFit, 0, "object patch is empty"), false
	}
	_, _, okX := centerRange(imgW, patch.Width)
	_, _, okY := centerRange(imgH, patch.Height)
	if !okX || !okY {
		return failed(ReasonDoesNotFit, 0,
			"object %dx%d does not fit image %dx%d", patch.Width, patch.Height, imgW, imgH), false
	}
	return Placement{}, true
}
