package compositor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/ironsheep/seal-compositor/internal/imaging"
)

// ErrInvalidRatio is returned when a conflict ratio lies outside [0, 1].
var ErrInvalidRatio = errors.New("conflict ratio must be within [0, 1]")

// Object is one patch to paste, in the order it should be processed.
type Object struct {
	// Name identifies the object in logs and drop reports, usually the
	// patch file name.
	Name string

	// Patch holds the object's pixels. It is only read.
	Patch *imaging.RGB

	Category Category
}

// Drop records an object that could not be placed.
type Drop struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	Category Category      `json:"category_id"`
	Reason   FailureReason `json:"reason"`
	Detail   string        `json:"detail"`
}

// BatchResult is the outcome of pasting a batch of objects onto one image.
type BatchResult struct {
	// Image is the composited image. The base passed in is not modified.
	Image *imaging.RGB

	// Boxes and Masks describe the placed objects in processing order;
	// Boxes[i] and Masks[i] belong to input object Indices[i].
	Boxes   []Box
	Masks   []*imaging.Mask
	Indices []int

	// Combined is the union of Masks, all zero when nothing was placed.
	Combined *imaging.Mask

	// Dropped lists the objects that could not be placed.
	Dropped []Drop

	// Conflicts is the conflict requirement assigned to each input object.
	Conflicts []bool
}

// Scheduler pastes batches of objects onto images. All randomness comes from
// the generator passed to NewScheduler, so a seeded generator reproduces the
// same compositions.
//
// A Scheduler is not safe for concurrent use; give each worker its own.
type Scheduler struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// NewScheduler creates a scheduler drawing from rng. A nil logger discards
// log output.
func NewScheduler(rng *rand.Rand, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{rng: rng, logger: logger}
}

// ConflictFlags returns n conflict requirements of which floor(n*ratio) are
// true, in random order.
func (s *Scheduler) ConflictFlags(n int, ratio float64) ([]bool, error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRatio, ratio)
	}
	conflictN := int(math.Floor(float64(n) * ratio))
	flags := make([]bool, n)
	for i := 0; i < conflictN; i++ {
		flags[i] = true
	}
	s.rng.Shuffle(n, func(i, j int) {
		flags[i], flags[j] = flags[j], flags[i]
	})
	return flags, nil
}

// CompositeBatch pastes objects onto a copy of base, one after another.
//
// Each object is assigned a conflict requirement from a shuffled set in
// which floor(len(objects)*conflictRatio) require overlapping the
// foreground. Objects are processed in their given order and every placement
// segments the image as left by the previous pastes. Objects that cannot be
// placed are logged and reported in Dropped; the batch always completes, so
// len(Boxes)+len(Dropped) == len(objects).
func (s *Scheduler) CompositeBatch(base *imaging.RGB, objects []Object, conflictRatio float64) (*BatchResult, error) {
	if base.Empty() {
		return nil, fmt.Errorf("base image is empty")
	}
	flags, err := s.ConflictFlags(len(objects), conflictRatio)
	if err != nil {
		return nil, err
	}

	running := base.Clone()
	result := &BatchResult{
		Image:     running,
		Boxes:     make([]Box, 0, len(objects)),
		Masks:     make([]*imaging.Mask, 0, len(objects)),
		Indices:   make([]int, 0, len(objects)),
		Conflicts: flags,
	}

	for i, obj := range objects {
		p := FindLocation(s.rng, running, obj.Patch, obj.Category, flags[i])
		if !p.Placed {
			s.logger.Warn("dropped object: could not be placed",
				zap.Int("object", i),
				zap.String("name", obj.Name),
				zap.Stringer("category", obj.Category),
				zap.Bool("requires_conflict", flags[i]),
				zap.String("reason", string(p.Reason)),
				zap.String("detail", p.Detail))
			result.Dropped = append(result.Dropped, Drop{
				Index:    i,
				Name:     obj.Name,
				Category: obj.Category,
				Reason:   p.Reason,
				Detail:   p.Detail,
			})
			continue
		}

		mask, err := Composite(running, obj.Patch, p.Box)
		if err != nil {
			return nil, fmt.Errorf("object %d (%s): %w", i, obj.Name, err)
		}
		s.logger.Debug("placed object",
			zap.Int("object", i),
			zap.String("name", obj.Name),
			zap.String("box", p.Box.String()),
			zap.Bool("conflict", p.Conflict),
			zap.Int("attempts", p.Attempts))

		result.Boxes = append(result.Boxes, p.Box)
		result.Masks = append(result.Masks, mask)
		result.Indices = append(result.Indices, i)
	}

	result.Combined = Union(running.Width, running.Height, result.Masks...)
	return result, nil
}
