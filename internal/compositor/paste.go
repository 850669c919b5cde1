package compositor

import (
	"fmt"

	"github.com/ironsheep/seal-compositor/internal/imaging"
)

// Composite copies every non-white pixel of patch into img at box and
// returns the object's mask.
//
// img is modified in place. Pixels already written by an earlier object are
// overwritten; there is no blending. White patch pixels leave both the image
// and the mask untouched.
func Composite(img, patch *imaging.RGB, box Box) (*imaging.Mask, error) {
	if box.Width() != patch.Width || box.Height() != patch.Height {
		return nil, fmt.Errorf("box %dx%d does not match patch %dx%d",
			box.Width(), box.Height(), patch.Width, patch.Height)
	}
	if box.XMin < 0 || box.YMin < 0 || box.XMax >= img.Width || box.YMax >= img.Height {
		return nil, fmt.Errorf("box (%d,%d)-(%d,%d) outside image %dx%d",
			box.XMin, box.YMin, box.XMax, box.YMax, img.Width, img.Height)
	}

	mask := imaging.NewMask(img.Width, img.Height)
	for dy := 0; dy < patch.Height; dy++ {
		for dx := 0; dx < patch.Width; dx++ {
			if patch.IsWhite(dx, dy) {
				continue
			}
			r, g, b := patch.At(dx, dy)
			img.Set(box.XMin+dx, box.YMin+dy, r, g, b)
			mask.Set(box.XMin+dx, box.YMin+dy)
		}
	}
	return mask, nil
}

// Union combines masks into a single width×height mask marking every pixel
// set in at least one input. Every input must be width×height. With no
// inputs the result is all zero.
func Union(width, height int, masks ...*imaging.Mask) *imaging.Mask {
	out := imaging.NewMask(width, height)
	for _, m := range masks {
		if m == nil {
			continue
		}
		for i, v := range m.Pix {
			if v != 0 {
				out.Pix[i] = imaging.MaskOn
			}
		}
	}
	return out
}
