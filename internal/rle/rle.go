// Package rle implements the uncompressed COCO run-length encoding of binary
// masks.
//
// A mask is flattened column by column (down each column, then to the next
// column) and described as alternating run lengths, starting with a run of
// background pixels. When the first pixel is foreground the encoding starts
// with a zero-length background run, so even indices always count
// background and odd indices always count foreground.
package rle

import (
	"errors"
	"fmt"

	"github.com/ironsheep/seal-compositor/internal/imaging"
)

// ErrSizeMismatch is returned when the run lengths do not add up to the
// mask size.
var ErrSizeMismatch = errors.New("rle counts do not match mask size")

// RLE is a COCO uncompressed run-length encoding.
type RLE struct {
	// Counts holds alternating background/foreground run lengths.
	Counts []int `json:"counts"`

	// Size is [height, width].
	Size [2]int `json:"size"`
}

// Encode run-length encodes m in column-major order.
func Encode(m *imaging.Mask) RLE {
	r := RLE{Size: [2]int{m.Height, m.Width}, Counts: []int{}}
	if m.Width == 0 || m.Height == 0 {
		return r
	}

	current := false
	run := 0
	for x := 0; x < m.Width; x++ {
		for y := 0; y < m.Height; y++ {
			v := m.Pix[y*m.Width+x] != 0
			if v != current {
				r.Counts = append(r.Counts, run)
				current = v
				run = 0
			}
			run++
		}
	}
	r.Counts = append(r.Counts, run)
	return r
}

// Decode rebuilds the mask described by r.
func Decode(r RLE) (*imaging.Mask, error) {
	height, width := r.Size[0], r.Size[1]
	if height < 0 || width < 0 {
		return nil, fmt.Errorf("invalid rle size %dx%d", height, width)
	}

	total := 0
	for i, c := range r.Counts {
		if c < 0 {
			return nil, fmt.Errorf("negative run length %d at index %d", c, i)
		}
		total += c
	}
	if total != height*width {
		return nil, fmt.Errorf("%w: counts sum to %d, want %d", ErrSizeMismatch, total, height*width)
	}

	m := imaging.NewMask(width, height)
	pos := 0
	for i, c := range r.Counts {
		if i%2 == 1 {
			for k := pos; k < pos+c; k++ {
				x, y := k/height, k%height
				m.Pix[y*width+x] = imaging.MaskOn
			}
		}
		pos += c
	}
	return m, nil
}

// Area returns the number of foreground pixels described by r.
func Area(r RLE) int {
	area := 0
	for i := 1; i < len(r.Counts); i += 2 {
		area += r.Counts[i]
	}
	return area
}

// Sum returns the total of all run lengths, which equals height*width for a
// valid encoding.
func Sum(r RLE) int {
	total := 0
	for _, c := range r.Counts {
		total += c
	}
	return total
}
