package compositor

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/seal-compositor/internal/imaging"
)

const (
	// segmentSigma is the standard deviation of the smoothing kernel.
	segmentSigma = 1.0

	// gaussianTruncate cuts the kernel off at this many standard deviations.
	gaussianTruncate = 4.0

	// otsuBins is the histogram resolution used by the Otsu threshold.
	otsuBins = 256
)

// Segmentation classifies each pixel of an image as background or foreground.
type Segmentation struct {
	Width  int
	Height int

	// Background holds one entry per pixel, row-major; true means background.
	Background []bool

	// Threshold is the Otsu threshold applied to the smoothed grayscale image.
	Threshold float64

	// fgSum is a summed-area table of foreground pixels with one extra row
	// and column of zeros, so any rectangle can be queried in O(1).
	fgSum []int
}

// Segment separates foreground from background in img.
//
// # Algorithm
//
//  1. Grayscale conversion with ITU-R BT.709 luma weights
//     (0.2125*R + 0.7154*G + 0.0721*B) on channels scaled to [0,1]
//
//  2. Gaussian smoothing, sigma = 1, kernel truncated at 4 sigma, border
//     pixels replicated
//
//  3. Otsu threshold over a 256-bin histogram of the smoothed image; pixels
//     strictly above it form the bright set
//
//  4. Polarity: the background must be the strict majority class. The bright
//     set is kept as background when it covers more than half the image and
//     inverted otherwise
//
//  5. Morphological closing (dilation then erosion) with a 3x3 square
//
// The result depends only on the current pixels of img. Callers compositing
// several objects call Segment again after every paste, since pasted objects
// change the classification.
func Segment(img *imaging.RGB) *Segmentation {
	width, height := img.Width, img.Height
	seg := &Segmentation{
		Width:      width,
		Height:     height,
		Background: make([]bool, width*height),
	}
	if width == 0 || height == 0 {
		seg.buildSums()
		return seg
	}

	smoothed := gaussianSmooth(grayscale(img), width, height, segmentSigma)
	seg.Threshold = otsuThreshold(smoothed)

	bright := 0
	for i, v := range smoothed {
		if v > seg.Threshold {
			seg.Background[i] = true
			bright++
		}
	}
	if float64(bright) <= float64(len(smoothed))/2 {
		for i := range seg.Background {
			seg.Background[i] = !seg.Background[i]
		}
	}

	seg.Background = closeSquare3(seg.Background, width, height)
	seg.buildSums()
	return seg
}

// IsBackground reports whether (x, y) was classified as background.
func (s *Segmentation) IsBackground(x, y int) bool {
	return s.Background[y*s.Width+x]
}

// ForegroundCount returns the number of foreground pixels.
func (s *Segmentation) ForegroundCount() int {
	return s.fgSum[len(s.fgSum)-1]
}

// ForegroundFraction returns the share of pixels classified as foreground.
func (s *Segmentation) ForegroundFraction() float64 {
	total := s.Width * s.Height
	if total == 0 {
		return 0
	}
	return float64(s.ForegroundCount()) / float64(total)
}

// CountForeground returns the number of foreground pixels inside the
// rectangle with top-left (x, y) and the given size. The rectangle must lie
// within the image.
func (s *Segmentation) CountForeground(x, y, w, h int) int {
	stride := s.Width + 1
	x2, y2 := x+w, y+h
	return s.fgSum[y2*stride+x2] - s.fgSum[y*stride+x2] - s.fgSum[y2*stride+x] + s.fgSum[y*stride+x]
}

// ToImage renders the segmentation with background white and foreground black.
func (s *Segmentation) ToImage() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			if s.Background[y*s.Width+x] {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

func (s *Segmentation) buildSums() {
	stride := s.Width + 1
	s.fgSum = make([]int, stride*(s.Height+1))
	for y := 0; y < s.Height; y++ {
		rowSum := 0
		for x := 0; x < s.Width; x++ {
			if !s.Background[y*s.Width+x] {
				rowSum++
			}
			s.fgSum[(y+1)*stride+x+1] = s.fgSum[y*stride+x+1] + rowSum
		}
	}
}

// grayscale converts img to luminance values in [0,1].
func grayscale(img *imaging.RGB) []float64 {
	gray := make([]float64, img.Width*img.Height)
	for i := range gray {
		r := float64(img.Pix[i*3]) / 255.0
		g := float64(img.Pix[i*3+1]) / 255.0
		b := float64(img.Pix[i*3+2]) / 255.0
		gray[i] = 0.2125*r + 0.7154*g + 0.0721*b
	}
	return gray
}

// gaussianKernel returns normalized 1-D Gaussian weights of radius
// int(truncate*sigma + 0.5).
func gaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// gaussianSmooth applies a separable Gaussian blur. Border pixels use
// clamped (replicated) edge values.
func gaussianSmooth(src []float64, width, height int, sigma float64) []float64 {
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	tmp := make([]float64, len(src))
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			var sum float64
			for k, w := range kernel {
				sum += row[clamp(x+k-radius, 0, width-1)] * w
			}
			tmp[y*width+x] = sum
		}
	}

	out := make([]float64, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for k, w := range kernel {
				sum += tmp[clamp(y+k-radius, 0, height-1)*width+x] * w
			}
			out[y*width+x] = sum
		}
	}
	return out
}

// otsuThreshold returns the histogram bin center that maximizes the
// between-class variance of values. The histogram spans [min, max] of the
// input in otsuBins equal bins. A constant input returns its value.
func otsuThreshold(values []float64) float64 {
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return lo
	}

	edges := floats.Span(make([]float64, otsuBins+1), lo, hi)
	hist := make([]float64, otsuBins)
	scale := float64(otsuBins) / (hi - lo)
	for _, v := range values {
		i := int((v - lo) * scale)
		if i >= otsuBins {
			i = otsuBins - 1
		}
		// Floating-point rounding can put v one bin off its edges.
		if i > 0 && v < edges[i] {
			i--
		} else if i < otsuBins-1 && v >= edges[i+1] {
			i++
		}
		hist[i]++
	}

	centers := make([]float64, otsuBins)
	for i := range centers {
		centers[i] = (edges[i] + edges[i+1]) / 2
	}

	// Class weights and means for "at or below bin i" (1) and "at or above
	// bin i" (2). The first and last bins are never empty, so no weight is
	// zero.
	weighted := floats.MulTo(make([]float64, otsuBins), hist, centers)

	weight1 := floats.CumSum(make([]float64, otsuBins), hist)
	mean1 := floats.DivTo(make([]float64, otsuBins), floats.CumSum(make([]float64, otsuBins), weighted), weight1)

	weight2 := reverseCumSum(hist)
	mean2 := floats.DivTo(make([]float64, otsuBins), reverseCumSum(weighted), weight2)

	variance := make([]float64, otsuBins-1)
	for i := range variance {
		d := mean1[i] - mean2[i+1]
		variance[i] = weight1[i] * weight2[i+1] * d * d
	}

	return centers[floats.MaxIdx(variance)]
}

// reverseCumSum returns out[i] = sum(s[i:]).
func reverseCumSum(s []float64) []float64 {
	rev := make([]float64, len(s))
	copy(rev, s)
	floats.Reverse(rev)
	out := floats.CumSum(make([]float64, len(s)), rev)
	floats.Reverse(out)
	return out
}

// closeSquare3 performs a binary closing with a 3x3 square structuring
// element. Pixels outside the image do not take part in either pass.
func closeSquare3(mask []bool, width, height int) []bool {
	dilated := morph3(mask, width, height, true)
	return morph3(dilated, width, height, false)
}

// morph3 applies a 3x3 dilation (dilate=true: any neighbor set) or erosion
// (dilate=false: all neighbors set) as two separable passes.
func morph3(src []bool, width, height int, dilate bool) []bool {
	tmp := make([]bool, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := !dilate
			for dx := -1; dx <= 1; dx++ {
				px := x + dx
				if px < 0 || px >= width {
					continue
				}
				if src[y*width+px] == dilate {
					v = dilate
					break
				}
			}
			tmp[y*width+x] = v
		}
	}

	out := make([]bool, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := !dilate
			for dy := -1; dy <= 1; dy++ {
				py := y + dy
				if py < 0 || py >= height {
					continue
				}
				if tmp[py*width+x] == dilate {
					v = dilate
					break
				}
			}
			out[y*width+x] = v
		}
	}
	return out
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
