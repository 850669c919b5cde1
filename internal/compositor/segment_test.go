package compositor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/seal-compositor/internal/imaging"
)

func TestSegment_UniformImageIsAllBackground(t *testing.T) {
	for _, c := range [][3]uint8{{255, 255, 255}, {0, 0, 0}, {120, 80, 30}} {
		seg := Segment(imaging.NewUniformRGB(32, 24, c[0], c[1], c[2]))
		assert.Zero(t, seg.ForegroundCount(), "color %v", c)
		assert.Zero(t, seg.ForegroundFraction())
	}
}

func TestSegment_DarkObjectOnLightBackground(t *testing.T) {
	img := whiteImage(100, 100)
	fillRect(img, 40, 40, 20, 20, 0, 0, 0)

	seg := Segment(img)
	assert.True(t, seg.IsBackground(0, 0))
	assert.True(t, seg.IsBackground(99, 99))
	assert.False(t, seg.IsBackground(50, 50))

	assert.InDelta(t, 400, seg.ForegroundCount(), 100)
	assert.Equal(t, 16*16, seg.CountForeground(42, 42, 16, 16))
}

func TestSegment_BackgroundIsMajority(t *testing.T) {
	// A light object on a dark painting: the dark class is the majority and
	// must be treated as background.
	img := imaging.NewUniformRGB(100, 100, 0, 0, 0)
	fillRect(img, 40, 40, 20, 20, 255, 255, 255)

	seg := Segment(img)
	assert.True(t, seg.IsBackground(0, 0))
	assert.False(t, seg.IsBackground(50, 50))
	assert.Less(t, seg.ForegroundFraction(), 0.5)
}

func TestSegment_CountForegroundMatchesBruteForce(t *testing.T) {
	img := whiteImage(40, 30)
	fillRect(img, 5, 5, 10, 8, 20, 20, 20)
	fillRect(img, 25, 15, 9, 9, 200, 0, 0)
	seg := Segment(img)

	rects := [][4]int{{0, 0, 40, 30}, {3, 4, 10, 10}, {20, 10, 15, 15}, {39, 29, 1, 1}, {0, 0, 0, 0}}
	for _, r := range rects {
		want := 0
		for y := r[1]; y < r[1]+r[3]; y++ {
			for x := r[0]; x < r[0]+r[2]; x++ {
				if !seg.IsBackground(x, y) {
					want++
				}
			}
		}
		assert.Equal(t, want, seg.CountForeground(r[0], r[1], r[2], r[3]), "rect %v", r)
	}
}

func TestSegment_ToImage(t *testing.T) {
	img := whiteImage(30, 30)
	fillRect(img, 10, 10, 10, 10, 0, 0, 0)
	gray := Segment(img).ToImage()

	assert.Equal(t, uint8(255), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), gray.GrayAt(15, 15).Y)
}

func TestGrayscale(t *testing.T) {
	img := imaging.NewRGB(3, 1)
	img.Set(0, 0, 255, 0, 0)
	img.Set(1, 0, 0, 255, 0)
	img.Set(2, 0, 255, 255, 255)

	g := grayscale(img)
	assert.InDelta(t, 0.2125, g[0], 1e-9)
	assert.InDelta(t, 0.7154, g[1], 1e-9)
	assert.InDelta(t, 1.0, g[2], 1e-9)
}

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(1)
	require.Len(t, k, 9)
	assert.InDelta(t, 1.0, floats.Sum(k), 1e-12)
	for i := range k {
		assert.InDelta(t, k[i], k[len(k)-1-i], 1e-15)
	}
	assert.Equal(t, 4, floats.MaxIdx(k))
}

func TestGaussianSmooth_PreservesConstant(t *testing.T) {
	src := make([]float64, 7*5)
	for i := range src {
		src[i] = 0.4
	}
	out := gaussianSmooth(src, 7, 5, 1)
	for _, v := range out {
		assert.InDelta(t, 0.4, v, 1e-12)
	}
}

func TestOtsuThreshold(t *testing.T) {
	t.Run("constant", func(t *testing.T) {
		assert.Equal(t, 0.3, otsuThreshold([]float64{0.3, 0.3, 0.3}))
	})

	t.Run("two levels", func(t *testing.T) {
		values := []float64{0.2, 0.2, 0.2, 0.2, 0.8, 0.8, 0.8, 0.8}
		th := otsuThreshold(values)
		assert.Greater(t, th, 0.2)
		assert.Less(t, th, 0.8)
	})

	t.Run("bimodal", func(t *testing.T) {
		var values []float64
		for i := 0; i < 100; i++ {
			values = append(values, 0.1+0.001*float64(i%10))
			values = append(values, 0.9-0.001*float64(i%10))
		}
		th := otsuThreshold(values)
		assert.Greater(t, th, 0.1)
		assert.Less(t, th, 0.891)
	})

	t.Run("finite", func(t *testing.T) {
		th := otsuThreshold([]float64{0, 0.5, 1, 0.25, 0.75})
		assert.False(t, math.IsNaN(th))
	})
}

func TestReverseCumSum(t *testing.T) {
	assert.Equal(t, []float64{6, 5, 3}, reverseCumSum([]float64{1, 2, 3}))
}

func TestCloseSquare3(t *testing.T) {
	t.Run("fills single foreground pixel", func(t *testing.T) {
		mask := make([]bool, 25)
		for i := range mask {
			mask[i] = true
		}
		mask[12] = false

		out := closeSquare3(mask, 5, 5)
		for i, v := range out {
			assert.True(t, v, "pixel %d", i)
		}
	})

	t.Run("keeps wide foreground", func(t *testing.T) {
		const w, h = 7, 7
		mask := make([]bool, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				mask[y*w+x] = x < 2 || x > 4
			}
		}

		out := closeSquare3(mask, w, h)
		assert.Equal(t, mask, out)
	})

	t.Run("image border does not erode", func(t *testing.T) {
		mask := make([]bool, 16)
		for i := range mask {
			mask[i] = true
		}
		out := closeSquare3(mask, 4, 4)
		assert.Equal(t, mask, out)
	})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, clamp(-3, 0, 9))
	assert.Equal(t, 9, clamp(12, 0, 9))
	assert.Equal(t, 4, clamp(4, 0, 9))
}
