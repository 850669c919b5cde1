package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// RGB is a dense 8-bit, 3-channel raster.
//
// Pixels are stored row-major with three bytes per pixel, so the red
// component of pixel (x, y) lives at Pix[(y*Width+x)*3]. The compositor
// mutates RGB values in place; callers that share a raster (for example one
// returned by ImageCache.LoadRGB) must Clone it before writing.
type RGB struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRGB allocates a black raster of the given size.
func NewRGB(width, height int) *RGB {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &RGB{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// NewUniformRGB allocates a raster filled with a single color.
func NewUniformRGB(width, height int, r, g, b uint8) *RGB {
	img := NewRGB(width, height)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
	}
	return img
}

// FromImage converts any image.Image into an RGB raster.
//
// Fully transparent pixels become pure white, which is the transparency
// convention used for object patches. Partially transparent pixels keep
// their straight (non-premultiplied) color.
func FromImage(img image.Image) *RGB {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	out := NewRGB(bounds.Dx(), bounds.Dy())

	for y := 0; y < out.Height; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+out.Width*4]
		dst := out.Pix[y*out.Width*3 : (y+1)*out.Width*3]
		for x := 0; x < out.Width; x++ {
			if src[x*4+3] == 0 {
				dst[x*3], dst[x*3+1], dst[x*3+2] = 255, 255, 255
				continue
			}
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return out
}

// Empty reports whether the raster has no pixels.
func (r *RGB) Empty() bool {
	return r == nil || r.Width <= 0 || r.Height <= 0
}

// At returns the color components at (x, y).
func (r *RGB) At(x, y int) (uint8, uint8, uint8) {
	i := (y*r.Width + x) * 3
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// Set writes the color components at (x, y).
func (r *RGB) Set(x, y int, red, green, blue uint8) {
	i := (y*r.Width + x) * 3
	r.Pix[i] = red
	r.Pix[i+1] = green
	r.Pix[i+2] = blue
}

// IsWhite reports whether (x, y) holds pure white (255,255,255).
func (r *RGB) IsWhite(x, y int) bool {
	i := (y*r.Width + x) * 3
	return r.Pix[i] == 255 && r.Pix[i+1] == 255 && r.Pix[i+2] == 255
}

// Clone returns a deep copy of the raster.
func (r *RGB) Clone() *RGB {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &RGB{Width: r.Width, Height: r.Height, Pix: pix}
}

// ToNRGBA converts the raster to an opaque *image.NRGBA for encoding.
func (r *RGB) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			si := (y*r.Width + x) * 3
			di := y*out.Stride + x*4
			out.Pix[di] = r.Pix[si]
			out.Pix[di+1] = r.Pix[si+1]
			out.Pix[di+2] = r.Pix[si+2]
			out.Pix[di+3] = 255
		}
	}
	return out
}

// Mask is a binary raster holding 0 or 255 per pixel, stored row-major.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// MaskOn is the value of a set mask pixel.
const MaskOn uint8 = 255

// NewMask allocates an all-zero mask.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// MaskFromImage reads a mask image. A pixel is set when its first channel
// is non-zero, matching how single-channel and RGB mask files are written.
func MaskFromImage(img image.Image) *Mask {
	bounds := img.Bounds()
	m := NewMask(bounds.Dx(), bounds.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			r, _, _, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			if r>>8 > 0 {
				m.Pix[y*m.Width+x] = MaskOn
			}
		}
	}
	return m
}

// Set marks (x, y).
func (m *Mask) Set(x, y int) {
	m.Pix[y*m.Width+x] = MaskOn
}

// IsSet reports whether (x, y) is marked.
func (m *Mask) IsSet(x, y int) bool {
	return m.Pix[y*m.Width+x] != 0
}

// Count returns the number of marked pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Mask{Width: m.Width, Height: m.Height, Pix: pix}
}

// Equal reports whether two masks have the same size and marked pixels.
func (m *Mask) Equal(other *Mask) bool {
	if m.Width != other.Width || m.Height != other.Height {
		return false
	}
	for i := range m.Pix {
		if (m.Pix[i] != 0) != (other.Pix[i] != 0) {
			return false
		}
	}
	return true
}

// ToGray converts the mask to an 8-bit grayscale image (0 or 255).
func (m *Mask) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] != 0 {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
