package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math/rand"

	"github.com/disintegration/imaging"
)

// PNGResult contains an image encoded as base64 PNG.
type PNGResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG result.
func EncodePNG(img image.Image) (*PNGResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &PNGResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Crop extracts the rectangle (x1,y1)-(x2,y2) from img; x2 and y2 are exclusive.
func Crop(img image.Image, x1, y1, x2, y2 int) (*image.NRGBA, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	return imaging.Crop(img, image.Rect(x1, y1, x2, y2)), nil
}

// ResizeSquare scales img so that its shorter side equals size (Lanczos) and
// then cuts a size×size window at a random offset along the longer side.
//
// A 10000×8000 painting becomes 1000×800 and then an 800×800 crop.
func ResizeSquare(rng *rand.Rand, img image.Image, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid resize size %d", size)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("cannot resize an empty image")
	}

	var resized *image.NRGBA
	if bounds.Dx() >= bounds.Dy() {
		resized = imaging.Resize(img, 0, size, imaging.Lanczos)
	} else {
		resized = imaging.Resize(img, size, 0, imaging.Lanczos)
	}

	w, h := resized.Bounds().Dx(), resized.Bounds().Dy()
	// Rounding in the aspect-preserving resize can leave the long side one
	// pixel short of size.
	if w < size || h < size {
		resized = imaging.Resize(resized, max(w, size), max(h, size), imaging.Lanczos)
		w, h = resized.Bounds().Dx(), resized.Bounds().Dy()
	}

	x0 := 0
	if w > size {
		x0 = rng.Intn(w - size + 1)
	}
	y0 := 0
	if h > size {
		y0 = rng.Intn(h - size + 1)
	}

	return imaging.Crop(resized, image.Rect(x0, y0, x0+size, y0+size)), nil
}
