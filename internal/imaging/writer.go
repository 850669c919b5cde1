package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// SaveImage writes img to path, creating parent directories as needed.
// The encoding is chosen from the file extension.
func SaveImage(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// SaveRGB writes an RGB raster to path.
func SaveRGB(path string, r *RGB) error {
	return SaveImage(path, r.ToNRGBA())
}

// SaveMask writes a mask to path as an 8-bit grayscale image.
func SaveMask(path string, m *Mask) error {
	return SaveImage(path, m.ToGray())
}

// LoadMaskFile reads a mask image from disk.
func LoadMaskFile(path string) (*Mask, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load mask %s: %w", path, err)
	}
	return MaskFromImage(img), nil
}
