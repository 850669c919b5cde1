package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/imaging"
)

// Colour thresholds for cleaning patches. go-colorful reports Lab a and b
// divided by 100, so 0.05 is 5 CIE units.
const (
	sealA = 0.05
	sealB = -0.05

	inscriptionMaxSaturation = 0.17
	inscriptionMinValue      = 0.18
	inscriptionMaxValue      = 0.86
)

// Keep reports whether a pixel belongs to an object of category cat.
//
// Seals are red: Lab (D65) a > 5 or b < -5. Inscriptions are dark ink:
// HSV saturation < 0.17 and 0.18 < value < 0.86.
func Keep(cat compositor.Category, r, g, b uint8) bool {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	if cat == compositor.Seal {
		_, la, lb := c.Lab()
		return la > sealA || lb < sealB
	}
	_, s, v := c.Hsv()
	return s < inscriptionMaxSaturation && v > inscriptionMinValue && v < inscriptionMaxValue
}

// Filter returns a copy of img in which every pixel that does not match the
// colour of cat is replaced by white, the transparency colour of patches.
// Kept pixels are unchanged.
func Filter(img *imaging.RGB, cat compositor.Category) *imaging.RGB {
	out := img.Clone()
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, b := out.At(x, y)
			if !Keep(cat, r, g, b) {
				out.Set(x, y, 255, 255, 255)
			}
		}
	}
	return out
}

// FilteredName returns the output name of a cleaned patch:
// "p12_seals_3.png" becomes "p12_seals_3_filtered.png".
func FilteredName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_filtered.png"
}

// FilterDir cleans every patch of srcDir into dstDir and returns the number
// of files written. Files without a valid category in their name are logged
// and skipped.
func FilterDir(srcDir, dstDir string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list patch directory: %w", err)
	}

	written := 0
	for _, e := range entries {
		if e.IsDir() || !imaging.IsImageFile(e.Name()) {
			continue
		}
		cat, err := CategoryFromName(e.Name())
		if err != nil {
			logger.Warn("skipping patch", zap.String("file", e.Name()), zap.Error(err))
			continue
		}

		img, err := imaging.LoadRGBFile(filepath.Join(srcDir, e.Name()))
		if err != nil {
			return written, err
		}
		if err := imaging.SaveRGB(filepath.Join(dstDir, FilteredName(e.Name())), Filter(img, cat)); err != nil {
			return written, err
		}
		written++
		logger.Debug("filtered patch", zap.String("file", e.Name()), zap.Stringer("category", cat))
	}
	return written, nil
}
