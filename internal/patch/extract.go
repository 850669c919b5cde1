package patch

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/seal-compositor/internal/coco"
	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/imaging"
)

// ExtractOptions selects what Extract cuts out.
type ExtractOptions struct {
	// Categories limits extraction to the listed categories. Empty means
	// every category.
	Categories []compositor.Category

	Logger *zap.Logger
}

func (o ExtractOptions) wants(cat compositor.Category) bool {
	if len(o.Categories) == 0 {
		return true
	}
	for _, c := range o.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// Extract crops every annotated object of a labeled dataset out of its
// source image in imageDir and writes it to outDir as
// "{stem}_{seals|inscriptions}_{i}.png", numbering each category from 1 per
// image. Boxes are clipped to the image; boxes left empty are skipped.
// It returns the number of patches written.
func Extract(ds *coco.Dataset, imageDir, outDir string, opts ExtractOptions) (int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	written := 0
	for _, im := range ds.Images {
		anns := ds.AnnotationsFor(im.ID)
		if len(anns) == 0 {
			continue
		}

		fileName := filepath.Base(im.FileName)
		src, err := imaging.LoadRGBFile(filepath.Join(imageDir, fileName))
		if err != nil {
			return written, err
		}
		img := src.ToNRGBA()
		stem, _, _ := strings.Cut(fileName, ".")

		for _, cat := range []compositor.Category{compositor.Seal, compositor.Inscription} {
			if !opts.wants(cat) {
				continue
			}
			index := 0
			for _, a := range anns {
				if a.CategoryID != cat.ID() {
					continue
				}
				index++

				x, y := int(a.BBox[0]), int(a.BBox[1])
				rect := image.Rect(x, y, x+int(a.BBox[2]), y+int(a.BBox[3])).Intersect(img.Bounds())
				if rect.Empty() {
					logger.Warn("skipping empty box",
						zap.String("image", fileName),
						zap.Int("annotation", a.ID))
					continue
				}

				crop, err := imaging.Crop(img, rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y)
				if err != nil {
					return written, fmt.Errorf("annotation %d of %s: %w", a.ID, fileName, err)
				}
				if err := imaging.SaveImage(filepath.Join(outDir, FileName(stem, cat, index)), crop); err != nil {
					return written, err
				}
				written++
			}
		}
	}
	return written, nil
}
