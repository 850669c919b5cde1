package coco

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ironsheep/seal-compositor/internal/imaging"
)

// BuildFromDir rebuilds the COCO dataset of a generated output tree.
//
// Every image in the layout's pasted directory becomes one COCO image, in
// file name order. Its annotations pair the lines of its bbox file with its
// per-object masks by sequence number; the category of each mask file must
// agree with the bbox line. A missing bbox file, a mask/box count mismatch or
// an unreadable file is an error: it means the tree is corrupt.
func BuildFromDir(layout Layout, info Info) (*Dataset, error) {
	entries, err := os.ReadDir(layout.PastedDir())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", layout.PastedDir(), err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && imaging.IsImageFile(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	b := NewBuilder(info)
	for _, fileName := range files {
		name := strings.TrimSuffix(fileName, filepath.Ext(fileName))

		width, height, err := imaging.DecodeSize(filepath.Join(layout.PastedDir(), fileName))
		if err != nil {
			return nil, err
		}

		boxes, err := ReadBoxes(layout.BoxesPath(name))
		if err != nil {
			return nil, err
		}

		maskFiles, err := layout.ListObjectMasks(name)
		if err != nil {
			return nil, err
		}
		if len(maskFiles) != len(boxes) {
			return nil, fmt.Errorf("%s: %w (%d boxes, %d masks)", name, ErrMaskCountMismatch, len(boxes), len(maskFiles))
		}

		masks := make([]*imaging.Mask, len(maskFiles))
		for i, mf := range maskFiles {
			if mf.Category != boxes[i].Category {
				return nil, fmt.Errorf("%s: object %d is %s in its mask file but %s in the bbox file",
					name, mf.Seq, mf.Category, boxes[i].Category)
			}
			m, err := imaging.LoadMaskFile(mf.Path)
			if err != nil {
				return nil, err
			}
			masks[i] = m
		}

		if _, err := b.AddImage(fileName, width, height, boxes, masks); err != nil {
			return nil, err
		}
	}
	return b.Dataset(), nil
}
