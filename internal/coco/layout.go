package coco

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/seal-compositor/internal/compositor"
)

// Layout names the files of a generated dataset under Root:
//
//	imgs_pasted/{name}.png
//	masks/{name}_mask.png
//	masks_multi/{name}-mask-multi/{seq}_{category}.png
//	bboxes/{name}_bboxes.txt
//	annotations.json
type Layout struct {
	Root string
}

// PastedDir holds the composited images.
func (l Layout) PastedDir() string { return filepath.Join(l.Root, "imgs_pasted") }

// MaskDir holds the combined masks.
func (l Layout) MaskDir() string { return filepath.Join(l.Root, "masks") }

// ObjectMaskRoot holds one directory of per-object masks per image.
func (l Layout) ObjectMaskRoot() string { return filepath.Join(l.Root, "masks_multi") }

// BoxesDir holds the bbox text files.
func (l Layout) BoxesDir() string { return filepath.Join(l.Root, "bboxes") }

// PastedPath is the composited image for name.
func (l Layout) PastedPath(name string) string {
	return filepath.Join(l.PastedDir(), name+".png")
}

// MaskPath is the combined mask for name.
func (l Layout) MaskPath(name string) string {
	return filepath.Join(l.MaskDir(), name+"_mask.png")
}

// ObjectMaskDir is the per-object mask directory for name.
func (l Layout) ObjectMaskDir(name string) string {
	return filepath.Join(l.ObjectMaskRoot(), name+"-mask-multi")
}

// ObjectMaskPath is the mask of the seq-th placed object (1-based) of name.
func (l Layout) ObjectMaskPath(name string, seq int, cat compositor.Category) string {
	return filepath.Join(l.ObjectMaskDir(name), fmt.Sprintf("%d_%s.png", seq, cat))
}

// BoxesPath is the bbox text file for name.
func (l Layout) BoxesPath(name string) string {
	return filepath.Join(l.BoxesDir(), name+"_bboxes.txt")
}

// AnnotationsPath is the COCO JSON of the whole run.
func (l Layout) AnnotationsPath() string {
	return filepath.Join(l.Root, "annotations.json")
}

// ObjectMaskFile is a per-object mask file found on disk.
type ObjectMaskFile struct {
	Path     string
	Seq      int
	Category compositor.Category
}

// ListObjectMasks returns the per-object masks of name ordered by sequence
// number. A missing directory yields no masks.
func (l Layout) ListObjectMasks(name string) ([]ObjectMaskFile, error) {
	dir := l.ObjectMaskDir(name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make([]ObjectMaskFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, err := parseObjectMaskName(e.Name())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dir, err)
		}
		f.Path = filepath.Join(dir, e.Name())
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Seq < files[j].Seq
	})
	for i, f := range files {
		if f.Seq != i+1 {
			return nil, fmt.Errorf("%s: object masks not numbered 1..%d", dir, len(files))
		}
	}
	return files, nil
}

func parseObjectMaskName(fileName string) (ObjectMaskFile, error) {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	seqStr, catStr, ok := strings.Cut(stem, "_")
	if !ok {
		return ObjectMaskFile{}, fmt.Errorf("object mask %q: want {seq}_{category}", fileName)
	}
	seq, err := strconv.Atoi(seqStr)
	if err != nil || seq < 1 {
		return ObjectMaskFile{}, fmt.Errorf("object mask %q: bad sequence number", fileName)
	}
	cat, err := compositor.ParseCategory(catStr)
	if err != nil {
		return ObjectMaskFile{}, fmt.Errorf("object mask %q: %w", fileName, err)
	}
	return ObjectMaskFile{Seq: seq, Category: cat}, nil
}
