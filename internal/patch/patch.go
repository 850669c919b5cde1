package patch

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/imaging"
)

// CategoryFromName derives a patch's category from its file name.
//
// Patch files are named "{source}_{seals|inscriptions}_{index}.png"; the
// second underscore-separated token, without its plural "s", names the
// category. "p12_seals_3_filtered.png" is a seal.
func CategoryFromName(fileName string) (compositor.Category, error) {
	tokens := strings.Split(filepath.Base(fileName), "_")
	if len(tokens) < 2 {
		return 0, fmt.Errorf("patch name %q: %w: want {source}_{seals|inscriptions}_{index}",
			fileName, compositor.ErrInvalidCategory)
	}
	cat, err := compositor.ParseCategory(strings.TrimSuffix(tokens[1], "s"))
	if err != nil {
		return 0, fmt.Errorf("patch name %q: %w", fileName, err)
	}
	return cat, nil
}

// FileName returns the name of the index-th (1-based) patch cut from the
// image stem.
func FileName(stem string, cat compositor.Category, index int) string {
	return fmt.Sprintf("%s_%s_%d.png", stem, cat.Plural(), index)
}

// Set holds the patch files of an object directory, grouped by category and
// sorted by name.
type Set struct {
	Seals        []string
	Inscriptions []string
}

// Len returns the total number of patches.
func (s Set) Len() int {
	return len(s.Seals) + len(s.Inscriptions)
}

// Of returns the patches of one category.
func (s Set) Of(cat compositor.Category) []string {
	if cat == compositor.Seal {
		return s.Seals
	}
	return s.Inscriptions
}

// ScanDir lists the patch images in dir. Files whose names carry no valid
// category are logged and skipped. A directory without any usable patch is
// an error.
func ScanDir(dir string, logger *zap.Logger) (Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Set{}, fmt.Errorf("failed to list object directory: %w", err)
	}

	var set Set
	for _, e := range entries {
		if e.IsDir() || !imaging.IsImageFile(e.Name()) {
			continue
		}
		cat, err := CategoryFromName(e.Name())
		if err != nil {
			logger.Warn("skipping patch", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		path := filepath.Join(dir, e.Name())
		if cat == compositor.Seal {
			set.Seals = append(set.Seals, path)
		} else {
			set.Inscriptions = append(set.Inscriptions, path)
		}
	}

	if set.Len() == 0 {
		return Set{}, fmt.Errorf("object directory %s holds no seal or inscription patches", dir)
	}
	sort.Strings(set.Seals)
	sort.Strings(set.Inscriptions)
	return set, nil
}

// Sample draws between 1 and limit distinct entries of names, uniformly and
// without replacement. The count is capped at len(names); an empty input or
// a non-positive limit yields nothing.
func Sample(rng *rand.Rand, names []string, limit int) []string {
	if len(names) == 0 || limit <= 0 {
		return nil
	}
	n := rng.Intn(limit) + 1
	if n > len(names) {
		n = len(names)
	}

	perm := rng.Perm(len(names))
	out := make([]string, n)
	for i := range out {
		out[i] = names[perm[i]]
	}
	return out
}

// Choose picks the patches for one background image: a sample of up to
// sealMax seals followed by a sample of up to inscriptionMax inscriptions.
func Choose(rng *rand.Rand, set Set, sealMax, inscriptionMax int) []string {
	chosen := Sample(rng, set.Seals, sealMax)
	return append(chosen, Sample(rng, set.Inscriptions, inscriptionMax)...)
}

// Load reads the chosen patch files through cache and returns them as
// compositor objects in the same order.
func Load(cache *imaging.ImageCache, paths []string) ([]compositor.Object, error) {
	objects := make([]compositor.Object, 0, len(paths))
	for _, p := range paths {
		cat, err := CategoryFromName(p)
		if err != nil {
			return nil, err
		}
		raster, err := cache.LoadRGB(p)
		if err != nil {
			return nil, err
		}
		objects = append(objects, compositor.Object{
			Name:     filepath.Base(p),
			Patch:    raster,
			Category: cat,
		})
	}
	return objects, nil
}
