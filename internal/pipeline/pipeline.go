// Package pipeline runs a full compositing job: every background image in a
// directory receives a random selection of patches, and the results are
// written as images, masks, bbox files and one COCO annotation file.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/seal-compositor/internal/coco"
	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/config"
	"github.com/ironsheep/seal-compositor/internal/imaging"
	"github.com/ironsheep/seal-compositor/internal/patch"
)

// Summary reports what a run produced.
type Summary struct {
	RunID       string `json:"run_id"`
	Seed        int64  `json:"seed"`
	Images      int    `json:"images"`
	Placed      int    `json:"placed"`
	Dropped     int    `json:"dropped"`
	EmptyImages int    `json:"empty_images"`
	Annotations string `json:"annotations"`
}

// imageResult is the outcome for one background, kept until every worker is
// done so that COCO ids follow file order.
type imageResult struct {
	fileName string
	width    int
	height   int
	boxes    []compositor.Box
	masks    []*imaging.Mask
	dropped  int
}

// Run composites patches from cfg.Paths.Objects onto every image in
// cfg.Paths.Backgrounds and writes the dataset under cfg.Paths.Output.
//
// Images are processed by cfg.Run.Workers goroutines. The i-th background
// (in file name order) draws all of its randomness from a generator seeded
// with seed+i, so a fixed seed reproduces the same dataset whatever the
// worker count. Cancelling ctx stops dispatching new images; images already
// in flight finish and Run returns ctx.Err().
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backgrounds, err := listImages(cfg.Paths.Backgrounds)
	if err != nil {
		return nil, err
	}
	patches, err := patch.ScanDir(cfg.Paths.Objects, logger)
	if err != nil {
		return nil, err
	}

	seed := cfg.Run.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runID := uuid.New().String()[:8]
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("starting run",
		zap.Int64("seed", seed),
		zap.Int("backgrounds", len(backgrounds)),
		zap.Int("seals", len(patches.Seals)),
		zap.Int("inscriptions", len(patches.Inscriptions)),
		zap.Int("workers", cfg.Run.Workers))

	layout := coco.Layout{Root: cfg.Paths.Output}
	cache := imaging.NewImageCache()
	results := make([]*imageResult, len(backgrounds))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, cfg.Run.Workers)

dispatch:
	for i, bg := range backgrounds {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}

		wg.Add(1)
		go func(i int, bg string) {
			defer wg.Done()
			defer func() { <-sem }()

			rng := rand.New(rand.NewSource(seed + int64(i)))
			res, err := processImage(rng, bg, patches, cache, layout, cfg, logger)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
				return
			}
			results[i] = res
		}(i, bg)
	}
	wg.Wait()
	cache.Clear()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{RunID: runID, Seed: seed, Annotations: layout.AnnotationsPath()}
	builder := coco.NewBuilder(coco.NewInfo("seal-compositor run "+runID, time.Now()))
	for _, r := range results {
		if _, err := builder.AddImage(r.fileName, r.width, r.height, r.boxes, r.masks); err != nil {
			return nil, err
		}
		summary.Images++
		summary.Placed += len(r.boxes)
		summary.Dropped += r.dropped
		if len(r.boxes) == 0 {
			summary.EmptyImages++
		}
	}
	if err := coco.WriteJSON(layout.AnnotationsPath(), builder.Dataset()); err != nil {
		return nil, err
	}

	logger.Info("run complete",
		zap.Int("images", summary.Images),
		zap.Int("placed", summary.Placed),
		zap.Int("dropped", summary.Dropped),
		zap.Int("empty_images", summary.EmptyImages))
	return summary, nil
}

// processImage composites one background and writes its files.
func processImage(rng *rand.Rand, bgPath string, patches patch.Set, cache *imaging.ImageCache,
	layout coco.Layout, cfg *config.Config, logger *zap.Logger) (*imageResult, error) {

	name := ImageName(bgPath)
	logger = logger.With(zap.String("image", name))

	base, err := imaging.LoadRGBFile(bgPath)
	if err != nil {
		return nil, err
	}
	if cfg.Resize.Size > 0 {
		resized, err := imaging.ResizeSquare(rng, base.ToNRGBA(), cfg.Resize.Size)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		base = imaging.FromImage(resized)
	}

	chosen := patch.Choose(rng, patches, cfg.Paste.SealMax, cfg.Paste.InscriptionMax)
	objects, err := patch.Load(cache, chosen)
	if err != nil {
		return nil, err
	}

	batch, err := compositor.NewScheduler(rng, logger).CompositeBatch(base, objects, cfg.Paste.ConflictRatio)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(batch.Boxes) == 0 {
		logger.Warn("no object could be placed", zap.Int("objects", len(objects)))
	}

	if err := writeImage(layout, name, batch); err != nil {
		return nil, err
	}
	logger.Debug("image written",
		zap.Int("placed", len(batch.Boxes)),
		zap.Int("dropped", len(batch.Dropped)))

	return &imageResult{
		fileName: filepath.Base(layout.PastedPath(name)),
		width:    batch.Image.Width,
		height:   batch.Image.Height,
		boxes:    batch.Boxes,
		masks:    batch.Masks,
		dropped:  len(batch.Dropped),
	}, nil
}

func writeImage(layout coco.Layout, name string, batch *compositor.BatchResult) error {
	if err := imaging.SaveRGB(layout.PastedPath(name), batch.Image); err != nil {
		return err
	}
	if err := imaging.SaveMask(layout.MaskPath(name), batch.Combined); err != nil {
		return err
	}
	if err := os.MkdirAll(layout.ObjectMaskDir(name), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, m := range batch.Masks {
		if err := imaging.SaveMask(layout.ObjectMaskPath(name, i+1, batch.Boxes[i].Category), m); err != nil {
			return err
		}
	}
	return coco.WriteBoxes(layout.BoxesPath(name), batch.Boxes)
}

// ImageName returns the output name of a background file: its base name up
// to the first dot.
func ImageName(path string) string {
	stem, _, _ := strings.Cut(filepath.Base(path), ".")
	return stem
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list background directory: %w", err)
	}

	var paths []string
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !imaging.IsImageFile(e.Name()) {
			continue
		}
		name := ImageName(e.Name())
		if other, ok := seen[name]; ok {
			return nil, fmt.Errorf("backgrounds %s and %s would both be written as %s", other, e.Name(), name)
		}
		seen[name] = e.Name()
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("background directory %s holds no images", dir)
	}
	sort.Strings(paths)
	return paths, nil
}
