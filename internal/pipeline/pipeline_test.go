package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/seal-compositor/internal/coco"
	"github.com/ironsheep/seal-compositor/internal/config"
	"github.com/ironsheep/seal-compositor/internal/imaging"
	"github.com/ironsheep/seal-compositor/internal/rle"
)

// fixture writes white backgrounds and a few solid patches and returns a
// config pointing at them.
func fixture(t *testing.T, backgrounds int) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Backgrounds = filepath.Join(root, "bg")
	cfg.Paths.Objects = filepath.Join(root, "objects")
	cfg.Paths.Output = filepath.Join(root, "out")
	cfg.Paste.ConflictRatio = 0
	cfg.Run.Seed = 1234
	cfg.Run.Workers = 2

	for i := 0; i < backgrounds; i++ {
		name := filepath.Join(cfg.Paths.Backgrounds, string(rune('a'+i))+".png")
		require.NoError(t, imaging.SaveRGB(name, imaging.NewUniformRGB(120, 90, 255, 255, 255)))
	}

	patches := map[string]*imaging.RGB{
		"p1_seals_1.png":        imaging.NewUniformRGB(10, 10, 200, 20, 20),
		"p1_seals_2.png":        imaging.NewUniformRGB(8, 12, 190, 30, 30),
		"p2_seals_1.png":        imaging.NewUniformRGB(6, 6, 210, 10, 10),
		"p1_inscriptions_1.png": imaging.NewUniformRGB(5, 20, 60, 60, 60),
		"p2_inscriptions_1.png": imaging.NewUniformRGB(4, 16, 70, 70, 70),
	}
	for name, img := range patches {
		require.NoError(t, imaging.SaveRGB(filepath.Join(cfg.Paths.Objects, name), img))
	}
	return cfg
}

func TestRun(t *testing.T) {
	cfg := fixture(t, 3)

	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	assert.Len(t, summary.RunID, 8)
	assert.Equal(t, int64(1234), summary.Seed)
	assert.Equal(t, 3, summary.Images)
	assert.Positive(t, summary.Placed)

	layout := coco.Layout{Root: cfg.Paths.Output}
	ds, err := coco.ReadJSON(layout.AnnotationsPath())
	require.NoError(t, err)
	require.Len(t, ds.Images, 3)
	assert.Len(t, ds.Annotations, summary.Placed)
	assert.Equal(t, "a.png", ds.Images[0].FileName)
	assert.Equal(t, "c.png", ds.Images[2].FileName)

	for _, im := range ds.Images {
		name := ImageName(im.FileName)
		assert.FileExists(t, layout.PastedPath(name))
		assert.FileExists(t, layout.MaskPath(name))

		boxes, err := coco.ReadBoxes(layout.BoxesPath(name))
		require.NoError(t, err)
		anns := ds.AnnotationsFor(im.ID)
		require.Len(t, anns, len(boxes))

		objMasks, err := layout.ListObjectMasks(name)
		require.NoError(t, err)
		require.Len(t, objMasks, len(boxes))

		combined, err := imaging.LoadMaskFile(layout.MaskPath(name))
		require.NoError(t, err)

		for i, a := range anns {
			assert.Equal(t, boxes[i].Category.ID(), a.CategoryID)
			assert.Equal(t, im.Width*im.Height, rle.Sum(a.Segmentation))

			m, err := rle.Decode(a.Segmentation)
			require.NoError(t, err)
			for p := range m.Pix {
				if m.Pix[p] != 0 {
					assert.NotZero(t, combined.Pix[p], "object pixel missing from combined mask")
				}
			}
		}
	}

	// The tree on disk rebuilds to the same annotations.
	rebuilt, err := coco.BuildFromDir(layout, ds.Info)
	require.NoError(t, err)
	assert.Equal(t, ds.Images, rebuilt.Images)
	assert.Equal(t, ds.Annotations, rebuilt.Annotations)
}

func TestRun_Deterministic(t *testing.T) {
	read := func(cfg *config.Config) []byte {
		_, err := Run(context.Background(), cfg, nil)
		require.NoError(t, err)
		data, err := os.ReadFile(coco.Layout{Root: cfg.Paths.Output}.BoxesPath("b"))
		require.NoError(t, err)
		return data
	}

	one := fixture(t, 2)
	one.Run.Workers = 1
	two := fixture(t, 2)
	two.Run.Workers = 4

	assert.Equal(t, read(one), read(two))
}

func TestRun_Resize(t *testing.T) {
	cfg := fixture(t, 1)
	cfg.Resize.Size = 64

	_, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	w, h, err := imaging.DecodeSize(coco.Layout{Root: cfg.Paths.Output}.PastedPath("a"))
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 64, h)
}

func TestRun_EmptyImages(t *testing.T) {
	cfg := fixture(t, 2)
	// Every object must overlap a foreground that blank backgrounds lack.
	cfg.Paste.ConflictRatio = 1

	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EmptyImages)
	assert.Zero(t, summary.Placed)
	assert.Positive(t, summary.Dropped)

	layout := coco.Layout{Root: cfg.Paths.Output}
	data, err := os.ReadFile(layout.BoxesPath("a"))
	require.NoError(t, err)
	assert.Empty(t, data)

	combined, err := imaging.LoadMaskFile(layout.MaskPath("a"))
	require.NoError(t, err)
	assert.Zero(t, combined.Count())
}

func TestRun_Errors(t *testing.T) {
	t.Run("no backgrounds", func(t *testing.T) {
		cfg := fixture(t, 0)
		require.NoError(t, os.MkdirAll(cfg.Paths.Backgrounds, 0755))
		_, err := Run(context.Background(), cfg, nil)
		assert.Error(t, err)
	})

	t.Run("no patches", func(t *testing.T) {
		cfg := fixture(t, 1)
		cfg.Paths.Objects = t.TempDir()
		_, err := Run(context.Background(), cfg, nil)
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := fixture(t, 1)
		cfg.Paste.ConflictRatio = 2
		_, err := Run(context.Background(), cfg, nil)
		assert.Error(t, err)
	})

	t.Run("name clash", func(t *testing.T) {
		cfg := fixture(t, 1)
		require.NoError(t, imaging.SaveRGB(filepath.Join(cfg.Paths.Backgrounds, "a.jpg"), imaging.NewUniformRGB(4, 4, 0, 0, 0)))
		_, err := Run(context.Background(), cfg, nil)
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := fixture(t, 3)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, cfg, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestImageName(t *testing.T) {
	assert.Equal(t, "p12", ImageName("/data/nosi/p12.jpg"))
	assert.Equal(t, "p12", ImageName("p12.tar.png"))
}
