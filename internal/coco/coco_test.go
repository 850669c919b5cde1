package coco

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/imaging"
	"github.com/ironsheep/seal-compositor/internal/rle"
)

func boxMask(w, h int, b compositor.Box) *imaging.Mask {
	m := imaging.NewMask(w, h)
	for y := b.YMin; y <= b.YMax; y++ {
		for x := b.XMin; x <= b.XMax; x++ {
			m.Set(x, y)
		}
	}
	return m
}

func testInfo() Info {
	return NewInfo("test", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestDefaultCategories(t *testing.T) {
	assert.Equal(t, []CategoryRecord{{ID: 0, Name: "Inscription"}, {ID: 1, Name: "Seal"}}, DefaultCategories())
}

func TestNewInfo(t *testing.T) {
	info := testInfo()
	assert.Equal(t, 2024, info.Year)
	assert.Equal(t, "2024-03-01", info.DateCreated)
	assert.Equal(t, "1.0", info.Version)
}

func TestBuilder_AddImage(t *testing.T) {
	b := NewBuilder(testInfo())

	seal := compositor.Box{Category: compositor.Seal, XMin: 5, YMin: 7, XMax: 14, YMax: 16}
	ins := compositor.Box{Category: compositor.Inscription, XMin: 20, YMin: 2, XMax: 23, YMax: 30}

	id1, err := b.AddImage("a.png", 40, 40, []compositor.Box{seal, ins},
		[]*imaging.Mask{boxMask(40, 40, seal), boxMask(40, 40, ins)})
	require.NoError(t, err)
	id2, err := b.AddImage("b.png", 40, 40, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, id1)
	assert.Equal(t, 2, id2)

	ds := b.Dataset()
	require.Len(t, ds.Images, 2)
	require.Len(t, ds.Annotations, 2)
	assert.Empty(t, ds.AnnotationsFor(id2))

	a := ds.Annotations[0]
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, id1, a.ImageID)
	assert.Equal(t, 1, a.CategoryID)
	assert.Equal(t, [4]float64{5, 7, 10, 10}, a.BBox)
	assert.Equal(t, 100.0, a.Area)
	assert.Equal(t, 0, a.IsCrowd)
	assert.Equal(t, [2]int{40, 40}, a.Segmentation.Size)
	assert.Equal(t, 1600, rle.Sum(a.Segmentation))

	assert.Equal(t, 2, ds.Annotations[1].ID)
	assert.Equal(t, 0, ds.Annotations[1].CategoryID)
	assert.Equal(t, [4]float64{20, 2, 4, 29}, ds.Annotations[1].BBox)
}

func TestBuilder_Errors(t *testing.T) {
	b := NewBuilder(testInfo())
	box := compositor.Box{Category: compositor.Seal, XMin: 1, YMin: 1, XMax: 2, YMax: 2}

	_, err := b.AddImage("a.png", 10, 10, []compositor.Box{box}, nil)
	assert.ErrorIs(t, err, ErrMaskCountMismatch)

	_, err = b.AddImage("a.png", 10, 10, []compositor.Box{box}, []*imaging.Mask{imaging.NewMask(5, 5)})
	assert.Error(t, err)

	assert.Empty(t, b.Dataset().Images)
}

func TestBuilder_Concurrent(t *testing.T) {
	b := NewBuilder(testInfo())
	box := compositor.Box{Category: compositor.Seal, XMin: 1, YMin: 1, XMax: 3, YMax: 3}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.AddImage("x.png", 8, 8, []compositor.Box{box, box}, []*imaging.Mask{boxMask(8, 8, box), boxMask(8, 8, box)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ds := b.Dataset()
	assert.Len(t, ds.Images, 10)
	assert.Len(t, ds.Annotations, 20)

	seen := map[int]bool{}
	for _, a := range ds.Annotations {
		assert.False(t, seen[a.ID], "duplicate annotation id %d", a.ID)
		seen[a.ID] = true
	}
	for _, img := range ds.Images {
		assert.Len(t, ds.AnnotationsFor(img.ID), 2)
	}
}

func TestWriteReadJSON(t *testing.T) {
	b := NewBuilder(testInfo())
	box := compositor.Box{Category: compositor.Inscription, XMin: 0, YMin: 0, XMax: 1, YMax: 2}
	_, err := b.AddImage("a.png", 4, 4, []compositor.Box{box}, []*imaging.Mask{boxMask(4, 4, box)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "annotations.json")
	require.NoError(t, WriteJSON(path, b.Dataset()))

	ds, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, b.Dataset(), ds)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"segmentation":{"counts":[0,3,1,3,9],"size":[4,4]}`)
	assert.Contains(t, string(raw), `"licenses":[]`)
}

func TestReadJSON_Errors(t *testing.T) {
	_, err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = ReadJSON(path)
	assert.Error(t, err)
}
