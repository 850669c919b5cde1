package preview

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/seal-compositor/internal/coco"
	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/imaging"
)

var sealBlue = color.RGBA{R: 0x00, G: 0x50, B: 0xFF, A: 0xFF}

func squareMask(w, h, x0, y0, size int) *imaging.Mask {
	m := imaging.NewMask(w, h)
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			m.Set(x, y)
		}
	}
	return m
}

func noLabels() Options {
	opts := DefaultOptions()
	opts.Labels = false
	return opts
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#0050FF", sealBlue, false},
		{"0050ff", sealBlue, false},
		{"#11223344", color.RGBA{0x11, 0x22, 0x33, 0x44}, false},
		{"", color.RGBA{}, true},
		{"#12345", color.RGBA{}, true},
		{"#GG0000", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHexColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender(t *testing.T) {
	img := imaging.NewUniformRGB(40, 40, 255, 255, 255).ToNRGBA()
	box := compositor.Box{Category: compositor.Seal, XMin: 10, YMin: 10, XMax: 19, YMax: 19}

	out, err := Render(img, []Object{{Box: box, Mask: squareMask(40, 40, 10, 10, 10)}}, noLabels())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 40), out.Bounds())

	// Unmasked pixels keep their colour.
	far := out.RGBAAt(2, 2)
	assert.InDelta(t, 255, int(far.R), 2)
	assert.InDelta(t, 255, int(far.G), 2)

	// Masked pixels are 40% tint over white.
	inside := out.RGBAAt(15, 15)
	assert.InDelta(t, 153, int(inside.R), 3)
	assert.InDelta(t, 185, int(inside.G), 3)
	assert.InDelta(t, 255, int(inside.B), 2)

	// The outline is drawn at full strength on the inclusive box edges.
	assert.Equal(t, sealBlue, out.RGBAAt(10, 10))
	assert.Equal(t, sealBlue, out.RGBAAt(19, 19))
	assert.Equal(t, sealBlue, out.RGBAAt(10, 15))
	assert.NotEqual(t, sealBlue, out.RGBAAt(20, 20))

	// The source image is left alone.
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(15, 15))
}

func TestRender_Labels(t *testing.T) {
	img := imaging.NewUniformRGB(60, 60, 255, 255, 255).ToNRGBA()
	box := compositor.Box{Category: compositor.Seal, XMin: 10, YMin: 30, XMax: 40, YMax: 50}

	out, err := Render(img, []Object{{Box: box}}, DefaultOptions())
	require.NoError(t, err)

	// The label background sits above the box; its left column holds no glyph.
	assert.Equal(t, sealBlue, out.RGBAAt(10, 20))

	near := compositor.Box{Category: compositor.Inscription, XMin: 0, YMin: 0, XMax: 30, YMax: 30}
	_, err = Render(img, []Object{{Box: near}}, DefaultOptions())
	assert.NoError(t, err)
}

func TestRender_NonZeroOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 25, 25))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	box := compositor.Box{Category: compositor.Seal, XMin: 0, YMin: 0, XMax: 3, YMax: 3}

	out, err := Render(src, []Object{{Box: box}}, noLabels())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 20), out.Bounds())
	assert.Equal(t, sealBlue, out.RGBAAt(0, 0))
}

func TestRender_Errors(t *testing.T) {
	img := imaging.NewUniformRGB(10, 10, 255, 255, 255).ToNRGBA()
	box := compositor.Box{Category: compositor.Seal, XMin: 1, YMin: 1, XMax: 2, YMax: 2}

	_, err := Render(img, []Object{{Box: box, Mask: imaging.NewMask(5, 5)}}, noLabels())
	assert.Error(t, err)

	opts := noLabels()
	opts.Opacity = 1.5
	_, err = Render(img, nil, opts)
	assert.Error(t, err)

	opts = noLabels()
	opts.InscriptionColor = "green"
	_, err = Render(img, nil, opts)
	assert.Error(t, err)
}

func TestRenderAnnotations(t *testing.T) {
	img := imaging.NewUniformRGB(30, 30, 255, 255, 255).ToNRGBA()
	box := compositor.Box{Category: compositor.Inscription, XMin: 4, YMin: 6, XMax: 13, YMax: 15}
	mask := squareMask(30, 30, 4, 6, 10)

	direct, err := Render(img, []Object{{Box: box, Mask: mask}}, DefaultOptions())
	require.NoError(t, err)

	ann := coco.NewAnnotation(box, mask)
	viaCOCO, err := RenderAnnotations(img, []coco.Annotation{ann}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, direct.Pix, viaCOCO.Pix)

	ann.CategoryID = 7
	_, err = RenderAnnotations(img, []coco.Annotation{ann}, DefaultOptions())
	assert.ErrorIs(t, err, compositor.ErrInvalidCategory)
}

func TestRenderDatasetImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, imaging.SaveRGB(filepath.Join(dir, "p1.png"), imaging.NewUniformRGB(20, 20, 255, 255, 255)))

	box := compositor.Box{Category: compositor.Seal, XMin: 2, YMin: 2, XMax: 7, YMax: 7}
	b := coco.NewBuilder(coco.Info{})
	_, err := b.AddImage("p1.png", 20, 20, []compositor.Box{box}, []*imaging.Mask{squareMask(20, 20, 2, 2, 6)})
	require.NoError(t, err)
	ds := b.Dataset()

	out, err := RenderDatasetImage(ds, dir, "p1.png", noLabels())
	require.NoError(t, err)
	assert.Equal(t, sealBlue, out.RGBAAt(2, 2))

	_, err = RenderDatasetImage(ds, dir, "p2.png", noLabels())
	assert.Error(t, err)
}
