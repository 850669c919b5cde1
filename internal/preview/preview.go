// Package preview draws annotations over an image for visual inspection:
// object masks tinted per category, box outlines and category labels.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strconv"

	"github.com/anthonynsimon/bild/blend"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/seal-compositor/internal/coco"
	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/imaging"
	"github.com/ironsheep/seal-compositor/internal/rle"
)

// Options controls how annotations are drawn.
type Options struct {
	// SealColor and InscriptionColor are "#RRGGBB" or "#RRGGBBAA".
	SealColor        string `json:"seal_color"`
	InscriptionColor string `json:"inscription_color"`

	// Opacity is the weight of the mask tint, in [0, 1].
	Opacity float64 `json:"opacity"`

	// Labels draws the category name above each box.
	Labels bool `json:"labels"`
}

// DefaultOptions tints seals blue and inscriptions green at 40%, so both
// stand out against red seal ink and black ink.
func DefaultOptions() Options {
	return Options{
		SealColor:        "#0050FF",
		InscriptionColor: "#00C040",
		Opacity:          0.4,
		Labels:           true,
	}
}

// Object is one annotated object to draw. Mask may be nil.
type Object struct {
	Box  compositor.Box
	Mask *imaging.Mask
}

// Render draws objects over img and returns the result with its origin at
// (0, 0). Box and mask coordinates are relative to img's top-left corner.
func Render(img image.Image, objects []Object, opts Options) (*image.RGBA, error) {
	if opts.Opacity < 0 || opts.Opacity > 1 {
		return nil, fmt.Errorf("opacity must be within [0, 1], got %v", opts.Opacity)
	}
	colors := make(map[compositor.Category]color.RGBA, 2)
	for cat, hex := range map[compositor.Category]string{
		compositor.Seal:        opts.SealColor,
		compositor.Inscription: opts.InscriptionColor,
	} {
		c, err := parseHexColor(hex)
		if err != nil {
			return nil, fmt.Errorf("%s color: %w", cat, err)
		}
		colors[cat] = c
	}

	src := img.Bounds()
	bounds := image.Rect(0, 0, src.Dx(), src.Dy())
	base := image.NewRGBA(bounds)
	draw.Draw(base, bounds, img, src.Min, draw.Src)

	// The tint layer is the image itself with mask pixels recoloured, so
	// blending leaves unmasked pixels unchanged.
	tint := image.NewRGBA(bounds)
	draw.Draw(tint, bounds, base, image.Point{}, draw.Src)
	for _, obj := range objects {
		if obj.Mask == nil {
			continue
		}
		if obj.Mask.Width != bounds.Dx() || obj.Mask.Height != bounds.Dy() {
			return nil, fmt.Errorf("mask is %dx%d, image is %dx%d",
				obj.Mask.Width, obj.Mask.Height, bounds.Dx(), bounds.Dy())
		}
		c := colors[obj.Box.Category]
		c.A = 255
		for y := 0; y < obj.Mask.Height; y++ {
			for x := 0; x < obj.Mask.Width; x++ {
				if obj.Mask.IsSet(x, y) {
					tint.SetRGBA(x, y, c)
				}
			}
		}
	}

	out := blend.Opacity(base, tint, opts.Opacity)

	for _, obj := range objects {
		c := colors[obj.Box.Category]
		r := image.Rect(obj.Box.XMin, obj.Box.YMin, obj.Box.XMax+1, obj.Box.YMax+1)
		drawRect(out, r, c)
		if opts.Labels {
			drawLabel(out, r.Min.X, r.Min.Y-2, obj.Box.Category.DisplayName(), color.RGBA{255, 255, 255, 255}, c)
		}
	}
	return out, nil
}

// RenderAnnotations draws COCO annotations over img. Segmentations are
// decoded from their RLE; bboxes are converted back to inclusive boxes.
func RenderAnnotations(img image.Image, anns []coco.Annotation, opts Options) (*image.RGBA, error) {
	objects := make([]Object, 0, len(anns))
	for _, a := range anns {
		cat, err := compositor.CategoryFromID(a.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", a.ID, err)
		}
		x, y := int(a.BBox[0]), int(a.BBox[1])
		box := compositor.Box{
			Category: cat,
			XMin:     x,
			YMin:     y,
			XMax:     x + int(a.BBox[2]) - 1,
			YMax:     y + int(a.BBox[3]) - 1,
		}

		var mask *imaging.Mask
		if len(a.Segmentation.Counts) > 0 {
			mask, err = rle.Decode(a.Segmentation)
			if err != nil {
				return nil, fmt.Errorf("annotation %d: %w", a.ID, err)
			}
		}
		objects = append(objects, Object{Box: box, Mask: mask})
	}
	return Render(img, objects, opts)
}

// RenderDatasetImage loads fileName from imageDir and draws its annotations
// from ds.
func RenderDatasetImage(ds *coco.Dataset, imageDir, fileName string, opts Options) (*image.RGBA, error) {
	for _, im := range ds.Images {
		if im.FileName != fileName && filepath.Base(im.FileName) != fileName {
			continue
		}
		src, err := imaging.LoadRGBFile(filepath.Join(imageDir, filepath.Base(im.FileName)))
		if err != nil {
			return nil, err
		}
		return RenderAnnotations(src.ToNRGBA(), ds.AnnotationsFor(im.ID), opts)
	}
	return nil, fmt.Errorf("image %q is not in the dataset", fileName)
}

// drawRect outlines r one pixel wide, clipped to img.
func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	b := img.Bounds()
	set := func(x, y int) {
		if image.Pt(x, y).In(b) {
			img.SetRGBA(x, y, c)
		}
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		set(x, r.Min.Y)
		set(x, r.Max.Y-1)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		set(r.Min.X, y)
		set(r.Max.X-1, y)
	}
}

// drawLabel writes text with basicfont on a filled background whose bottom
// edge sits at y. Labels that would leave the top of the image are drawn
// inside the box instead.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 2
	height := face.Height

	top := y - height
	if top < img.Bounds().Min.Y {
		top = y + 3
	}
	rect := image.Rect(x, top, x+width, top+height).Intersect(img.Bounds())
	draw.Draw(img, rect, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x + 1), Y: fixed.I(top + face.Ascent)},
	}
	d.DrawString(text)
}

// parseHexColor parses "#RRGGBB" or "#RRGGBBAA"; the leading # is optional.
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	switch len(hex) {
	case 6:
		return color.RGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	case 8:
		return color.RGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
	}
	return color.RGBA{}, fmt.Errorf("invalid hex color length")
}
