package coco

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/imaging"
	"github.com/ironsheep/seal-compositor/internal/rle"
)

// ErrMaskCountMismatch is returned when an image has a different number of
// object masks than bounding boxes.
var ErrMaskCountMismatch = errors.New("mask count does not match box count")

// Dataset is a COCO instance-segmentation annotation file.
type Dataset struct {
	Info        Info             `json:"info"`
	Licenses    []License        `json:"licenses"`
	Images      []Image          `json:"images"`
	Annotations []Annotation     `json:"annotations"`
	Categories  []CategoryRecord `json:"categories"`
}

// Info describes the dataset.
type Info struct {
	Description string `json:"description"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Year        int    `json:"year"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
}

// License is a COCO license entry. Generated datasets carry none.
type License struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Image is one composited image.
type Image struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Annotation is one placed object.
type Annotation struct {
	ID         int `json:"id"`
	ImageID    int `json:"image_id"`
	CategoryID int `json:"category_id"`

	// BBox is [x, y, width, height] in pixels.
	BBox [4]float64 `json:"bbox"`

	// Area is the number of mask pixels.
	Area float64 `json:"area"`

	Segmentation rle.RLE `json:"segmentation"`
	IsCrowd      int     `json:"iscrowd"`
}

// CategoryRecord is a COCO category entry.
type CategoryRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// DefaultCategories returns the fixed category list:
// [{0 Inscription} {1 Seal}].
func DefaultCategories() []CategoryRecord {
	out := make([]CategoryRecord, 0, len(compositor.Categories))
	for _, c := range compositor.Categories {
		out = append(out, CategoryRecord{ID: c.ID(), Name: c.DisplayName()})
	}
	return out
}

// NewInfo returns dataset info stamped with the given creation time.
func NewInfo(description string, created time.Time) Info {
	return Info{
		Description: description,
		Version:     "1.0",
		Year:        created.Year(),
		DateCreated: created.Format("2006-01-02"),
	}
}

// Builder accumulates images and annotations, assigning ids from 1.
// It is safe for concurrent use.
type Builder struct {
	mu          sync.Mutex
	ds          Dataset
	nextImageID int
	nextAnnID   int
}

// NewBuilder starts an empty dataset with the default categories.
func NewBuilder(info Info) *Builder {
	return &Builder{
		ds: Dataset{
			Info:        info,
			Licenses:    []License{},
			Images:      []Image{},
			Annotations: []Annotation{},
			Categories:  DefaultCategories(),
		},
		nextImageID: 1,
		nextAnnID:   1,
	}
}

// NewAnnotation builds the annotation for one placed object. The id fields
// are left for the caller to fill.
func NewAnnotation(box compositor.Box, mask *imaging.Mask) Annotation {
	xywh := box.XYWH()
	return Annotation{
		CategoryID:   box.Category.ID(),
		BBox:         [4]float64{float64(xywh[0]), float64(xywh[1]), float64(xywh[2]), float64(xywh[3])},
		Area:         float64(mask.Count()),
		Segmentation: rle.Encode(mask),
		IsCrowd:      0,
	}
}

// AddImage records an image and one annotation per box/mask pair and returns
// the image id. An image without boxes is still recorded.
func (b *Builder) AddImage(fileName string, width, height int, boxes []compositor.Box, masks []*imaging.Mask) (int, error) {
	if len(boxes) != len(masks) {
		return 0, fmt.Errorf("%s: %w (%d boxes, %d masks)", fileName, ErrMaskCountMismatch, len(boxes), len(masks))
	}

	anns := make([]Annotation, len(boxes))
	for i := range boxes {
		if masks[i].Width != width || masks[i].Height != height {
			return 0, fmt.Errorf("%s: mask %d is %dx%d, image is %dx%d",
				fileName, i, masks[i].Width, masks[i].Height, width, height)
		}
		anns[i] = NewAnnotation(boxes[i], masks[i])
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextImageID
	b.nextImageID++
	b.ds.Images = append(b.ds.Images, Image{ID: id, FileName: fileName, Width: width, Height: height})
	for _, a := range anns {
		a.ID = b.nextAnnID
		a.ImageID = id
		b.nextAnnID++
		b.ds.Annotations = append(b.ds.Annotations, a)
	}
	return id, nil
}

// Dataset returns a snapshot of the accumulated dataset.
func (b *Builder) Dataset() *Dataset {
	b.mu.Lock()
	defer b.mu.Unlock()

	ds := b.ds
	ds.Images = append([]Image{}, b.ds.Images...)
	ds.Annotations = append([]Annotation{}, b.ds.Annotations...)
	ds.Categories = append([]CategoryRecord{}, b.ds.Categories...)
	ds.Licenses = append([]License{}, b.ds.Licenses...)
	return &ds
}

// AnnotationsFor returns the annotations of the given image id.
func (d *Dataset) AnnotationsFor(imageID int) []Annotation {
	var out []Annotation
	for _, a := range d.Annotations {
		if a.ImageID == imageID {
			out = append(out, a)
		}
	}
	return out
}

// WriteJSON writes ds to path, creating parent directories as needed.
func WriteJSON(path string, ds *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads a COCO dataset from path.
func ReadJSON(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &ds, nil
}
