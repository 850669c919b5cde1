package compositor

import (
	"fmt"
	"strconv"
	"strings"
)

// Box is a placed object's bounding box in XYXY form.
//
// XMax and YMax are the inclusive index of the last column and row covered by
// the object, so a 10×10 patch placed at (5,7) has XMax=14, YMax=16.
type Box struct {
	Category Category `json:"category_id"`
	XMin     int      `json:"x_min"`
	YMin     int      `json:"y_min"`
	XMax     int      `json:"x_max"`
	YMax     int      `json:"y_max"`
}

// Width returns the number of columns the box covers.
func (b Box) Width() int {
	return b.XMax - b.XMin + 1
}

// Height returns the number of rows the box covers.
func (b Box) Height() int {
	return b.YMax - b.YMin + 1
}

// XYWH returns the box as x, y, width, height.
func (b Box) XYWH() [4]int {
	return [4]int{b.XMin, b.YMin, b.Width(), b.Height()}
}

// String formats the box as a bbox file line:
// "{category_id} {x_min} {y_min} {x_max} {y_max}".
func (b Box) String() string {
	return fmt.Sprintf("%d %d %d %d %d", b.Category.ID(), b.XMin, b.YMin, b.XMax, b.YMax)
}

// ParseBox parses a bbox file line produced by Box.String.
func ParseBox(line string) (Box, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Box{}, fmt.Errorf("bbox line %q: want 5 fields, got %d", line, len(fields))
	}

	var vals [5]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return Box{}, fmt.Errorf("bbox line %q: %w", line, err)
		}
		vals[i] = v
	}

	cat, err := CategoryFromID(vals[0])
	if err != nil {
		return Box{}, fmt.Errorf("bbox line %q: %w", line, err)
	}
	b := Box{Category: cat, XMin: vals[1], YMin: vals[2], XMax: vals[3], YMax: vals[4]}
	if b.XMax < b.XMin || b.YMax < b.YMin {
		return Box{}, fmt.Errorf("bbox line %q: max before min", line)
	}
	return b, nil
}
