package compositor

import (
	"errors"
	"fmt"
	"strings"
)

// Category identifies the kind of object being pasted. The numeric values
// are the COCO category ids and are fixed.
type Category int

const (
	// Inscription is a calligraphic inscription, COCO id 0.
	Inscription Category = 0
	// Seal is a red seal stamp, COCO id 1.
	Seal Category = 1
)

// Categories lists every category in id order.
var Categories = []Category{Inscription, Seal}

// ErrInvalidCategory is returned for category names or ids outside
// {inscription, seal}.
var ErrInvalidCategory = errors.New("invalid category")

// ParseCategory maps "inscription" or "seal" (case-insensitive) to a Category.
func ParseCategory(name string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "inscription":
		return Inscription, nil
	case "seal":
		return Seal, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, name)
}

// CategoryFromID maps a COCO category id to a Category.
func CategoryFromID(id int) (Category, error) {
	c := Category(id)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: id %d", ErrInvalidCategory, id)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == Inscription || c == Seal
}

// ID returns the COCO category id.
func (c Category) ID() int {
	return int(c)
}

// String returns the lowercase singular name used in file names.
func (c Category) String() string {
	switch c {
	case Inscription:
		return "inscription"
	case Seal:
		return "seal"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Plural returns the token used in patch file names ("seals", "inscriptions").
func (c Category) Plural() string {
	return c.String() + "s"
}

// DisplayName returns the COCO category name ("Inscription", "Seal").
func (c Category) DisplayName() string {
	switch c {
	case Inscription:
		return "Inscription"
	case Seal:
		return "Seal"
	}
	return c.String()
}
