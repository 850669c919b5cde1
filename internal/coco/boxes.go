package coco

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/seal-compositor/internal/compositor"
)

// FormatBoxes renders boxes as bbox file content: one
// "{category_id} {x_min} {y_min} {x_max} {y_max}" line per box, joined by
// newlines with no trailing newline.
func FormatBoxes(boxes []compositor.Box) string {
	lines := make([]string, len(boxes))
	for i, b := range boxes {
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

// ParseBoxes parses bbox file content. Blank lines are ignored.
func ParseBoxes(content string) ([]compositor.Box, error) {
	var boxes []compositor.Box
	for n, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b, err := compositor.ParseBox(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

// WriteBoxes writes a bbox file, creating parent directories as needed.
func WriteBoxes(path string, boxes []compositor.Box) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(FormatBoxes(boxes)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadBoxes reads a bbox file.
func ReadBoxes(path string) ([]compositor.Box, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	boxes, err := ParseBoxes(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return boxes, nil
}
