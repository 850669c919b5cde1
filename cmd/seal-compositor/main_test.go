package main

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/ironsheep/seal-compositor/internal/coco"
	"github.com/ironsheep/seal-compositor/internal/imaging"
)

func TestRun_Commands(t *testing.T) {
	if err := run([]string{"version"}); err != nil {
		t.Errorf("version: %v", err)
	}
	if err := run([]string{"help"}); err != nil {
		t.Errorf("help: %v", err)
	}
	if err := run([]string{"bogus"}); err == nil {
		t.Error("expected an error for an unknown command")
	}
}

func TestRun_MissingFlags(t *testing.T) {
	for _, args := range [][]string{
		{"filter"},
		{"extract", "-annotations", "a.json"},
		{"preview"},
	} {
		if err := run(args); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestIsSet(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("workers", 0, "")
	fs.Int("seed", 0, "")
	if err := fs.Parse([]string{"-workers", "0"}); err != nil {
		t.Fatal(err)
	}
	if !isSet(fs, "workers") {
		t.Error("workers should be set even when given its zero value")
	}
	if isSet(fs, "seed") {
		t.Error("seed was not given")
	}
}

func TestRun_PasteThenCOCO(t *testing.T) {
	root := t.TempDir()
	bg := filepath.Join(root, "bg")
	objects := filepath.Join(root, "objects")
	out := filepath.Join(root, "out")
	if err := imaging.SaveRGB(filepath.Join(bg, "p1.png"), imaging.NewUniformRGB(80, 60, 255, 255, 255)); err != nil {
		t.Fatal(err)
	}
	if err := imaging.SaveRGB(filepath.Join(objects, "a_seals_1.png"), imaging.NewUniformRGB(8, 8, 200, 20, 20)); err != nil {
		t.Fatal(err)
	}
	if err := imaging.SaveRGB(filepath.Join(objects, "a_inscriptions_1.png"), imaging.NewUniformRGB(4, 12, 50, 50, 50)); err != nil {
		t.Fatal(err)
	}

	config := filepath.Join(root, "missing.yaml")
	err := run([]string{"paste", "-config", config, "-backgrounds", bg, "-objects", objects,
		"-output", out, "-ratio", "0", "-seed", "5", "-workers", "1"})
	if err != nil {
		t.Fatalf("paste: %v", err)
	}

	layout := coco.Layout{Root: out}
	first, err := coco.ReadJSON(layout.AnnotationsPath())
	if err != nil {
		t.Fatal(err)
	}

	if err := run([]string{"coco", "-config", config, "-output", out}); err != nil {
		t.Fatalf("coco: %v", err)
	}
	rebuilt, err := coco.ReadJSON(layout.AnnotationsPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(rebuilt.Annotations) != len(first.Annotations) {
		t.Errorf("annotations: rebuilt %d, paste wrote %d", len(rebuilt.Annotations), len(first.Annotations))
	}

	if err := run([]string{"preview", "-config", config, "-output", out, "-file", "p1.png"}); err != nil {
		t.Fatalf("preview: %v", err)
	}
	w, h, err := imaging.DecodeSize(filepath.Join(out, "preview", "p1.png"))
	if err != nil {
		t.Fatal(err)
	}
	if w != 80 || h != 60 {
		t.Errorf("preview size: got %dx%d, want 80x60", w, h)
	}
}
