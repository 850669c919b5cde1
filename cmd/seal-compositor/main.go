package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/seal-compositor/internal/coco"
	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/config"
	"github.com/ironsheep/seal-compositor/internal/imaging"
	"github.com/ironsheep/seal-compositor/internal/logging"
	"github.com/ironsheep/seal-compositor/internal/patch"
	"github.com/ironsheep/seal-compositor/internal/pipeline"
	"github.com/ironsheep/seal-compositor/internal/preview"
	"github.com/ironsheep/seal-compositor/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultConfig = "seal-compositor.yaml"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seal-compositor: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return runServe(args)
	case "paste":
		return runPaste(args)
	case "coco":
		return runCOCO(args)
	case "filter":
		return runFilter(args)
	case "extract":
		return runExtract(args)
	case "preview":
		return runPreview(args)
	case "--version", "-v", "version":
		fmt.Printf("seal-compositor %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return nil
	case "--help", "-h", "help":
		printUsage()
		return nil
	}
	printUsage()
	return fmt.Errorf("unknown command %q", cmd)
}

func printUsage() {
	fmt.Println("seal-compositor - synthetic seal and inscription datasets for painting images")
	fmt.Println()
	fmt.Println("Usage: seal-compositor <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve      MCP server over stdin/stdout (default)")
	fmt.Println("  paste      Composite patches onto every background and write a COCO dataset")
	fmt.Println("  coco       Rebuild annotations.json from an output tree")
	fmt.Println("  filter     Whiten everything but the ink in a directory of patches")
	fmt.Println("  extract    Crop annotated objects of a COCO dataset into patches")
	fmt.Println("  preview    Render the annotations of one image")
	fmt.Println("  version    Print version information")
	fmt.Println()
	fmt.Println("Run 'seal-compositor <command> -h' for command options.")
	fmt.Println()
	fmt.Println("Every setting of the config file can be overridden from the environment,")
	fmt.Println("e.g. SEALCOMP_PASTE_CONFLICT_RATIO=0.3 or SEALCOMP_LOG_LEVEL=debug.")
}

// setup loads the config file and builds the logger it describes.
func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// isSet reports whether name was given on the command line, so flags only
// override config values the user asked for.
func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Debug("starting MCP server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit))
	return server.New(Version, logger).Run()
}

func runPaste(args []string) error {
	fs := flag.NewFlagSet("paste", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "config file")
	backgrounds := fs.String("backgrounds", "", "directory of background images")
	objects := fs.String("objects", "", "directory of seal and inscription patches")
	output := fs.String("output", "", "output directory")
	ratio := fs.Float64("ratio", 0, "share of objects that must overlap existing content")
	seed := fs.Int64("seed", 0, "random seed, 0 for time-based")
	workers := fs.Int("workers", 0, "images processed concurrently")
	size := fs.Int("size", 0, "resize backgrounds to size x size, 0 to keep")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if isSet(fs, "backgrounds") {
		cfg.Paths.Backgrounds = *backgrounds
	}
	if isSet(fs, "objects") {
		cfg.Paths.Objects = *objects
	}
	if isSet(fs, "output") {
		cfg.Paths.Output = *output
	}
	if isSet(fs, "ratio") {
		cfg.Paste.ConflictRatio = *ratio
	}
	if isSet(fs, "seed") {
		cfg.Run.Seed = *seed
	}
	if isSet(fs, "workers") {
		cfg.Run.Workers = *workers
	}
	if isSet(fs, "size") {
		cfg.Resize.Size = *size
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Run(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func runCOCO(args []string) error {
	fs := flag.NewFlagSet("coco", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "config file")
	output := fs.String("output", "", "output tree to index (default: paths.output)")
	description := fs.String("description", "seal-compositor dataset", "COCO info description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	root := cfg.Paths.Output
	if *output != "" {
		root = *output
	}
	layout := coco.Layout{Root: root}

	ds, err := coco.BuildFromDir(layout, coco.NewInfo(*description, time.Now()))
	if err != nil {
		return err
	}
	if err := coco.WriteJSON(layout.AnnotationsPath(), ds); err != nil {
		return err
	}
	logger.Info("annotations written",
		zap.String("path", layout.AnnotationsPath()),
		zap.Int("images", len(ds.Images)),
		zap.Int("annotations", len(ds.Annotations)))
	return nil
}

func runFilter(args []string) error {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "config file")
	src := fs.String("src", "", "directory of raw patches")
	dst := fs.String("dst", "", "directory for cleaned patches (default: paths.objects)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *src == "" {
		return errors.New("filter: -src is required")
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	out := cfg.Paths.Objects
	if *dst != "" {
		out = *dst
	}
	n, err := patch.FilterDir(*src, out, logger)
	if err != nil {
		return err
	}
	logger.Info("patches filtered", zap.Int("written", n), zap.String("dst", out))
	return nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "config file")
	annotations := fs.String("annotations", "", "labeled COCO annotations JSON")
	images := fs.String("images", "", "directory of the labeled images")
	out := fs.String("out", "", "directory for extracted patches")
	ann := fs.String("ann", "both", "categories to extract: seal, inscription or both")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *annotations == "" || *images == "" || *out == "" {
		return errors.New("extract: -annotations, -images and -out are required")
	}

	var cats []compositor.Category
	if *ann != "both" {
		cat, err := compositor.ParseCategory(*ann)
		if err != nil {
			return err
		}
		cats = []compositor.Category{cat}
	}

	_, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ds, err := coco.ReadJSON(*annotations)
	if err != nil {
		return err
	}
	n, err := patch.Extract(ds, *images, *out, patch.ExtractOptions{Categories: cats, Logger: logger})
	if err != nil {
		return err
	}
	logger.Info("patches extracted", zap.Int("written", n), zap.String("out", *out))
	return nil
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "config file")
	output := fs.String("output", "", "output tree holding the dataset (default: paths.output)")
	file := fs.String("file", "", "file_name of the image to render")
	out := fs.String("out", "", "preview output path (default: {output}/preview/{file})")
	opacity := fs.Float64("opacity", 0.4, "mask tint opacity")
	labels := fs.Bool("labels", true, "draw category labels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("preview: -file is required")
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	root := cfg.Paths.Output
	if *output != "" {
		root = *output
	}
	layout := coco.Layout{Root: root}
	ds, err := coco.ReadJSON(layout.AnnotationsPath())
	if err != nil {
		return err
	}

	opts := preview.DefaultOptions()
	opts.Opacity = *opacity
	opts.Labels = *labels
	img, err := preview.RenderDatasetImage(ds, layout.PastedDir(), *file, opts)
	if err != nil {
		return err
	}

	dst := *out
	if dst == "" {
		dst = filepath.Join(root, "preview", filepath.Base(*file))
	}
	if err := imaging.SaveImage(dst, img); err != nil {
		return err
	}
	logger.Info("preview written", zap.String("path", dst))
	return nil
}
