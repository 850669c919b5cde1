package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/seal-compositor/internal/coco"
	"github.com/ironsheep/seal-compositor/internal/compositor"
	"github.com/ironsheep/seal-compositor/internal/imaging"
	"github.com/ironsheep/seal-compositor/internal/patch"
	"github.com/ironsheep/seal-compositor/internal/preview"
	"github.com/ironsheep/seal-compositor/internal/rle"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "compositor_paste").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("tool done", zap.String("tool", params.Name), zap.Duration("elapsed", time.Since(start)))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Compositing
	case "compositor_segment":
		return s.handleSegment(args)
	case "compositor_find_location":
		return s.handleFindLocation(args)
	case "compositor_paste":
		return s.handlePaste(args)
	case "mask_encode_rle":
		return s.handleMaskEncodeRLE(args)

	// Patches and annotations
	case "patch_filter":
		return s.handlePatchFilter(args)
	case "annotation_preview":
		return s.handleAnnotationPreview(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// newRand returns a generator for seed; 0 selects a time-based seed.
func newRand(seed int64) (*rand.Rand, int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)), seed
}

// patchCategory resolves an explicit category name, falling back to the
// category encoded in the patch file name.
func patchCategory(name, path string) (compositor.Category, error) {
	if name != "" {
		return compositor.ParseCategory(name)
	}
	return patch.CategoryFromName(path)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Compositing Handlers ===

type segmentArgs struct {
	Path        string `json:"path"`
	IncludeMask bool   `json:"include_mask"`
}

// SegmentResult summarises a foreground/background segmentation.
type SegmentResult struct {
	Width              int                `json:"width"`
	Height             int                `json:"height"`
	Threshold          float64            `json:"threshold"`
	ForegroundPixels   int                `json:"foreground_pixels"`
	ForegroundFraction float64            `json:"foreground_fraction"`
	Mask               *imaging.PNGResult `json:"mask,omitempty"`
}

func (s *Server) handleSegment(args json.RawMessage) (interface{}, error) {
	var a segmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.LoadRGB(a.Path)
	if err != nil {
		return nil, err
	}

	seg := compositor.Segment(img)
	res := &SegmentResult{
		Width:              seg.Width,
		Height:             seg.Height,
		Threshold:          seg.Threshold,
		ForegroundPixels:   seg.ForegroundCount(),
		ForegroundFraction: seg.ForegroundFraction(),
	}
	if a.IncludeMask {
		if res.Mask, err = imaging.EncodePNG(seg.ToImage()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type findLocationArgs struct {
	Path             string `json:"path"`
	PatchPath        string `json:"patch_path"`
	Category         string `json:"category"`
	RequiresConflict bool   `json:"requires_conflict"`
	Seed             int64  `json:"seed"`
}

// FindLocationResult is a placement together with the seed that produced it.
type FindLocationResult struct {
	compositor.Placement
	Seed int64 `json:"seed"`
}

func (s *Server) handleFindLocation(args json.RawMessage) (interface{}, error) {
	var a findLocationArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cat, err := patchCategory(a.Category, a.PatchPath)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.LoadRGB(a.Path)
	if err != nil {
		return nil, err
	}
	obj, err := s.cache.LoadRGB(a.PatchPath)
	if err != nil {
		return nil, err
	}

	rng, seed := newRand(a.Seed)
	return &FindLocationResult{
		Placement: compositor.FindLocation(rng, img, obj, cat, a.RequiresConflict),
		Seed:      seed,
	}, nil
}

type pasteArgs struct {
	Path          string   `json:"path"`
	Patches       []string `json:"patches"`
	ConflictRatio *float64 `json:"conflict_ratio"`
	Seed          int64    `json:"seed"`
	OutputPath    string   `json:"output_path"`
	IncludeImage  bool     `json:"include_image"`
}

// PasteResult reports a batch composition.
type PasteResult struct {
	Seed        int64              `json:"seed"`
	Boxes       []compositor.Box   `json:"boxes"`
	Dropped     []compositor.Drop  `json:"dropped"`
	Conflicts   []bool             `json:"conflicts"`
	Annotations []coco.Annotation  `json:"annotations"`
	OutputPath  string             `json:"output_path,omitempty"`
	Image       *imaging.PNGResult `json:"image,omitempty"`
}

func (s *Server) handlePaste(args json.RawMessage) (interface{}, error) {
	var a pasteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Patches) == 0 {
		return nil, fmt.Errorf("patches must not be empty")
	}
	ratio := 0.2
	if a.ConflictRatio != nil {
		ratio = *a.ConflictRatio
	}

	base, err := s.cache.LoadRGB(a.Path)
	if err != nil {
		return nil, err
	}
	objects, err := patch.Load(s.cache, a.Patches)
	if err != nil {
		return nil, err
	}

	rng, seed := newRand(a.Seed)
	batch, err := compositor.NewScheduler(rng, s.logger).CompositeBatch(base, objects, ratio)
	if err != nil {
		return nil, err
	}

	res := &PasteResult{
		Seed:        seed,
		Boxes:       batch.Boxes,
		Dropped:     batch.Dropped,
		Conflicts:   batch.Conflicts,
		Annotations: make([]coco.Annotation, len(batch.Boxes)),
	}
	for i := range batch.Boxes {
		res.Annotations[i] = coco.NewAnnotation(batch.Boxes[i], batch.Masks[i])
		res.Annotations[i].ID = i + 1
	}
	if res.Dropped == nil {
		res.Dropped = []compositor.Drop{}
	}

	if a.OutputPath != "" {
		if err := imaging.SaveRGB(a.OutputPath, batch.Image); err != nil {
			return nil, err
		}
		s.cache.Evict(a.OutputPath)
		res.OutputPath = a.OutputPath
	}
	if a.IncludeImage {
		if res.Image, err = imaging.EncodePNG(batch.Image.ToNRGBA()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type maskArgs struct {
	Path string `json:"path"`
}

// RLEResult is a mask encoded as COCO RLE.
type RLEResult struct {
	Area         int     `json:"area"`
	Segmentation rle.RLE `json:"segmentation"`
}

func (s *Server) handleMaskEncodeRLE(args json.RawMessage) (interface{}, error) {
	var a maskArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	m := imaging.MaskFromImage(img)
	return &RLEResult{Area: m.Count(), Segmentation: rle.Encode(m)}, nil
}

// === Patch and Annotation Handlers ===

type patchFilterArgs struct {
	Path       string `json:"path"`
	Category   string `json:"category"`
	OutputPath string `json:"output_path"`
}

// PatchFilterResult reports a cleaned patch.
type PatchFilterResult struct {
	Category   string             `json:"category"`
	Kept       int                `json:"kept_pixels"`
	Total      int                `json:"total_pixels"`
	OutputPath string             `json:"output_path,omitempty"`
	Image      *imaging.PNGResult `json:"image,omitempty"`
}

func (s *Server) handlePatchFilter(args json.RawMessage) (interface{}, error) {
	var a patchFilterArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cat, err := patchCategory(a.Category, a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.LoadRGB(a.Path)
	if err != nil {
		return nil, err
	}

	out := patch.Filter(img, cat)
	res := &PatchFilterResult{Category: cat.String(), Total: out.Width * out.Height}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			if !out.IsWhite(x, y) {
				res.Kept++
			}
		}
	}

	if a.OutputPath != "" {
		if err := imaging.SaveRGB(a.OutputPath, out); err != nil {
			return nil, err
		}
		s.cache.Evict(a.OutputPath)
		res.OutputPath = a.OutputPath
		return res, nil
	}
	if res.Image, err = imaging.EncodePNG(out.ToNRGBA()); err != nil {
		return nil, err
	}
	return res, nil
}

type annotationPreviewArgs struct {
	AnnotationsPath string   `json:"annotations_path"`
	ImageDir        string   `json:"image_dir"`
	FileName        string   `json:"file_name"`
	Opacity         *float64 `json:"opacity"`
	Labels          *bool    `json:"labels"`
	OutputPath      string   `json:"output_path"`
}

// PreviewResult holds a rendered annotation preview.
type PreviewResult struct {
	OutputPath string             `json:"output_path,omitempty"`
	Image      *imaging.PNGResult `json:"image,omitempty"`
}

func (s *Server) handleAnnotationPreview(args json.RawMessage) (interface{}, error) {
	var a annotationPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ds, err := coco.ReadJSON(a.AnnotationsPath)
	if err != nil {
		return nil, err
	}

	opts := preview.DefaultOptions()
	if a.Opacity != nil {
		opts.Opacity = *a.Opacity
	}
	if a.Labels != nil {
		opts.Labels = *a.Labels
	}
	img, err := preview.RenderDatasetImage(ds, a.ImageDir, a.FileName, opts)
	if err != nil {
		return nil, err
	}

	if a.OutputPath != "" {
		if err := imaging.SaveImage(a.OutputPath, img); err != nil {
			return nil, err
		}
		s.cache.Evict(a.OutputPath)
		return &PreviewResult{OutputPath: a.OutputPath}, nil
	}
	encoded, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Image: encoded}, nil
}
