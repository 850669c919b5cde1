package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func pathProp() map[string]interface{} {
	return stringProp("Absolute path to the image file")
}

func seedProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Random seed. 0 picks a time-based seed. Default 0",
		"default":     0,
	}
}

func categoryProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"seal", "inscription"},
		"description": "Object category. When omitted it is taken from the patch file name ({stem}_{seals|inscriptions}_{n}.png)",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProp(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProp(),
				},
				"required": []string{"path"},
			},
		},

		// Compositing
		{
			Name:        "compositor_segment",
			Description: "Separate foreground (ink, existing seals) from paper background using a smoothed Otsu threshold. Returns the threshold and foreground statistics, and optionally the foreground mask as base64 PNG (white = background, black = foreground).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProp(),
					"include_mask": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the foreground mask as base64 PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "compositor_find_location",
			Description: "Search for a location to paste a patch onto an image. With requires_conflict the footprint must overlap foreground; without it the footprint must lie entirely on background. Returns the inclusive box or the failure reason.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProp(),
					"patch_path": stringProp("Absolute path to the patch image"),
					"category":   categoryProp(),
					"requires_conflict": map[string]interface{}{
						"type":        "boolean",
						"description": "Require the footprint to overlap existing foreground. Default false",
						"default":     false,
					},
					"seed": seedProp(),
				},
				"required": []string{"path", "patch_path"},
			},
		},
		{
			Name:        "compositor_paste",
			Description: "Paste a batch of patches onto an image. Patches are processed in order; a conflict_ratio fraction of them must overlap existing content. Returns the placed boxes, the dropped objects and COCO annotations, and writes the composited image when output_path is set.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProp(),
					"patches": map[string]interface{}{
						"type":        "array",
						"description": "Absolute paths of patch files named {stem}_{seals|inscriptions}_{n}.png",
						"items":       map[string]interface{}{"type": "string"},
					},
					"conflict_ratio": map[string]interface{}{
						"type":        "number",
						"description": "Fraction of objects that must overlap existing content, in [0, 1]. Default 0.2",
						"default":     0.2,
					},
					"seed":        seedProp(),
					"output_path": stringProp("Optional path to write the composited image (PNG)"),
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the composited image as base64 PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path", "patches"},
			},
		},
		{
			Name:        "mask_encode_rle",
			Description: "Encode a binary mask image (nonzero = object) as a COCO uncompressed RLE in column-major order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": stringProp("Absolute path to the mask image"),
				},
				"required": []string{"path"},
			},
		},

		// Patches
		{
			Name:        "patch_filter",
			Description: "Whiten every pixel of a patch that is not seal ink (Lab a > 5 or b < -5) or inscription ink (HSV s < 0.17, 0.18 < v < 0.86), so only the object remains.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        stringProp("Absolute path to the patch image"),
					"category":    categoryProp(),
					"output_path": stringProp("Optional path to write the filtered patch. When omitted the result is returned as base64 PNG"),
				},
				"required": []string{"path"},
			},
		},

		// Annotations
		{
			Name:        "annotation_preview",
			Description: "Render the annotations of one image from a COCO file: masks tinted per category, boxes outlined and labelled. Returns base64 PNG unless output_path is set.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"annotations_path": stringProp("Absolute path to the COCO annotations JSON"),
					"image_dir":        stringProp("Directory holding the annotated images"),
					"file_name":        stringProp("file_name of the image in the COCO file"),
					"opacity": map[string]interface{}{
						"type":        "number",
						"description": "Mask tint opacity in [0, 1]. Default 0.4",
						"default":     0.4,
					},
					"labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw category labels. Default true",
						"default":     true,
					},
					"output_path": stringProp("Optional path to write the preview (PNG)"),
				},
				"required": []string{"annotations_path", "image_dir", "file_name"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
