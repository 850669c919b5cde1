// Package server implements the MCP (Model Context Protocol) server that
// exposes the compositor as tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Compositing:
//   - compositor_segment: Foreground/background segmentation statistics
//   - compositor_find_location: Search a paste location for one patch
//   - compositor_paste: Paste a batch of patches and return boxes and annotations
//   - mask_encode_rle: Encode a mask image as COCO RLE
//
// Patches and annotations:
//   - patch_filter: Whiten everything but seal or inscription ink
//   - annotation_preview: Render COCO annotations over their image
//
// Tools that draw random positions accept a seed and report the seed they
// used, so a call can be repeated exactly.
//
// # Image Caching
//
// Images are cached by path for the lifetime of the process and reused
// across tool calls. Cached rasters are never modified; pasting works on a
// copy.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Logs go to the zap logger passed to New, never to stdout.
package server
