// Package imaging provides the image primitives used by the compositor.
//
// It holds the dense RGB raster the compositor mutates, the binary Mask type
// produced for every pasted object, a thread-safe ImageCache for object
// patches, and thin wrappers around github.com/disintegration/imaging for
// decoding, saving, cropping and resizing.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Transparency
//
// Object patches use pure white (255,255,255) as their transparency color.
// FromImage maps fully transparent pixels of images with an alpha channel to
// white so both conventions end up the same once a patch is loaded.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. RGB and Mask values are not; a
// raster is owned by one goroutine while it is being composited.
package imaging
