// Package coco writes the annotations of generated images: per-image bbox
// text files and a COCO instance-segmentation JSON file whose segmentations
// are uncompressed RLE.
//
// Category ids are fixed: 0 is Inscription and 1 is Seal.
package coco
