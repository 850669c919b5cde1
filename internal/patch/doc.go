// Package patch prepares object patches for compositing.
//
// Patches are small images of a single seal or inscription on a white
// ground, named "{source}_{seals|inscriptions}_{index}.png". Extract cuts
// them out of a labeled COCO dataset, Filter whitens every pixel that is not
// seal red or ink black, and Choose draws the random set pasted onto one
// background.
package patch
