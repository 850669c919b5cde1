// Package compositor pastes seal and inscription patches onto background
// paintings and records where they went.
//
// The pipeline for one background image is:
//
//  1. Segment the current image into foreground and background
//  2. FindLocation picks a random position for the next patch whose
//     footprint does (or does not) overlap the foreground
//  3. Composite copies the patch's non-white pixels into the image and
//     returns the object's mask
//  4. Repeat for the next patch against the updated image
//  5. Union merges the per-object masks
//
// Scheduler.CompositeBatch drives these steps for an ordered batch of
// objects. Placement never loops without bound: a patch that cannot fit is
// rejected immediately and every other search stops after
// MaxPlacementAttempts.
//
// # Coordinates
//
// Boxes are XYXY with inclusive maxima; see Box.
//
// # Randomness
//
// No package-level random source is used. Callers pass a *rand.Rand, which
// makes runs reproducible from a seed.
package compositor
