// Package candidate runs the detection-candidate generation strategies
// and produces the flat, provenance-tagged list that fusion consumes.
//
// # Strategies
//
// Four independent strategies run concurrently against the detector
// registry:
//
//  1. Model ensemble: every loaded detector over the full image, with a
//     per-role confidence weight that shifts toward the accurate model as
//     sensitivity rises.
//  2. Scale pyramid: the image resampled at a sensitivity-dependent set
//     of factors; boxes are mapped back by dividing by the factor, and
//     extreme scales earn a small boost for recovering very small or very
//     large faces.
//  3. Adaptive tiling: overlapping square tiles sized from the image
//     area, each scanned with the fast detector; boxes translate back by
//     the tile origin.
//  4. Preprocessing variants: contrast, brightness, gamma and sharpening
//     transforms re-scanned with the accurate detector at a uniform
//     confidence discount. Skipped entirely at low sensitivity.
//
// Outputs are concatenated without deduplication; that is fusion's job.
//
// # Landmark Validation
//
// After concatenation, the landmark model is queried once over the whole
// image. Candidates overlapping a mesh above the IoU threshold get a
// confidence boost and carry the mesh keypoints. A missing or failing
// landmark model leaves candidates unvalidated and never fails the pass.
//
// # Failure Model
//
// Any single adapter failure degrades to zero candidates for that
// invocation, logged at Warn. Generation fails only when no detector is
// loaded at all or the context is cancelled.
package candidate
