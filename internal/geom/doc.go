// Package geom provides the rectangle arithmetic shared by the detection
// pipeline: intersection-over-union, clamping to image bounds, translation
// and scaling between coordinate spaces.
//
// # Coordinate System
//
// All rectangles use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Coordinates are float64 throughout. Candidate rectangles move between
// scaled, tiled and original coordinate spaces before fusion, and cluster
// geometry is averaged arithmetically; rounding to whole pixels happens
// only at the rendering boundary.
//
// # IoU
//
// IoU (intersection-over-union) is the overlap measure used for landmark
// matching, clustering and non-maximum suppression. It is symmetric, lies
// in [0, 1], is 0 for disjoint rectangles and 1 for identical ones.
package geom
