// Package zone sizes manually added regions.
//
// When the user indicates a point, the heuristic proposes a square whose
// side is derived, in order of preference, from the sizes of nearby
// regions, from global region statistics, or from an adaptive default
// based on image size and how central the point is. The resulting square
// is centered on the point and clamped to the image bounds.
package zone
