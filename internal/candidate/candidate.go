package candidate

import "github.com/pixelveil/pixelveil/internal/geom"

// Candidate is one unvalidated face rectangle proposed by a single
// strategy run. Candidates are immutable once created and live only for
// the duration of one detection pass; fusion consumes them and produces
// Regions.
type Candidate struct {
	// Rect is the proposed rectangle in original-image coordinates.
	Rect geom.Rect

	// Confidence is the strategy-weighted score in [0, 1].
	Confidence float64

	// Source tags the candidate's provenance: strategy, model, and the
	// scale, tile origin or preprocessing variant that produced it.
	Source string

	// HighAccuracy records whether the producing detector holds the
	// high-accuracy role. Fusion weighs such candidates up when picking
	// a cluster representative; carrying the role here avoids matching
	// on model names in the source tag.
	HighAccuracy bool

	// Landmarks holds the keypoints of the landmark mesh that validated
	// this candidate, or nil if the candidate is unvalidated.
	Landmarks []geom.Point
}

// Validated reports whether the candidate carries a validated landmark set.
func (c Candidate) Validated() bool {
	return len(c.Landmarks) > 0
}
