package fusion

import (
	"github.com/google/uuid"

	"github.com/pixelveil/pixelveil/internal/geom"
)

// Origin records how a region came to exist.
type Origin string

const (
	// OriginDetected marks a region produced by the fusion engine.
	OriginDetected Origin = "detected"
	// OriginManual marks a region added by the user.
	OriginManual Origin = "manual"
)

// Region is a final, user-toggleable face rectangle.
//
// Regions are created by the fusion engine or by the manual-zone
// heuristic, always clamped inside the image bounds. Only the Enabled
// flag is mutated after creation; a new detection pass replaces the whole
// region list.
type Region struct {
	// ID uniquely identifies the region within a session.
	ID string `json:"id"`

	// Rect is the region's rectangle, inside image bounds.
	Rect geom.Rect `json:"rect"`

	// Confidence is the fused confidence in [0, 1]. Manual regions carry 1.
	Confidence float64 `json:"confidence"`

	// Enabled controls whether the region is redacted. New regions start
	// enabled.
	Enabled bool `json:"enabled"`

	// Origin is "detected" or "manual".
	Origin Origin `json:"origin"`
}

// NewRegion builds an enabled region with a fresh id, clamping the
// rectangle to the image bounds.
func NewRegion(r geom.Rect, confidence float64, origin Origin, imgW, imgH float64) Region {
	return Region{
		ID:         uuid.NewString(),
		Rect:       r.ClampTo(imgW, imgH),
		Confidence: geom.Clamp(0, 1, confidence),
		Enabled:    true,
		Origin:     origin,
	}
}
