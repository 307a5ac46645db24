package config

// SensitivityLevel is the user-facing detection effort setting.
//
// Each level maps to a scalar in [0, 1] that parameterizes every threshold
// in the pipeline. Higher values are more permissive: more scales, more
// tiles, lower confidence floors, more compute.
type SensitivityLevel int

const (
	// Fast favors speed: fewest scales, no preprocessing variants,
	// strict confidence floor.
	Fast SensitivityLevel = iota
	// Balanced is the default tradeoff.
	Balanced
	// Thorough favors recall: wide scale pyramid, shrunken tiles,
	// preprocessing variants, permissive thresholds.
	Thorough
)

// String returns the lowercase name of the level.
func (l SensitivityLevel) String() string {
	switch l {
	case Fast:
		return "fast"
	case Balanced:
		return "balanced"
	case Thorough:
		return "thorough"
	default:
		return "unknown"
	}
}

// Scalar returns the numeric sensitivity in [0, 1] for the level.
// Unknown levels fall back to Balanced.
func (l SensitivityLevel) Scalar() float64 {
	switch l {
	case Fast:
		return 0.3
	case Thorough:
		return 0.9
	default:
		return 0.6
	}
}

// ParseSensitivity maps a string to a SensitivityLevel.
// Unrecognized input returns Balanced and false.
func ParseSensitivity(s string) (SensitivityLevel, bool) {
	switch s {
	case "fast":
		return Fast, true
	case "balanced", "":
		return Balanced, true
	case "thorough":
		return Thorough, true
	default:
		return Balanced, false
	}
}
