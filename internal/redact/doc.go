// Package redact irreversibly transforms the pixels inside enabled
// regions.
//
// Three methods are supported: Blur (repeated Gaussian passes), Pixelate
// (coarse uniform blocks colored from a sample near each block center),
// and Blackout (opaque fill). Blackout doubles as the universal fallback:
// if any transform fails or panics on a region, that region is blacked
// out instead. The renderer therefore never returns a surface in which an
// enabled region kept its original pixels; that is the package's privacy
// guarantee and the one failure it refuses to swallow.
//
// The same transform runs at two resolutions: full size for export and a
// resampled preview surface for live feedback, with region coordinates
// scaled to each surface's dimensions.
package redact
