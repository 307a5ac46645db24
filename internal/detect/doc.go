// Package detect defines the boundary to the pretrained detection and
// landmark models: the closed set of detector roles, the adapter
// interfaces, and an explicit per-session registry.
//
// # Roles
//
// Detectors are selected by role, not by name. The role set is closed
// (HighAccuracy, FastApprox) and every selection site handles both
// members, so there is no string-keyed dispatch and no lookup-miss
// failure mode.
//
// # Failure Tolerance
//
// A model that fails to load or to run yields an error wrapping
// ErrModelUnavailable. Callers treat that as "zero candidates" and carry
// on; only the total absence of loaded detectors (ErrNoDetectors) is
// surfaced to the user as a detection-unavailable condition.
//
// # Pigo Backend
//
// The bundled implementation wraps the pigo pixel-intensity-comparison
// cascades: one shared face classifier swept with role-specific shift and
// scale factors, plus the puploc cascade for eye keypoints. Cascade
// binaries are read from a directory at registry construction; missing
// files produce unloaded descriptors rather than errors.
package detect
