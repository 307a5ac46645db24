// Package session orchestrates one interactive image-editing session.
//
// A session owns the full pipeline for a single image: candidate
// generation, fusion, the editable region list and the redaction
// renderer. It enforces the concurrency rules the interactive flow
// depends on: at most one detection pass in flight (a concurrent
// request is dropped, not queued), superseded pass output discarded via
// a generation stamp, renders serialized per surface, and rapid edits
// debounced so a burst of sensitivity changes or region toggles
// collapses into a single recomputation.
//
// State transitions and fresh previews are reported on a bounded event
// channel; a slow consumer loses events rather than stalling the
// pipeline.
package session
