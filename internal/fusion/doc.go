// Package fusion turns the flat, noisy candidate list into the final
// deduplicated, confidence-ranked region list.
//
// # Pipeline
//
// Three ordered stages, each consuming the previous stage's output:
//
//  1. Quality filter: rejects candidates that are too small or too large
//     relative to the image, have implausible aspect ratios, fall below
//     the sensitivity-dependent confidence floor, or lie outside the
//     image bounds.
//  2. Confidence-based clustering: candidates join the first existing
//     cluster whose representative they overlap above the sensitivity
//     threshold. The cluster keeps its best weighted score (bonuses for
//     the high-accuracy model and validated landmarks) and averages its
//     members' geometry to stabilize jitter between strategies.
//  3. Adaptive non-maximum suppression: highest confidence first, a
//     region is dropped when it overlaps an already-kept region above an
//     adaptive threshold that relaxes at high sensitivity and tightens
//     when the two regions differ substantially in area.
//
// Fusion never increases the candidate count, and every returned region
// is clamped inside the image bounds.
package fusion
