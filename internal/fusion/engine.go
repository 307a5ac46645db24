package fusion

import (
	"log/slog"
	"math"
	"sort"

	"github.com/pixelveil/pixelveil/internal/candidate"
	"github.com/pixelveil/pixelveil/internal/config"
	"github.com/pixelveil/pixelveil/internal/geom"
)

// Engine converts raw candidates into the final region list through three
// ordered stages: quality filtering, confidence-based clustering, and
// adaptive non-maximum suppression.
type Engine struct {
	tuning config.Tuning
	logger *slog.Logger
}

// NewEngine builds a fusion engine with the given tuning.
func NewEngine(tuning config.Tuning, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{tuning: tuning, logger: logger}
}

// Fuse reduces candidates to the final deduplicated, confidence-ranked
// region list for an imgW×imgH image. The result never exceeds the input
// candidate count and every region lies within the image bounds.
func (e *Engine) Fuse(cands []candidate.Candidate, imgW, imgH int, sensitivity float64) []Region {
	filtered := e.qualityFilter(cands, float64(imgW), float64(imgH), sensitivity)
	clusters := e.cluster(filtered, sensitivity)
	kept := e.suppress(clusters, sensitivity)

	regions := make([]Region, 0, len(kept))
	for _, c := range kept {
		regions = append(regions, NewRegion(c.rect, c.confidence, OriginDetected, float64(imgW), float64(imgH)))
	}

	e.logger.Debug("fusion complete",
		"candidates", len(cands), "filtered", len(filtered),
		"clusters", len(clusters), "regions", len(regions))
	return regions
}

// qualityFilter rejects candidates that cannot plausibly be a face: too
// small, too large, implausible aspect ratio, confidence below the
// sensitivity-dependent floor, or out of image bounds.
func (e *Engine) qualityFilter(cands []candidate.Candidate, imgW, imgH, sensitivity float64) []candidate.Candidate {
	minDim := math.Min(imgW, imgH)

	minSideFrac := e.tuning.MinSideFracStrict
	if sensitivity > e.tuning.HighSensitivity {
		minSideFrac = e.tuning.MinSideFracRelaxed
	}
	minSide := minDim * minSideFrac
	maxSide := minDim * e.tuning.MaxSideFrac
	floor := e.tuning.ConfidenceFloorAt(sensitivity)

	out := make([]candidate.Candidate, 0, len(cands))
	for _, c := range cands {
		r := c.Rect
		if r.MinSide() < minSide || r.MaxSide() > maxSide {
			continue
		}
		if ar := r.AspectRatio(); ar < e.tuning.MinAspect || ar > e.tuning.MaxAspect {
			continue
		}
		if c.Confidence < floor {
			continue
		}
		if !r.Inside(imgW, imgH) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// fused is a cluster reduced to its representative score and averaged
// geometry.
type fused struct {
	rect       geom.Rect
	confidence float64
}

// cluster groups overlapping candidates. Candidates are visited in
// descending confidence order and join the first existing cluster whose
// representative they overlap above the sensitivity-dependent threshold.
//
// Each cluster's representative is chosen by a weighted score favoring
// the high-accuracy model and validated landmarks, while the cluster
// geometry is the arithmetic mean of all members. Averaging stabilizes
// jittery boxes contributed by different strategies.
func (e *Engine) cluster(cands []candidate.Candidate, sensitivity float64) []fused {
	if len(cands) == 0 {
		return nil
	}

	ordered := make([]candidate.Candidate, len(cands))
	copy(ordered, cands)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	threshold := e.tuning.ClusterIoUAt(sensitivity)

	var clusters [][]candidate.Candidate
next:
	for _, c := range ordered {
		for i := range clusters {
			if geom.IoU(clusters[i][0].Rect, c.Rect) > threshold {
				clusters[i] = append(clusters[i], c)
				continue next
			}
		}
		clusters = append(clusters, []candidate.Candidate{c})
	}

	out := make([]fused, 0, len(clusters))
	for _, members := range clusters {
		best := -1.0
		var sumX, sumY, sumW, sumH float64
		for _, m := range members {
			score := m.Confidence
			if m.HighAccuracy {
				score *= e.tuning.ClusterModelBonus
			}
			if m.Validated() {
				score *= e.tuning.ClusterMarkBonus
			}
			if score > best {
				best = score
			}
			sumX += m.Rect.X
			sumY += m.Rect.Y
			sumW += m.Rect.Width
			sumH += m.Rect.Height
		}

		n := float64(len(members))
		out = append(out, fused{
			rect: geom.Rect{
				X:      sumX / n,
				Y:      sumY / n,
				Width:  sumW / n,
				Height: sumH / n,
			},
			confidence: geom.Clamp(0, 1, best),
		})
	}
	return out
}

// suppress applies adaptive non-maximum suppression over the clustered
// regions: a region survives unless it overlaps an already-kept region
// above the adaptive threshold. The threshold relaxes at high sensitivity
// and tightens further when the two regions have very different areas, so
// distinct-sized faces do not suppress each other as readily.
func (e *Engine) suppress(clusters []fused, sensitivity float64) []fused {
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].confidence > clusters[j].confidence
	})

	base := e.tuning.NMSBaseIoU
	if sensitivity > e.tuning.HighSensitivity {
		base = e.tuning.NMSRelaxedIoU
	}

	var kept []fused
	for _, c := range clusters {
		if len(kept) >= e.tuning.NMSKeepLimit {
			break
		}

		suppressed := false
		for _, k := range kept {
			threshold := base
			areaA, areaB := c.rect.Area(), k.rect.Area()
			if areaA > 0 && areaB > 0 {
				ratio := math.Max(areaA, areaB) / math.Min(areaA, areaB)
				if ratio > e.tuning.NMSAreaRatio {
					threshold *= e.tuning.NMSAreaFactor
				}
			}
			if geom.IoU(c.rect, k.rect) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}

	if len(kept) > e.tuning.NMSOutputLimit {
		kept = kept[:e.tuning.NMSOutputLimit]
	}
	return kept
}
