package zone

import (
	"math"
	"sort"

	"github.com/pixelveil/pixelveil/internal/fusion"
	"github.com/pixelveil/pixelveil/internal/geom"
)

// Sizing bounds for the three tiers.
const (
	localMin  = 32
	localMax  = 200
	globalMin = 40
	globalMax = 150
	adaptMin  = 40
	adaptMax  = 120

	// neighborRadiusFrac is the fraction of min(imgW, imgH) within which
	// an existing region counts as local context for the clicked point.
	neighborRadiusFrac = 0.3

	// adaptBase scales the density estimate into pixels.
	adaptBase = 35
)

// Size determines the side length of a new square region for a
// user-indicated point, via three ordered tiers:
//
//  1. Local context: average size of existing regions whose center lies
//     near the point.
//  2. Global statistics: the mean and median size of all regions,
//     averaged, when none are nearby.
//  3. Adaptive default: an image-density estimate weighted toward larger
//     sizes near the image center, when no regions exist at all.
//
// The result always lies in [32, 200] pixels.
func Size(p geom.Point, regions []fusion.Region, imgW, imgH float64) float64 {
	if side, ok := localContext(p, regions, imgW, imgH); ok {
		return side
	}
	if side, ok := globalStats(regions); ok {
		return side
	}
	return adaptiveDefault(p, imgW, imgH)
}

// Build returns a new manual region: a square of the heuristic size
// centered on the point, clamped to the image bounds.
func Build(p geom.Point, regions []fusion.Region, imgW, imgH float64) fusion.Region {
	side := Size(p, regions, imgW, imgH)
	rect := geom.Rect{
		X:      p.X - side/2,
		Y:      p.Y - side/2,
		Width:  side,
		Height: side,
	}
	return fusion.NewRegion(rect, 1.0, fusion.OriginManual, imgW, imgH)
}

// localContext averages the size of regions centered within 30% of
// min(imgW, imgH) of the point.
func localContext(p geom.Point, regions []fusion.Region, imgW, imgH float64) (float64, bool) {
	radius := math.Min(imgW, imgH) * neighborRadiusFrac

	var sum float64
	var n int
	for _, r := range regions {
		c := r.Rect.Center()
		if math.Hypot(c.X-p.X, c.Y-p.Y) <= radius {
			sum += (r.Rect.Width + r.Rect.Height) / 2
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return geom.Clamp(localMin, localMax, sum/float64(n)), true
}

// globalStats averages the mean and median region size when at least one
// region exists anywhere in the image.
func globalStats(regions []fusion.Region) (float64, bool) {
	if len(regions) == 0 {
		return 0, false
	}

	sizes := make([]float64, 0, len(regions))
	var sum float64
	for _, r := range regions {
		s := (r.Rect.Width + r.Rect.Height) / 2
		sizes = append(sizes, s)
		sum += s
	}
	sort.Float64s(sizes)

	mean := sum / float64(len(sizes))
	var median float64
	if n := len(sizes); n%2 == 1 {
		median = sizes[n/2]
	} else {
		median = (sizes[n/2-1] + sizes[n/2]) / 2
	}

	return geom.Clamp(globalMin, globalMax, (mean+median)/2), true
}

// adaptiveDefault derives a size from the image density, weighted up as
// the point nears the image center. The center factor spans [0.7, 1.3]:
// 1.3 at the exact center, 0.7 at a corner.
func adaptiveDefault(p geom.Point, imgW, imgH float64) float64 {
	density := math.Sqrt(imgW*imgH) / 1000

	cx, cy := imgW/2, imgH/2
	halfDiag := math.Hypot(cx, cy)
	norm := 0.0
	if halfDiag > 0 {
		norm = math.Hypot(p.X-cx, p.Y-cy) / halfDiag
	}
	centerFactor := 1.3 - 0.6*geom.Clamp(0, 1, norm)

	return geom.Clamp(adaptMin, adaptMax, density*adaptBase*centerFactor)
}
