package candidate

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/pixelveil/pixelveil/internal/config"
	"github.com/pixelveil/pixelveil/internal/detect"
	"github.com/pixelveil/pixelveil/internal/geom"
	"github.com/pixelveil/pixelveil/internal/surface"
)

// maxPerInvocation caps the detections requested from a single adapter
// call. Fusion truncates far below this; the cap only bounds memory.
const maxPerInvocation = 100

// Generator produces provenance-tagged candidates by running every
// generation strategy against the detector registry.
//
// The registry is passed in at construction and read-only afterward; the
// generator holds no other mutable state and is safe for concurrent use,
// though the session orchestrator never runs two passes at once.
type Generator struct {
	reg    *detect.Registry
	tuning config.Tuning
	logger *slog.Logger
}

// NewGenerator builds a generator over an explicit registry.
func NewGenerator(reg *detect.Registry, tuning config.Tuning, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{reg: reg, tuning: tuning, logger: logger}
}

// Generate runs all strategies concurrently and returns the concatenated
// candidate list, landmark-validated where a landmark model is available.
//
// Individual strategy or adapter failures degrade to zero candidates for
// that strategy. Generate only fails outright when no detector model is
// loaded at all, or when ctx is cancelled.
func (g *Generator) Generate(ctx context.Context, img image.Image, sensitivity float64) ([]Candidate, error) {
	if !g.reg.Available() {
		return nil, detect.ErrNoDetectors
	}

	strategies := []func(context.Context, image.Image, float64) []Candidate{
		g.runEnsemble,
		g.runPyramid,
		g.runTiles,
		g.runVariants,
	}

	results := make([][]Candidate, len(strategies))
	eg, ctx := errgroup.WithContext(ctx)
	for i, strat := range strategies {
		i, strat := i, strat
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = strat(ctx, img, sensitivity)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []Candidate
	for _, r := range results {
		all = append(all, r...)
	}

	return g.validateLandmarks(ctx, img, all), nil
}

// runEnsemble invokes every loaded detector on the full image, weighting
// each detection by the per-role sensitivity weight.
func (g *Generator) runEnsemble(ctx context.Context, img image.Image, sensitivity float64) []Candidate {
	var out []Candidate
	for _, adapter := range g.reg.Loaded() {
		desc := adapter.Descriptor()
		dets, err := adapter.Detect(ctx, img, detect.Options{MaxCandidates: maxPerInvocation})
		if err != nil {
			g.logger.Warn("ensemble detector failed", "model", desc.Name, "error", err)
			continue
		}

		weight := g.tuning.Weights.Weight(desc.Role == detect.HighAccuracy, sensitivity)
		source := "ensemble/" + desc.Name
		for _, d := range dets {
			out = append(out, Candidate{
				Rect:         d.Rect,
				Confidence:   geom.Clamp(0, 1, d.Score*weight),
				Source:       source,
				HighAccuracy: desc.Role == detect.HighAccuracy,
			})
		}
	}
	return out
}

// runPyramid resamples the image at a sensitivity-dependent list of scale
// factors, detects at each scale, and maps boxes back to original
// coordinates by dividing by the scale factor.
func (g *Generator) runPyramid(ctx context.Context, img image.Image, sensitivity float64) []Candidate {
	scales := g.tuning.PyramidScalesNarrow
	if sensitivity > g.tuning.HighSensitivity {
		scales = g.tuning.PyramidScalesWide
	}

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()

	var out []Candidate
	for _, scale := range scales {
		if scale <= 0 {
			continue
		}

		level := img
		if scale != 1.0 {
			scaled, err := surface.Resize(img,
				int(math.Round(float64(origW)*scale)),
				int(math.Round(float64(origH)*scale)))
			if err != nil {
				g.logger.Warn("pyramid resample failed", "scale", scale, "error", err)
				continue
			}
			level = scaled
		}

		// Upsampled levels recover small faces and get the thorough
		// detector; downsampled levels look for large faces and the
		// fast detector suffices.
		adapter := g.reg.MostAccurate()
		if scale < 1.0 {
			adapter = g.reg.Fastest()
		}
		if adapter == nil {
			continue
		}
		desc := adapter.Descriptor()

		dets, err := adapter.Detect(ctx, level, detect.Options{MaxCandidates: maxPerInvocation})
		if err != nil {
			g.logger.Warn("pyramid detector failed", "model", desc.Name, "scale", scale, "error", err)
			continue
		}

		boost := 1.0
		if scale <= g.tuning.PyramidSmallScale || scale >= g.tuning.PyramidLargeScale {
			boost = g.tuning.PyramidEdgeBoost
		}

		source := fmt.Sprintf("pyramid/%s@%.2f", desc.Name, scale)
		for _, d := range dets {
			out = append(out, Candidate{
				Rect:         d.Rect.Scale(1 / scale),
				Confidence:   geom.Clamp(0, 1, d.Score*boost),
				Source:       source,
				HighAccuracy: desc.Role == detect.HighAccuracy,
			})
		}
	}
	return out
}

// runTiles partitions the image into overlapping square tiles sized from
// the image area, detects on each tile, and translates boxes back by the
// tile origin. Small tiles bias toward small or occluded faces and earn a
// confidence boost at high sensitivity.
func (g *Generator) runTiles(ctx context.Context, img image.Image, sensitivity float64) []Candidate {
	bounds := img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	side := geom.Clamp(g.tuning.TileMin, g.tuning.TileMax, math.Sqrt(w*h)/g.tuning.TileDivisor)
	high := sensitivity > g.tuning.HighSensitivity
	if high {
		side *= g.tuning.TileShrink
	}
	stride := side * (1 - g.tuning.TileOverlap)

	adapter := g.reg.Fastest()
	if adapter == nil {
		return nil
	}
	desc := adapter.Descriptor()

	boost := 1.0
	if high && side < g.tuning.TileSmallSide {
		boost = g.tuning.TileSmallBoost
	}

	var out []Candidate
	for y := 0.0; y < h; y += stride {
		for x := 0.0; x < w; x += stride {
			tile := geom.Rect{X: x, Y: y, Width: side, Height: side}.ClampTo(w, h)
			if tile.Width < g.tuning.TileSkipBelow || tile.Height < g.tuning.TileSkipBelow {
				continue
			}

			crop := surface.Crop(img, image.Rect(
				int(tile.X), int(tile.Y),
				int(tile.X+tile.Width), int(tile.Y+tile.Height)))

			dets, err := adapter.Detect(ctx, crop, detect.Options{MaxCandidates: maxPerInvocation})
			if err != nil {
				g.logger.Warn("tile detector failed",
					"model", desc.Name, "x", int(tile.X), "y", int(tile.Y), "error", err)
				continue
			}

			source := fmt.Sprintf("tile/%s@%d,%d", desc.Name, int(tile.X), int(tile.Y))
			for _, d := range dets {
				out = append(out, Candidate{
					Rect:         d.Rect.Translate(tile.X, tile.Y),
					Confidence:   geom.Clamp(0, 1, d.Score*boost),
					Source:       source,
					HighAccuracy: desc.Role == detect.HighAccuracy,
				})
			}
		}
	}
	return out
}

// validateLandmarks queries the landmark model once over the whole image
// and boosts every candidate that a mesh overlaps with IoU above the
// tuning threshold. Absence or failure of the landmark model leaves all
// candidates unvalidated; the pass never fails here.
func (g *Generator) validateLandmarks(ctx context.Context, img image.Image, cands []Candidate) []Candidate {
	lm := g.reg.Landmarks()
	if lm == nil || len(cands) == 0 {
		return cands
	}

	meshes, err := lm.Estimate(ctx, img)
	if err != nil {
		g.logger.Warn("landmark estimation failed", "error", err)
		return cands
	}
	if len(meshes) == 0 {
		return cands
	}

	for i := range cands {
		for _, m := range meshes {
			if geom.IoU(cands[i].Rect, m.Rect) > g.tuning.LandmarkIoU {
				cands[i].Confidence = geom.Clamp(0, 1, cands[i].Confidence*g.tuning.LandmarkBoost)
				cands[i].Landmarks = m.Keypoints
				break
			}
		}
	}
	return cands
}
