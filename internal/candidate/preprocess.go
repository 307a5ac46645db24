package candidate

import (
	"context"
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"

	"github.com/pixelveil/pixelveil/internal/detect"
	"github.com/pixelveil/pixelveil/internal/geom"
)

// variant is one whole-image preprocessing transform re-run through the
// most accurate detector. Variants can surface faces hidden by poor
// exposure or softness, but their detections are intrinsically less
// trustworthy than direct ones and carry a uniform confidence discount.
type variant struct {
	name  string
	apply func(image.Image) image.Image
}

var variants = []variant{
	{"contrast", func(img image.Image) image.Image { return adjust.Contrast(img, 0.25) }},
	{"brightness", func(img image.Image) image.Image { return adjust.Brightness(img, 0.15) }},
	{"gamma", func(img image.Image) image.Image { return adjust.Gamma(img, 1.5) }},
	{"sharpen", func(img image.Image) image.Image { return effect.Sharpen(img) }},
}

// runVariants applies each preprocessing transform to the whole image and
// re-runs the most accurate available detector on the result. The whole
// strategy is skipped at low sensitivity.
func (g *Generator) runVariants(ctx context.Context, img image.Image, sensitivity float64) []Candidate {
	if sensitivity <= g.tuning.VariantMinSensitivity {
		return nil
	}

	adapter := g.reg.MostAccurate()
	if adapter == nil {
		return nil
	}
	desc := adapter.Descriptor()

	var out []Candidate
	for _, v := range variants {
		if ctx.Err() != nil {
			return out
		}

		dets, err := adapter.Detect(ctx, v.apply(img), detect.Options{MaxCandidates: maxPerInvocation})
		if err != nil {
			g.logger.Warn("variant detector failed", "model", desc.Name, "variant", v.name, "error", err)
			continue
		}

		source := "variant/" + desc.Name + "/" + v.name
		for _, d := range dets {
			out = append(out, Candidate{
				Rect:         d.Rect,
				Confidence:   geom.Clamp(0, 1, d.Score*g.tuning.VariantDiscount),
				Source:       source,
				HighAccuracy: desc.Role == detect.HighAccuracy,
			})
		}
	}
	return out
}
