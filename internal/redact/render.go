package redact

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pixelveil/pixelveil/internal/fusion"
	"github.com/pixelveil/pixelveil/internal/geom"
	"github.com/pixelveil/pixelveil/internal/surface"
)

// Method selects the pixel transform applied to each enabled region.
type Method int

const (
	// Blur applies repeated Gaussian passes over the region.
	Blur Method = iota
	// Pixelate replaces the region with coarse uniform blocks.
	Pixelate
	// Blackout fills the region with opaque black. It is also the
	// universal fallback when any other transform fails.
	Blackout
)

// String returns the lowercase method name.
func (m Method) String() string {
	switch m {
	case Blur:
		return "blur"
	case Pixelate:
		return "pixelate"
	case Blackout:
		return "blackout"
	default:
		return "unknown"
	}
}

// ParseMethod maps a string to a Method. Unrecognized input returns
// Blur and false.
func ParseMethod(s string) (Method, bool) {
	switch s {
	case "blur", "":
		return Blur, true
	case "pixelate":
		return Pixelate, true
	case "blackout":
		return Blackout, true
	default:
		return Blur, false
	}
}

// PreviewMaxSide is the longer-side limit of the live preview surface.
const PreviewMaxSide = 480

// Blur parameters: passes and the radius bounds derived from region size.
const (
	blurPasses    = 3
	blurRadiusMin = 3.0
	blurRadiusMax = 12.0
)

// Pixelate block side bounds.
const (
	blockMin = 6
	blockMax = 16
)

// Renderer applies redaction transforms to pixel surfaces.
//
// The renderer never leaves an enabled region unmodified: a transform
// that fails or panics on a region is replaced by a Blackout fill of the
// same rectangle. That fallback is the renderer's privacy guarantee.
type Renderer struct {
	logger *slog.Logger

	// Transform hooks, replaceable in tests to exercise the fallback.
	blurFn     func(dst *image.NRGBA, r image.Rectangle) error
	pixelateFn func(dst *image.NRGBA, r image.Rectangle) error
}

// NewRenderer builds a renderer.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		logger:     logger,
		blurFn:     blurRegion,
		pixelateFn: pixelateRegion,
	}
}

// Render returns a copy of img with every enabled region transformed by
// the chosen method. The input surface is never mutated. Disabled
// regions and regions with zero area after clamping are skipped.
func (rd *Renderer) Render(img image.Image, regions []fusion.Region, method Method) *image.NRGBA {
	dst := surface.Clone(img)
	w := float64(dst.Bounds().Dx())
	h := float64(dst.Bounds().Dy())

	for _, region := range regions {
		if !region.Enabled {
			continue
		}
		rect := toPixelRect(region.Rect, w, h)
		if rect.Empty() {
			continue
		}
		rd.applyRegion(dst, rect, method)
	}
	return dst
}

// RenderPreview renders a low-resolution variant of the same transform
// for the live preview. Region coordinates are identical to the
// full-resolution render, scaled to the preview surface dimensions.
func (rd *Renderer) RenderPreview(img image.Image, regions []fusion.Region, method Method) (*image.NRGBA, error) {
	small, err := surface.ResizeToFit(img, PreviewMaxSide)
	if err != nil {
		return nil, fmt.Errorf("failed to build preview surface: %w", err)
	}

	factor := float64(small.Bounds().Dx()) / float64(img.Bounds().Dx())
	scaled := make([]fusion.Region, len(regions))
	for i, region := range regions {
		scaled[i] = region
		scaled[i].Rect = region.Rect.Scale(factor)
	}

	return rd.Render(small, scaled, method), nil
}

// applyRegion runs one transform over one region, falling back to
// Blackout on any failure. The fallback path cannot fail: it writes
// pixels directly.
func (rd *Renderer) applyRegion(dst *image.NRGBA, rect image.Rectangle, method Method) {
	if method == Blackout {
		blackoutRegion(dst, rect)
		return
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("transform panicked: %v", r)
			}
		}()
		switch method {
		case Blur:
			return rd.blurFn(dst, rect)
		case Pixelate:
			return rd.pixelateFn(dst, rect)
		default:
			return fmt.Errorf("unknown method %d", method)
		}
	}()
	if err != nil {
		rd.logger.Warn("transform failed, falling back to blackout",
			"method", method.String(), "error", err)
		blackoutRegion(dst, rect)
	}
}

// toPixelRect converts a float region rectangle to a clamped integer
// pixel rectangle on a surface of the given dimensions.
func toPixelRect(r geom.Rect, w, h float64) image.Rectangle {
	clamped := r.ClampTo(w, h)
	if clamped.Area() <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Round(clamped.X)),
		int(math.Round(clamped.Y)),
		int(math.Round(clamped.X+clamped.Width)),
		int(math.Round(clamped.Y+clamped.Height)),
	)
}

// blackoutRegion fills the rectangle with opaque black.
func blackoutRegion(dst *image.NRGBA, rect image.Rectangle) {
	draw.Draw(dst, rect, image.NewUniform(color.NRGBA{A: 255}), image.Point{}, draw.Src)
}

// blurRegion applies several Gaussian passes over the rectangle. The
// radius grows with region size so large faces are obscured as
// thoroughly as small ones.
func blurRegion(dst *image.NRGBA, rect image.Rectangle) error {
	crop := surface.Crop(dst, rect)
	if crop.Bounds().Empty() {
		return fmt.Errorf("empty crop for %v", rect)
	}

	minSide := rect.Dx()
	if rect.Dy() < minSide {
		minSide = rect.Dy()
	}
	radius := geom.Clamp(blurRadiusMin, blurRadiusMax, float64(minSide)/10)

	var blurred image.Image = crop
	for i := 0; i < blurPasses; i++ {
		blurred = blur.Gaussian(blurred, radius)
	}

	draw.Draw(dst, rect, blurred, blurred.Bounds().Min, draw.Src)
	return nil
}

// pixelateRegion partitions the rectangle into square blocks and fills
// each with a single color sampled near the block's center. Samples are
// averaged in Lab space so the block color is perceptually
// representative rather than a raw pixel pick.
func pixelateRegion(dst *image.NRGBA, rect image.Rectangle) error {
	minSide := rect.Dx()
	if rect.Dy() < minSide {
		minSide = rect.Dy()
	}
	block := int(geom.Clamp(blockMin, blockMax, math.Floor(float64(minSide)/8)))

	for y := rect.Min.Y; y < rect.Max.Y; y += block {
		for x := rect.Min.X; x < rect.Max.X; x += block {
			bx2 := x + block
			if bx2 > rect.Max.X {
				bx2 = rect.Max.X
			}
			by2 := y + block
			if by2 > rect.Max.Y {
				by2 = rect.Max.Y
			}

			c := blockColor(dst, x, y, bx2, by2)
			draw.Draw(dst, image.Rect(x, y, bx2, by2),
				image.NewUniform(c), image.Point{}, draw.Src)
		}
	}
	return nil
}

// blockColor averages a small cross of samples around the block center
// in Lab space. All samples lie within the block, so re-pixelating an
// already pixelated block reproduces the same color exactly.
func blockColor(src *image.NRGBA, x1, y1, x2, y2 int) color.Color {
	cx := (x1 + x2) / 2
	cy := (y1 + y2) / 2

	offsets := [][2]int{{0, 0}, {-1, 0}, {1, 0}, {0, -1}, {0, 1}}

	var sumL, sumA, sumB float64
	var n int
	for _, off := range offsets {
		sx, sy := cx+off[0], cy+off[1]
		if sx < x1 || sx >= x2 || sy < y1 || sy >= y2 {
			continue
		}
		px := src.NRGBAAt(sx, sy)
		cf, ok := colorful.MakeColor(color.NRGBA{R: px.R, G: px.G, B: px.B, A: 255})
		if !ok {
			continue
		}
		l, a, b := cf.Lab()
		sumL += l
		sumA += a
		sumB += b
		n++
	}
	if n == 0 {
		return color.NRGBA{A: 255}
	}

	avg := colorful.Lab(sumL/float64(n), sumA/float64(n), sumB/float64(n)).Clamped()
	r8, g8, b8 := avg.RGB255()
	return color.NRGBA{R: r8, G: g8, B: b8, A: 255}
}
