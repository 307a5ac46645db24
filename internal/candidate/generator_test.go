package candidate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/pixelveil/pixelveil/internal/config"
	"github.com/pixelveil/pixelveil/internal/detect"
	"github.com/pixelveil/pixelveil/internal/geom"
)

// proportionalAdapter reports one face covering the central half of
// whatever image it is given. Because the box is proportional to the
// input, coordinate mapping bugs in the pyramid and tiling strategies
// show up as displaced rectangles.
type proportionalAdapter struct {
	desc  detect.Descriptor
	score float64
	err   error
	calls int
}

func (a *proportionalAdapter) Descriptor() detect.Descriptor { return a.desc }

func (a *proportionalAdapter) Detect(ctx context.Context, img image.Image, opts detect.Options) ([]detect.Detection, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())
	return []detect.Detection{{
		Rect:  geom.Rect{X: w / 4, Y: h / 4, Width: w / 2, Height: h / 2},
		Score: a.score,
	}}, nil
}

type stubLandmarks struct {
	meshes []detect.Mesh
	err    error
}

func (s *stubLandmarks) Estimate(ctx context.Context, img image.Image) ([]detect.Mesh, error) {
	return s.meshes, s.err
}

func testRegistry(lm detect.LandmarkAdapter) (*detect.Registry, *proportionalAdapter, *proportionalAdapter) {
	accurate := &proportionalAdapter{
		desc:  detect.Descriptor{Name: "stub-dense", Role: detect.HighAccuracy, Loaded: true},
		score: 0.8,
	}
	fast := &proportionalAdapter{
		desc:  detect.Descriptor{Name: "stub-coarse", Role: detect.FastApprox, Loaded: true},
		score: 0.6,
	}
	return detect.NewRegistry([]detect.Adapter{accurate, fast}, lm), accurate, fast
}

func testImage(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func sourcesByPrefix(cands []Candidate) map[string]int {
	counts := make(map[string]int)
	for _, c := range cands {
		prefix := c.Source
		if i := strings.IndexByte(prefix, '/'); i >= 0 {
			prefix = prefix[:i]
		}
		counts[prefix]++
	}
	return counts
}

func TestGenerate_NoDetectors(t *testing.T) {
	unloaded := &proportionalAdapter{
		desc: detect.Descriptor{Name: "stub", Role: detect.HighAccuracy, Loaded: false},
	}
	reg := detect.NewRegistry([]detect.Adapter{unloaded}, nil)
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	_, err := gen.Generate(context.Background(), testImage(400, 400), 0.6)
	if !errors.Is(err, detect.ErrNoDetectors) {
		t.Errorf("got %v, want ErrNoDetectors", err)
	}
}

func TestGenerate_AllStrategiesContribute(t *testing.T) {
	reg, _, _ := testRegistry(nil)
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	cands, err := gen.Generate(context.Background(), testImage(600, 600), 0.9)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	counts := sourcesByPrefix(cands)
	for _, strategy := range []string{"ensemble", "pyramid", "tile", "variant"} {
		if counts[strategy] == 0 {
			t.Errorf("no candidates from %s strategy (got %v)", strategy, counts)
		}
	}
}

func TestGenerate_VariantsGatedBySensitivity(t *testing.T) {
	reg, _, _ := testRegistry(nil)
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	cands, err := gen.Generate(context.Background(), testImage(600, 600), 0.3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if n := sourcesByPrefix(cands)["variant"]; n != 0 {
		t.Errorf("variants must be skipped at sensitivity 0.3, got %d candidates", n)
	}
}

func TestGenerate_PyramidWidthTracksSensitivity(t *testing.T) {
	reg, _, _ := testRegistry(nil)
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	distinctPyramidSources := func(sensitivity float64) int {
		cands, err := gen.Generate(context.Background(), testImage(500, 500), sensitivity)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		seen := make(map[string]bool)
		for _, c := range cands {
			if strings.HasPrefix(c.Source, "pyramid/") {
				seen[c.Source] = true
			}
		}
		return len(seen)
	}

	narrow := distinctPyramidSources(0.6)
	wide := distinctPyramidSources(0.9)

	if narrow != 3 {
		t.Errorf("narrow pyramid: got %d scales, want 3", narrow)
	}
	if wide != 6 {
		t.Errorf("wide pyramid: got %d scales, want 6", wide)
	}
}

func TestGenerate_PyramidMapsBackToOriginalCoordinates(t *testing.T) {
	reg, _, _ := testRegistry(nil)
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	const w, h = 500, 400
	cands, err := gen.Generate(context.Background(), testImage(w, h), 0.9)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// The stub reports the central half of its input, so every pyramid
	// candidate must land on the central half of the original image.
	want := geom.Rect{X: w / 4.0, Y: h / 4.0, Width: w / 2.0, Height: h / 2.0}
	for _, c := range cands {
		if !strings.HasPrefix(c.Source, "pyramid/") {
			continue
		}
		if math.Abs(c.Rect.X-want.X) > 2 || math.Abs(c.Rect.Y-want.Y) > 2 ||
			math.Abs(c.Rect.Width-want.Width) > 3 || math.Abs(c.Rect.Height-want.Height) > 3 {
			t.Errorf("%s: got %+v, want ≈%+v", c.Source, c.Rect, want)
		}
	}
}

func TestGenerate_TilesTranslateByOrigin(t *testing.T) {
	reg, _, _ := testRegistry(nil)
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	// 2000x2000: tile side clamp(sqrt(4e6)/4=500, 256, 512) = 500,
	// stride 300, so multiple tiles exist at distinct origins.
	cands, err := gen.Generate(context.Background(), testImage(2000, 2000), 0.6)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	origins := make(map[string]bool)
	for _, c := range cands {
		if !strings.HasPrefix(c.Source, "tile/") {
			continue
		}
		origins[c.Source] = true

		// Tile boxes must stay within the image after translation.
		if c.Rect.X < 0 || c.Rect.Y < 0 || c.Rect.X+c.Rect.Width > 2000 || c.Rect.Y+c.Rect.Height > 2000 {
			t.Errorf("tile candidate outside image: %s %+v", c.Source, c.Rect)
		}
	}
	if len(origins) < 4 {
		t.Errorf("expected multiple tile origins, got %d", len(origins))
	}
}

func TestGenerate_ConfidenceInRange(t *testing.T) {
	reg, _, _ := testRegistry(nil)
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	for _, sensitivity := range []float64{0.3, 0.6, 0.9} {
		cands, err := gen.Generate(context.Background(), testImage(600, 600), sensitivity)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		for _, c := range cands {
			if c.Confidence < 0 || c.Confidence > 1 {
				t.Fatalf("confidence out of range at sensitivity %g: %+v", sensitivity, c)
			}
		}
	}
}

func TestGenerate_DetectorFailureDegrades(t *testing.T) {
	accurate := &proportionalAdapter{
		desc: detect.Descriptor{Name: "stub-dense", Role: detect.HighAccuracy, Loaded: true},
		err:  fmt.Errorf("%w: cascade corrupt", detect.ErrModelUnavailable),
	}
	fast := &proportionalAdapter{
		desc:  detect.Descriptor{Name: "stub-coarse", Role: detect.FastApprox, Loaded: true},
		score: 0.7,
	}
	reg := detect.NewRegistry([]detect.Adapter{accurate, fast}, nil)
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	cands, err := gen.Generate(context.Background(), testImage(400, 400), 0.6)
	if err != nil {
		t.Fatalf("Generate must not fail when one detector degrades: %v", err)
	}
	if len(cands) == 0 {
		t.Error("surviving detector should still produce candidates")
	}
	for _, c := range cands {
		if strings.Contains(c.Source, "stub-dense") {
			t.Errorf("failed detector leaked candidates: %s", c.Source)
		}
	}
}

func TestGenerate_LandmarkValidation(t *testing.T) {
	const w, h = 400, 400
	mesh := detect.Mesh{
		// Same central-half box the stub reports: IoU 1 > 0.3.
		Rect:      geom.Rect{X: 100, Y: 100, Width: 200, Height: 200},
		Keypoints: []geom.Point{{X: 160, Y: 170}, {X: 240, Y: 170}},
	}
	reg, _, _ := testRegistry(&stubLandmarks{meshes: []detect.Mesh{mesh}})
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	cands, err := gen.Generate(context.Background(), testImage(w, h), 0.6)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	validated := 0
	for _, c := range cands {
		if c.Validated() {
			validated++
			if c.Confidence > 1.0 {
				t.Errorf("boosted confidence exceeds 1: %f", c.Confidence)
			}
		}
	}
	if validated == 0 {
		t.Error("overlapping mesh should validate at least one candidate")
	}
}

func TestGenerate_LandmarkBoostApplied(t *testing.T) {
	const w, h = 400, 400
	mesh := detect.Mesh{
		Rect:      geom.Rect{X: 100, Y: 100, Width: 200, Height: 200},
		Keypoints: []geom.Point{{X: 160, Y: 170}},
	}

	plain, _, _ := testRegistry(nil)
	marked, _, _ := testRegistry(&stubLandmarks{meshes: []detect.Mesh{mesh}})

	tuning := config.DefaultTuning()
	base, err := NewGenerator(plain, tuning, nil).Generate(context.Background(), testImage(w, h), 0.6)
	if err != nil {
		t.Fatal(err)
	}
	boosted, err := NewGenerator(marked, tuning, nil).Generate(context.Background(), testImage(w, h), 0.6)
	if err != nil {
		t.Fatal(err)
	}

	baseBySource := make(map[string]float64)
	for _, c := range base {
		baseBySource[c.Source] = c.Confidence
	}
	for _, c := range boosted {
		if !c.Validated() {
			continue
		}
		before, ok := baseBySource[c.Source]
		if !ok {
			continue
		}
		want := math.Min(1.0, before*tuning.LandmarkBoost)
		if math.Abs(c.Rect.X-100) < 3 && math.Abs(c.Confidence-want) > 1e-9 {
			t.Errorf("%s: boosted confidence %f, want %f", c.Source, c.Confidence, want)
		}
	}
}

func TestGenerate_LandmarkFailureTolerated(t *testing.T) {
	reg, _, _ := testRegistry(&stubLandmarks{err: errors.New("estimator crashed")})
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	cands, err := gen.Generate(context.Background(), testImage(400, 400), 0.6)
	if err != nil {
		t.Fatalf("landmark failure must not fail the pass: %v", err)
	}
	if len(cands) == 0 {
		t.Error("candidates should pass through unvalidated")
	}
	for _, c := range cands {
		if c.Validated() {
			t.Error("no candidate should be validated when the estimator fails")
		}
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	reg, _, _ := testRegistry(nil)
	gen := NewGenerator(reg, config.DefaultTuning(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gen.Generate(ctx, testImage(400, 400), 0.6); err == nil {
		t.Error("Generate should fail on a cancelled context")
	}
}
