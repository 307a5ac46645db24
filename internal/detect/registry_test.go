package detect

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"testing"

	"github.com/pixelveil/pixelveil/internal/geom"
)

// stubAdapter is a test detector returning a fixed detection list.
type stubAdapter struct {
	desc Descriptor
	dets []Detection
	err  error
}

func (s *stubAdapter) Descriptor() Descriptor { return s.desc }

func (s *stubAdapter) Detect(ctx context.Context, img image.Image, opts Options) ([]Detection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.dets, nil
}

func newStub(role Role, loaded bool) *stubAdapter {
	return &stubAdapter{
		desc: Descriptor{
			Name:   "stub-" + role.String(),
			Role:   role,
			Loaded: loaded,
		},
		dets: []Detection{{Rect: geom.Rect{X: 10, Y: 10, Width: 40, Height: 40}, Score: 0.8}},
	}
}

func TestRegistry_Loaded(t *testing.T) {
	reg := NewRegistry([]Adapter{
		newStub(HighAccuracy, true),
		newStub(FastApprox, false),
	}, nil)

	loaded := reg.Loaded()
	if len(loaded) != 1 {
		t.Fatalf("Loaded: got %d adapters, want 1", len(loaded))
	}
	if loaded[0].Descriptor().Role != HighAccuracy {
		t.Errorf("Loaded: wrong adapter %s", loaded[0].Descriptor().Name)
	}
}

func TestRegistry_ByRole(t *testing.T) {
	reg := NewRegistry([]Adapter{
		newStub(HighAccuracy, true),
		newStub(FastApprox, true),
	}, nil)

	if a := reg.ByRole(FastApprox); a == nil || a.Descriptor().Role != FastApprox {
		t.Error("ByRole(FastApprox) returned wrong adapter")
	}
	if a := reg.ByRole(HighAccuracy); a == nil || a.Descriptor().Role != HighAccuracy {
		t.Error("ByRole(HighAccuracy) returned wrong adapter")
	}
}

func TestRegistry_MostAccurateFallsBack(t *testing.T) {
	// Only the fast detector loaded: MostAccurate must still return it.
	reg := NewRegistry([]Adapter{
		newStub(HighAccuracy, false),
		newStub(FastApprox, true),
	}, nil)

	a := reg.MostAccurate()
	if a == nil {
		t.Fatal("MostAccurate returned nil with a loaded adapter present")
	}
	if a.Descriptor().Role != FastApprox {
		t.Errorf("MostAccurate fallback: got %s", a.Descriptor().Name)
	}
}

func TestRegistry_Fastest(t *testing.T) {
	reg := NewRegistry([]Adapter{newStub(HighAccuracy, true)}, nil)

	// No fast adapter loaded: Fastest falls back to the accurate one.
	if a := reg.Fastest(); a == nil || a.Descriptor().Role != HighAccuracy {
		t.Error("Fastest should fall back to the loaded adapter")
	}
}

func TestRegistry_Available(t *testing.T) {
	empty := NewRegistry([]Adapter{newStub(HighAccuracy, false)}, nil)
	if empty.Available() {
		t.Error("registry with no loaded adapters should be unavailable")
	}
	if a := empty.MostAccurate(); a != nil {
		t.Error("MostAccurate should be nil for an unavailable registry")
	}

	ok := NewRegistry([]Adapter{newStub(FastApprox, true)}, nil)
	if !ok.Available() {
		t.Error("registry with a loaded adapter should be available")
	}
}

func TestRegistry_Descriptors(t *testing.T) {
	reg := NewRegistry([]Adapter{
		newStub(HighAccuracy, true),
		newStub(FastApprox, false),
	}, nil)

	descs := reg.Descriptors()
	if len(descs) != 2 {
		t.Fatalf("Descriptors: got %d, want 2", len(descs))
	}
	if descs[1].Loaded {
		t.Error("unloaded adapter should keep Loaded=false in its descriptor")
	}
}

func TestNewPigoRegistry_MissingCascades(t *testing.T) {
	reg := NewPigoRegistry(t.TempDir(), slog.Default())

	if reg.Available() {
		t.Error("registry without cascade files should be unavailable")
	}
	if reg.Landmarks() != nil {
		t.Error("landmark adapter should be nil without cascades")
	}

	// Descriptors are still listed for UI surfaces.
	if got := len(reg.Descriptors()); got != 2 {
		t.Errorf("Descriptors: got %d, want 2", got)
	}
}

func TestPigoAdapter_Unloaded(t *testing.T) {
	a := &pigoAdapter{
		desc:  Descriptor{Name: "pigo-dense", Role: HighAccuracy, Loaded: false},
		sweep: roleSweeps[HighAccuracy],
	}

	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	_, err := a.Detect(context.Background(), img, Options{})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("unloaded adapter: got %v, want ErrModelUnavailable", err)
	}
}
