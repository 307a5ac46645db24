package detect

import (
	"context"
	"errors"
	"image"

	"github.com/pixelveil/pixelveil/internal/geom"
)

// ErrModelUnavailable indicates a detector or landmark model failed to
// initialize or to run. Callers degrade by excluding that model's
// candidates; the detection pass itself never aborts on this error.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrNoDetectors indicates that no detector model at all could be loaded,
// so detection is unavailable for the session.
var ErrNoDetectors = errors.New("no detectors available")

// Role identifies one of the closed set of detector roles. Strategy code
// selects detectors by role, never by display name, so there is no
// lookup-miss failure mode.
type Role int

const (
	// HighAccuracy is the slow, thorough detector: dense cascade sweep,
	// fine scale steps. Preferred for full-image and variant passes.
	HighAccuracy Role = iota
	// FastApprox is the quick detector: coarse sweep, large scale steps.
	// Preferred for tiles and low-sensitivity passes.
	FastApprox
)

// String returns the lowercase role name.
func (r Role) String() string {
	switch r {
	case HighAccuracy:
		return "high-accuracy"
	case FastApprox:
		return "fast-approx"
	default:
		return "unknown"
	}
}

// Descriptor describes one registered detector. Descriptors are created
// once at registry construction and read-only afterward.
type Descriptor struct {
	// Name is the human-readable model name.
	Name string `json:"name"`

	// Role is the detector's role in the closed role set.
	Role Role `json:"-"`

	// Priority orders detectors for display; lower is more preferred.
	Priority int `json:"priority"`

	// BestFor describes what the detector is best suited for.
	BestFor string `json:"best_for"`

	// Loaded reports whether the underlying model initialized.
	Loaded bool `json:"loaded"`
}

// Detection is a single raw box proposed by a detector.
type Detection struct {
	// Rect is the proposed face rectangle in the coordinates of the
	// image the detector was given.
	Rect geom.Rect

	// Score is the detector's confidence, normalized to [0, 1].
	Score float64
}

// Options configures a single detector invocation.
type Options struct {
	// MinFaceSize and MaxFaceSize bound the face side length in pixels.
	// Zero values let the adapter choose based on the image size.
	MinFaceSize int
	MaxFaceSize int

	// MaxCandidates caps the number of detections returned; the
	// highest-scoring detections are kept. Zero means no cap.
	MaxCandidates int
}

// Adapter wraps one pretrained detection model.
//
// Detect returns raw boxes with normalized scores for the given image. A
// failing adapter returns an error wrapping ErrModelUnavailable and must
// be treated by callers as "zero candidates", not as a pipeline abort.
type Adapter interface {
	// Descriptor returns the adapter's static description.
	Descriptor() Descriptor

	// Detect runs the model over img.
	Detect(ctx context.Context, img image.Image, opts Options) ([]Detection, error)
}

// Mesh is one landmark estimate: the mesh's bounding region plus the
// individual keypoints that produced it.
type Mesh struct {
	Rect      geom.Rect
	Keypoints []geom.Point
}

// LandmarkAdapter wraps a pretrained landmark/keypoint model. Failure
// tolerance matches Adapter: an error means "no meshes", never an abort.
type LandmarkAdapter interface {
	// Estimate returns landmark meshes for all faces found in img.
	Estimate(ctx context.Context, img image.Image) ([]Mesh, error)
}

// Registry holds the detectors and the optional landmark model for one
// session. It is constructed once, passed explicitly to the candidate
// generator, and read-only afterward; there is no ambient global state.
type Registry struct {
	adapters  []Adapter
	landmarks LandmarkAdapter
}

// NewRegistry builds a registry from an explicit adapter list. Adapters
// whose models failed to load are kept for descriptor listing but are
// excluded from Loaded(). The landmark adapter may be nil.
func NewRegistry(adapters []Adapter, landmarks LandmarkAdapter) *Registry {
	return &Registry{adapters: adapters, landmarks: landmarks}
}

// Loaded returns the adapters whose models initialized, in priority order.
func (r *Registry) Loaded() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		if a.Descriptor().Loaded {
			out = append(out, a)
		}
	}
	return out
}

// ByRole returns the loaded adapter for the given role, or nil.
func (r *Registry) ByRole(role Role) Adapter {
	for _, a := range r.adapters {
		d := a.Descriptor()
		if d.Role == role && d.Loaded {
			return a
		}
	}
	return nil
}

// MostAccurate returns the loaded adapter preferred for accuracy: the
// high-accuracy role when available, otherwise any loaded adapter.
func (r *Registry) MostAccurate() Adapter {
	if a := r.ByRole(HighAccuracy); a != nil {
		return a
	}
	loaded := r.Loaded()
	if len(loaded) == 0 {
		return nil
	}
	return loaded[0]
}

// Fastest returns the loaded adapter preferred for speed.
func (r *Registry) Fastest() Adapter {
	if a := r.ByRole(FastApprox); a != nil {
		return a
	}
	return r.MostAccurate()
}

// Landmarks returns the landmark adapter, or nil if none loaded.
func (r *Registry) Landmarks() LandmarkAdapter {
	return r.landmarks
}

// Descriptors lists all registered detectors, loaded or not.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Descriptor())
	}
	return out
}

// Available reports whether at least one detector model loaded.
func (r *Registry) Available() bool {
	return len(r.Loaded()) > 0
}
