package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"

	"github.com/pixelveil/pixelveil/internal/candidate"
	"github.com/pixelveil/pixelveil/internal/config"
	"github.com/pixelveil/pixelveil/internal/detect"
	"github.com/pixelveil/pixelveil/internal/fusion"
	"github.com/pixelveil/pixelveil/internal/geom"
	"github.com/pixelveil/pixelveil/internal/redact"
	"github.com/pixelveil/pixelveil/internal/zone"
)

// Session errors.
var (
	// ErrNoImage indicates an operation that needs a loaded image.
	ErrNoImage = errors.New("no image loaded")
	// ErrNotReady indicates commit was requested before a detection pass
	// completed.
	ErrNotReady = errors.New("session not ready")
	// ErrSessionBusy indicates a detection pass is in flight and the
	// requested operation cannot run concurrently with it.
	ErrSessionBusy = errors.New("detection in progress")
	// ErrUnknownRegion indicates a region id that is not in the current
	// region list.
	ErrUnknownRegion = errors.New("unknown region")
)

// State is the session's position in its lifecycle.
type State int

const (
	// StateIdle: no image loaded, or freshly reset.
	StateIdle State = iota
	// StateDetecting: a detection pass is scheduled or running.
	StateDetecting
	// StateReady: regions are available and editable.
	StateReady
	// StateRedacting: a full-resolution commit render is running.
	StateRedacting
	// StateDone: a commit completed; editing may continue.
	StateDone
	// StateError: detection is unavailable for this session.
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetecting:
		return "detecting"
	case StateReady:
		return "ready"
	case StateRedacting:
		return "redacting"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EventType classifies session notifications.
type EventType int

const (
	// EventState reports a state transition.
	EventState EventType = iota
	// EventRegions reports that the region list was replaced or edited.
	EventRegions
	// EventPreview reports that a fresh preview surface is available.
	EventPreview
)

// Event is one notification on the session's event stream. The UI layer
// subscribes via Events; the channel is bounded and slow consumers lose
// events rather than blocking the engine.
type Event struct {
	Type  EventType
	State State
	Err   error
}

// Default debounce windows. A new image or sensitivity change collapses
// into one detection pass; rapid region edits collapse into one preview
// recomputation.
const (
	DefaultDetectDebounce  = 500 * time.Millisecond
	DefaultPreviewDebounce = 150 * time.Millisecond
)

const eventBuffer = 32

// Session coordinates one image-editing session: when detection runs,
// that at most one pass is in flight, and that the live preview tracks
// the latest edit.
//
// All exported methods are safe for concurrent use. Detection and
// redaction never execute concurrently within one session, and each
// render surface is mutated by at most one render at a time.
type Session struct {
	generator *candidate.Generator
	engine    *fusion.Engine
	renderer  *redact.Renderer
	registry  *detect.Registry
	logger    *slog.Logger

	detectDebounce  func(func())
	previewDebounce func(func())

	// detecting is the single-flight guard: a pass that finds it set is
	// dropped, not queued. generation stamps each scheduled pass so a
	// superseded pass that races to completion is discarded.
	detecting  atomic.Bool
	generation atomic.Int64

	// renderMu serializes all surface renders (preview and commit).
	renderMu sync.Mutex

	mu      sync.Mutex
	state   State
	img     image.Image
	imgW    float64
	imgH    float64
	level   config.SensitivityLevel
	method  redact.Method
	regions []fusion.Region
	preview *image.NRGBA
	closed  bool

	events chan Event
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithDebounce overrides the detection and preview debounce windows.
// Intended for tests and interactive hosts with unusual latency needs.
func WithDebounce(detectWindow, previewWindow time.Duration) Option {
	return func(s *Session) {
		s.detectDebounce = debounce.New(detectWindow)
		s.previewDebounce = debounce.New(previewWindow)
	}
}

// New creates a session over the given detector registry and tuning.
// The registry must outlive the session.
func New(registry *detect.Registry, tuning config.Tuning, opts ...Option) *Session {
	s := &Session{
		registry:        registry,
		generator:       candidate.NewGenerator(registry, tuning, nil),
		engine:          fusion.NewEngine(tuning, nil),
		renderer:        redact.NewRenderer(nil),
		detectDebounce:  debounce.New(DefaultDetectDebounce),
		previewDebounce: debounce.New(DefaultPreviewDebounce),
		state:           StateIdle,
		level:           config.Balanced,
		method:          redact.Blur,
		events:          make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Events returns the session's notification stream.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start loads an image into the session and schedules a detection pass.
// Any pending (not yet started) pass is superseded.
func (s *Session) Start(img image.Image) error {
	if img == nil {
		return ErrNoImage
	}

	bounds := img.Bounds()
	s.mu.Lock()
	s.img = img
	s.imgW = float64(bounds.Dx())
	s.imgH = float64(bounds.Dy())
	s.regions = nil
	s.preview = nil
	s.setStateLocked(StateDetecting)
	s.mu.Unlock()

	s.scheduleDetection()
	return nil
}

// SetSensitivity changes the detection effort and schedules a fresh pass,
// superseding any pending one.
func (s *Session) SetSensitivity(level config.SensitivityLevel) {
	s.mu.Lock()
	s.level = level
	hasImage := s.img != nil
	if hasImage {
		s.setStateLocked(StateDetecting)
	}
	s.mu.Unlock()

	if hasImage {
		s.scheduleDetection()
	}
}

// Regions returns a copy of the current region list.
func (s *Session) Regions() []fusion.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fusion.Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// ToggleRegion flips a region's enabled flag and schedules a preview
// refresh.
func (s *Session) ToggleRegion(id string) error {
	s.mu.Lock()
	found := false
	for i := range s.regions {
		if s.regions[i].ID == id {
			s.regions[i].Enabled = !s.regions[i].Enabled
			found = true
			break
		}
	}
	if found && (s.state == StateDone) {
		s.setStateLocked(StateReady)
	}
	s.mu.Unlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, id)
	}
	s.publish(Event{Type: EventRegions, State: s.State()})
	s.schedulePreview()
	return nil
}

// AddManualRegion adds a user-indicated region sized by the manual-zone
// heuristic and schedules a preview refresh.
func (s *Session) AddManualRegion(p geom.Point) (fusion.Region, error) {
	s.mu.Lock()
	if s.img == nil {
		s.mu.Unlock()
		return fusion.Region{}, ErrNoImage
	}
	region := zone.Build(p, s.regions, s.imgW, s.imgH)
	s.regions = append(s.regions, region)
	if s.state == StateDone {
		s.setStateLocked(StateReady)
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventRegions, State: s.State()})
	s.schedulePreview()
	return region, nil
}

// SetMethod changes the redaction method and schedules a preview refresh.
func (s *Session) SetMethod(m redact.Method) {
	s.mu.Lock()
	s.method = m
	s.mu.Unlock()
	s.schedulePreview()
}

// Preview returns the most recent live-preview surface, or nil when no
// preview has been rendered yet.
func (s *Session) Preview() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// Descriptors lists the registered detectors for display.
func (s *Session) Descriptors() []detect.Descriptor {
	return s.registry.Descriptors()
}

// Commit renders the full-resolution redacted surface with the given
// method. It requires a completed detection pass and never runs while a
// detection pass is in flight.
func (s *Session) Commit(method redact.Method) (*image.NRGBA, error) {
	if s.detecting.Load() {
		return nil, ErrSessionBusy
	}

	s.mu.Lock()
	if s.img == nil {
		s.mu.Unlock()
		return nil, ErrNoImage
	}
	if s.state != StateReady && s.state != StateDone {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: state %s", ErrNotReady, s.state)
	}
	s.method = method
	img := s.img
	regions := make([]fusion.Region, len(s.regions))
	copy(regions, s.regions)
	s.setStateLocked(StateRedacting)
	s.mu.Unlock()

	s.renderMu.Lock()
	out := s.renderer.Render(img, regions, method)
	s.renderMu.Unlock()

	s.mu.Lock()
	s.setStateLocked(StateDone)
	s.mu.Unlock()
	return out, nil
}

// Reset returns the session to Idle, dropping the image, regions and
// preview. A pending detection pass is superseded and its output
// discarded.
func (s *Session) Reset() {
	s.generation.Add(1)

	s.mu.Lock()
	s.img = nil
	s.imgW, s.imgH = 0, 0
	s.regions = nil
	s.preview = nil
	s.setStateLocked(StateIdle)
	s.mu.Unlock()
}

// Close marks the session closed and closes the event stream. The
// session must not be used afterward.
func (s *Session) Close() {
	s.generation.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// scheduleDetection stamps a new generation and debounces the pass. A
// later call within the window supersedes this one entirely.
func (s *Session) scheduleDetection() {
	gen := s.generation.Add(1)
	s.detectDebounce(func() {
		s.runDetection(gen)
	})
}

// runDetection executes one full detection pass. The single-flight guard
// drops a pass that arrives while another is active; the debounced
// scheduler will naturally retrigger on the next edit. Output from a
// pass that has been superseded while running is discarded.
func (s *Session) runDetection(gen int64) {
	if !s.detecting.CompareAndSwap(false, true) {
		s.logger.Debug("detection pass dropped, another in flight")
		return
	}
	defer s.detecting.Store(false)

	s.mu.Lock()
	img := s.img
	level := s.level
	imgW, imgH := int(s.imgW), int(s.imgH)
	s.mu.Unlock()
	if img == nil {
		return
	}

	sensitivity := level.Scalar()
	cands, err := s.generator.Generate(context.Background(), img, sensitivity)
	if err != nil {
		if errors.Is(err, detect.ErrNoDetectors) {
			s.mu.Lock()
			s.setStateLocked(StateError)
			s.mu.Unlock()
			s.publish(Event{Type: EventState, State: StateError, Err: err})
			return
		}
		s.logger.Warn("detection pass failed", "error", err)
		return
	}

	regions := s.engine.Fuse(cands, imgW, imgH, sensitivity)

	// The staleness check must share the critical section with the
	// install: Reset and scheduleDetection bump the generation before
	// taking mu, so a supersession between an unlocked check and the
	// install could let this pass overwrite freshly cleared state.
	s.mu.Lock()
	if gen != s.generation.Load() {
		s.mu.Unlock()
		s.logger.Debug("stale detection pass discarded", "generation", gen)
		return
	}
	s.regions = regions
	s.setStateLocked(StateReady)
	s.mu.Unlock()

	s.publish(Event{Type: EventRegions, State: StateReady})
	s.schedulePreview()
}

// schedulePreview debounces preview regeneration so rapid successive
// edits collapse into a single recomputation.
func (s *Session) schedulePreview() {
	s.previewDebounce(func() {
		s.renderPreview()
	})
}

func (s *Session) renderPreview() {
	s.mu.Lock()
	img := s.img
	method := s.method
	regions := make([]fusion.Region, len(s.regions))
	copy(regions, s.regions)
	s.mu.Unlock()
	if img == nil {
		return
	}

	s.renderMu.Lock()
	preview, err := s.renderer.RenderPreview(img, regions, method)
	s.renderMu.Unlock()
	if err != nil {
		s.logger.Warn("preview render failed", "error", err)
		return
	}

	s.mu.Lock()
	s.preview = preview
	s.mu.Unlock()
	s.publish(Event{Type: EventPreview, State: s.State()})
}

// setStateLocked transitions the state and emits an event. Callers hold mu.
func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.state = next
	if s.closed {
		return
	}
	select {
	case s.events <- Event{Type: EventState, State: next}:
	default:
	}
}

// publish emits an event without blocking; slow consumers lose events.
func (s *Session) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}
