package detect

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	pigo "github.com/esimov/pigo/core"

	"github.com/pixelveil/pixelveil/internal/geom"
)

// Cascade file names expected inside the cascade directory.
const (
	faceCascadeFile   = "facefinder"
	puplocCascadeFile = "puploc"
)

// scoreNorm converts pigo's unbounded quality score into [0, 1].
// Scores at or above this value map to confidence 1.0.
const scoreNorm = 50.0

// sweep holds the cascade sweep parameters that distinguish the two
// detector roles backed by the same classifier.
type sweep struct {
	shiftFactor float64
	scaleFactor float64
	minQuality  float32
}

var roleSweeps = map[Role]sweep{
	// Dense sweep: 8% window shift, 8% scale growth.
	HighAccuracy: {shiftFactor: 0.08, scaleFactor: 1.08, minQuality: 5.0},
	// Coarse sweep: 15% window shift, 25% scale growth.
	FastApprox: {shiftFactor: 0.15, scaleFactor: 1.25, minQuality: 4.0},
}

// pigoAdapter is a Detector Adapter backed by a pigo cascade classifier.
type pigoAdapter struct {
	desc       Descriptor
	classifier *pigo.Pigo
	sweep      sweep
}

// NewPigoRegistry loads the pigo cascades found in cascadeDir and builds a
// registry with one adapter per role plus the landmark adapter.
//
// A missing or corrupt cascade file degrades rather than fails: the
// affected adapters are registered unloaded and the landmark adapter is
// omitted. The caller can check Registry.Available to surface a
// "detection unavailable" condition when nothing loaded.
func NewPigoRegistry(cascadeDir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	var classifier *pigo.Pigo
	if data, err := os.ReadFile(filepath.Join(cascadeDir, faceCascadeFile)); err != nil {
		logger.Warn("face cascade unavailable", "dir", cascadeDir, "error", err)
	} else if c, err := pigo.NewPigo().Unpack(data); err != nil {
		logger.Warn("face cascade unpack failed", "error", err)
	} else {
		classifier = c
	}

	adapters := []Adapter{
		&pigoAdapter{
			desc: Descriptor{
				Name:     "pigo-dense",
				Role:     HighAccuracy,
				Priority: 1,
				BestFor:  "small and partially occluded faces",
				Loaded:   classifier != nil,
			},
			classifier: classifier,
			sweep:      roleSweeps[HighAccuracy],
		},
		&pigoAdapter{
			desc: Descriptor{
				Name:     "pigo-coarse",
				Role:     FastApprox,
				Priority: 2,
				BestFor:  "quick passes over tiles and previews",
				Loaded:   classifier != nil,
			},
			classifier: classifier,
			sweep:      roleSweeps[FastApprox],
		},
	}

	var landmarks LandmarkAdapter
	if classifier != nil {
		if data, err := os.ReadFile(filepath.Join(cascadeDir, puplocCascadeFile)); err != nil {
			logger.Warn("landmark cascade unavailable", "dir", cascadeDir, "error", err)
		} else if plc, err := pigo.NewPuplocCascade().UnpackCascade(data); err != nil {
			logger.Warn("landmark cascade unpack failed", "error", err)
		} else {
			landmarks = &pigoLandmarks{classifier: classifier, puploc: plc}
		}
	}

	return NewRegistry(adapters, landmarks)
}

// Descriptor returns the adapter's static description.
func (a *pigoAdapter) Descriptor() Descriptor {
	return a.desc
}

// Detect runs the cascade sweep over img and returns normalized detections.
func (a *pigoAdapter) Detect(ctx context.Context, img image.Image, opts Options) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.classifier == nil {
		return nil, fmt.Errorf("%w: %s cascade not loaded", ErrModelUnavailable, a.desc.Name)
	}

	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols < 24 || rows < 24 {
		return nil, nil
	}

	minSize := opts.MinFaceSize
	if minSize <= 0 {
		minSize = 20
	}
	maxSize := opts.MaxFaceSize
	if maxSize <= 0 {
		maxSize = cols
		if rows < cols {
			maxSize = rows
		}
	}

	params := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     maxSize,
		ShiftFactor: a.sweep.shiftFactor,
		ScaleFactor: a.sweep.scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	raw := a.classifier.RunCascade(params, 0.0)
	raw = a.classifier.ClusterDetections(raw, 0.2)

	out := make([]Detection, 0, len(raw))
	for _, d := range raw {
		if d.Q < a.sweep.minQuality {
			continue
		}
		score := float64(d.Q) / scoreNorm
		if score > 1.0 {
			score = 1.0
		}
		side := float64(d.Scale)
		out = append(out, Detection{
			Rect: geom.Rect{
				X:      float64(d.Col) - side/2,
				Y:      float64(d.Row) - side/2,
				Width:  side,
				Height: side,
			},
			Score: score,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if opts.MaxCandidates > 0 && len(out) > opts.MaxCandidates {
		out = out[:opts.MaxCandidates]
	}
	return out, nil
}

// pigoLandmarks estimates eye keypoints for every face the classifier
// finds, producing one mesh per face.
type pigoLandmarks struct {
	classifier *pigo.Pigo
	puploc     *pigo.PuplocCascade
}

// Estimate returns one mesh per detected face. Each mesh's bounding
// region is the face box; its keypoints are the localized pupils.
func (l *pigoLandmarks) Estimate(ctx context.Context, img image.Image) ([]Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.classifier == nil || l.puploc == nil {
		return nil, fmt.Errorf("%w: landmark cascade not loaded", ErrModelUnavailable)
	}

	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols < 24 || rows < 24 {
		return nil, nil
	}

	maxSize := cols
	if rows < cols {
		maxSize = rows
	}

	imgParams := pigo.ImageParams{
		Pixels: pigo.RgbToGrayscale(img),
		Rows:   rows,
		Cols:   cols,
		Dim:    cols,
	}
	params := pigo.CascadeParams{
		MinSize:     20,
		MaxSize:     maxSize,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: imgParams,
	}

	faces := l.classifier.ClusterDetections(l.classifier.RunCascade(params, 0.0), 0.2)

	meshes := make([]Mesh, 0, len(faces))
	for _, f := range faces {
		if f.Q < 5.0 {
			continue
		}

		side := float64(f.Scale)
		var points []geom.Point

		// Pupil search windows at the canonical eye offsets within the
		// face box.
		eyes := []pigo.Puploc{
			{
				Row:      f.Row - int(0.075*side),
				Col:      f.Col - int(0.175*side),
				Scale:    float32(side * 0.25),
				Perturbs: 50,
			},
			{
				Row:      f.Row - int(0.075*side),
				Col:      f.Col + int(0.185*side),
				Scale:    float32(side * 0.25),
				Perturbs: 50,
			},
		}
		for i := range eyes {
			loc := l.puploc.RunDetector(eyes[i], imgParams, 0.0, false)
			if loc != nil && loc.Row > 0 && loc.Col > 0 {
				points = append(points, geom.Point{X: float64(loc.Col), Y: float64(loc.Row)})
			}
		}
		if len(points) == 0 {
			continue
		}

		meshes = append(meshes, Mesh{
			Rect: geom.Rect{
				X:      float64(f.Col) - side/2,
				Y:      float64(f.Row) - side/2,
				Width:  side,
				Height: side,
			},
			Keypoints: points,
		})
	}

	return meshes, nil
}
