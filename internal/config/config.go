package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTuning indicates a tuning file contained out-of-range values.
var ErrInvalidTuning = errors.New("invalid tuning")

// ModelWeights holds the per-role confidence weight parameters for the
// model ensemble strategy. The table is exhaustive over the closed set of
// detector roles, so a weight can never silently default.
//
// The effective weight for a role is base + slope×sensitivity. The default
// table up-weights the high-accuracy model as sensitivity rises and the
// fast model as it falls.
type ModelWeights struct {
	HighAccuracyBase  float64 `yaml:"high_accuracy_base"`
	HighAccuracySlope float64 `yaml:"high_accuracy_slope"`
	FastApproxBase    float64 `yaml:"fast_approx_base"`
	FastApproxSlope   float64 `yaml:"fast_approx_slope"`
}

// Tuning collects every threshold in the detection and fusion pipeline.
//
// The zero value is not usable; start from DefaultTuning. Values may be
// overridden from a YAML file via LoadTuning for operator experiments, but
// the defaults are the supported configuration.
type Tuning struct {
	// Weights parameterizes the ensemble strategy.
	Weights ModelWeights `yaml:"weights"`

	// PyramidScalesWide are the resample factors used above
	// HighSensitivity; PyramidScalesNarrow below it.
	PyramidScalesWide   []float64 `yaml:"pyramid_scales_wide"`
	PyramidScalesNarrow []float64 `yaml:"pyramid_scales_narrow"`

	// PyramidEdgeBoost multiplies confidence for detections recovered at
	// extreme scales (≤ PyramidSmallScale or ≥ PyramidLargeScale).
	PyramidEdgeBoost  float64 `yaml:"pyramid_edge_boost"`
	PyramidSmallScale float64 `yaml:"pyramid_small_scale"`
	PyramidLargeScale float64 `yaml:"pyramid_large_scale"`

	// Tile geometry: side = clamp(sqrt(area)/TileDivisor, TileMin, TileMax),
	// shrunk by TileShrink above HighSensitivity. Tiles smaller than
	// TileSkipBelow pixels in either dimension are skipped. Overlap is the
	// fraction shared between adjacent tiles.
	TileDivisor    float64 `yaml:"tile_divisor"`
	TileMin        float64 `yaml:"tile_min"`
	TileMax        float64 `yaml:"tile_max"`
	TileShrink     float64 `yaml:"tile_shrink"`
	TileSkipBelow  float64 `yaml:"tile_skip_below"`
	TileOverlap    float64 `yaml:"tile_overlap"`
	TileSmallSide  float64 `yaml:"tile_small_side"`
	TileSmallBoost float64 `yaml:"tile_small_boost"`

	// VariantDiscount is applied uniformly to detections from
	// preprocessing variants; VariantMinSensitivity gates the strategy.
	VariantDiscount       float64 `yaml:"variant_discount"`
	VariantMinSensitivity float64 `yaml:"variant_min_sensitivity"`

	// LandmarkIoU is the overlap above which a landmark mesh validates a
	// candidate; LandmarkBoost multiplies the validated confidence.
	LandmarkIoU   float64 `yaml:"landmark_iou"`
	LandmarkBoost float64 `yaml:"landmark_boost"`

	// Quality filter bounds.
	MinSideFracStrict  float64 `yaml:"min_side_frac_strict"`
	MinSideFracRelaxed float64 `yaml:"min_side_frac_relaxed"`
	MaxSideFrac        float64 `yaml:"max_side_frac"`
	MinAspect          float64 `yaml:"min_aspect"`
	MaxAspect          float64 `yaml:"max_aspect"`
	ConfidenceFloor    float64 `yaml:"confidence_floor"`
	ConfidenceBase     float64 `yaml:"confidence_base"`
	ConfidenceSlope    float64 `yaml:"confidence_slope"`

	// Clustering thresholds and representative score bonuses.
	ClusterIoUStrict   float64 `yaml:"cluster_iou_strict"`
	ClusterIoURelaxed  float64 `yaml:"cluster_iou_relaxed"`
	ClusterModelBonus  float64 `yaml:"cluster_model_bonus"`
	ClusterMarkBonus   float64 `yaml:"cluster_mark_bonus"`

	// NMS thresholds.
	NMSBaseIoU      float64 `yaml:"nms_base_iou"`
	NMSRelaxedIoU   float64 `yaml:"nms_relaxed_iou"`
	NMSAreaRatio    float64 `yaml:"nms_area_ratio"`
	NMSAreaFactor   float64 `yaml:"nms_area_factor"`
	NMSKeepLimit    int     `yaml:"nms_keep_limit"`
	NMSOutputLimit  int     `yaml:"nms_output_limit"`

	// HighSensitivity is the scalar above which the permissive branch of
	// every sensitivity-dependent threshold applies.
	HighSensitivity float64 `yaml:"high_sensitivity"`
}

// DefaultTuning returns the supported pipeline configuration.
func DefaultTuning() Tuning {
	return Tuning{
		Weights: ModelWeights{
			HighAccuracyBase:  0.9,
			HighAccuracySlope: 0.2,
			FastApproxBase:    1.1,
			FastApproxSlope:   -0.2,
		},

		PyramidScalesWide:   []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0},
		PyramidScalesNarrow: []float64{0.8, 1.0, 1.2},
		PyramidEdgeBoost:    1.05,
		PyramidSmallScale:   0.5,
		PyramidLargeScale:   1.5,

		TileDivisor:    4,
		TileMin:        256,
		TileMax:        512,
		TileShrink:     0.8,
		TileSkipBelow:  128,
		TileOverlap:    0.4,
		TileSmallSide:  300,
		TileSmallBoost: 1.05,

		VariantDiscount:       0.85,
		VariantMinSensitivity: 0.5,

		LandmarkIoU:   0.3,
		LandmarkBoost: 1.1,

		MinSideFracStrict:  0.015,
		MinSideFracRelaxed: 0.008,
		MaxSideFrac:        0.8,
		MinAspect:          0.4,
		MaxAspect:          2.5,
		ConfidenceFloor:    0.1,
		ConfidenceBase:     0.6,
		ConfidenceSlope:    0.4,

		ClusterIoUStrict:  0.5,
		ClusterIoURelaxed: 0.3,
		ClusterModelBonus: 1.1,
		ClusterMarkBonus:  1.15,

		NMSBaseIoU:     0.4,
		NMSRelaxedIoU:  0.25,
		NMSAreaRatio:   2.0,
		NMSAreaFactor:  0.8,
		NMSKeepLimit:   200,
		NMSOutputLimit: 250,

		HighSensitivity: 0.7,
	}
}

// Weight returns the ensemble confidence weight for a role at the given
// sensitivity. The role is identified by its high-accuracy flag so that
// the table stays exhaustive over the two detector roles.
func (w ModelWeights) Weight(highAccuracy bool, sensitivity float64) float64 {
	if highAccuracy {
		return w.HighAccuracyBase + w.HighAccuracySlope*sensitivity
	}
	return w.FastApproxBase + w.FastApproxSlope*sensitivity
}

// ConfidenceFloorAt returns the quality-filter confidence floor at the
// given sensitivity: max(floor, base − slope×sensitivity). The floor is
// monotonically non-increasing in sensitivity.
func (t Tuning) ConfidenceFloorAt(sensitivity float64) float64 {
	v := t.ConfidenceBase - t.ConfidenceSlope*sensitivity
	if v < t.ConfidenceFloor {
		return t.ConfidenceFloor
	}
	return v
}

// ClusterIoUAt returns the clustering join threshold at the given
// sensitivity: relaxed above HighSensitivity, strict otherwise.
func (t Tuning) ClusterIoUAt(sensitivity float64) float64 {
	if sensitivity > t.HighSensitivity {
		return t.ClusterIoURelaxed
	}
	return t.ClusterIoUStrict
}

// LoadTuning reads a YAML tuning file and overlays it on the defaults.
// Fields absent from the file keep their default values.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read tuning file: %w", err)
	}

	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("failed to parse tuning file: %w", err)
	}

	if err := t.validate(); err != nil {
		return DefaultTuning(), err
	}

	return t, nil
}

func (t Tuning) validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"landmark_iou", t.LandmarkIoU},
		{"cluster_iou_strict", t.ClusterIoUStrict},
		{"cluster_iou_relaxed", t.ClusterIoURelaxed},
		{"nms_base_iou", t.NMSBaseIoU},
		{"nms_relaxed_iou", t.NMSRelaxedIoU},
		{"tile_overlap", t.TileOverlap},
		{"high_sensitivity", t.HighSensitivity},
	}
	for _, c := range checks {
		if c.v < 0 || c.v > 1 {
			return fmt.Errorf("%w: %s = %g outside [0,1]", ErrInvalidTuning, c.name, c.v)
		}
	}
	if t.TileMin <= 0 || t.TileMax < t.TileMin {
		return fmt.Errorf("%w: tile bounds %g..%g", ErrInvalidTuning, t.TileMin, t.TileMax)
	}
	if t.NMSKeepLimit <= 0 || t.NMSOutputLimit <= 0 {
		return fmt.Errorf("%w: non-positive region limits", ErrInvalidTuning)
	}
	return nil
}
