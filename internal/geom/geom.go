package geom

import "math"

// Rect is an axis-aligned rectangle in image pixel coordinates.
//
// The origin (X, Y) is the top-left corner; X increases rightward and Y
// increases downward. Width and Height are non-negative. Coordinates are
// float64 because rectangles pass through sub-pixel operations (scale
// pyramid rescaling, cluster geometry averaging) before being rounded for
// pixel access.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a 2D coordinate in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Area returns the rectangle's area in square pixels.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Center returns the rectangle's center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// AspectRatio returns width divided by height, or 0 for a degenerate rectangle.
func (r Rect) AspectRatio() float64 {
	if r.Height <= 0 {
		return 0
	}
	return r.Width / r.Height
}

// MinSide returns the shorter of width and height.
func (r Rect) MinSide() float64 {
	return math.Min(r.Width, r.Height)
}

// MaxSide returns the longer of width and height.
func (r Rect) MaxSide() float64 {
	return math.Max(r.Width, r.Height)
}

// Intersect returns the intersection of two rectangles. If the rectangles
// do not overlap, the zero Rect is returned.
func Intersect(a, b Rect) Rect {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.Width, b.X+b.Width)
	y2 := math.Min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// IoU computes the intersection-over-union of two rectangles.
//
// The result is symmetric and lies in [0, 1]:
//   - 0 for disjoint rectangles
//   - 1 for identical rectangles
//
// The union is computed as area(a) + area(b) - intersection, so degenerate
// rectangles (zero area) always yield 0.
func IoU(a, b Rect) float64 {
	inter := Intersect(a, b).Area()
	if inter <= 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// ClampTo clips the rectangle to the bounds [0,0)-(w,h). If the rectangle
// lies entirely outside the bounds, a zero-area Rect is returned.
func (r Rect) ClampTo(w, h float64) Rect {
	x1 := math.Max(0, r.X)
	y1 := math.Max(0, r.Y)
	x2 := math.Min(w, r.X+r.Width)
	y2 := math.Min(h, r.Y+r.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Inside reports whether the rectangle lies entirely within [0,0)-(w,h).
func (r Rect) Inside(w, h float64) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= w && r.Y+r.Height <= h
}

// Translate returns the rectangle shifted by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Scale returns the rectangle with all coordinates multiplied by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, Width: r.Width * f, Height: r.Height * f}
}

// Clamp limits v to the range [lo, hi].
func Clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
