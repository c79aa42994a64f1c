package viewport

import "math"

// Direction is a discrete zoom intent
type Direction int

const (
	ZoomIn Direction = iota
	ZoomOut
)

func (d Direction) String() string {
	if d == ZoomIn {
		return "in"
	}
	return "out"
}

// ZoomScale maps a zoom intent to a width multiplier.
// Zooming out widens the window by ratio; zooming in uses the reciprocal.
func ZoomScale(dir Direction, ratio float64) float64 {
	if dir == ZoomIn {
		return 1 / ratio
	}
	return ratio
}

// Constraints are the immutable bounds every window is clamped against.
// Its methods are pure: they never touch a ViewState.
type Constraints struct {
	Scene  SceneBounds
	Limits ZoomLimits
}

// Pan translates the window origin by dx, dy scene units.
// Motion past an edge pins the window at that edge.
func (c Constraints) Pan(cur Window, dx, dy float64) Window {
	if cur.W >= c.Scene.Width {
		return Window{X: 0, Y: 0, W: cur.W, H: cur.H}
	}
	next := cur
	next.X = clamp(cur.X+dx, 0, c.maxX(cur.W))
	next.Y = clamp(cur.Y+dy, 0, c.maxY(cur.H))
	return next
}

// ZoomAtPoint rescales the window by scale while keeping the scene point at
// fraction (fx, fy) of the current window under the same fraction.
// scale > 1 zooms out, scale < 1 zooms in.
func (c Constraints) ZoomAtPoint(cur Window, scale, fx, fy float64) Window {
	newW := clamp(cur.W*scale, c.Limits.MinWidth, c.Limits.MaxWidth)
	newH := newW * c.Scene.Aspect()
	return c.place(cur.X+(cur.W-newW)*fx, cur.Y+(cur.H-newH)*fy, newW)
}

// ZoomAtCenter rescales the window about its own center
func (c Constraints) ZoomAtCenter(cur Window, scale float64) Window {
	return c.ZoomAtPoint(cur, scale, 0.5, 0.5)
}

// Clamp pulls an arbitrary window back inside the zoom limits and the scene,
// relocking its height to the scene aspect.
func (c Constraints) Clamp(w Window) Window {
	return c.place(w.X, w.Y, clamp(w.W, c.Limits.MinWidth, c.Limits.MaxWidth))
}

// place builds an aspect-locked window of width w with its origin clamped
// into the scene. A full-width window has no pan room on either axis.
func (c Constraints) place(x, y, w float64) Window {
	h := w * c.Scene.Aspect()
	if w >= c.Scene.Width {
		return Window{X: 0, Y: 0, W: w, H: h}
	}
	return Window{
		X: clamp(x, 0, c.maxX(w)),
		Y: clamp(y, 0, c.maxY(h)),
		W: w,
		H: h,
	}
}

func (c Constraints) maxX(w float64) float64 {
	return math.Max(0, c.Scene.Width-w)
}

func (c Constraints) maxY(h float64) float64 {
	return math.Max(0, c.Scene.Height-h)
}

// clamp is inclusive on both ends; NaN collapses to lo.
func clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
