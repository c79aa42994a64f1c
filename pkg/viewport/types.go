package viewport

import (
	"errors"
	"fmt"
	"math"
)

// SceneBounds is the full extent of the scene in scene units
type SceneBounds struct {
	Width  float64
	Height float64
}

// Aspect returns height/width, the ratio every view window is locked to
func (s SceneBounds) Aspect() float64 {
	return s.Height / s.Width
}

// ZoomLimits bounds the visible width of the view window.
// MinWidth is the closest zoom, MaxWidth the farthest.
type ZoomLimits struct {
	MinWidth float64
	MaxWidth float64
}

// Window is the visible rectangle of the scene, in scene units
type Window struct {
	X float64
	Y float64
	W float64
	H float64
}

// Center returns the scene point at the middle of the window
func (w Window) Center() Point {
	return Point{X: w.X + w.W*0.5, Y: w.Y + w.H*0.5}
}

// Point is a location in scene units
type Point struct {
	X float64
	Y float64
}

// Rect is an on-screen rectangle in CSS pixels (or terminal cells)
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Options configures a ViewState. All values are fixed for the lifetime
// of the state.
type Options struct {
	Scene  SceneBounds
	Limits ZoomLimits

	// StepRatio is the multiplicative step for discrete zoom controls, > 1. Default 1.2
	StepRatio float64

	// InitialZoom divides the scene width to get the window width on reset. Default 1.5
	InitialZoom float64

	// Anchor is the top-left corner used on reset
	Anchor Point
}

// Defaults mirror the map the viewer was first built for.
const (
	DefaultSceneWidth  = 2976.18
	DefaultSceneHeight = 1503.34
	DefaultMinWidth    = 500
	DefaultStepRatio   = 1.2
	DefaultInitialZoom = 1.5
	DefaultAnchorX     = 500
	DefaultAnchorY     = 120
)

func (o *Options) withDefaults() Options {
	d := Options{
		Scene:       SceneBounds{Width: DefaultSceneWidth, Height: DefaultSceneHeight},
		Limits:      ZoomLimits{MinWidth: DefaultMinWidth},
		StepRatio:   DefaultStepRatio,
		InitialZoom: DefaultInitialZoom,
		Anchor:      Point{X: DefaultAnchorX, Y: DefaultAnchorY},
	}
	if o == nil {
		d.Limits.MaxWidth = d.Scene.Width
		return d
	}
	if o.Scene.Width != 0 {
		d.Scene.Width = o.Scene.Width
	}
	if o.Scene.Height != 0 {
		d.Scene.Height = o.Scene.Height
	}
	// Farthest zoom shows the whole scene unless told otherwise
	d.Limits.MaxWidth = d.Scene.Width
	if o.Limits.MaxWidth != 0 {
		d.Limits.MaxWidth = o.Limits.MaxWidth
	}
	// The default closest zoom never exceeds the farthest on small scenes
	d.Limits.MinWidth = math.Min(DefaultMinWidth, d.Limits.MaxWidth)
	if o.Limits.MinWidth != 0 {
		d.Limits.MinWidth = o.Limits.MinWidth
	}
	if o.StepRatio != 0 {
		d.StepRatio = o.StepRatio
	}
	if o.InitialZoom != 0 {
		d.InitialZoom = o.InitialZoom
	}
	// A zero anchor is a legitimate top-left anchor, so it is taken as given
	d.Anchor = o.Anchor
	return d
}

// ErrInvalidOptions is wrapped by every Validate failure
var ErrInvalidOptions = errors.New("invalid viewport options")

// Validate reports whether the options satisfy
// 0 < MinWidth <= MaxWidth <= Scene.Width and the positivity constraints.
// The transform code assumes these hold and does not check them again.
func (o Options) Validate() error {
	switch {
	case o.Scene.Width <= 0 || o.Scene.Height <= 0:
		return fmt.Errorf("%w: scene must be non-empty, got %gx%g", ErrInvalidOptions, o.Scene.Width, o.Scene.Height)
	case o.Limits.MinWidth <= 0:
		return fmt.Errorf("%w: min width must be positive, got %g", ErrInvalidOptions, o.Limits.MinWidth)
	case o.Limits.MinWidth > o.Limits.MaxWidth:
		return fmt.Errorf("%w: min width %g exceeds max width %g", ErrInvalidOptions, o.Limits.MinWidth, o.Limits.MaxWidth)
	case o.Limits.MaxWidth > o.Scene.Width:
		return fmt.Errorf("%w: max width %g exceeds scene width %g", ErrInvalidOptions, o.Limits.MaxWidth, o.Scene.Width)
	case o.StepRatio <= 1:
		return fmt.Errorf("%w: zoom step must be greater than 1, got %g", ErrInvalidOptions, o.StepRatio)
	case o.InitialZoom <= 0:
		return fmt.Errorf("%w: initial zoom must be positive, got %g", ErrInvalidOptions, o.InitialZoom)
	}
	return nil
}
