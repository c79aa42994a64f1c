package viewport

// ViewState owns the single mutable view window. It is not safe for
// concurrent use; each gesture handler runs to completion before the next.
type ViewState struct {
	opts   Options
	bounds Constraints
	win    Window
}

// NewViewState creates a view state and performs the initial reset using
// opts.InitialZoom and opts.Anchor. A nil opts uses the defaults.
func NewViewState(opts *Options) *ViewState {
	o := opts.withDefaults()
	s := &ViewState{
		opts:   o,
		bounds: Constraints{Scene: o.Scene, Limits: o.Limits},
	}
	s.ResetDefault()
	return s
}

// Get returns a copy of the current window
func (s *ViewState) Get() Window {
	return s.win
}

// Options returns the resolved options the state was built with
func (s *ViewState) Options() Options {
	return s.opts
}

// Constraints returns the bounds windows are clamped against
func (s *ViewState) Constraints() Constraints {
	return s.bounds
}

// Reset sets the window width to Scene.Width/zoom and places its top-left
// corner at anchor. Out-of-range values are clamped, never rejected.
func (s *ViewState) Reset(zoom float64, anchor Point) Window {
	w := s.opts.Scene.Width
	if zoom > 0 {
		w = s.opts.Scene.Width / zoom
	}
	s.win = s.bounds.Clamp(Window{X: anchor.X, Y: anchor.Y, W: w})
	if debugLog != nil {
		debugLog("[Viewport] reset", s.win.ViewBox())
	}
	return s.win
}

// ResetDefault resets using the configured initial zoom and anchor
func (s *ViewState) ResetDefault() Window {
	return s.Reset(s.opts.InitialZoom, s.opts.Anchor)
}

// Apply runs a transform against the current window and commits the result.
// The result is clamped again so a careless transform cannot break the
// invariants.
func (s *ViewState) Apply(fn func(c Constraints, cur Window) Window) Window {
	s.win = s.bounds.Clamp(fn(s.bounds, s.win))
	return s.win
}

// Pan commits Constraints.Pan
func (s *ViewState) Pan(dx, dy float64) Window {
	return s.Apply(func(c Constraints, cur Window) Window {
		return c.Pan(cur, dx, dy)
	})
}

// ZoomAtPoint commits Constraints.ZoomAtPoint
func (s *ViewState) ZoomAtPoint(scale, fx, fy float64) Window {
	return s.Apply(func(c Constraints, cur Window) Window {
		return c.ZoomAtPoint(cur, scale, fx, fy)
	})
}

// ZoomAtCenter commits Constraints.ZoomAtCenter
func (s *ViewState) ZoomAtCenter(scale float64) Window {
	return s.Apply(func(c Constraints, cur Window) Window {
		return c.ZoomAtCenter(cur, scale)
	})
}

// Zoom steps the window one configured ratio in the given direction about its center
func (s *ViewState) Zoom(dir Direction) Window {
	return s.ZoomAtCenter(ZoomScale(dir, s.opts.StepRatio))
}
