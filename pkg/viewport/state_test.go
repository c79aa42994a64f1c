package viewport

import (
	"errors"
	"math"
	"testing"
)

func TestNewViewState_Defaults(t *testing.T) {
	s := NewViewState(nil)
	opts := s.Options()

	if opts.Scene.Width != DefaultSceneWidth || opts.Scene.Height != DefaultSceneHeight {
		t.Errorf("Expected default scene, got %+v", opts.Scene)
	}
	if opts.Limits.MaxWidth != DefaultSceneWidth {
		t.Errorf("Expected max width to default to scene width, got %g", opts.Limits.MaxWidth)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Default options should validate: %v", err)
	}
}

func TestNewViewState_SmallSceneDefaults(t *testing.T) {
	s := NewViewState(&Options{Scene: SceneBounds{Width: 300, Height: 150}})
	opts := s.Options()

	if opts.Limits.MinWidth != 300 || opts.Limits.MaxWidth != 300 {
		t.Errorf("Expected limits capped at the 300 wide scene, got %+v", opts.Limits)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Small scene defaults should validate: %v", err)
	}

	for _, dir := range []Direction{ZoomIn, ZoomOut, ZoomIn} {
		w := s.Zoom(dir)
		if w.W > 300 || w.X < 0 || w.Y < 0 || w.X+w.W > 300 || w.Y+w.H > 150 {
			t.Errorf("Expected window inside the scene, got %v", w)
		}
	}
}

func TestViewState_InitialReset(t *testing.T) {
	s := NewViewState(&Options{
		Scene:       SceneBounds{Width: 2976.18, Height: 1503.34},
		Limits:      ZoomLimits{MinWidth: 500, MaxWidth: 2976.18},
		StepRatio:   1.2,
		InitialZoom: 1.5,
		Anchor:      Point{X: 500, Y: 120},
	})
	w := s.Get()

	if math.Abs(w.W-1984.12) > 0.005 {
		t.Errorf("Expected w≈1984.12, got %g", w.W)
	}
	if math.Abs(w.H-1002.23) > 0.005 {
		t.Errorf("Expected h≈1002.23, got %g", w.H)
	}
	if w.X != 500 || w.Y != 120 {
		t.Errorf("Expected anchor (500, 120) unclamped, got (%g, %g)", w.X, w.Y)
	}
}

func TestViewState_ResetIdempotent(t *testing.T) {
	s := NewViewState(nil)
	s.Pan(300, 300)
	s.ZoomAtCenter(0.5)

	first := s.Reset(2, Point{X: 40, Y: 60})
	second := s.Reset(2, Point{X: 40, Y: 60})
	if first != second {
		t.Errorf("Expected identical windows, got %+v and %+v", first, second)
	}
	if s.Get() != second {
		t.Errorf("Get should return the committed window")
	}
}

func TestViewState_ResetClampsAnchor(t *testing.T) {
	s := NewViewState(&Options{
		Scene:  SceneBounds{Width: 1000, Height: 500},
		Limits: ZoomLimits{MinWidth: 100, MaxWidth: 1000},
	})

	w := s.Reset(2, Point{X: 9999, Y: -5})
	if w.X != 500 || w.Y != 0 {
		t.Errorf("Expected clamped anchor (500, 0), got (%g, %g)", w.X, w.Y)
	}

	// Zoom factors beyond the limits are clamped too
	w = s.Reset(100, Point{})
	if w.W != 100 {
		t.Errorf("Expected width clamped to min 100, got %g", w.W)
	}
	w = s.Reset(0.5, Point{X: 10, Y: 10})
	if w.W != 1000 || w.X != 0 || w.Y != 0 {
		t.Errorf("Expected full scene at origin, got %+v", w)
	}
}

func TestViewState_ZoomDirection(t *testing.T) {
	s := NewViewState(&Options{
		Scene:       SceneBounds{Width: 1000, Height: 500},
		Limits:      ZoomLimits{MinWidth: 100, MaxWidth: 1000},
		StepRatio:   2,
		InitialZoom: 4,
		Anchor:      Point{X: 375, Y: 187.5},
	})
	start := s.Get()

	in := s.Zoom(ZoomIn)
	if in.W != start.W/2 {
		t.Errorf("Expected width %g after zoom in, got %g", start.W/2, in.W)
	}
	if in.Center() != start.Center() {
		t.Errorf("Expected center %+v to stay fixed, got %+v", start.Center(), in.Center())
	}

	out := s.Zoom(ZoomOut)
	if out != start {
		t.Errorf("Expected %+v after zooming back out, got %+v", start, out)
	}
}

func TestViewState_ApplyReclamps(t *testing.T) {
	s := NewViewState(&Options{
		Scene:  SceneBounds{Width: 1000, Height: 500},
		Limits: ZoomLimits{MinWidth: 100, MaxWidth: 1000},
	})
	w := s.Apply(func(c Constraints, cur Window) Window {
		return Window{X: -10, Y: 800, W: 5, H: 5}
	})
	if w.W != 100 || w.H != 50 || w.X != 0 || w.Y != 450 {
		t.Errorf("Expected repaired window, got %+v", w)
	}
}

func TestOptions_Validate(t *testing.T) {
	valid := Options{
		Scene:       SceneBounds{Width: 1000, Height: 500},
		Limits:      ZoomLimits{MinWidth: 100, MaxWidth: 1000},
		StepRatio:   1.2,
		InitialZoom: 1,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid options, got %v", err)
	}

	bad := []func(o *Options){
		func(o *Options) { o.Scene.Width = 0 },
		func(o *Options) { o.Scene.Height = -1 },
		func(o *Options) { o.Limits.MinWidth = 0 },
		func(o *Options) { o.Limits.MinWidth = 2000 },
		func(o *Options) { o.Limits.MaxWidth = 1200 },
		func(o *Options) { o.StepRatio = 1 },
		func(o *Options) { o.InitialZoom = 0 },
	}
	for i, mutate := range bad {
		o := valid
		mutate(&o)
		err := o.Validate()
		if !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("Case %d: expected ErrInvalidOptions, got %v", i, err)
		}
	}
}
