// Package script replays recorded gestures against a view state. Scripts are
// YAML documents listing pointer, wheel and button steps, with optional
// expectations about the resulting window.
package script

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/recera/mapview/pkg/viewport"
)

var (
	// ErrBadStep is returned for steps with no action or more than one
	ErrBadStep = errors.New("step must have exactly one action")
	// ErrExpectation is returned when a window misses an expect step
	ErrExpectation = errors.New("expectation failed")
)

// Script is a named sequence of gesture steps
type Script struct {
	Name string `yaml:"name,omitempty"`

	// Surface is the on-screen rectangle of the render target.
	// Default 800x404 at the origin.
	Surface Rect `yaml:"surface,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Rect is the on-screen geometry of the surface, in pixels
type Rect struct {
	Left   float64 `yaml:"left,omitempty"`
	Top    float64 `yaml:"top,omitempty"`
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`
}

// Pointer is a pointer position in client pixels
type Pointer struct {
	ID uint32  `yaml:"id,omitempty"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

// Wheel is one wheel tick at a client position
type Wheel struct {
	DeltaY float64 `yaml:"deltaY"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
}

// Expect checks the window after the previous step. Unset fields are not checked.
type Expect struct {
	X         *float64 `yaml:"x,omitempty"`
	Y         *float64 `yaml:"y,omitempty"`
	W         *float64 `yaml:"w,omitempty"`
	H         *float64 `yaml:"h,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
}

// Step is one action. Exactly one field is set.
type Step struct {
	Down   *Pointer `yaml:"down,omitempty"`
	Move   *Pointer `yaml:"move,omitempty"`
	Up     *Pointer `yaml:"up,omitempty"`
	Cancel *Pointer `yaml:"cancel,omitempty"`
	Wheel  *Wheel   `yaml:"wheel,omitempty"`
	Press  string   `yaml:"press,omitempty"`
	Resize *Rect    `yaml:"resize,omitempty"`
	Expect *Expect  `yaml:"expect,omitempty"`
}

// Action names the step's action
func (s Step) Action() string {
	switch {
	case s.Down != nil:
		return "down"
	case s.Move != nil:
		return "move"
	case s.Up != nil:
		return "up"
	case s.Cancel != nil:
		return "cancel"
	case s.Wheel != nil:
		return "wheel"
	case s.Press != "":
		return "press"
	case s.Resize != nil:
		return "resize"
	case s.Expect != nil:
		return "expect"
	}
	return ""
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Down != nil, s.Move != nil, s.Up != nil, s.Cancel != nil,
		s.Wheel != nil, s.Press != "", s.Resize != nil, s.Expect != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Load reads a script file
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a script
func Parse(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	if s.Surface.Width == 0 && s.Surface.Height == 0 {
		s.Surface.Width, s.Surface.Height = 800, 404
	}
	for i, step := range s.Steps {
		if step.actions() != 1 {
			return nil, fmt.Errorf("step %d: %w", i+1, ErrBadStep)
		}
		if step.Press != "" {
			if _, err := parseButton(step.Press); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return &s, nil
}

func parseButton(name string) (viewport.Button, error) {
	for _, b := range []viewport.Button{viewport.ButtonZoomIn, viewport.ButtonZoomOut, viewport.ButtonReset} {
		if b.String() == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown button %q (want zoom-in, zoom-out or reset)", name)
}

// Result is the window after one step
type Result struct {
	Step   int // 1-based
	Action string
	Window viewport.Window
	// Dragging reports whether a drag was in progress after the step
	Dragging bool
}

// recordingSurface is an in-memory render target with fixed geometry
type recordingSurface struct {
	rect    viewport.Rect
	current viewport.Window
}

func (r *recordingSurface) Present(w viewport.Window) { r.current = w }

func (r *recordingSurface) PixelSize() (float64, float64) {
	return r.rect.Width, r.rect.Height
}

func (r *recordingSurface) ClientRect() viewport.Rect { return r.rect }

// Run replays the script against a fresh view state built from opts.
// It stops at the first failed expectation and returns the results so far.
func (s *Script) Run(opts viewport.Options) ([]Result, error) {
	surface := &recordingSurface{rect: s.Surface.viewportRect()}
	state := viewport.NewViewState(&opts)
	adapter := viewport.NewGestureAdapter(state, surface)
	adapter.Sync()

	results := make([]Result, 0, len(s.Steps))
	for i, step := range s.Steps {
		if err := apply(adapter, surface, step); err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, Result{
			Step:     i + 1,
			Action:   step.Action(),
			Window:   state.Get(),
			Dragging: adapter.Dragging(),
		})
	}
	return results, nil
}

func apply(g *viewport.GestureAdapter, surface *recordingSurface, step Step) error {
	pointer := func(p *Pointer) viewport.PointerEvent {
		return viewport.PointerEvent{ID: p.ID, ClientX: p.X, ClientY: p.Y}
	}

	switch {
	case step.Down != nil:
		g.PointerDown(pointer(step.Down))
	case step.Move != nil:
		g.PointerMove(pointer(step.Move))
	case step.Up != nil:
		g.PointerUp(pointer(step.Up))
	case step.Cancel != nil:
		g.PointerCancel(pointer(step.Cancel))
	case step.Wheel != nil:
		g.Wheel(viewport.WheelEvent{DeltaY: step.Wheel.DeltaY, ClientX: step.Wheel.X, ClientY: step.Wheel.Y})
	case step.Press != "":
		b, err := parseButton(step.Press)
		if err != nil {
			return err
		}
		g.Press(b)
	case step.Resize != nil:
		surface.rect = step.Resize.viewportRect()
	case step.Expect != nil:
		return step.Expect.check(g.State().Get())
	}
	return nil
}

func (r Rect) viewportRect() viewport.Rect {
	return viewport.Rect{Left: r.Left, Top: r.Top, Width: r.Width, Height: r.Height}
}

func (e *Expect) check(w viewport.Window) error {
	tol := e.Tolerance
	if tol == 0 {
		tol = 1e-6
	}
	for _, f := range []struct {
		name string
		want *float64
		got  float64
	}{
		{"x", e.X, w.X},
		{"y", e.Y, w.Y},
		{"w", e.W, w.W},
		{"h", e.H, w.H},
	} {
		if f.want != nil && math.Abs(*f.want-f.got) > tol {
			return fmt.Errorf("%w: %s = %g, want %g", ErrExpectation, f.name, f.got, *f.want)
		}
	}
	return nil
}
