package viewport

import "testing"

// fakeSurface records everything the adapter pushes to it
type fakeSurface struct {
	pxW, pxH  float64
	rect      Rect
	presented []Window
	captured  []uint32
	released  []uint32
	dragging  bool
}

func (f *fakeSurface) Present(w Window) { f.presented = append(f.presented, w) }
func (f *fakeSurface) PixelSize() (float64, float64) { return f.pxW, f.pxH }
func (f *fakeSurface) ClientRect() Rect { return f.rect }
func (f *fakeSurface) CapturePointer(id uint32) { f.captured = append(f.captured, id) }
func (f *fakeSurface) ReleasePointer(id uint32) { f.released = append(f.released, id) }
func (f *fakeSurface) SetDragging(dragging bool) { f.dragging = dragging }

func (f *fakeSurface) last() Window {
	if len(f.presented) == 0 {
		return Window{}
	}
	return f.presented[len(f.presented)-1]
}

// newTestAdapter builds a 1000x500 scene shown 500x250 at (250, 125) on a
// 500x250 pixel surface placed at (10, 20) on screen: one pixel is one unit.
func newTestAdapter() (*GestureAdapter, *fakeSurface) {
	state := NewViewState(&Options{
		Scene:       SceneBounds{Width: 1000, Height: 500},
		Limits:      ZoomLimits{MinWidth: 100, MaxWidth: 1000},
		StepRatio:   2,
		InitialZoom: 2,
		Anchor:      Point{X: 250, Y: 125},
	})
	surface := &fakeSurface{
		pxW:  500,
		pxH:  250,
		rect: Rect{Left: 10, Top: 20, Width: 500, Height: 250},
	}
	return NewGestureAdapter(state, surface), surface
}

func TestGesture_DragPans(t *testing.T) {
	g, surface := newTestAdapter()

	g.PointerDown(PointerEvent{ID: 7, ClientX: 100, ClientY: 100})
	if !g.Dragging() {
		t.Fatal("Expected dragging after pointer down")
	}
	if len(surface.captured) != 1 || surface.captured[0] != 7 {
		t.Errorf("Expected pointer 7 captured, got %v", surface.captured)
	}
	if !surface.dragging {
		t.Error("Expected surface drag style on")
	}

	// Dragging right/down moves the window left/up
	g.PointerMove(PointerEvent{ID: 7, ClientX: 130, ClientY: 110})
	w := g.State().Get()
	if w.X != 220 || w.Y != 115 {
		t.Errorf("Expected origin (220, 115), got (%g, %g)", w.X, w.Y)
	}
	if surface.last() != w {
		t.Errorf("Expected surface to receive %+v, got %+v", w, surface.last())
	}

	g.PointerUp(PointerEvent{ID: 7})
	if g.Dragging() {
		t.Error("Expected idle after pointer up")
	}
	if len(surface.released) != 1 || surface.released[0] != 7 {
		t.Errorf("Expected pointer 7 released, got %v", surface.released)
	}
	if surface.dragging {
		t.Error("Expected surface drag style off")
	}
}

func TestGesture_ScaleFollowsZoom(t *testing.T) {
	g, _ := newTestAdapter()
	g.Press(ButtonZoomIn) // 250 units across 500 px

	before := g.State().Get()
	g.PointerDown(PointerEvent{ID: 1, ClientX: 0, ClientY: 0})
	g.PointerMove(PointerEvent{ID: 1, ClientX: -40, ClientY: 0})
	after := g.State().Get()

	if after.X-before.X != 20 {
		t.Errorf("Expected 40px to pan 20 units at this zoom, got %g", after.X-before.X)
	}
}

func TestGesture_MoveWhileIdleIgnored(t *testing.T) {
	g, surface := newTestAdapter()
	before := g.State().Get()

	g.PointerMove(PointerEvent{ID: 1, ClientX: 400, ClientY: 400})
	if g.State().Get() != before {
		t.Error("Move without drag should not change the window")
	}
	if len(surface.presented) != 0 {
		t.Errorf("Expected no redraws, got %d", len(surface.presented))
	}

	// Up and cancel while idle are silent too
	g.PointerUp(PointerEvent{ID: 1})
	g.PointerCancel(PointerEvent{ID: 1})
	if len(surface.released) != 0 {
		t.Errorf("Expected no releases while idle, got %v", surface.released)
	}
}

func TestGesture_OtherPointerIgnored(t *testing.T) {
	g, surface := newTestAdapter()
	g.PointerDown(PointerEvent{ID: 1, ClientX: 0, ClientY: 0})
	g.PointerDown(PointerEvent{ID: 2, ClientX: 50, ClientY: 50})
	if len(surface.captured) != 1 {
		t.Errorf("Second pointer should not be captured, got %v", surface.captured)
	}

	before := g.State().Get()
	g.PointerMove(PointerEvent{ID: 2, ClientX: 90, ClientY: 90})
	if g.State().Get() != before {
		t.Error("Moves from a non-dragging pointer should be ignored")
	}
	g.PointerUp(PointerEvent{ID: 2})
	if !g.Dragging() {
		t.Error("Releasing another pointer must not end the drag")
	}
	g.PointerCancel(PointerEvent{ID: 1})
	if g.Dragging() {
		t.Error("Cancel should end the drag")
	}
}

func TestGesture_LostCapture(t *testing.T) {
	g, surface := newTestAdapter()
	g.PointerDown(PointerEvent{ID: 3})
	g.LostCapture(PointerEvent{ID: 3})
	if g.Dragging() {
		t.Error("Expected idle after capture loss")
	}
	if len(surface.released) != 0 {
		t.Errorf("Capture already gone, expected no release, got %v", surface.released)
	}
}

func TestGesture_Abort(t *testing.T) {
	g, surface := newTestAdapter()
	g.Abort()
	g.PointerDown(PointerEvent{ID: 9})
	g.Abort()
	if g.Dragging() || surface.dragging {
		t.Error("Expected drag aborted")
	}
	if len(surface.released) != 0 {
		t.Errorf("Abort must not release capture, got %v", surface.released)
	}
}

func TestGesture_ZeroSizedSurface(t *testing.T) {
	g, surface := newTestAdapter()
	surface.pxW, surface.pxH = 0, 0
	before := g.State().Get()

	g.PointerDown(PointerEvent{ID: 1})
	g.PointerMove(PointerEvent{ID: 1, ClientX: 100, ClientY: 100})
	if g.State().Get() != before {
		t.Errorf("Expected no pan on a zero-sized surface, got %+v", g.State().Get())
	}
}

func TestGesture_WheelZoomsAtCursor(t *testing.T) {
	g, surface := newTestAdapter()
	before := g.State().Get()

	// Cursor at the surface's quarter point
	cx, cy := 10+500*0.25, 20+250*0.25
	g.Wheel(WheelEvent{DeltaY: -120, ClientX: cx, ClientY: cy})
	w := g.State().Get()

	if w.W != before.W/2 {
		t.Errorf("Expected width %g after wheel up, got %g", before.W/2, w.W)
	}
	anchorBefore := Point{X: before.X + before.W*0.25, Y: before.Y + before.H*0.25}
	anchorAfter := Point{X: w.X + w.W*0.25, Y: w.Y + w.H*0.25}
	if anchorBefore != anchorAfter {
		t.Errorf("Expected anchor %+v to stay put, got %+v", anchorBefore, anchorAfter)
	}
	if len(surface.presented) != 1 {
		t.Errorf("Expected one redraw, got %d", len(surface.presented))
	}

	g.Wheel(WheelEvent{DeltaY: 3, ClientX: cx, ClientY: cy})
	if g.State().Get().W != before.W {
		t.Errorf("Expected wheel down to zoom back out to %g, got %g", before.W, g.State().Get().W)
	}

	g.Wheel(WheelEvent{DeltaY: 0, ClientX: cx, ClientY: cy})
	if len(surface.presented) != 2 {
		t.Errorf("Zero delta should not redraw, got %d redraws", len(surface.presented))
	}
}

func TestGesture_WheelOutsideRectClamps(t *testing.T) {
	g, _ := newTestAdapter()
	g.Wheel(WheelEvent{DeltaY: -1, ClientX: -1000, ClientY: -1000})
	w := g.State().Get()
	// Anchor fraction (0, 0) keeps the top-left corner fixed
	if w.X != 250 || w.Y != 125 {
		t.Errorf("Expected origin (250, 125), got (%g, %g)", w.X, w.Y)
	}
}

func TestGesture_Buttons(t *testing.T) {
	g, surface := newTestAdapter()
	initial := g.State().Get()

	g.Press(ButtonZoomOut)
	if got := g.State().Get(); got.W != 1000 || got.X != 0 || got.Y != 0 {
		t.Errorf("Expected full scene after zoom out, got %+v", got)
	}
	g.Press(ButtonZoomOut)
	if got := g.State().Get(); got.W != 1000 {
		t.Errorf("Expected width pinned at 1000, got %g", got.W)
	}
	g.Press(ButtonZoomIn)
	g.Press(ButtonZoomIn)
	g.Press(ButtonReset)
	if got := g.State().Get(); got != initial {
		t.Errorf("Expected reset to %+v, got %+v", initial, got)
	}
	if len(surface.presented) != 5 {
		t.Errorf("Expected a redraw per press, got %d", len(surface.presented))
	}
}

func TestGesture_Sync(t *testing.T) {
	g, surface := newTestAdapter()
	g.Sync()
	if len(surface.presented) != 1 || surface.last() != g.State().Get() {
		t.Errorf("Expected current window pushed, got %v", surface.presented)
	}
}
