package viewport

// Surface is the render target the adapter drives. It redraws to exactly the
// window it is given and reports its current on-screen geometry.
type Surface interface {
	// Present redraws the visible content to w. w is a copy.
	Present(w Window)
	// PixelSize is the drawable size in screen pixels (clientWidth/clientHeight)
	PixelSize() (width, height float64)
	// ClientRect is the on-screen bounding rectangle, in the same space as
	// pointer client coordinates
	ClientRect() Rect
}

// PointerCapturer is implemented by surfaces that can route a pointer's
// subsequent events to themselves while it is outside their area.
type PointerCapturer interface {
	CapturePointer(id uint32)
	ReleasePointer(id uint32)
}

// DragStyler is implemented by surfaces that change appearance while a drag
// is in progress (a grabbing cursor, for instance).
type DragStyler interface {
	SetDragging(dragging bool)
}

// PointerEvent is a pointer-down/move/up/cancel in client coordinates
type PointerEvent struct {
	ID      uint32
	ClientX float64
	ClientY float64
}

// WheelEvent is a wheel tick. Only the sign of DeltaY matters.
type WheelEvent struct {
	DeltaY  float64
	ClientX float64
	ClientY float64
}

// Button is a discrete on-screen control
type Button int

const (
	ButtonZoomIn Button = iota
	ButtonZoomOut
	ButtonReset
)

func (b Button) String() string {
	switch b {
	case ButtonZoomIn:
		return "zoom-in"
	case ButtonZoomOut:
		return "zoom-out"
	case ButtonReset:
		return "reset"
	default:
		return "unknown"
	}
}

// GestureAdapter turns raw input events into transforms on a ViewState and
// pushes each committed window to the surface. It tracks one drag at a time.
type GestureAdapter struct {
	state   *ViewState
	surface Surface

	dragging bool
	pointer  uint32
	lastX    float64
	lastY    float64
}

// NewGestureAdapter binds a state to a surface
func NewGestureAdapter(state *ViewState, surface Surface) *GestureAdapter {
	return &GestureAdapter{state: state, surface: surface}
}

// State returns the view state the adapter mutates
func (g *GestureAdapter) State() *ViewState {
	return g.state
}

// Dragging reports whether a drag is in progress
func (g *GestureAdapter) Dragging() bool {
	return g.dragging
}

// Sync pushes the current window to the surface without changing it
func (g *GestureAdapter) Sync() {
	g.commit(g.state.Get())
}

// PointerDown starts a drag. A second pointer going down mid-drag is ignored.
func (g *GestureAdapter) PointerDown(e PointerEvent) {
	if g.dragging {
		return
	}
	g.dragging = true
	g.pointer = e.ID
	g.lastX, g.lastY = e.ClientX, e.ClientY
	if c, ok := g.surface.(PointerCapturer); ok {
		c.CapturePointer(e.ID)
	}
	if d, ok := g.surface.(DragStyler); ok {
		d.SetDragging(true)
	}
	if debugLog != nil {
		debugLog("[Gesture] drag start pointer", e.ID)
	}
}

// PointerMove pans by the pointer delta while dragging; otherwise it is a no-op.
// The pixel-to-scene ratio is read from the surface on every move because it
// changes with both zoom and surface resizing.
func (g *GestureAdapter) PointerMove(e PointerEvent) {
	if !g.dragging || e.ID != g.pointer {
		return
	}
	dxPx := e.ClientX - g.lastX
	dyPx := e.ClientY - g.lastY
	g.lastX, g.lastY = e.ClientX, e.ClientY

	pw, ph := g.surface.PixelSize()
	if pw <= 0 || ph <= 0 {
		return
	}
	cur := g.state.Get()
	// Grab semantics: content follows the pointer, so the window moves the other way
	dx := dxPx * (cur.W / pw)
	dy := dyPx * (cur.H / ph)
	g.commit(g.state.Pan(-dx, -dy))
}

// PointerUp ends the drag and releases capture
func (g *GestureAdapter) PointerUp(e PointerEvent) {
	g.endDrag(e.ID, true)
}

// PointerCancel ends the drag the same way as PointerUp
func (g *GestureAdapter) PointerCancel(e PointerEvent) {
	g.endDrag(e.ID, true)
}

// LostCapture ends the drag after the environment already dropped capture
func (g *GestureAdapter) LostCapture(e PointerEvent) {
	g.endDrag(e.ID, false)
}

// Abort drops an in-progress drag without touching pointer capture, for
// when the input source goes away mid-drag.
func (g *GestureAdapter) Abort() {
	if g.dragging {
		g.endDrag(g.pointer, false)
	}
}

func (g *GestureAdapter) endDrag(id uint32, release bool) {
	if !g.dragging || id != g.pointer {
		return
	}
	g.dragging = false
	if c, ok := g.surface.(PointerCapturer); ok && release {
		c.ReleasePointer(id)
	}
	if d, ok := g.surface.(DragStyler); ok {
		d.SetDragging(false)
	}
	if debugLog != nil {
		debugLog("[Gesture] drag end pointer", id)
	}
}

// Wheel zooms one step about the cursor: negative DeltaY zooms in, positive
// zooms out, zero is ignored. Callers must suppress the surface's native
// scrolling for every wheel event they forward, including ignored ones.
func (g *GestureAdapter) Wheel(e WheelEvent) {
	if e.DeltaY == 0 {
		return
	}
	dir := ZoomOut
	if e.DeltaY < 0 {
		dir = ZoomIn
	}
	fx, fy := g.anchorFraction(e.ClientX, e.ClientY)
	scale := ZoomScale(dir, g.state.Options().StepRatio)
	g.commit(g.state.ZoomAtPoint(scale, fx, fy))
}

// Press handles the zoom-in, zoom-out and reset controls
func (g *GestureAdapter) Press(b Button) {
	switch b {
	case ButtonZoomIn:
		g.commit(g.state.Zoom(ZoomIn))
	case ButtonZoomOut:
		g.commit(g.state.Zoom(ZoomOut))
	case ButtonReset:
		g.commit(g.state.ResetDefault())
	}
}

// anchorFraction locates a client point as a fraction of the surface's
// on-screen rectangle. A degenerate rectangle anchors at the center.
func (g *GestureAdapter) anchorFraction(x, y float64) (float64, float64) {
	r := g.surface.ClientRect()
	if r.Width <= 0 || r.Height <= 0 {
		return 0.5, 0.5
	}
	return clamp((x-r.Left)/r.Width, 0, 1), clamp((y-r.Top)/r.Height, 0, 1)
}

func (g *GestureAdapter) commit(w Window) {
	g.surface.Present(w)
}
