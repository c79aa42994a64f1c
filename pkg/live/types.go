package live

import (
	"errors"

	"github.com/recera/mapview/pkg/viewport"
)

// ErrNotConnected is returned when there is no open connection to send on
var ErrNotConnected = errors.New("not connected")

// debugLog is set by the caller for per-event tracing
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// MessageType represents the type of live protocol message
type MessageType uint8

const (
	// Frame types
	FrameView    MessageType = 0x00
	FrameEvent   MessageType = 0x01
	FrameControl MessageType = 0x02
)

// EventType represents client-side input event types
type EventType uint8

const (
	EventPointerDown   EventType = 0x01
	EventPointerMove   EventType = 0x02
	EventPointerUp     EventType = 0x03
	EventPointerCancel EventType = 0x04
	EventLostCapture   EventType = 0x05
	EventWheel         EventType = 0x06
	EventZoomIn        EventType = 0x07
	EventZoomOut       EventType = 0x08
	EventReset         EventType = 0x09
	EventResize        EventType = 0x0A
)

func (t EventType) String() string {
	switch t {
	case EventPointerDown:
		return "pointerdown"
	case EventPointerMove:
		return "pointermove"
	case EventPointerUp:
		return "pointerup"
	case EventPointerCancel:
		return "pointercancel"
	case EventLostCapture:
		return "lostpointercapture"
	case EventWheel:
		return "wheel"
	case EventZoomIn:
		return "zoom-in"
	case EventZoomOut:
		return "zoom-out"
	case EventReset:
		return "reset"
	case EventResize:
		return "resize"
	default:
		return "unknown"
	}
}

// Control verbs
const (
	ControlHello    = "HELLO"
	ControlPing     = "PING"
	ControlPong     = "PONG"
	ControlCapture  = "CAPTURE"
	ControlRelease  = "RELEASE"
	ControlDragging = "DRAGGING"
	ControlReload   = "RELOAD"
)

// Event represents a client-side input event.
// X, Y are client coordinates; Rect and the pixel size are only set on resize.
type Event struct {
	Type      EventType
	PointerID uint32
	X         float64
	Y         float64
	DeltaY    float64
	Rect      viewport.Rect
	PixelW    float64
	PixelH    float64
}
