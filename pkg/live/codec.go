package live

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/recera/mapview/pkg/viewport"
)

// ErrShortFrame is returned when a frame ends before all of its fields
var ErrShortFrame = errors.New("frame too short")

// Encoder handles encoding of live protocol messages
type Encoder struct {
	w io.Writer
}

// NewEncoder creates a new encoder
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteUvarint writes an unsigned varint
func (e *Encoder) WriteUvarint(v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	_, err := e.w.Write(buf[:n])
	return err
}

// WriteString writes a length-prefixed string
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := e.w.Write([]byte(s))
	return err
}

// WriteFloat64 writes a little-endian IEEE 754 double
func (e *Encoder) WriteFloat64(v float64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	_, err := e.w.Write(tmp[:])
	return err
}

// WriteBytes writes raw bytes
func (e *Encoder) WriteBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

// Decoder handles decoding of live protocol messages
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder creates a new decoder
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 1024),
	}
}

// ReadUvarint reads an unsigned varint
func (d *Decoder) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(d)
}

// ReadByte implements io.ByteReader
func (d *Decoder) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadString reads a length-prefixed string
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > 1<<16 {
		return "", fmt.Errorf("string length %d exceeds limit", length)
	}

	if length > uint64(len(d.buf)) {
		d.buf = make([]byte, length)
	}

	n, err := io.ReadFull(d.r, d.buf[:length])
	if err != nil {
		return "", err
	}

	return string(d.buf[:n]), nil
}

// ReadFloat64 reads a little-endian IEEE 754 double
func (d *Decoder) ReadFloat64() (float64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(tmp[:])), nil
}

// EncodeEvent encodes an input event to binary format
func EncodeEvent(evt Event) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FrameEvent), byte(evt.Type)})
	enc.WriteUvarint(uint64(evt.PointerID))

	switch evt.Type {
	case EventPointerDown, EventPointerMove, EventPointerUp, EventPointerCancel, EventLostCapture:
		enc.WriteFloat64(evt.X)
		enc.WriteFloat64(evt.Y)
	case EventWheel:
		enc.WriteFloat64(evt.DeltaY)
		enc.WriteFloat64(evt.X)
		enc.WriteFloat64(evt.Y)
	case EventResize:
		enc.WriteFloat64(evt.Rect.Left)
		enc.WriteFloat64(evt.Rect.Top)
		enc.WriteFloat64(evt.Rect.Width)
		enc.WriteFloat64(evt.Rect.Height)
		enc.WriteFloat64(evt.PixelW)
		enc.WriteFloat64(evt.PixelH)
	}

	return buf.Bytes()
}

// DecodeEvent decodes an input event from binary format
func DecodeEvent(data []byte) (*Event, error) {
	if len(data) < 3 {
		return nil, ErrShortFrame
	}

	// Check frame type
	if data[0] != byte(FrameEvent) {
		return nil, errors.New("not an event frame")
	}

	evt := &Event{
		Type: EventType(data[1]),
	}

	dec := NewDecoder(bytes.NewReader(data[2:]))
	id, err := dec.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("failed to decode pointer ID: %w", err)
	}
	evt.PointerID = uint32(id)

	var fields []*float64
	switch evt.Type {
	case EventPointerDown, EventPointerMove, EventPointerUp, EventPointerCancel, EventLostCapture:
		fields = []*float64{&evt.X, &evt.Y}
	case EventWheel:
		fields = []*float64{&evt.DeltaY, &evt.X, &evt.Y}
	case EventResize:
		fields = []*float64{&evt.Rect.Left, &evt.Rect.Top, &evt.Rect.Width, &evt.Rect.Height, &evt.PixelW, &evt.PixelH}
	case EventZoomIn, EventZoomOut, EventReset:
	default:
		return nil, fmt.Errorf("unknown event type 0x%02x", byte(evt.Type))
	}

	for _, f := range fields {
		v, err := dec.ReadFloat64()
		if err != nil {
			return nil, fmt.Errorf("%s event: %w", evt.Type, ErrShortFrame)
		}
		*f = v
	}

	return evt, nil
}

// EncodeView encodes a view window frame sent to the render surface
func EncodeView(seq uint64, w viewport.Window) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FrameView)})
	enc.WriteUvarint(seq)
	enc.WriteFloat64(w.X)
	enc.WriteFloat64(w.Y)
	enc.WriteFloat64(w.W)
	enc.WriteFloat64(w.H)

	return buf.Bytes()
}

// DecodeView decodes a view window frame
func DecodeView(data []byte) (uint64, viewport.Window, error) {
	if len(data) < 2 || data[0] != byte(FrameView) {
		return 0, viewport.Window{}, errors.New("not a view frame")
	}

	dec := NewDecoder(bytes.NewReader(data[1:]))
	seq, err := dec.ReadUvarint()
	if err != nil {
		return 0, viewport.Window{}, fmt.Errorf("failed to decode sequence: %w", err)
	}

	var w viewport.Window
	for _, f := range []*float64{&w.X, &w.Y, &w.W, &w.H} {
		v, err := dec.ReadFloat64()
		if err != nil {
			return 0, viewport.Window{}, fmt.Errorf("view frame: %w", ErrShortFrame)
		}
		*f = v
	}

	return seq, w, nil
}

// EncodeControl encodes a control verb and its numeric arguments
func EncodeControl(verb string, args ...uint64) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FrameControl)})
	enc.WriteString(verb)
	for _, a := range args {
		enc.WriteUvarint(a)
	}

	return buf.Bytes()
}

// DecodeControl decodes a control frame into its verb and trailing arguments
func DecodeControl(data []byte) (string, []uint64, error) {
	if len(data) < 2 || data[0] != byte(FrameControl) {
		return "", nil, errors.New("not a control frame")
	}

	r := bytes.NewReader(data[1:])
	dec := NewDecoder(r)
	verb, err := dec.ReadString()
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode control verb: %w", err)
	}

	var args []uint64
	for r.Len() > 0 {
		a, err := dec.ReadUvarint()
		if err != nil {
			return "", nil, fmt.Errorf("failed to decode %s argument: %w", verb, err)
		}
		args = append(args, a)
	}

	return verb, args, nil
}

// DescribeFrame renders a frame for logs
func DescribeFrame(data []byte) string {
	if len(data) == 0 {
		return "<empty>"
	}
	switch MessageType(data[0]) {
	case FrameView:
		if seq, w, err := DecodeView(data); err == nil {
			return "view#" + strconv.FormatUint(seq, 10) + " " + w.ViewBox()
		}
	case FrameControl:
		if verb, args, err := DecodeControl(data); err == nil {
			var b strings.Builder
			b.WriteString(verb)
			for _, a := range args {
				b.WriteByte(' ')
				b.WriteString(strconv.FormatUint(a, 10))
			}
			return b.String()
		}
	case FrameEvent:
		if evt, err := DecodeEvent(data); err == nil {
			return "event " + evt.Type.String()
		}
	}
	return "<malformed>"
}
