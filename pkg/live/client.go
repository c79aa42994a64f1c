//go:build js && wasm
// +build js,wasm

package live

import (
	"log"
	"syscall/js"

	"github.com/recera/mapview/pkg/viewport"
)

// Client handles WebSocket communication from the browser. It forwards input
// events to the server and hands back the windows the server commits.
type Client struct {
	ws        js.Value
	url       string
	open      bool
	onView    func(seq uint64, w viewport.Window)
	onControl func(verb string, args []uint64)
	onReady   func()
	onClose   func()
	funcs     []js.Func
}

// NewClient creates a new live protocol client
func NewClient(url string) *Client {
	return &Client{
		url: url,
	}
}

// Connect establishes WebSocket connection
func (c *Client) Connect() error {
	// Callbacks of a previous, closed socket never fire again
	for _, f := range c.funcs {
		f.Release()
	}
	c.funcs = nil

	c.ws = js.Global().Get("WebSocket").New(c.url)
	c.ws.Set("binaryType", "arraybuffer")

	c.ws.Set("onopen", c.fn(func(this js.Value, args []js.Value) interface{} {
		log.Println("[Live Client] Connected")
		c.open = true
		c.SendControl(ControlHello)
		if c.onReady != nil {
			c.onReady()
		}
		return nil
	}))

	c.ws.Set("onmessage", c.fn(func(this js.Value, args []js.Value) interface{} {
		buffer := js.Global().Get("Uint8Array").New(args[0].Get("data"))
		data := make([]byte, buffer.Get("length").Int())
		js.CopyBytesToGo(data, buffer)
		c.handleFrame(data)
		return nil
	}))

	c.ws.Set("onerror", c.fn(func(this js.Value, args []js.Value) interface{} {
		log.Println("[Live Client] WebSocket error")
		return nil
	}))

	c.ws.Set("onclose", c.fn(func(this js.Value, args []js.Value) interface{} {
		log.Println("[Live Client] Disconnected")
		c.open = false
		if c.onClose != nil {
			c.onClose()
		}
		return nil
	}))

	return nil
}

func (c *Client) fn(f func(this js.Value, args []js.Value) interface{}) js.Func {
	jf := js.FuncOf(f)
	c.funcs = append(c.funcs, jf)
	return jf
}

func (c *Client) handleFrame(data []byte) {
	if len(data) == 0 {
		return
	}
	switch MessageType(data[0]) {
	case FrameView:
		seq, w, err := DecodeView(data)
		if err != nil {
			log.Printf("[Live Client] Bad view frame: %v", err)
			return
		}
		if c.onView != nil {
			c.onView(seq, w)
		}
	case FrameControl:
		verb, args, err := DecodeControl(data)
		if err != nil {
			log.Printf("[Live Client] Bad control frame: %v", err)
			return
		}
		if verb == ControlPing {
			c.SendControl(ControlPong)
			return
		}
		if c.onControl != nil {
			c.onControl(verb, args)
		}
	}
}

// SendEvent sends an event to the server
func (c *Client) SendEvent(evt Event) error {
	return c.send(EncodeEvent(evt))
}

// SendControl sends a control verb to the server
func (c *Client) SendControl(verb string, args ...uint64) error {
	return c.send(EncodeControl(verb, args...))
}

func (c *Client) send(data []byte) error {
	if !c.open {
		return ErrNotConnected
	}
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	c.ws.Call("send", arr)
	return nil
}

// Close closes the WebSocket connection and releases its callbacks
func (c *Client) Close() {
	if !c.ws.IsNull() && !c.ws.IsUndefined() {
		// The callbacks are released below and must not fire afterwards
		c.ws.Set("onclose", js.Null())
		c.ws.Set("onmessage", js.Null())
		c.ws.Call("close")
	}
	for _, f := range c.funcs {
		f.Release()
	}
	c.funcs = nil
}

// OnView sets the handler for windows committed by the server
func (c *Client) OnView(handler func(seq uint64, w viewport.Window)) {
	c.onView = handler
}

// OnControl sets the handler for control verbs other than PING
func (c *Client) OnControl(handler func(verb string, args []uint64)) {
	c.onControl = handler
}

// OnReady sets the handler called once the socket opens
func (c *Client) OnReady(handler func()) {
	c.onReady = handler
}

// OnClose sets the handler called when the socket closes
func (c *Client) OnClose(handler func()) {
	c.onClose = handler
}
