// Package guest is the embedded-runtime side of the bridge protocol.
//
// A guest built for WASI (GOOS=wasip1 GOARCH=wasm) reaches its host by
// writing framed calls to stderr:
//
//	c := guest.NewClient(os.Stderr)
//	c.SendJSON(`{"points":5}`)
//	c.SendExit()
//
// Calls are fire-and-forget; the host never answers them.
package guest

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Frame delimiters shared with the host executor.
// Format: \x00BRIDGE:{json}\x00
const (
	FramePrefix = "\x00BRIDGE:"
	FrameSuffix = "\x00"
)

// Host function names understood by the bridge.
const (
	FnSendJSON   = "send_json"
	FnSendExit   = "send_exit"
	FnSendReplay = "send_replay"
)

// Call is a single host function invocation.
type Call struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

// Client writes bridge calls to the host.
type Client struct {
	w  io.Writer
	mu sync.Mutex
}

// NewClient returns a Client writing frames to w.
func NewClient(w io.Writer) *Client {
	return &Client{w: w}
}

// SendJSON relays a text-encoded payload to the host page.
func (c *Client) SendJSON(text string) error {
	return c.Call(FnSendJSON, map[string]any{"payload": text})
}

// SendExit raises the "exit" notification on the host page.
func (c *Client) SendExit() error {
	return c.Call(FnSendExit, nil)
}

// SendReplay raises the "replay" notification on the host page.
func (c *Client) SendReplay() error {
	return c.Call(FnSendReplay, nil)
}

// Call writes one frame invoking fn with args.
func (c *Client) Call(fn string, args map[string]any) error {
	frame, err := EncodeFrame(Call{Fn: fn, Args: args})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

// EncodeFrame marshals a call and wraps it in frame delimiters.
// encoding/json escapes control characters, so the body never contains
// the NUL suffix.
func EncodeFrame(call Call) ([]byte, error) {
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	body, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", call.Fn, err)
	}
	frame := make([]byte, 0, len(FramePrefix)+len(body)+len(FrameSuffix))
	frame = append(frame, FramePrefix...)
	frame = append(frame, body...)
	frame = append(frame, FrameSuffix...)
	return frame, nil
}
