package hostfunc

import (
	"context"
	"errors"

	"github.com/caffeineduck/webbridge/guest"
	"github.com/caffeineduck/webbridge/host"
	"github.com/rs/zerolog"
)

// Page is the part of the host page the bridge writes to.
// *host.Page satisfies it.
type Page interface {
	PostMessage(data, targetOrigin string)
	DispatchEvent(ev host.Event)
}

// Bridge relays payloads and notifications from the guest to the page.
// It holds no state beyond its configuration.
type Bridge struct {
	page         Page
	targetOrigin string
	log          zerolog.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithTargetOrigin restricts forwarded payloads to pages of the given
// origin. The default is host.AnyOrigin.
func WithTargetOrigin(origin string) BridgeOption {
	return func(b *Bridge) {
		b.targetOrigin = origin
	}
}

// WithLogger sets the logger receiving decode diagnostics.
func WithLogger(l zerolog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.log = l
	}
}

// NewBridge returns a Bridge writing to page.
func NewBridge(page Page, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		page:         page,
		targetOrigin: host.AnyOrigin,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With().Str("module", "bridge").Logger()
	return b
}

// SendPayload decodes text for diagnostics, then posts the original text to
// the page. A decode failure is logged and never stops the post.
func (b *Bridge) SendPayload(ctx context.Context, text string) {
	p, err := DecodePayload(text)
	if err != nil {
		b.log.Warn().Err(err).Str("payload", text).Msg("payload decode failed")
	} else {
		b.log.Info().Interface("value", p.Value).Msg("payload decoded")
	}

	b.page.PostMessage(text, b.targetOrigin)
}

// SendExit raises "exit" with detail {exit: true}.
func (b *Bridge) SendExit(ctx context.Context) {
	b.page.DispatchEvent(host.NewEvent(host.EventExit, true))
}

// SendReplay raises "replay" with detail {replay: true}.
func (b *Bridge) SendReplay(ctx context.Context) {
	b.page.DispatchEvent(host.NewEvent(host.EventReplay, true))
}

// SendJSON is the host function form of SendPayload.
// Args: payload (string, may be empty).
func (b *Bridge) SendJSON(ctx context.Context, args map[string]any) (any, error) {
	text, ok := args["payload"].(string)
	if !ok {
		return nil, errors.New("payload required")
	}
	b.SendPayload(ctx, text)
	return nil, nil
}

// Exit is the host function form of SendExit.
func (b *Bridge) Exit(ctx context.Context, args map[string]any) (any, error) {
	b.SendExit(ctx)
	return nil, nil
}

// Replay is the host function form of SendReplay.
func (b *Bridge) Replay(ctx context.Context, args map[string]any) (any, error) {
	b.SendReplay(ctx)
	return nil, nil
}

// Register installs the bridge's host functions under their guest names.
func (b *Bridge) Register(r *Registry) {
	r.Register(guest.FnSendJSON, b.SendJSON)
	r.Register(guest.FnSendExit, b.Exit)
	r.Register(guest.FnSendReplay, b.Replay)
}
