package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/caffeineduck/webbridge/guest"
	"github.com/caffeineduck/webbridge/hostfunc"
	"github.com/rs/zerolog"
)

// frameMarker is what follows the NUL in FramePrefix.
var frameMarker = strings.TrimPrefix(guest.FramePrefix, guest.FrameSuffix)

// protocolHandler intercepts guest stderr to dispatch host function calls.
// Regular stderr output passes through; protocol frames trigger host calls.
type protocolHandler struct {
	ctx      context.Context
	registry *hostfunc.Registry
	log      zerolog.Logger
	out      *output
	buf      bytes.Buffer
	calls    int
	mu       sync.Mutex
}

func newProtocolHandler(ctx context.Context, registry *hostfunc.Registry, out *output, log zerolog.Logger) *protocolHandler {
	return &protocolHandler{
		ctx:      ctx,
		registry: registry,
		log:      log,
		out:      out,
	}
}

func (p *protocolHandler) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)

	for {
		content := p.buf.String()
		startIdx := strings.Index(content, guest.FramePrefix)
		if startIdx == -1 {
			// Hold back a tail that could be the start of a split prefix.
			keep := partialPrefixLen(content)
			p.out.WriteString(content[:len(content)-keep])
			p.buf.Reset()
			p.buf.WriteString(content[len(content)-keep:])
			break
		}

		p.out.WriteString(content[:startIdx])

		bodyStart := startIdx + len(guest.FramePrefix)
		endIdx := strings.Index(content[bodyStart:], guest.FrameSuffix)
		if endIdx == -1 {
			p.buf.Reset()
			p.buf.WriteString(content[startIdx:])
			break
		}

		end := bodyStart + endIdx
		rest := content[end+len(guest.FrameSuffix):]

		// FramePrefix begins with FrameSuffix, so a NUL may open the next
		// frame instead of closing this one.
		if strings.HasPrefix(rest, frameMarker) {
			p.log.Warn().Str("frame", content[bodyStart:end]).Msg("unterminated frame discarded")
			p.buf.Reset()
			p.buf.WriteString(content[end:])
			continue
		}
		if rest != "" && strings.HasPrefix(frameMarker, rest) {
			p.buf.Reset()
			p.buf.WriteString(content[startIdx:])
			break
		}

		p.buf.Reset()
		p.buf.WriteString(rest)

		p.handleFrame(content[bodyStart:end])
	}

	return len(data), nil
}

func (p *protocolHandler) handleFrame(body string) {
	var call guest.Call
	if err := json.Unmarshal([]byte(body), &call); err != nil {
		p.log.Warn().Err(err).Str("frame", body).Msg("invalid call format")
		return
	}

	fn, ok := p.registry.Get(call.Fn)
	if !ok {
		p.log.Warn().Str("fn", call.Fn).Msg("unknown function")
		return
	}

	p.calls++
	if _, err := fn(p.ctx, call.Args); err != nil {
		p.log.Warn().Err(err).Str("fn", call.Fn).Msg("host call failed")
	}
}

// Flush writes any held-back bytes as ordinary output. A complete frame
// still held back is dispatched; an unterminated one is discarded.
func (p *protocolHandler) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	rest := p.buf.String()
	p.buf.Reset()
	if strings.HasPrefix(rest, guest.FramePrefix) {
		body := rest[len(guest.FramePrefix):]
		if end := strings.Index(body, guest.FrameSuffix); end != -1 {
			p.handleFrame(body[:end])
			p.out.WriteString(body[end+len(guest.FrameSuffix):])
			return
		}
		p.log.Warn().Int("bytes", len(rest)).Msg("unterminated frame discarded")
		return
	}
	p.out.WriteString(rest)
}

// Calls returns the number of host calls dispatched.
func (p *protocolHandler) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// partialPrefixLen returns the length of the longest suffix of s that is a
// proper prefix of the frame prefix.
func partialPrefixLen(s string) int {
	limit := min(len(guest.FramePrefix)-1, len(s))
	for n := limit; n > 0; n-- {
		if strings.HasPrefix(guest.FramePrefix, s[len(s)-n:]) {
			return n
		}
	}
	return 0
}

// output collects guest stdout and pass-through stderr. When to is set,
// bytes stream there instead of being buffered.
type output struct {
	buf bytes.Buffer
	to  io.Writer
	mu  sync.Mutex
}

func newOutput(to io.Writer) *output {
	return &output{to: to}
}

func (o *output) Write(data []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.to != nil {
		return o.to.Write(data)
	}
	return o.buf.Write(data)
}

func (o *output) WriteString(s string) {
	if s == "" {
		return
	}
	o.Write([]byte(s))
}

func (o *output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}
