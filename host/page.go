package host

import (
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// AnyOrigin accepts delivery regardless of the page origin.
const AnyOrigin = "*"

// EventHandler receives dispatched events.
type EventHandler func(Event)

// MessageHandler receives posted messages.
type MessageHandler func(Message)

type eventListener struct {
	fn EventHandler
}

type messageListener struct {
	fn MessageHandler
}

// Page is the hosting document: an event bus plus a message channel.
type Page struct {
	origin string
	log    zerolog.Logger

	mu        sync.RWMutex
	listeners map[string][]*eventListener
	receivers []*messageListener
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithOrigin sets the page's own origin, e.g. "https://game.example.com".
// Messages with a specific target origin are only delivered on a match.
func WithOrigin(origin string) PageOption {
	return func(p *Page) {
		p.origin = normalizeOrigin(origin)
	}
}

// WithLogger sets the logger used for dropped deliveries.
func WithLogger(l zerolog.Logger) PageOption {
	return func(p *Page) {
		p.log = l
	}
}

// NewPage returns an empty page with no listeners.
func NewPage(opts ...PageOption) *Page {
	p := &Page{
		log:       zerolog.Nop(),
		listeners: make(map[string][]*eventListener),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("module", "host").Logger()
	return p
}

// Origin returns the page origin, empty when unset.
func (p *Page) Origin() string {
	return p.origin
}

// AddEventListener registers fn for events named name and returns a func
// removing it. The same fn may be registered more than once.
func (p *Page) AddEventListener(name string, fn EventHandler) (remove func()) {
	l := &eventListener{fn: fn}

	p.mu.Lock()
	p.listeners[name] = append(p.listeners[name], l)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			ls := p.listeners[name]
			for i, cur := range ls {
				if cur == l {
					p.listeners[name] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
			if len(p.listeners[name]) == 0 {
				delete(p.listeners, name)
			}
		})
	}
}

// DispatchEvent runs every listener registered for ev.Name, in registration
// order. Dispatching with no listeners is a no-op.
func (p *Page) DispatchEvent(ev Event) {
	p.mu.RLock()
	ls := append([]*eventListener(nil), p.listeners[ev.Name]...)
	p.mu.RUnlock()

	for _, l := range ls {
		l.fn(ev)
	}
}

// OnMessage registers fn for posted messages and returns a func removing it.
func (p *Page) OnMessage(fn MessageHandler) (remove func()) {
	r := &messageListener{fn: fn}

	p.mu.Lock()
	p.receivers = append(p.receivers, r)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, cur := range p.receivers {
				if cur == r {
					p.receivers = append(p.receivers[:i:i], p.receivers[i+1:]...)
					break
				}
			}
		})
	}
}

// PostMessage delivers data to every message receiver when targetOrigin
// admits this page. "*" always matches; "/" means the page's own origin.
// Any other value must equal the page origin, otherwise the message is
// dropped and logged.
func (p *Page) PostMessage(data, targetOrigin string) {
	if !p.acceptsOrigin(targetOrigin) {
		p.log.Warn().
			Str("target_origin", targetOrigin).
			Str("page_origin", p.origin).
			Msg("message dropped: target origin mismatch")
		return
	}

	p.mu.RLock()
	rs := append([]*messageListener(nil), p.receivers...)
	p.mu.RUnlock()

	msg := Message{Data: data, TargetOrigin: targetOrigin}
	for _, r := range rs {
		r.fn(msg)
	}
}

func (p *Page) acceptsOrigin(targetOrigin string) bool {
	switch targetOrigin {
	case AnyOrigin, "/":
		return true
	case "":
		return false
	}
	return p.origin != "" && normalizeOrigin(targetOrigin) == p.origin
}

// normalizeOrigin reduces a URL to scheme://host[:port], lower-cased, with
// the scheme's default port dropped.
func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(raw), "/"))
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if port := u.Port(); defaultPorts[scheme] == port {
		host = strings.TrimSuffix(host, ":"+port)
	}
	return scheme + "://" + host
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}
