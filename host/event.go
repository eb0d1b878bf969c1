package host

// Notification names raised by the bridge.
const (
	EventExit   = "exit"
	EventReplay = "replay"
)

// Event is a named notification with an optional boolean detail.
type Event struct {
	Name   string          `json:"name"`
	Detail map[string]bool `json:"detail,omitempty"`
}

// NewEvent returns an event whose detail carries name=flag.
func NewEvent(name string, flag bool) Event {
	return Event{Name: name, Detail: map[string]bool{name: flag}}
}

// Flag reports the detail flag keyed by the event's own name.
func (e Event) Flag() bool {
	return e.Detail[e.Name]
}

// Message is a text payload posted to the page.
type Message struct {
	Data         string `json:"data"`
	TargetOrigin string `json:"target_origin"`
}
