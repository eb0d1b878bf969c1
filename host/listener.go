package host

// OnExit registers handler for the "exit" notification. The handler receives
// the event's detail flag.
func OnExit(p *Page, handler func(flag bool)) (remove func()) {
	return p.AddEventListener(EventExit, func(ev Event) {
		handler(ev.Flag())
	})
}

// OnReplay registers handler for the "replay" notification.
func OnReplay(p *Page, handler func(flag bool)) (remove func()) {
	return p.AddEventListener(EventReplay, func(ev Event) {
		handler(ev.Flag())
	})
}

// ReloadOnExit calls reload once for every exit notification whose flag is
// true. Notifications carrying false are ignored.
func ReloadOnExit(p *Page, reload func()) (remove func()) {
	return OnExit(p, func(flag bool) {
		if flag {
			reload()
		}
	})
}
