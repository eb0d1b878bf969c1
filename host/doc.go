// Package host models the page that embeds the runtime.
//
// A [Page] owns the two surfaces the bridge talks to: a cross-context
// message channel ([Page.PostMessage], [Page.OnMessage]) and a named event
// bus ([Page.DispatchEvent], [Page.AddEventListener]). Delivery is
// synchronous and in call order.
//
//	page := host.NewPage(host.WithOrigin("https://game.example.com"))
//	host.ReloadOnExit(page, func() { ... })
//	page.OnMessage(func(m host.Message) { fmt.Println(m.Data) })
//
// Listener helpers [OnExit] and [OnReplay] unwrap the detail flag of the two
// notifications the bridge raises.
package host
