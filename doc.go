// Package webbridge hosts a WebAssembly game build and bridges it to the web
// page embedding it.
//
// # Overview
//
// The guest (a WASI build) talks to its host through three fire-and-forget
// calls: send_json forwards a JSON payload to the page's message channel,
// send_exit raises the "exit" notification and send_replay raises "replay".
// The page reacts to "exit" by reloading.
//
// # Basic Usage
//
//	page := host.NewPage(host.WithOrigin("https://game.example.com"))
//	host.ReloadOnExit(page, reload)
//	page.OnMessage(func(m host.Message) { fmt.Println(m.Data) })
//
//	registry := hostfunc.NewRegistry()
//	hostfunc.NewBridge(page).Register(registry)
//
//	exec, _ := executor.New(registry)
//	defer exec.Close()
//
//	g, _ := executor.LoadGuest("build/game.wasm")
//	result := exec.Run(ctx, g)
//
// Inside the guest:
//
//	c := guest.NewClient(os.Stderr)
//	c.SendJSON(`{"points":5}`)
//	c.SendExit()
//
// See the [executor], [hostfunc], [host], and [guest] packages for detailed
// API documentation.
package webbridge
