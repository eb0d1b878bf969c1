// Package executor runs an embedded runtime (a WASI WebAssembly build of a
// game or app) and connects it to the host page through host functions.
//
// # Overview
//
// The executor manages wazero compilation, caching, and execution. The guest
// reaches the host by writing framed calls to stderr; everything else it
// writes to stdout or stderr is passed through as output.
//
// # Basic Usage
//
//	page := host.NewPage()
//	registry := hostfunc.NewRegistry()
//	hostfunc.NewBridge(page).Register(registry)
//
//	exec, err := executor.New(registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	g, _ := executor.LoadGuest("./build/game.wasm")
//	result := exec.Run(ctx, g)
//
// # Protocol
//
// A call is a single frame, \x00BRIDGE:{"fn":"send_exit","args":{}}\x00.
// Frames may be split across writes and interleaved with ordinary output.
// Calls are dispatched synchronously in arrival order and never answered;
// see the [github.com/caffeineduck/webbridge/guest] package for the guest
// side.
package executor
