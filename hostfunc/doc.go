// Package hostfunc provides the host functions a sandboxed WASM guest calls
// to reach the page that embeds it.
//
// # Registry
//
// The [Registry] maps guest-visible names to Go functions:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("my_func", func(ctx context.Context, args map[string]any) (any, error) {
//	    return "result", nil
//	})
//
// # Bridge
//
// [Bridge] is the outbound path from the guest to the page. It offers three
// operations, each fire-and-forget:
//
//	page := host.NewPage()
//	b := hostfunc.NewBridge(page)
//	b.Register(registry) // send_json, send_exit, send_replay
//
//	b.SendPayload(ctx, `{"points":5}`) // posted to page, origin "*"
//	b.SendExit(ctx)                    // "exit" event, detail {exit: true}
//	b.SendReplay(ctx)                  // "replay" event, detail {replay: true}
//
// Payload text is decoded only for diagnostics. Text that fails to decode
// is logged as a [PayloadDecodeError] and still forwarded unchanged.
package hostfunc
