// Package wasmlua bridges Lua scripts and a WebAssembly guest library in
// both directions: Lua calls named guest exports with string arguments,
// and the guest re-enters the calling script through a small set of host
// primitives mirroring the Lua stack API.
//
// # Architecture Overview
//
// The module is organized into a few packages with distinct responsibilities:
//
//	wasmlua/          Root package documentation
//	├── bridge/       Lua module surface, call marshaling and re-entrancy
//	├── engine/       wazero integration: loading, per-thread attachments,
//	│                 guest memory strings
//	├── errors/       Structured error types shared across packages
//	├── wasmbin/      Minimal wasm binary writer, used to synthesize guests
//	└── cmd/run/      Script runner and interactive REPL
//
// # Quick Start
//
// Preload the bridge into a Lua state, then drive everything from Lua:
//
//	L := lua.NewState()
//	defer L.Close()
//
//	bridge.New().Preload(L)
//
//	err := L.DoString(`
//	    local vm = require("wasmlua")
//	    vm.init("guest.wasm")
//	    print(vm.call("str/Echo", "echo", "(s)s", "hello"))
//	`)
//
// # Guest ABI
//
// A guest library exports a linear memory named "memory" plus "alloc" and
// "free". Every callable method is an export named "<class>.<method>"
// taking a (ptr, len) i32 pair per string argument and returning a packed
// i64 (ptr<<32 | len). The pair (0, 0) and the packed value 0 both mean a
// null reference, which is distinct from the empty string.
//
// # Thread Model
//
// The loaded guest handle is published once per process and shared by
// every Lua state. Each OS thread gets its own guest instance on first
// use; a call pins its goroutine to the thread for the call's extent so
// re-entrant callbacks land on the Lua state that made the call.
package wasmlua
