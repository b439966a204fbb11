// Package bridge is the Lua-facing half of the bidirectional bridge.
//
// Script code loads it as a module:
//
//	local vm = require("wasmlua")
//	vm.init("/path/to/guest.wasm", "-Dkey=value")
//	print(vm.call("str/Text", "valueOf", "(s)s", "hello"))
//
// init creates the managed runtime at most once per Bridge and publishes
// the handle through a write-once registry. call invokes a static guest
// method named "<class>.<method>" whose signature "(s...)s" carries only
// nullable strings: a Lua nil argument crosses as a true null reference,
// and a null result comes back as nil.
//
// While a call is executing, the calling thread's interpreter state is
// published as the active script context, and guest code may re-enter the
// interpreter through the "lua" host module primitives (getglobal,
// getfield, pushstring, pcall, tostring, remove, pop). Invoking a
// primitive with no active context on the thread traps in the guest; it
// never aborts the process. Nested outbound calls from one thread are a
// programming error and fail an assertion before any argument is lowered;
// since guest-initiated nesting always runs under the pcall primitive, the
// guest observes it as that protected call failing.
//
// All load, resolution and invocation failures surface to the script
// caller as ordinary Lua errors after their full detail is written to the
// diagnostic logger.
package bridge
