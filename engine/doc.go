// Package engine hosts the managed runtime side of the bridge on wazero.
//
// An Engine is created at most once per process by the loader (Open) and
// owns the wazero runtime and the compiled guest module. Each OS thread
// that performs calls gets its own Attachment, a private guest instance
// obtained through Current; attachments are cached per thread id and never
// detached.
//
// # Guest ABI
//
// A loadable guest is a core wasm module that exports
//
//	memory                          linear memory for string traffic
//	alloc(len: i32) -> i32          allocate a block, non-zero even for len 0
//	free(ptr: i32, len: i32)        release a block from alloc
//
// Strings are lowered as (ptr, len) i32 pairs and lifted from an i64
// packing ptr<<32|len; zero is the null reference. Every block the host
// allocates for arguments, and every block a guest returns, is released by
// the host through free.
//
// wazero's wasi_snapshot_preview1 module is instantiated alongside the
// guest, so guests may import the WASI args functions to read the options
// the loader passed as argv.
//
// # Lifetime
//
// There is no unloading. Go links this package statically, so the
// self-pinning dance a dynamically loaded bridge would need does not apply;
// the equivalent obligation here is that a published Engine is never
// closed. See bridge.Registry.
package engine
