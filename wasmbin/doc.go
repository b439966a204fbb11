// Package wasmbin emits core WebAssembly binaries.
//
// It covers the small slice of the binary format the bridge needs: header
// sniffing for the loader and programmatic synthesis of guest modules for
// tests and examples. It is a writer, not a parser; anything beyond
// functions, one memory, i32 globals, exports, imports and active data
// segments is out of scope.
package wasmbin
