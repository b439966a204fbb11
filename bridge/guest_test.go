package bridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wasmlua/wasmlua/engine"
	"github.com/wasmlua/wasmlua/wasmbin"
)

// The test guest is assembled directly as a wasm binary. Layout:
//
//	data  16: "greet"  24: "world"  32: "null"  40: "boom"  48: "mod"  52: "fn"
//	heap  grows from 1024; an arena that resets when all blocks are freed
//
// Exports, beyond the required memory/alloc/free:
//
//	outstanding          () -> i32        live block count, leak probe
//	str/Echo.echo        (s)s             returns a copy of its argument
//	str/Text.valueOf     (s)s             null -> the text "null", else copy
//	cb/Callback.greet    ()s              calls Lua global greet("world")
//	cb/Callback.field    ()s              calls mod.fn("world") via getfield
//	cb/Callback.try      ()s              pcalls failing global boom, returns message
const (
	heapBase = 1024

	offGreet = 16
	offWorld = 24
	offNull  = 32
	offBoom  = 40
	offMod   = 48
	offFn    = 52
)

func testGuest() []byte {
	i32 := wasmbin.I32
	i64 := wasmbin.I64

	m := wasmbin.New()
	getglobal := m.ImportFunc(HostModuleName, "getglobal", []byte{i32, i32}, []byte{i32})
	pushstring := m.ImportFunc(HostModuleName, "pushstring", []byte{i32, i32}, nil)
	pcall := m.ImportFunc(HostModuleName, "pcall", []byte{i32, i32, i32}, []byte{i32})
	tostring := m.ImportFunc(HostModuleName, "tostring", []byte{i32}, []byte{i64})
	pop := m.ImportFunc(HostModuleName, "pop", []byte{i32}, []byte{i32})
	getfield := m.ImportFunc(HostModuleName, "getfield", []byte{i32, i32, i32}, []byte{i32})
	remove := m.ImportFunc(HostModuleName, "remove", []byte{i32}, []byte{i32})

	m.Memory(1, engine.ExportMemory)
	m.Data(offGreet, []byte("greet"))
	m.Data(offWorld, []byte("world"))
	m.Data(offNull, []byte("null"))
	m.Data(offBoom, []byte("boom"))
	m.Data(offMod, []byte("mod"))
	m.Data(offFn, []byte("fn"))

	heap := m.GlobalI32(true, heapBase)
	count := m.GlobalI32(true, 0)

	alloc := m.Func(engine.ExportAlloc, []byte{i32}, []byte{i32}, nil,
		wasmbin.NewCode().
			GlobalGet(count).I32Const(1).I32Add().GlobalSet(count).
			GlobalGet(heap).
			GlobalGet(heap).LocalGet(0).I32Add().GlobalSet(heap))

	m.Func(engine.ExportFree, []byte{i32, i32}, nil, nil,
		wasmbin.NewCode().
			// Static strings from the data segments are not arena blocks.
			LocalGet(0).I32Const(heapBase).I32LtU().IfVoid().Return().End().
			GlobalGet(count).I32Const(1).I32Sub().GlobalSet(count).
			GlobalGet(count).I32Eqz().IfVoid().I32Const(heapBase).GlobalSet(heap).End())

	m.Func("outstanding", nil, []byte{i32}, nil,
		wasmbin.NewCode().GlobalGet(count))

	// dup(ptr, len) -> packed i64: a fresh arena block with a byte-for-byte
	// copy, so methods never hand their argument block back as the result
	// (the bridge frees arguments and results independently). Null in, null
	// out. Locals: 2 = new block, 3 = loop index.
	dup := m.Func("", []byte{i32, i32}, []byte{i64}, []byte{i32, i32},
		wasmbin.NewCode().
			LocalGet(0).I32Eqz().IfVoid().
			I64Const(0).Return().
			End().
			LocalGet(1).Call(alloc).LocalSet(2).
			BlockVoid().LoopVoid().
			LocalGet(3).LocalGet(1).I32GeU().BrIf(1).
			LocalGet(2).LocalGet(3).I32Add().
			LocalGet(0).LocalGet(3).I32Add().I32Load8U(0).
			I32Store8(0).
			LocalGet(3).I32Const(1).I32Add().LocalSet(3).
			Br(0).
			End().End().
			LocalGet(2).I64ExtendU().I64Const(32).I64Shl().
			LocalGet(1).I64ExtendU().I64Or())

	m.Func("str/Echo.echo", []byte{i32, i32}, []byte{i64}, nil,
		wasmbin.NewCode().
			LocalGet(0).LocalGet(1).Call(dup))

	m.Func("str/Text.valueOf", []byte{i32, i32}, []byte{i64}, nil,
		wasmbin.NewCode().
			LocalGet(0).I32Eqz().IfVoid().
			I64Const(int64(offNull)<<32|4).Return().
			End().
			LocalGet(0).LocalGet(1).Call(dup))

	m.Func("cb/Callback.greet", nil, []byte{i64}, []byte{i64},
		wasmbin.NewCode().
			I32Const(offGreet).I32Const(5).Call(getglobal).Drop().
			I32Const(offWorld).I32Const(5).Call(pushstring).
			I32Const(1).I32Const(1).I32Const(0).Call(pcall).Drop().
			I32Const(-1).Call(tostring).LocalSet(0).
			I32Const(1).Call(pop).Drop().
			LocalGet(0))

	m.Func("cb/Callback.field", nil, []byte{i64}, []byte{i64},
		wasmbin.NewCode().
			I32Const(offMod).I32Const(3).Call(getglobal).Drop().
			I32Const(-1).I32Const(offFn).I32Const(2).Call(getfield).Drop().
			I32Const(-2).Call(remove).Drop().
			I32Const(offWorld).I32Const(5).Call(pushstring).
			I32Const(1).I32Const(1).I32Const(0).Call(pcall).Drop().
			I32Const(-1).Call(tostring).LocalSet(0).
			I32Const(1).Call(pop).Drop().
			LocalGet(0))

	m.Func("cb/Callback.try", nil, []byte{i64}, []byte{i64},
		wasmbin.NewCode().
			I32Const(offBoom).I32Const(4).Call(getglobal).Drop().
			I32Const(0).I32Const(1).I32Const(0).Call(pcall).Drop().
			I32Const(-1).Call(tostring).LocalSet(0).
			I32Const(1).Call(pop).Drop().
			LocalGet(0))

	return m.Encode()
}

func writeGuest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guest.wasm")
	if err := os.WriteFile(path, testGuest(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
