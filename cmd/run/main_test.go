package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wasmlua/wasmlua/engine"
	"github.com/wasmlua/wasmlua/wasmbin"
)

func testGuest() []byte {
	m := wasmbin.New()
	m.Memory(1, engine.ExportMemory)
	heap := m.GlobalI32(true, 1024)

	m.Func(engine.ExportAlloc, []byte{wasmbin.I32}, []byte{wasmbin.I32}, nil,
		wasmbin.NewCode().
			GlobalGet(heap).
			GlobalGet(heap).LocalGet(0).I32Add().GlobalSet(heap))
	m.Func(engine.ExportFree, []byte{wasmbin.I32, wasmbin.I32}, nil, nil,
		wasmbin.NewCode())

	return m.Encode()
}

func TestNewState_NonASCIIPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ライブラリ-é.wasm")
	if err := os.WriteFile(path, testGuest(), 0o644); err != nil {
		t.Fatal(err)
	}

	L, err := newState(path, []string{"-Dkey=value"}, false)
	if err != nil {
		t.Fatalf("newState: %v", err)
	}
	defer L.Close()

	if err := L.DoString(`assert(require("wasmlua").initialized())`); err != nil {
		t.Fatal(err)
	}
}

func TestNewState_NoGuest(t *testing.T) {
	L, err := newState("", nil, false)
	if err != nil {
		t.Fatalf("newState: %v", err)
	}
	defer L.Close()

	if err := L.DoString(`assert(require("wasmlua").initialized() == false)`); err != nil {
		t.Fatal(err)
	}
}
