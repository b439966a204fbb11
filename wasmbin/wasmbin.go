package wasmbin

// Value types.
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
)

// Export kinds.
const (
	kindFunc   byte = 0x00
	kindMemory byte = 0x02
)

// Section ids, in required binary order.
const (
	secType   byte = 1
	secImport byte = 2
	secFunc   byte = 3
	secMemory byte = 5
	secGlobal byte = 6
	secExport byte = 7
	secCode   byte = 10
	secData   byte = 11
)

var header = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// IsModule reports whether b starts with the core wasm magic and version.
func IsModule(b []byte) bool {
	if len(b) < len(header) {
		return false
	}
	for i, c := range header {
		if b[i] != c {
			return false
		}
	}
	return true
}

type funcType struct {
	params  []byte
	results []byte
}

type funcImport struct {
	module  string
	name    string
	typeIdx uint32
}

type localFunc struct {
	typeIdx uint32
	locals  []byte
	body    []byte
}

type global struct {
	typ     byte
	mutable bool
	init    int64
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type dataSeg struct {
	offset int32
	bytes  []byte
}

// Module accumulates a core wasm module and encodes it on demand.
// Imports come before local functions in the function index space, so
// all imports must be declared before the first Func call.
type Module struct {
	types    []funcType
	imports  []funcImport
	funcs    []localFunc
	memPages uint32
	memName  string
	globals  []global
	exports  []export
	data     []dataSeg
}

func New() *Module {
	return &Module{}
}

func (m *Module) typeIndex(params, results []byte) uint32 {
	for i, ft := range m.types {
		if bytesEqual(ft.params, params) && bytesEqual(ft.results, results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ImportFunc declares a function import and returns its function index.
func (m *Module) ImportFunc(module, name string, params, results []byte) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmbin: imports must be declared before local functions")
	}
	m.imports = append(m.imports, funcImport{
		module:  module,
		name:    name,
		typeIdx: m.typeIndex(params, results),
	})
	return uint32(len(m.imports) - 1)
}

// Func declares a local function and returns its function index. A non-empty
// exportName also exports it. locals lists extra local value types beyond
// the parameters. The terminating end opcode is appended during encoding.
func (m *Module) Func(exportName string, params, results, locals []byte, body *Code) uint32 {
	m.funcs = append(m.funcs, localFunc{
		typeIdx: m.typeIndex(params, results),
		locals:  locals,
		body:    body.buf,
	})
	idx := uint32(len(m.imports) + len(m.funcs) - 1)
	if exportName != "" {
		m.exports = append(m.exports, export{name: exportName, kind: kindFunc, idx: idx})
	}
	return idx
}

// Memory declares a linear memory with the given minimum page count,
// exported under exportName when non-empty.
func (m *Module) Memory(minPages uint32, exportName string) {
	m.memPages = minPages
	m.memName = exportName
}

// GlobalI32 declares an i32 global and returns its index.
func (m *Module) GlobalI32(mutable bool, init int32) uint32 {
	m.globals = append(m.globals, global{typ: I32, mutable: mutable, init: int64(init)})
	return uint32(len(m.globals) - 1)
}

// Data places bytes at a fixed offset in memory 0.
func (m *Module) Data(offset int32, b []byte) {
	m.data = append(m.data, dataSeg{offset: offset, bytes: b})
}

// Encode emits the module binary.
func (m *Module) Encode() []byte {
	out := append([]byte{}, header...)

	if len(m.types) > 0 {
		var s []byte
		s = appendUleb(s, uint64(len(m.types)))
		for _, ft := range m.types {
			s = append(s, 0x60)
			s = appendUleb(s, uint64(len(ft.params)))
			s = append(s, ft.params...)
			s = appendUleb(s, uint64(len(ft.results)))
			s = append(s, ft.results...)
		}
		out = appendSection(out, secType, s)
	}

	if len(m.imports) > 0 {
		var s []byte
		s = appendUleb(s, uint64(len(m.imports)))
		for _, imp := range m.imports {
			s = appendName(s, imp.module)
			s = appendName(s, imp.name)
			s = append(s, kindFunc)
			s = appendUleb(s, uint64(imp.typeIdx))
		}
		out = appendSection(out, secImport, s)
	}

	if len(m.funcs) > 0 {
		var s []byte
		s = appendUleb(s, uint64(len(m.funcs)))
		for _, fn := range m.funcs {
			s = appendUleb(s, uint64(fn.typeIdx))
		}
		out = appendSection(out, secFunc, s)
	}

	if m.memPages > 0 {
		var s []byte
		s = appendUleb(s, 1)
		s = append(s, 0x00) // limits: min only
		s = appendUleb(s, uint64(m.memPages))
		out = appendSection(out, secMemory, s)
	}

	if len(m.globals) > 0 {
		var s []byte
		s = appendUleb(s, uint64(len(m.globals)))
		for _, g := range m.globals {
			s = append(s, g.typ)
			if g.mutable {
				s = append(s, 0x01)
			} else {
				s = append(s, 0x00)
			}
			s = append(s, opI32Const)
			s = appendSleb(s, g.init)
			s = append(s, opEnd)
		}
		out = appendSection(out, secGlobal, s)
	}

	exports := m.exports
	if m.memPages > 0 && m.memName != "" {
		exports = append(exports, export{name: m.memName, kind: kindMemory, idx: 0})
	}
	if len(exports) > 0 {
		var s []byte
		s = appendUleb(s, uint64(len(exports)))
		for _, e := range exports {
			s = appendName(s, e.name)
			s = append(s, e.kind)
			s = appendUleb(s, uint64(e.idx))
		}
		out = appendSection(out, secExport, s)
	}

	if len(m.funcs) > 0 {
		var s []byte
		s = appendUleb(s, uint64(len(m.funcs)))
		for _, fn := range m.funcs {
			var entry []byte
			entry = appendUleb(entry, uint64(len(fn.locals)))
			for _, lt := range fn.locals {
				entry = appendUleb(entry, 1)
				entry = append(entry, lt)
			}
			entry = append(entry, fn.body...)
			entry = append(entry, opEnd)

			s = appendUleb(s, uint64(len(entry)))
			s = append(s, entry...)
		}
		out = appendSection(out, secCode, s)
	}

	if len(m.data) > 0 {
		var s []byte
		s = appendUleb(s, uint64(len(m.data)))
		for _, d := range m.data {
			s = append(s, 0x00) // active, memory 0
			s = append(s, opI32Const)
			s = appendSleb(s, int64(d.offset))
			s = append(s, opEnd)
			s = appendUleb(s, uint64(len(d.bytes)))
			s = append(s, d.bytes...)
		}
		out = appendSection(out, secData, s)
	}

	return out
}

func appendSection(out []byte, id byte, contents []byte) []byte {
	out = append(out, id)
	out = appendUleb(out, uint64(len(contents)))
	return append(out, contents...)
}

func appendName(out []byte, s string) []byte {
	out = appendUleb(out, uint64(len(s)))
	return append(out, s...)
}

func appendUleb(out []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func appendSleb(out []byte, v int64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
