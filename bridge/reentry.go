package bridge

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wasmlua/wasmlua/engine"
	"github.com/wasmlua/wasmlua/errors"
)

// HostModuleName is the import namespace guests use for the inbound
// primitives.
const HostModuleName = "lua"

// Classic pcall status codes, kept stable across the boundary.
const (
	statusOK         = 0
	statusErrRun     = 2
	statusErrSyntax  = 3
	statusErrHandler = 5
)

// hostModule exposes the interpreter's stack primitives to guest code.
// Each primitive is a direct, synchronous passthrough to the Lua state
// published for the current outbound call; there is no buffering or
// reordering, and indices and counts cross unmodified.
func (b *Bridge) hostModule() engine.HostModule {
	i32 := api.ValueTypeI32
	i64 := api.ValueTypeI64

	return engine.HostModule{
		Name: HostModuleName,
		Funcs: []engine.HostFunc{
			{Name: "getglobal", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32}, Fn: b.luaGetGlobal},
			{Name: "getfield", Params: []api.ValueType{i32, i32, i32}, Results: []api.ValueType{i32}, Fn: b.luaGetField},
			{Name: "pushstring", Params: []api.ValueType{i32, i32}, Results: nil, Fn: b.luaPushString},
			{Name: "pcall", Params: []api.ValueType{i32, i32, i32}, Results: []api.ValueType{i32}, Fn: b.luaPCall},
			{Name: "tostring", Params: []api.ValueType{i32}, Results: []api.ValueType{i64}, Fn: b.luaToString},
			{Name: "remove", Params: []api.ValueType{i32}, Results: []api.ValueType{i32}, Fn: b.luaRemove},
			{Name: "pop", Params: []api.ValueType{i32}, Results: []api.ValueType{i32}, Fn: b.luaPop},
		},
	}
}

// require returns the calling thread's active script state. Outside the
// dynamic extent of an outbound call there is nothing to operate on; the
// panic becomes a trap in the guest's own error model, it never aborts the
// process.
func (b *Bridge) require(primitive string) *scriptState {
	st := b.active.current()
	if st == nil {
		err := errors.NoActiveState(primitive)
		b.log.Warn("inbound primitive rejected", zap.String("primitive", primitive))
		panic(err)
	}
	return st
}

// readMem reads a guest-supplied string out of the caller's memory.
func readMem(mod api.Module, ptr, length uint32) string {
	if length == 0 {
		return ""
	}
	b, ok := mod.Memory().Read(ptr, length)
	if !ok {
		panic(errors.Wrap(errors.PhaseReenter, errors.KindOutOfBounds, nil,
			"string argument outside guest memory"))
	}
	return string(b)
}

// getglobal(name) -> type code of the pushed value
func (b *Bridge) luaGetGlobal(_ context.Context, mod api.Module, stack []uint64) {
	st := b.require("getglobal")
	name := readMem(mod, uint32(stack[0]), uint32(stack[1]))

	v := st.L.GetGlobal(name)
	st.L.Push(v)
	stack[0] = uint64(uint32(int32(v.Type())))
}

// getfield(index, name) -> type code of the pushed value
func (b *Bridge) luaGetField(_ context.Context, mod api.Module, stack []uint64) {
	st := b.require("getfield")
	idx := int(int32(uint32(stack[0])))
	name := readMem(mod, uint32(stack[1]), uint32(stack[2]))

	v := st.L.GetField(st.L.Get(idx), name)
	st.L.Push(v)
	stack[0] = uint64(uint32(int32(v.Type())))
}

// pushstring(value)
func (b *Bridge) luaPushString(_ context.Context, mod api.Module, stack []uint64) {
	st := b.require("pushstring")
	st.L.Push(lua.LString(readMem(mod, uint32(stack[0]), uint32(stack[1]))))
}

// pcall(nargs, nresults, msgh) -> status
//
// On failure the error value is pushed, as the C API does, and the status
// reflects the interpreter's own error class.
func (b *Bridge) luaPCall(_ context.Context, _ api.Module, stack []uint64) {
	st := b.require("pcall")
	nargs := int(int32(uint32(stack[0])))
	nresults := int(int32(uint32(stack[1])))
	msgh := int(int32(uint32(stack[2])))

	var errFn *lua.LFunction
	if msgh != 0 {
		if f, ok := st.L.Get(msgh).(*lua.LFunction); ok {
			errFn = f
		}
	}

	status := statusOK
	if err := st.L.PCall(nargs, nresults, errFn); err != nil {
		if ae, ok := err.(*lua.ApiError); ok {
			status = apiErrorStatus(ae.Type)
			st.L.Push(ae.Object)
		} else {
			status = statusErrRun
			st.L.Push(lua.LString(err.Error()))
		}
	}
	stack[0] = uint64(uint32(int32(status)))
}

func apiErrorStatus(t lua.ApiErrorType) int {
	switch t {
	case lua.ApiErrorSyntax:
		return statusErrSyntax
	case lua.ApiErrorError:
		return statusErrHandler
	default:
		return statusErrRun
	}
}

// tostring(index) -> packed guest string, or the null packing for values
// with no string form. The result block is allocated with the guest's own
// allocator; ownership passes to guest code, and whoever hands it back to
// the bridge as a call result gets it reclaimed like any other reference.
func (b *Bridge) luaToString(ctx context.Context, _ api.Module, stack []uint64) {
	st := b.require("tostring")
	idx := int(int32(uint32(stack[0])))

	var s string
	switch v := st.L.Get(idx).(type) {
	case lua.LString:
		s = string(v)
	case lua.LNumber:
		s = v.String()
	default:
		stack[0] = 0
		return
	}

	ptr, length, err := st.att.NewString(ctx, s)
	if err != nil {
		panic(err)
	}
	stack[0] = engine.Pack(ptr, length)
}

// remove(index) -> new top
func (b *Bridge) luaRemove(_ context.Context, _ api.Module, stack []uint64) {
	st := b.require("remove")
	st.L.Remove(int(int32(uint32(stack[0]))))
	stack[0] = uint64(uint32(int32(st.L.GetTop())))
}

// pop(n) -> new top
func (b *Bridge) luaPop(_ context.Context, _ api.Module, stack []uint64) {
	st := b.require("pop")
	st.L.Pop(int(int32(uint32(stack[0]))))
	stack[0] = uint64(uint32(int32(st.L.GetTop())))
}
