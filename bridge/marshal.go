package bridge

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/tetratelabs/wazero/api"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wasmlua/wasmlua/engine"
	"github.com/wasmlua/wasmlua/errors"
)

// callArg is one nullable string argument of an outbound call.
type callArg struct {
	s    string
	null bool
}

// parseSignature validates a "(s...)s" signature and returns the parameter
// count. The only value type this bridge carries is the nullable string.
func parseSignature(sig string) (int, error) {
	body, ok := strings.CutPrefix(sig, "(")
	if !ok {
		return 0, errors.InvalidInput(errors.PhaseResolve, fmt.Sprintf("malformed signature %q", sig))
	}
	params, ok := strings.CutSuffix(body, ")s")
	if !ok {
		return 0, errors.InvalidInput(errors.PhaseResolve, fmt.Sprintf("signature %q must return a string", sig))
	}
	for _, c := range params {
		if c != 's' {
			return 0, errors.InvalidInput(errors.PhaseResolve, fmt.Sprintf("unsupported parameter type %q in %q", c, sig))
		}
	}
	return len(params), nil
}

// invoke performs one outbound call: resolve, lower, publish, call, clear,
// reclaim, translate, lift. The step order is load-bearing; see the
// comments on the reclaim and publication steps.
func (b *Bridge) invoke(L *lua.LState, class, method, sig string, args []callArg) (lua.LValue, error) {
	eng := b.reg.Get()
	if eng == nil {
		return nil, errors.NotInitialized("runtime")
	}

	nparams, err := parseSignature(sig)
	if err != nil {
		return nil, err
	}
	if len(args) != nparams {
		return nil, errors.SignatureMismatch(class+"."+method, sig,
			fmt.Sprintf("%d arguments supplied, signature takes %d", len(args), nparams))
	}

	// The attachment and the active-state slot are OS-thread-scoped, and
	// inbound primitives resolve them by thread id, so the thread must not
	// change under us for the dynamic extent of the call.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// A nested outbound call can only arrive through a re-entrant callback
	// while another call is in flight on this thread. Checked before any
	// argument block is allocated, so the assertion never strands native
	// references. Guest-initiated nesting necessarily runs under the pcall
	// primitive, where gopher-lua recovers the panic; the guest then sees
	// the protected call fail with this message.
	if b.active.current() != nil {
		panic("wasmlua: nested outbound call on the same thread")
	}

	att, err := eng.Current(b.ctx)
	if err != nil {
		return nil, err
	}

	name := class + "." + method
	fn := att.Func(name)
	if fn == nil {
		return nil, errors.NotFound("static method", name)
	}
	if err := checkWasmType(fn.Definition(), nparams); err != nil {
		return nil, errors.SignatureMismatch(name, sig, err.Error())
	}

	// Lower arguments: nil becomes the null reference (0, 0), everything
	// else is copied into guest memory as a fresh native reference.
	stack := make([]uint64, 0, 2*nparams)
	type block struct{ ptr, length uint32 }
	blocks := make([]block, 0, len(args))
	reclaim := func() {
		// Runs unconditionally after the call, exception or not; leaked
		// argument references would accumulate across invocations.
		for _, bl := range blocks {
			if err := att.Free(b.ctx, bl.ptr, bl.length); err != nil {
				b.log.Warn("free argument block", zap.Uint32("ptr", bl.ptr), zap.Error(err))
			}
		}
	}

	for i, arg := range args {
		if arg.null {
			stack = append(stack, 0, 0)
			continue
		}
		ptr, length, err := att.NewString(b.ctx, arg.s)
		if err != nil {
			reclaim()
			return nil, errors.Wrap(errors.PhaseInvoke, errors.KindAllocation, err,
				fmt.Sprintf("convert argument %d", i+1))
		}
		blocks = append(blocks, block{ptr, length})
		stack = append(stack, uint64(ptr), uint64(length))
	}

	// Publish the interpreter state for the dynamic extent of the call so
	// guest code may re-enter through the inbound primitives, then clear
	// the slot before anything else happens on this thread.
	b.active.publish(&scriptState{L: L, att: att})
	results, callErr := fn.Call(b.ctx, stack...)
	b.active.clear()

	reclaim()

	if callErr != nil {
		// The runtime-native description goes to the diagnostic log; the
		// script caller gets a generic failure, never structured guest
		// exception data.
		b.log.Error("guest exception during call",
			zap.String("method", name),
			zap.Error(callErr))
		return nil, errors.Invocation(name, callErr)
	}

	ptr, length := engine.Unpack(results[0])
	if ptr == 0 {
		return lua.LNil, nil
	}
	s, err := att.ReadString(ptr, length)
	if freeErr := att.Free(b.ctx, ptr, length); freeErr != nil {
		b.log.Warn("free result block", zap.Uint32("ptr", ptr), zap.Error(freeErr))
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInvoke, errors.KindOutOfBounds, err, "read call result")
	}
	return lua.LString(s), nil
}

// checkWasmType verifies that a resolved export has the wasm shape implied
// by an n-string signature: 2n i32 params and one i64 result.
func checkWasmType(def api.FunctionDefinition, nparams int) error {
	params := def.ParamTypes()
	results := def.ResultTypes()

	if len(params) != 2*nparams {
		return fmt.Errorf("export takes %d wasm params, signature implies %d", len(params), 2*nparams)
	}
	for _, p := range params {
		if p != api.ValueTypeI32 {
			return fmt.Errorf("export param type %s, want i32", api.ValueTypeName(p))
		}
	}
	if len(results) != 1 || results[0] != api.ValueTypeI64 {
		return fmt.Errorf("export must return a single i64")
	}
	return nil
}
