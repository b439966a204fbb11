package bridge

import (
	"sync"

	"golang.org/x/sys/unix"

	lua "github.com/yuin/gopher-lua"

	"github.com/wasmlua/wasmlua/engine"
)

// scriptState is the interpreter context published for the dynamic extent
// of one outbound call: the Lua state that issued the call and the guest
// attachment it runs against. Inbound primitives resolve it by OS thread
// id, which is sound because guest code, and therefore every inbound call,
// executes synchronously on the thread that published the state.
type scriptState struct {
	L   *lua.LState
	att *engine.Attachment
}

// activeSet holds one single-slot scriptState per OS thread. Go has no
// thread-local storage, so the slots are keyed by thread id in a sync.Map;
// the single-owner access discipline makes the per-thread invariant hold
// without further locking. This is a slot, not a stack: a thread has either
// zero or one outbound call in flight.
type activeSet struct {
	slots sync.Map // OS thread id -> *scriptState
}

// publish installs st as the calling thread's active script state. The slot
// must be empty; a nested outbound call on one thread is a bridge misuse,
// not a runtime condition, and fails the assertion.
func (a *activeSet) publish(st *scriptState) {
	tid := unix.Gettid()
	if _, loaded := a.slots.LoadOrStore(tid, st); loaded {
		panic("wasmlua: nested outbound call on the same thread")
	}
}

// clear empties the calling thread's slot. Only the outbound call that
// published the state may clear it.
func (a *activeSet) clear() {
	a.slots.Delete(unix.Gettid())
}

// current returns the calling thread's active script state, or nil when no
// outbound call is in flight on this thread.
func (a *activeSet) current() *scriptState {
	v, ok := a.slots.Load(unix.Gettid())
	if !ok {
		return nil
	}
	return v.(*scriptState)
}
