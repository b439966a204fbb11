package bridge

import (
	"runtime"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestActiveSet_PublishClear(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	a := &activeSet{}
	if a.current() != nil {
		t.Fatal("slot must start empty")
	}

	L := lua.NewState()
	defer L.Close()

	st := &scriptState{L: L}
	a.publish(st)
	if a.current() != st {
		t.Error("current must return the published state")
	}

	a.clear()
	if a.current() != nil {
		t.Error("slot must be empty after clear")
	}
}

func TestActiveSet_NestedPublishPanics(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	a := &activeSet{}
	L := lua.NewState()
	defer L.Close()

	a.publish(&scriptState{L: L})
	defer a.clear()

	defer func() {
		if recover() == nil {
			t.Error("nested publish on one thread must fail the assertion")
		}
	}()
	a.publish(&scriptState{L: L})
}

func TestActiveSet_SlotIsThreadScoped(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	a := &activeSet{}
	L := lua.NewState()
	defer L.Close()

	a.publish(&scriptState{L: L})
	defer a.clear()

	ch := make(chan *scriptState, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		ch <- a.current()
	}()

	if st := <-ch; st != nil {
		t.Error("another thread must not observe this thread's slot")
	}
}
