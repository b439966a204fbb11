package bridge

import (
	"sync/atomic"

	"github.com/wasmlua/wasmlua/engine"
	"github.com/wasmlua/wasmlua/errors"
)

// Registry is the write-once-then-read-only store for the runtime handle.
// The only mutation it admits is the single null-to-non-null transition of
// Set, so Get needs no lock: the atomic publish gives readers the required
// visibility ordering. A published handle is never replaced or destroyed;
// it lives for the process lifetime.
type Registry struct {
	handle atomic.Pointer[engine.Engine]
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Get returns the runtime handle, or nil before initialization.
func (r *Registry) Get() *engine.Engine {
	return r.handle.Load()
}

// Set publishes the runtime handle. Concurrent callers race safely: exactly
// one wins, the rest get AlreadyInitialized and must dispose of their own
// handle.
func (r *Registry) Set(e *engine.Engine) error {
	if e == nil {
		return errors.InvalidInput(errors.PhaseLoad, "nil runtime handle")
	}
	if !r.handle.CompareAndSwap(nil, e) {
		return errors.AlreadyInitialized()
	}
	return nil
}
