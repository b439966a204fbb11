package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/wasmlua/wasmlua/errors"
)

// Attachment is one OS thread's interface to the guest runtime: a private
// guest instance plus resolved alloc/free entry points. An Attachment must
// only ever be used by the thread that obtained it, and callers must hold
// runtime.LockOSThread for the dynamic extent of that use. Attachments are
// never detached; they live as long as the Engine.
type Attachment struct {
	mod   api.Module
	alloc api.Function
	free  api.Function
	tid   int
}

// Current returns the calling OS thread's attachment. A thread already
// attached gets its cached interface back; an unattached thread is attached
// by instantiating a fresh guest instance for it. Called at the start of
// every outbound call, not only at load time, because calls may originate
// from threads other than the one that initialized the runtime.
func (e *Engine) Current(ctx context.Context) (*Attachment, error) {
	tid := unix.Gettid()
	if v, ok := e.attachments.Load(tid); ok {
		return v.(*Attachment), nil
	}
	return e.attach(ctx, tid)
}

func (e *Engine) attach(ctx context.Context, tid int) (*Attachment, error) {
	name := fmt.Sprintf("guest-%d", e.seq.Add(1))
	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithArgs(append([]string{"guest"}, e.options...)...)

	mod, err := e.rt.InstantiateModule(ctx, e.compiled, cfg)
	if err != nil {
		return nil, errors.AttachFailed(err)
	}

	att := &Attachment{
		mod:   mod,
		alloc: mod.ExportedFunction(ExportAlloc),
		free:  mod.ExportedFunction(ExportFree),
		tid:   tid,
	}
	e.attachments.Store(tid, att)

	e.log.Debug("thread attached", zap.Int("tid", tid), zap.String("instance", name))
	return att, nil
}

// Func resolves an exported guest function, or nil when absent.
func (a *Attachment) Func(name string) api.Function {
	return a.mod.ExportedFunction(name)
}

// Module exposes the underlying guest instance.
func (a *Attachment) Module() api.Module {
	return a.mod
}
