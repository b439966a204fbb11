package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wasmlua/wasmlua/errors"
	"github.com/wasmlua/wasmlua/wasmbin"
)

// Exports every guest must provide. They are the runtime-creation entry
// points of the guest ABI: alloc/free manage transient native references in
// linear memory, and the memory itself carries all string traffic.
const (
	ExportMemory = "memory"
	ExportAlloc  = "alloc"
	ExportFree   = "free"
)

// HostFunc describes one host function exposed to guest code.
type HostFunc struct {
	Fn      api.GoModuleFunc
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// HostModule is a named group of host functions importable by the guest.
type HostModule struct {
	Name  string
	Funcs []HostFunc
}

// Config configures Open.
type Config struct {
	Logger *zap.Logger

	// LibraryPath locates the guest wasm binary.
	LibraryPath string

	// Options are opaque flags handed to the guest verbatim and
	// order-preserving, as its argv. The engine does not interpret them.
	Options []string

	// Host is instantiated before the guest so its imports resolve.
	Host HostModule
}

// Engine owns one managed runtime: a wazero runtime plus a single compiled
// guest module. Once an Engine is published process-wide it is never
// closed; the handle must stay live for the process lifetime because
// per-thread attachments and guest-held state derive from it. Close exists
// for tests and for callers that lost the publish race.
type Engine struct {
	log         *zap.Logger
	rt          wazero.Runtime
	compiled    wazero.CompiledModule
	options     []string
	attachments sync.Map // OS thread id -> *Attachment
	seq         atomic.Uint64
}

// Open loads the guest binary at cfg.LibraryPath, compiles it, registers
// cfg.Host and attaches the calling thread. The attachment step doubles as
// runtime creation: it instantiates the first guest instance.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}

	data, err := os.ReadFile(cfg.LibraryPath)
	if err != nil {
		return nil, errors.LoadFailure(fmt.Sprintf("read library %q", cfg.LibraryPath), err)
	}
	if !wasmbin.IsModule(data) {
		return nil, errors.LoadFailure(fmt.Sprintf("%q is not a wasm module", cfg.LibraryPath), nil)
	}

	rt := wazero.NewRuntime(ctx)

	// Options reach the guest as argv, which guests read through the WASI
	// args functions.
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, errors.LoadFailure("instantiate wasi module", err)
	}

	if len(cfg.Host.Funcs) > 0 {
		builder := rt.NewHostModuleBuilder(cfg.Host.Name)
		for _, f := range cfg.Host.Funcs {
			builder = builder.NewFunctionBuilder().
				WithGoModuleFunction(f.Fn, f.Params, f.Results).
				Export(f.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			rt.Close(ctx)
			return nil, errors.LoadFailure(fmt.Sprintf("instantiate host module %q", cfg.Host.Name), err)
		}
	}

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		rt.Close(ctx)
		return nil, errors.LoadFailure("compile guest module", err)
	}

	if err := checkRequiredExports(compiled); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	e := &Engine{
		log:      log,
		rt:       rt,
		compiled: compiled,
		options:  cfg.Options,
	}

	// Runtime creation: the loading thread gets the first attachment.
	if _, err := e.Current(ctx); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	log.Info("guest runtime created",
		zap.String("library", cfg.LibraryPath),
		zap.Strings("options", cfg.Options))
	return e, nil
}

func checkRequiredExports(compiled wazero.CompiledModule) error {
	fns := compiled.ExportedFunctions()
	for _, name := range []string{ExportAlloc, ExportFree} {
		if _, ok := fns[name]; !ok {
			return errors.LoadFailure(fmt.Sprintf("guest does not export %q", name), nil)
		}
	}
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		return errors.LoadFailure(fmt.Sprintf("guest does not export %q", ExportMemory), nil)
	}
	return nil
}

// Close tears the runtime down. Never call it on an Engine that has been
// published as the process-wide handle.
func (e *Engine) Close(ctx context.Context) error {
	return e.rt.Close(ctx)
}
