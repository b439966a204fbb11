package bridge

import (
	"context"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wasmlua/wasmlua/engine"
	"github.com/wasmlua/wasmlua/errors"
)

// ModuleName is the name the bridge registers under in package.preload.
const ModuleName = "wasmlua"

// Bridge ties one runtime handle registry, one set of per-thread script
// state slots and one logger together. A process embedding the bridge
// creates a single Bridge; its registry enforces the at-most-one-runtime
// rule for everything loaded through it.
type Bridge struct {
	reg    *Registry
	active *activeSet
	log    *zap.Logger
	ctx    context.Context
	name   string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger installs the diagnostic logger. Guest exception detail is
// written here before being translated into generic script errors.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithContext sets the context passed to guest calls. There is no
// cancellation contract: a call that has started runs to completion.
func WithContext(ctx context.Context) Option {
	return func(b *Bridge) { b.ctx = ctx }
}

// WithModuleName overrides the name the bridge registers under, for hosts
// that embed more than one bridge in a Lua state.
func WithModuleName(name string) Option {
	return func(b *Bridge) { b.name = name }
}

func New(opts ...Option) *Bridge {
	b := &Bridge{
		reg:    NewRegistry(),
		active: &activeSet{},
		log:    zap.NewNop(),
		ctx:    context.Background(),
		name:   ModuleName,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Preload registers the bridge so Lua code can require it by name.
func (b *Bridge) Preload(L *lua.LState) {
	L.PreloadModule(b.name, b.Loader)
}

// Loader is the module opener: it builds and pushes the module table.
func (b *Bridge) Loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"initialized": b.luaInitialized,
		"init":        b.luaInit,
		"call":        b.luaCall,
	})
	L.Push(mod)
	return 1
}

// initialized() -> boolean
func (b *Bridge) luaInitialized(L *lua.LState) int {
	L.Push(lua.LBool(b.reg.Get() != nil))
	return 1
}

// init(libraryPath, opt1, opt2, ...)
//
// Loads the guest runtime. Every failure raises a recoverable Lua error; a
// failed init leaves the registry empty so the caller may retry.
func (b *Bridge) luaInit(L *lua.LState) int {
	path := L.CheckString(1)
	if b.reg.Get() != nil {
		L.RaiseError("%s", errors.AlreadyInitialized())
		return 0
	}

	opts := make([]string, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		opts = append(opts, L.CheckString(i))
	}

	eng, err := engine.Open(b.ctx, engine.Config{
		Logger:      b.log,
		LibraryPath: path,
		Options:     opts,
		Host:        b.hostModule(),
	})
	if err != nil {
		b.log.Error("initialize runtime", zap.String("library", path), zap.Error(err))
		L.RaiseError("%s", err)
		return 0
	}

	if err := b.reg.Set(eng); err != nil {
		// Lost the publish race; this handle was never published, so
		// closing it is safe.
		eng.Close(b.ctx)
		L.RaiseError("%s", err)
		return 0
	}
	return 0
}

// call(className, methodName, signature, arg1, ...) -> string | nil
func (b *Bridge) luaCall(L *lua.LState) int {
	class := L.CheckString(1)
	method := L.CheckString(2)
	sig := L.CheckString(3)

	args := make([]callArg, L.GetTop()-3)
	for i := range args {
		v := L.Get(i + 4)
		if v == lua.LNil {
			args[i].null = true
		} else {
			args[i].s = L.CheckString(i + 4)
		}
	}

	res, err := b.invoke(L, class, method, sig, args)
	if err != nil {
		L.RaiseError("%s", err)
		return 0
	}
	L.Push(res)
	return 1
}
