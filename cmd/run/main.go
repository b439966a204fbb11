package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wasmlua/wasmlua/bridge"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Guest wasm library to load before the script runs")
		options     = flag.String("opt", "", "Guest options (comma-separated), passed at load time")
		chunk       = flag.String("e", "", "Inline Lua chunk to run")
		verbose     = flag.Bool("v", false, "Verbose bridge logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *chunk == "" && flag.NArg() == 0 && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: run [-wasm <guest.wasm>] [-opt a,b] <script.lua>")
		fmt.Fprintln(os.Stderr, "       run [-wasm <guest.wasm>] -e 'lua chunk'")
		fmt.Fprintln(os.Stderr, "       run [-wasm <guest.wasm>] -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*wasmFile, splitOptions(*options), *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, splitOptions(*options), *chunk, flag.Args(), *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func splitOptions(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func newState(wasmFile string, options []string, verbose bool) (*lua.LState, error) {
	var opts []bridge.Option
	if verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		opts = append(opts, bridge.WithLogger(log))
	}

	L := lua.NewState()
	bridge.New(opts...).Preload(L)

	if wasmFile != "" {
		if err := L.CallByParam(lua.P{
			Fn:      L.GetGlobal("require"),
			NRet:    1,
			Protect: true,
		}, lua.LString(bridge.ModuleName)); err != nil {
			L.Close()
			return nil, fmt.Errorf("load bridge module: %w", err)
		}
		mod := L.Get(-1)
		L.Pop(1)

		// The path and options travel as Lua values rather than being
		// spliced into a chunk; arbitrary bytes in them survive.
		args := make([]lua.LValue, 0, len(options)+1)
		args = append(args, lua.LString(wasmFile))
		for _, o := range options {
			args = append(args, lua.LString(o))
		}
		if err := L.CallByParam(lua.P{
			Fn:      L.GetField(mod, "init"),
			NRet:    0,
			Protect: true,
		}, args...); err != nil {
			L.Close()
			return nil, fmt.Errorf("load guest: %w", err)
		}
	}
	return L, nil
}

func run(wasmFile string, options []string, chunk string, scripts []string, verbose bool) error {
	L, err := newState(wasmFile, options, verbose)
	if err != nil {
		return err
	}
	defer L.Close()

	if chunk != "" {
		return L.DoString(chunk)
	}
	for _, script := range scripts {
		if err := L.DoFile(script); err != nil {
			return err
		}
	}
	return nil
}
