// Package sandbox owns a single WASM module instance: compilation against a
// configured store, structured reads/writes into the guest's linear memory,
// export invocation, and fuel accounting. It is the host-side primitive that
// internal/engine and internal/agent build their typed facades on top of.
package sandbox

import (
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v15"
)

// LogSink receives UTF-8 lines written by the guest through the always-
// importable debug.debug_log host function.
type LogSink func(line string)

// ctorExportNames lists the guest constructor exports the host tries, in
// preference order, right after instantiation.
var ctorExportNames = []string{"_initialize", "__wasm_call_ctors"}

// MissingExportError is returned when a required export is absent from the
// guest module. It is always fatal to sandbox construction.
type MissingExportError struct {
	Name string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("sandbox: missing export %q", e.Name)
}

// TrapError wraps a trap (or other guest-side failure) raised while invoking
// a named export. Once returned, the Sandbox is latched: every subsequent
// Call is a no-op returning ErrTrapped.
type TrapError struct {
	Name string
	Err  error
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("sandbox: call to %q trapped: %v", e.Name, e.Err)
}

func (e *TrapError) Unwrap() error { return e.Err }

// Options configures a Sandbox at instantiation time.
type Options struct {
	// WASI supplies a default WASI environment (stdout/stderr inherited, no
	// filesystem preopens) when true.
	WASI bool
	// FuelEnabled turns on wasmtime's fuel-metering engine feature. When
	// true, InitialFuel is loaded into the store before any guest code runs.
	FuelEnabled bool
	InitialFuel uint64
	// MemoryLimitBytes caps the guest's linear memory, enforced by the
	// store's resource limiter. Zero or negative means no limit.
	MemoryLimitBytes int64
	// LogSink receives lines written via debug.debug_log. Defaults to a
	// no-op sink if nil.
	LogSink LogSink
}

// Sandbox owns one WASM module instance: its store, linear memory, and the
// set of exports the owning binding has required. A Sandbox does not recover
// from a trap — once Trapped() is true, Call is a permanent no-op.
type Sandbox struct {
	engine   *wasmtime.Engine
	store    *wasmtime.Store
	instance *wasmtime.Instance
	memory   *wasmtime.Memory
	fuelOn   bool
	trapped  bool
	exports  map[string]*wasmtime.Func
}

// Instantiate compiles wasmBytes, instantiates it against a fresh store
// configured per opts, and — if the module exports _initialize or
// __wasm_call_ctors, in that preference order — invokes it once. Any failure
// here (bad bytes, missing linear memory, a constructor trap) is fatal and
// returned as an error; it is the caller's job to decide whether that is a
// ConstructionError (fatal to the whole match) or something to latch.
func Instantiate(wasmBytes []byte, opts Options) (*Sandbox, error) {
	cfg := wasmtime.NewConfig()
	cfg.SetConsumeFuel(opts.FuelEnabled)
	engine := wasmtime.NewEngineWithConfig(cfg)

	store := wasmtime.NewStore(engine)
	if opts.FuelEnabled {
		if err := store.SetFuel(opts.InitialFuel); err != nil {
			return nil, fmt.Errorf("sandbox: set initial fuel: %w", err)
		}
	}
	if opts.MemoryLimitBytes > 0 {
		store.Limiter(opts.MemoryLimitBytes, -1, -1, -1, -1)
	}

	logSink := opts.LogSink
	if logSink == nil {
		logSink = func(string) {}
	}

	linker := wasmtime.NewLinker(engine)
	if opts.WASI {
		wasiConfig := wasmtime.NewWasiConfig()
		wasiConfig.InheritStdout()
		wasiConfig.InheritStderr()
		store.SetWasi(wasiConfig)
		if err := linker.DefineWasi(); err != nil {
			return nil, fmt.Errorf("sandbox: define wasi: %w", err)
		}
	}

	if err := linker.FuncWrap("debug", "debug_log", func(caller *wasmtime.Caller, ptr, length int32) {
		if ptr < 0 || length < 0 {
			return
		}
		ext := caller.GetExport("memory")
		if ext == nil || ext.Memory() == nil {
			return
		}
		mem := ext.Memory().UnsafeData(caller)
		if int(ptr)+int(length) > len(mem) {
			return
		}
		logSink(string(mem[ptr : ptr+length]))
	}); err != nil {
		return nil, fmt.Errorf("sandbox: define debug.debug_log: %w", err)
	}

	module, err := wasmtime.NewModule(engine, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("sandbox: compile module: %w", err)
	}

	instance, err := linker.Instantiate(store, module)
	if err != nil {
		return nil, fmt.Errorf("sandbox: instantiate module: %w", err)
	}

	memExport := instance.GetExport(store, "memory")
	if memExport == nil || memExport.Memory() == nil {
		return nil, fmt.Errorf("sandbox: module does not export linear memory")
	}

	sb := &Sandbox{
		engine:   engine,
		store:    store,
		instance: instance,
		memory:   memExport.Memory(),
		fuelOn:   opts.FuelEnabled,
		exports:  make(map[string]*wasmtime.Func),
	}

	for _, name := range ctorExportNames {
		fn := instance.GetFunc(store, name)
		if fn == nil {
			continue
		}
		if _, err := fn.Call(store); err != nil {
			return nil, fmt.Errorf("sandbox: constructor export %q trapped: %w", name, err)
		}
		break
	}

	return sb, nil
}

// RequireExports verifies that every named export exists on the module and
// caches the function references for later Call invocations. Called once by
// a binding right after Instantiate so that a missing export fails
// construction rather than surfacing lazily on first use.
func (s *Sandbox) RequireExports(names ...string) error {
	for _, name := range names {
		fn := s.instance.GetFunc(s.store, name)
		if fn == nil {
			return &MissingExportError{Name: name}
		}
		s.exports[name] = fn
	}
	return nil
}

// ErrTrapped is returned by Call once the sandbox has latched.
var ErrTrapped = fmt.Errorf("sandbox: already trapped")

// Call invokes a previously-required export. If the sandbox is already
// trapped, it returns ErrTrapped without entering the guest. If the call
// itself traps, the sandbox latches and the error is wrapped in a TrapError.
func (s *Sandbox) Call(name string, args ...any) (any, error) {
	if s.trapped {
		return nil, ErrTrapped
	}
	fn, ok := s.exports[name]
	if !ok {
		return nil, &MissingExportError{Name: name}
	}
	res, err := fn.Call(s.store, args...)
	if err != nil {
		s.trapped = true
		return nil, &TrapError{Name: name, Err: err}
	}
	return res, nil
}

// Trapped reports whether the sandbox has latched due to a prior trap.
func (s *Sandbox) Trapped() bool { return s.trapped }

// ReadPacked unpacks a little-endian record out of guest memory at ptr.
// Memory reads after a trap are still safe but undefined in value — this
// never re-enters the guest.
func (s *Sandbox) ReadPacked(format string, ptr uint32) ([]any, error) {
	return ReadPacked(s.memory.UnsafeData(s.store), format, ptr)
}

// WritePacked packs values into guest memory at ptr, little-endian.
func (s *Sandbox) WritePacked(format string, ptr uint32, values ...any) error {
	return WritePacked(s.memory.UnsafeData(s.store), format, ptr, values...)
}

// Fuel returns the fuel remaining in the store. Only meaningful when the
// sandbox was instantiated with FuelEnabled.
func (s *Sandbox) Fuel() (uint64, error) {
	if !s.fuelOn {
		return 0, fmt.Errorf("sandbox: fuel metering not enabled")
	}
	return s.store.GetFuel()
}

// SetFuel resets the store's remaining fuel. Only meaningful when the
// sandbox was instantiated with FuelEnabled.
func (s *Sandbox) SetFuel(n uint64) error {
	if !s.fuelOn {
		return fmt.Errorf("sandbox: fuel metering not enabled")
	}
	return s.store.SetFuel(n)
}

// FuelEnabled reports whether this sandbox's store meters fuel.
func (s *Sandbox) FuelEnabled() bool { return s.fuelOn }
