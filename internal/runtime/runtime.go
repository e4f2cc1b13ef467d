// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package runtime instantiates a WebAssembly module with wazero and
// exposes the primitives a debugger needs on top of it: calling exported
// functions, stepping, and reading or writing linear memory so the DWARF
// and memory-layout components can resolve and decode live variables.
package runtime

import (
	"context"
	"fmt"

	"github.com/dotandev/wasmdbg/internal/errors"
	"github.com/dotandev/wasmdbg/internal/logger"
	"github.com/dotandev/wasmdbg/internal/section"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// initCandidates are tried in order when running a module's init sequence.
// Most wasm32-unknown-unknown and WASI builds expose one of these; running
// none of them is not an error, since a module may need no initialization.
var initCandidates = []string{"_start", "__wasm_call_ctors", "init", "initialize"}

// stepCandidates are tried, in order, to find a function that advances
// execution by one logical unit when the caller hasn't named one.
var stepCandidates = []string{"_step", "step", "main", "_start"}

// exportNames a debugger can use to find the module's linear memory,
// preferring the conventional "memory" export.
var memoryExportPreference = []string{"memory"}

// Adapter wraps one instantiated module plus the partitioned view of its
// export space.
type Adapter struct {
	ctx      context.Context
	rt       wazero.Runtime
	compiled wazero.CompiledModule
	mod      api.Module

	functions map[string]api.Function
	globals   map[string]api.Global
	memory    api.Memory
	memName   string

	symbols SymbolResolver

	stepCounter uint64
}

// SymbolResolver is the subset of the DWARF analyzer the runtime adapter
// consults to resolve a source-level symbol to a runtime address. Defined
// locally (rather than imported from internal/dwarf) so the two packages
// don't form an import cycle: the debugger wraps *dwarf.Analyzer in a small
// adapter that implements it.
type SymbolResolver interface {
	Variable(name string) (addr uint64, typeName string, ok bool)
}

// Instantiate compiles and instantiates wasmBytes. Module-level start
// functions are never run implicitly — callers drive initialization
// explicitly via CallInitSequence so a debugger can break before it runs.
func Instantiate(ctx context.Context, wasmBytes []byte) (*Adapter, error) {
	extracted, err := section.Extract(wasmBytes)
	if err != nil {
		return nil, err
	}

	rt := wazero.NewRuntime(ctx)

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.WrapInstanceCreation(err)
	}

	modConfig := wazero.NewModuleConfig().WithStartFunctions()
	mod, err := rt.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.WrapInstanceCreation(err)
	}

	a := &Adapter{
		ctx:       ctx,
		rt:        rt,
		compiled:  compiled,
		mod:       mod,
		functions: make(map[string]api.Function),
		globals:   make(map[string]api.Global),
	}
	a.partitionExports(extracted)

	return a, nil
}

// partitionExports classifies the instance's exports into functions,
// globals, and the preferred memory, logging anything it can't use rather
// than failing instantiation over it. Global export names come from the
// section extractor: wazero.CompiledModule does not enumerate globals the
// way it does functions and memories.
func (a *Adapter) partitionExports(extracted *section.Extracted) {
	for name := range a.compiled.ExportedFunctions() {
		fn := a.mod.ExportedFunction(name)
		if fn == nil {
			logger.Logger.Warn("runtime: export listed but not resolvable", "kind", "function", "name", name)
			continue
		}
		a.functions[name] = fn
	}
	for _, exp := range extracted.Exports {
		if exp.Kind != section.ExportKindGlobal {
			continue
		}
		g := a.mod.ExportedGlobal(exp.Name)
		if g == nil {
			logger.Logger.Warn("runtime: export listed but not resolvable", "kind", "global", "name", exp.Name)
			continue
		}
		a.globals[exp.Name] = g
	}

	for _, name := range memoryExportPreference {
		if mem := a.mod.ExportedMemory(name); mem != nil {
			a.memory = mem
			a.memName = name
			break
		}
	}
	if a.memory == nil {
		for name := range a.compiled.ExportedMemories() {
			if mem := a.mod.ExportedMemory(name); mem != nil {
				a.memory = mem
				a.memName = name
				break
			}
		}
	}
}

// AttachSymbols lets the debugger wire in a DWARF analyzer after the fact,
// so ResolveSymbolAddress can consult it.
func (a *Adapter) AttachSymbols(resolver SymbolResolver) {
	a.symbols = resolver
}

// Close releases the wazero runtime and everything it owns.
func (a *Adapter) Close() error {
	return a.rt.Close(a.ctx)
}

// Call invokes an exported function by name with the given raw wasm
// argument values and returns its raw results.
func (a *Adapter) Call(name string, args ...uint64) ([]uint64, error) {
	fn, ok := a.functions[name]
	if !ok {
		return nil, errors.WrapFunctionNotFound(name)
	}
	results, err := fn.Call(a.ctx, args...)
	if err != nil {
		return nil, errors.WrapFunctionCall(name, err.Error())
	}
	return results, nil
}

// CallInitSequence runs the first recognized initialization export, if
// any. Absence of all candidates is not an error: not every module needs
// explicit initialization.
func (a *Adapter) CallInitSequence() (ran string, err error) {
	for _, name := range initCandidates {
		if _, ok := a.functions[name]; !ok {
			continue
		}
		if _, err := a.Call(name); err != nil {
			return name, err
		}
		return name, nil
	}
	return "", nil
}

// StepInstruction advances execution by invoking whichever step-shaped
// export the module provides. When no recognized export exists, the
// adapter falls back to a monotonically increasing counter so the
// debugger's state machine still has a notion of forward progress to
// report, without claiming the module itself actually executed.
func (a *Adapter) StepInstruction() (stepped string, err error) {
	for _, name := range stepCandidates {
		if _, ok := a.functions[name]; !ok {
			continue
		}
		if _, err := a.Call(name); err != nil {
			return name, err
		}
		return name, nil
	}
	a.stepCounter++
	return "", nil
}

// ReadMemory reads size bytes at addr from the module's default memory.
// Implements dwarf.MemoryReader.
func (a *Adapter) ReadMemory(addr uint64, size uint32) ([]byte, error) {
	if a.memory == nil {
		return nil, errors.WrapMemoryNotFound("module exports no memory")
	}
	bytes, ok := a.memory.Read(uint32(addr), size)
	if !ok {
		return nil, errors.WrapInvalidMemoryAccess(addr, uint64(size), uint64(a.memory.Size()))
	}
	return bytes, nil
}

// WriteMemory writes data to addr in the module's default memory.
func (a *Adapter) WriteMemory(addr uint64, data []byte) error {
	if a.memory == nil {
		return errors.WrapMemoryNotFound("module exports no memory")
	}
	if ok := a.memory.Write(uint32(addr), data); !ok {
		return errors.WrapInvalidMemoryAccess(addr, uint64(len(data)), uint64(a.memory.Size()))
	}
	return nil
}

// SnapshotMemory copies the whole current contents of the default memory.
// The copy is independent of subsequent writes to the live instance.
func (a *Adapter) SnapshotMemory() ([]byte, error) {
	if a.memory == nil {
		return nil, errors.WrapMemoryNotFound("module exports no memory")
	}
	full, ok := a.memory.Read(0, a.memory.Size())
	if !ok {
		return nil, errors.WrapInvalidMemoryAccess(0, uint64(a.memory.Size()), uint64(a.memory.Size()))
	}
	out := make([]byte, len(full))
	copy(out, full)
	return out, nil
}

// MemorySize returns the current size, in bytes, of the default memory.
func (a *Adapter) MemorySize() uint32 {
	if a.memory == nil {
		return 0
	}
	return a.memory.Size()
}

// GetGlobal returns the raw value of a mutable or immutable global export.
func (a *Adapter) GetGlobal(name string) (uint64, error) {
	g, ok := a.globals[name]
	if !ok {
		return 0, errors.WrapGlobalNotFound(name)
	}
	return g.Get(), nil
}

// SetGlobal sets a mutable global export. Attempting to set an immutable
// global reports ErrGlobalSetFailed rather than panicking, since wazero's
// api.Global only exposes Set on the api.MutableGlobal subtype.
func (a *Adapter) SetGlobal(name string, value uint64) error {
	g, ok := a.globals[name]
	if !ok {
		return errors.WrapGlobalNotFound(name)
	}
	mutable, ok := g.(api.MutableGlobal)
	if !ok {
		return errors.WrapGlobalSetFailed(name, "global is immutable")
	}
	mutable.Set(value)
	return nil
}

// GetGlobalAsI32 returns a mutable or immutable i32 global's value,
// failing with TypeMismatch if the export's declared type is something else.
func (a *Adapter) GetGlobalAsI32(name string) (int32, error) {
	g, ok := a.globals[name]
	if !ok {
		return 0, errors.WrapGlobalNotFound(name)
	}
	if g.Type() != api.ValueTypeI32 {
		return 0, errors.WrapTypeMismatch("i32", valueTypeName(g.Type()))
	}
	return api.DecodeI32(g.Get()), nil
}

// GetGlobalAsI64 returns a mutable or immutable i64 global's value,
// failing with TypeMismatch if the export's declared type is something else.
func (a *Adapter) GetGlobalAsI64(name string) (int64, error) {
	g, ok := a.globals[name]
	if !ok {
		return 0, errors.WrapGlobalNotFound(name)
	}
	if g.Type() != api.ValueTypeI64 {
		return 0, errors.WrapTypeMismatch("i64", valueTypeName(g.Type()))
	}
	return api.DecodeI64(g.Get()), nil
}

func valueTypeName(t api.ValueType) string {
	switch t {
	case api.ValueTypeI32:
		return "i32"
	case api.ValueTypeI64:
		return "i64"
	case api.ValueTypeF32:
		return "f32"
	case api.ValueTypeF64:
		return "f64"
	default:
		return fmt.Sprintf("0x%x", t)
	}
}

// GlobalNames returns the names of every exported global, for listing.
func (a *Adapter) GlobalNames() []string {
	names := make([]string, 0, len(a.globals))
	for name := range a.globals {
		names = append(names, name)
	}
	return names
}

// TableSize and TableElement are not implemented: wazero's stable
// embedder API does not expose table instances to host code (only
// call_indirect inside the guest can address one), so there is nothing
// for the adapter to read. Callers receive ErrTableNotFound rather than a
// fabricated value.
func (a *Adapter) TableSize(name string) (uint32, error) {
	return 0, errors.WrapTableNotFound(fmt.Sprintf("%s (tables are not host-readable under wazero's embedder API)", name))
}

func (a *Adapter) TableElement(name string, index uint32) (uint32, error) {
	return 0, errors.WrapTableAccessFailed(name, "tables are not host-readable under wazero's embedder API")
}

// ResolveSymbolAddress resolves a source-level symbol name to a runtime
// address, preferring the attached DWARF analyzer and falling back to a
// global export of the same name.
func (a *Adapter) ResolveSymbolAddress(name string) (uint64, error) {
	if a.symbols != nil {
		if addr, _, ok := a.symbols.Variable(name); ok {
			return addr, nil
		}
	}
	if v, err := a.GetGlobal(name); err == nil {
		return v, nil
	}
	return 0, errors.WrapVariableNotFound(name)
}

// FunctionNames returns the names of every exported function, for
// listing and resolver lookups.
func (a *Adapter) FunctionNames() []string {
	names := make([]string, 0, len(a.functions))
	for name := range a.functions {
		names = append(names, name)
	}
	return names
}

// HasMemory reports whether the instance exposed a usable default memory.
func (a *Adapter) HasMemory() bool {
	return a.memory != nil
}
