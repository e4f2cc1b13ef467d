// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package debugger wires the section extractor, DWARF analyzer, runtime
// adapter, memory layout reader and disassembler into the single
// interactive-inspection surface a REPL front-end drives: an explicit
// state machine plus the break/run/step/continue/print/memdump/symbols/
// disassemble operations named in the external interface.
package debugger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dotandev/wasmdbg/internal/demangle"
	"github.com/dotandev/wasmdbg/internal/disasm"
	"github.com/dotandev/wasmdbg/internal/dwarf"
	"github.com/dotandev/wasmdbg/internal/errors"
	"github.com/dotandev/wasmdbg/internal/logger"
	"github.com/dotandev/wasmdbg/internal/memlayout"
	"github.com/dotandev/wasmdbg/internal/runtime"
	"github.com/dotandev/wasmdbg/internal/section"
)

// State is one of the debugger's explicit state-machine states.
type State int

const (
	Idle State = iota
	Running
	AtBreakpoint
	Stepping
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case AtBreakpoint:
		return "AtBreakpoint"
	case Stepping:
		return "Stepping"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// SymbolKind classifies one entry of the symbol table.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolGlobal
	SymbolTable
	SymbolMemory
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolGlobal:
		return "global"
	case SymbolTable:
		return "table"
	case SymbolMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Symbol is one entry of the symbol table: an export enriched, where
// possible, with the DWARF-derived address and type it was declared with.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Address  uint64
	TypeName string
	HasDwarf bool
}

// StepResult is what every state transition reports back to the REPL: the
// debugger's position plus, when a disassembly and/or DWARF line mapping
// is available, the instruction text and source location at that position.
type StepResult struct {
	State        State
	FunctionName string
	InstrIndex   int
	Offset       uint64
	Text         string
	File         string
	Line         int
	HasLine      bool
}

// Debugger is the core's single entry point: it owns the live instance and
// every derived component, and exposes exactly the operations the REPL
// front-end is specified to use.
type Debugger struct {
	rt       *runtime.Adapter
	extract  *section.Extracted
	analyzer *dwarf.Analyzer // nil when the module carries no DWARF info
	layout   *memlayout.Layout
	disasm   *disasm.Disassembler

	state       State
	funcIndex   int
	instrIndex  int
	breakpoints map[string]struct{}
}

// Load extracts, instantiates and analyzes a module, building every
// component of the debug inspection engine over it. A module with no
// .debug_info section is not an error: DWARF-dependent operations degrade
// gracefully (print/disassemble fall back to raw values/instructions).
func Load(ctx context.Context, wasmBytes []byte) (*Debugger, error) {
	extract, err := section.Extract(wasmBytes)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.Instantiate(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}

	d := &Debugger{
		rt:          rt,
		extract:     extract,
		state:       Idle,
		breakpoints: make(map[string]struct{}),
	}

	var memReader dwarf.MemoryReader
	if rt.HasMemory() {
		memReader = rt
	}
	analyzer, err := dwarf.New(extract, memReader)
	if err != nil {
		logger.Logger.Info("debugger: no usable DWARF info, continuing without source-level views", "error", err)
	} else {
		d.analyzer = analyzer
		rt.AttachSymbols(analyzerSymbols{analyzer})
	}

	if d.analyzer != nil {
		d.layout = memlayout.New(rt, d.analyzer)
		dis, err := disasm.New(extract, d.analyzer)
		if err != nil {
			return nil, err
		}
		d.disasm = dis
	} else {
		dis, err := disasm.New(extract, nil)
		if err != nil {
			return nil, err
		}
		d.disasm = dis
	}

	return d, nil
}

// analyzerSymbols adapts *dwarf.Analyzer to runtime.SymbolResolver.
type analyzerSymbols struct{ a *dwarf.Analyzer }

func (s analyzerSymbols) Variable(name string) (uint64, string, bool) {
	v, ok := s.a.Variable(name)
	if !ok {
		return 0, "", false
	}
	return v.Address, v.TypeName, true
}

// Close releases the underlying execution engine.
func (d *Debugger) Close() error {
	return d.rt.Close()
}

// State returns the debugger's current state-machine state.
func (d *Debugger) State() State { return d.state }

// Break adds name to the breakpoint set. Breakpoints are unordered and
// idempotent: adding the same name twice has no additional effect.
func (d *Debugger) Break(name string) {
	d.breakpoints[name] = struct{}{}
}

// Breakpoints returns every function name currently set as a breakpoint.
func (d *Debugger) Breakpoints() []string {
	names := make([]string, 0, len(d.breakpoints))
	for name := range d.breakpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Debugger) currentFunction() *disasm.FunctionDisassembly {
	fns := d.disasm.Functions()
	if d.funcIndex < 0 || d.funcIndex >= len(fns) {
		return nil
	}
	return &fns[d.funcIndex]
}

// isBreakpointed reports whether the function at the debugger's current
// position matches a breakpoint, per the "transition check on each entry
// into Running" rule.
func (d *Debugger) isBreakpointed() bool {
	fn := d.currentFunction()
	if fn == nil {
		return false
	}
	_, ok := d.breakpoints[fn.Name]
	return ok
}

// Run transitions Idle -> Running (or AtBreakpoint, if the entry function
// matches a breakpoint before any instruction has been stepped), invoking
// the module's init sequence first.
func (d *Debugger) Run() (StepResult, error) {
	if _, err := d.rt.CallInitSequence(); err != nil {
		d.state = Terminated
		return d.result(), err
	}

	d.funcIndex = 0
	d.instrIndex = 0

	if d.isBreakpointed() {
		d.state = AtBreakpoint
	} else {
		d.state = Running
	}
	return d.result(), nil
}

// Step advances the state machine by one instruction: it calls the
// runtime's single-step primitive, then moves the (function, instruction)
// cursor forward, rolling over into the next function on overflow.
func (d *Debugger) Step() (StepResult, error) {
	if d.state == Idle || d.state == Terminated {
		return d.result(), fmt.Errorf("debugger: cannot step from state %s", d.state)
	}

	if _, err := d.rt.StepInstruction(); err != nil {
		d.state = Terminated
		return d.result(), err
	}

	fns := d.disasm.Functions()
	d.instrIndex++
	if fn := d.currentFunction(); fn == nil || d.instrIndex >= len(fn.Instructions) {
		d.instrIndex = 0
		d.funcIndex++
		if d.funcIndex >= len(fns) {
			d.state = Terminated
			return d.result(), nil
		}
	}

	if d.isBreakpointed() {
		d.state = AtBreakpoint
	} else {
		d.state = Stepping
	}
	return d.result(), nil
}

// Continue runs Step repeatedly until a breakpoint is hit or the function
// list is exhausted. It is bounded by the module's own instruction count,
// so it always terminates even with no breakpoints set.
func (d *Debugger) Continue() (StepResult, error) {
	if d.state == Idle || d.state == Terminated {
		return d.result(), fmt.Errorf("debugger: cannot continue from state %s", d.state)
	}
	d.state = Running

	for {
		res, err := d.Step()
		if err != nil {
			return res, err
		}
		if d.state == AtBreakpoint || d.state == Terminated {
			return res, nil
		}
	}
}

// Quit transitions unconditionally to Terminated.
func (d *Debugger) Quit() {
	d.state = Terminated
}

func (d *Debugger) result() StepResult {
	res := StepResult{State: d.state, InstrIndex: d.instrIndex}
	fn := d.currentFunction()
	if fn == nil {
		return res
	}
	res.FunctionName = demangle.DemangleSymbol(fn.Name)
	if d.instrIndex >= 0 && d.instrIndex < len(fn.Instructions) {
		inst := fn.Instructions[d.instrIndex]
		res.Offset = inst.Offset
		res.Text = inst.String()
		if inst.SourceFile != "" {
			res.File = inst.SourceFile
			res.Line = inst.SourceLine
			res.HasLine = true
		}
	}
	return res
}

// Print implements the `print <name>` command: it first tries an i32
// global of that name, then a DWARF-backed named variable, and reports
// "not found" semantics via VariableNotFound otherwise.
func (d *Debugger) Print(name string) (string, error) {
	if v, err := d.rt.GetGlobalAsI32(name); err == nil {
		return fmt.Sprintf("%s = %d (global i32)", name, v), nil
	}

	if d.layout == nil {
		return "", errors.WrapVariableNotFound(name)
	}
	vv, err := d.layout.ReadVariable(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", name, vv.Value.String()), nil
}

// Memdump implements the `memdump <name> [length]` command: it resolves
// name to a runtime address and renders length bytes (default 64) as a
// hexdump, 16 bytes per line, in the form
// "0xAAAA: HH HH ... HH  |ascii|" with non-graphic bytes shown as '.'.
func (d *Debugger) Memdump(name string, length int) (string, error) {
	if length <= 0 {
		length = 64
	}

	addr, err := d.rt.ResolveSymbolAddress(name)
	if err != nil {
		return "", err
	}

	data, err := d.rt.ReadMemory(addr, uint32(length))
	if err != nil {
		return "", err
	}
	return Hexdump(addr, data), nil
}

// Hexdump renders data starting at baseAddr as lines of 16 bytes:
// "0xAAAA: HH HH ... HH  |ascii|", with non-graphic bytes rendered as '.'.
// Only interior lines of a multi-line dump are padded to 16 slots; the
// final (possibly partial) line shows exactly the bytes it has, per
// spec.md §8 scenario 2 ("memdump MEMORY_BUFFER 2" yields "0x0400: 01 00
// |..|" with no trailing padding).
func Hexdump(baseAddr uint64, data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		isLast := end >= len(data)
		if isLast {
			end = len(data)
		}
		line := data[off:end]

		fmt.Fprintf(&b, "0x%04x:", baseAddr+uint64(off))
		width := 16
		if isLast {
			width = len(line)
		}
		for i := 0; i < width; i++ {
			if i < len(line) {
				fmt.Fprintf(&b, " %02x", line[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString("  |")
		for _, c := range line {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|")
		if end < len(data) {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Symbols implements the `symbols [query]` command: it lists the exported
// functions and globals plus every DWARF variable, with the declared type
// where DWARF has one, optionally filtered by a case-insensitive substring
// of the name. Table and memory exports are not listed.
func (d *Debugger) Symbols(query string) []Symbol {
	var out []Symbol
	query = strings.ToLower(query)

	for _, name := range d.rt.FunctionNames() {
		display := demangle.DemangleSymbol(name)
		if query != "" && !strings.Contains(strings.ToLower(display), query) {
			continue
		}
		out = append(out, Symbol{Name: display, Kind: SymbolFunction})
	}
	for _, name := range d.rt.GlobalNames() {
		if query != "" && !strings.Contains(strings.ToLower(name), query) {
			continue
		}
		sym := Symbol{Name: name, Kind: SymbolGlobal}
		if d.analyzer != nil {
			if v, ok := d.analyzer.Variable(name); ok {
				sym.Address = v.Address
				sym.TypeName = v.TypeName
				sym.HasDwarf = true
			}
		}
		out = append(out, sym)
	}
	if d.analyzer != nil {
		for _, v := range d.analyzer.Variables() {
			if query != "" && !strings.Contains(strings.ToLower(v.Name), query) {
				continue
			}
			out = append(out, Symbol{
				Name: v.Name, Kind: SymbolGlobal, Address: v.Address,
				TypeName: v.TypeName, HasDwarf: true,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Disassemble implements `disassemble <function>` / `disass <index>`: the
// full instruction listing for one function, annotated with source
// locations when DWARF line info resolved them.
func (d *Debugger) Disassemble(query string) (string, error) {
	fn, err := d.disasm.Function(query)
	if err != nil {
		return "", err
	}
	return fn.Format(), nil
}
