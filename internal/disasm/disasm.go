// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package disasm decodes WASM bytecode into WebAssembly Text format (WAT)
// instructions, per function. It is the disassembly engine behind the
// debugger's disassemble command: when DWARF source mapping is available
// it annotates each instruction with the source file and line it maps to,
// and when it is not, the raw WAT listing is still useful on its own.
package disasm

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dotandev/wasmdbg/internal/demangle"
	"github.com/dotandev/wasmdbg/internal/errors"
	"github.com/dotandev/wasmdbg/internal/section"
)

// Instruction represents a single decoded WASM instruction within a
// function body.
type Instruction struct {
	// Offset is the absolute byte offset of this instruction within the
	// WASM module (not relative to the function body).
	Offset uint64
	// Opcode is the raw opcode byte.
	Opcode byte
	// Mnemonic is the WAT mnemonic (e.g. "i32.add", "call", "unreachable").
	Mnemonic string
	// Operands is the human-readable operand string, if any.
	Operands string
	// Size is the number of bytes this instruction occupies.
	Size int
	// SourceFile and SourceLine are populated from a SymbolResolver's line
	// table when one is supplied; they are empty/zero otherwise.
	SourceFile string
	SourceLine int
}

// String formats the instruction in WAT style, with an optional source
// annotation when line info was resolved.
func (inst *Instruction) String() string {
	text := inst.Mnemonic
	if inst.Operands != "" {
		text = fmt.Sprintf("%s %s", inst.Mnemonic, inst.Operands)
	}
	if inst.SourceFile != "" {
		return fmt.Sprintf("%s  ; %s:%d", text, inst.SourceFile, inst.SourceLine)
	}
	return text
}

// FunctionDisassembly is the decoded instruction stream of one function.
type FunctionDisassembly struct {
	FuncIndex    uint32
	Name         string
	Instructions []Instruction
}

// Format renders the function as a WAT text block, one instruction per
// line prefixed with its module offset.
func (f *FunctionDisassembly) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s (index %d)\n", f.Name, f.FuncIndex)
	for _, inst := range f.Instructions {
		fmt.Fprintf(&b, "  0x%06x: %s\n", inst.Offset, inst.String())
	}
	return b.String()
}

// SymbolResolver supplies the names and source locations a disassembler
// can annotate instructions with. internal/dwarf's Analyzer satisfies
// this; it is defined here rather than imported to avoid a dependency
// cycle between disasm and dwarf.
type SymbolResolver interface {
	FunctionName(funcIndex uint32) (string, bool)
	LineForAddress(addr uint64) (file string, line int, ok bool)
}

// Disassembler decodes the functions of a single WASM module, extracted
// ahead of time by the section package.
type Disassembler struct {
	extracted *section.Extracted
	resolver  SymbolResolver
	functions []FunctionDisassembly
	byName    map[string]int
}

// New builds a Disassembler from a module's extracted sections. resolver
// may be nil, in which case functions are named "func_<index>" and no
// source annotations are attached.
func New(extracted *section.Extracted, resolver SymbolResolver) (*Disassembler, error) {
	d := &Disassembler{extracted: extracted, resolver: resolver, byName: make(map[string]int)}

	for _, entry := range extracted.CodeEntries {
		fd, err := d.decodeFunction(entry)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", entry.FuncIndex, err)
		}
		d.byName[strings.ToLower(fd.Name)] = len(d.functions)
		d.functions = append(d.functions, fd)
	}

	return d, nil
}

func (d *Disassembler) decodeFunction(entry section.CodeEntry) (FunctionDisassembly, error) {
	name := fmt.Sprintf("func_%d", entry.FuncIndex)
	if d.resolver != nil {
		if n, ok := d.resolver.FunctionName(entry.FuncIndex); ok && n != "" {
			name = demangle.DemangleSymbol(n)
		}
	}

	body := entry.Body
	pos, err := skipLocalsDeclaration(body)
	if err != nil {
		return FunctionDisassembly{}, err
	}

	var instructions []Instruction
	for pos < len(body) {
		instOffset := uint64(entry.Offset + pos)
		opcode := body[pos]
		pos++

		mnemonic, operands, consumed := decodeOpcode(opcode, body[pos:])
		pos += consumed

		inst := Instruction{
			Offset:   instOffset,
			Opcode:   opcode,
			Mnemonic: mnemonic,
			Operands: operands,
			Size:     1 + consumed,
		}
		if d.resolver != nil {
			if file, line, ok := d.resolver.LineForAddress(instOffset); ok {
				inst.SourceFile = file
				inst.SourceLine = line
			}
		}
		instructions = append(instructions, inst)
	}

	return FunctionDisassembly{FuncIndex: entry.FuncIndex, Name: name, Instructions: instructions}, nil
}

// skipLocalsDeclaration consumes a function body's locals-declaration
// vector (a count of (count, valtype) groups) and returns the byte
// position where the instruction stream begins.
func skipLocalsDeclaration(body []byte) (int, error) {
	groupCount, n := decodeULEB128(body)
	pos := n
	for i := uint64(0); i < groupCount; i++ {
		if pos >= len(body) {
			return 0, fmt.Errorf("truncated locals declaration")
		}
		_, n := decodeULEB128(body[pos:])
		pos += n
		if pos >= len(body) {
			return 0, fmt.Errorf("truncated locals declaration")
		}
		pos++ // valtype byte
	}
	return pos, nil
}

// Function looks up a decoded function by case-insensitive name or by
// numeric index (as a decimal string).
func (d *Disassembler) Function(query string) (*FunctionDisassembly, error) {
	if idx, err := strconv.ParseUint(query, 10, 32); err == nil {
		for i := range d.functions {
			if d.functions[i].FuncIndex == uint32(idx) {
				return &d.functions[i], nil
			}
		}
		return nil, errors.WrapFunctionNotFound(query)
	}

	if i, ok := d.byName[strings.ToLower(query)]; ok {
		return &d.functions[i], nil
	}
	return nil, errors.WrapFunctionNotFound(query)
}

// Instruction returns the instruction at instrIndex within the named
// function.
func (d *Disassembler) Instruction(funcQuery string, instrIndex int) (*Instruction, error) {
	fn, err := d.Function(funcQuery)
	if err != nil {
		return nil, err
	}
	if instrIndex < 0 || instrIndex >= len(fn.Instructions) {
		return nil, errors.WrapInvalidAccess(uint64(instrIndex))
	}
	return &fn.Instructions[instrIndex], nil
}

// Functions returns every decoded function, in code-section order.
func (d *Disassembler) Functions() []FunctionDisassembly {
	return d.functions
}

// =============================================================================
// Raw flat-stream disassembly: used when no per-function extraction is
// available, e.g. the fallback path shown on an unresolved trap address.
// =============================================================================

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

const wasmVersion = 1

// WASM section IDs used by the raw flat scanner below.
const (
	sectionCode byte = 10
)

// Snippet is a window of decoded instructions around a target offset,
// used for the fallback "show me what trapped" view.
type Snippet struct {
	Instructions []Instruction
	TargetOffset uint64
	TargetIndex  int
}

// Format renders the snippet with an arrow marker on the target
// instruction.
func (s *Snippet) Format() string {
	if len(s.Instructions) == 0 {
		return "  <no instructions decoded>"
	}
	var b strings.Builder
	for i, inst := range s.Instructions {
		marker := "  "
		if i == s.TargetIndex {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s0x%04x: %s\n", marker, inst.Offset, inst.String())
	}
	return b.String()
}

// RawDisassembler decodes a module's code section as one flat operator
// stream, ignoring function boundaries. It exists purely as a
// last-resort fallback when per-function extraction has already failed
// (a module too malformed for the section package to frame cleanly).
type RawDisassembler struct {
	data []byte
}

// NewRaw creates a fallback disassembler over raw module bytes.
func NewRaw(wasmBytes []byte) *RawDisassembler {
	return &RawDisassembler{data: wasmBytes}
}

// IsValidWasm checks whether the data starts with the WASM magic number.
func (d *RawDisassembler) IsValidWasm() bool {
	if len(d.data) < 8 {
		return false
	}
	for i := 0; i < 4; i++ {
		if d.data[i] != wasmMagic[i] {
			return false
		}
	}
	version := binary.LittleEndian.Uint32(d.data[4:8])
	return version == wasmVersion
}

// DecodeAll decodes every instruction in the code section, ignoring
// function boundaries.
func (d *RawDisassembler) DecodeAll() ([]Instruction, error) {
	if !d.IsValidWasm() {
		return nil, fmt.Errorf("not a valid WASM module")
	}
	start, end, err := d.findCodeSection()
	if err != nil {
		return nil, fmt.Errorf("failed to locate code section: %w", err)
	}
	return d.decodeInstructions(start, end)
}

// DisassembleAt decodes instructions around targetOffset, returning a
// window of contextLines instructions before and after it.
func (d *RawDisassembler) DisassembleAt(targetOffset uint64, contextLines int) (*Snippet, error) {
	instructions, err := d.DecodeAll()
	if err != nil {
		return nil, err
	}
	if len(instructions) == 0 {
		return &Snippet{TargetOffset: targetOffset, TargetIndex: -1}, nil
	}

	targetIdx := -1
	for i, inst := range instructions {
		if inst.Offset == targetOffset {
			targetIdx = i
			break
		}
		if inst.Offset <= targetOffset && (i+1 >= len(instructions) || instructions[i+1].Offset > targetOffset) {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		targetIdx = 0
	}

	start := targetIdx - contextLines
	if start < 0 {
		start = 0
	}
	end := targetIdx + contextLines + 1
	if end > len(instructions) {
		end = len(instructions)
	}

	return &Snippet{
		Instructions: instructions[start:end],
		TargetOffset: targetOffset,
		TargetIndex:  targetIdx - start,
	}, nil
}

func (d *RawDisassembler) findCodeSection() (int, int, error) {
	pos := 8
	for pos < len(d.data) {
		id := d.data[pos]
		pos++
		size, n := decodeULEB128(d.data[pos:])
		pos += n
		if id == sectionCode {
			return pos, pos + int(size), nil
		}
		pos += int(size)
	}
	return 0, 0, fmt.Errorf("code section not found")
}

func (d *RawDisassembler) decodeInstructions(start, end int) ([]Instruction, error) {
	if start >= len(d.data) || end > len(d.data) || start >= end {
		return nil, fmt.Errorf("invalid byte range [%d, %d)", start, end)
	}
	pos := start
	_, n := decodeULEB128(d.data[pos:])
	pos += n

	var instructions []Instruction
	for pos < end {
		instOffset := uint64(pos)
		opcode := d.data[pos]
		pos++
		mnemonic, operands, consumed := decodeOpcode(opcode, d.data[pos:])
		pos += consumed
		instructions = append(instructions, Instruction{
			Offset:   instOffset,
			Opcode:   opcode,
			Mnemonic: mnemonic,
			Operands: operands,
			Size:     1 + consumed,
		})
	}
	return instructions, nil
}

// FormatFallback produces a user-facing fallback view when source mapping
// is unavailable: the raw WAT instructions around a failing offset.
func FormatFallback(wasmBytes []byte, failingOffset uint64, contextLines int) string {
	if contextLines <= 0 {
		contextLines = 5
	}

	d := NewRaw(wasmBytes)
	if !d.IsValidWasm() {
		return fmt.Sprintf("  Source mapping unavailable. WASM offset: 0x%x\n  (could not parse WASM module)", failingOffset)
	}

	snippet, err := d.DisassembleAt(failingOffset, contextLines)
	if err != nil {
		return fmt.Sprintf("  Source mapping unavailable. WASM offset: 0x%x\n  Disassembly error: %v", failingOffset, err)
	}

	var b strings.Builder
	b.WriteString("Source mapping unavailable. Showing WAT disassembly:\n\n")
	b.WriteString(snippet.Format())
	fmt.Fprintf(&b, "\nFailing instruction at offset 0x%x\n", failingOffset)
	return b.String()
}

// =============================================================================
// WASM opcode decoding
// =============================================================================

func decodeOpcode(opcode byte, rest []byte) (string, string, int) {
	switch opcode {
	case 0x00:
		return "unreachable", "", 0
	case 0x01:
		return "nop", "", 0
	case 0x02:
		bt, n := decodeBlockType(rest)
		return "block", bt, n
	case 0x03:
		bt, n := decodeBlockType(rest)
		return "loop", bt, n
	case 0x04:
		bt, n := decodeBlockType(rest)
		return "if", bt, n
	case 0x05:
		return "else", "", 0
	case 0x0b:
		return "end", "", 0
	case 0x0c:
		idx, n := decodeULEB128(rest)
		return "br", fmt.Sprintf("%d", idx), n
	case 0x0d:
		idx, n := decodeULEB128(rest)
		return "br_if", fmt.Sprintf("%d", idx), n
	case 0x0e:
		count, n := decodeULEB128(rest)
		consumed := n
		for i := uint64(0); i <= count; i++ {
			_, m := decodeULEB128(rest[consumed:])
			consumed += m
		}
		return "br_table", fmt.Sprintf("(count=%d)", count), consumed
	case 0x0f:
		return "return", "", 0
	case 0x10:
		idx, n := decodeULEB128(rest)
		return "call", fmt.Sprintf("$func%d", idx), n
	case 0x11:
		typeIdx, n := decodeULEB128(rest)
		_, m := decodeULEB128(rest[n:])
		return "call_indirect", fmt.Sprintf("(type %d)", typeIdx), n + m

	case 0x20:
		idx, n := decodeULEB128(rest)
		return "local.get", fmt.Sprintf("%d", idx), n
	case 0x21:
		idx, n := decodeULEB128(rest)
		return "local.set", fmt.Sprintf("%d", idx), n
	case 0x22:
		idx, n := decodeULEB128(rest)
		return "local.tee", fmt.Sprintf("%d", idx), n
	case 0x23:
		idx, n := decodeULEB128(rest)
		return "global.get", fmt.Sprintf("%d", idx), n
	case 0x24:
		idx, n := decodeULEB128(rest)
		return "global.set", fmt.Sprintf("%d", idx), n

	case 0x28:
		align, n1 := decodeULEB128(rest)
		offset, n2 := decodeULEB128(rest[n1:])
		return "i32.load", fmt.Sprintf("offset=%d align=%d", offset, align), n1 + n2
	case 0x29:
		align, n1 := decodeULEB128(rest)
		offset, n2 := decodeULEB128(rest[n1:])
		return "i64.load", fmt.Sprintf("offset=%d align=%d", offset, align), n1 + n2
	case 0x2a:
		align, n1 := decodeULEB128(rest)
		offset, n2 := decodeULEB128(rest[n1:])
		return "f32.load", fmt.Sprintf("offset=%d align=%d", offset, align), n1 + n2
	case 0x2b:
		align, n1 := decodeULEB128(rest)
		offset, n2 := decodeULEB128(rest[n1:])
		return "f64.load", fmt.Sprintf("offset=%d align=%d", offset, align), n1 + n2
	case 0x36:
		align, n1 := decodeULEB128(rest)
		offset, n2 := decodeULEB128(rest[n1:])
		return "i32.store", fmt.Sprintf("offset=%d align=%d", offset, align), n1 + n2
	case 0x37:
		align, n1 := decodeULEB128(rest)
		offset, n2 := decodeULEB128(rest[n1:])
		return "i64.store", fmt.Sprintf("offset=%d align=%d", offset, align), n1 + n2
	case 0x3f:
		_, n := decodeULEB128(rest)
		return "memory.size", "", n
	case 0x40:
		_, n := decodeULEB128(rest)
		return "memory.grow", "", n

	case 0x41:
		val, n := decodeSLEB128(rest)
		return "i32.const", fmt.Sprintf("%d", val), n
	case 0x42:
		val, n := decodeSLEB128_64(rest)
		return "i64.const", fmt.Sprintf("%d", val), n
	case 0x43:
		if len(rest) < 4 {
			return "f32.const", "?", 0
		}
		bits := binary.LittleEndian.Uint32(rest[:4])
		return "f32.const", fmt.Sprintf("%g", math.Float32frombits(bits)), 4
	case 0x44:
		if len(rest) < 8 {
			return "f64.const", "?", 0
		}
		bits := binary.LittleEndian.Uint64(rest[:8])
		return "f64.const", fmt.Sprintf("%g", math.Float64frombits(bits)), 8

	case 0x45:
		return "i32.eqz", "", 0
	case 0x46:
		return "i32.eq", "", 0
	case 0x47:
		return "i32.ne", "", 0
	case 0x48:
		return "i32.lt_s", "", 0
	case 0x49:
		return "i32.lt_u", "", 0
	case 0x4a:
		return "i32.gt_s", "", 0
	case 0x4b:
		return "i32.gt_u", "", 0
	case 0x4c:
		return "i32.le_s", "", 0
	case 0x4d:
		return "i32.le_u", "", 0
	case 0x4e:
		return "i32.ge_s", "", 0
	case 0x4f:
		return "i32.ge_u", "", 0

	case 0x50:
		return "i64.eqz", "", 0
	case 0x51:
		return "i64.eq", "", 0
	case 0x52:
		return "i64.ne", "", 0

	case 0x67:
		return "i32.clz", "", 0
	case 0x68:
		return "i32.ctz", "", 0
	case 0x69:
		return "i32.popcnt", "", 0
	case 0x6a:
		return "i32.add", "", 0
	case 0x6b:
		return "i32.sub", "", 0
	case 0x6c:
		return "i32.mul", "", 0
	case 0x6d:
		return "i32.div_s", "", 0
	case 0x6e:
		return "i32.div_u", "", 0
	case 0x6f:
		return "i32.rem_s", "", 0
	case 0x70:
		return "i32.rem_u", "", 0
	case 0x71:
		return "i32.and", "", 0
	case 0x72:
		return "i32.or", "", 0
	case 0x73:
		return "i32.xor", "", 0
	case 0x74:
		return "i32.shl", "", 0
	case 0x75:
		return "i32.shr_s", "", 0
	case 0x76:
		return "i32.shr_u", "", 0
	case 0x77:
		return "i32.rotl", "", 0
	case 0x78:
		return "i32.rotr", "", 0

	case 0x79:
		return "i64.clz", "", 0
	case 0x7a:
		return "i64.ctz", "", 0
	case 0x7c:
		return "i64.add", "", 0
	case 0x7d:
		return "i64.sub", "", 0
	case 0x7e:
		return "i64.mul", "", 0

	case 0xa7:
		return "i32.wrap_i64", "", 0
	case 0xac:
		return "i64.extend_i32_s", "", 0
	case 0xad:
		return "i64.extend_i32_u", "", 0

	case 0x1a:
		return "drop", "", 0
	case 0x1b:
		return "select", "", 0

	default:
		return fmt.Sprintf("unknown_0x%02x", opcode), "", 0
	}
}

func decodeBlockType(data []byte) (string, int) {
	if len(data) == 0 {
		return "", 0
	}
	switch data[0] {
	case 0x40:
		return "", 1
	case 0x7f:
		return "(result i32)", 1
	case 0x7e:
		return "(result i64)", 1
	case 0x7d:
		return "(result f32)", 1
	case 0x7c:
		return "(result f64)", 1
	default:
		_, n := decodeSLEB128(data)
		return "(type)", n
	}
}

func decodeULEB128(data []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i := 0; i < len(data); i++ {
		b := data[i]
		result |= uint64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			return result, i + 1
		}
	}
	return result, len(data)
}

func decodeSLEB128(data []byte) (int32, int) {
	var result int64
	var shift uint
	var b byte
	var i int
	for i = 0; i < len(data); i++ {
		b = data[i]
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 32 && b&0x40 != 0 {
		result |= -(1 << shift)
	}
	return int32(result), i + 1
}

func decodeSLEB128_64(data []byte) (int64, int) {
	var result int64
	var shift uint
	var b byte
	var i int
	for i = 0; i < len(data); i++ {
		b = data[i]
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -(1 << shift)
	}
	return result, i + 1
}
