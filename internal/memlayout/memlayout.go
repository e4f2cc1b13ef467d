// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package memlayout decodes raw WebAssembly linear memory into typed
// values using the type catalog and variable table the DWARF analyzer
// produced, and renders the result as a visualizable memory map.
package memlayout

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dotandev/wasmdbg/internal/dwarf"
	"github.com/dotandev/wasmdbg/internal/errors"
)

// MemoryReader is the live-memory access the layout reader needs. Defined
// locally so memlayout doesn't import internal/runtime directly;
// *runtime.Adapter satisfies this structurally.
type MemoryReader interface {
	ReadMemory(addr uint64, size uint32) ([]byte, error)
}

// TypeSource is the subset of the DWARF analyzer memlayout consults to
// resolve a variable's declared type.
type TypeSource interface {
	Variables() []dwarf.Variable
	Variable(name string) (*dwarf.Variable, bool)
	Type(name string) (*dwarf.TypeDescriptor, bool)
}

// ValueKind tags the shape of a decoded TypedValue.
type ValueKind int

const (
	ValueInt ValueKind = iota
	ValueFloat
	ValueBool
	ValueChar
	ValueStruct
	ValueArray
	ValuePointer
	ValueVoid
	ValueUnknown
)

// TypedValue is the decoded, tagged representation of one piece of
// memory. Exactly one of the typed fields is meaningful, selected by Kind.
type TypedValue struct {
	Kind    ValueKind
	Int     int64
	Float   float64
	Bool    bool
	Char    rune
	Fields  map[string]TypedValue
	// FieldOrder records Fields' declaration order (desc.Fields), since Go
	// map iteration order is random and String() must render fields in the
	// order the struct declared them.
	FieldOrder []string
	Array      []TypedValue
	Pointer    uint64
}

// VariableValue is the full result of reading one named variable: its
// decoded value plus the raw bytes it was read from.
type VariableValue struct {
	Name     string
	Address  uint64
	TypeName string
	Value    TypedValue
	Size     uint64
	RawBytes []byte
}

// Layout reads typed values out of a module's linear memory using the
// type and variable catalog the DWARF analyzer built.
type Layout struct {
	mem   MemoryReader
	types TypeSource
}

// New builds a Layout over a live memory reader and a DWARF type/variable
// catalog.
func New(mem MemoryReader, types TypeSource) *Layout {
	return &Layout{mem: mem, types: types}
}

// ReadVariable reads the named variable's full value: its decoded
// TypedValue plus the exact raw bytes it occupies, both read from the
// same address/size pair so they always describe identical memory.
func (l *Layout) ReadVariable(name string) (*VariableValue, error) {
	v, ok := l.types.Variable(name)
	if !ok {
		return nil, errors.WrapVariableNotFound(name)
	}

	typ, ok := l.types.Type(v.TypeName)
	if !ok {
		if v.Type == nil {
			return nil, errors.WrapInvalidTypeInfo(v.TypeName)
		}
		typ = v.Type
	}

	size := typ.Size()
	raw, err := l.ReadBytes(v.Address, size)
	if err != nil {
		return nil, err
	}

	value, err := l.ReadTypedValue(v.Address, typ)
	if err != nil {
		return nil, err
	}

	return &VariableValue{
		Name:     name,
		Address:  v.Address,
		TypeName: v.TypeName,
		Value:    value,
		Size:     size,
		RawBytes: raw,
	}, nil
}

// ReadTypedValue recursively decodes the value at address according to
// the shape described by desc.
//
// Dispatch rules (see the memory-layout reader's contract): ints decode
// at sizes {1,2,4,8}; floats at {4,8}; bool is any non-zero byte; an
// invalid char code point decodes to NUL rather than erroring; struct
// fields decode in catalog insertion order; arrays are N consecutive
// elements; pointers are read as an unsigned integer and never
// auto-dereferenced; Unknown, Function and Void types decode to the
// ValueVoid/ValueUnknown sentinel rather than erroring.
func (l *Layout) ReadTypedValue(address uint64, desc *dwarf.TypeDescriptor) (TypedValue, error) {
	if desc == nil {
		return TypedValue{Kind: ValueUnknown}, nil
	}

	switch desc.Kind {
	case dwarf.KindPrimitiveType:
		return l.readPrimitive(address, desc)
	case dwarf.KindStructType, dwarf.KindUnionType:
		return l.readStruct(address, desc)
	case dwarf.KindArrayType:
		return l.readArray(address, desc)
	case dwarf.KindPointerType:
		v, err := l.readInt(address, desc.PointerSize, false)
		if err != nil {
			return TypedValue{}, err
		}
		return TypedValue{Kind: ValuePointer, Pointer: uint64(v)}, nil
	case dwarf.KindEnumType:
		v, err := l.readInt(address, desc.ByteSize, false)
		if err != nil {
			return TypedValue{}, err
		}
		return TypedValue{Kind: ValueInt, Int: v}, nil
	case dwarf.KindFunctionType, dwarf.KindUnknownType:
		return TypedValue{Kind: ValueVoid}, nil
	default:
		return TypedValue{Kind: ValueUnknown}, nil
	}
}

func (l *Layout) readPrimitive(address uint64, desc *dwarf.TypeDescriptor) (TypedValue, error) {
	switch desc.PrimitiveKind {
	case dwarf.KindSignedInt:
		v, err := l.readInt(address, desc.ByteSize, true)
		if err != nil {
			return TypedValue{}, err
		}
		return TypedValue{Kind: ValueInt, Int: v}, nil

	case dwarf.KindUnsignedInt:
		v, err := l.readInt(address, desc.ByteSize, false)
		if err != nil {
			return TypedValue{}, err
		}
		return TypedValue{Kind: ValueInt, Int: v}, nil

	case dwarf.KindFloat:
		switch desc.ByteSize {
		case 4:
			raw, err := l.ReadBytes(address, 4)
			if err != nil {
				return TypedValue{}, err
			}
			bits := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
			return TypedValue{Kind: ValueFloat, Float: float64(math.Float32frombits(bits))}, nil
		case 8:
			raw, err := l.ReadBytes(address, 8)
			if err != nil {
				return TypedValue{}, err
			}
			var bits uint64
			for i := 7; i >= 0; i-- {
				bits = bits<<8 | uint64(raw[i])
			}
			return TypedValue{Kind: ValueFloat, Float: math.Float64frombits(bits)}, nil
		default:
			return TypedValue{}, errors.WrapUnsupportedSize(desc.ByteSize)
		}

	case dwarf.KindBool:
		v, err := l.readInt(address, 1, false)
		if err != nil {
			return TypedValue{}, err
		}
		return TypedValue{Kind: ValueBool, Bool: v != 0}, nil

	case dwarf.KindChar:
		v, err := l.readInt(address, 1, false)
		if err != nil {
			return TypedValue{}, err
		}
		r := rune(v)
		if !validRune(r) {
			r = 0
		}
		return TypedValue{Kind: ValueChar, Char: r}, nil

	default:
		return TypedValue{Kind: ValueUnknown}, nil
	}
}

func validRune(r rune) bool {
	return r >= 0 && r <= 0x10FFFF
}

func (l *Layout) readStruct(address uint64, desc *dwarf.TypeDescriptor) (TypedValue, error) {
	fields := make(map[string]TypedValue, len(desc.Fields))
	order := make([]string, 0, len(desc.Fields))
	for _, f := range desc.Fields {
		v, err := l.ReadTypedValue(address+f.Offset, f.Type)
		if err != nil {
			return TypedValue{}, err
		}
		fields[f.Name] = v
		order = append(order, f.Name)
	}
	return TypedValue{Kind: ValueStruct, Fields: fields, FieldOrder: order}, nil
}

func (l *Layout) readArray(address uint64, desc *dwarf.TypeDescriptor) (TypedValue, error) {
	elemSize := desc.Element.Size()
	elements := make([]TypedValue, 0, desc.ElementCount)
	for i := uint64(0); i < desc.ElementCount; i++ {
		v, err := l.ReadTypedValue(address+i*elemSize, desc.Element)
		if err != nil {
			return TypedValue{}, err
		}
		elements = append(elements, v)
	}
	return TypedValue{Kind: ValueArray, Array: elements}, nil
}

// readInt reads a 1/2/4/8-byte integer at address, little-endian,
// optionally sign-extended.
func (l *Layout) readInt(address uint64, size uint64, signed bool) (int64, error) {
	switch size {
	case 1, 2, 4, 8:
	default:
		return 0, errors.WrapUnsupportedSize(size)
	}

	raw, err := l.ReadBytes(address, size)
	if err != nil {
		return 0, err
	}

	var u uint64
	for i := int(size) - 1; i >= 0; i-- {
		u = u<<8 | uint64(raw[i])
	}

	if !signed {
		return int64(u), nil
	}

	switch size {
	case 1:
		return int64(int8(u)), nil
	case 2:
		return int64(int16(u)), nil
	case 4:
		return int64(int32(u)), nil
	default:
		return int64(u), nil
	}
}

// ReadBytes reads exactly size bytes starting at address from live memory.
func (l *Layout) ReadBytes(address uint64, size uint64) ([]byte, error) {
	if size > math.MaxUint32 {
		return nil, errors.WrapUnsupportedSize(size)
	}
	raw, err := l.mem.ReadMemory(address, uint32(size))
	if err != nil {
		return nil, errors.WrapInvalidAccess(address)
	}
	return raw, nil
}

// =============================================================================
// Visualization
// =============================================================================

// Segment is one named region of memory, colored by its declared type for
// display purposes.
type Segment struct {
	Name    string `json:"name"`
	Address uint64 `json:"address"`
	Size    uint64 `json:"size"`
	Kind    string `json:"kind"`
	Color   string `json:"color"`
}

// Visualization is a renderable map of every known variable's placement
// in memory.
type Visualization struct {
	Segments  []Segment `json:"segments"`
	TotalSize uint64    `json:"total_size"`
}

var kindColors = []struct {
	contains string
	kind     string
	color    string
}{
	{"int", "integer", "#FF6B6B"},
	{"float", "float", "#4ECDC4"},
	{"double", "double", "#45B7D1"},
	{"char", "char", "#96CEB4"},
	{"bool", "boolean", "#FECA57"},
}

func classify(typeName string) (kind, color string) {
	for _, c := range kindColors {
		if containsFold(typeName, c.contains) {
			return c.kind, c.color
		}
	}
	return "unknown", "#778CA3"
}

func containsFold(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalFold(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Visualize builds a memory map over every variable the DWARF analyzer
// discovered, ordered by address.
func (l *Layout) Visualize(totalMemorySize uint64) Visualization {
	vars := l.types.Variables()
	segments := make([]Segment, 0, len(vars))
	for _, v := range vars {
		kind, color := classify(v.TypeName)
		size := uint64(0)
		if v.Type != nil {
			size = v.Type.Size()
		}
		segments = append(segments, Segment{
			Name:    v.Name,
			Address: v.Address,
			Size:    size,
			Kind:    kind,
			Color:   color,
		})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Address < segments[j].Address })

	return Visualization{Segments: segments, TotalSize: totalMemorySize}
}

// VisualizeJSON renders Visualize's result as indented JSON, matching the
// original tool's export format for its web-based memory viewer. Falls
// back to an empty object if the structure somehow fails to marshal
// (it never contains an unmarshalable type, so this path is unreachable
// in practice).
func (l *Layout) VisualizeJSON(totalMemorySize uint64) string {
	b, err := json.MarshalIndent(l.Visualize(totalMemorySize), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// String renders a TypedValue for human-readable debugger output, per
// spec.md §8's literal scenarios (e.g. "Struct{x: Int(1), y: Int(-1)}",
// "Pointer(0x110)").
func (v TypedValue) String() string {
	switch v.Kind {
	case ValueInt:
		return fmt.Sprintf("Int(%d)", v.Int)
	case ValueFloat:
		return fmt.Sprintf("Float(%g)", v.Float)
	case ValueBool:
		return fmt.Sprintf("Bool(%t)", v.Bool)
	case ValueChar:
		return fmt.Sprintf("Char(%q)", v.Char)
	case ValuePointer:
		return fmt.Sprintf("Pointer(0x%x)", v.Pointer)
	case ValueStruct:
		parts := make([]string, 0, len(v.FieldOrder))
		for _, name := range v.FieldOrder {
			parts = append(parts, fmt.Sprintf("%s: %s", name, v.Fields[name].String()))
		}
		return fmt.Sprintf("Struct{%s}", strings.Join(parts, ", "))
	case ValueArray:
		parts := make([]string, 0, len(v.Array))
		for _, elem := range v.Array {
			parts = append(parts, elem.String())
		}
		return fmt.Sprintf("Array[%s]", strings.Join(parts, ", "))
	case ValueVoid:
		return "Void"
	default:
		return "Unknown"
	}
}
