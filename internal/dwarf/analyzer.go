// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package dwarf extracts program-level debug information — types,
// variables, function names and the address-to-source-line mapping — from
// a module's DWARF custom sections, and evaluates DWARF location
// expressions against the runtime adapter to resolve variable addresses.
package dwarf

import (
	stddwarf "debug/dwarf"
	"encoding/binary"
	"fmt"

	"github.com/dotandev/wasmdbg/internal/demangle"
	"github.com/dotandev/wasmdbg/internal/errors"
	"github.com/dotandev/wasmdbg/internal/logger"
	"github.com/dotandev/wasmdbg/internal/section"
)

// PrimitiveKind distinguishes the primitive type kinds the memory-layout
// reader needs when decoding raw bytes.
type PrimitiveKind int

const (
	KindSignedInt PrimitiveKind = iota
	KindUnsignedInt
	KindFloat
	KindBool
	KindChar
)

// TypeKind is the shape of a type descriptor.
type TypeKind int

const (
	KindPrimitiveType TypeKind = iota
	KindStructType
	KindArrayType
	KindPointerType
	KindUnionType
	KindEnumType
	KindFunctionType
	KindUnknownType
)

// Field is one member of a struct or union type.
type Field struct {
	Name   string
	Offset uint64
	Type   *TypeDescriptor
}

// TypeDescriptor is a recursive description of a DWARF type. Forward
// references are tolerated: a placeholder of KindUnknownType is registered
// under the referencing offset before recursion, and patched in place once
// the referenced DIE is visited. Struct members that point back at their
// own struct therefore resolve to the same descriptor value rather than
// recursing forever.
type TypeDescriptor struct {
	Kind          TypeKind
	Name          string
	PrimitiveKind PrimitiveKind
	ByteSize      uint64
	Fields        []Field
	Element       *TypeDescriptor
	ElementCount  uint64
	PointerSize   uint64
}

// Size returns the descriptor's byte size, computed from its shape.
// Descriptors without a declared size return 0.
func (t *TypeDescriptor) Size() uint64 {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case KindPrimitiveType, KindStructType, KindUnionType, KindEnumType:
		return t.ByteSize
	case KindArrayType:
		return t.ElementCount * t.Element.Size()
	case KindPointerType:
		return t.PointerSize
	default:
		return 0
	}
}

// Variable is one DWARF variable or formal-parameter entry with its
// resolved address.
type Variable struct {
	Name     string
	Address  uint64
	TypeName string
	Type     *TypeDescriptor
}

// SourceLine is one entry of the address to source mapping.
type SourceLine struct {
	File string
	Line int
}

// MemoryReader is the subset of the runtime adapter the location evaluator
// needs: the ability to read live linear memory while resolving a
// DW_OP_deref (or similar memory-dependent) operator.
type MemoryReader interface {
	ReadMemory(addr uint64, size uint32) ([]byte, error)
}

// Analyzer holds the parsed DWARF debug information for one module.
type Analyzer struct {
	data *stddwarf.Data
	mem  MemoryReader

	types    map[string]*TypeDescriptor
	byOffset map[stddwarf.Offset]*TypeDescriptor

	variables []Variable
	funcNames map[uint32]string
	lineMap   map[uint64]SourceLine
}

// New parses the debug sections extracted by the section package. mem may
// be nil; in that case, a location expression that requires a memory read
// leaves the owning variable's address at 0 rather than failing the whole
// analysis (spec: "a single variable whose location cannot be resolved is
// recorded with address 0 rather than poisoning the whole analysis").
func New(extracted *section.Extracted, mem MemoryReader) (*Analyzer, error) {
	if len(extracted.DebugSections["info"]) == 0 {
		return nil, errors.WrapMissingInfo("module carries no .debug_info section")
	}

	data, err := stddwarf.New(
		extracted.DebugSections["abbrev"],
		nil,
		nil,
		extracted.DebugSections["info"],
		extracted.DebugSections["line"],
		nil,
		extracted.DebugSections["ranges"],
		extracted.DebugSections["str"],
	)
	if err != nil {
		return nil, errors.WrapInvalidSection(fmt.Sprintf("debug/dwarf: %v", err))
	}
	if types := extracted.DebugSections["types"]; len(types) > 0 {
		if err := data.AddTypes(".debug_types", types); err != nil {
			logger.Logger.Warn("dwarf: failed to add .debug_types section", "error", err)
		}
	}

	a := &Analyzer{
		data:      data,
		mem:       mem,
		types:     make(map[string]*TypeDescriptor),
		byOffset:  make(map[stddwarf.Offset]*TypeDescriptor),
		funcNames: make(map[uint32]string),
		lineMap:   make(map[uint64]SourceLine),
	}

	if err := a.walk(); err != nil {
		return nil, err
	}
	a.buildLineMap()

	return a, nil
}

// walk performs a single depth-first pass over every compilation unit's
// DIE tree, dispatching on tag. A DIE whose tag isn't one this analyzer
// understands is logged and skipped rather than treated as an error —
// debug info from an unfamiliar compiler front end should degrade the
// catalog, not abort analysis.
func (a *Analyzer) walk() error {
	reader := a.data.Reader()
	var funcIdx uint32
	for {
		entry, err := reader.Next()
		if err != nil {
			return errors.WrapParseError(fmt.Sprintf("dwarf entry: %v", err))
		}
		if entry == nil {
			break
		}

		switch entry.Tag {
		case stddwarf.TagVariable, stddwarf.TagFormalParameter:
			a.processVariable(entry)
		case stddwarf.TagStructType:
			a.processStructOrUnion(entry, reader, KindStructType)
		case stddwarf.TagUnionType:
			a.processStructOrUnion(entry, reader, KindUnionType)
		case stddwarf.TagBaseType:
			a.processBaseType(entry)
		case stddwarf.TagArrayType:
			a.processArrayType(entry, reader)
		case stddwarf.TagPointerType:
			a.processPointerType(entry)
		case stddwarf.TagEnumerationType:
			a.processEnumType(entry, reader)
		case stddwarf.TagSubprogram:
			a.processSubprogram(entry, reader, funcIdx)
			funcIdx++
		default:
			if entry.Tag != 0 && entry.Tag != stddwarf.TagCompileUnit {
				logger.Logger.Debug("dwarf: skipping unhandled DIE", "tag", entry.Tag.String())
			}
		}
	}
	return nil
}

func (a *Analyzer) processVariable(entry *stddwarf.Entry) {
	name, ok := entry.Val(stddwarf.AttrName).(string)
	if !ok || name == "" {
		return
	}

	typeName := "<unknown>"
	var typeDesc *TypeDescriptor
	if off, ok := entry.Val(stddwarf.AttrType).(stddwarf.Offset); ok {
		typeDesc = a.resolveTypeOffset(off)
		if typeDesc.Name != "" {
			typeName = typeDesc.Name
		}
	}

	var address uint64
	if loc, ok := entry.Val(stddwarf.AttrLocation).([]byte); ok {
		addr, err := a.evaluateLocation(loc)
		if err != nil {
			logger.Logger.Debug("dwarf: location evaluation failed, recording address 0",
				"variable", name, "error", err)
		} else {
			address = addr
		}
	}

	a.variables = append(a.variables, Variable{
		Name:     name,
		Address:  address,
		TypeName: typeName,
		Type:     typeDesc,
	})
}

func (a *Analyzer) processStructOrUnion(entry *stddwarf.Entry, reader *stddwarf.Reader, kind TypeKind) *TypeDescriptor {
	desc := a.placeholderFor(entry.Offset)
	desc.Kind = kind
	if name, ok := entry.Val(stddwarf.AttrName).(string); ok {
		desc.Name = name
	}
	if size, ok := entry.Val(stddwarf.AttrByteSize).(int64); ok {
		desc.ByteSize = uint64(size)
	}

	if entry.Children {
		for {
			child, err := reader.Next()
			if err != nil || child == nil || child.Tag == 0 {
				break
			}
			if child.Tag == stddwarf.TagMember {
				desc.Fields = append(desc.Fields, a.memberField(child))
			}
			if child.Children {
				reader.SkipChildren()
			}
		}
	}

	if desc.Name != "" {
		a.types[desc.Name] = desc
	}
	return desc
}

func (a *Analyzer) memberField(entry *stddwarf.Entry) Field {
	name, _ := entry.Val(stddwarf.AttrName).(string)

	var fieldType *TypeDescriptor
	if off, ok := entry.Val(stddwarf.AttrType).(stddwarf.Offset); ok {
		fieldType = a.resolveTypeOffset(off)
	} else {
		fieldType = &TypeDescriptor{Kind: KindUnknownType}
	}

	return Field{Name: name, Offset: dataMemberOffset(entry), Type: fieldType}
}

// dataMemberOffset reads DW_AT_data_member_location, which compilers emit
// either as a plain constant or as a one-operator location expression
// (DW_OP_plus_uconst N).
func dataMemberOffset(entry *stddwarf.Entry) uint64 {
	switch v := entry.Val(stddwarf.AttrDataMemberLoc).(type) {
	case int64:
		return uint64(v)
	case []byte:
		if len(v) >= 1 && v[0] == dwOpPlusUconst {
			off, _ := decodeULEB128(v[1:])
			return off
		}
	}
	return 0
}

func (a *Analyzer) processBaseType(entry *stddwarf.Entry) *TypeDescriptor {
	desc := a.placeholderFor(entry.Offset)
	desc.Kind = KindPrimitiveType
	if name, ok := entry.Val(stddwarf.AttrName).(string); ok {
		desc.Name = name
	}
	if size, ok := entry.Val(stddwarf.AttrByteSize).(int64); ok {
		desc.ByteSize = uint64(size)
	}
	encoding, _ := entry.Val(stddwarf.AttrEncoding).(int64)
	desc.PrimitiveKind = primitiveKindFromEncoding(encoding)

	if desc.Name != "" {
		a.types[desc.Name] = desc
	}
	return desc
}

// DW_ATE_* encoding constants (DWARF spec, §7.8); debug/dwarf exposes the
// attribute (AttrEncoding) but not these values.
const (
	dwAteAddress     = 0x1
	dwAteBoolean     = 0x2
	dwAteFloat       = 0x4
	dwAteSigned      = 0x5
	dwAteSignedChar  = 0x6
	dwAteUnsigned    = 0x7
	dwAteUnsignedChar = 0x8
)

func primitiveKindFromEncoding(encoding int64) PrimitiveKind {
	switch encoding {
	case dwAteSigned, dwAteSignedChar:
		return KindSignedInt
	case dwAteUnsigned, dwAteUnsignedChar:
		return KindUnsignedInt
	case dwAteFloat:
		return KindFloat
	case dwAteBoolean:
		return KindBool
	case dwAteAddress:
		return KindUnsignedInt
	default:
		return KindSignedInt
	}
}

func (a *Analyzer) processArrayType(entry *stddwarf.Entry, reader *stddwarf.Reader) *TypeDescriptor {
	desc := a.placeholderFor(entry.Offset)
	desc.Kind = KindArrayType
	if name, ok := entry.Val(stddwarf.AttrName).(string); ok {
		desc.Name = name
	}
	if off, ok := entry.Val(stddwarf.AttrType).(stddwarf.Offset); ok {
		desc.Element = a.resolveTypeOffset(off)
	}

	if entry.Children {
		for {
			child, err := reader.Next()
			if err != nil || child == nil || child.Tag == 0 {
				break
			}
			if child.Tag == stddwarf.TagSubrangeType {
				if v, ok := child.Val(stddwarf.AttrCount).(int64); ok {
					desc.ElementCount = uint64(v)
				} else if v, ok := child.Val(stddwarf.AttrUpperBound).(int64); ok {
					desc.ElementCount = uint64(v) + 1
				}
			}
			if child.Children {
				reader.SkipChildren()
			}
		}
	}

	if desc.Name != "" {
		a.types[desc.Name] = desc
	}
	return desc
}

// defaultPointerSize is the address width of the wasm32 target, used when
// a pointer_type DIE carries no explicit byte_size attribute.
const defaultPointerSize = 4

func (a *Analyzer) processPointerType(entry *stddwarf.Entry) *TypeDescriptor {
	desc := a.placeholderFor(entry.Offset)
	desc.Kind = KindPointerType

	size, ok := entry.Val(stddwarf.AttrByteSize).(int64)
	if !ok || size == 0 {
		size = defaultPointerSize
	}
	desc.PointerSize = uint64(size)

	name, _ := entry.Val(stddwarf.AttrName).(string)
	if off, ok := entry.Val(stddwarf.AttrType).(stddwarf.Offset); ok {
		desc.Element = a.resolveTypeOffset(off)
		if name == "" && desc.Element != nil && desc.Element.Name != "" {
			name = "*" + desc.Element.Name
		}
	}
	desc.Name = name

	if desc.Name != "" {
		a.types[desc.Name] = desc
	}
	return desc
}

func (a *Analyzer) processEnumType(entry *stddwarf.Entry, reader *stddwarf.Reader) *TypeDescriptor {
	desc := a.placeholderFor(entry.Offset)
	desc.Kind = KindEnumType
	if name, ok := entry.Val(stddwarf.AttrName).(string); ok {
		desc.Name = name
	}
	if size, ok := entry.Val(stddwarf.AttrByteSize).(int64); ok {
		desc.ByteSize = uint64(size)
	}

	if entry.Children {
		for {
			child, err := reader.Next()
			if err != nil || child == nil || child.Tag == 0 {
				break
			}
			if child.Children {
				reader.SkipChildren()
			}
		}
	}

	if desc.Name != "" {
		a.types[desc.Name] = desc
	}
	return desc
}

func (a *Analyzer) processSubprogram(entry *stddwarf.Entry, reader *stddwarf.Reader, index uint32) {
	name, _ := entry.Val(stddwarf.AttrName).(string)
	if linkage, ok := entry.Val(stddwarf.AttrLinkageName).(string); ok && linkage != "" {
		name = demangle.DemangleSymbol(linkage)
	}
	if name != "" {
		a.funcNames[index] = name
	}

	if entry.Children {
		for {
			child, err := reader.Next()
			if err != nil || child == nil || child.Tag == 0 {
				break
			}
			if child.Tag == stddwarf.TagVariable || child.Tag == stddwarf.TagFormalParameter {
				a.processVariable(child)
			}
			if child.Children {
				reader.SkipChildren()
			}
		}
	}
}

// placeholderFor returns the existing descriptor registered for offset, or
// installs and returns a fresh KindUnknownType placeholder. Installing the
// placeholder before resolving fields/elements is what lets a struct field
// that points back at its own struct type resolve to the same value
// instead of recursing forever.
func (a *Analyzer) placeholderFor(offset stddwarf.Offset) *TypeDescriptor {
	if desc, ok := a.byOffset[offset]; ok {
		return desc
	}
	desc := &TypeDescriptor{Kind: KindUnknownType}
	a.byOffset[offset] = desc
	return desc
}

// resolveTypeOffset returns the type descriptor for a unit-reference
// attribute value, parsing the referenced DIE on demand if it hasn't been
// visited by the main walk yet.
func (a *Analyzer) resolveTypeOffset(offset stddwarf.Offset) *TypeDescriptor {
	if desc, ok := a.byOffset[offset]; ok {
		return desc
	}

	desc := a.placeholderFor(offset)

	reader := a.data.Reader()
	reader.Seek(offset)
	entry, err := reader.Next()
	if err != nil || entry == nil {
		return desc
	}

	switch entry.Tag {
	case stddwarf.TagStructType:
		a.processStructOrUnion(entry, reader, KindStructType)
	case stddwarf.TagUnionType:
		a.processStructOrUnion(entry, reader, KindUnionType)
	case stddwarf.TagBaseType:
		a.processBaseType(entry)
	case stddwarf.TagArrayType:
		a.processArrayType(entry, reader)
	case stddwarf.TagPointerType:
		a.processPointerType(entry)
	case stddwarf.TagEnumerationType:
		a.processEnumType(entry, reader)
	case stddwarf.TagTypedef, stddwarf.TagConstType, stddwarf.TagVolatileType:
		// Transparent qualifiers: resolve through to the underlying type
		// but keep this offset's placeholder as an alias of it.
		if off, ok := entry.Val(stddwarf.AttrType).(stddwarf.Offset); ok {
			*desc = *a.resolveTypeOffset(off)
		}
	}

	return desc
}

// buildLineMap walks every compilation unit's line program and records the
// address to (file, line) mapping. Later entries overwrite earlier ones
// for the same address, matching traversal order.
func (a *Analyzer) buildLineMap() {
	reader := a.data.Reader()
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			break
		}
		if entry.Tag != stddwarf.TagCompileUnit {
			continue
		}

		lr, err := a.data.LineReader(entry)
		if err != nil || lr == nil {
			continue
		}

		var le stddwarf.LineEntry
		for {
			if err := lr.Next(&le); err != nil {
				break
			}
			if le.EndSequence {
				continue
			}
			file := ""
			if le.File != nil {
				file = le.File.Name
			}
			a.lineMap[le.Address] = SourceLine{File: file, Line: le.Line}
		}
	}
}

// Variable looks up a variable by exact name.
func (a *Analyzer) Variable(name string) (*Variable, bool) {
	for i := range a.variables {
		if a.variables[i].Name == name {
			return &a.variables[i], true
		}
	}
	return nil, false
}

// Variables returns every variable entry discovered during the walk.
func (a *Analyzer) Variables() []Variable {
	return a.variables
}

// Type looks up a named type descriptor in the catalog.
func (a *Analyzer) Type(name string) (*TypeDescriptor, bool) {
	t, ok := a.types[name]
	return t, ok
}

// FunctionName implements disasm.SymbolResolver.
func (a *Analyzer) FunctionName(funcIndex uint32) (string, bool) {
	name, ok := a.funcNames[funcIndex]
	return name, ok
}

// LineForAddress implements disasm.SymbolResolver.
func (a *Analyzer) LineForAddress(addr uint64) (string, int, bool) {
	if sl, ok := a.lineMap[addr]; ok {
		return sl.File, sl.Line, true
	}
	return "", 0, false
}

// =============================================================================
// Location expression evaluation
// =============================================================================

// DWARF location expression opcodes this evaluator understands. WebAssembly
// has no CPU registers, call frames, or TLS, so every register/frame-base/
// TLS callback below resolves to 0 rather than querying the runtime
// adapter — there is nothing for it to report.
const (
	dwOpAddr         = 0x03
	dwOpDeref        = 0x06
	dwOpConst1u      = 0x08
	dwOpConst1s      = 0x09
	dwOpConst2u      = 0x0a
	dwOpConst2s      = 0x0b
	dwOpConst4u      = 0x0c
	dwOpConst4s      = 0x0d
	dwOpConst8u      = 0x0e
	dwOpConst8s      = 0x0f
	dwOpConstu       = 0x10
	dwOpConsts       = 0x11
	dwOpDup          = 0x12
	dwOpDrop         = 0x13
	dwOpOver         = 0x14
	dwOpPick         = 0x15
	dwOpSwap         = 0x16
	dwOpMinus        = 0x1c
	dwOpPlus         = 0x22
	dwOpPlusUconst   = 0x23
	dwOpLit0         = 0x30
	dwOpLit31        = 0x4f
	dwOpReg0         = 0x50
	dwOpReg31        = 0x6f
	dwOpBreg0        = 0x70
	dwOpBreg31       = 0x8f
	dwOpRegx         = 0x90
	dwOpFbreg        = 0x91
	dwOpBregx        = 0x92
	dwOpCallFrameCFA = 0x9c
	dwOpStackValue   = 0x9f
)

// evaluateLocation runs a DWARF location expression's stack machine to
// completion and returns the resulting address. It implements the callback
// table from the component's evaluator contract directly rather than
// through a resumable-evaluation API, since debug/dwarf (unlike gimli)
// exposes no such thing.
func (a *Analyzer) evaluateLocation(expr []byte) (uint64, error) {
	var stack []uint64
	push := func(v uint64) { stack = append(stack, v) }
	pop := func() (uint64, bool) {
		if len(stack) == 0 {
			return 0, false
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, true
	}

	isStackValue := false
	pos := 0
	for pos < len(expr) {
		op := expr[pos]
		pos++

		switch {
		case op == dwOpAddr:
			if pos+4 > len(expr) {
				return 0, errors.WrapInvalidLocation("truncated DW_OP_addr")
			}
			push(uint64(binary.LittleEndian.Uint32(expr[pos : pos+4])))
			pos += 4

		case op == dwOpDeref:
			addr, ok := pop()
			if !ok {
				return 0, errors.WrapInvalidLocation("DW_OP_deref on empty stack")
			}
			bytes, err := a.readMemory(addr, defaultPointerSize)
			if err != nil {
				return 0, err
			}
			push(packLittleEndian(bytes))

		case op == dwOpConst1u:
			push(uint64(expr[pos]))
			pos++
		case op == dwOpConst1s:
			push(uint64(int64(int8(expr[pos]))))
			pos++
		case op == dwOpConst2u:
			push(uint64(binary.LittleEndian.Uint16(expr[pos : pos+2])))
			pos += 2
		case op == dwOpConst2s:
			push(uint64(int64(int16(binary.LittleEndian.Uint16(expr[pos : pos+2])))))
			pos += 2
		case op == dwOpConst4u:
			push(uint64(binary.LittleEndian.Uint32(expr[pos : pos+4])))
			pos += 4
		case op == dwOpConst4s:
			push(uint64(int64(int32(binary.LittleEndian.Uint32(expr[pos : pos+4])))))
			pos += 4
		case op == dwOpConst8u:
			push(binary.LittleEndian.Uint64(expr[pos : pos+8]))
			pos += 8
		case op == dwOpConst8s:
			push(binary.LittleEndian.Uint64(expr[pos : pos+8]))
			pos += 8
		case op == dwOpConstu:
			v, n := decodeULEB128(expr[pos:])
			push(v)
			pos += n
		case op == dwOpConsts:
			v, n := decodeSLEB128(expr[pos:])
			push(uint64(v))
			pos += n

		case op == dwOpDup:
			v, ok := pop()
			if !ok {
				return 0, errors.WrapInvalidLocation("DW_OP_dup on empty stack")
			}
			push(v)
			push(v)
		case op == dwOpDrop:
			if _, ok := pop(); !ok {
				return 0, errors.WrapInvalidLocation("DW_OP_drop on empty stack")
			}
		case op == dwOpOver:
			if len(stack) < 2 {
				return 0, errors.WrapInvalidLocation("DW_OP_over on short stack")
			}
			push(stack[len(stack)-2])
		case op == dwOpPick:
			n := int(expr[pos])
			pos++
			if n >= len(stack) {
				return 0, errors.WrapInvalidLocation("DW_OP_pick out of range")
			}
			push(stack[len(stack)-1-n])
		case op == dwOpSwap:
			if len(stack) < 2 {
				return 0, errors.WrapInvalidLocation("DW_OP_swap on short stack")
			}
			stack[len(stack)-1], stack[len(stack)-2] = stack[len(stack)-2], stack[len(stack)-1]

		case op == dwOpPlus:
			b, ok1 := pop()
			a2, ok2 := pop()
			if !ok1 || !ok2 {
				return 0, errors.WrapInvalidLocation("DW_OP_plus on short stack")
			}
			push(a2 + b)
		case op == dwOpMinus:
			b, ok1 := pop()
			a2, ok2 := pop()
			if !ok1 || !ok2 {
				return 0, errors.WrapInvalidLocation("DW_OP_minus on short stack")
			}
			push(a2 - b)
		case op == dwOpPlusUconst:
			v, n := decodeULEB128(expr[pos:])
			pos += n
			base, ok := pop()
			if !ok {
				return 0, errors.WrapInvalidLocation("DW_OP_plus_uconst on empty stack")
			}
			push(base + v)

		case op >= dwOpLit0 && op <= dwOpLit31:
			push(uint64(op - dwOpLit0))

		case op >= dwOpReg0 && op <= dwOpReg31:
			// requires-register: WebAssembly has no registers.
			push(0)

		case op >= dwOpBreg0 && op <= dwOpBreg31:
			off, n := decodeSLEB128(expr[pos:])
			pos += n
			push(uint64(off)) // register value is always 0

		case op == dwOpRegx:
			_, n := decodeULEB128(expr[pos:])
			pos += n
			push(0)

		case op == dwOpBregx:
			_, n := decodeULEB128(expr[pos:])
			pos += n
			off, n2 := decodeSLEB128(expr[pos:])
			pos += n2
			push(uint64(off))

		case op == dwOpFbreg:
			off, n := decodeSLEB128(expr[pos:])
			pos += n
			push(uint64(off)) // frame base is always 0

		case op == dwOpCallFrameCFA:
			push(0)

		case op == dwOpStackValue:
			isStackValue = true

		default:
			return 0, errors.WrapUnsupportedExpression(fmt.Sprintf("0x%02x", op))
		}
	}

	if isStackValue {
		return 0, errors.WrapUnsupportedLocation("result is a literal value, not an address")
	}

	addr, ok := pop()
	if !ok {
		return 0, errors.WrapInvalidLocation("location expression produced no result")
	}
	return addr, nil
}

func (a *Analyzer) readMemory(addr uint64, size uint32) ([]byte, error) {
	if a.mem == nil {
		return nil, errors.WrapMemoryReadError(addr, uint64(size), "no runtime attached")
	}
	bytes, err := a.mem.ReadMemory(addr, size)
	if err != nil {
		return nil, errors.WrapMemoryReadError(addr, uint64(size), err.Error())
	}
	return bytes, nil
}

func packLittleEndian(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
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

func decodeSLEB128(data []byte) (int64, int) {
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
