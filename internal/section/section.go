// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package section implements the Section Extractor: a single forward pass
// over a WASM module's byte stream that frames every top-level section,
// copies out the custom sections carrying DWARF debug information, and
// records enough of the import/export/code structure for the rest of the
// engine (runtime adapter, disassembler, DWARF analyzer) to work from byte
// offsets instead of re-parsing the module.
package section

import (
	"encoding/binary"
	"fmt"

	"github.com/dotandev/wasmdbg/internal/errors"
	hversion "github.com/hashicorp/go-version"
)

// WASM section IDs, per the binary format.
const (
	IDCustom   byte = 0
	IDType     byte = 1
	IDImport   byte = 2
	IDFunction byte = 3
	IDTable    byte = 4
	IDMemory   byte = 5
	IDGlobal   byte = 6
	IDExport   byte = 7
	IDStart    byte = 8
	IDElement  byte = 9
	IDCode     byte = 10
	IDData     byte = 11
)

// Export kinds, per the binary format's exportdesc tag.
const (
	ExportKindFunc   byte = 0
	ExportKindTable  byte = 1
	ExportKindMemory byte = 2
	ExportKindGlobal byte = 3
)

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6d}

const supportedBinaryVersion = uint32(1)

// debugSectionNames maps the fixed, closed vocabulary of DWARF custom
// section names (spec.md §3 "Debug-section set") to the short keys used
// throughout this engine.
var debugSectionNames = map[string]string{
	".debug_abbrev":      "abbrev",
	".debug_info":        "info",
	".debug_str":         "str",
	".debug_line":        "line",
	".debug_loc":         "loc",
	".debug_ranges":      "ranges",
	".debug_str_offsets": "str_offsets",
	".debug_types":       "types",
}

// CodeEntry is one function body from the code section: the module-wide
// function index, the raw body bytes (locals declarations followed by
// instructions and the implicit end), and the absolute byte offset of the
// body's first byte within the module.
type CodeEntry struct {
	FuncIndex uint32
	Body      []byte
	Offset    int
}

// Export describes one entry of the module's export section.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// Extracted is the output of a single Section Extractor pass.
type Extracted struct {
	// DebugSections maps short keys ("info", "line", ...) to owned copies
	// of the corresponding custom section payload.
	DebugSections map[string][]byte
	CodeEntries   []CodeEntry
	Exports       []Export
	// ImportFuncCount is the number of function imports, i.e. the index
	// bias applied to code-section entries (spec.md §3 "Function index").
	ImportFuncCount uint32
}

// Extract scans module in a single forward pass and returns the debug
// sections, code bodies, import count and export list. It tolerates
// unrecognized custom sections (they are discarded) but fails with
// ErrMalformedModule if the stream cannot be framed at all.
func Extract(module []byte) (*Extracted, error) {
	if len(module) < 8 || [4]byte(module[:4]) != wasmMagic {
		return nil, errors.WrapMalformedModule("missing or invalid WASM magic number")
	}
	version := binary.LittleEndian.Uint32(module[4:8])
	if version != supportedBinaryVersion {
		got, _ := hversion.NewVersion(fmt.Sprintf("%d.0.0", version))
		want, _ := hversion.NewVersion(fmt.Sprintf("%d.0.0", supportedBinaryVersion))
		if got != nil && want != nil {
			return nil, errors.WrapUnsupportedVersion(got.String(), want.String())
		}
		return nil, errors.WrapUnsupportedVersion(fmt.Sprintf("%d", version), fmt.Sprintf("%d", supportedBinaryVersion))
	}

	out := &Extracted{DebugSections: make(map[string][]byte)}

	pos := 8
	for pos < len(module) {
		id := module[pos]
		pos++

		size, n, err := readU32(module, pos)
		if err != nil {
			return nil, errors.WrapMalformedModule(fmt.Sprintf("bad section size at offset %d: %v", pos, err))
		}
		pos += n

		end := pos + int(size)
		if end < pos || end > len(module) {
			return nil, errors.WrapMalformedModule(fmt.Sprintf("section id %d length out of bounds", id))
		}
		payload := module[pos:end]

		switch id {
		case IDCustom:
			if err := extractCustomSection(out, payload); err != nil {
				return nil, err
			}
		case IDImport:
			count, err := countFunctionImports(payload)
			if err != nil {
				return nil, errors.WrapMalformedModule(fmt.Sprintf("import section: %v", err))
			}
			out.ImportFuncCount = count
		case IDExport:
			exports, err := parseExports(payload)
			if err != nil {
				return nil, errors.WrapMalformedModule(fmt.Sprintf("export section: %v", err))
			}
			out.Exports = exports
		case IDCode:
			entries, err := parseCodeSection(payload, pos, out.ImportFuncCount)
			if err != nil {
				return nil, errors.WrapMalformedModule(fmt.Sprintf("code section: %v", err))
			}
			out.CodeEntries = entries
		}

		pos = end
	}

	return out, nil
}

func extractCustomSection(out *Extracted, payload []byte) error {
	nameLen, n, err := readU32(payload, 0)
	if err != nil {
		return errors.WrapMalformedModule(fmt.Sprintf("custom section name length: %v", err))
	}
	if n+int(nameLen) > len(payload) {
		return errors.WrapMalformedModule("custom section name exceeds section bounds")
	}
	name := string(payload[n : n+int(nameLen)])

	key, recognized := debugSectionNames[name]
	if !recognized {
		return nil // unknown custom section: discard, per the A contract.
	}

	body := payload[n+int(nameLen):]
	owned := make([]byte, len(body))
	copy(owned, body)
	out.DebugSections[key] = owned
	return nil
}

func countFunctionImports(payload []byte) (uint32, error) {
	count, n, err := readU32(payload, 0)
	if err != nil {
		return 0, err
	}
	pos := n
	var funcImports uint32
	for i := uint32(0); i < count; i++ {
		modLen, n, err := readU32(payload, pos)
		if err != nil {
			return 0, err
		}
		pos += n + int(modLen)

		fieldLen, n, err := readU32(payload, pos)
		if err != nil {
			return 0, err
		}
		pos += n + int(fieldLen)

		if pos >= len(payload) {
			return 0, fmt.Errorf("truncated import entry")
		}
		kind := payload[pos]
		pos++

		switch kind {
		case 0x00: // func: typeidx
			_, n, err := readU32(payload, pos)
			if err != nil {
				return 0, err
			}
			pos += n
			funcImports++
		case 0x01: // table: tabletype (reftype byte + limits)
			n, err := skipLimits(payload, pos+1)
			if err != nil {
				return 0, err
			}
			pos = n
		case 0x02: // memory: limits
			n, err := skipLimits(payload, pos)
			if err != nil {
				return 0, err
			}
			pos = n
		case 0x03: // global: valtype + mutability
			pos += 2
		default:
			return 0, fmt.Errorf("unknown import kind 0x%02x", kind)
		}
	}
	return funcImports, nil
}

func skipLimits(payload []byte, pos int) (int, error) {
	if pos >= len(payload) {
		return 0, fmt.Errorf("truncated limits")
	}
	flags := payload[pos]
	pos++
	_, n, err := readU32(payload, pos)
	if err != nil {
		return 0, err
	}
	pos += n
	if flags&0x01 != 0 {
		_, n, err := readU32(payload, pos)
		if err != nil {
			return 0, err
		}
		pos += n
	}
	return pos, nil
}

func parseExports(payload []byte) ([]Export, error) {
	count, n, err := readU32(payload, 0)
	if err != nil {
		return nil, err
	}
	pos := n
	exports := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		nameLen, n, err := readU32(payload, pos)
		if err != nil {
			return nil, err
		}
		pos += n
		if pos+int(nameLen) > len(payload) {
			return nil, fmt.Errorf("truncated export name")
		}
		name := string(payload[pos : pos+int(nameLen)])
		pos += int(nameLen)

		if pos >= len(payload) {
			return nil, fmt.Errorf("truncated export entry")
		}
		kind := payload[pos]
		pos++

		idx, n, err := readU32(payload, pos)
		if err != nil {
			return nil, err
		}
		pos += n

		exports = append(exports, Export{Name: name, Kind: kind, Index: idx})
	}
	return exports, nil
}

func parseCodeSection(payload []byte, payloadModuleOffset int, importFuncCount uint32) ([]CodeEntry, error) {
	count, n, err := readU32(payload, 0)
	if err != nil {
		return nil, err
	}
	pos := n
	entries := make([]CodeEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		bodySize, n, err := readU32(payload, pos)
		if err != nil {
			return nil, err
		}
		pos += n
		if pos+int(bodySize) > len(payload) {
			return nil, fmt.Errorf("truncated function body")
		}
		body := payload[pos : pos+int(bodySize)]
		entries = append(entries, CodeEntry{
			FuncIndex: importFuncCount + i,
			Body:      body,
			Offset:    payloadModuleOffset + pos,
		})
		pos += int(bodySize)
	}
	return entries, nil
}

// readU32 decodes an unsigned LEB128 u32 from data starting at pos.
// Returns the value, the number of bytes consumed, and an error if the
// encoding is truncated or overlong.
func readU32(data []byte, pos int) (uint32, int, error) {
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ {
		if pos+i >= len(data) {
			return 0, 0, fmt.Errorf("truncated LEB128 at offset %d", pos)
		}
		b := data[pos+i]
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("LEB128 integer too large at offset %d", pos)
}
