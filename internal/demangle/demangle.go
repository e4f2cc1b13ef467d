// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package demangle turns compiler-mangled WebAssembly export/function names
// back into their source-level path form, and rewrites stack traces that
// reference raw function-table indices into the names they resolve to.
package demangle

import (
	"regexp"
	"strconv"
	"strings"
)

const legacyPrefix = "_ZN"
const legacySuffix = "E"

// DemangleSymbol converts a single mangled symbol into its "::"-joined
// path form. Input that doesn't match a known mangling scheme — including
// already-demangled names — is returned unchanged.
//
// The legacy Rust/Itanium-derived scheme used here is a sequence of
// length-prefixed path segments (_ZN<len><seg><len><seg>...), an optional
// trailing 17h<16 hex digit hash> disambiguator segment, and a final E.
// The length prefix must be used to slice each segment: identifiers may
// themselves start with digits, so there is no way to split them apart
// without it.
func DemangleSymbol(name string) string {
	body, ok := strings.CutPrefix(name, legacyPrefix)
	if !ok {
		return name
	}
	body, ok = strings.CutSuffix(body, legacySuffix)
	if !ok {
		return name
	}

	var segments []string
	for len(body) > 0 {
		length, rest, ok := cutLeadingLength(body)
		if !ok || length == 0 {
			return name
		}
		if length > len(rest) {
			// The final segment is the "h<hex>" disambiguator; compilers
			// don't always emit a hash of exactly the declared length in
			// the wild, so take whatever is left rather than reject it.
			if !isHexHashSegment(rest) {
				return name
			}
			segments = append(segments, rest)
			break
		}
		segments = append(segments, rest[:length])
		body = rest[length:]
	}
	if len(segments) == 0 {
		return name
	}

	// A trailing "h<hex>" segment (preceded by its own "17" length prefix,
	// already stripped above) is the compiler's disambiguating hash
	// suffix, not part of the source path.
	if last := segments[len(segments)-1]; isHexHashSegment(last) {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return name
	}

	return strings.Join(segments, "::")
}

func cutLeadingLength(s string) (length int, rest string, ok bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, false
	}
	return n, s[i:], true
}

func isHexHashSegment(seg string) bool {
	if !strings.HasPrefix(seg, "h") {
		return false
	}
	for _, r := range seg[1:] {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return len(seg) > 1
}

// funcRef matches a "func[N]" reference inside a formatted stack trace.
var funcRef = regexp.MustCompile(`func\[(\d+)\]`)

// SymbolTable maps a function index to its mangled name, as recorded in a
// module's name section or debug info.
type SymbolTable map[uint32]string

// SymbolEntry is one row used to build a SymbolTable from an ordered scan
// of a module's function index space.
type SymbolEntry struct {
	Index       uint32
	MangledName string
}

// BuildSymbolTable assembles a SymbolTable from a list of entries.
func BuildSymbolTable(entries []SymbolEntry) SymbolTable {
	table := make(SymbolTable, len(entries))
	for _, e := range entries {
		table[e.Index] = e.MangledName
	}
	return table
}

// DemangleTrace rewrites every "func[N]" reference in trace with the
// demangled name of function N, looked up in table. References to an
// index absent from table are left untouched. A nil table leaves the
// trace unchanged.
func DemangleTrace(trace string, table SymbolTable) string {
	if table == nil {
		return trace
	}
	return funcRef.ReplaceAllStringFunc(trace, func(match string) string {
		sub := funcRef.FindStringSubmatch(match)
		idx, err := strconv.ParseUint(sub[1], 10, 32)
		if err != nil {
			return match
		}
		mangled, ok := table[uint32(idx)]
		if !ok {
			return match
		}
		return DemangleSymbol(mangled)
	})
}
